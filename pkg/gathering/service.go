package gathering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arnavshah/warlist-bot/pkg/gate"
	"github.com/arnavshah/warlist-bot/pkg/models"
)

// Store persists participation rows, unique per (group, user, slot)
type Store interface {
	InsertGathers(ctx context.Context, groupID string, userIDs []string, tier models.Tier, slots []int) error
	DeleteGathers(ctx context.Context, groupID string, userIDs []string, slots []int) error
	DeleteGathersBySlots(ctx context.Context, groupID string, slots []int) error
	ClearGathers(ctx context.Context, groupID string) error
	AllGathers(ctx context.Context, groupID string) ([]models.Participation, error)
}

// Labels is the platform's role system. Permission failures are reported
// by wrapping ErrForbidden.
type Labels interface {
	List(ctx context.Context, groupID string) ([]models.Label, error)
	Create(ctx context.Context, groupID, name string) (models.Label, error)
	Delete(ctx context.Context, groupID, labelID string) error
	Assign(ctx context.Context, groupID, userID string, labelIDs []string) error
	Unassign(ctx context.Context, groupID, userID string, labelIDs []string) error
	Members(ctx context.Context, groupID, labelID string) ([]string, error)
}

// Board finds and replaces roster documents already posted in a channel
type Board interface {
	// Previous returns the newest non-archived roster document, or nil.
	Previous(ctx context.Context, channelID string) (*models.Posted, error)
	Delete(ctx context.Context, channelID, messageID string) error
	Edit(ctx context.Context, channelID, messageID string, doc models.Document) error
}

// Gate serializes commands per group without waiting
type Gate interface {
	TryAcquire(ctx context.Context, key string) (func(), error)
}

// Incident describes an unexpected command failure for operators
type Incident struct {
	ID      string
	Command Command
	Request Request
	Err     error
}

// Reporter forwards incidents to an operator-facing channel
type Reporter interface {
	Report(ctx context.Context, incident Incident) error
}

// Request is the canonical form of a command, whatever surface it came from
type Request struct {
	GroupID   string
	ChannelID string
	ActorID   string
	Members   []string
	Text      string
	LabelID   string
	Locale    string
}

// TargetMembers returns the explicit members, or the actor when none were given
func (r Request) TargetMembers() []string {
	if len(r.Members) == 0 {
		if r.ActorID == "" {
			return nil
		}
		return []string{r.ActorID}
	}
	seen := make(map[string]bool, len(r.Members))
	out := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// Reply is what a command answers with
type Reply struct {
	Content   string
	Document  *models.Document
	Ephemeral bool
}

// Invocation adapts one surface (slash command, text command, HTTP call)
// to the orchestrator.
type Invocation interface {
	Request() Request
	// Defer acknowledges a command that will answer later.
	Defer(ctx context.Context) error
	Respond(ctx context.Context, reply Reply) error
}

// Command names an orchestrator operation
type Command int

const (
	CmdCan Command = iota
	CmdTentative
	CmdSubstitute
	CmdDrop
	CmdOut
	CmdClear
	CmdNow
	CmdPick
)

func (c Command) String() string {
	switch c {
	case CmdCan:
		return "can"
	case CmdTentative:
		return "tentative"
	case CmdSubstitute:
		return "substitute"
	case CmdDrop:
		return "drop"
	case CmdOut:
		return "out"
	case CmdClear:
		return "clear"
	case CmdNow:
		return "now"
	case CmdPick:
		return "pick"
	}
	return "Command(" + strconv.Itoa(int(c)) + ")"
}

// gated reports whether the command takes the group's gate. Pick does not
// touch gathering state.
func (c Command) gated() bool {
	return c != CmdPick
}

var (
	msgCleared = Localized{"挙手情報を削除しました.", "Cleared all participation."}
	msgOut     = Localized{"募集を削除しました. (%s)", "Removed gathering. (%s)"}
)

// Service sequences every gathering command:
// parse, check limits, mutate labels, mutate store, rebuild, reconcile, render, respond.
type Service struct {
	Store    Store
	Labels   Labels
	Board    Board
	Gate     Gate
	Reporter Reporter
	Logger   *slog.Logger
	Intn     func(n int) int
}

// NewService creates a service with an in-process gate
func NewService(store Store, labels Labels, board Board) *Service {
	return &Service{
		Store:  store,
		Labels: labels,
		Board:  board,
		Gate:   gate.NewLocal(1),
		Logger: slog.Default(),
		Intn:   rand.Intn,
	}
}

// Execute runs cmd for inv. Domain failures come back as *DomainError.
func (s *Service) Execute(ctx context.Context, inv Invocation, cmd Command) error {
	req := inv.Request()
	if req.GroupID == "" {
		return ErrGuildNotFound
	}

	if cmd.gated() {
		release, err := s.Gate.TryAcquire(ctx, req.GroupID)
		if errors.Is(err, gate.ErrBusy) {
			return ErrCommandInProgress
		}
		if err != nil {
			return err
		}
		defer release()
	}

	s.Logger.Debug("command",
		"command", cmd.String(),
		"group", req.GroupID,
		"channel", req.ChannelID,
		"actor", req.ActorID,
	)

	if err := inv.Defer(ctx); err != nil {
		return fmt.Errorf("defer reply: %w", err)
	}

	switch cmd {
	case CmdCan:
		return s.Declare(ctx, inv, models.Confirmed)
	case CmdTentative:
		return s.Declare(ctx, inv, models.Tentative)
	case CmdSubstitute:
		return s.Declare(ctx, inv, models.Substitute)
	case CmdDrop:
		return s.Withdraw(ctx, inv)
	case CmdOut:
		return s.WithdrawByTime(ctx, inv)
	case CmdClear:
		return s.ClearAll(ctx, inv)
	case CmdNow:
		return s.Query(ctx, inv)
	case CmdPick:
		return s.Pick(ctx, inv)
	}
	return fmt.Errorf("unknown command %d", int(cmd))
}

// Dispatch runs cmd and answers failures on the same surface. Domain errors
// become a localized message; anything else is logged, reported and answered
// with a generic retry-later message.
func (s *Service) Dispatch(ctx context.Context, inv Invocation, cmd Command) error {
	err := s.Execute(ctx, inv, cmd)
	if err == nil {
		return nil
	}

	req := inv.Request()

	var de *DomainError
	if errors.As(err, &de) {
		s.Logger.Debug("command rejected", "command", cmd.String(), "group", req.GroupID, "code", de.Code)
		return inv.Respond(ctx, Reply{Content: de.Localize(req.Locale), Ephemeral: true})
	}

	incident := Incident{ID: uuid.NewString(), Command: cmd, Request: req, Err: err}
	s.Logger.Error("command failed",
		"incident", incident.ID,
		"command", cmd.String(),
		"group", req.GroupID,
		"channel", req.ChannelID,
		"actor", req.ActorID,
		"error", err,
	)
	if s.Reporter != nil {
		if rerr := s.Reporter.Report(ctx, incident); rerr != nil {
			s.Logger.Warn("report incident", "incident", incident.ID, "error", rerr)
		}
	}

	content := fmt.Sprintf("%s (ID: %s)", unexpectedMessage.In(req.Locale), incident.ID)
	return inv.Respond(ctx, Reply{Content: content, Ephemeral: true})
}

// Declare records the members at tier for every slot in the request text.
// A member holds one tier per slot, so existing rows are replaced.
func (s *Service) Declare(ctx context.Context, inv Invocation, tier models.Tier) error {
	req := inv.Request()

	slots, err := ParseValidSlots(req.Text)
	if err != nil {
		return err
	}
	members := req.TargetMembers()

	labels, err := s.Labels.List(ctx, req.GroupID)
	if err != nil {
		return labelErr("list labels", err)
	}

	if err := CheckLimits(slots, labels); err != nil {
		return err
	}

	if err := s.assignSlotLabels(ctx, req.GroupID, members, slots, labels); err != nil {
		return err
	}

	if err := s.Store.DeleteGathers(ctx, req.GroupID, members, slots); err != nil {
		return fmt.Errorf("delete gathers: %w", err)
	}
	if err := s.Store.InsertGathers(ctx, req.GroupID, members, tier, slots); err != nil {
		return fmt.Errorf("insert gathers: %w", err)
	}

	state, err := s.CurrentState(ctx, req.GroupID)
	if err != nil {
		return err
	}

	doc := Render(state)
	return s.refresh(ctx, inv, Reply{
		Document: &doc,
		Content:  fillHighlight(state, slots),
	})
}

// Withdraw removes the members from the requested slots. Labels are
// unassigned but kept.
func (s *Service) Withdraw(ctx context.Context, inv Invocation) error {
	req := inv.Request()

	slots, err := ParseValidSlots(req.Text)
	if err != nil {
		return err
	}
	members := req.TargetMembers()

	if err := s.Store.DeleteGathers(ctx, req.GroupID, members, slots); err != nil {
		return fmt.Errorf("delete gathers: %w", err)
	}

	labels, err := s.Labels.List(ctx, req.GroupID)
	if err != nil {
		return labelErr("list labels", err)
	}

	ids := labelIDs(SlotLabels(labels), slots)
	if len(ids) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		for _, member := range members {
			g.Go(func() error {
				return s.Labels.Unassign(gctx, req.GroupID, member, ids)
			})
		}
		if err := g.Wait(); err != nil {
			return labelErr("unassign labels", err)
		}
	}

	state, err := s.CurrentState(ctx, req.GroupID)
	if err != nil {
		return err
	}

	doc := Render(state)
	return s.refresh(ctx, inv, Reply{Document: &doc})
}

// WithdrawByTime drops every row of the requested slots group-wide and
// deletes their labels. Slots nobody joined are fine.
func (s *Service) WithdrawByTime(ctx context.Context, inv Invocation) error {
	req := inv.Request()

	slots, err := ParseValidSlots(req.Text)
	if err != nil {
		return err
	}

	if err := s.Store.DeleteGathersBySlots(ctx, req.GroupID, slots); err != nil {
		return fmt.Errorf("delete gathers by slots: %w", err)
	}

	labels, err := s.Labels.List(ctx, req.GroupID)
	if err != nil {
		return labelErr("list labels", err)
	}
	if err := s.deleteLabels(ctx, req.GroupID, labelIDs(SlotLabels(labels), slots)); err != nil {
		return err
	}

	state, err := s.CurrentState(ctx, req.GroupID)
	if err != nil {
		return err
	}

	cleared := make([]string, len(slots))
	for i, slot := range slots {
		cleared[i] = strconv.Itoa(slot)
	}

	doc := Render(state)
	return s.refresh(ctx, inv, Reply{
		Document: &doc,
		Content:  fmt.Sprintf(msgOut.In(req.Locale), strings.Join(cleared, ", ")),
	})
}

// ClearAll deletes every slot label and row of the group and archives the
// document on display instead of deleting it.
func (s *Service) ClearAll(ctx context.Context, inv Invocation) error {
	req := inv.Request()

	labels, err := s.Labels.List(ctx, req.GroupID)
	if err != nil {
		return labelErr("list labels", err)
	}

	var ids []string
	for _, l := range labels {
		if _, ok := SlotOf(l.Name); ok {
			ids = append(ids, l.ID)
		}
	}
	if err := s.deleteLabels(ctx, req.GroupID, ids); err != nil {
		return err
	}

	if err := s.Store.ClearGathers(ctx, req.GroupID); err != nil {
		return fmt.Errorf("clear gathers: %w", err)
	}

	if req.ChannelID != "" && s.Board != nil {
		prev, err := s.Board.Previous(ctx, req.ChannelID)
		if err != nil {
			return fmt.Errorf("fetch previous document: %w", err)
		}
		if prev != nil {
			if err := s.Board.Edit(ctx, req.ChannelID, prev.ID, Archive(prev.Document)); err != nil {
				return fmt.Errorf("archive previous document: %w", err)
			}
		}
	}

	return inv.Respond(ctx, Reply{Content: msgCleared.In(req.Locale)})
}

// Query shows the current roster without changing anything
func (s *Service) Query(ctx context.Context, inv Invocation) error {
	req := inv.Request()

	state, err := s.CurrentState(ctx, req.GroupID)
	if err != nil {
		return err
	}
	if len(state) == 0 {
		return ErrNotGathering
	}

	doc := Render(state)
	return s.refresh(ctx, inv, Reply{Document: &doc})
}

// Pick mentions one member of the request's label, chosen uniformly
func (s *Service) Pick(ctx context.Context, inv Invocation) error {
	req := inv.Request()

	members, err := s.Labels.Members(ctx, req.GroupID, req.LabelID)
	if err != nil {
		return labelErr("list label members", err)
	}
	if len(members) == 0 {
		return ErrNoMembersAvailable
	}

	chosen := members[s.Intn(len(members))]
	return inv.Respond(ctx, Reply{Content: Mention(chosen)})
}

// CurrentState rebuilds the group's state from the store and reconciles it
// with the live slot labels.
func (s *Service) CurrentState(ctx context.Context, groupID string) (models.State, error) {
	records, err := s.Store.AllGathers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("get gathers: %w", err)
	}

	labels, err := s.Labels.List(ctx, groupID)
	if err != nil {
		return nil, labelErr("list labels", err)
	}

	return Reconcile(BuildState(records), LiveSlots(labels)), nil
}

// assignSlotLabels creates the labels missing for slots and gives all of
// them to every member.
func (s *Service) assignSlotLabels(ctx context.Context, groupID string, members []string, slots []int, labels []models.Label) error {
	existing := SlotLabels(labels)
	ids := make([]string, len(slots))

	g, gctx := errgroup.WithContext(ctx)
	for i, slot := range slots {
		if ls := existing[slot]; len(ls) > 0 {
			ids[i] = ls[0].ID
			continue
		}
		g.Go(func() error {
			l, err := s.Labels.Create(gctx, groupID, strconv.Itoa(slot))
			if err != nil {
				return err
			}
			ids[i] = l.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return labelErr("create labels", err)
	}

	g, gctx = errgroup.WithContext(ctx)
	for _, member := range members {
		g.Go(func() error {
			return s.Labels.Assign(gctx, groupID, member, ids)
		})
	}
	return labelErr("assign labels", g.Wait())
}

func (s *Service) deleteLabels(ctx context.Context, groupID string, ids []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			return s.Labels.Delete(gctx, groupID, id)
		})
	}
	return labelErr("delete labels", g.Wait())
}

// refresh replaces the channel's previous roster document with reply
func (s *Service) refresh(ctx context.Context, inv Invocation, reply Reply) error {
	req := inv.Request()

	if req.ChannelID != "" && s.Board != nil {
		prev, err := s.Board.Previous(ctx, req.ChannelID)
		if err != nil {
			return fmt.Errorf("fetch previous document: %w", err)
		}
		if prev != nil {
			if err := s.Board.Delete(ctx, req.ChannelID, prev.ID); err != nil {
				return fmt.Errorf("delete previous document: %w", err)
			}
		}
	}

	return inv.Respond(ctx, reply)
}

func labelIDs(bySlot map[int][]models.Label, slots []int) []string {
	var ids []string
	for _, slot := range slots {
		for _, l := range bySlot[slot] {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

// labelErr maps permission failures to ErrBotMissingPermissions and wraps the rest
func labelErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrForbidden) {
		return ErrBotMissingPermissions
	}
	return fmt.Errorf("%s: %w", op, err)
}
