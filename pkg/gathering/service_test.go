package gathering_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/arnavshah/warlist-bot/pkg/gate"
	"github.com/arnavshah/warlist-bot/pkg/gathering"
	"github.com/arnavshah/warlist-bot/pkg/gathering/gatheringtest"
	"github.com/arnavshah/warlist-bot/pkg/models"
)

type harness struct {
	svc    *gathering.Service
	store  *gatheringtest.Store
	labels *gatheringtest.Labels
	board  *gatheringtest.Board
}

func newHarness(labels ...string) *harness {
	h := &harness{
		store:  &gatheringtest.Store{},
		labels: gatheringtest.NewLabels(labels...),
		board:  &gatheringtest.Board{},
	}
	h.svc = gathering.NewService(h.store, h.labels, h.board)
	h.svc.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return h
}

func (h *harness) invocation(text string, members ...string) *gatheringtest.Invocation {
	return &gatheringtest.Invocation{
		Req: gathering.Request{
			GroupID:   "guild",
			ChannelID: "chan",
			ActorID:   "actor",
			Members:   members,
			Text:      text,
			Locale:    "en-US",
		},
		Board: h.board,
	}
}

func (h *harness) run(t *testing.T, cmd gathering.Command, text string, members ...string) *gatheringtest.Invocation {
	t.Helper()
	inv := h.invocation(text, members...)
	if err := h.svc.Execute(context.Background(), inv, cmd); err != nil {
		t.Fatalf("%s %q failed: %v", cmd, text, err)
	}
	return inv
}

func TestDeclare(t *testing.T) {
	h := newHarness()

	inv := h.run(t, gathering.CmdCan, "20-21")

	if !inv.Deferred {
		t.Error("Expected the reply to be deferred")
	}

	rows := h.store.Rows()
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	for _, r := range rows {
		if r.UserID != "actor" || r.Tier != models.Confirmed {
			t.Errorf("unexpected row %+v", r)
		}
	}

	if names := h.labels.Names(); !reflect.DeepEqual(names, []string{"20", "21"}) && !reflect.DeepEqual(names, []string{"21", "20"}) {
		t.Errorf("Expected labels 20 and 21, got %v", names)
	}
	label, _ := h.labels.ByName("20")
	members, _ := h.labels.Members(context.Background(), "guild", label.ID)
	if !reflect.DeepEqual(members, []string{"actor"}) {
		t.Errorf("Expected actor to hold label 20, got %v", members)
	}

	doc := inv.Last().Document
	if doc == nil {
		t.Fatal("Expected a roster document")
	}
	if len(doc.Fields) != 2 || doc.Fields[0].Name != "20@5" || doc.Fields[1].Name != "21@5" {
		t.Errorf("unexpected fields %+v", doc.Fields)
	}
}

func TestDeclare_ExplicitMembers(t *testing.T) {
	h := newHarness()

	h.run(t, gathering.CmdTentative, "20", "u1", "u2", "u1")

	rows := h.store.Rows()
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows for 2 distinct members, got %d", len(rows))
	}
	for _, r := range rows {
		if r.UserID == "actor" {
			t.Error("Expected explicit members to replace the actor")
		}
		if r.Tier != models.Tentative {
			t.Errorf("Expected tentative, got %s", r.Tier)
		}
	}
}

func TestDeclare_ReplacesTier(t *testing.T) {
	h := newHarness()

	h.run(t, gathering.CmdCan, "20")
	h.run(t, gathering.CmdSubstitute, "20")

	rows := h.store.Rows()
	if len(rows) != 1 {
		t.Fatalf("Expected exactly one row for (actor, 20), got %d", len(rows))
	}
	if rows[0].Tier != models.Substitute {
		t.Errorf("Expected substitute, got %s", rows[0].Tier)
	}
}

func TestDeclare_ReusesExistingLabels(t *testing.T) {
	h := newHarness("20")

	h.run(t, gathering.CmdCan, "20")

	if names := h.labels.Names(); len(names) != 1 {
		t.Errorf("Expected existing label to be reused, got %v", names)
	}
}

func TestDeclare_FillHighlight(t *testing.T) {
	h := newHarness()

	first := h.run(t, gathering.CmdCan, "20", "u1", "u2", "u3", "u4", "u5")
	if first.Last().Content != "" {
		t.Errorf("Expected no highlight below threshold, got %q", first.Last().Content)
	}

	inv := h.run(t, gathering.CmdCan, "20", "u6")
	content := inv.Last().Content
	if !strings.Contains(content, "**20**") {
		t.Fatalf("Expected highlight for slot 20, got %q", content)
	}
	for _, u := range []string{"u1", "u6"} {
		if !strings.Contains(content, "<@"+u+">") {
			t.Errorf("Expected highlight to mention %s, got %q", u, content)
		}
	}

	other := h.run(t, gathering.CmdCan, "21", "u7")
	if strings.Contains(other.Last().Content, "**20**") {
		t.Errorf("Expected no highlight for slot 20 untouched by this request, got %q", other.Last().Content)
	}
}

func TestDeclare_RefreshesPreviousDocument(t *testing.T) {
	h := newHarness()

	h.run(t, gathering.CmdCan, "20")
	h.run(t, gathering.CmdCan, "21")

	if len(h.board.Deleted) != 1 {
		t.Errorf("Expected the first document to be deleted, got %v", h.board.Deleted)
	}
	if len(h.board.Posted) != 1 {
		t.Errorf("Expected one document on the board, got %d", len(h.board.Posted))
	}
}

func TestDeclare_TooManyTimeSlots_NoSideEffects(t *testing.T) {
	h := newHarness()

	inv := h.invocation("0-25")
	err := h.svc.Execute(context.Background(), inv, gathering.CmdCan)

	if !errors.Is(err, gathering.ErrTooManyTimeSlots) {
		t.Fatalf("Expected ErrTooManyTimeSlots, got %v", err)
	}
	if h.store.Calls != 0 {
		t.Errorf("Expected no store calls, got %d", h.store.Calls)
	}
	if h.labels.Mutations != 0 {
		t.Errorf("Expected no label mutations, got %d", h.labels.Mutations)
	}
	if len(inv.Replies) != 0 {
		t.Errorf("Expected no reply from Execute, got %v", inv.Replies)
	}
}

func TestDeclare_InputErrors(t *testing.T) {
	tests := []struct {
		text string
		want error
	}{
		{"", gathering.ErrTimeNotSelected},
		{"tonight", gathering.ErrTimeNotSelected},
		{"49", gathering.ErrTimeOutOfRange},
		{"24-20", gathering.ErrTimeNotSelected},
	}

	for _, tt := range tests {
		h := newHarness()
		err := h.svc.Execute(context.Background(), h.invocation(tt.text), gathering.CmdCan)
		if !errors.Is(err, tt.want) {
			t.Errorf("text %q: expected %v, got %v", tt.text, tt.want, err)
		}
		if h.store.Mutations() != 0 || h.labels.Mutations != 0 {
			t.Errorf("text %q: expected no mutation", tt.text)
		}
	}
}

func TestDeclare_PermissionDenied(t *testing.T) {
	h := newHarness()
	h.labels.Forbidden = true

	err := h.svc.Execute(context.Background(), h.invocation("20"), gathering.CmdCan)

	if !errors.Is(err, gathering.ErrBotMissingPermissions) {
		t.Fatalf("Expected ErrBotMissingPermissions, got %v", err)
	}
	if len(h.store.Rows()) != 0 {
		t.Error("Expected no rows after a denied label mutation")
	}
}

func TestWithdraw(t *testing.T) {
	h := newHarness()
	h.run(t, gathering.CmdCan, "20-21", "u1", "u2")

	inv := h.run(t, gathering.CmdDrop, "20", "u1")

	for _, r := range h.store.Rows() {
		if r.UserID == "u1" && r.Slot == 20 {
			t.Error("Expected u1 to be withdrawn from 20")
		}
	}
	if len(h.store.Rows()) != 3 {
		t.Errorf("Expected 3 rows left, got %d", len(h.store.Rows()))
	}

	label, ok := h.labels.ByName("20")
	if !ok {
		t.Fatal("Expected label 20 to be kept")
	}
	members, _ := h.labels.Members(context.Background(), "guild", label.ID)
	if !reflect.DeepEqual(members, []string{"u2"}) {
		t.Errorf("Expected only u2 to hold label 20, got %v", members)
	}

	if inv.Last().Document == nil {
		t.Error("Expected a roster document")
	}
}

func TestWithdrawByTime(t *testing.T) {
	h := newHarness()
	h.run(t, gathering.CmdCan, "20-22", "u1", "u2")

	inv := h.run(t, gathering.CmdOut, "20, 21")

	for _, r := range h.store.Rows() {
		if r.Slot != 22 {
			t.Errorf("Expected only slot 22 rows, got %+v", r)
		}
	}
	if names := h.labels.Names(); !reflect.DeepEqual(names, []string{"22"}) {
		t.Errorf("Expected only label 22 left, got %v", names)
	}
	if got := inv.Last().Content; got != "Removed gathering. (20, 21)" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestWithdrawByTime_NoParticipants(t *testing.T) {
	h := newHarness("5")

	h.run(t, gathering.CmdOut, "5, 6")
	h.run(t, gathering.CmdOut, "5, 6")

	if _, ok := h.labels.ByName("5"); ok {
		t.Error("Expected label 5 to be deleted")
	}
}

func TestClearAll(t *testing.T) {
	h := newHarness("Moderator", "49")
	h.run(t, gathering.CmdCan, "0, 20, 48", "u1")

	inv := h.run(t, gathering.CmdClear, "")

	if len(h.store.Rows()) != 0 {
		t.Errorf("Expected no rows, got %v", h.store.Rows())
	}
	if names := h.labels.Names(); !reflect.DeepEqual(names, []string{"Moderator", "49"}) {
		t.Errorf("Expected only non-slot labels left, got %v", names)
	}

	reply := inv.Last()
	if reply.Document != nil || reply.Content != "Cleared all participation." {
		t.Errorf("Expected plain confirmation, got %+v", reply)
	}

	if len(h.board.Edited) != 1 || len(h.board.Deleted) != 0 {
		t.Errorf("Expected the previous document to be archived in place, edited=%v deleted=%v", h.board.Edited, h.board.Deleted)
	}
	if !gathering.IsArchived(h.board.Posted[0].Document) {
		t.Error("Expected the previous document to be archived")
	}

	err := h.svc.Execute(context.Background(), h.invocation(""), gathering.CmdNow)
	if !errors.Is(err, gathering.ErrNotGathering) {
		t.Errorf("Expected ErrNotGathering after clear, got %v", err)
	}
}

func TestClearAll_DuplicateAndPaddedLabels(t *testing.T) {
	h := newHarness("20", "20", "05", "Moderator")

	h.run(t, gathering.CmdClear, "")

	if names := h.labels.Names(); !reflect.DeepEqual(names, []string{"Moderator"}) {
		t.Errorf("Expected every slot label to be deleted, got %v", names)
	}
}

func TestWithdrawByTime_ExactLabelName(t *testing.T) {
	h := newHarness("020", "20", "20")

	h.run(t, gathering.CmdOut, "20")

	if names := h.labels.Names(); !reflect.DeepEqual(names, []string{"020"}) {
		t.Errorf("Expected only label 020 left, got %v", names)
	}
}

func TestDeclare_IgnoresPaddedLabel(t *testing.T) {
	h := newHarness("020", "20")
	padded, _ := h.labels.ByName("020")
	exact, _ := h.labels.ByName("20")

	h.run(t, gathering.CmdCan, "20", "u1")

	ctx := context.Background()
	if got, _ := h.labels.Members(ctx, "guild", exact.ID); !reflect.DeepEqual(got, []string{"u1"}) {
		t.Errorf("Expected u1 on label 20, got %v", got)
	}
	if got, _ := h.labels.Members(ctx, "guild", padded.ID); len(got) != 0 {
		t.Errorf("Expected label 020 untouched, got %v", got)
	}

	h.run(t, gathering.CmdDrop, "20", "u1")
	if got, _ := h.labels.Members(ctx, "guild", exact.ID); len(got) != 0 {
		t.Errorf("Expected u1 removed from label 20, got %v", got)
	}
}

func TestQuery(t *testing.T) {
	h := newHarness("7")

	inv := h.run(t, gathering.CmdNow, "")

	doc := inv.Last().Document
	if doc == nil || len(doc.Fields) != 1 || doc.Fields[0].Value != "> none" {
		t.Fatalf("Expected placeholder for live label 7, got %+v", doc)
	}
	if h.store.Mutations() != 0 || h.labels.Mutations != 0 {
		t.Error("Expected query not to mutate anything")
	}
}

func TestQuery_KeepsStaleSlots(t *testing.T) {
	h := newHarness()
	h.store.InsertGathers(context.Background(), "guild", []string{"u1"}, models.Confirmed, []int{30})

	inv := h.run(t, gathering.CmdNow, "")

	doc := inv.Last().Document
	if doc == nil || len(doc.Fields) != 1 || doc.Fields[0].Name != "30@5" {
		t.Errorf("Expected stale slot 30 to stay visible, got %+v", doc)
	}
}

func TestPick(t *testing.T) {
	h := newHarness("Team")
	team, _ := h.labels.ByName("Team")
	h.labels.Assign(context.Background(), "guild", "u1", []string{team.ID})
	h.labels.Assign(context.Background(), "guild", "u2", []string{team.ID})
	h.svc.Intn = func(n int) int { return n - 1 }

	inv := h.invocation("")
	inv.Req.LabelID = team.ID
	if err := h.svc.Execute(context.Background(), inv, gathering.CmdPick); err != nil {
		t.Fatalf("pick failed: %v", err)
	}

	if got := inv.Last().Content; got != "<@u2>" {
		t.Errorf("Expected <@u2>, got %q", got)
	}
}

func TestPick_Empty(t *testing.T) {
	h := newHarness("Team")
	team, _ := h.labels.ByName("Team")

	inv := h.invocation("")
	inv.Req.LabelID = team.ID
	err := h.svc.Execute(context.Background(), inv, gathering.CmdPick)

	if !errors.Is(err, gathering.ErrNoMembersAvailable) {
		t.Errorf("Expected ErrNoMembersAvailable, got %v", err)
	}
}

func TestExecute_GuildNotFound(t *testing.T) {
	h := newHarness()
	inv := h.invocation("20")
	inv.Req.GroupID = ""

	if err := h.svc.Execute(context.Background(), inv, gathering.CmdCan); !errors.Is(err, gathering.ErrGuildNotFound) {
		t.Errorf("Expected ErrGuildNotFound, got %v", err)
	}
}

func TestExecute_BusyGroup(t *testing.T) {
	h := newHarness()
	g := gate.NewLocal(1)
	h.svc.Gate = g

	release, err := g.TryAcquire(context.Background(), "guild")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	err = h.svc.Execute(context.Background(), h.invocation("20"), gathering.CmdCan)
	if !errors.Is(err, gathering.ErrCommandInProgress) {
		t.Errorf("Expected ErrCommandInProgress, got %v", err)
	}
	if h.store.Calls != 0 {
		t.Error("Expected a rejected command not to touch the store")
	}

	release()
	h.run(t, gathering.CmdCan, "20")
}

type brokenStore struct {
	*gatheringtest.Store
}

func (brokenStore) AllGathers(context.Context, string) ([]models.Participation, error) {
	return nil, errors.New("connection reset")
}

func TestDispatch_DomainError(t *testing.T) {
	h := newHarness()
	reporter := &gatheringtest.Reporter{}
	h.svc.Reporter = reporter

	inv := h.invocation("99")
	if err := h.svc.Dispatch(context.Background(), inv, gathering.CmdCan); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	reply := inv.Last()
	if !reply.Ephemeral || reply.Content != gathering.ErrTimeOutOfRange.Localize("en-US") {
		t.Errorf("unexpected reply %+v", reply)
	}
	if len(reporter.Incidents) != 0 {
		t.Error("Expected domain errors not to be reported")
	}
}

func TestDispatch_DomainErrorLocalized(t *testing.T) {
	h := newHarness()

	inv := h.invocation("")
	inv.Req.Locale = "ja"
	h.svc.Dispatch(context.Background(), inv, gathering.CmdCan)

	if got := inv.Last().Content; got != "時間が選択されていません" {
		t.Errorf("Expected japanese message, got %q", got)
	}
}

func TestDispatch_UnexpectedError(t *testing.T) {
	h := newHarness()
	h.svc.Store = brokenStore{h.store}
	reporter := &gatheringtest.Reporter{}
	h.svc.Reporter = reporter

	inv := h.invocation("")
	if err := h.svc.Dispatch(context.Background(), inv, gathering.CmdNow); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if len(reporter.Incidents) != 1 {
		t.Fatalf("Expected 1 incident, got %d", len(reporter.Incidents))
	}
	incident := reporter.Incidents[0]
	if incident.Command != gathering.CmdNow || incident.Err == nil {
		t.Errorf("unexpected incident %+v", incident)
	}

	reply := inv.Last()
	if !reply.Ephemeral || !strings.Contains(reply.Content, incident.ID) {
		t.Errorf("Expected generic reply carrying the incident id, got %+v", reply)
	}
	if !strings.HasPrefix(reply.Content, "An unexpected error occurred") {
		t.Errorf("unexpected content %q", reply.Content)
	}
}
