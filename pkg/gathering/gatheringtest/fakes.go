// Package gatheringtest provides in-memory collaborators for exercising
// gathering.Service without a database or a chat platform.
package gatheringtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/arnavshah/warlist-bot/pkg/gathering"
	"github.com/arnavshah/warlist-bot/pkg/models"
)

// Store keeps participation rows in insertion order and enforces the
// (group, user, slot) uniqueness of the real table.
type Store struct {
	mu      sync.Mutex
	rows    []models.Participation
	Calls   int
	Inserts int
	Deletes int
}

func (s *Store) InsertGathers(_ context.Context, groupID string, userIDs []string, tier models.Tier, slots []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	s.Inserts++
	for _, user := range userIDs {
		for _, slot := range slots {
			for _, r := range s.rows {
				if r.GroupID == groupID && r.UserID == user && r.Slot == slot {
					return fmt.Errorf("duplicate gather %s/%s/%d", groupID, user, slot)
				}
			}
			s.rows = append(s.rows, models.Participation{GroupID: groupID, UserID: user, Tier: tier, Slot: slot})
		}
	}
	return nil
}

func (s *Store) DeleteGathers(_ context.Context, groupID string, userIDs []string, slots []int) error {
	users := set(userIDs)
	hours := intSet(slots)
	s.remove(func(r models.Participation) bool {
		return r.GroupID == groupID && users[r.UserID] && hours[r.Slot]
	})
	return nil
}

func (s *Store) DeleteGathersBySlots(_ context.Context, groupID string, slots []int) error {
	hours := intSet(slots)
	s.remove(func(r models.Participation) bool {
		return r.GroupID == groupID && hours[r.Slot]
	})
	return nil
}

func (s *Store) ClearGathers(_ context.Context, groupID string) error {
	s.remove(func(r models.Participation) bool { return r.GroupID == groupID })
	return nil
}

func (s *Store) AllGathers(_ context.Context, groupID string) ([]models.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	var out []models.Participation
	for _, r := range s.rows {
		if r.GroupID == groupID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Rows returns a copy of every stored row
func (s *Store) Rows() []models.Participation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Participation(nil), s.rows...)
}

// Mutations counts inserts and deletes
func (s *Store) Mutations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Inserts + s.Deletes
}

func (s *Store) remove(match func(models.Participation) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	s.Deletes++
	kept := s.rows[:0]
	for _, r := range s.rows {
		if !match(r) {
			kept = append(kept, r)
		}
	}
	s.rows = kept
}

// Labels is a single-group role registry. Set Forbidden to make every
// mutation fail the way a platform permission error does.
type Labels struct {
	mu        sync.Mutex
	nextID    int
	labels    []models.Label
	members   map[string]map[string]bool
	Forbidden bool
	Mutations int
}

// NewLabels creates a registry holding the given label names
func NewLabels(names ...string) *Labels {
	l := &Labels{members: make(map[string]map[string]bool)}
	for _, name := range names {
		l.add(name)
	}
	return l
}

func (l *Labels) add(name string) models.Label {
	l.nextID++
	label := models.Label{ID: fmt.Sprintf("role-%d", l.nextID), Name: name}
	l.labels = append(l.labels, label)
	l.members[label.ID] = make(map[string]bool)
	return label
}

func (l *Labels) List(_ context.Context, _ string) ([]models.Label, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Label(nil), l.labels...), nil
}

func (l *Labels) Create(_ context.Context, _ string, name string) (models.Label, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Mutations++
	if l.Forbidden {
		return models.Label{}, fmt.Errorf("create role: %w", gathering.ErrForbidden)
	}
	return l.add(name), nil
}

func (l *Labels) Delete(_ context.Context, _ string, labelID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Mutations++
	if l.Forbidden {
		return fmt.Errorf("delete role: %w", gathering.ErrForbidden)
	}
	for i, label := range l.labels {
		if label.ID == labelID {
			l.labels = append(l.labels[:i], l.labels[i+1:]...)
			delete(l.members, labelID)
			return nil
		}
	}
	return fmt.Errorf("unknown role %s", labelID)
}

func (l *Labels) Assign(_ context.Context, _ string, userID string, labelIDs []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Mutations++
	if l.Forbidden {
		return fmt.Errorf("assign role: %w", gathering.ErrForbidden)
	}
	for _, id := range labelIDs {
		if m, ok := l.members[id]; ok {
			m[userID] = true
		}
	}
	return nil
}

func (l *Labels) Unassign(_ context.Context, _ string, userID string, labelIDs []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Mutations++
	if l.Forbidden {
		return fmt.Errorf("unassign role: %w", gathering.ErrForbidden)
	}
	for _, id := range labelIDs {
		delete(l.members[id], userID)
	}
	return nil
}

func (l *Labels) Members(_ context.Context, _ string, labelID string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for user := range l.members[labelID] {
		out = append(out, user)
	}
	sort.Strings(out)
	return out, nil
}

// ByName returns the label called name
func (l *Labels) ByName(name string) (models.Label, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, label := range l.labels {
		if label.Name == name {
			return label, true
		}
	}
	return models.Label{}, false
}

// Names returns every label name in creation order
func (l *Labels) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, len(l.labels))
	for i, label := range l.labels {
		names[i] = label.Name
	}
	return names
}

// Board is one channel's message history
type Board struct {
	mu      sync.Mutex
	Posted  []models.Posted
	Deleted []string
	Edited  []string
	nextID  int
}

// Post appends doc as the newest message of the channel
func (b *Board) Post(channelID string, doc models.Document) models.Posted {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	p := models.Posted{ID: fmt.Sprintf("msg-%d", b.nextID), ChannelID: channelID, Document: doc}
	b.Posted = append(b.Posted, p)
	return p
}

func (b *Board) Previous(_ context.Context, channelID string) (*models.Posted, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.Posted) - 1; i >= 0; i-- {
		p := b.Posted[i]
		if p.ChannelID == channelID && !gathering.IsArchived(p.Document) {
			return &p, nil
		}
	}
	return nil, nil
}

func (b *Board) Delete(_ context.Context, _ string, messageID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.Posted {
		if p.ID == messageID {
			b.Posted = append(b.Posted[:i], b.Posted[i+1:]...)
			b.Deleted = append(b.Deleted, messageID)
			return nil
		}
	}
	return fmt.Errorf("unknown message %s", messageID)
}

func (b *Board) Edit(_ context.Context, _ string, messageID string, doc models.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.Posted {
		if p.ID == messageID {
			b.Posted[i].Document = doc
			b.Edited = append(b.Edited, messageID)
			return nil
		}
	}
	return fmt.Errorf("unknown message %s", messageID)
}

// Invocation records the replies of one command. Documents it receives are
// posted to Board, as a chat surface would.
type Invocation struct {
	Req      gathering.Request
	Board    *Board
	Deferred bool
	Replies  []gathering.Reply
}

func (i *Invocation) Request() gathering.Request { return i.Req }

func (i *Invocation) Defer(context.Context) error {
	i.Deferred = true
	return nil
}

func (i *Invocation) Respond(_ context.Context, reply gathering.Reply) error {
	i.Replies = append(i.Replies, reply)
	if reply.Document != nil && i.Board != nil {
		i.Board.Post(i.Req.ChannelID, *reply.Document)
	}
	return nil
}

// Last returns the final reply, or a zero Reply
func (i *Invocation) Last() gathering.Reply {
	if len(i.Replies) == 0 {
		return gathering.Reply{}
	}
	return i.Replies[len(i.Replies)-1]
}

// Reporter collects incidents
type Reporter struct {
	mu        sync.Mutex
	Incidents []gathering.Incident
}

func (r *Reporter) Report(_ context.Context, incident gathering.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Incidents = append(r.Incidents, incident)
	return nil
}

func set(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

func intSet(values []int) map[int]bool {
	m := make(map[int]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
