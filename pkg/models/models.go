package models

import (
	"fmt"
	"sort"
	"strings"
)

// Slot bounds. Values above 24 stand for next-day hours.
const (
	MinSlot = 0
	MaxSlot = 48
)

// Tier is the participation level a member holds for a slot
type Tier int

const (
	Confirmed Tier = iota
	Tentative
	Substitute
)

// Tiers lists every tier in display order
var Tiers = [...]Tier{Confirmed, Tentative, Substitute}

// Code returns the short code persisted in the gathers table
func (t Tier) Code() string {
	switch t {
	case Confirmed:
		return "c"
	case Tentative:
		return "t"
	case Substitute:
		return "s"
	}
	return ""
}

func (t Tier) String() string {
	switch t {
	case Confirmed:
		return "confirmed"
	case Tentative:
		return "tentative"
	case Substitute:
		return "substitute"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// ParseTier accepts a stored code or a command name
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "can", "confirmed":
		return Confirmed, nil
	case "t", "tentative":
		return Tentative, nil
	case "s", "sub", "substitute":
		return Substitute, nil
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

// Participation is one stored row: a member holding a tier for a slot in a group
type Participation struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
	Tier    Tier   `json:"tier"`
	Slot    int    `json:"slot"`
}

// Roster holds the ordered member ids of one slot, per tier
type Roster struct {
	Confirmed  []string `json:"confirmed"`
	Tentative  []string `json:"tentative"`
	Substitute []string `json:"substitute"`
}

// EmptyRoster returns a roster with non-nil empty tier lists
func EmptyRoster() Roster {
	return Roster{Confirmed: []string{}, Tentative: []string{}, Substitute: []string{}}
}

// Members returns the member ids held at tier t
func (r Roster) Members(t Tier) []string {
	switch t {
	case Confirmed:
		return r.Confirmed
	case Tentative:
		return r.Tentative
	case Substitute:
		return r.Substitute
	}
	return nil
}

// Add appends a member id to the tier list
func (r *Roster) Add(t Tier, userID string) {
	switch t {
	case Confirmed:
		r.Confirmed = append(r.Confirmed, userID)
	case Tentative:
		r.Tentative = append(r.Tentative, userID)
	case Substitute:
		r.Substitute = append(r.Substitute, userID)
	}
}

// Len counts members across all tiers
func (r Roster) Len() int {
	return len(r.Confirmed) + len(r.Tentative) + len(r.Substitute)
}

// Clone copies every tier list so the result shares no backing arrays with r
func (r Roster) Clone() Roster {
	return Roster{
		Confirmed:  append([]string{}, r.Confirmed...),
		Tentative:  append([]string{}, r.Tentative...),
		Substitute: append([]string{}, r.Substitute...),
	}
}

// State maps a slot to its roster
type State map[int]Roster

// Slots returns the slots of s in ascending order
func (s State) Slots() []int {
	slots := make([]int, 0, len(s))
	for slot := range s {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}

// Clone deep-copies s
func (s State) Clone() State {
	out := make(State, len(s))
	for slot, roster := range s {
		out[slot] = roster.Clone()
	}
	return out
}

// Label is a group-scoped role object owned by the chat platform
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Field is one titled entry of a Document
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Document is the platform-neutral rendering of a roster
type Document struct {
	Title  string  `json:"title"`
	Color  int     `json:"color"`
	Author string  `json:"author,omitempty"`
	Fields []Field `json:"fields"`
	Footer string  `json:"footer,omitempty"`
}

// Posted is a Document already displayed in a channel
type Posted struct {
	ID        string   `json:"id"`
	ChannelID string   `json:"channel_id"`
	Document  Document `json:"document"`
}
