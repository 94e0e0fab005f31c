package gathering

import (
	"strconv"

	"github.com/arnavshah/warlist-bot/pkg/models"
)

// BuildState folds stored rows into slot -> tier -> members, keeping row order
// within each tier.
func BuildState(records []models.Participation) models.State {
	state := make(models.State)
	for _, rec := range records {
		roster, ok := state[rec.Slot]
		if !ok {
			roster = models.EmptyRoster()
		}
		roster.Add(rec.Tier, rec.UserID)
		state[rec.Slot] = roster
	}
	return state
}

// Reconcile returns a deep copy of state in which every live slot has an
// entry. Slots missing from live are kept: stale rows stay visible until
// they are cleared.
func Reconcile(state models.State, live []int) models.State {
	synced := state.Clone()
	for _, slot := range live {
		if _, ok := synced[slot]; !ok {
			synced[slot] = models.EmptyRoster()
		}
	}
	return synced
}

// SlotOf reports whether a label name is the decimal form of an in-range slot
func SlotOf(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	slot, err := strconv.Atoi(name)
	if err != nil || slot < models.MinSlot || slot > models.MaxSlot {
		return 0, false
	}
	return slot, true
}

// SlotLabels indexes the labels named exactly after a slot, so "020" is not
// a label of slot 20. A slot may carry several labels of the same name.
func SlotLabels(labels []models.Label) map[int][]models.Label {
	out := make(map[int][]models.Label)
	for _, l := range labels {
		slot, ok := SlotOf(l.Name)
		if !ok || l.Name != strconv.Itoa(slot) {
			continue
		}
		out[slot] = append(out[slot], l)
	}
	return out
}

// LiveSlots returns the slots that currently have a label
func LiveSlots(labels []models.Label) []int {
	seen := make(map[int]bool)
	var slots []int
	for _, l := range labels {
		if slot, ok := SlotOf(l.Name); ok && !seen[slot] {
			seen[slot] = true
			slots = append(slots, slot)
		}
	}
	return slots
}
