package gathering

import (
	"strconv"

	"github.com/arnavshah/warlist-bot/pkg/models"
)

const (
	// MaxTimeSlots caps the slot labels visible at once (one document field each).
	MaxTimeSlots = 25
	// MaxLabels is the platform's per-group label limit.
	MaxLabels = 250
	// FillThreshold is the confirmed roster size of a full match.
	FillThreshold = 6
)

// CheckLimits validates requested slots against the group's current labels
// before anything is mutated. Rules run in order and stop at the first failure:
// slot bounds, concurrent slot labels, total labels.
func CheckLimits(requested []int, labels []models.Label) error {
	if err := ValidateSlots(requested); err != nil {
		return err
	}

	slotNames := make(map[string]struct{})
	for _, l := range labels {
		if _, ok := SlotOf(l.Name); ok {
			slotNames[l.Name] = struct{}{}
		}
	}
	for _, slot := range requested {
		slotNames[strconv.Itoa(slot)] = struct{}{}
	}
	if len(slotNames) > MaxTimeSlots {
		return ErrTooManyTimeSlots
	}

	allNames := make(map[string]struct{}, len(labels)+len(slotNames))
	for _, l := range labels {
		allNames[l.Name] = struct{}{}
	}
	for name := range slotNames {
		allNames[name] = struct{}{}
	}
	if len(allNames) > MaxLabels {
		return ErrTooManyLabels
	}

	return nil
}
