package gathering

import (
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/arnavshah/warlist-bot/pkg/models"
)

var (
	slotRe      = regexp.MustCompile(`\d+`)
	slotRangeRe = regexp.MustCompile(`(\d+)-(\d+)`)
)

// rangeCeiling bounds how far a range is expanded. A longer range still
// yields values past MaxSlot, so bound checks reject it.
const rangeCeiling = 1000

// ParseSlots extracts every slot named in text, e.g. "19, 20" or "20-24".
// A reversed range such as "24-20" yields nothing. The result is sorted and
// free of duplicates. Bounds are not checked.
func ParseSlots(text string) []int {
	seen := make(map[int]struct{})

	ranges := slotRangeRe.FindAllStringSubmatchIndex(text, -1)
	for _, m := range ranges {
		start, end := atoi(text[m[2]:m[3]]), atoi(text[m[4]:m[5]])
		if start > end {
			continue
		}
		if end > rangeCeiling {
			end = rangeCeiling + 1
		}
		if start > end {
			seen[start] = struct{}{}
			continue
		}
		for slot := start; slot <= end; slot++ {
			seen[slot] = struct{}{}
		}
	}

	for _, m := range slotRe.FindAllStringIndex(text, -1) {
		if inRange(ranges, m[0]) {
			continue
		}
		seen[atoi(text[m[0]:m[1]])] = struct{}{}
	}

	slots := make([]int, 0, len(seen))
	for slot := range seen {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}

// ValidateSlots rejects an empty selection and any slot outside the allowed range
func ValidateSlots(slots []int) error {
	if len(slots) == 0 {
		return ErrTimeNotSelected
	}
	for _, slot := range slots {
		if slot < models.MinSlot || slot > models.MaxSlot {
			return ErrTimeOutOfRange
		}
	}
	return nil
}

// ParseValidSlots parses text and validates the result
func ParseValidSlots(text string) ([]int, error) {
	slots := ParseSlots(text)
	if err := ValidateSlots(slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func inRange(ranges [][]int, pos int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

// atoi maps digit runs too long for int to MaxInt so they fail bound checks
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return math.MaxInt
	}
	return n
}
