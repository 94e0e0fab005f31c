package gathering

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseSlots(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{"list", "19, 20", []int{19, 20}},
		{"range", "20-24", []int{20, 21, 22, 23, 24}},
		{"reversed range", "24-20", []int{}},
		{"reversed range with others", "24-20, 18", []int{18}},
		{"no digits", "abc", []int{}},
		{"empty", "", []int{}},
		{"mixed", "18 20-22 21", []int{18, 20, 21, 22}},
		{"duplicates", "5 5 05", []int{5}},
		{"japanese separators", "19時、21時", []int{19, 21}},
		{"out of range kept", "49", []int{49}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSlots(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSlots(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseSlots_Idempotent(t *testing.T) {
	for _, text := range []string{"1-3, 2", "48-0", "x9y10z", "0-48"} {
		a, b := ParseSlots(text), ParseSlots(text)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("ParseSlots(%q) not idempotent: %v vs %v", text, a, b)
		}
		seen := make(map[int]bool)
		for _, slot := range a {
			if seen[slot] {
				t.Errorf("ParseSlots(%q) returned duplicate %d", text, slot)
			}
			seen[slot] = true
		}
	}
}

func TestParseSlots_HugeRangeIsBounded(t *testing.T) {
	got := ParseSlots("0-99999999999999999999")
	if len(got) > rangeCeiling+2 {
		t.Fatalf("Expected range expansion to be bounded, got %d slots", len(got))
	}
	if err := ValidateSlots(got); !errors.Is(err, ErrTimeOutOfRange) {
		t.Errorf("Expected ErrTimeOutOfRange, got %v", err)
	}
}

func TestParseValidSlots(t *testing.T) {
	if _, err := ParseValidSlots("now"); !errors.Is(err, ErrTimeNotSelected) {
		t.Errorf("Expected ErrTimeNotSelected, got %v", err)
	}
	if _, err := ParseValidSlots("47-49"); !errors.Is(err, ErrTimeOutOfRange) {
		t.Errorf("Expected ErrTimeOutOfRange, got %v", err)
	}
	slots, err := ParseValidSlots("0, 48")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(slots, []int{0, 48}) {
		t.Errorf("Expected [0 48], got %v", slots)
	}
}
