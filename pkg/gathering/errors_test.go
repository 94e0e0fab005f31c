package gathering

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestLocalize(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"ja", "時間が選択されていません"},
		{"en-US", "Time is not selected"},
		{"en-GB", "Time is not selected"},
		{"", "時間が選択されていません"},
		{"not a locale", "時間が選択されていません"},
	}

	for _, tt := range tests {
		if got := ErrTimeNotSelected.Localize(tt.locale); got != tt.want {
			t.Errorf("Localize(%q) = %q, want %q", tt.locale, got, tt.want)
		}
	}
}

func TestDomainErrorWrapping(t *testing.T) {
	err := fmt.Errorf("declare: %w", ErrTooManyLabels)

	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("Expected errors.As to find the domain error")
	}
	if de.Status != http.StatusUnprocessableEntity || de.Code != "too_many_labels" {
		t.Errorf("unexpected error %+v", de)
	}
}

func TestLabelErr(t *testing.T) {
	if labelErr("x", nil) != nil {
		t.Error("Expected nil for nil")
	}

	forbidden := fmt.Errorf("add role: %w", ErrForbidden)
	if err := labelErr("assign labels", forbidden); err != ErrBotMissingPermissions {
		t.Errorf("Expected ErrBotMissingPermissions, got %v", err)
	}

	other := errors.New("boom")
	if err := labelErr("assign labels", other); !errors.Is(err, other) {
		t.Errorf("Expected wrapped error, got %v", err)
	}
}
