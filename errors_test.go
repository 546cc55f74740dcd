package tlform

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	if errors.Is(ErrUnparseable, ErrTargetNotFound) || errors.Is(ErrTargetNotFound, ErrUnparseable) {
		t.Error("sentinel errors should be distinct")
	}
}

func TestIsAbort(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{"nil error", nil, false},
		{"ErrUnparseable", ErrUnparseable, true},
		{"ErrTargetNotFound", ErrTargetNotFound, true},
		{"wrapped", fmt.Errorf("%w: %q", ErrTargetNotFound, "#x"), true},
		{"other error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAbort(tt.err); got != tt.expect {
				t.Errorf("IsAbort(%v) = %v, want %v", tt.err, got, tt.expect)
			}
		})
	}
}

func TestIsTargetNotFound(t *testing.T) {
	if !IsTargetNotFound(fmt.Errorf("wrapped: %w", ErrTargetNotFound)) {
		t.Error("IsTargetNotFound() = false for wrapped error")
	}
	if IsTargetNotFound(ErrUnparseable) {
		t.Error("IsTargetNotFound(ErrUnparseable) = true")
	}
}
