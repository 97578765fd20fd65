package hints_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/paulschiretz/pgl-wp-restore/pkg/hints"
)

func TestHints(t *testing.T) {
	var (
		errSkipped = errors.New("cleanup skipped")
		errOther   = errors.New("unrelated error")
		errHinted  = hints.Wrap(errSkipped)
	)

	t.Run("Wrap nil", func(t *testing.T) {
		if hints.Wrap(nil) != nil {
			t.Error("Wrap(nil) should return nil")
		}
	})

	t.Run("New", func(t *testing.T) {
		err := hints.New("archive kept")
		if err == nil {
			t.Fatal("New should return a non-nil error")
		}
		if err.Error() != "archive kept" {
			t.Errorf("expected error message %q, got %q", "archive kept", err.Error())
		}
		if !hints.IsHint(err) {
			t.Error("New should produce a hint")
		}
	})

	t.Run("IsHint", func(t *testing.T) {
		testCases := []struct {
			name     string
			err      error
			expected bool
		}{
			{"NilError", nil, false},
			{"StandardError", errSkipped, false},
			{"HintedError", errHinted, true},
			{"WrappedHint", fmt.Errorf("step failed: %w", errHinted), true},
			{"WrappedStandardError", fmt.Errorf("step failed: %w", errSkipped), false},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				if got := hints.IsHint(tc.err); got != tc.expected {
					t.Errorf("IsHint() = %v, want %v", got, tc.expected)
				}
			})
		}
	})

	t.Run("Is", func(t *testing.T) {
		if !hints.Is(errHinted, errSkipped) {
			t.Error("Is(hinted, skipped) should be true")
		}
		if hints.Is(errSkipped, errSkipped) {
			t.Error("Is(skipped, skipped) should be false because it is not a hint")
		}
		if hints.Is(errHinted, errOther) {
			t.Error("Is(hinted, other) should be false")
		}
	})
}
