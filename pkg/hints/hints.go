// Package hints labels "soft failures" that the restore pipeline may ignore.
//
// Several steps can legitimately decline to do work: cleanup when the user
// answers "no" at the gate prompt, or the archive deletion when the user wants
// to keep it. These are not failures that should abort the run or dirty the
// exit code; they are signals that a step was skipped. Producers label such
// errors as hints, and the engine identifies them behaviorally without having
// to import sentinel errors from every step package.
package hints

import "errors"

type hintErr struct {
	err error
}

func (h *hintErr) Error() string {
	if h == nil || h.err == nil {
		return "unknown hint"
	}
	return h.err.Error()
}
func (h *hintErr) IsHint() bool  { return true }
func (h *hintErr) Unwrap() error { return h.err }

// New creates a hint from a string.
func New(msg string) error {
	return &hintErr{err: errors.New(msg)}
}

// Wrap takes an existing error and "promotes" it to a hint.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return &hintErr{err: err}
}

// IsHint checks if any error in the chain behaves like a hint.
func IsHint(err error) bool {
	var h interface{ IsHint() bool }
	return errors.As(err, &h) && h.IsHint()
}

// Is checks if the error is a hint AND matches the target error.
func Is(err, target error) bool {
	return IsHint(err) && errors.Is(err, target)
}
