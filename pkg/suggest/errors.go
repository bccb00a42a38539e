package suggest

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for empty terms or prefixes, negative weights and non-positive limits.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownStrategy is returned when no engine matches the requested strategy.
	ErrUnknownStrategy = fmt.Errorf("%w: unknown strategy", ErrInvalidInput)
	// ErrCorrupted marks a broken structural invariant. The engine must not be trusted afterwards.
	ErrCorrupted = errors.New("engine structure corrupted")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func corrupted(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupted, fmt.Sprintf(format, args...))
}

// IsInvalidInput reports whether err was caused by caller input rather than engine state.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
