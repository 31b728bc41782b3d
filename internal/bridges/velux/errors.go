package velux

import (
	"errors"
	"fmt"
)

// Domain errors for the Velux binding package.
var (
	// ErrInvalidConfiguration matches every *ConfigError via errors.Is.
	ErrInvalidConfiguration = errors.New("velux: invalid configuration")

	// ErrInvalidDivider is returned when a refreshable item type is given a
	// refresh divider below 1.
	ErrInvalidDivider = errors.New("velux: refresh divider must be at least 1")

	// ErrUnknownItemType is returned when an item type name is not in the
	// catalog.
	ErrUnknownItemType = errors.New("velux: unknown item type")

	// ErrItemNotFound is returned when a named item is not bound.
	ErrItemNotFound = errors.New("velux: item not found")

	// ErrDuplicateItem is returned when an item name is bound twice within
	// one provider.
	ErrDuplicateItem = errors.New("velux: duplicate item")

	// ErrHandlerQueueFull is logged when the forwarding handler cannot
	// accept another request.
	ErrHandlerQueueFull = errors.New("velux: handler queue full")

	// ErrNotRunning is returned when an operation needs a started component.
	ErrNotRunning = errors.New("velux: not running")
)

// ConfigError reports a settings value that could not be applied.
// Key is the settings key as supplied by the caller.
type ConfigError struct {
	Key    string
	Value  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("velux: invalid value for %s: %s", e.Key, e.Reason)
}

// Is reports ErrInvalidConfiguration as a match.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
