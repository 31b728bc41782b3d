package velux

import (
	"fmt"
	"strings"
)

// Capability is a set of item capabilities.
type Capability uint8

// Capability flags.
const (
	// CapRefreshable items are polled by the refresh cycle.
	CapRefreshable Capability = 1 << iota

	// CapWritable items accept value commands (positions, limits).
	CapWritable

	// CapExecutable items accept trigger commands (scenes, reload).
	CapExecutable
)

// IsRefreshable reports whether c includes CapRefreshable.
func IsRefreshable(c Capability) bool { return c&CapRefreshable != 0 }

// IsWritable reports whether c includes CapWritable.
func IsWritable(c Capability) bool { return c&CapWritable != 0 }

// IsExecutable reports whether c includes CapExecutable.
func IsExecutable(c Capability) bool { return c&CapExecutable != 0 }

// AcceptsCommands reports whether c permits a non-refresh command.
func AcceptsCommands(c Capability) bool { return IsWritable(c) || IsExecutable(c) }

// String renders the set as "refreshable|writable", or "none".
func (c Capability) String() string {
	var parts []string
	if IsRefreshable(c) {
		parts = append(parts, "refreshable")
	}
	if IsWritable(c) {
		parts = append(parts, "writable")
	}
	if IsExecutable(c) {
		parts = append(parts, "executable")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ItemType describes what an item can do and how often it is polled.
//
// Build values with NewItemType or take them from the catalog; both
// guarantee RefreshDivider >= 1 for refreshable types.
type ItemType struct {
	Name           string
	Capabilities   Capability
	RefreshDivider int
}

// NewItemType validates and returns an item type. The divider is only
// checked when caps includes CapRefreshable.
func NewItemType(name string, caps Capability, divider int) (ItemType, error) {
	if IsRefreshable(caps) && divider < 1 {
		return ItemType{}, fmt.Errorf("%w: %s has divider %d", ErrInvalidDivider, name, divider)
	}
	return ItemType{Name: name, Capabilities: caps, RefreshDivider: divider}, nil
}

// WithDivider returns a copy of t polled every divider cycles.
func (t ItemType) WithDivider(divider int) (ItemType, error) {
	return NewItemType(t.Name, t.Capabilities, divider)
}

// IsRefreshable reports whether the refresh cycle polls this type.
func (t ItemType) IsRefreshable() bool { return IsRefreshable(t.Capabilities) }

// AcceptsCommands reports whether the type is writable or executable.
func (t ItemType) AcceptsCommands() bool { return AcceptsCommands(t.Capabilities) }

// DueAt reports whether an item of this type is refreshed in cycle.
// The divider is never read for non-refreshable types.
func (t ItemType) DueAt(cycle uint64) bool {
	if !t.IsRefreshable() || t.RefreshDivider < 1 {
		return false
	}
	return cycle%uint64(t.RefreshDivider) == 0
}

// ItemConfig binds one item name to its type. Thing identifies the
// gateway-side object (actuator serial or scene name) and may be empty for
// bridge-level items.
type ItemConfig struct {
	ItemName string
	Type     ItemType
	Thing    string
}
