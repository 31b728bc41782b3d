package velux

import (
	"context"
	"strings"
)

// Command is a value sent to an item. The empty command asks the handler
// to read the current value.
type Command string

// RefreshCommand reads the current value of an item.
const RefreshCommand Command = ""

// IsRefresh reports whether c is the refresh command.
func (c Command) IsRefresh() bool { return c == RefreshCommand }

// ParseCommand maps host input to a Command. "REFRESH" in any case is the
// refresh command; anything else is passed through trimmed.
func ParseCommand(raw string) Command {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "REFRESH") {
		return RefreshCommand
	}
	return Command(raw)
}

// Outcome classifies a dispatch.
type Outcome string

// Dispatch outcomes.
const (
	OutcomeForwarded    Outcome = "forwarded"
	OutcomeNoPublisher  Outcome = "no_publisher"
	OutcomeUnknownItem  Outcome = "unknown_item"
	OutcomeNotPermitted Outcome = "not_permitted"
)

// DispatchResult describes what Dispatch did with one request.
type DispatchResult struct {
	Item     string
	Command  Command
	Provider string
	Outcome  Outcome
}

// Forwarded reports whether the request reached the handler.
func (r DispatchResult) Forwarded() bool { return r.Outcome == OutcomeForwarded }

// Kind returns "refresh" or "command".
func (r DispatchResult) Kind() string {
	if r.Command.IsRefresh() {
		return "refresh"
	}
	return "command"
}

// Dispatch validates cmd against the item's capabilities and forwards it to
// the bridge handler. Problems are logged and reported in the result; they
// are never returned as errors.
func (b *Binding) Dispatch(ctx context.Context, itemName string, cmd Command) DispatchResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.publisher == nil {
		return b.dispatchResult(DispatchResult{Item: itemName, Command: cmd, Outcome: OutcomeNoPublisher})
	}

	cfg, provider, ok := b.registry.Lookup(itemName)
	if !ok {
		return b.dispatchResult(DispatchResult{Item: itemName, Command: cmd, Outcome: OutcomeUnknownItem})
	}

	return b.dispatchLocked(ctx, provider, cfg, cmd)
}

// dispatchLocked forwards one request. b.mu must be held.
func (b *Binding) dispatchLocked(ctx context.Context, provider Provider, cfg ItemConfig, cmd Command) DispatchResult {
	res := DispatchResult{
		Item:     cfg.ItemName,
		Command:  cmd,
		Provider: provider.Name(),
	}

	if b.publisher == nil {
		res.Outcome = OutcomeNoPublisher
		return b.dispatchResult(res)
	}

	if !cmd.IsRefresh() && !cfg.Type.AcceptsCommands() {
		res.Outcome = OutcomeNotPermitted
		return b.dispatchResult(res)
	}

	b.handler.HandleCommandOnChannel(ctx, Request{
		Item:      cfg.ItemName,
		Command:   cmd,
		Config:    cfg,
		Provider:  provider,
		Publisher: b.publisher,
		Settings:  b.cfg,
	})

	res.Outcome = OutcomeForwarded
	return b.dispatchResult(res)
}

// dispatchResult logs and records res.
func (b *Binding) dispatchResult(res DispatchResult) DispatchResult {
	switch res.Outcome {
	case OutcomeNoPublisher:
		b.logger.Warn("no event publisher available, dispatch skipped", "item", res.Item)
	case OutcomeUnknownItem:
		b.logger.Warn("dispatch for unbound item ignored", "item", res.Item)
	case OutcomeNotPermitted:
		b.logger.Warn("item is neither writable nor executable, command rejected",
			"item", res.Item, "command", string(res.Command))
	case OutcomeForwarded:
		b.logger.Debug("dispatched", "item", res.Item, "kind", res.Kind(), "provider", res.Provider)
	}

	if b.metrics != nil {
		b.metrics.RecordDispatch(res)
	}
	return res
}

// HandleCommand handles a user command from the host. The raw text is
// parsed with ParseCommand.
func (b *Binding) HandleCommand(ctx context.Context, itemName, raw string) DispatchResult {
	return b.Dispatch(ctx, itemName, ParseCommand(raw))
}

// HandleUpdate accepts a host-side state update for a bound item. Updates
// are logged only.
func (b *Binding) HandleUpdate(itemName, state string) {
	b.logger.Debug("host update received", "item", itemName, "state", state)
}

// OnDeviceUpdate accepts an unsolicited update from the device side.
// Updates are logged and counted; they are not processed further.
func (b *Binding) OnDeviceUpdate(itemName, state string) {
	b.deviceUpdates.Add(1)
	b.logger.Debug("device update received", "item", itemName, "state", state)
}
