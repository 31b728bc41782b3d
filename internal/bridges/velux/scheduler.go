package velux

import (
	"context"
	"time"
)

// CycleReport summarises one refresh cycle.
type CycleReport struct {
	Cycle         uint64
	ConfigVersion uint64

	// Refreshed lists item names in dispatch order.
	Refreshed []string

	NotDue         int
	NotRefreshable int

	// Missing lists item names a provider returned without a config.
	Missing []string

	// Empty is set when no provider or no item was registered.
	Empty bool

	Started  time.Time
	Duration time.Duration
}

// Tick runs one refresh cycle. Calls are serialised with Dispatch and Apply.
func (b *Binding) Tick(ctx context.Context) CycleReport {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.tickLocked(ctx)
}

// tickLocked runs one refresh cycle. b.mu must be held.
func (b *Binding) tickLocked(ctx context.Context) CycleReport {
	b.cycle++
	report := CycleReport{Cycle: b.cycle, ConfigVersion: b.cfg.Version, Started: b.now()}

	providers := b.registry.Providers()
	if len(providers) == 0 || b.registry.ItemCount() == 0 {
		b.logger.Debug("no items bound, refresh cycle skipped", "cycle", report.Cycle)
		report.Empty = true
		return b.finishCycle(report)
	}

	for _, provider := range providers {
		for _, name := range provider.ItemNames() {
			cfg, ok := provider.ItemConfig(name)
			if !ok {
				b.logger.Debug("item has no binding config, skipped",
					"item", name, "provider", provider.Name())
				report.Missing = append(report.Missing, name)
				continue
			}
			if !cfg.Type.IsRefreshable() {
				report.NotRefreshable++
				continue
			}
			if !cfg.Type.DueAt(report.Cycle) {
				report.NotDue++
				continue
			}

			if res := b.dispatchLocked(ctx, provider, cfg, RefreshCommand); res.Forwarded() {
				report.Refreshed = append(report.Refreshed, cfg.ItemName)
			}
		}
	}

	return b.finishCycle(report)
}

func (b *Binding) finishCycle(report CycleReport) CycleReport {
	report.Duration = b.now().Sub(report.Started)
	b.lastReport = report

	if !report.Empty {
		b.logger.Debug("refresh cycle complete",
			"cycle", report.Cycle,
			"refreshed", len(report.Refreshed),
			"not_due", report.NotDue,
			"not_refreshable", report.NotRefreshable,
			"missing", len(report.Missing),
			"duration", report.Duration)
	}

	if b.metrics != nil {
		b.metrics.RecordCycle(report)
	}
	return report
}

// refreshLoop calls Tick every RefreshMsecs. The interval is re-read before
// each wait; a reconfiguration of refreshMsecs restarts the current wait.
// Ticks are skipped until the binding has been configured once.
func (b *Binding) refreshLoop(ctx context.Context) {
	defer b.wg.Done()

	for {
		interval := b.refreshInterval()

		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-b.wake:
			continue
		case <-b.after(interval):
		}

		if !b.IsProperlyConfigured() {
			b.logger.Debug("binding not configured yet, refresh skipped")
			continue
		}
		b.Tick(ctx)
	}
}

func (b *Binding) refreshInterval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg.RefreshInterval()
}

// wakeLoop interrupts the current wait of refreshLoop. Never blocks.
func (b *Binding) wakeLoop() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}
