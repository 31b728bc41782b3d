package velux

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ServiceName is reported by Binding.Name.
const ServiceName = "velux Refresh Service"

// Options configures a Binding.
type Options struct {
	// Registry holds the item providers. A new empty registry is used if nil.
	Registry *Registry

	// Handler performs gateway I/O. Required.
	Handler BridgeHandler

	// Publisher is the event sink. May be set later with SetEventPublisher.
	Publisher EventPublisher

	// Metrics is optional.
	Metrics Metrics

	// Logger is optional.
	Logger Logger

	// Config is the initial bridge configuration. Defaults are used if nil.
	Config *BridgeConfiguration
}

// Binding is the Velux binding runtime. It owns the refresh cycle counter,
// the bridge configuration and the event publisher reference.
//
// Thread Safety: Tick, Dispatch and Apply are serialised by one mutex.
type Binding struct {
	mu                 sync.Mutex
	registry           *Registry
	handler            BridgeHandler
	publisher          EventPublisher
	metrics            Metrics
	logger             Logger
	cfg                BridgeConfiguration
	cycle              uint64
	properlyConfigured bool
	lastReport         CycleReport

	deviceUpdates atomic.Uint64

	// Injected for tests.
	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	wake     chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
	started  atomic.Bool
	stopOnce sync.Once
}

// NewBinding creates a binding. Call Start to begin periodic refresh.
func NewBinding(opts Options) (*Binding, error) {
	if opts.Handler == nil {
		return nil, errors.New("velux: bridge handler is required")
	}

	b := &Binding{
		registry:  opts.Registry,
		handler:   opts.Handler,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		cfg:       DefaultBridgeConfiguration(),
		now:       time.Now,
		after:     time.After,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	if b.registry == nil {
		b.registry = NewRegistry()
	}
	if b.logger == nil {
		b.logger = noopLogger{}
	}
	if opts.Config != nil {
		b.cfg = *opts.Config
	}

	return b, nil
}

// Name returns the service name.
func (b *Binding) Name() string { return ServiceName }

// Registry returns the item registry.
func (b *Binding) Registry() *Registry { return b.registry }

// SetEventPublisher installs the event sink.
func (b *Binding) SetEventPublisher(p EventPublisher) {
	b.mu.Lock()
	b.publisher = p
	b.mu.Unlock()
}

// UnsetEventPublisher removes the event sink. Dispatches become no-ops.
func (b *Binding) UnsetEventPublisher() {
	b.SetEventPublisher(nil)
}

// AddProvider registers a binding provider.
func (b *Binding) AddProvider(p Provider) {
	b.registry.Add(p)
	b.logger.Info("binding provider added", "provider", p.Name(), "items", len(p.ItemNames()))
}

// RemoveProvider unregisters the named provider.
func (b *Binding) RemoveProvider(name string) {
	if b.registry.Remove(name) {
		b.logger.Info("binding provider removed", "provider", name)
	}
}

// AllBindingsChanged is called when a provider reloads all of its items.
// The next cycle picks up the new set, so nothing else happens here.
func (b *Binding) AllBindingsChanged(p Provider) {
	b.logger.Debug("all bindings changed", "provider", p.Name(), "items", len(p.ItemNames()))
}

// IsProperlyConfigured reports whether Apply has run at least once.
func (b *Binding) IsProperlyConfigured() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.properlyConfigured
}

// Configuration returns a copy of the current bridge configuration.
func (b *Binding) Configuration() BridgeConfiguration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

// Status is a point-in-time view of the binding.
type Status struct {
	Cycle              uint64
	ProperlyConfigured bool
	ConfigVersion      uint64
	Items              int
	DeviceUpdates      uint64
	LastCycle          CycleReport
}

// Status returns the binding status.
func (b *Binding) Status() Status {
	b.mu.Lock()
	s := Status{
		Cycle:              b.cycle,
		ProperlyConfigured: b.properlyConfigured,
		ConfigVersion:      b.cfg.Version,
		LastCycle:          b.lastReport,
	}
	b.mu.Unlock()

	s.Items = b.registry.ItemCount()
	s.DeviceUpdates = b.deviceUpdates.Load()
	return s
}

// Apply reconciles settings into the bridge configuration and runs one
// refresh cycle.
//
// Recognised keys are applied in declaration order. The first invalid value
// stops processing and is returned as a *ConfigError; keys before it stay
// applied. In both cases the binding is marked configured and the cycle
// still runs.
func (b *Binding) Apply(ctx context.Context, settings map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.cfg
	res, err := reconcile(&next, settings)
	b.cfg = next
	b.properlyConfigured = true

	if err != nil {
		b.logger.Warn("invalid binding configuration", "error", err)
	}
	b.logger.Info("binding configuration applied",
		"config", b.cfg,
		"assigned", len(res.Assigned),
		"modified", len(res.Modified))

	for _, key := range res.Modified {
		if key == KeyRefreshMsecs {
			b.wakeLoop()
			break
		}
	}

	b.tickLocked(ctx)
	b.cfg.Changed = false

	if err != nil {
		return fmt.Errorf("applying settings: %w", err)
	}
	return nil
}

// Start logs the bound items and starts the refresh loop.
func (b *Binding) Start(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return errors.New("velux: binding already started")
	}

	for _, item := range b.registry.Items() {
		if !item.Valid {
			b.logger.Warn("bound item has no valid config", "item", item.Name, "provider", item.Provider)
			continue
		}
		b.logger.Info("bound item",
			"item", item.Name,
			"type", item.Config.Type.Name,
			"capabilities", item.Config.Type.Capabilities.String(),
			"provider", item.Provider)
	}

	b.wg.Add(1)
	go b.refreshLoop(ctx)

	b.logger.Info("velux binding started",
		"service", ServiceName,
		"items", b.registry.ItemCount(),
		"refresh_interval", b.Configuration().RefreshInterval())
	return nil
}

// Stop stops the refresh loop and waits for it to exit. Safe to call
// multiple times.
func (b *Binding) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.wg.Wait()
		b.logger.Info("velux binding stopped")
	})
}
