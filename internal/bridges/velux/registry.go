package velux

import (
	"fmt"
	"sync"
)

// Provider supplies item bindings.
//
// ItemNames must return names in a stable order; that order is the refresh
// order. A name may be listed without a config (a malformed binding).
type Provider interface {
	Name() string
	ItemNames() []string
	ItemConfig(itemName string) (ItemConfig, bool)
}

// Registry aggregates providers in registration order.
//
// Thread Safety: All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
}

// NewRegistry returns a registry holding providers in the given order.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{}
	for _, p := range providers {
		r.Add(p)
	}
	return r
}

// Add registers p. A provider with the same name is replaced in place, so
// re-adding keeps its position.
func (r *Registry) Add(p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.providers {
		if existing.Name() == p.Name() {
			r.providers[i] = p
			return
		}
	}
	r.providers = append(r.providers, p)
}

// Remove unregisters the named provider and reports whether it was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.providers {
		if p.Name() == name {
			r.providers = append(r.providers[:i], r.providers[i+1:]...)
			return true
		}
	}
	return false
}

// Providers returns a snapshot of the registered providers.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Lookup returns the config for itemName from the first provider that
// binds it.
func (r *Registry) Lookup(itemName string) (ItemConfig, Provider, bool) {
	for _, p := range r.Providers() {
		if cfg, ok := p.ItemConfig(itemName); ok {
			return cfg, p, true
		}
	}
	return ItemConfig{}, nil, false
}

// ItemCount returns the number of item names across all providers.
func (r *Registry) ItemCount() int {
	n := 0
	for _, p := range r.Providers() {
		n += len(p.ItemNames())
	}
	return n
}

// BoundItem is one row of Registry.Items.
type BoundItem struct {
	Provider string
	Name     string
	Config   ItemConfig
	Valid    bool
}

// Items lists every bound item in refresh order.
func (r *Registry) Items() []BoundItem {
	var out []BoundItem
	for _, p := range r.Providers() {
		for _, name := range p.ItemNames() {
			cfg, ok := p.ItemConfig(name)
			out = append(out, BoundItem{Provider: p.Name(), Name: name, Config: cfg, Valid: ok})
		}
	}
	return out
}

// StaticProvider is an in-memory Provider that keeps insertion order.
type StaticProvider struct {
	name  string
	mu    sync.RWMutex
	order []string
	items map[string]ItemConfig
}

// NewStaticProvider returns an empty provider.
func NewStaticProvider(name string) *StaticProvider {
	return &StaticProvider{
		name:  name,
		items: make(map[string]ItemConfig),
	}
}

// Name returns the provider name.
func (p *StaticProvider) Name() string { return p.name }

// Add binds cfg. Adding the same item name twice fails with ErrDuplicateItem.
func (p *StaticProvider) Add(cfg ItemConfig) error {
	if cfg.ItemName == "" {
		return fmt.Errorf("%w: item name is required", ErrInvalidConfiguration)
	}
	if cfg.Type.IsRefreshable() && cfg.Type.RefreshDivider < 1 {
		return fmt.Errorf("%w: item %s", ErrInvalidDivider, cfg.ItemName)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.items[cfg.ItemName]; exists {
		return fmt.Errorf("%w: %s in provider %s", ErrDuplicateItem, cfg.ItemName, p.name)
	}
	p.items[cfg.ItemName] = cfg
	p.order = append(p.order, cfg.ItemName)
	return nil
}

// Remove unbinds itemName and reports whether it was bound.
func (p *StaticProvider) Remove(itemName string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.items[itemName]; !ok {
		return false
	}
	delete(p.items, itemName)
	for i, n := range p.order {
		if n == itemName {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

// ItemNames returns names in insertion order.
func (p *StaticProvider) ItemNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// ItemConfig returns the binding for itemName.
func (p *StaticProvider) ItemConfig(itemName string) (ItemConfig, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	cfg, ok := p.items[itemName]
	return cfg, ok
}
