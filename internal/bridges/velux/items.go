package velux

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFileProvider is the provider name for items file entries that do
// not name one.
const DefaultFileProvider = "file"

// ItemSpec is one item declaration, as written in the items file or stored
// in the velux_items table.
type ItemSpec struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type" json:"type"`
	Thing    string `yaml:"thing,omitempty" json:"thing,omitempty"`
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty"`

	// Divider overrides the catalog refresh divider.
	Divider *int `yaml:"divider,omitempty" json:"divider,omitempty"`
}

// ToConfig resolves the item type and builds the binding.
func (s ItemSpec) ToConfig() (ItemConfig, error) {
	if strings.TrimSpace(s.Name) == "" {
		return ItemConfig{}, fmt.Errorf("%w: item name is required", ErrInvalidConfiguration)
	}

	t, err := LookupItemType(s.Type)
	if err != nil {
		return ItemConfig{}, fmt.Errorf("item %s: %w", s.Name, err)
	}
	if s.Divider != nil {
		if t, err = t.WithDivider(*s.Divider); err != nil {
			return ItemConfig{}, fmt.Errorf("item %s: %w", s.Name, err)
		}
	}

	return ItemConfig{ItemName: s.Name, Type: t, Thing: s.Thing}, nil
}

// ItemsFile is the YAML document listing bound items.
//
//	items:
//	  - name: kitchen-window
//	    type: window.position
//	    thing: "56:23:3E:26:0C:2A:00:01"
//	  - name: gateway-status
//	    type: bridge.status
type ItemsFile struct {
	Items []ItemSpec `yaml:"items"`
}

// LoadItemsFile reads and parses an items file. Entries are not resolved;
// use BuildProviders for that.
func LoadItemsFile(path string) (*ItemsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading items file: %w", err)
	}

	var f ItemsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing items file: %w", err)
	}
	for i := range f.Items {
		if f.Items[i].Provider == "" {
			f.Items[i].Provider = DefaultFileProvider
		}
	}
	return &f, nil
}

// BuildProviders groups the file's items by provider, in order of first
// appearance. Any invalid entry fails the whole file, as does an entry
// naming DefaultSQLiteProvider, which belongs to the velux_items table.
func (f *ItemsFile) BuildProviders() ([]*StaticProvider, error) {
	var providers []*StaticProvider
	byName := make(map[string]*StaticProvider)

	for _, spec := range f.Items {
		cfg, err := spec.ToConfig()
		if err != nil {
			return nil, err
		}

		name := spec.Provider
		if name == "" {
			name = DefaultFileProvider
		}
		if name == DefaultSQLiteProvider {
			return nil, fmt.Errorf("%w: item %s: provider name %q is reserved for stored items",
				ErrInvalidConfiguration, spec.Name, name)
		}
		p, ok := byName[name]
		if !ok {
			p = NewStaticProvider(name)
			byName[name] = p
			providers = append(providers, p)
		}
		if err := p.Add(cfg); err != nil {
			return nil, err
		}
	}
	return providers, nil
}
