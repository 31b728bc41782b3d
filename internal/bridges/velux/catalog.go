package velux

import (
	"fmt"
	"sort"
	"strings"
)

const (
	rw = CapRefreshable | CapWritable

	// Dividers for the catalog. Positions change often; network details
	// almost never.
	dividerFast   = 1
	dividerNormal = 10
	dividerSlow   = 100
)

// catalog lists the item types a KLF-200 exposes.
var catalog = map[string]ItemType{}

func init() {
	for _, t := range []struct {
		name    string
		caps    Capability
		divider int
	}{
		{"bridge.status", CapRefreshable, dividerFast},
		{"bridge.reload", CapExecutable, 0},
		{"bridge.detection", CapExecutable, 0},
		{"bridge.check", CapRefreshable, dividerNormal},
		{"bridge.products", CapRefreshable, dividerNormal},
		{"bridge.scenes", CapRefreshable, dividerNormal},
		{"bridge.firmware", CapRefreshable, dividerSlow},
		{"bridge.ipaddress", CapRefreshable, dividerSlow},
		{"bridge.subnetmask", CapRefreshable, dividerSlow},
		{"bridge.defaultgw", CapRefreshable, dividerSlow},
		{"bridge.dhcp", CapRefreshable, dividerSlow},
		{"bridge.wlanssid", CapRefreshable, dividerSlow},
		{"actuator.position", rw, dividerFast},
		{"actuator.state", rw, dividerFast},
		{"actuator.limit.minimum", rw, dividerNormal},
		{"actuator.limit.maximum", rw, dividerNormal},
		{"actuator.serial", CapRefreshable, dividerSlow},
		{"actuator.name", CapRefreshable, dividerSlow},
		{"rollershutter.position", rw, dividerFast},
		{"window.position", rw, dividerFast},
		{"vshutter.position", rw, dividerFast},
		{"scene.action", CapExecutable, 0},
		{"scene.silentmode", CapWritable, 0},
	} {
		it, err := NewItemType(t.name, t.caps, t.divider)
		if err != nil {
			panic(err)
		}
		catalog[t.name] = it
	}
}

// LookupItemType returns the catalog entry for name (case-insensitive).
func LookupItemType(name string) (ItemType, error) {
	it, ok := catalog[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return ItemType{}, fmt.Errorf("%w: %q", ErrUnknownItemType, name)
	}
	return it, nil
}

// ItemTypes returns every catalog entry sorted by name.
func ItemTypes() []ItemType {
	out := make([]ItemType, 0, len(catalog))
	for _, it := range catalog {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
