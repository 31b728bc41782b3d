package velux

import (
	"errors"
	"math"
	"testing"
)

func TestCapabilityPredicates(t *testing.T) {
	tests := []struct {
		caps        Capability
		refreshable bool
		writable    bool
		executable  bool
		cmds        bool
	}{
		{0, false, false, false, false},
		{CapRefreshable, true, false, false, false},
		{CapWritable, false, true, false, true},
		{CapExecutable, false, false, true, true},
		{CapRefreshable | CapWritable, true, true, false, true},
		{CapRefreshable | CapWritable | CapExecutable, true, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.caps.String(), func(t *testing.T) {
			if got := IsRefreshable(tt.caps); got != tt.refreshable {
				t.Errorf("IsRefreshable() = %v, want %v", got, tt.refreshable)
			}
			if got := IsWritable(tt.caps); got != tt.writable {
				t.Errorf("IsWritable() = %v, want %v", got, tt.writable)
			}
			if got := IsExecutable(tt.caps); got != tt.executable {
				t.Errorf("IsExecutable() = %v, want %v", got, tt.executable)
			}
			if got := AcceptsCommands(tt.caps); got != tt.cmds {
				t.Errorf("AcceptsCommands() = %v, want %v", got, tt.cmds)
			}
		})
	}
}

func TestCapabilityString(t *testing.T) {
	if got := Capability(0).String(); got != "none" {
		t.Errorf("String() = %q, want none", got)
	}
	if got := (CapRefreshable | CapWritable).String(); got != "refreshable|writable" {
		t.Errorf("String() = %q, want refreshable|writable", got)
	}
}

func TestNewItemType_Divider(t *testing.T) {
	tests := []struct {
		name    string
		caps    Capability
		divider int
		wantErr bool
	}{
		{"refreshable divider 1", CapRefreshable, 1, false},
		{"refreshable divider 0", CapRefreshable, 0, true},
		{"refreshable negative divider", CapRefreshable, -3, true},
		{"executable divider 0", CapExecutable, 0, false},
		{"writable negative divider", CapWritable, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewItemType("x", tt.caps, tt.divider)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDivider) {
					t.Errorf("NewItemType() error = %v, want ErrInvalidDivider", err)
				}
				return
			}
			if err != nil {
				t.Errorf("NewItemType() error = %v", err)
			}
		})
	}
}

func TestItemType_DueAt(t *testing.T) {
	for d := 1; d <= 12; d++ {
		it := mustItemType(t, "x", CapRefreshable, d)
		for cycle := uint64(1); cycle <= 100; cycle++ {
			want := cycle%uint64(d) == 0
			if got := it.DueAt(cycle); got != want {
				t.Fatalf("divider %d cycle %d: DueAt() = %v, want %v", d, cycle, got, want)
			}
		}
	}
}

func TestItemType_DueAtNotRefreshable(t *testing.T) {
	it := ItemType{Name: "scene.action", Capabilities: CapExecutable, RefreshDivider: 0}
	for cycle := uint64(0); cycle < 10; cycle++ {
		if it.DueAt(cycle) {
			t.Fatalf("DueAt(%d) = true for non-refreshable type", cycle)
		}
	}
}

func TestItemType_DueAtWraparound(t *testing.T) {
	it := mustItemType(t, "x", CapRefreshable, 3)

	// MaxUint64 is divisible by 3.
	if !it.DueAt(math.MaxUint64) {
		t.Error("DueAt(MaxUint64) = false, want true")
	}
	// After wrap the counter restarts at 0, which every divider divides.
	if !it.DueAt(0) {
		t.Error("DueAt(0) = false, want true")
	}
	if it.DueAt(1) {
		t.Error("DueAt(1) = true, want false")
	}
}

func TestItemType_WithDivider(t *testing.T) {
	base := mustItemType(t, "actuator.position", CapRefreshable|CapWritable, 1)

	got, err := base.WithDivider(5)
	if err != nil {
		t.Fatalf("WithDivider(5) error = %v", err)
	}
	if got.RefreshDivider != 5 || got.Capabilities != base.Capabilities {
		t.Errorf("WithDivider(5) = %+v", got)
	}
	if base.RefreshDivider != 1 {
		t.Error("WithDivider modified the receiver")
	}

	if _, err := base.WithDivider(0); !errors.Is(err, ErrInvalidDivider) {
		t.Errorf("WithDivider(0) error = %v, want ErrInvalidDivider", err)
	}
}

func TestLookupItemType(t *testing.T) {
	tests := []struct {
		name        string
		wantDivider int
		wantCaps    Capability
	}{
		{"bridge.status", 1, CapRefreshable},
		{"  Bridge.Firmware ", 100, CapRefreshable},
		{"window.position", 1, CapRefreshable | CapWritable},
		{"scene.action", 0, CapExecutable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := LookupItemType(tt.name)
			if err != nil {
				t.Fatalf("LookupItemType() error = %v", err)
			}
			if it.RefreshDivider != tt.wantDivider {
				t.Errorf("RefreshDivider = %d, want %d", it.RefreshDivider, tt.wantDivider)
			}
			if it.Capabilities != tt.wantCaps {
				t.Errorf("Capabilities = %v, want %v", it.Capabilities, tt.wantCaps)
			}
		})
	}

	if _, err := LookupItemType("bridge.toaster"); !errors.Is(err, ErrUnknownItemType) {
		t.Errorf("LookupItemType(unknown) error = %v, want ErrUnknownItemType", err)
	}
}

func TestItemTypes_SortedAndValid(t *testing.T) {
	types := ItemTypes()
	if len(types) == 0 {
		t.Fatal("ItemTypes() is empty")
	}
	for i, it := range types {
		if i > 0 && types[i-1].Name >= it.Name {
			t.Errorf("ItemTypes() not sorted at %d: %s >= %s", i, types[i-1].Name, it.Name)
		}
		if it.IsRefreshable() && it.RefreshDivider < 1 {
			t.Errorf("%s: refreshable with divider %d", it.Name, it.RefreshDivider)
		}
	}
}
