package velux

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
)

func TestNewBinding(t *testing.T) {
	if _, err := NewBinding(Options{}); err == nil {
		t.Error("NewBinding() without handler succeeded")
	}

	b, err := NewBinding(Options{Handler: BridgeHandlerFunc(func(context.Context, Request) {})})
	if err != nil {
		t.Fatalf("NewBinding() error = %v", err)
	}
	if b.Name() != "velux Refresh Service" {
		t.Errorf("Name() = %q", b.Name())
	}
	if b.IsProperlyConfigured() {
		t.Error("IsProperlyConfigured() = true before Apply")
	}
	if b.Configuration() != DefaultBridgeConfiguration() {
		t.Errorf("Configuration() = %+v, want defaults", b.Configuration())
	}
	if b.Registry() == nil {
		t.Error("Registry() = nil")
	}
}

func TestNewBinding_InitialConfig(t *testing.T) {
	cfg := DefaultBridgeConfiguration()
	cfg.IPAddress = "10.1.1.1"

	b, err := NewBinding(Options{
		Handler: BridgeHandlerFunc(func(context.Context, Request) {}),
		Config:  &cfg,
	})
	if err != nil {
		t.Fatalf("NewBinding() error = %v", err)
	}
	if b.Configuration().IPAddress != "10.1.1.1" {
		t.Errorf("IPAddress = %s", b.Configuration().IPAddress)
	}
}

func TestApply_Startup(t *testing.T) {
	tb := newTestBinding(t, newFakeProvider("p").
		add(testItem(t, "A", CapRefreshable, 1)).
		add(testItem(t, "B", CapRefreshable, 3)))

	if err := tb.Apply(context.Background(), map[string]string{}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	s := tb.Status()
	if s.Cycle != 1 {
		t.Errorf("Cycle = %d, want 1", s.Cycle)
	}
	if !s.ProperlyConfigured {
		t.Error("ProperlyConfigured = false")
	}
	if got := tb.handler.items(); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("refreshed %v, want [A]", got)
	}
	if tb.Configuration() != DefaultBridgeConfiguration() {
		t.Errorf("Configuration() = %+v, want defaults", tb.Configuration())
	}
}

func TestApply_ReconfigureMidRun(t *testing.T) {
	tb := newTestBinding(t, newFakeProvider("p").add(testItem(t, "A", CapRefreshable, 1)))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tb.Tick(ctx)
	}
	tb.handler.reset()

	if err := tb.Apply(ctx, map[string]string{KeyTimeoutMsecs: "5000"}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if c := tb.Status().Cycle; c != 6 {
		t.Errorf("Cycle = %d, want 6", c)
	}
	reqs := tb.handler.getRequests()
	if len(reqs) != 1 {
		t.Fatalf("forced cycle dispatched %d requests, want 1", len(reqs))
	}
	if reqs[0].Settings.TimeoutMsecs != 5000 {
		t.Errorf("request timeout = %d, want 5000", reqs[0].Settings.TimeoutMsecs)
	}
	if !reqs[0].Settings.Changed {
		t.Error("request in forced cycle has Changed = false")
	}

	cfg := tb.Configuration()
	if cfg.TimeoutMsecs != 5000 || cfg.Version != 1 {
		t.Errorf("Configuration() = %+v", cfg)
	}
	if cfg.Changed {
		t.Error("Changed still set after the forced cycle")
	}

	tb.handler.reset()
	tb.Tick(ctx)
	if reqs := tb.handler.getRequests(); len(reqs) != 1 || reqs[0].Settings.Changed {
		t.Errorf("later cycle requests = %+v", reqs)
	}
}

func TestApply_InvalidValue(t *testing.T) {
	tb := newTestBinding(t, newFakeProvider("p").add(testItem(t, "A", CapRefreshable, 1)))

	err := tb.Apply(context.Background(), map[string]string{
		KeyIPAddress: "10.0.0.2",
		KeyTCPPort:   "abc",
	})

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Apply() error = %v, want *ConfigError", err)
	}
	if cfgErr.Key != KeyTCPPort {
		t.Errorf("Key = %s, want %s", cfgErr.Key, KeyTCPPort)
	}
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Error("errors.Is(err, ErrInvalidConfiguration) = false")
	}

	cfg := tb.Configuration()
	if cfg.IPAddress != "10.0.0.2" {
		t.Errorf("IPAddress = %s, want applied value", cfg.IPAddress)
	}
	if cfg.TCPPort != DefaultTCPPort {
		t.Errorf("TCPPort = %d, want unchanged", cfg.TCPPort)
	}

	// The binding is still configured and the cycle still ran.
	if !tb.IsProperlyConfigured() {
		t.Error("IsProperlyConfigured() = false after failed Apply")
	}
	if c := tb.Status().Cycle; c != 1 {
		t.Errorf("Cycle = %d, want 1", c)
	}
	if len(tb.handler.getRequests()) != 1 {
		t.Error("forced refresh did not run")
	}
}

func TestApply_PasswordNeverLogged(t *testing.T) {
	tb := newTestBinding(t)

	if err := tb.Apply(context.Background(), map[string]string{KeyPassword: "hunter2-secret"}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if err := tb.Apply(context.Background(), map[string]string{KeyPassword: "0therPass", KeyRetries: "x"}); err == nil {
		t.Fatal("Apply() with invalid retries succeeded")
	}

	out := tb.logger.rendered()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "0therPass") {
		t.Errorf("password leaked into logs:\n%s", out)
	}
	if tb.Configuration().Password != "0therPass" {
		t.Error("password before the failing key was not applied")
	}
}

func TestBinding_Providers(t *testing.T) {
	tb := newTestBinding(t)
	p := newFakeProvider("p").add(testItem(t, "A", CapRefreshable, 1))

	tb.AddProvider(p)
	tb.AllBindingsChanged(p)
	if r := tb.Tick(context.Background()); len(r.Refreshed) != 1 {
		t.Errorf("Refreshed = %v after AddProvider", r.Refreshed)
	}

	tb.RemoveProvider("p")
	tb.RemoveProvider("p")
	if r := tb.Tick(context.Background()); !r.Empty {
		t.Error("cycle not empty after RemoveProvider")
	}
}

func TestBinding_StartStop(t *testing.T) {
	tb := newTestBinding(t, newFakeProvider("p").
		add(testItem(t, "A", CapRefreshable, 1)).
		addMissing("ghost"))
	newControlledTimer(tb.Binding)

	if err := tb.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := tb.Start(context.Background()); err == nil {
		t.Error("second Start() succeeded")
	}
	if tb.logger.count("warn") == 0 {
		t.Error("item without config was not reported on Start")
	}

	tb.Stop()
	tb.Stop()
}

func TestBinding_StopWithoutStart(t *testing.T) {
	tb := newTestBinding(t)
	tb.Stop()
}

func TestBinding_ConcurrentEntryPoints(t *testing.T) {
	const (
		workers = 8
		ops     = 200
	)

	tb := newTestBinding(t, newFakeProvider("p").
		add(testItem(t, "A", CapRefreshable|CapWritable, 1)).
		add(testItem(t, "B", CapRefreshable, 1)).
		add(testItem(t, "C", CapRefreshable, 1)))
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < ops; i++ {
				switch i % 4 {
				case 0:
					tb.Tick(ctx)
				case 1:
					timeout := strconv.Itoa(1000 + w*ops + i)
					if err := tb.Apply(ctx, map[string]string{KeyTimeoutMsecs: timeout}); err != nil {
						t.Errorf("Apply() error = %v", err)
					}
				case 2:
					tb.Dispatch(ctx, "A", "ON")
				case 3:
					tb.Status()
				}
			}
		}(w)
	}
	wg.Wait()

	cycles := workers * ops / 2
	if got := tb.Status().Cycle; got != uint64(cycles) {
		t.Errorf("Cycle = %d, want %d", got, cycles)
	}

	reqs := tb.handler.getRequests()
	if want := cycles*3 + workers*ops/4; len(reqs) != want {
		t.Fatalf("requests = %d, want %d", len(reqs), want)
	}

	// Each cycle dispatches A, B, C back to back with one configuration.
	refreshes := 0
	for i := 0; i < len(reqs); i++ {
		if !reqs[i].Command.IsRefresh() {
			continue
		}
		if i+2 >= len(reqs) {
			t.Fatalf("cycle starting at request %d is cut short", i)
		}
		cycle := reqs[i : i+3]
		for j, want := range []string{"A", "B", "C"} {
			if cycle[j].Item != want || !cycle[j].Command.IsRefresh() {
				t.Fatalf("request %d = %s %q, want refresh of %s", i+j, cycle[j].Item, cycle[j].Command, want)
			}
			if cycle[j].Settings != cycle[0].Settings {
				t.Fatalf("cycle at request %d mixes configurations: %v and %v", i, cycle[0].Settings, cycle[j].Settings)
			}
		}
		refreshes++
		i += 2
	}
	if refreshes != cycles {
		t.Errorf("complete cycles = %d, want %d", refreshes, cycles)
	}
}
