package velux

import (
	"fmt"
	"strconv"
	"strings"
)

// setting assigns one raw value onto a configuration field. It reports
// whether the stored value differs from the previous one.
type setting struct {
	key   string
	apply func(cfg *BridgeConfiguration, raw string) (bool, error)
}

// settings is ordered: Apply stops at the first failing key.
var settings = []setting{
	{KeyProtocol, stringField(func(c *BridgeConfiguration) *string { return &c.Protocol })},
	{KeyIPAddress, stringField(func(c *BridgeConfiguration) *string { return &c.IPAddress })},
	{KeyTCPPort, intField(1, 65535, func(c *BridgeConfiguration) *int { return &c.TCPPort })},
	{KeyPassword, stringField(func(c *BridgeConfiguration) *string { return &c.Password })},
	{KeyTimeoutMsecs, intField(0, -1, func(c *BridgeConfiguration) *int { return &c.TimeoutMsecs })},
	{KeyRetries, intField(0, -1, func(c *BridgeConfiguration) *int { return &c.Retries })},
	{KeyRefreshMsecs, intField(MinRefreshMsecs, -1, func(c *BridgeConfiguration) *int { return &c.RefreshMsecs })},
	{KeyBulkRetrieval, boolField(func(c *BridgeConfiguration) *bool { return &c.BulkRetrievalEnabled })},
}

// ReconcileResult lists the keys Apply assigned.
type ReconcileResult struct {
	// Assigned holds every key whose value was stored, in order.
	Assigned []string

	// Modified is the subset of Assigned whose stored value differs.
	Modified []string
}

// reconcile applies recognised, non-blank keys from raw onto cfg in
// declaration order. On the first invalid value it returns a *ConfigError;
// keys before it stay applied, the failing key and later keys are left
// untouched. Unknown keys are ignored.
func reconcile(cfg *BridgeConfiguration, raw map[string]string) (res ReconcileResult, err error) {
	defer func() {
		if len(res.Modified) > 0 {
			cfg.Version++
		}
	}()

	for _, s := range settings {
		value, ok := raw[s.key]
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}

		modified, applyErr := s.apply(cfg, value)
		if applyErr != nil {
			return res, &ConfigError{
				Key:    s.key,
				Value:  value,
				Reason: applyErr.Error(),
				Err:    applyErr,
			}
		}

		cfg.Changed = true
		res.Assigned = append(res.Assigned, s.key)
		if modified {
			res.Modified = append(res.Modified, s.key)
		}
	}

	return res, nil
}

func stringField(field func(*BridgeConfiguration) *string) func(*BridgeConfiguration, string) (bool, error) {
	return func(cfg *BridgeConfiguration, raw string) (bool, error) {
		p := field(cfg)
		modified := *p != raw
		*p = raw
		return modified, nil
	}
}

// intField parses a decimal integer in [lo, hi]; hi < 0 means unbounded.
func intField(lo, hi int, field func(*BridgeConfiguration) *int) func(*BridgeConfiguration, string) (bool, error) {
	return func(cfg *BridgeConfiguration, raw string) (bool, error) {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return false, fmt.Errorf("not an integer: %q", raw)
		}
		if n < lo {
			return false, fmt.Errorf("%d is below the minimum %d", n, lo)
		}
		if hi >= 0 && n > hi {
			return false, fmt.Errorf("%d is above the maximum %d", n, hi)
		}

		p := field(cfg)
		modified := *p != n
		*p = n
		return modified, nil
	}
}

func boolField(field func(*BridgeConfiguration) *bool) func(*BridgeConfiguration, string) (bool, error) {
	return func(cfg *BridgeConfiguration, raw string) (bool, error) {
		var b bool
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true":
			b = true
		case "false":
			b = false
		default:
			return false, fmt.Errorf("not a boolean: %q", raw)
		}

		p := field(cfg)
		modified := *p != b
		*p = b
		return modified, nil
	}
}
