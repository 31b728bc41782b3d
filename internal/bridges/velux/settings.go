package velux

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// Settings keys accepted by Binding.Apply, in the order they are applied.
const (
	KeyProtocol      = "bridgeProtocol"
	KeyIPAddress     = "bridgeIPAddress"
	KeyTCPPort       = "bridgeTCPPort"
	KeyPassword      = "bridgePassword"
	KeyTimeoutMsecs  = "timeoutMsecs"
	KeyRetries       = "retries"
	KeyRefreshMsecs  = "refreshMsecs"
	KeyBulkRetrieval = "isBulkRetrievalEnabled"
)

// Keys returns the recognised settings keys in application order.
func Keys() []string {
	return []string{
		KeyProtocol,
		KeyIPAddress,
		KeyTCPPort,
		KeyPassword,
		KeyTimeoutMsecs,
		KeyRetries,
		KeyRefreshMsecs,
		KeyBulkRetrieval,
	}
}

// Default bridge configuration.
const (
	DefaultProtocol      = "slip"
	DefaultIPAddress     = "192.168.1.1"
	DefaultTCPPort       = 51200
	DefaultPassword      = "velux123"
	DefaultTimeoutMsecs  = 1000
	DefaultRetries       = 5
	DefaultRefreshMsecs  = 10000
	DefaultBulkRetrieval = true

	// MinRefreshMsecs is the shortest accepted refresh interval.
	MinRefreshMsecs = 100
)

// BridgeConfiguration is the typed form of the binding settings.
//
// Changed is set by every assignment made by Apply and cleared once the
// refresh cycle forced by that Apply has run, so requests dispatched in
// that cycle see it set. Version increases each time Apply alters a value.
type BridgeConfiguration struct {
	Protocol             string
	IPAddress            string
	TCPPort              int
	Password             string
	TimeoutMsecs         int
	Retries              int
	RefreshMsecs         int
	BulkRetrievalEnabled bool

	Changed bool
	Version uint64
}

// DefaultBridgeConfiguration returns the startup configuration.
func DefaultBridgeConfiguration() BridgeConfiguration {
	return BridgeConfiguration{
		Protocol:             DefaultProtocol,
		IPAddress:            DefaultIPAddress,
		TCPPort:              DefaultTCPPort,
		Password:             DefaultPassword,
		TimeoutMsecs:         DefaultTimeoutMsecs,
		Retries:              DefaultRetries,
		RefreshMsecs:         DefaultRefreshMsecs,
		BulkRetrievalEnabled: DefaultBulkRetrieval,
	}
}

// RefreshInterval returns the refresh period, never shorter than
// MinRefreshMsecs.
func (c BridgeConfiguration) RefreshInterval() time.Duration {
	ms := c.RefreshMsecs
	if ms < MinRefreshMsecs {
		ms = MinRefreshMsecs
	}
	return time.Duration(ms) * time.Millisecond
}

// Timeout returns the per-request gateway timeout.
func (c BridgeConfiguration) Timeout() time.Duration {
	return time.Duration(c.TimeoutMsecs) * time.Millisecond
}

// MaskedPassword replaces every character of the password with '*'.
func (c BridgeConfiguration) MaskedPassword() string {
	return strings.Repeat("*", utf8.RuneCountInString(c.Password))
}

// String renders the configuration with the password masked.
func (c BridgeConfiguration) String() string {
	return fmt.Sprintf("%s=%s, %s=%s, %s=%d, %s=%s, %s=%d, %s=%d, %s=%d, %s=%t",
		KeyProtocol, c.Protocol,
		KeyIPAddress, c.IPAddress,
		KeyTCPPort, c.TCPPort,
		KeyPassword, c.MaskedPassword(),
		KeyTimeoutMsecs, c.TimeoutMsecs,
		KeyRetries, c.Retries,
		KeyRefreshMsecs, c.RefreshMsecs,
		KeyBulkRetrieval, c.BulkRetrievalEnabled,
	)
}

// LogValue implements slog.LogValuer with the password masked.
func (c BridgeConfiguration) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String(KeyProtocol, c.Protocol),
		slog.String(KeyIPAddress, c.IPAddress),
		slog.Int(KeyTCPPort, c.TCPPort),
		slog.String(KeyPassword, c.MaskedPassword()),
		slog.Int(KeyTimeoutMsecs, c.TimeoutMsecs),
		slog.Int(KeyRetries, c.Retries),
		slog.Int(KeyRefreshMsecs, c.RefreshMsecs),
		slog.Bool(KeyBulkRetrieval, c.BulkRetrievalEnabled),
		slog.Uint64("version", c.Version),
	)
}

// configurationJSON is the display form. Keys match the settings keys so a
// GET can be edited and PUT back (minus the masked password).
type configurationJSON struct {
	Protocol             string `json:"bridgeProtocol"`
	IPAddress            string `json:"bridgeIPAddress"`
	TCPPort              int    `json:"bridgeTCPPort"`
	Password             string `json:"bridgePassword"`
	TimeoutMsecs         int    `json:"timeoutMsecs"`
	Retries              int    `json:"retries"`
	RefreshMsecs         int    `json:"refreshMsecs"`
	BulkRetrievalEnabled bool   `json:"isBulkRetrievalEnabled"`
	Changed              bool   `json:"changed"`
	Version              uint64 `json:"version"`
}

// MarshalJSON renders the configuration with the password masked.
func (c BridgeConfiguration) MarshalJSON() ([]byte, error) {
	return json.Marshal(configurationJSON{
		Protocol:             c.Protocol,
		IPAddress:            c.IPAddress,
		TCPPort:              c.TCPPort,
		Password:             c.MaskedPassword(),
		TimeoutMsecs:         c.TimeoutMsecs,
		Retries:              c.Retries,
		RefreshMsecs:         c.RefreshMsecs,
		BulkRetrievalEnabled: c.BulkRetrievalEnabled,
		Changed:              c.Changed,
		Version:              c.Version,
	})
}
