// Package velux implements the Velux KLF-200 gateway binding for Gray Logic.
//
// The binding does not speak the gateway protocol itself. It decides what to
// poll and when, checks what each item may be sent, keeps the bridge
// connection settings, and hands every request to a BridgeHandler. The
// production handler forwards requests over MQTT to a gateway adapter:
//
//	┌──────────────┐  command   ┌──────────────┐
//	│   Binding    │───────────►│ MQTTHandler  │──► graylogic/command/velux/{item}
//	│ (this pkg)   │            └──────────────┘◄── graylogic/response/velux/{id}
//	└──────┬───────┘                   │
//	       │ PostUpdate                ▼
//	       └──────────────────► MQTTPublisher ──► graylogic/state/velux/{item}
//
// # Refresh Cycle
//
// Binding.Tick runs once per refreshMsecs. Each tick increments a cycle
// counter and sends a refresh to every refreshable item whose type divider
// divides the counter. A divider of 1 polls every cycle, 10 every tenth.
//
//	cycle:      1  2  3  4  5  6
//	divider 1:  ✓  ✓  ✓  ✓  ✓  ✓
//	divider 3:        ✓        ✓
//
// # Commands
//
// Binding.Dispatch forwards a refresh for any bound item, and a value
// command only when the item type is writable or executable. Rejections are
// logged, never returned.
//
// # Configuration
//
// Binding.Apply takes the flat settings map (bridgeProtocol,
// bridgeIPAddress, bridgeTCPPort, bridgePassword, timeoutMsecs, retries,
// refreshMsecs, isBulkRetrievalEnabled) and applies recognised keys in that
// order. The first invalid value stops processing with a *ConfigError.
// Every Apply, valid or not, ends with one refresh cycle.
//
// The bridge password is masked whenever a BridgeConfiguration is printed,
// logged or marshalled.
//
// # Thread Safety
//
// Tick, Dispatch and Apply share one mutex. Handlers are called with it
// held and must not block.
package velux
