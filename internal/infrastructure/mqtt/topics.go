package mqtt

import "fmt"

// Topic prefixes.
//
// Bridge topics use the flat scheme: graylogic/{category}/{protocol}/{address}
// where address is an item name, a request ID, or absent.
const (
	// TopicPrefixBridge is the base for all bridge topics.
	TopicPrefixBridge = "graylogic"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"
)

// Topics provides builders for the MQTT topics the binding publishes to and
// subscribes on.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.BridgeState("velux", "kitchen-window")
//	// Returns: "graylogic/state/velux/kitchen-window"
type Topics struct{}

// BridgeState returns the topic for item state published by a bridge.
//
// Example: graylogic/state/velux/kitchen-window
func (Topics) BridgeState(protocol, item string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, item)
}

// BridgeCommand returns the topic for commands forwarded to a gateway
// adapter.
//
// Example: graylogic/command/velux/kitchen-window
func (Topics) BridgeCommand(protocol, item string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, protocol, item)
}

// BridgeResponse returns the topic a gateway adapter answers a forwarded
// command on.
//
// Example: graylogic/response/velux/9b2c4f1e-...
func (Topics) BridgeResponse(protocol, requestID string) string {
	return fmt.Sprintf("%s/response/%s/%s", TopicPrefixBridge, protocol, requestID)
}

// BridgeUpdate returns the topic for unsolicited device-side updates.
//
// Example: graylogic/update/velux/kitchen-window
func (Topics) BridgeUpdate(protocol, item string) string {
	return fmt.Sprintf("%s/update/%s/%s", TopicPrefixBridge, protocol, item)
}

// BridgeConfig returns the topic for live configuration of a bridge.
//
// Example: graylogic/config/velux
func (Topics) BridgeConfig(protocol string) string {
	return fmt.Sprintf("%s/config/%s", TopicPrefixBridge, protocol)
}

// BridgeHealth returns the topic for bridge health status.
//
// Example: graylogic/health/velux
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefixBridge, protocol)
}

// ServiceStatus returns the retained online/offline topic for one client.
// It also carries the Last Will.
//
// Example: graylogic/system/status/graylogic-velux
func (Topics) ServiceStatus(clientID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefixSystem, clientID)
}

// AllBridgeResponses returns a pattern matching every response for one
// protocol.
//
// Pattern: graylogic/response/velux/+
func (Topics) AllBridgeResponses(protocol string) string {
	return fmt.Sprintf("%s/response/%s/+", TopicPrefixBridge, protocol)
}

// AllBridgeUpdates returns a pattern matching every device update for one
// protocol.
//
// Pattern: graylogic/update/velux/+
func (Topics) AllBridgeUpdates(protocol string) string {
	return fmt.Sprintf("%s/update/%s/+", TopicPrefixBridge, protocol)
}

// LastSegment returns the final level of a topic: the item name or request
// ID of a flat bridge topic.
func LastSegment(topic string) string {
	for i := len(topic) - 1; i >= 0; i-- {
		if topic[i] == '/' {
			return topic[i+1:]
		}
	}
	return topic
}
