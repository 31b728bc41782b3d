package velux

import (
	"time"

	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/mqtt"
)

// Protocol is the protocol segment of every velux MQTT topic.
const Protocol = "velux"

var topics mqtt.Topics

// CommandTopic returns graylogic/command/velux/{item}.
func CommandTopic(item string) string { return topics.BridgeCommand(Protocol, item) }

// ResponseTopic returns graylogic/response/velux/{requestID}.
func ResponseTopic(requestID string) string { return topics.BridgeResponse(Protocol, requestID) }

// StateTopic returns graylogic/state/velux/{item}.
func StateTopic(item string) string { return topics.BridgeState(Protocol, item) }

// UpdateTopic returns graylogic/update/velux/{item}.
func UpdateTopic(item string) string { return topics.BridgeUpdate(Protocol, item) }

// ConfigTopic returns graylogic/config/velux.
func ConfigTopic() string { return topics.BridgeConfig(Protocol) }

// HealthTopic returns graylogic/health/velux.
func HealthTopic() string { return topics.BridgeHealth(Protocol) }

// CommandMessage is forwarded to the gateway adapter for each dispatch.
// Topic: graylogic/command/velux/{item}
type CommandMessage struct {
	// ID correlates the adapter's ResponseMessage.
	ID string `json:"id"`

	Timestamp time.Time `json:"timestamp"`

	Item     string `json:"item"`
	ItemType string `json:"item_type"`
	Thing    string `json:"thing,omitempty"`
	Provider string `json:"provider"`

	// Command is empty for a refresh.
	Command string `json:"command,omitempty"`
	Refresh bool   `json:"refresh"`

	// Attempt starts at 1 and increases on every resend.
	Attempt      int `json:"attempt"`
	TimeoutMsecs int `json:"timeout_msecs"`
	Retries      int `json:"retries"`

	Bridge BridgeEndpoint `json:"bridge"`

	// ConfigVersion is the BridgeConfiguration version the request was
	// built from.
	ConfigVersion uint64 `json:"config_version"`
}

// BridgeEndpoint tells the adapter how to reach the gateway.
type BridgeEndpoint struct {
	Protocol      string `json:"protocol"`
	IPAddress     string `json:"ip_address"`
	TCPPort       int    `json:"tcp_port"`
	BulkRetrieval bool   `json:"bulk_retrieval"`

	// Password is set until a command carrying the current configuration
	// version has been published.
	Password string `json:"password,omitempty"`
}

// ResponseStatus is the adapter's verdict on a forwarded command.
type ResponseStatus string

// Response statuses.
const (
	ResponseOK      ResponseStatus = "ok"
	ResponseFailed  ResponseStatus = "failed"
	ResponseTimeout ResponseStatus = "timeout"
)

// ResponseMessage answers a CommandMessage.
// Topic: graylogic/response/velux/{id}
type ResponseMessage struct {
	ID     string         `json:"id"`
	Item   string         `json:"item"`
	Status ResponseStatus `json:"status"`

	// State is the value read back, if any.
	State string `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
}

// StateMessage carries an item state to the host.
// Topic: graylogic/state/velux/{item}
type StateMessage struct {
	Item      string    `json:"item"`
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// UpdateMessage is an unsolicited device-side update.
// Topic: graylogic/update/velux/{item}
type UpdateMessage struct {
	Item  string `json:"item,omitempty"`
	State string `json:"state"`
}

// HealthStatus represents the binding's health.
type HealthStatus string

// Health statuses.
const (
	HealthStarting HealthStatus = "starting"
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports the binding's status.
// Topic: graylogic/health/velux (retained)
type HealthMessage struct {
	Bridge        string       `json:"bridge"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`

	Cycle              uint64 `json:"cycle"`
	ProperlyConfigured bool   `json:"properly_configured"`
	ConfigVersion      uint64 `json:"config_version"`
	ItemsBound         int    `json:"items_bound"`
	PendingRequests    int    `json:"pending_requests"`

	Reason string `json:"reason,omitempty"`
}
