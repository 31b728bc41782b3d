package velux

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StateRecorder stores numeric item states. Implemented by the InfluxDB
// client.
type StateRecorder interface {
	WriteItemState(item string, value float64)
}

// MQTTPublisher is an EventPublisher that publishes retained StateMessages.
// Numeric states are also written to the StateRecorder when one is set.
type MQTTPublisher struct {
	client   MQTTClient
	recorder StateRecorder
	now      func() time.Time
}

// NewMQTTPublisher creates a publisher. recorder may be nil.
func NewMQTTPublisher(client MQTTClient, recorder StateRecorder) (*MQTTPublisher, error) {
	if client == nil {
		return nil, errors.New("velux: mqtt client is required")
	}
	return &MQTTPublisher{client: client, recorder: recorder, now: time.Now}, nil
}

// PostUpdate publishes state for item.
func (p *MQTTPublisher) PostUpdate(_ context.Context, item string, state string) error {
	payload, err := json.Marshal(StateMessage{
		Item:      item,
		State:     state,
		Timestamp: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	if err := p.client.Publish(StateTopic(item), payload, 1, true); err != nil {
		return fmt.Errorf("publishing state for %s: %w", item, err)
	}

	if p.recorder != nil {
		if v, ok := numericState(state); ok {
			p.recorder.WriteItemState(item, v)
		}
	}
	return nil
}

// numericState parses states such as "42", "42.5" or "42%".
func numericState(state string) (float64, bool) {
	s := strings.TrimSuffix(strings.TrimSpace(state), "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
