package velux

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/mqtt"
)

// Listener feeds MQTT input into a Binding: device updates from
// graylogic/update/velux/+ and live settings from graylogic/config/velux.
type Listener struct {
	client  MQTTClient
	binding *Binding
	logger  Logger
	ctx     context.Context
	topics  []string
}

// NewListener creates a listener for binding.
func NewListener(client MQTTClient, binding *Binding, logger Logger) (*Listener, error) {
	if client == nil {
		return nil, errors.New("velux: mqtt client is required")
	}
	if binding == nil {
		return nil, errors.New("velux: binding is required")
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Listener{client: client, binding: binding, logger: logger, ctx: context.Background()}, nil
}

// Start subscribes to update and config topics. ctx is passed to Apply.
func (l *Listener) Start(ctx context.Context) error {
	l.ctx = ctx

	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{topics.AllBridgeUpdates(Protocol), l.handleUpdate},
		{ConfigTopic(), l.handleConfig},
	}

	for _, s := range subs {
		if err := l.client.Subscribe(s.topic, 1, s.handler); err != nil {
			l.Stop()
			return fmt.Errorf("subscribe to %s: %w", s.topic, err)
		}
		l.topics = append(l.topics, s.topic)
		l.logger.Info("subscribed", "topic", s.topic)
	}
	return nil
}

// Stop unsubscribes from every topic Start subscribed to.
func (l *Listener) Stop() {
	for _, topic := range l.topics {
		if err := l.client.Unsubscribe(topic); err != nil {
			l.logger.Warn("unsubscribe failed", "topic", topic, "error", err)
		}
	}
	l.topics = nil
}

func (l *Listener) handleUpdate(topic string, payload []byte) error {
	var msg UpdateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding device update: %w", err)
	}
	if msg.Item == "" {
		msg.Item = mqtt.LastSegment(topic)
	}
	l.binding.OnDeviceUpdate(msg.Item, msg.State)
	return nil
}

// handleConfig applies a JSON object of settings.
func (l *Listener) handleConfig(_ string, payload []byte) error {
	settings, err := DecodeSettings(payload)
	if err != nil {
		return err
	}

	if err := l.binding.Apply(l.ctx, settings); err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			l.logger.Warn("rejected live configuration", "key", cfgErr.Key, "reason", cfgErr.Reason)
			return nil
		}
		return err
	}
	return nil
}

// DecodeSettings parses a JSON object of settings. Values may be JSON
// strings, numbers or booleans and are returned as strings; nulls are
// dropped.
func DecodeSettings(payload []byte) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}

	settings := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			settings[k] = val
		case float64:
			settings[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			settings[k] = strconv.FormatBool(val)
		case nil:
		default:
			return nil, fmt.Errorf("%w: %s must be a string, number or boolean", ErrInvalidConfiguration, k)
		}
	}
	return settings, nil
}
