// Package mqtt provides MQTT client connectivity for the Velux binding.
//
// The broker is the bus between the binding and the gateway adapter that
// speaks KLF-200 on the wire:
//
//	binding ↔ MQTT broker ↔ gateway adapter ↔ KLF-200
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS guarantees
//   - Subscriptions that survive reconnects
//   - A per-client retained status topic with Last Will for offline detection
//
// # Security Considerations
//
//   - Use TLS outside local development (cfg.Broker.TLS=true)
//   - Credentials come from GRAYLOGIC_MQTT_USERNAME / GRAYLOGIC_MQTT_PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllBridgeUpdates("velux"), 1,
//	    func(topic string, payload []byte) error {
//	        item := mqtt.LastSegment(topic)
//	        ...
//	    })
package mqtt
