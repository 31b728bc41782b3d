// Package influxdb provides InfluxDB connectivity for the Velux binding.
//
// It wraps the official influxdb-client-go v2 library and records:
//   - one point per refresh cycle (refreshed/skipped counts, duration)
//   - one point per command dispatch (item, kind, outcome)
//   - numeric item state (actuator positions, limits)
//
// InfluxDB is optional. When influxdb.enabled is false, Connect returns
// ErrDisabled and callers run without metrics.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteItemState("kitchen-window", 40)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are batched according to
// batch_size and flush_interval and never block the caller.
package influxdb
