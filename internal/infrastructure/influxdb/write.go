package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the binding.
const (
	MeasurementRefreshCycle = "velux_refresh_cycle"
	MeasurementDispatch     = "velux_dispatch"
	MeasurementItemState    = "velux_item_state"
)

// CycleStats summarises one refresh cycle for WriteRefreshCycle.
type CycleStats struct {
	Cycle         uint64
	Refreshed     int
	NotDue        int
	NotRefresh    int
	Missing       int
	Duration      time.Duration
	ConfigVersion uint64
}

// WriteRefreshCycle records one refresh cycle. Non-blocking.
func (c *Client) WriteRefreshCycle(stats CycleStats) {
	c.WritePoint(MeasurementRefreshCycle,
		nil,
		map[string]interface{}{
			// #nosec G115 -- cycle numbers are informational; wrap is harmless
			"cycle":           int64(stats.Cycle),
			"refreshed":       stats.Refreshed,
			"not_due":         stats.NotDue,
			"not_refreshable": stats.NotRefresh,
			"missing":         stats.Missing,
			"duration_ms":     float64(stats.Duration.Microseconds()) / 1000,
			// #nosec G115 -- see above
			"config_version": int64(stats.ConfigVersion),
		})
}

// WriteDispatch records the outcome of one command dispatch.
//
// Parameters:
//   - item: Item name
//   - kind: "refresh" or "command"
//   - outcome: e.g. "forwarded", "not_permitted", "unknown_item"
func (c *Client) WriteDispatch(item, kind, outcome string) {
	c.WritePoint(MeasurementDispatch,
		map[string]string{
			"item":    item,
			"kind":    kind,
			"outcome": outcome,
		},
		map[string]interface{}{
			"count": 1,
		})
}

// WriteItemState records a numeric item state, such as an actuator position
// in percent.
func (c *Client) WriteItemState(item string, value float64) {
	c.WritePoint(MeasurementItemState,
		map[string]string{
			"item": item,
		},
		map[string]interface{}{
			"value": value,
		})
}

// WritePoint writes a point timestamped now. Non-blocking; a no-op when
// the client is not connected.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
