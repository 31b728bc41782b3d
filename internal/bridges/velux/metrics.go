package velux

import "github.com/nerrad567/gray-logic-velux/internal/infrastructure/influxdb"

// InfluxMetrics records cycles and dispatches to InfluxDB.
type InfluxMetrics struct {
	client *influxdb.Client
}

// NewInfluxMetrics returns a Metrics backed by client.
func NewInfluxMetrics(client *influxdb.Client) *InfluxMetrics {
	return &InfluxMetrics{client: client}
}

// RecordCycle writes one velux_refresh_cycle point. Empty cycles are not
// recorded.
func (m *InfluxMetrics) RecordCycle(r CycleReport) {
	if r.Empty {
		return
	}
	m.client.WriteRefreshCycle(influxdb.CycleStats{
		Cycle:         r.Cycle,
		Refreshed:     len(r.Refreshed),
		NotDue:        r.NotDue,
		NotRefresh:    r.NotRefreshable,
		Missing:       len(r.Missing),
		Duration:      r.Duration,
		ConfigVersion: r.ConfigVersion,
	})
}

// RecordDispatch writes one velux_dispatch point.
func (m *InfluxMetrics) RecordDispatch(r DispatchResult) {
	m.client.WriteDispatch(r.Item, r.Kind(), string(r.Outcome))
}
