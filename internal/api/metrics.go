package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	MQTT          MQTTMetrics      `json:"mqtt"`
	Binding       BindingMetrics   `json:"binding"`
	Handler       *HandlerMetrics  `json:"handler,omitempty"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// BindingMetrics contains refresh scheduler statistics.
type BindingMetrics struct {
	Cycle              uint64 `json:"cycle"`
	ProperlyConfigured bool   `json:"properly_configured"`
	ConfigVersion      uint64 `json:"config_version"`
	ItemsBound         int    `json:"items_bound"`
	DeviceUpdates      uint64 `json:"device_updates"`
	LastRefreshed      int    `json:"last_refreshed"`
	LastDurationMs     int64  `json:"last_duration_ms"`
}

// HandlerMetrics contains bridge handler counters.
type HandlerMetrics struct {
	Sent      uint64 `json:"sent"`
	Responses uint64 `json:"responses"`
	Timeouts  uint64 `json:"timeouts"`
	Dropped   uint64 `json:"dropped"`
	Pending   int    `json:"pending"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	st := s.binding.Status()

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Binding: BindingMetrics{
			Cycle:              st.Cycle,
			ProperlyConfigured: st.ProperlyConfigured,
			ConfigVersion:      st.ConfigVersion,
			ItemsBound:         st.Items,
			DeviceUpdates:      st.DeviceUpdates,
			LastRefreshed:      len(st.LastCycle.Refreshed),
			LastDurationMs:     st.LastCycle.Duration.Milliseconds(),
		},
	}

	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{
			Connected: s.mqtt.IsConnected(),
		}
	}

	if s.handler != nil {
		hs := s.handler.Stats()
		metrics.Handler = &HandlerMetrics{
			Sent:      hs.Sent,
			Responses: hs.Responses,
			Timeouts:  hs.Timeouts,
			Dropped:   hs.Dropped,
			Pending:   hs.Pending,
		}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
