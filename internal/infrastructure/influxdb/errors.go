package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	// The binding treats it as "run without metrics", not as a failure.
	ErrDisabled = errors.New("influxdb: metrics disabled")

	// ErrConnectionFailed wraps ping and health failures during Connect.
	ErrConnectionFailed = errors.New("influxdb: cannot reach server")

	// ErrNotConnected is returned by HealthCheck after Close or before a
	// successful Connect.
	ErrNotConnected = errors.New("influxdb: client closed")
)
