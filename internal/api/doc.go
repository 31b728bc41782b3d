// Package api implements the HTTP REST API for the Velux binding.
//
// This package provides:
//   - Read endpoints for binding status, configuration and bound items
//   - Item commands and out-of-band refresh cycles
//   - Live reconfiguration of the bridge settings
//   - JWT bearer authentication with role-based permissions
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server is a thin layer over the binding. Every call goes through
// the same entry points the refresh timer and the MQTT listener use, so
// HTTP requests are serialised with refresh cycles:
//
//	HTTP ──► Server ──► Binding.HandleCommand / Tick / Apply ──► BridgeHandler
//
// # Security
//
// Everything below /api/v1 except /health and /metrics requires an
// Authorization: Bearer header carrying an HS256 token signed with
// security.jwt.secret. Tokens are minted with `veluxbinding token`.
// Changing the configuration requires the binding:configure permission.
//
// # Status Codes
//
// Item commands map dispatch outcomes to status codes:
//
//	forwarded      202 Accepted
//	unknown_item   404 Not Found
//	not_permitted  409 Conflict
//	no_publisher   503 Service Unavailable
package api
