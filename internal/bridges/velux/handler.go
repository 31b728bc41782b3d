package velux

import "context"

// Request is one dispatch forwarded to the BridgeHandler.
type Request struct {
	Item     string
	Command  Command
	Config   ItemConfig
	Provider Provider

	// Publisher receives any state the handler reads back. Never nil.
	Publisher EventPublisher

	// Settings is a snapshot of the bridge configuration at dispatch time.
	// Handlers take timeout, retry count and endpoint from it.
	Settings BridgeConfiguration
}

// BridgeHandler performs the gateway I/O for dispatched requests.
//
// HandleCommandOnChannel is called with the binding lock held and must not
// block on device I/O. Success and failure are the handler's concern.
type BridgeHandler interface {
	HandleCommandOnChannel(ctx context.Context, req Request)
}

// BridgeHandlerFunc adapts a function to BridgeHandler.
type BridgeHandlerFunc func(ctx context.Context, req Request)

// HandleCommandOnChannel calls f(ctx, req).
func (f BridgeHandlerFunc) HandleCommandOnChannel(ctx context.Context, req Request) {
	f(ctx, req)
}

// EventPublisher posts item state back to the host.
type EventPublisher interface {
	PostUpdate(ctx context.Context, item string, state string) error
}

// Metrics records cycle and dispatch outcomes. Optional.
type Metrics interface {
	RecordCycle(report CycleReport)
	RecordDispatch(result DispatchResult)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
