package velux

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/mqtt"
)

// MQTTClient is the subset of the MQTT client used by this package.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Defaults for MQTTHandlerOptions.
const (
	DefaultQueueSize     = 256
	DefaultSweepInterval = 100 * time.Millisecond
)

// MQTTHandlerOptions configures an MQTTHandler.
type MQTTHandlerOptions struct {
	// Client is the MQTT connection. Required.
	Client MQTTClient

	// QueueSize bounds the number of requests waiting to be sent.
	// Default: 256.
	QueueSize int

	// SweepInterval is how often pending requests are checked for
	// timeouts. Default: 100ms.
	SweepInterval time.Duration

	Logger Logger
}

// MQTTHandler is a BridgeHandler that forwards requests to a gateway
// adapter over MQTT.
//
// Requests are queued and published by a worker goroutine, so
// HandleCommandOnChannel never blocks. Each published command is tracked by
// ID until its ResponseMessage arrives or its timeout expires; expired
// commands are resent until the request's retry count is used up.
//
// The gateway password travels in a command only while the adapter may not
// have it: in the cycle forced by a reconfiguration, and on every command
// after a configuration change until one carrying the password has been
// published.
type MQTTHandler struct {
	client        MQTTClient
	logger        Logger
	queue         chan Request
	sweepInterval time.Duration

	mu      sync.Mutex
	pending map[string]*pendingRequest

	// credsVersion is the newest configuration version whose password
	// reached the broker.
	credsVersion uint64

	sent      atomic.Uint64
	responses atomic.Uint64
	timeouts  atomic.Uint64
	dropped   atomic.Uint64

	newID func() string
	now   func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	wg       sync.WaitGroup
	started  atomic.Bool
	stopOnce sync.Once
}

type pendingRequest struct {
	req      Request
	msg      CommandMessage
	deadline time.Time
}

// HandlerStats counts MQTTHandler activity.
type HandlerStats struct {
	Sent      uint64
	Responses uint64
	Timeouts  uint64
	Dropped   uint64
	Pending   int
}

// NewMQTTHandler creates a handler. Call Start before dispatching.
func NewMQTTHandler(opts MQTTHandlerOptions) (*MQTTHandler, error) {
	if opts.Client == nil {
		return nil, errors.New("velux: mqtt client is required")
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	return &MQTTHandler{
		client:        opts.Client,
		logger:        opts.Logger,
		queue:         make(chan Request, opts.QueueSize),
		sweepInterval: opts.SweepInterval,
		pending:       make(map[string]*pendingRequest),
		newID:         uuid.NewString,
		now:           time.Now,
		ctx:           context.Background(),
		done:          make(chan struct{}),
	}, nil
}

// Start subscribes to adapter responses and starts the worker.
func (h *MQTTHandler) Start(ctx context.Context) error {
	if !h.started.CompareAndSwap(false, true) {
		return errors.New("velux: mqtt handler already started")
	}

	h.ctx, h.cancel = context.WithCancel(ctx)

	topic := topics.AllBridgeResponses(Protocol)
	if err := h.client.Subscribe(topic, 1, h.handleResponse); err != nil {
		h.cancel()
		return fmt.Errorf("subscribe to responses: %w", err)
	}
	h.logger.Info("subscribed to responses", "topic", topic)

	h.wg.Add(2)
	go h.worker()
	go h.sweepLoop()
	return nil
}

// Stop stops the worker and drops any pending requests.
func (h *MQTTHandler) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		if h.cancel != nil {
			h.cancel()
		}
		h.wg.Wait()

		if h.started.Load() {
			if err := h.client.Unsubscribe(topics.AllBridgeResponses(Protocol)); err != nil {
				h.logger.Warn("unsubscribe from responses failed", "error", err)
			}
		}

		h.mu.Lock()
		n := len(h.pending)
		clear(h.pending)
		h.mu.Unlock()

		h.logger.Info("mqtt handler stopped", "pending_dropped", n)
	})
}

// HandleCommandOnChannel queues req for publishing. When the queue is full
// the request is dropped and logged.
func (h *MQTTHandler) HandleCommandOnChannel(_ context.Context, req Request) {
	select {
	case <-h.done:
		h.dropped.Add(1)
		h.logger.Warn("request dropped", "item", req.Item, "error", ErrNotRunning)
		return
	default:
	}

	select {
	case h.queue <- req:
	default:
		h.dropped.Add(1)
		h.logger.Warn("request dropped", "item", req.Item, "error", ErrHandlerQueueFull)
	}
}

// Pending returns the number of requests awaiting a response.
func (h *MQTTHandler) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// Stats returns handler counters.
func (h *MQTTHandler) Stats() HandlerStats {
	return HandlerStats{
		Sent:      h.sent.Load(),
		Responses: h.responses.Load(),
		Timeouts:  h.timeouts.Load(),
		Dropped:   h.dropped.Load(),
		Pending:   h.Pending(),
	}
}

func (h *MQTTHandler) worker() {
	defer h.wg.Done()

	for {
		select {
		case <-h.done:
			return
		case <-h.ctx.Done():
			return
		case req := <-h.queue:
			h.send(req)
		}
	}
}

func (h *MQTTHandler) sweepLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-h.ctx.Done():
			return
		case now := <-ticker.C:
			h.sweep(now)
		}
	}
}

// buildCommand converts req to its wire form.
func buildCommand(id string, req Request, now time.Time) CommandMessage {
	s := req.Settings
	msg := CommandMessage{
		ID:            id,
		Timestamp:     now.UTC(),
		Item:          req.Item,
		ItemType:      req.Config.Type.Name,
		Thing:         req.Config.Thing,
		Command:       string(req.Command),
		Refresh:       req.Command.IsRefresh(),
		Attempt:       1,
		TimeoutMsecs:  s.TimeoutMsecs,
		Retries:       s.Retries,
		ConfigVersion: s.Version,
		Bridge: BridgeEndpoint{
			Protocol:      s.Protocol,
			IPAddress:     s.IPAddress,
			TCPPort:       s.TCPPort,
			BulkRetrieval: s.BulkRetrievalEnabled,
		},
	}
	if req.Provider != nil {
		msg.Provider = req.Provider.Name()
	}
	return msg
}

// needsCredentials reports whether a command built from s must carry the
// gateway password.
func (h *MQTTHandler) needsCredentials(s BridgeConfiguration) bool {
	if s.Changed {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return s.Version > h.credsVersion
}

func (h *MQTTHandler) credentialsDelivered(version uint64) {
	h.mu.Lock()
	if version > h.credsVersion {
		h.credsVersion = version
	}
	h.mu.Unlock()
}

// send publishes req and tracks it when it has a timeout.
func (h *MQTTHandler) send(req Request) {
	now := h.now()
	msg := buildCommand(h.newID(), req, now)
	if h.needsCredentials(req.Settings) {
		msg.Bridge.Password = req.Settings.Password
	}

	h.publish(msg)

	if req.Settings.TimeoutMsecs <= 0 {
		return
	}

	h.mu.Lock()
	h.pending[msg.ID] = &pendingRequest{
		req:      req,
		msg:      msg,
		deadline: now.Add(req.Settings.Timeout()),
	}
	h.mu.Unlock()
}

func (h *MQTTHandler) publish(msg CommandMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshalling command failed", "item", msg.Item, "error", err)
		return
	}

	if err := h.client.Publish(CommandTopic(msg.Item), payload, 1, false); err != nil {
		h.logger.Warn("publishing command failed",
			"item", msg.Item,
			"id", msg.ID,
			"attempt", msg.Attempt,
			"error", err)
		return
	}
	h.sent.Add(1)
	if msg.Bridge.Password != "" {
		h.credentialsDelivered(msg.ConfigVersion)
	}
	h.logger.Debug("command forwarded",
		"item", msg.Item,
		"id", msg.ID,
		"refresh", msg.Refresh,
		"attempt", msg.Attempt)
}

// sweep resends or expires requests whose deadline is before now.
func (h *MQTTHandler) sweep(now time.Time) {
	var resend []CommandMessage

	h.mu.Lock()
	for id, p := range h.pending {
		if now.Before(p.deadline) {
			continue
		}
		if p.msg.Attempt <= p.req.Settings.Retries {
			p.msg.Attempt++
			p.msg.Timestamp = now.UTC()
			p.deadline = now.Add(p.req.Settings.Timeout())
			resend = append(resend, p.msg)
			continue
		}

		delete(h.pending, id)
		h.timeouts.Add(1)
		h.logger.Warn("no response from gateway adapter",
			"item", p.req.Item,
			"id", id,
			"attempts", p.msg.Attempt)
	}
	h.mu.Unlock()

	for _, msg := range resend {
		h.publish(msg)
	}
}

// handleResponse processes a ResponseMessage from the adapter.
func (h *MQTTHandler) handleResponse(topic string, payload []byte) error {
	var resp ResponseMessage
	if err := json.Unmarshal(payload, &resp); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if resp.ID == "" {
		resp.ID = mqtt.LastSegment(topic)
	}

	h.mu.Lock()
	p, ok := h.pending[resp.ID]
	delete(h.pending, resp.ID)
	h.mu.Unlock()

	if !ok {
		h.logger.Debug("response for unknown request", "id", resp.ID, "item", resp.Item)
		return nil
	}
	h.responses.Add(1)

	switch resp.Status {
	case ResponseOK:
		if resp.State == "" {
			return nil
		}
		if p.req.Publisher == nil {
			return nil
		}
		if err := p.req.Publisher.PostUpdate(h.ctx, p.req.Item, resp.State); err != nil {
			h.logger.Warn("posting state update failed", "item", p.req.Item, "error", err)
		}
	default:
		h.logger.Warn("gateway adapter reported failure",
			"item", p.req.Item,
			"id", resp.ID,
			"status", string(resp.Status),
			"error", resp.Error)
	}
	return nil
}
