package velux

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/mqtt"
)

// recordingHandler implements BridgeHandler for testing.
type recordingHandler struct {
	mu       sync.Mutex
	requests []Request
}

func (h *recordingHandler) HandleCommandOnChannel(_ context.Context, req Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, req)
}

func (h *recordingHandler) getRequests() []Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Request, len(h.requests))
	copy(out, h.requests)
	return out
}

func (h *recordingHandler) items() []string {
	var out []string
	for _, r := range h.getRequests() {
		out = append(out, r.Item)
	}
	return out
}

func (h *recordingHandler) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = nil
}

type postedUpdate struct {
	item  string
	state string
}

// recordingPublisher implements EventPublisher for testing.
type recordingPublisher struct {
	mu      sync.Mutex
	updates []postedUpdate
	err     error
}

func (p *recordingPublisher) PostUpdate(_ context.Context, item, state string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, postedUpdate{item: item, state: state})
	return p.err
}

func (p *recordingPublisher) getUpdates() []postedUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]postedUpdate, len(p.updates))
	copy(out, p.updates)
	return out
}

// recordingMetrics implements Metrics for testing.
type recordingMetrics struct {
	mu         sync.Mutex
	cycles     []CycleReport
	dispatches []DispatchResult
}

func (m *recordingMetrics) RecordCycle(r CycleReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles = append(m.cycles, r)
}

func (m *recordingMetrics) RecordDispatch(r DispatchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches = append(m.dispatches, r)
}

type logEntry struct {
	level string
	msg   string
	kv    []any
}

// mockLogger implements Logger for testing.
type mockLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *mockLogger) log(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, kv: kv})
}

func (l *mockLogger) Debug(msg string, kv ...any) { l.log("debug", msg, kv) }
func (l *mockLogger) Info(msg string, kv ...any)  { l.log("info", msg, kv) }
func (l *mockLogger) Warn(msg string, kv ...any)  { l.log("warn", msg, kv) }
func (l *mockLogger) Error(msg string, kv ...any) { l.log("error", msg, kv) }

func (l *mockLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

// rendered returns every entry formatted with fmt, for leak checks.
func (l *mockLogger) rendered() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var s string
	for _, e := range l.entries {
		s += fmt.Sprintf("%s %s %v\n", e.level, e.msg, e.kv)
	}
	return s
}

// fakeProvider implements Provider and can list names without a config.
type fakeProvider struct {
	name  string
	order []string
	items map[string]ItemConfig
}

func newFakeProvider(name string) *fakeProvider {
	return &fakeProvider{name: name, items: make(map[string]ItemConfig)}
}

func (p *fakeProvider) add(cfg ItemConfig) *fakeProvider {
	p.order = append(p.order, cfg.ItemName)
	p.items[cfg.ItemName] = cfg
	return p
}

func (p *fakeProvider) addMissing(name string) *fakeProvider {
	p.order = append(p.order, name)
	return p
}

func (p *fakeProvider) Name() string        { return p.name }
func (p *fakeProvider) ItemNames() []string { return p.order }
func (p *fakeProvider) ItemConfig(name string) (ItemConfig, bool) {
	cfg, ok := p.items[name]
	return cfg, ok
}

type mockPublish struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// mockMQTTClient implements MQTTClient for testing.
type mockMQTTClient struct {
	mu           sync.Mutex
	connected    bool
	published    []mockPublish
	handlers     map[string]mqtt.MessageHandler
	unsubscribed []string
	publishErr   error
	subscribeErr error
}

func newMockMQTTClient() *mockMQTTClient {
	return &mockMQTTClient{
		connected: true,
		handlers:  make(map[string]mqtt.MessageHandler),
	}
}

func (m *mockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, mockPublish{topic: topic, payload: payload, qos: qos, retained: retained})
	return nil
}

func (m *mockMQTTClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return m.subscribeErr
	}
	m.handlers[topic] = handler
	return nil
}

func (m *mockMQTTClient) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	m.unsubscribed = append(m.unsubscribed, topic)
	return nil
}

func (m *mockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockMQTTClient) getPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockPublish, len(m.published))
	copy(out, m.published)
	return out
}

func (m *mockMQTTClient) hasHandler(topic string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handlers[topic]
	return ok
}

// simulate delivers payload to the handler subscribed on pattern.
func (m *mockMQTTClient) simulate(pattern, topic string, payload []byte) error {
	m.mu.Lock()
	handler, ok := m.handlers[pattern]
	m.mu.Unlock()
	if !ok {
		return errors.New("no handler for " + pattern)
	}
	return handler(topic, payload)
}

func mustItemType(t *testing.T, name string, caps Capability, divider int) ItemType {
	t.Helper()
	it, err := NewItemType(name, caps, divider)
	if err != nil {
		t.Fatalf("NewItemType(%s) error = %v", name, err)
	}
	return it
}

func testItem(t *testing.T, name string, caps Capability, divider int) ItemConfig {
	t.Helper()
	return ItemConfig{ItemName: name, Type: mustItemType(t, name+".type", caps, divider)}
}

type testBinding struct {
	*Binding
	handler   *recordingHandler
	publisher *recordingPublisher
	metrics   *recordingMetrics
	logger    *mockLogger
}

func newTestBinding(t *testing.T, providers ...Provider) *testBinding {
	t.Helper()

	tb := &testBinding{
		handler:   &recordingHandler{},
		publisher: &recordingPublisher{},
		metrics:   &recordingMetrics{},
		logger:    &mockLogger{},
	}
	b, err := NewBinding(Options{
		Registry:  NewRegistry(providers...),
		Handler:   tb.handler,
		Publisher: tb.publisher,
		Metrics:   tb.metrics,
		Logger:    tb.logger,
	})
	if err != nil {
		t.Fatalf("NewBinding() error = %v", err)
	}
	tb.Binding = b
	return tb
}
