package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nerrad567/gray-logic-velux/internal/auth"
	"github.com/nerrad567/gray-logic-velux/internal/bridges/velux"
	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/logging"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// recordingHandler captures requests forwarded by the binding.
type recordingHandler struct {
	mu       sync.Mutex
	requests []velux.Request
	ctxErrs  []error
}

func (h *recordingHandler) HandleCommandOnChannel(ctx context.Context, req velux.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, req)
	h.ctxErrs = append(h.ctxErrs, ctx.Err())
}

func (h *recordingHandler) getCtxErrs() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]error, len(h.ctxErrs))
	copy(out, h.ctxErrs)
	return out
}

func (h *recordingHandler) getRequests() []velux.Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]velux.Request, len(h.requests))
	copy(out, h.requests)
	return out
}

func (h *recordingHandler) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = nil
	h.ctxErrs = nil
}

// nopPublisher accepts and discards state updates.
type nopPublisher struct{}

func (nopPublisher) PostUpdate(context.Context, string, string) error { return nil }

// mockStats implements HandlerStatsProvider.
type mockStats struct{ stats velux.HandlerStats }

func (m mockStats) Stats() velux.HandlerStats { return m.stats }

// mockConn implements ConnectionChecker.
type mockConn struct{ connected bool }

func (m mockConn) IsConnected() bool { return m.connected }

type testEnv struct {
	srv     *Server
	handler http.Handler
	binding *velux.Binding
	bridge  *recordingHandler
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func mustItem(t *testing.T, name, typeName, thing string) velux.ItemConfig {
	t.Helper()
	it, err := velux.LookupItemType(typeName)
	if err != nil {
		t.Fatalf("LookupItemType(%q): %v", typeName, err)
	}
	return velux.ItemConfig{ItemName: name, Type: it, Thing: thing}
}

// testServer creates a Server over a real binding with three items:
// a writable position, a slow firmware item and an executable reload.
func testServer(t *testing.T, withPublisher bool) *testEnv {
	t.Helper()

	provider := velux.NewStaticProvider("file")
	for _, cfg := range []velux.ItemConfig{
		mustItem(t, "Kitchen_Window", "window.position", "56:23:3E:26:0C:1B:00:10"),
		mustItem(t, "Bridge_Firmware", "bridge.firmware", ""),
		mustItem(t, "Bridge_Reload", "bridge.reload", ""),
	} {
		if err := provider.Add(cfg); err != nil {
			t.Fatalf("Add(%s): %v", cfg.ItemName, err)
		}
	}

	bridge := &recordingHandler{}
	opts := velux.Options{
		Registry: velux.NewRegistry(provider),
		Handler:  bridge,
		Logger:   testLogger(),
	}
	if withPublisher {
		opts.Publisher = nopPublisher{}
	}
	binding, err := velux.NewBinding(opts)
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{Secret: testSecret},
		},
		Logger:  testLogger(),
		Binding: binding,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return &testEnv{
		srv:     srv,
		handler: srv.Handler(),
		binding: binding,
		bridge:  bridge,
	}
}

func testToken(t *testing.T, role auth.Role) string {
	t.Helper()
	token, err := auth.GenerateAccessToken("tester", role, testSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return token
}

// do sends a request through the router. An empty role sends no token.
func (e *testEnv) do(t *testing.T, method, path, body string, role auth.Role) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+testToken(t, role))
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, rec.Body.String())
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger succeeded")
	}
	if _, err := New(Deps{Logger: testLogger()}); err == nil {
		t.Error("New() without binding succeeded")
	}
}

func TestHealth(t *testing.T) {
	env := testServer(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "degraded" {
		t.Errorf("status before Apply = %v, want degraded", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("version = %v", body["version"])
	}

	if err := env.binding.Apply(context.Background(), nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/health", "", "")
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status after Apply = %v, want ok", body["status"])
	}
}

func TestRequestID_Generated(t *testing.T) {
	env := testServer(t, true)
	rec := env.do(t, http.MethodGet, "/api/v1/health", "", "")
	if id := rec.Header().Get("X-Request-ID"); len(id) != 2*requestIDBytes {
		t.Errorf("X-Request-ID = %q, want %d hex chars", id, 2*requestIDBytes)
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	env := testServer(t, true)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-id-123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "client-id-123" {
		t.Errorf("X-Request-ID = %q, want client-id-123", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := testServer(t, true)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/velux/status", nil)
	req.Header.Set("Origin", "http://panel.local")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestNotFound(t *testing.T) {
	env := testServer(t, true)
	rec := env.do(t, http.MethodGet, "/api/v1/nope", "", auth.RoleUser)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := testServer(t, true)

	otherSecret, err := auth.GenerateAccessToken("tester", auth.RoleAdmin, "another-secret-key-at-least-32-chars!!", time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"garbage", "Bearer not.a.token", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + otherSecret, http.StatusUnauthorized},
		{"valid", "Bearer " + testToken(t, auth.RoleUser), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/velux/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	env := testServer(t, true)
	past := time.Now().Add(-time.Hour)
	claims := auth.CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "tester",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
		},
		Role: auth.RoleAdmin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/velux/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	var body Error
	decodeBody(t, rec, &body)
	if body.Code != ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", body.Code, ErrCodeUnauthorized)
	}
}

func TestMetrics(t *testing.T) {
	env := testServer(t, true)
	if err := env.binding.Apply(context.Background(), nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var m SystemMetrics
	decodeBody(t, rec, &m)
	if m.Version != "test" {
		t.Errorf("Version = %q", m.Version)
	}
	if m.Runtime.Goroutines < 1 {
		t.Errorf("Goroutines = %d", m.Runtime.Goroutines)
	}
	if m.Binding.Cycle != 1 || !m.Binding.ProperlyConfigured {
		t.Errorf("Binding = %+v, want cycle 1 configured", m.Binding)
	}
	if m.Binding.ItemsBound != 3 {
		t.Errorf("ItemsBound = %d, want 3", m.Binding.ItemsBound)
	}
	if m.Binding.LastRefreshed != 1 {
		t.Errorf("LastRefreshed = %d, want 1", m.Binding.LastRefreshed)
	}
	if m.Handler != nil {
		t.Errorf("Handler = %+v, want nil without a stats provider", m.Handler)
	}
	if m.Database != nil {
		t.Errorf("Database = %+v, want nil without a db", m.Database)
	}
}

func TestMetrics_OptionalSources(t *testing.T) {
	env := testServer(t, true)
	env.srv.handler = mockStats{stats: velux.HandlerStats{Sent: 7, Timeouts: 2, Pending: 1}}
	env.srv.mqtt = mockConn{connected: true}
	h := env.srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))

	var m SystemMetrics
	decodeBody(t, rec, &m)
	if !m.MQTT.Connected {
		t.Error("MQTT.Connected = false")
	}
	if m.Handler == nil || m.Handler.Sent != 7 || m.Handler.Timeouts != 2 || m.Handler.Pending != 1 {
		t.Errorf("Handler = %+v", m.Handler)
	}
}

func TestHealthCheck(t *testing.T) {
	env := testServer(t, true)
	if err := env.srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start succeeded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := env.srv.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() with cancelled context succeeded")
	}

	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() before Start = %v", err)
	}
}
