package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MadlinksCoding/routelog/internal/config"
	"github.com/MadlinksCoding/routelog/internal/logger"
	"github.com/MadlinksCoding/routelog/internal/model"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{
		Primary: config.Primary{Env: "test"},
		Logging: config.LoggingConfig{Enabled: true, Level: "info"},
		Storage: config.StorageConfig{
			Root:        filepath.Join(base, "primary"),
			Fallback:    filepath.Join(base, "fallback"),
			Retries:     1,
			RotateBytes: 1 << 20,
			TimeoutMS:   2_000,
			RateLimit:   100,
			Descriptors: 4,
		},
		Slack:  config.SlackConfig{TimeoutMS: 1_000, Retries: 1},
		Server: config.ServerConfig{Port: "0"},
	}
	if mutate != nil {
		mutate(cfg)
	}
	routes := model.RouteConfig{
		"app": {Logs: []model.RouteEntry{{Flag: "test", Path: "logs/test.log"}}},
	}
	engine, err := logger.New(cfg, &logger.Options{Routes: routes})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return New(cfg, engine)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echoContentType, "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func TestCreateLogEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/logs", `{"flag":"test","message":"hello"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /logs = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response: %v", err)
	}
	path, _ := body.Data["path"].(string)
	if !strings.HasPrefix(path, "logs/test_") {
		t.Fatalf("written path = %q", path)
	}

	// Recent buffer picked the write up.
	rec = do(t, s, http.MethodGet, "/logs/recent", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "hello") {
		t.Fatalf("GET /logs/recent = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCreateLogRejectsBadRequests(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/logs", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body = %d", rec.Code)
	}
	rec = do(t, s, http.MethodPost, "/logs", `{"flag":"","message":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank flag = %d", rec.Code)
	}
}

func TestCreateLogRateLimited(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.Storage.RateLimit = 1 })

	if rec := do(t, s, http.MethodPost, "/logs", `{"flag":"test","message":"a"}`); rec.Code != http.StatusCreated {
		t.Fatalf("first write = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/logs", `{"flag":"test","message":"b"}`); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second write = %d, want 429", rec.Code)
	}
}

func TestReadLogEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/logs", `{"flag":"test","message":"readable"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("write = %d", rec.Code)
	}
	var body struct {
		Data map[string]any `json:"data"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	path, _ := body.Data["path"].(string)

	rec = do(t, s, http.MethodGet, "/logs/read?path="+path, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "readable") {
		t.Fatalf("GET /logs/read = %d, body %s", rec.Code, rec.Body.String())
	}

	// Traversal is refused before touching the filesystem.
	if rec := do(t, s, http.MethodGet, "/logs/read?path=../etc/passwd", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("traversal read = %d, want 403", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/logs/read?path=logs/absent.log", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("absent file = %d, want 404", rec.Code)
	}
}

func TestBatchEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{"path":"logs/batch.log","events":[{"flag":"test","message":"a"},{"flag":"test","message":"b"}]}`
	rec := do(t, s, http.MethodPost, "/logs/batch", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /logs/batch = %d, body %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, s, http.MethodPost, "/logs/batch", `{"events":[]}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing path = %d, want 400", rec.Code)
	}
}

func TestErrorEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	// An unknown flag records a route-miss event.
	if rec := do(t, s, http.MethodPost, "/logs", `{"flag":"ghost","message":"x"}`); rec.Code != http.StatusCreated {
		t.Fatalf("fallback write = %d", rec.Code)
	}
	rec := do(t, s, http.MethodGet, "/errors", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "no route configured") {
		t.Fatalf("GET /errors = %d, body %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, s, http.MethodDelete, "/errors", ""); rec.Code != http.StatusOK {
		t.Fatalf("DELETE /errors = %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/errors", "")
	if strings.Contains(rec.Body.String(), "no route configured") {
		t.Fatalf("errors survived clear: %s", rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := do(t, s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d", rec.Code)
	}
}
