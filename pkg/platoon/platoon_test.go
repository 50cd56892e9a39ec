package platoon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	path      string
	apiKey    string
	userAgent string
	body      []byte
}

// fakeService records requests and answers the handshake.
type fakeService struct {
	mu       sync.Mutex
	requests []request
	initBody string
	status   int
}

func (s *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, request{
		path:      r.URL.Path,
		apiKey:    r.Header.Get("X-API-KEY"),
		userAgent: r.Header.Get("User-Agent"),
		body:      body,
	})
	initBody, status := s.initBody, s.status
	s.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if r.URL.Path == "/api/init" {
		_, _ = io.WriteString(w, initBody)
	}
}

func (s *fakeService) requestsTo(path string) []request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []request
	for _, r := range s.requests {
		if r.path == path {
			out = append(out, r)
		}
	}
	return out
}

func newService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	svc := &fakeService{initBody: `{"session_id":"sess-1","flags":{"test":{"payload":5},"bare":{}}}`}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)
	return svc, srv
}

func testConfig(baseURL string) Config {
	return Config{
		AccessToken: "token-1",
		UserID:      "user-1",
		BaseURL:     baseURL,
		AppVersion:  "3.2.1",
	}
}

func waitReady(t *testing.T, c *Client) {
	t.Helper()
	ready := make(chan struct{})
	c.StartSession(func() { close(ready) })
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("session not ready")
	}
}

func decodeNames(t *testing.T, body []byte) []string {
	t.Helper()
	var events []struct {
		UserID    string `json:"user_id"`
		SessionID string `json:"session_id"`
		Event     string `json:"event"`
	}
	require.NoError(t, json.Unmarshal(body, &events))
	names := make([]string, len(events))
	for i, e := range events {
		assert.Equal(t, "user-1", e.UserID)
		assert.Equal(t, "sess-1", e.SessionID)
		names[i] = e.Event
	}
	return names
}

func TestClient_EndToEnd(t *testing.T) {
	svc, srv := newService(t)

	c, err := New(testConfig(srv.URL + "/"))
	require.NoError(t, err)

	c.EnableFlagRetrieval()
	waitReady(t, c)

	assert.True(t, c.IsReady())
	assert.Equal(t, StateReady, c.ReadyState())
	assert.Equal(t, "sess-1", c.SessionID())
	assert.True(t, c.IsFlagActive("test"))
	assert.True(t, c.IsFlagActive("bare"))
	assert.False(t, c.IsFlagActive("test2"))
	assert.ElementsMatch(t, []string{"test", "bare"}, c.Flags())

	v, ok := c.FlagPayload("test")
	require.True(t, ok)
	assert.Equal(t, float64(5), v)
	_, ok = c.FlagPayload("bare")
	assert.False(t, ok)

	c.AddEvent("start", nil)
	c.AddEvent("score", map[string]any{"points": 10})
	assert.Equal(t, 2, c.BufferedEvents())

	require.NoError(t, c.Close())

	inits := svc.requestsTo("/api/init")
	require.Len(t, inits, 1)
	assert.Equal(t, "token-1", inits[0].apiKey)
	assert.Equal(t, UserAgent, inits[0].userAgent)

	var initReq struct {
		UserID       string         `json:"user_id"`
		Payload      map[string]any `json:"payload"`
		ProcessFlags bool           `json:"process_flags"`
	}
	require.NoError(t, json.Unmarshal(inits[0].body, &initReq))
	assert.Equal(t, "user-1", initReq.UserID)
	assert.True(t, initReq.ProcessFlags)
	assert.Equal(t, "3.2.1", initReq.Payload["version"])
	assert.Equal(t, "go "+Version, initReq.Payload["sdk"])

	ingests := svc.requestsTo("/api/ingest")
	require.Len(t, ingests, 1)
	assert.Equal(t, []string{"start", "score", SessionEndEvent}, decodeNames(t, ingests[0].body))

	assert.ErrorIs(t, c.Close(), ErrClosed)
}

func TestClient_Disabled(t *testing.T) {
	svc, srv := newService(t)
	cfg := testConfig(srv.URL)
	cfg.Disabled = true

	c, err := New(cfg)
	require.NoError(t, err)

	c.StartSession(func() { t.Error("ready callback on a disabled client") })
	c.AddEvent("ignored", nil)
	require.NoError(t, c.Close())

	assert.False(t, c.IsActive())
	assert.Empty(t, svc.requestsTo("/api/init"))
	assert.Empty(t, svc.requestsTo("/api/ingest"))
}

type recordingHandler struct {
	BaseEventHandler

	mu          sync.Mutex
	activations []ActivationChangeEvent
	failures    []SendFailureEvent
	dropped     []EventDroppedEvent
	batches     []BatchSentEvent
}

func (h *recordingHandler) OnActivationChange(e ActivationChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.activations = append(h.activations, e)
}

func (h *recordingHandler) OnSendFailure(e SendFailureEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = append(h.failures, e)
}

func (h *recordingHandler) OnEventDropped(e EventDroppedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropped = append(h.dropped, e)
}

func (h *recordingHandler) OnBatchSent(e BatchSentEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.batches = append(h.batches, e)
}

func (h *recordingHandler) snapshot() ([]ActivationChangeEvent, []SendFailureEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ActivationChangeEvent(nil), h.activations...), append([]SendFailureEvent(nil), h.failures...)
}

func TestClient_ConnectionFailureDisables(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	handler := &recordingHandler{}
	c, err := New(testConfig(url), WithEventHandler(handler))
	require.NoError(t, err)

	c.StartSession(nil)

	require.Eventually(t, func() bool { return !c.IsActive() }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, StatePending, c.ReadyState())

	activations, failures := handler.snapshot()
	require.Len(t, activations, 2)
	assert.Equal(t, "created", activations[0].Reason)
	assert.False(t, activations[1].Active)
	require.Len(t, failures, 1)
	assert.Equal(t, "/api/init", failures[0].Path)
	assert.Equal(t, OutcomeTransportFailure, failures[0].Kind)

	require.NoError(t, c.Close())
}

func TestClient_RejectedHandshakeStaysActive(t *testing.T) {
	svc, srv := newService(t)
	svc.status = http.StatusUnauthorized

	handler := &recordingHandler{}
	c, err := New(testConfig(srv.URL), WithEventHandler(handler))
	require.NoError(t, err)

	c.StartSession(nil)
	require.Eventually(t, func() bool {
		_, failures := handler.snapshot()
		return len(failures) == 1
	}, 5*time.Second, 10*time.Millisecond)

	_, failures := handler.snapshot()
	assert.Equal(t, OutcomeProtocolFailure, failures[0].Kind)
	assert.True(t, c.IsActive())
	assert.Equal(t, StatePending, c.ReadyState())

	c.AddEvent("early", nil)
	require.NoError(t, c.Close())
	assert.Len(t, handler.dropped, 2) // "early" and the session end event
	assert.ErrorIs(t, handler.dropped[0].Reason, ErrSessionNotReady)
}

func TestClient_MultipleHandlers(t *testing.T) {
	_, srv := newService(t)
	first, second := &recordingHandler{}, &recordingHandler{}

	c, err := New(testConfig(srv.URL), WithEventHandler(first), WithEventHandler(second))
	require.NoError(t, err)
	waitReady(t, c)
	c.AddEvent("e", nil)
	require.NoError(t, c.Close())

	for _, h := range []*recordingHandler{first, second} {
		require.Len(t, h.batches, 1)
		assert.Equal(t, 2, h.batches[0].EventCount)
		assert.True(t, h.batches[0].Blocking)
	}
}

type testPlugin struct {
	name  string
	order *[]string
	mu    *sync.Mutex

	initErr error
	sink    EventSink
}

func (p *testPlugin) Name() string { return p.name }

func (p *testPlugin) record(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.order = append(*p.order, s)
}

func (p *testPlugin) Initialize(_ context.Context, cfg PluginConfig) error {
	p.record("init " + p.name)
	if p.initErr != nil {
		return p.initErr
	}
	p.sink = cfg.Sink
	if cfg.SessionID != "sess-1" {
		return errors.New("unexpected session id " + cfg.SessionID)
	}
	return nil
}

func (p *testPlugin) Shutdown(context.Context) error {
	p.record("shutdown " + p.name)
	p.sink.AddEvent("bye_"+p.name, nil)
	return nil
}

func TestClient_Plugins(t *testing.T) {
	svc, srv := newService(t)

	var mu sync.Mutex
	var order []string
	a := &testPlugin{name: "a", order: &order, mu: &mu}
	b := &testPlugin{name: "b", order: &order, mu: &mu}
	broken := &testPlugin{name: "broken", order: &order, mu: &mu, initErr: errors.New("no")}

	c, err := New(testConfig(srv.URL), WithPlugin(a), WithPlugin(broken), WithPlugin(b))
	require.NoError(t, err)
	waitReady(t, c)

	require.NoError(t, c.Close())

	mu.Lock()
	assert.Equal(t, []string{"init a", "init broken", "init b", "shutdown b", "shutdown a"}, order)
	mu.Unlock()

	ingests := svc.requestsTo("/api/ingest")
	require.Len(t, ingests, 1)
	assert.Equal(t, []string{"bye_b", "bye_a", SessionEndEvent}, decodeNames(t, ingests[0].body))
}

func TestClient_CustomSessionData(t *testing.T) {
	svc, srv := newService(t)
	cfg := testConfig(srv.URL)
	cfg.CustomSessionData = map[string]any{"version": "override"}

	c, err := New(cfg)
	require.NoError(t, err)
	c.SetCustomSessionData("tier", "gold")
	waitReady(t, c)
	require.NoError(t, c.Close())

	var initReq struct {
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(svc.requestsTo("/api/init")[0].body, &initReq))
	assert.Equal(t, "override", initReq.Payload["version"])
	assert.Equal(t, "gold", initReq.Payload["tier"])
}
