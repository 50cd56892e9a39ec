package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/platoon/internal/domain"
	"github.com/bft-labs/platoon/internal/ports"
	"github.com/bft-labs/platoon/pkg/log"
)

type postCall struct {
	path     string
	body     []byte
	blocking bool
}

// fakeTransport records requests. Responses come from respond; async
// completions run synchronously unless hold is set, in which case they
// queue until release.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []postCall
	respond func(path string) domain.Outcome
	hold    bool
	pending []func()
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{respond: okResponses("s-1", "")}
}

// okResponses answers init with sessionID and the given raw flags JSON.
func okResponses(sessionID, flags string) func(string) domain.Outcome {
	return func(path string) domain.Outcome {
		if path == ports.InitPath {
			body := `{"session_id":"` + sessionID + `"`
			if flags != "" {
				body += `,"flags":` + flags
			}
			body += "}"
			return domain.Success(200, []byte(body))
		}
		return domain.Success(200, nil)
	}
}

func (f *fakeTransport) Post(_ context.Context, path string, body []byte) domain.Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, postCall{path: path, body: body, blocking: true})
	respond := f.respond
	f.mu.Unlock()
	return respond(path)
}

func (f *fakeTransport) PostAsync(_ context.Context, path string, body []byte, done func(domain.Outcome)) {
	f.mu.Lock()
	f.calls = append(f.calls, postCall{path: path, body: body})
	respond := f.respond
	if f.hold {
		f.pending = append(f.pending, func() { done(respond(path)) })
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	done(respond(path))
}

func (f *fakeTransport) setRespond(respond func(string) domain.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = respond
}

func (f *fakeTransport) setHold(hold bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = hold
}

// release completes the oldest held request.
func (f *fakeTransport) release() {
	f.mu.Lock()
	next := f.pending[0]
	f.pending = f.pending[1:]
	f.mu.Unlock()
	next()
}

func (f *fakeTransport) callsTo(path string) []postCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []postCall
	for _, c := range f.calls {
		if c.path == path {
			out = append(out, c)
		}
	}
	return out
}

func decodeEvents(body []byte) []domain.Event {
	var events []domain.Event
	if err := json.Unmarshal(body, &events); err != nil {
		panic(err)
	}
	return events
}

func eventNames(events []domain.Event) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(d time.Duration) ports.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{interval: d, ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) tickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *fakeClock) lastTicker() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[len(c.tickers)-1]
}

type fakeTicker struct {
	interval time.Duration
	ch       chan time.Time

	mu      sync.Mutex
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *fakeTicker) tick() {
	t.ch <- time.Now()
}

// isStoppedEventually waits for the heartbeat goroutine to release the ticker.
func (t *fakeTicker) isStoppedEventually(tb testing.TB) bool {
	return assert.Eventually(tb, t.isStopped, time.Second, 5*time.Millisecond)
}

type stateChange struct {
	previous ReadyState
	current  ReadyState
	reason   string
}

type sendFailure struct {
	path string
	kind domain.OutcomeKind
}

// recordingEmitter captures engine notifications.
type recordingEmitter struct {
	mu          sync.Mutex
	states      []stateChange
	activations []bool
	batches     []int
	failures    []sendFailure
	dropped     []string
	dropReasons []error
}

func (r *recordingEmitter) OnReadyStateChange(previous, current ReadyState, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, stateChange{previous, current, reason})
}

func (r *recordingEmitter) OnActivationChange(active bool, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activations = append(r.activations, active)
}

func (r *recordingEmitter) OnBatchSent(count int, _ bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, count)
}

func (r *recordingEmitter) OnSendFailure(path string, kind domain.OutcomeKind, _ error, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, sendFailure{path, kind})
}

func (r *recordingEmitter) OnEventDropped(name string, reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped = append(r.dropped, name)
	r.dropReasons = append(r.dropReasons, reason)
}

func (r *recordingEmitter) batchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *recordingEmitter) failureCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}

type recordingHooks struct {
	mu      sync.Mutex
	ready   int
	closing int
}

func (h *recordingHooks) SessionReady() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready++
}

func (h *recordingHooks) SessionClosing() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closing++
}

type harness struct {
	engine    *Engine
	transport *fakeTransport
	clock     *fakeClock
	emitter   *recordingEmitter
	hooks     *recordingHooks
}

func testConfig() Config {
	return Config{
		UserID: "user-1",
		Device: domain.DeviceInfo{
			Version:  "1.0.0",
			Platform: "linux/amd64",
			Device:   "host-1",
			OS:       "linux",
			SDK:      "go test",
		},
		HeartbeatInterval: time.Second,
		FlushThreshold:    domain.DefaultFlushThreshold,
		Active:            true,
		CloseTimeout:      100 * time.Millisecond,
	}
}

func newHarness(config Config) *harness {
	h := &harness{
		transport: newFakeTransport(),
		clock:     newFakeClock(),
		emitter:   &recordingEmitter{},
		hooks:     &recordingHooks{},
	}
	h.engine = NewEngine(config, h.transport, h.clock, log.NoopLogger{}, h.emitter, h.hooks)
	return h
}

// ready starts the session and fails the test if it does not become ready.
func (h *harness) ready(t *testing.T) {
	t.Helper()
	h.engine.StartSession(nil)
	require.True(t, h.engine.IsReady())
}
