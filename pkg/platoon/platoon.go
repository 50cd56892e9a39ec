package platoon

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"sync"

	"github.com/bft-labs/platoon/internal/adapters/clock"
	httpAdapter "github.com/bft-labs/platoon/internal/adapters/http"
	"github.com/bft-labs/platoon/internal/app"
	"github.com/bft-labs/platoon/internal/domain"
	"github.com/bft-labs/platoon/internal/ports"
	"github.com/bft-labs/platoon/pkg/log"
)

// Client is a telemetry client that can be embedded in other applications.
// Use New() to create an instance, then StartSession() to open a session.
// All methods are safe for concurrent use.
type Client struct {
	config Config
	engine *app.Engine
	logger ports.Logger

	plugins []Plugin

	mu          sync.Mutex
	initialized []Plugin
	pluginsDone bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Client with the given configuration.
// Unless cfg.Disabled is set, the client is active: its buffer exists and
// the heartbeat runs, but nothing is sent before StartSession.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	o := defaultOptions(httpClient)
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	switch {
	case cfg.Quiet:
		logger = log.WithMinLevel(logger, log.LevelWarn)
	case !cfg.Verbose:
		logger = log.WithMinLevel(logger, log.LevelInfo)
	}

	transport := o.transport
	if transport == nil {
		transport = httpAdapter.NewTransport(o.httpClient, httpAdapter.TransportConfig{
			BaseURL:     cfg.BaseURL,
			AccessToken: cfg.AccessToken,
			UserAgent:   UserAgent,
		}, logger)
	}

	clk := o.clock
	if clk == nil {
		clk = clock.System{}
	}

	var emitter app.Emitter
	switch len(o.handlers) {
	case 0:
	case 1:
		emitter = eventEmitterWrapper{handler: o.handlers[0]}
	default:
		emitter = eventEmitterWrapper{handler: multiHandler(o.handlers)}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		config:  cfg,
		logger:  logger,
		plugins: o.plugins,
		ctx:     ctx,
		cancel:  cancel,
	}

	c.engine = app.NewEngine(app.Config{
		UserID:            cfg.UserID,
		Device:            deviceInfo(cfg.AppVersion),
		CustomSessionData: cfg.CustomSessionData,
		HeartbeatInterval: cfg.HeartbeatInterval,
		FlushThreshold:    cfg.FlushThreshold,
		Active:            !cfg.Disabled,
		CloseTimeout:      cfg.CloseTimeout,
	}, transport, clk, logger, emitter, pluginHooks{c})

	return c, nil
}

// StartSession sends the init handshake without blocking. onReady, which
// may be nil, is called once when the server accepts the session. It does
// nothing while the client is inactive.
//
// Calling StartSession again before the session is ready resends the
// handshake and replaces the earlier onReady, which then never runs. Once
// ready, further calls are ignored.
func (c *Client) StartSession(onReady func()) {
	c.engine.StartSession(onReady)
}

// AddEvent enqueues an event for the current session. Events added before
// the session is ready, or whose payload cannot be encoded as JSON, are
// dropped and reported to the EventHandler.
func (c *Client) AddEvent(name string, payload map[string]any) {
	c.engine.AddEvent(name, payload)
}

// EnableFlagRetrieval requests feature flags with the next handshake.
// Call it before StartSession.
func (c *Client) EnableFlagRetrieval() {
	c.engine.EnableFlagRetrieval()
}

// IsReady reports whether the session handshake completed.
func (c *Client) IsReady() bool {
	return c.engine.IsReady()
}

// ReadyState returns the session handshake state.
func (c *Client) ReadyState() ReadyState {
	return c.engine.ReadyState()
}

// IsFlagActive reports whether the server issued the named flag.
func (c *Client) IsFlagActive(name string) bool {
	return c.engine.IsFlagActive(name)
}

// FlagPayload returns the payload of the named flag decoded from JSON.
// ok is false when the session is not ready, the flag is absent, or it
// carries no payload.
func (c *Client) FlagPayload(name string) (value any, ok bool) {
	return c.engine.FlagPayload(name)
}

// Flags returns the names of all issued flags, in no particular order.
func (c *Client) Flags() []string {
	return c.engine.Flags()
}

// SetCustomSessionData adds a field to the init payload.
func (c *Client) SetCustomSessionData(key string, value any) {
	c.engine.SetCustomSessionData(key, value)
}

// Activate enables or disables sending. Disabling discards buffered events.
// After a transport failure the client disables itself; only Activate(true)
// turns it back on.
func (c *Client) Activate(enable bool) {
	c.engine.Activate(enable)
}

// IsActive reports whether sending is enabled.
func (c *Client) IsActive() bool {
	return c.engine.IsActive()
}

// SessionID returns the server-issued session id, empty until ready.
func (c *Client) SessionID() string {
	return c.engine.SessionID()
}

// BufferedEvents returns the number of events waiting to be sent.
func (c *Client) BufferedEvents() int {
	return c.engine.BufferedEvents()
}

// Flush sends buffered events without waiting for the response.
func (c *Client) Flush() {
	c.engine.Flush()
}

// Close shuts plugins down, adds the session end event, sends all buffered
// events in one blocking request and releases the session.
// Returns ErrClosed if already closed, ErrCloseTimeout if non-blocking
// requests were still in flight after CloseTimeout.
func (c *Client) Close() error {
	err := c.engine.Close()
	c.cancel()
	return err
}

// pluginHooks runs plugins on engine session events.
type pluginHooks struct {
	c *Client
}

func (h pluginHooks) SessionReady()   { h.c.initPlugins() }
func (h pluginHooks) SessionClosing() { h.c.shutdownPlugins() }

// initPlugins initializes plugins once per client.
func (c *Client) initPlugins() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pluginsDone {
		return
	}
	c.pluginsDone = true

	pluginCfg := PluginConfig{
		Sink:      c,
		Logger:    c.logger,
		UserID:    c.config.UserID,
		SessionID: c.engine.SessionID(),
	}
	for _, p := range c.plugins {
		if err := p.Initialize(c.ctx, pluginCfg); err != nil {
			c.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			continue
		}
		c.initialized = append(c.initialized, p)
		c.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}
}

// shutdownPlugins shuts initialized plugins down in reverse order.
func (c *Client) shutdownPlugins() {
	c.mu.Lock()
	plugins := c.initialized
	c.initialized = nil
	c.pluginsDone = true
	c.mu.Unlock()

	if len(plugins) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.CloseTimeout)
	defer cancel()

	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			c.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			c.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

// deviceInfo describes the running host for the init payload.
func deviceInfo(appVersion string) domain.DeviceInfo {
	return domain.DeviceInfo{
		Version:  appVersion,
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		Device:   hostname(),
		OS:       runtime.GOOS,
		SDK:      "go " + Version,
	}
}

// hostname returns the current hostname.
func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}

var (
	_ app.SessionHooks = pluginHooks{}
	_ EventSink        = (*Client)(nil)
)
