// Package eventfile provides an NDJSON file tail for platoon.
// When enabled, it watches a file for appended lines of the form
// {"event": "name", "payload": {...}} and adds each one to the client.
package eventfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/platoon/pkg/log"
	"github.com/bft-labs/platoon/pkg/platoon"
)

// maxLineBytes bounds a single buffered partial line.
const maxLineBytes = 1 << 20

// Line is one record of the event file.
type Line struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ParseLine decodes a single NDJSON record.
func ParseLine(b []byte) (Line, error) {
	var l Line
	if err := json.Unmarshal(b, &l); err != nil {
		return Line{}, fmt.Errorf("decode line: %w", err)
	}
	if l.Event == "" {
		return Line{}, errors.New("line has no event name")
	}
	return l, nil
}

// Plugin implements event file tailing.
// It reads lines appended to the file and forwards them to the client.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	fromStart     bool
	debounceDelay time.Duration

	// Runtime state
	sink     platoon.EventSink
	logger   platoon.Logger
	offset   int64
	partial  []byte
	lines    int
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the event file plugin.
type Config struct {
	// Path is the NDJSON file to follow. Required.
	Path string

	// FromStart reads lines already in the file. Otherwise only lines
	// appended after initialization are forwarded.
	FromStart bool

	// DebounceDelay is the delay to wait after a file change before reading.
	// Default: 50 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		DebounceDelay: 50 * time.Millisecond,
	}
}

// New creates a new event file plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 50 * time.Millisecond
	}

	return &Plugin{
		path:          cfg.Path,
		fromStart:     cfg.FromStart,
		debounceDelay: cfg.DebounceDelay,
		logger:        log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "eventfile"
}

// Initialize records the start offset and starts the file watcher.
func (p *Plugin) Initialize(ctx context.Context, cfg platoon.PluginConfig) error {
	p.mu.Lock()
	p.sink = cfg.Sink
	if cfg.Logger != nil {
		p.logger = cfg.Logger
	}
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("event file disabled: no path configured")
		return nil
	}

	if !p.fromStart {
		if fi, err := os.Stat(p.path); err == nil {
			p.mu.Lock()
			p.offset = fi.Size()
			p.mu.Unlock()
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("event file plugin initialized",
		log.String("path", p.path),
		log.Bool("from_start", p.fromStart))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the watcher and forwards any complete lines still unread.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	p.readNew()

	p.mu.Lock()
	lines := p.lines
	p.mu.Unlock()
	p.logger.Info("event file plugin stopped", log.Int("lines", lines))
	return nil
}

// watchLoop watches the file's directory for changes.
func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	// Pick up anything present before the watch started.
	p.readNew()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				p.reset()
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceRead(p.debounceDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("event file watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceRead(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(delay, p.readNew)
}

// reset restarts from the beginning when the file is replaced.
func (p *Plugin) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offset = 0
	p.partial = nil
}

// readNew forwards complete lines written since the last read.
func (p *Plugin) readNew() {
	p.mu.Lock()
	lines, err := p.readLocked()
	sink := p.sink
	p.mu.Unlock()

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Error("event file read failed", log.String("path", p.path), log.Err(err))
	}

	for _, raw := range lines {
		l, err := ParseLine(raw)
		if err != nil {
			p.logger.Warn("skipping event file line", log.Err(err))
			continue
		}
		if sink != nil {
			sink.AddEvent(l.Event, l.Payload)
		}
	}
}

func (p *Plugin) readLocked() ([][]byte, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() < p.offset {
		// Truncated in place.
		p.offset = 0
		p.partial = nil
	}

	if _, err := f.Seek(p.offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	p.offset += int64(len(data))

	data = append(p.partial, data...)
	var out [][]byte
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		if line := bytes.TrimSpace(data[:i]); len(line) > 0 {
			out = append(out, line)
		}
		data = data[i+1:]
	}
	if len(data) > maxLineBytes {
		p.logger.Warn("event file line too long, discarding", log.Int("bytes", len(data)))
		data = nil
	}
	p.partial = append([]byte(nil), data...)
	p.lines += len(out)
	return out, nil
}

// Ensure Plugin implements platoon.Plugin.
var _ platoon.Plugin = (*Plugin)(nil)
