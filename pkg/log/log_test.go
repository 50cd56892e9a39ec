package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Debug(msg string, fields ...Field) { r.lines = append(r.lines, "debug:"+msg) }
func (r *recordingLogger) Info(msg string, fields ...Field)  { r.lines = append(r.lines, "info:"+msg) }
func (r *recordingLogger) Warn(msg string, fields ...Field)  { r.lines = append(r.lines, "warn:"+msg) }
func (r *recordingLogger) Error(msg string, fields ...Field) { r.lines = append(r.lines, "error:"+msg) }

func TestWithMinLevel(t *testing.T) {
	tests := []struct {
		min  Level
		want []string
	}{
		{LevelDebug, []string{"debug:d", "info:i", "warn:w", "error:e"}},
		{LevelInfo, []string{"info:i", "warn:w", "error:e"}},
		{LevelWarn, []string{"warn:w", "error:e"}},
		{LevelError, []string{"error:e"}},
	}

	for _, tt := range tests {
		t.Run(tt.min.String(), func(t *testing.T) {
			rec := &recordingLogger{}
			l := WithMinLevel(rec, tt.min)
			l.Debug("d")
			l.Info("i")
			l.Warn("w")
			l.Error("e")
			assert.Equal(t, tt.want, rec.lines)
		})
	}
}

func TestWithMinLevel_NilLogger(t *testing.T) {
	l := WithMinLevel(nil, LevelWarn)
	assert.NotPanics(t, func() { l.Error("ignored") })
}

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf))

	z.Info("sent batch", Int("events", 3), String("path", "/api/ingest"), Err(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, `"message":"sent batch"`)
	assert.Contains(t, out, `"events":3`)
	assert.Contains(t, out, `"path":"/api/ingest"`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestZerologAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf)).With(String("component", "engine"))

	z.Warn("heartbeat")

	assert.Contains(t, buf.String(), `"component":"engine"`)
}

func TestZerologAdapter_LevelDisabled(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	z.Debug("hidden")
	z.Info("hidden")

	assert.Empty(t, buf.String())
}
