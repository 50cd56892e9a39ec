package log

// Level orders log severities from most to least verbose.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the lower-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// levelFilter forwards messages at or above min to the wrapped logger.
type levelFilter struct {
	next Logger
	min  Level
}

// WithMinLevel returns a Logger that drops messages below min.
// A nil logger yields a NoopLogger.
func WithMinLevel(logger Logger, min Level) Logger {
	if logger == nil {
		return NewNoopLogger()
	}
	if min <= LevelDebug {
		return logger
	}
	return &levelFilter{next: logger, min: min}
}

func (f *levelFilter) Debug(msg string, fields ...Field) {
	if f.min <= LevelDebug {
		f.next.Debug(msg, fields...)
	}
}

func (f *levelFilter) Info(msg string, fields ...Field) {
	if f.min <= LevelInfo {
		f.next.Info(msg, fields...)
	}
}

func (f *levelFilter) Warn(msg string, fields ...Field) {
	if f.min <= LevelWarn {
		f.next.Warn(msg, fields...)
	}
}

func (f *levelFilter) Error(msg string, fields ...Field) {
	f.next.Error(msg, fields...)
}
