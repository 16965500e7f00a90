// Package enginelog provides the structured logging seam the engine calls
// into. Production callers back it with zerolog; tests use Nop or
// NewRecorder.
package enginelog

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Field is a single structured logging key/value pair.
type Field struct {
	Key   string
	Value any
}

// F builds a Field; a small convenience so call sites read like
// enginelog.F("task", name) instead of a literal struct.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

// Logger is the narrow interface the engine depends on. It never formats
// user-facing progress bars or replays output itself — that belongs to a
// separate "pretty-printed progress rendering" concern. It only emits
// leveled, structured diagnostics.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
}

// zerologLogger adapts zerolog.Logger to Logger.
type zerologLogger struct {
	l zerolog.Logger
}

// New builds a Logger backed by zerolog, writing to w at the given level.
func New(w io.Writer, level zerolog.Level) Logger {
	if w == nil {
		w = os.Stderr
	}
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &zerologLogger{l: zl}
}

func withFields(e *zerolog.Event, fields []Field) *zerolog.Event {
	for _, f := range fields {
		e = e.Interface(f.Key, f.Value)
	}
	return e
}

func (z *zerologLogger) Debug(msg string, fields ...Field) {
	withFields(z.l.Debug(), fields).Msg(msg)
}

func (z *zerologLogger) Info(msg string, fields ...Field) {
	withFields(z.l.Info(), fields).Msg(msg)
}

func (z *zerologLogger) Warn(msg string, fields ...Field) {
	withFields(z.l.Warn(), fields).Msg(msg)
}

func (z *zerologLogger) Error(msg string, err error, fields ...Field) {
	withFields(z.l.Error().Err(err), fields).Msg(msg)
}

// Nop is a Logger that discards everything; used where a caller has not
// supplied one.
type Nop struct{}

func (Nop) Debug(string, ...Field)        {}
func (Nop) Info(string, ...Field)         {}
func (Nop) Warn(string, ...Field)         {}
func (Nop) Error(string, error, ...Field) {}

// Record is a single captured log call, used by Recorder.
type Record struct {
	Level  string
	Msg    string
	Err    error
	Fields []Field
	At     time.Time
}

// Recorder is a Logger that stores every call in memory for assertions.
type Recorder struct {
	mu   sync.Mutex
	recs []Record
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) add(level, msg string, err error, fields []Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, Record{Level: level, Msg: msg, Err: err, Fields: fields, At: time.Now()})
}

func (r *Recorder) Debug(msg string, fields ...Field)        { r.add("debug", msg, nil, fields) }
func (r *Recorder) Info(msg string, fields ...Field)         { r.add("info", msg, nil, fields) }
func (r *Recorder) Warn(msg string, fields ...Field)         { r.add("warn", msg, nil, fields) }
func (r *Recorder) Error(msg string, err error, fields ...Field) {
	r.add("error", msg, err, fields)
}

// Records returns a snapshot of everything logged so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.recs))
	copy(out, r.recs)
	return out
}
