// Package diagnostics keeps the most recent log records in memory so a
// user can export them when reporting a problem.
//
// Ring is a slog.Handler. Install it next to the normal stderr handler
// with Tee:
//
//	ring := diagnostics.NewRing(diagnostics.DefaultCapacity, slog.LevelInfo)
//	logger := slog.New(diagnostics.Tee(slog.NewTextHandler(os.Stderr, nil), ring))
//	depthmap.SetLogger(logger)
//	...
//	ring.Export(f)
package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultCapacity is the number of records kept by default.
const DefaultCapacity = 100

// TimeFormat is the timestamp layout used by Export.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Entry is one captured log record.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// String formats the entry as "[timestamp] LEVEL: message {attrs}".
func (e Entry) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s: %s", e.Time.UTC().Format(TimeFormat), e.Level, e.Message)
	if len(e.Attrs) > 0 {
		data, err := json.Marshal(e.Attrs)
		if err != nil {
			data = []byte(fmt.Sprintf("%q", fmt.Sprint(e.Attrs)))
		}
		sb.WriteByte(' ')
		sb.Write(data)
	}
	return sb.String()
}

type buffer struct {
	mu      sync.Mutex
	entries []Entry
	start   int
	size    int
}

func (b *buffer) push(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size < len(b.entries) {
		b.entries[(b.start+b.size)%len(b.entries)] = e
		b.size++
		return
	}
	b.entries[b.start] = e
	b.start = (b.start + 1) % len(b.entries)
}

// Ring is a slog.Handler that keeps the last N records. Handlers derived
// with WithAttrs or WithGroup share the same buffer.
type Ring struct {
	buf    *buffer
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

// NewRing returns a handler keeping up to capacity records at or above
// level. A capacity < 1 uses DefaultCapacity; a nil level means Info.
func NewRing(capacity int, level slog.Leveler) *Ring {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &Ring{buf: &buffer{entries: make([]Entry, capacity)}, level: level}
}

// Enabled implements slog.Handler.
func (r *Ring) Enabled(_ context.Context, level slog.Level) bool {
	return level >= r.level.Level()
}

// Handle implements slog.Handler.
func (r *Ring) Handle(_ context.Context, rec slog.Record) error {
	e := Entry{Time: rec.Time, Level: rec.Level, Message: rec.Message}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if len(r.attrs) > 0 || rec.NumAttrs() > 0 {
		e.Attrs = make(map[string]any, len(r.attrs)+rec.NumAttrs())
		for _, a := range r.attrs {
			addAttr(e.Attrs, "", a)
		}
		rec.Attrs(func(a slog.Attr) bool {
			addAttr(e.Attrs, r.prefix, a)
			return true
		})
	}
	r.buf.push(e)
	return nil
}

// WithAttrs implements slog.Handler.
func (r *Ring) WithAttrs(attrs []slog.Attr) slog.Handler {
	nr := *r
	nr.attrs = make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	nr.attrs = append(nr.attrs, r.attrs...)
	for _, a := range attrs {
		if r.prefix != "" {
			a.Key = r.prefix + a.Key
		}
		nr.attrs = append(nr.attrs, a)
	}
	return &nr
}

// WithGroup implements slog.Handler. Group names become dotted key prefixes.
func (r *Ring) WithGroup(name string) slog.Handler {
	if name == "" {
		return r
	}
	nr := *r
	nr.prefix = r.prefix + name + "."
	return &nr
}

// Entries returns the kept records, oldest first.
func (r *Ring) Entries() []Entry {
	b := r.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, b.size)
	for i := range out {
		out[i] = b.entries[(b.start+i)%len(b.entries)]
	}
	return out
}

// Len returns the number of kept records.
func (r *Ring) Len() int {
	r.buf.mu.Lock()
	defer r.buf.mu.Unlock()
	return r.buf.size
}

// Clear drops all kept records.
func (r *Ring) Clear() {
	b := r.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.entries)
	b.start, b.size = 0, 0
}

// Export writes one line per kept record, oldest first.
func (r *Ring) Export(w io.Writer) error {
	for _, e := range r.Entries() {
		if _, err := io.WriteString(w, e.String()+"\n"); err != nil {
			return fmt.Errorf("diagnostics: export: %w", err)
		}
	}
	return nil
}

func addAttr(m map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			addAttr(m, p, ga)
		}
		return
	}
	m[prefix+a.Key] = plain(a.Value)
}

// plain converts a value to something encoding/json renders readably.
func plain(v slog.Value) any {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(TimeFormat)
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return x.Error()
		case fmt.Stringer:
			return x.String()
		}
	}
	return v.Any()
}

// Tee returns a handler that sends every record to all handlers.
func Tee(handlers ...slog.Handler) slog.Handler {
	return tee(handlers)
}

type tee []slog.Handler

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t tee) Handle(ctx context.Context, rec slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, rec.Level) {
			errs = append(errs, h.Handle(ctx, rec.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t tee) WithGroup(name string) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
