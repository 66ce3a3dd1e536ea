package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders records as a header line followed by indented
// fields:
//
//	2026-01-02 15:04:05 INFO [resolve] run 1a2b3c4d · company #12 – match found
//	    - Method: exact_ticker
type consoleHandler struct {
	out       *lockedWriter
	level     slog.Leveler
	addSource bool
	group     string // dotted prefix for attrs added later
	bound     []kv   // attrs from WithAttrs, already flattened
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(p string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := io.WriteString(l.w, p)
	return err
}

type kv struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) slog.Handler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.bound = append([]kv(nil), h.bound...)
	for _, attr := range attrs {
		next.bound = appendFlattened(next.bound, h.group, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = joinKey(h.group, name)
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}

	fields := append(make([]kv, 0, len(h.bound)+record.NumAttrs()), h.bound...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendFlattened(fields, h.group, attr)
		return true
	})
	fields = lastValueWins(fields)

	header := consoleHeader{
		ts:      record.Time,
		level:   record.Level,
		message: strings.TrimSpace(record.Message),
	}
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			header.component = attrString(f.value)
		case FieldRunID:
			header.runID = attrString(f.value)
		case FieldCompanyID:
			header.companyID = attrString(f.value)
		}
	}
	if h.addSource && record.PC != 0 {
		if src := record.Source(); src != nil {
			header.source = filepath.Base(src.File) + ":" + strconv.Itoa(src.Line)
		}
	}

	var b strings.Builder
	header.write(&b)
	if record.Level < slog.LevelInfo {
		writeDebugFields(&b, fields)
	} else {
		writeInfoFields(&b, fields)
	}
	return h.out.write(b.String())
}

type consoleHeader struct {
	ts        time.Time
	level     slog.Level
	component string
	runID     string
	companyID string
	message   string
	source    string
}

func (c consoleHeader) write(b *strings.Builder) {
	ts := c.ts
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(formatTimestamp(ts))
	b.WriteByte(' ')
	b.WriteString(levelLabel(c.level))
	if c.component != "" {
		b.WriteString(" [" + c.component + "]")
	}
	if subject := c.subject(); subject != "" {
		b.WriteString(" " + subject)
	}
	message := c.message
	if message == "" {
		message = "(no message)"
	}
	b.WriteString(" – " + message)
	if c.source != "" {
		b.WriteString(" [" + c.source + "]")
	}
	b.WriteByte('\n')
}

// subject renders "run 1a2b3c4d · company #12"; either half may be absent.
func (c consoleHeader) subject() string {
	var parts []string
	if id := strings.TrimSpace(c.runID); id != "" {
		parts = append(parts, "run "+id[:min(len(id), 8)])
	}
	if id := strings.TrimSpace(c.companyID); id != "" {
		parts = append(parts, "company #"+id)
	}
	return strings.Join(parts, " · ")
}

func writeInfoFields(b *strings.Builder, fields []kv) {
	shown, hidden := selectInfoFields(fields, infoAttrLimit)
	for _, f := range shown {
		b.WriteString("    - " + f.label + ": " + f.value + "\n")
	}
	switch {
	case hidden == 1:
		b.WriteString("    + 1 more field hidden\n")
	case hidden > 1:
		b.WriteString("    + " + strconv.Itoa(hidden) + " more fields hidden\n")
	}
}

func writeDebugFields(b *strings.Builder, fields []kv) {
	for _, f := range fields {
		if f.key == FieldComponent {
			continue
		}
		b.WriteString("    " + f.key + ": " + formatValue(f.value) + "\n")
	}
}

// appendFlattened adds attr to dst, expanding groups into dotted keys.
func appendFlattened(dst []kv, prefix string, attr slog.Attr) []kv {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		inner := joinKey(prefix, attr.Key)
		for _, member := range value.Group() {
			dst = appendFlattened(dst, inner, member)
		}
		return dst
	}
	key := joinKey(prefix, attr.Key)
	if key == "" {
		return dst
	}
	return append(dst, kv{key: key, value: value})
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

// lastValueWins collapses repeated keys, keeping the first position and the
// last value.
func lastValueWins(fields []kv) []kv {
	if len(fields) < 2 {
		return fields
	}
	index := make(map[string]int, len(fields))
	out := fields[:0:0]
	for _, f := range fields {
		if i, ok := index[f.key]; ok {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
