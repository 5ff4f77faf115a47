package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// subjectKeys are lifted out of the key=value tail into a bracketed subject,
// in this order.
var subjectKeys = []string{FieldSessionID, FieldRowID, FieldStage}

// prettyHandler writes one human readable line per record:
//
//	2026-03-01T12:00:00Z INFO  runner: [1a2b3c4d/row-7/vendor] price resolved attempt=1
type prettyHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     *slog.LevelVar
	preset    []field
	groups    []string
	addSource bool
}

type field struct {
	key   string
	value slog.Value
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, out: w, level: lvl, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = appendFields(append([]field(nil), h.preset...), h.groups, attrs)
	return &next
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}
	fields := append([]field(nil), h.preset...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendFields(fields, h.groups, []slog.Attr{attr})
		return true
	})

	var component string
	subject := make(map[string]string, len(subjectKeys))
	tail := make([]field, 0, len(fields))
	for _, f := range lastWins(fields) {
		switch f.key {
		case FieldComponent:
			component = attrString(f.value)
		case FieldSessionID, FieldRowID, FieldStage:
			subject[f.key] = attrString(f.value)
		case "":
		default:
			tail = append(tail, f)
		}
	}

	when := record.Time
	if when.IsZero() {
		when = time.Now()
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %-5s ", when.UTC().Format(time.RFC3339), levelLabel(record.Level))
	if component != "" {
		buf.WriteString(component + ": ")
	}
	if s := joinSubject(subject); s != "" {
		buf.WriteString("[" + s + "] ")
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	buf.WriteString(msg)
	if h.addSource && record.Level < slog.LevelInfo {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&buf, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range tail {
		buf.WriteString(" " + f.key + "=" + formatValue(f.value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

// joinSubject renders the subject keys present, shortening session ids.
func joinSubject(values map[string]string) string {
	parts := make([]string, 0, len(subjectKeys))
	for _, key := range subjectKeys {
		v := strings.TrimSpace(values[key])
		if v == "" {
			continue
		}
		if key == FieldSessionID && len(v) > 8 {
			v = v[:8]
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, "/")
}

// lastWins keeps one field per key, holding the last value at the position
// the key first appeared.
func lastWins(fields []field) []field {
	pos := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if i, ok := pos[f.key]; ok {
			out[i] = f
			continue
		}
		pos[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

// appendFields flattens attrs into dotted keys under groups.
func appendFields(dst []field, groups []string, attrs []slog.Attr) []field {
	for _, attr := range attrs {
		if attr.Equal(slog.Attr{}) {
			continue
		}
		value := attr.Value.Resolve()
		if value.Kind() == slog.KindGroup {
			inner := groups
			if attr.Key != "" {
				inner = append(append([]string(nil), groups...), attr.Key)
			}
			dst = appendFields(dst, inner, value.Group())
			continue
		}
		key := attr.Key
		if len(groups) > 0 {
			key = strings.Join(groups, ".") + "." + key
		}
		dst = append(dst, field{key: key, value: value})
	}
	return dst
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

// attrString is the unquoted text of v.
func attrString(v slog.Value) string {
	return valueText(v.Resolve(), false)
}

// formatValue is the key=value form of v, quoted when it would not survive a
// whitespace split.
func formatValue(v slog.Value) string {
	return valueText(v.Resolve(), true)
}

func valueText(v slog.Value, quote bool) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			if quote {
				return strconv.Quote(err.Error())
			}
			return err.Error()
		}
		s = fmt.Sprint(v.Any())
	default:
		return v.String()
	}
	if quote && (s == "" || strings.ContainsAny(s, " \t\n\"=")) {
		return strconv.Quote(s)
	}
	return s
}
