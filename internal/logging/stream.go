package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEvent is one log record as served by the daemon's log endpoint.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	SessionID     string            `json:"session_id,omitempty"`
	RowID         string            `json:"row_id,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

const defaultStreamCapacity = 512

// StreamHub keeps the last N events in a ring and lets readers poll or block
// for newer ones by sequence number. Sequences start at 1.
type StreamHub struct {
	mu      sync.Mutex
	ring    []LogEvent
	head    int // index of the oldest event once the ring is full
	lastSeq uint64
	changed chan struct{}
}

// NewStreamHub returns a hub retaining up to capacity events.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = defaultStreamCapacity
	}
	return &StreamHub{
		ring:    make([]LogEvent, 0, capacity),
		changed: make(chan struct{}),
	}
}

// Publish stamps evt with the next sequence and wakes blocked readers.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	h.mu.Lock()
	h.lastSeq++
	evt.Sequence = h.lastSeq
	if len(h.ring) < cap(h.ring) {
		h.ring = append(h.ring, evt)
	} else {
		h.ring[h.head] = evt
		h.head = (h.head + 1) % len(h.ring)
	}
	close(h.changed)
	h.changed = make(chan struct{})
	h.mu.Unlock()
}

// Fetch returns up to limit events newer than since, oldest first, along with
// the sequence to pass as since on the next call: the last returned event, or
// the newest known sequence when nothing was returned. With wait set it blocks
// until an event newer than since exists or ctx ends.
func (h *StreamHub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]LogEvent, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	for {
		h.mu.Lock()
		events := h.after(since, limit)
		next, changed := h.lastSeq, h.changed
		h.mu.Unlock()

		if len(events) > 0 {
			return events, events[len(events)-1].Sequence, ctx.Err()
		}
		if !wait {
			return nil, next, ctx.Err()
		}
		select {
		case <-ctx.Done():
			return nil, next, ctx.Err()
		case <-changed:
		}
	}
}

// Tail returns the newest limit events without blocking.
func (h *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	all := h.ordered()
	if limit > 0 && limit < len(all) {
		all = all[len(all)-limit:]
	}
	return all, h.lastSeq
}

// ordered copies the ring oldest first. Callers hold mu.
func (h *StreamHub) ordered() []LogEvent {
	out := make([]LogEvent, 0, len(h.ring))
	out = append(out, h.ring[h.head:]...)
	return append(out, h.ring[:h.head]...)
}

// after returns buffered events with a sequence above since. Callers hold mu.
func (h *StreamHub) after(since uint64, limit int) []LogEvent {
	if since >= h.lastSeq {
		return nil
	}
	all := h.ordered()
	// Sequences are contiguous, so the first wanted event sits at a fixed
	// offset from the oldest buffered one.
	skip := 0
	if oldest := all[0].Sequence; since >= oldest {
		skip = int(since - oldest + 1)
	}
	all = all[skip:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

// streamHandler publishes every record to a hub before passing it on.
type streamHandler struct {
	next   slog.Handler
	hub    *StreamHub
	preset []field
	groups []string
}

func newStreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub == nil || next == nil {
		return next
	}
	return &streamHandler{next: next, hub: hub}
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	fields := append([]field(nil), h.preset...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendFields(fields, h.groups, []slog.Attr{attr})
		return true
	})
	h.hub.Publish(newLogEvent(record, fields))
	return h.next.Handle(ctx, record.Clone())
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.next = h.next.WithAttrs(attrs)
	next.preset = appendFields(append([]field(nil), h.preset...), h.groups, attrs)
	return &next
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.next = h.next.WithGroup(name)
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

// newLogEvent lifts the well-known keys into event fields. Later fields win,
// so call-site attrs override ones bound with With.
func newLogEvent(record slog.Record, fields []field) LogEvent {
	evt := LogEvent{
		Timestamp: record.Time,
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
	}
	for _, f := range fields {
		value := attrString(f.value)
		switch f.key {
		case "":
		case FieldComponent:
			evt.Component = value
		case FieldSessionID:
			evt.SessionID = value
		case FieldRowID:
			evt.RowID = value
		case FieldStage:
			evt.Stage = value
		case FieldCorrelationID:
			evt.CorrelationID = value
		default:
			if evt.Fields == nil {
				evt.Fields = make(map[string]string)
			}
			evt.Fields[f.key] = value
		}
	}
	return evt
}
