// Package logsink renders engine events into the per-interface, human
// readable log files the dashboard tails, while still speaking slog inside
// the process. One handler tees each record to the file, an in-memory tail
// for the status endpoint, and an optional live broadcast hook.
package logsink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const tailDepth = 200

// FileSink owns one append-only log file plus a bounded tail buffer.
type FileSink struct {
	mu    sync.Mutex
	file  *os.File
	tail  []string
	bcast func(line string)
}

// NewFileSink opens (creating if needed) the named log file in dir.
func NewFileSink(dir, name string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return &FileSink{file: f}, nil
}

// SetBroadcast installs the live log hook (the websocket fan-out).
func (s *FileSink) SetBroadcast(fn func(line string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bcast = fn
}

// Append writes one rendered line and feeds the tail and broadcast hook.
func (s *FileSink) Append(line string) {
	s.mu.Lock()
	s.file.WriteString(line + "\n")
	s.tail = append(s.tail, line)
	if len(s.tail) > tailDepth {
		s.tail = s.tail[len(s.tail)-tailDepth:]
	}
	bcast := s.bcast
	s.mu.Unlock()

	if bcast != nil {
		bcast(line)
	}
}

// Tail returns up to n of the most recent lines, oldest first.
func (s *FileSink) Tail(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.tail) {
		n = len(s.tail)
	}
	out := make([]string, n)
	copy(out, s.tail[len(s.tail)-n:])
	return out
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// Handler is a slog.Handler rendering records as
// "2006-01-02 15:04:05 - LEVEL - message key=value ...".
type Handler struct {
	sink  *FileSink
	level slog.Leveler
	attrs []slog.Attr
}

// NewHandler wraps a sink as a slog handler at the given level.
func NewHandler(sink *FileSink, level slog.Leveler) *Handler {
	return &Handler{sink: sink, level: level}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, rec slog.Record) error {
	var b strings.Builder
	b.WriteString(rec.Time.Format("2006-01-02 15:04:05"))
	b.WriteString(" - ")
	b.WriteString(rec.Level.String())
	b.WriteString(" - ")
	b.WriteString(rec.Message)

	for _, attr := range h.attrs {
		writeAttr(&b, attr)
	}
	rec.Attrs(func(attr slog.Attr) bool {
		writeAttr(&b, attr)
		return true
	})

	h.sink.Append(b.String())
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &Handler{sink: h.sink, level: h.level, attrs: merged}
}

func (h *Handler) WithGroup(string) slog.Handler {
	// Groups are flattened; the dashboard format is a single line.
	return h
}

func writeAttr(b *strings.Builder, attr slog.Attr) {
	if attr.Key == "" {
		return
	}
	b.WriteString(" ")
	b.WriteString(attr.Key)
	b.WriteString("=")
	b.WriteString(attr.Value.String())
}
