package cli

import (
	"strings"
	"sync"
)

// LogWriter implements io.Writer and keeps the most recent lines for the
// TUI log panel. New lines are also announced on a channel.
type LogWriter struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool

	ch chan string
}

// NewLogWriter creates a log writer keeping at most maxLines lines.
func NewLogWriter(maxLines int) *LogWriter {
	if maxLines <= 0 {
		maxLines = 100
	}
	return &LogWriter{
		lines: make([]string, maxLines),
		ch:    make(chan string, 100),
	}
}

// Write implements io.Writer. Multi-line input is split on newlines.
func (w *LogWriter) Write(p []byte) (n int, err error) {
	text := strings.TrimRight(string(p), "\n")
	for _, line := range strings.Split(text, "\n") {
		w.add(line)

		// Dropped when nobody is listening.
		select {
		case w.ch <- line:
		default:
		}
	}
	return len(p), nil
}

func (w *LogWriter) add(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines[w.next] = line
	w.next = (w.next + 1) % len(w.lines)
	if w.next == 0 {
		w.full = true
	}
}

// Lines returns the buffered lines, oldest first.
func (w *LogWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.full {
		return append([]string(nil), w.lines[:w.next]...)
	}
	out := make([]string, 0, len(w.lines))
	out = append(out, w.lines[w.next:]...)
	return append(out, w.lines[:w.next]...)
}

// Channel returns the notification channel for new lines.
func (w *LogWriter) Channel() <-chan string {
	return w.ch
}
