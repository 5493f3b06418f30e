package voicelink

import (
	"fmt"
	"sync"
	"time"
)

// DebugEntry is one line of the debug log.
type DebugEntry struct {
	Time    time.Time `json:"time" yaml:"time"`
	Message string    `json:"message" yaml:"message"`
}

// String formats the entry as "[15:04:05] message".
func (e DebugEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message)
}

// DebugLog is a thread-safe ring of the most recent diagnostic lines. When
// full, the oldest entry is overwritten.
type DebugLog struct {
	mu         sync.Mutex
	buf        []DebugEntry
	head, tail int64
}

// NewDebugLog creates a DebugLog holding at most size entries.
func NewDebugLog(size int) *DebugLog {
	if size <= 0 {
		size = DefaultDebugLogSize
	}
	return &DebugLog{buf: make([]DebugEntry, size)}
}

// Add appends a message stamped with the current time.
func (l *DebugLog) Add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.tail%int64(len(l.buf))] = DebugEntry{Time: time.Now(), Message: msg}
	l.tail++
	if l.tail-l.head > int64(len(l.buf)) {
		l.head = l.tail - int64(len(l.buf))
	}
}

// Entries returns a copy of the buffered entries, oldest first.
func (l *DebugLog) Entries() []DebugEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]DebugEntry, 0, l.tail-l.head)
	for i := l.head; i < l.tail; i++ {
		out = append(out, l.buf[i%int64(len(l.buf))])
	}
	return out
}

// Len returns the number of buffered entries.
func (l *DebugLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(l.tail - l.head)
}
