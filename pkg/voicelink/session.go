package voicelink

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one recording-to-response cycle.
type Session struct {
	ID             string    `json:"id" yaml:"id"`
	Transcript     string    `json:"transcript" yaml:"transcript"`
	Response       []byte    `json:"-" yaml:"-"`
	ResponseFormat string    `json:"response_format,omitempty" yaml:"response_format,omitempty"`
	StartedAt      time.Time `json:"started_at" yaml:"started_at"`
	CompletedAt    time.Time `json:"completed_at,omitzero" yaml:"completed_at,omitempty"`

	ChunksCaptured int   `json:"chunks_captured" yaml:"chunks_captured"`
	ChunksSent     int   `json:"chunks_sent" yaml:"chunks_sent"`
	ChunksDropped  int   `json:"chunks_dropped" yaml:"chunks_dropped"`
	BytesSent      int64 `json:"bytes_sent" yaml:"bytes_sent"`
}

// newSession creates a Session with a fresh id.
func newSession(now time.Time) *Session {
	return &Session{ID: uuid.NewString(), StartedAt: now}
}

// HasResponse reports whether the session holds reply audio.
func (s *Session) HasResponse() bool {
	return len(s.Response) > 0
}

// ResponseBytes returns the size of the reply audio.
func (s *Session) ResponseBytes() int {
	return len(s.Response)
}

// Duration returns the time from start to completion.
func (s *Session) Duration() time.Duration {
	if s.CompletedAt.IsZero() {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}

// Clone returns a copy that shares nothing with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	v := *s
	v.Response = slices.Clone(s.Response)
	return &v
}

// History is the append-only list of finalized sessions, oldest first.
type History struct {
	mu       sync.RWMutex
	sessions []*Session
}

// Append adds a finalized session. The session must not be modified
// afterwards.
func (h *History) Append(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions = append(h.sessions, s)
}

// Get returns the session with id.
func (h *History) Get(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Len returns the number of sessions.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// List returns copies of all sessions, oldest first.
func (h *History) List() []Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Session, len(h.sessions))
	for i, s := range h.sessions {
		out[i] = *s.Clone()
	}
	return out
}
