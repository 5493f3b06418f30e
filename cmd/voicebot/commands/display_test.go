package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/datdao1998/voicebot-demo/pkg/voicelink"
)

func TestSnapshotFeed_LatestWins(t *testing.T) {
	feed := newSnapshotFeed()
	for _, rs := range []voicelink.RecordingState{voicelink.Requesting, voicelink.Recording, voicelink.Draining} {
		feed.Render(voicelink.Snapshot{Recording: rs})
	}
	select {
	case s := <-feed.C():
		if s.Recording != voicelink.Draining {
			t.Errorf("Recording = %v; want %v", s.Recording, voicelink.Draining)
		}
	default:
		t.Fatal("no snapshot available")
	}
	select {
	case s := <-feed.C():
		t.Errorf("unexpected second snapshot %+v", s)
	default:
	}
}

func TestLineDisplay(t *testing.T) {
	var buf bytes.Buffer
	d := &lineDisplay{w: &buf}
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	d.Render(voicelink.Snapshot{Connection: voicelink.Connected})
	d.Render(voicelink.Snapshot{Connection: voicelink.Connected, Recording: voicelink.Recording})
	d.Render(voicelink.Snapshot{Connection: voicelink.Connected, Recording: voicelink.Processing, Transcript: "hi there"})
	done := voicelink.Snapshot{
		Connection: voicelink.Connected,
		Transcript: "hi there",
		History: []voicelink.Session{{
			ID:             "s1",
			Transcript:     "hi there",
			Response:       make([]byte, 2048),
			StartedAt:      start,
			CompletedAt:    start.Add(1500 * time.Millisecond),
			ChunksCaptured: 6,
			ChunksSent:     6,
		}},
	}
	d.Render(done)
	d.Render(done)
	d.Render(voicelink.Snapshot{Connection: voicelink.Disconnected, ReconnectPending: true, LastError: "Connection lost", History: done.History})

	out := buf.String()
	for _, want := range []string{
		"connection: connected",
		"Ready",
		"Recording...",
		"Processing...",
		`you: hi there`,
		`#1 "hi there" in 1.5s, reply 2.00 KB, sent 6/6 chunks`,
		"connection: disconnected (reconnecting)",
		"error: Connection lost",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "you: hi there"); n != 1 {
		t.Errorf("transcript printed %d times; want 1", n)
	}
	if n := strings.Count(out, "#1 "); n != 1 {
		t.Errorf("session printed %d times; want 1", n)
	}
}
