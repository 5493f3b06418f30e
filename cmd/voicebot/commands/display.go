package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/datdao1998/voicebot-demo/pkg/cli"
	"github.com/datdao1998/voicebot-demo/pkg/voicelink"
)

// snapshotFeed is a Display that keeps only the newest snapshot for a
// slower consumer. Render never blocks.
type snapshotFeed struct {
	ch chan voicelink.Snapshot
}

func newSnapshotFeed() *snapshotFeed {
	return &snapshotFeed{ch: make(chan voicelink.Snapshot, 1)}
}

// Render implements voicelink.Display. It must be called from a single
// goroutine.
func (f *snapshotFeed) Render(s voicelink.Snapshot) {
	select {
	case <-f.ch:
	default:
	}
	f.ch <- s
}

// C returns the channel carrying the newest snapshot.
func (f *snapshotFeed) C() <-chan voicelink.Snapshot {
	return f.ch
}

// lineDisplay prints one line per visible change of the snapshot.
type lineDisplay struct {
	w    io.Writer
	last voicelink.Snapshot
	seen int
	init bool
}

func (d *lineDisplay) Render(s voicelink.Snapshot) {
	prev := d.last
	d.last = s
	if !d.init || prev.Connection != s.Connection || prev.ReconnectPending != s.ReconnectPending {
		fmt.Fprintf(d.w, "[%s] connection: %s\n", clock(), connectionLabel(s))
	}
	if !d.init || prev.Recording != s.Recording {
		fmt.Fprintf(d.w, "[%s] %s\n", clock(), recordingLabel(s.Recording))
	}
	if s.Transcript != "" && s.Transcript != prev.Transcript {
		fmt.Fprintf(d.w, "[%s] you: %s\n", clock(), s.Transcript)
	}
	if s.LastError != "" && s.LastError != prev.LastError {
		fmt.Fprintf(d.w, "[%s] error: %s\n", clock(), s.LastError)
	}
	for _, sess := range s.History[min(d.seen, len(s.History)):] {
		fmt.Fprintf(d.w, "[%s] #%d %s\n", clock(), d.seen+1, sessionLine(sess))
		d.seen++
	}
	d.init = true
}

func clock() string {
	return time.Now().Format("15:04:05")
}

func connectionLabel(s voicelink.Snapshot) string {
	label := s.Connection.String()
	if s.ReconnectPending {
		label += " (reconnecting)"
	}
	return label
}

func recordingLabel(rs voicelink.RecordingState) string {
	switch rs {
	case voicelink.Idle:
		return "Ready"
	case voicelink.Requesting:
		return "Requesting microphone..."
	case voicelink.Recording:
		return "Recording..."
	case voicelink.Draining:
		return "Finishing..."
	case voicelink.Processing:
		return "Processing..."
	}
	return rs.String()
}

func sessionLine(s voicelink.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q", s.Transcript)
	if d := s.Duration(); d > 0 {
		fmt.Fprintf(&b, " in %s", cli.FormatDuration(d))
	}
	if s.HasResponse() {
		fmt.Fprintf(&b, ", reply %s", cli.FormatBytes(int64(s.ResponseBytes())))
	}
	fmt.Fprintf(&b, ", sent %d/%d chunks", s.ChunksSent, s.ChunksCaptured)
	return b.String()
}
