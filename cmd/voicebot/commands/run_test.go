package commands

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/datdao1998/voicebot-demo/pkg/audio/pcm"
	"github.com/datdao1998/voicebot-demo/pkg/voicelink"
)

// newProcessor serves a websocket that answers every stop_recording with
// replies.
func newProcessor(t *testing.T, replies ...map[string]string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt != websocket.TextMessage {
				continue
			}
			var sig voicelink.ControlSignal
			if json.Unmarshal(data, &sig) != nil || sig.Action != voicelink.ActionStopRecording {
				continue
			}
			for _, reply := range replies {
				if err := conn.WriteJSON(reply); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func runOnceAgainst(t *testing.T, endpoint string) (*voicelink.Controller, error) {
	t.Helper()
	format := pcm.L16Mono16K
	path := filepath.Join(t.TempDir(), "question.wav")
	samples := make([]byte, format.BytesInDuration(100*time.Millisecond))
	if err := os.WriteFile(path, pcm.EncodeWAV(format.Info(), samples), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := voicelink.DefaultConfig()
	cfg.Endpoint = endpoint
	cfg.MaxReconnectAttempts = 1
	feed := newSnapshotFeed()
	ctrl, err := voicelink.New(cfg, voicelink.Options{
		Capture: &fileSource{path: path, format: format},
		Display: feed,
		Logger:  voicelink.SlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	err = runOnce(ctx, ctrl, feed, &lineDisplay{w: io.Discard})
	if ctx.Err() != nil {
		t.Fatal("runOnce did not return before the deadline")
	}
	ctrl.Close()
	<-done
	return ctrl, err
}

func TestRunOnce_Completes(t *testing.T) {
	endpoint := newProcessor(t,
		map[string]string{"type": "transcript", "text": "hello"},
		map[string]string{"type": "complete"},
	)
	ctrl, err := runOnceAgainst(t, endpoint)
	if err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}
	if got := len(ctrl.History()); got != 1 {
		t.Errorf("History = %d sessions; want 1", got)
	}
}

func TestRunOnce_CompleteWithoutTranscript(t *testing.T) {
	endpoint := newProcessor(t, map[string]string{"type": "complete"})
	ctrl, err := runOnceAgainst(t, endpoint)
	if err == nil || !strings.Contains(err.Error(), "No speech recognized") {
		t.Errorf("runOnce() error = %v; want No speech recognized", err)
	}
	if got := len(ctrl.History()); got != 0 {
		t.Errorf("History = %d sessions; want 0", got)
	}
}

func TestRunOnce_RemoteError(t *testing.T) {
	endpoint := newProcessor(t, map[string]string{"type": "error", "message": "model unavailable"})
	_, err := runOnceAgainst(t, endpoint)
	if err == nil || !strings.Contains(err.Error(), "model unavailable") {
		t.Errorf("runOnce() error = %v; want model unavailable", err)
	}
}

func TestUsesPortAudio(t *testing.T) {
	tests := []struct {
		name string
		opts runOptions
		want bool
	}{
		{"microphone and speaker", runOptions{}, true},
		{"microphone muted", runOptions{mute: true}, true},
		{"file input with speaker", runOptions{input: "q.wav"}, true},
		{"file input muted", runOptions{input: "q.wav", mute: true}, false},
		{"file input and file replies", runOptions{input: "q.wav", speakerDir: "out"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := usesPortAudio(&tt.opts); got != tt.want {
				t.Errorf("usesPortAudio() = %v; want %v", got, tt.want)
			}
		})
	}
}
