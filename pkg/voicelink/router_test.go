package voicelink

import (
	"slices"
	"testing"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type handlerCall struct {
	kind string
	arg  string
	data []byte
}

type fakeHandler struct {
	calls []handlerCall
}

func (h *fakeHandler) OnTranscript(text string) {
	h.calls = append(h.calls, handlerCall{kind: "transcript", arg: text})
}

func (h *fakeHandler) OnAudio(payload []byte, format string) {
	h.calls = append(h.calls, handlerCall{kind: "audio", arg: format, data: payload})
}

func (h *fakeHandler) OnComplete() {
	h.calls = append(h.calls, handlerCall{kind: "complete"})
}

func (h *fakeHandler) OnRemoteError(message string) {
	h.calls = append(h.calls, handlerCall{kind: "error", arg: message})
}

func TestRouter_Route(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  []handlerCall
	}{
		{"transcript", TextFrame([]byte(`{"type":"transcript","text":"hi there"}`)), []handlerCall{{kind: "transcript", arg: "hi there"}}},
		{"audio", TextFrame([]byte(`{"type":"audio","data":"AQID","format":"wav"}`)), []handlerCall{{kind: "audio", arg: "wav", data: []byte{1, 2, 3}}}},
		{"complete", TextFrame([]byte(`{"type":"complete"}`)), []handlerCall{{kind: "complete"}}},
		{"error", TextFrame([]byte(`{"type":"error","message":"quota"}`)), []handlerCall{{kind: "error", arg: "quota"}}},
		{"unknown type", TextFrame([]byte(`{"type":"status"}`)), nil},
		{"plain text", TextFrame([]byte("hello from server")), nil},
		{"bad audio", TextFrame([]byte(`{"type":"audio","data":"%%%"}`)), nil},
		{"binary", BinaryFrame([]byte{1, 2, 3}), nil},
	}
	r := NewRouter(nopLogger{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHandler{}
			r.Route(tt.frame, Recording, h)
			if len(h.calls) != len(tt.want) {
				t.Fatalf("calls = %+v; want %+v", h.calls, tt.want)
			}
			for i, want := range tt.want {
				got := h.calls[i]
				if got.kind != want.kind || got.arg != want.arg || !slices.Equal(got.data, want.data) {
					t.Errorf("call %d = %+v; want %+v", i, got, want)
				}
			}
		})
	}
}

func TestRouter_Metrics(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	r := NewRouter(nopLogger{}, metrics)
	h := &fakeHandler{}

	r.Route(BinaryFrame([]byte{1}), Recording, h)
	r.Route(TextFrame([]byte("raw")), Idle, h)
	r.Route(TextFrame([]byte(`{"type":"complete"}`)), Processing, h)
	r.Route(TextFrame([]byte(`{"type":"complete"}`)), Processing, h)

	for label, want := range map[string]float64{"binary": 1, "raw": 1, "complete": 2} {
		if got := testutil.ToFloat64(metrics.FramesReceived.WithLabelValues(label)); got != want {
			t.Errorf("frames received %q = %v; want %v", label, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abcdefgh", 3, "abc..."},
		{"xin chào", 7, "xin ch..."},
		{"日本語", 4, "日..."},
		{"日本語", 2, "..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q; want %q", tt.in, tt.n, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) = %q is not valid UTF-8", tt.in, tt.n, got)
		}
	}
}
