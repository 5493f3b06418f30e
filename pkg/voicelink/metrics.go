package voicelink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics of a Controller. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Transport
	FramesSent      *prometheus.CounterVec
	FramesDropped   *prometheus.CounterVec
	FramesReceived  *prometheus.CounterVec
	BytesSent       prometheus.Counter
	Reconnects      prometheus.Counter
	ConnectionState prometheus.Gauge

	// Capture
	ChunksCaptured prometheus.Counter
	CaptureErrors  *prometheus.CounterVec

	// Sessions
	RecordingState  prometheus.Gauge
	Sessions        *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	// Playback
	Playbacks        prometheus.Counter
	PlaybackFailures prometheus.Counter
}

// NewMetrics creates all metrics and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		FramesSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicelink_frames_sent_total",
			Help: "Total number of frames written to the connection",
		}, []string{"kind"}),
		FramesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicelink_frames_dropped_total",
			Help: "Total number of outbound frames dropped",
		}, []string{"reason"}),
		FramesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicelink_frames_received_total",
			Help: "Total number of inbound frames by message type",
		}, []string{"type"}),
		BytesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_audio_bytes_sent_total",
			Help: "Total number of audio bytes sent",
		}),
		Reconnects: f.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_reconnects_scheduled_total",
			Help: "Total number of reconnect attempts scheduled",
		}),
		ConnectionState: f.NewGauge(prometheus.GaugeOpts{
			Name: "voicelink_connection_state",
			Help: "Current connection state (0=disconnected, 1=connecting, 2=connected, 3=closing)",
		}),
		ChunksCaptured: f.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_chunks_captured_total",
			Help: "Total number of non-empty capture chunks",
		}),
		CaptureErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicelink_capture_errors_total",
			Help: "Total number of capture failures by kind",
		}, []string{"kind"}),
		RecordingState: f.NewGauge(prometheus.GaugeOpts{
			Name: "voicelink_recording_state",
			Help: "Current recording state (0=idle, 1=requesting, 2=recording, 3=draining, 4=processing)",
		}),
		Sessions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicelink_sessions_total",
			Help: "Total number of sessions by outcome",
		}, []string{"outcome"}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicelink_session_duration_seconds",
			Help:    "Time from recording start to completion",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		Playbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_playbacks_total",
			Help: "Total number of playbacks started",
		}),
		PlaybackFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_playback_failures_total",
			Help: "Total number of failed playbacks",
		}),
	}
}

func (m *Metrics) frameSent(kind string, n int) {
	if m == nil {
		return
	}
	m.FramesSent.WithLabelValues(kind).Inc()
	if kind == "binary" {
		m.BytesSent.Add(float64(n))
	}
}

func (m *Metrics) frameDropped(reason string) {
	if m == nil {
		return
	}
	m.FramesDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) frameReceived(typ string) {
	if m == nil {
		return
	}
	m.FramesReceived.WithLabelValues(typ).Inc()
}

func (m *Metrics) reconnectScheduled() {
	if m == nil {
		return
	}
	m.Reconnects.Inc()
}

func (m *Metrics) connectionState(s ConnectionState) {
	if m == nil {
		return
	}
	m.ConnectionState.Set(float64(s))
}

func (m *Metrics) chunkCaptured() {
	if m == nil {
		return
	}
	m.ChunksCaptured.Inc()
}

func (m *Metrics) captureError(kind CaptureErrorKind) {
	if m == nil {
		return
	}
	m.CaptureErrors.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) recordingState(s RecordingState) {
	if m == nil {
		return
	}
	m.RecordingState.Set(float64(s))
}

func (m *Metrics) sessionEnded(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(outcome).Inc()
	if outcome == "completed" {
		m.SessionDuration.Observe(seconds)
	}
}

func (m *Metrics) playback(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.PlaybackFailures.Inc()
		return
	}
	m.Playbacks.Inc()
}
