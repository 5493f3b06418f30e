package voicelink

// Snapshot is the state handed to a Display.
type Snapshot struct {
	Endpoint         string          `json:"endpoint" yaml:"endpoint"`
	Connection       ConnectionState `json:"connection" yaml:"connection"`
	ReconnectPending bool            `json:"reconnect_pending" yaml:"reconnect_pending"`
	Recording        RecordingState  `json:"recording" yaml:"recording"`

	// Current is the in-flight session, nil when Idle or Requesting.
	Current *Session `json:"current,omitempty" yaml:"current,omitempty"`

	// Transcript is the live transcript. It is kept for a while after the
	// session completed.
	Transcript string `json:"transcript,omitempty" yaml:"transcript,omitempty"`

	// Playing is the id of the session whose response is playing.
	Playing string `json:"playing,omitempty" yaml:"playing,omitempty"`

	// LastError is the most recent user-facing failure reason.
	LastError string `json:"last_error,omitempty" yaml:"last_error,omitempty"`

	History  []Session    `json:"history" yaml:"history"`
	DebugLog []DebugEntry `json:"debug_log" yaml:"debug_log"`
}

// CanStart reports whether the start affordance should be enabled.
func (s Snapshot) CanStart() bool {
	return s.Recording.CanStart()
}

// CanStop reports whether the stop affordance should be enabled.
func (s Snapshot) CanStop() bool {
	return s.Recording == Recording
}

// Display renders snapshots. Render is called from the controller's event
// loop and must not block.
type Display interface {
	Render(Snapshot)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(Snapshot)

// Render implements Display.
func (f DisplayFunc) Render(s Snapshot) {
	f(s)
}
