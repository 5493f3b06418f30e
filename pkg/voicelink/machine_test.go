package voicelink

import "testing"

func TestNext(t *testing.T) {
	tests := []struct {
		from RecordingState
		in   Input
		want RecordingState
		ok   bool
	}{
		{Idle, InputStart, Requesting, true},
		{Requesting, InputCaptureGranted, Recording, true},
		{Requesting, InputCaptureFailed, Idle, true},
		{Recording, InputStop, Draining, true},
		{Recording, InputCaptureFailed, Idle, true},
		{Draining, InputDrained, Processing, true},
		{Processing, InputComplete, Idle, true},
		{Recording, InputRemoteError, Idle, true},
		{Draining, InputRemoteError, Idle, true},
		{Processing, InputRemoteError, Idle, true},
		{Recording, InputDisconnect, Idle, true},
		{Idle, InputDisconnect, Idle, true},

		{Requesting, InputStart, Requesting, false},
		{Recording, InputStart, Recording, false},
		{Draining, InputStart, Draining, false},
		{Processing, InputStart, Processing, false},
		{Requesting, InputStop, Requesting, false},
		{Idle, InputStop, Idle, false},
		{Draining, InputStop, Draining, false},
		{Recording, InputComplete, Recording, false},
		{Draining, InputComplete, Draining, false},
		{Idle, InputComplete, Idle, false},
		{Idle, InputRemoteError, Idle, false},
		{Requesting, InputRemoteError, Requesting, false},
		{Idle, InputCaptureGranted, Idle, false},
		{Draining, InputCaptureFailed, Draining, false},
	}
	for _, tt := range tests {
		got, ok := Next(tt.from, tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Next(%v, %v) = %v, %v; want %v, %v", tt.from, tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRecordingState(t *testing.T) {
	tests := []struct {
		s        RecordingState
		name     string
		inFlight bool
		canStart bool
		canSend  bool
	}{
		{Idle, "idle", false, true, false},
		{Requesting, "requesting", false, false, false},
		{Recording, "recording", true, false, true},
		{Draining, "draining", true, false, true},
		{Processing, "processing", true, false, false},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.name {
			t.Errorf("String() = %q; want %q", got, tt.name)
		}
		if got := tt.s.InFlight(); got != tt.inFlight {
			t.Errorf("%v.InFlight() = %v; want %v", tt.s, got, tt.inFlight)
		}
		if got := tt.s.CanStart(); got != tt.canStart {
			t.Errorf("%v.CanStart() = %v; want %v", tt.s, got, tt.canStart)
		}
		if got := tt.s.CanSendAudio(); got != tt.canSend {
			t.Errorf("%v.CanSendAudio() = %v; want %v", tt.s, got, tt.canSend)
		}
		var back RecordingState
		data, _ := tt.s.MarshalJSON()
		if err := back.UnmarshalJSON(data); err != nil || back != tt.s {
			t.Errorf("UnmarshalJSON(%s) = %v, %v; want %v", data, back, err, tt.s)
		}
	}
}

func TestConnectionState_String(t *testing.T) {
	tests := map[ConnectionState]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Connected:    "connected",
		Closing:      "closing",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("String() = %q; want %q", got, want)
		}
		if got := s.IsOpen(); got != (s == Connected) {
			t.Errorf("%v.IsOpen() = %v", s, got)
		}
	}
}
