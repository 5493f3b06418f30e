package voicelink

// Input is a stimulus of the recording state machine.
type Input int

const (
	InputStart Input = iota
	InputCaptureGranted
	InputCaptureFailed
	InputStop
	InputDrained
	InputComplete
	InputRemoteError
	InputDisconnect
)

// String returns the string representation of the input.
func (in Input) String() string {
	switch in {
	case InputStart:
		return "start"
	case InputCaptureGranted:
		return "capture_granted"
	case InputCaptureFailed:
		return "capture_failed"
	case InputStop:
		return "stop"
	case InputDrained:
		return "drained"
	case InputComplete:
		return "complete"
	case InputRemoteError:
		return "remote_error"
	case InputDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Next returns the state after applying in to s. It reports false, and
// returns s unchanged, when the transition is not allowed.
//
//	Idle       --start-----------> Requesting
//	Requesting --capture granted-> Recording
//	Recording  --stop------------> Draining
//	Draining   --drained---------> Processing
//	Processing --complete--------> Idle
//
// Capture failures, remote errors and disconnects lead back to Idle.
func Next(s RecordingState, in Input) (RecordingState, bool) {
	switch in {
	case InputStart:
		if s == Idle {
			return Requesting, true
		}
	case InputCaptureGranted:
		if s == Requesting {
			return Recording, true
		}
	case InputCaptureFailed:
		if s == Requesting || s == Recording {
			return Idle, true
		}
	case InputStop:
		if s == Recording {
			return Draining, true
		}
	case InputDrained:
		if s == Draining {
			return Processing, true
		}
	case InputComplete:
		if s == Processing {
			return Idle, true
		}
	case InputRemoteError:
		if s.InFlight() {
			return Idle, true
		}
	case InputDisconnect:
		return Idle, true
	}
	return s, false
}
