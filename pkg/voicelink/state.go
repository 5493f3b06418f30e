package voicelink

import "encoding/json"

// ConnectionState is the state of the duplex connection to the processor.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Closing
)

// String returns the string representation of the state.
func (cs ConnectionState) String() string {
	switch cs {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	default:
		return "disconnected"
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (cs *ConnectionState) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "connecting":
		*cs = Connecting
	case "connected":
		*cs = Connected
	case "closing":
		*cs = Closing
	default:
		*cs = Disconnected
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (cs ConnectionState) MarshalJSON() ([]byte, error) {
	return json.Marshal(cs.String())
}

// IsOpen reports whether frames can be sent.
func (cs ConnectionState) IsOpen() bool {
	return cs == Connected
}

// RecordingState is the state of the recording lifecycle.
type RecordingState int

const (
	Idle RecordingState = iota
	Requesting
	Recording
	Draining
	Processing
)

// String returns the string representation of the state.
func (rs RecordingState) String() string {
	switch rs {
	case Requesting:
		return "requesting"
	case Recording:
		return "recording"
	case Draining:
		return "draining"
	case Processing:
		return "processing"
	default:
		return "idle"
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (rs *RecordingState) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "requesting":
		*rs = Requesting
	case "recording":
		*rs = Recording
	case "draining":
		*rs = Draining
	case "processing":
		*rs = Processing
	default:
		*rs = Idle
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (rs RecordingState) MarshalJSON() ([]byte, error) {
	return json.Marshal(rs.String())
}

// InFlight reports whether a Session exists in this state.
func (rs RecordingState) InFlight() bool {
	switch rs {
	case Recording, Draining, Processing:
		return true
	}
	return false
}

// CanStart reports whether a new recording may be requested.
func (rs RecordingState) CanStart() bool {
	return rs == Idle
}

// CanSendAudio reports whether captured audio may go out in this state.
func (rs RecordingState) CanSendAudio() bool {
	return rs == Recording || rs == Draining
}
