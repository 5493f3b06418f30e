package voicelink

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// FrameType distinguishes binary and text frames.
type FrameType int

const (
	FrameText FrameType = iota + 1
	FrameBinary
)

// String returns the string representation of the frame type.
func (t FrameType) String() string {
	switch t {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Frame is one message unit on the connection.
type Frame struct {
	Type FrameType
	Data []byte
}

// BinaryFrame returns a binary frame carrying data.
func BinaryFrame(data []byte) Frame {
	return Frame{Type: FrameBinary, Data: data}
}

// TextFrame returns a text frame carrying data.
func TextFrame(data []byte) Frame {
	return Frame{Type: FrameText, Data: data}
}

// MessageType is the "type" field of an inbound envelope.
type MessageType string

const (
	MessageTranscript MessageType = "transcript"
	MessageAudio      MessageType = "audio"
	MessageComplete   MessageType = "complete"
	MessageError      MessageType = "error"
)

// Message is an inbound JSON envelope from the processor.
type Message struct {
	Type MessageType `json:"type"`

	// Text is set for transcript messages.
	Text string `json:"text,omitempty"`

	// Data is the base64 audio payload of audio messages.
	Data string `json:"data,omitempty"`

	// Format is the format tag of audio messages (e.g. "wav").
	Format string `json:"format,omitempty"`

	// Message is the reason of error messages.
	Message string `json:"message,omitempty"`
}

// ErrMalformedMessage is returned for text frames that are not an envelope.
var ErrMalformedMessage = errors.New("voicelink: malformed message")

// ParseMessage decodes a text frame into a Message.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return &msg, nil
}

// AudioBytes decodes the base64 payload of an audio message. Both padded and
// unpadded standard encodings are accepted.
func (m *Message) AudioBytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(m.Data)
	if err == nil {
		return b, nil
	}
	if raw, rerr := base64.RawStdEncoding.DecodeString(m.Data); rerr == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("%w: audio data: %v", ErrMalformedMessage, err)
}

// Action is an outbound control signal.
type Action string

const (
	ActionStartRecording Action = "start_recording"
	ActionStopRecording  Action = "stop_recording"
)

// ControlSignal is the outbound JSON envelope.
type ControlSignal struct {
	Action Action `json:"action"`
}

// ControlFrame returns the text frame for action.
func ControlFrame(action Action) Frame {
	data, _ := json.Marshal(ControlSignal{Action: action})
	return TextFrame(data)
}
