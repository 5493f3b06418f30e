package voicelink

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned by a CaptureSource when access to the
	// capture device was refused.
	ErrPermissionDenied = errors.New("voicelink: capture permission denied")

	// ErrDeviceNotFound is returned by a CaptureSource when no capture device
	// exists.
	ErrDeviceNotFound = errors.New("voicelink: capture device not found")

	// ErrInvalidEndpoint is returned when the endpoint cannot produce a socket.
	ErrInvalidEndpoint = errors.New("voicelink: invalid endpoint")

	// ErrNotConnected is reported when audio or a start request arrives while
	// the connection is not open.
	ErrNotConnected = errors.New("voicelink: not connected")

	// ErrUnsupportedFormat is returned by Playback for unknown format tags.
	ErrUnsupportedFormat = errors.New("voicelink: unsupported audio format")

	// ErrClosed is returned after the controller has been torn down.
	ErrClosed = errors.New("voicelink: closed")

	// ErrSessionNotFound is returned by Replay for unknown session ids.
	ErrSessionNotFound = errors.New("voicelink: session not found")
)

// CaptureErrorKind classifies capture failures.
type CaptureErrorKind int

const (
	CaptureErrorOther CaptureErrorKind = iota
	CaptureErrorPermissionDenied
	CaptureErrorDeviceNotFound
)

// String returns the string representation of the kind.
func (k CaptureErrorKind) String() string {
	switch k {
	case CaptureErrorPermissionDenied:
		return "permission_denied"
	case CaptureErrorDeviceNotFound:
		return "device_not_found"
	default:
		return "other"
	}
}

// Reason returns the user-facing reason for the kind.
func (k CaptureErrorKind) Reason() string {
	switch k {
	case CaptureErrorPermissionDenied:
		return "Permission denied"
	case CaptureErrorDeviceNotFound:
		return "No microphone found"
	default:
		return "Could not access microphone"
	}
}

// CaptureError is a classified capture failure.
type CaptureError struct {
	Kind CaptureErrorKind
	Err  error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("voicelink: capture %s", e.Kind)
	}
	return fmt.Sprintf("voicelink: capture %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *CaptureError) Unwrap() error {
	return e.Err
}

// AsCaptureError extracts a CaptureError from err.
func AsCaptureError(err error) (*CaptureError, bool) {
	var e *CaptureError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// classifyCaptureError maps a device error onto the capture taxonomy.
func classifyCaptureError(err error) *CaptureError {
	if e, ok := AsCaptureError(err); ok {
		return e
	}
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return &CaptureError{Kind: CaptureErrorPermissionDenied, Err: err}
	case errors.Is(err, ErrDeviceNotFound):
		return &CaptureError{Kind: CaptureErrorDeviceNotFound, Err: err}
	default:
		return &CaptureError{Kind: CaptureErrorOther, Err: err}
	}
}
