// Package portaudio binds the PortAudio library for microphone capture and
// speaker playback of 16-bit PCM.
//
// Building requires PortAudio installed via pkg-config (brew install
// portaudio, apt install portaudio19-dev).
package portaudio

/*
#cgo pkg-config: portaudio-2.0

#include <portaudio.h>
#include <stdlib.h>
#include <string.h>

// Wrappers using void* to avoid CGO type issues with PaStream.
static PaError pa_open_stream(void **stream,
                              const PaStreamParameters *inputParams,
                              const PaStreamParameters *outputParams,
                              double sampleRate,
                              unsigned long framesPerBuffer,
                              PaStreamFlags streamFlags) {
    return Pa_OpenStream((PaStream**)stream, inputParams, outputParams, sampleRate,
                         framesPerBuffer, streamFlags, NULL, NULL);
}

static PaError pa_start_stream(void *stream) {
    return Pa_StartStream((PaStream*)stream);
}

static PaError pa_stop_stream(void *stream) {
    return Pa_StopStream((PaStream*)stream);
}

static PaError pa_close_stream(void *stream) {
    return Pa_CloseStream((PaStream*)stream);
}

static PaError pa_read_stream(void *stream, void *buffer, unsigned long frames) {
    return Pa_ReadStream((PaStream*)stream, buffer, frames);
}

static PaError pa_write_stream(void *stream, const void *buffer, unsigned long frames) {
    return Pa_WriteStream((PaStream*)stream, buffer, frames);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

var (
	initOnce sync.Once
	initErr  error
)

// ErrNoDevice is returned when the requested device does not exist.
var ErrNoDevice = errors.New("portaudio: no such device")

// Error is a PortAudio error code with its text.
type Error struct {
	Code int
	Text string
}

func (e *Error) Error() string {
	return "portaudio: " + e.Text
}

// Is reports device errors as ErrNoDevice.
func (e *Error) Is(target error) bool {
	if target != ErrNoDevice {
		return false
	}
	switch C.PaError(e.Code) {
	case C.paInvalidDevice, C.paDeviceUnavailable, C.paInvalidChannelCount:
		return true
	}
	return false
}

// paError converts a PortAudio error code to a Go error.
func paError(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}
	return &Error{Code: int(code), Text: C.GoString(C.Pa_GetErrorText(code))}
}

// Initialize initializes the PortAudio library.
// It is safe to call multiple times.
func Initialize() error {
	initOnce.Do(func() {
		initErr = paError(C.Pa_Initialize())
	})
	return initErr
}

// Terminate terminates the PortAudio library.
func Terminate() error {
	return paError(C.Pa_Terminate())
}

// DeviceInfo contains information about an audio device.
type DeviceInfo struct {
	Index             int     `json:"index" yaml:"index"`
	Name              string  `json:"name" yaml:"name"`
	MaxInputChannels  int     `json:"max_input_channels" yaml:"max_input_channels"`
	MaxOutputChannels int     `json:"max_output_channels" yaml:"max_output_channels"`
	DefaultSampleRate float64 `json:"default_sample_rate" yaml:"default_sample_rate"`
	IsDefaultInput    bool    `json:"default_input,omitempty" yaml:"default_input,omitempty"`
	IsDefaultOutput   bool    `json:"default_output,omitempty" yaml:"default_output,omitempty"`
}

// Devices returns a list of available audio devices.
func Devices() ([]DeviceInfo, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	count := int(C.Pa_GetDeviceCount())
	if count < 0 {
		return nil, paError(C.PaError(count))
	}

	defaultInput := int(C.Pa_GetDefaultInputDevice())
	defaultOutput := int(C.Pa_GetDefaultOutputDevice())

	devices := make([]DeviceInfo, 0, count)
	for i := 0; i < count; i++ {
		info := C.Pa_GetDeviceInfo(C.PaDeviceIndex(i))
		if info == nil {
			continue
		}
		devices = append(devices, DeviceInfo{
			Index:             i,
			Name:              C.GoString(info.name),
			MaxInputChannels:  int(info.maxInputChannels),
			MaxOutputChannels: int(info.maxOutputChannels),
			DefaultSampleRate: float64(info.defaultSampleRate),
			IsDefaultInput:    i == defaultInput,
			IsDefaultOutput:   i == defaultOutput,
		})
	}
	return devices, nil
}

// DefaultDevice is the device index that selects the host default.
const DefaultDevice = -1

// stream is an open blocking PortAudio stream.
type stream struct {
	mu         sync.Mutex
	pa         unsafe.Pointer
	buffer     unsafe.Pointer
	bufferSize int
	closed     bool
}

// openStream opens a blocking stream on device for input (channels > 0 in
// input) or output.
func openStream(device int, input bool, channels int, sampleRate float64, framesPerBuffer int) (*stream, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	idx := C.PaDeviceIndex(device)
	if device == DefaultDevice {
		if input {
			idx = C.Pa_GetDefaultInputDevice()
		} else {
			idx = C.Pa_GetDefaultOutputDevice()
		}
	}
	if idx == C.paNoDevice {
		return nil, ErrNoDevice
	}
	info := C.Pa_GetDeviceInfo(idx)
	if info == nil {
		return nil, fmt.Errorf("%w: index %d", ErrNoDevice, device)
	}

	params := &C.PaStreamParameters{
		device:                    idx,
		channelCount:              C.int(channels),
		sampleFormat:              C.paInt16,
		hostApiSpecificStreamInfo: nil,
	}
	var inputParams, outputParams *C.PaStreamParameters
	if input {
		params.suggestedLatency = info.defaultLowInputLatency
		inputParams = params
	} else {
		params.suggestedLatency = info.defaultLowOutputLatency
		outputParams = params
	}

	var pa unsafe.Pointer
	err := paError(C.pa_open_stream(
		&pa,
		inputParams,
		outputParams,
		C.double(sampleRate),
		C.ulong(framesPerBuffer),
		C.paClipOff,
	))
	if err != nil {
		return nil, err
	}
	if err := paError(C.pa_start_stream(pa)); err != nil {
		C.pa_close_stream(pa)
		return nil, err
	}

	size := framesPerBuffer * channels * 2
	return &stream{
		pa:         pa,
		buffer:     C.malloc(C.size_t(size)),
		bufferSize: size,
	}, nil
}

// read fills p (at most bufferSize bytes, whole frames) from an input stream.
func (s *stream) read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errStreamClosed
	}
	n := min(len(p), s.bufferSize) / 2 * 2
	if n == 0 {
		return 0, nil
	}
	if err := paError(C.pa_read_stream(s.pa, s.buffer, C.ulong(n/2))); err != nil {
		return 0, err
	}
	C.memcpy(unsafe.Pointer(&p[0]), s.buffer, C.size_t(n))
	return n, nil
}

// write plays p (at most bufferSize bytes, whole frames) on an output stream.
func (s *stream) write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errStreamClosed
	}
	n := min(len(p), s.bufferSize) / 2 * 2
	if n == 0 {
		return 0, nil
	}
	C.memcpy(s.buffer, unsafe.Pointer(&p[0]), C.size_t(n))
	if err := paError(C.pa_write_stream(s.pa, s.buffer, C.ulong(n/2))); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *stream) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	C.pa_stop_stream(s.pa)
	err := paError(C.pa_close_stream(s.pa))
	C.free(s.buffer)
	return err
}

var errStreamClosed = errors.New("portaudio: stream closed")
