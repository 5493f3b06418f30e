package portaudio

import (
	"io"
	"time"

	"github.com/datdao1998/voicebot-demo/pkg/audio/pcm"
)

// InputStream captures 16-bit mono PCM from an input device. It implements
// io.ReadCloser; Read returns io.EOF after Close.
type InputStream struct {
	s      *stream
	format pcm.Format
}

// NewInputStream opens device (DefaultDevice for the host default) for
// recording. bufferDuration is the duration of each blocking read.
func NewInputStream(device int, format pcm.Format, bufferDuration time.Duration) (*InputStream, error) {
	frames := int(format.SamplesInDuration(bufferDuration))
	s, err := openStream(device, true, format.Channels(), float64(format.SampleRate()), frames)
	if err != nil {
		return nil, err
	}
	return &InputStream{s: s, format: format}, nil
}

// Read reads little-endian PCM bytes. It blocks for at most one buffer.
func (is *InputStream) Read(p []byte) (int, error) {
	n, err := is.s.read(p)
	if err == errStreamClosed {
		return 0, io.EOF
	}
	return n, err
}

// Format returns the PCM format.
func (is *InputStream) Format() pcm.Format {
	return is.format
}

// Close stops and closes the stream.
func (is *InputStream) Close() error {
	return is.s.close()
}

// OutputStream plays 16-bit mono PCM on an output device. It implements
// io.WriteCloser.
type OutputStream struct {
	s      *stream
	format pcm.Format
}

// NewOutputStream opens device (DefaultDevice for the host default) for
// playback. bufferDuration is the duration of each blocking write.
func NewOutputStream(device int, format pcm.Format, bufferDuration time.Duration) (*OutputStream, error) {
	frames := int(format.SamplesInDuration(bufferDuration))
	s, err := openStream(device, false, format.Channels(), float64(format.SampleRate()), frames)
	if err != nil {
		return nil, err
	}
	return &OutputStream{s: s, format: format}, nil
}

// Write plays little-endian PCM bytes, blocking until they were queued.
func (os *OutputStream) Write(p []byte) (int, error) {
	total := 0
	for total < len(p)/2*2 {
		n, err := os.s.write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// Format returns the PCM format.
func (os *OutputStream) Format() pcm.Format {
	return os.format
}

// Close stops and closes the stream.
func (os *OutputStream) Close() error {
	return os.s.close()
}
