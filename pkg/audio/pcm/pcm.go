package pcm

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// L16Mono16K represents audio/L16; rate=16000; channels=1
	L16Mono16K Format = iota
	// L16Mono24K represents audio/L16; rate=24000; channels=1
	L16Mono24K
	// L16Mono48K represents audio/L16; rate=48000; channels=1
	L16Mono48K
)

// Format represents a mono 16-bit device format.
type Format int

// FormatForRate returns the Format with the given sample rate.
func FormatForRate(rate int) (Format, error) {
	switch rate {
	case 16000:
		return L16Mono16K, nil
	case 24000:
		return L16Mono24K, nil
	case 48000:
		return L16Mono48K, nil
	}
	return 0, fmt.Errorf("pcm: unsupported sample rate %d", rate)
}

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono16K:
		return 16000
	case L16Mono24K:
		return 24000
	case L16Mono48K:
		return 48000
	}
	panic("pcm: invalid audio type")
}

// Channels returns the number of audio channels for this format.
func (f Format) Channels() int {
	return 1
}

// Depth returns the bit depth for this format.
func (f Format) Depth() int {
	return 16
}

// Info returns the format as an Info.
func (f Format) Info() Info {
	return Info{SampleRate: f.SampleRate(), Channels: f.Channels(), BitsPerSample: f.Depth()}
}

// SamplesInDuration returns the number of samples in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * int64(f.Channels()) * int64(f.Depth()) / 8
}

// Duration returns the duration of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	return f.Info().Duration(bytes)
}

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=1", f.SampleRate())
}

// Info describes 16-bit PCM data of any rate and channel count.
type Info struct {
	SampleRate    int `json:"sample_rate" yaml:"sample_rate"`
	Channels      int `json:"channels" yaml:"channels"`
	BitsPerSample int `json:"bits_per_sample" yaml:"bits_per_sample"`
}

// FrameSize returns the number of bytes of one sample across all channels.
func (i Info) FrameSize() int {
	return i.Channels * i.BitsPerSample / 8
}

// ByteRate returns the number of bytes per second.
func (i Info) ByteRate() int {
	return i.SampleRate * i.FrameSize()
}

// Duration returns the duration of the given number of bytes.
func (i Info) Duration(bytes int64) time.Duration {
	if i.ByteRate() == 0 {
		return 0
	}
	return time.Duration(bytes) * time.Second / time.Duration(i.ByteRate())
}

// Validate checks that the data can be played or resampled.
func (i Info) Validate() error {
	if i.SampleRate <= 0 {
		return fmt.Errorf("pcm: invalid sample rate %d", i.SampleRate)
	}
	if i.Channels != 1 && i.Channels != 2 {
		return fmt.Errorf("pcm: unsupported channel count %d", i.Channels)
	}
	if i.BitsPerSample != 16 {
		return fmt.Errorf("pcm: unsupported bit depth %d", i.BitsPerSample)
	}
	return nil
}

// Int16ToBytes encodes samples as little-endian bytes.
func Int16ToBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}

// BytesToInt16 decodes little-endian bytes into samples. A trailing odd byte
// is ignored.
func BytesToInt16(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}
