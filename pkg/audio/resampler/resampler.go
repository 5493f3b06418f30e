package resampler

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/datdao1998/voicebot-demo/pkg/audio/pcm"
)

// Resampler reads PCM in the source format and yields it in the destination
// format. It must be closed to release its state.
type Resampler struct {
	src    io.Reader
	srcFmt pcm.Info
	dstFmt pcm.Info

	mu        sync.Mutex
	closeErr  error
	rs        resampling.Resampler
	readBuf   []byte
	leftover  []byte
	resamples bool

	// Samples fed to and taken from rs, for sizing the flushed tail.
	samplesIn  int
	samplesOut int
	flushed    bool
}

// New creates a Resampler reading from src. Both formats must be valid
// 16-bit mono or stereo PCM.
func New(src io.Reader, srcFmt, dstFmt pcm.Info) (*Resampler, error) {
	if err := srcFmt.Validate(); err != nil {
		return nil, fmt.Errorf("resampler: source: %w", err)
	}
	if err := dstFmt.Validate(); err != nil {
		return nil, fmt.Errorf("resampler: destination: %w", err)
	}

	r := &Resampler{
		src:       newSampleReader(src, srcFmt.FrameSize()),
		srcFmt:    srcFmt,
		dstFmt:    dstFmt,
		resamples: srcFmt.SampleRate != dstFmt.SampleRate,
	}
	if r.resamples {
		rs, err := resampling.New(&resampling.Config{
			InputRate:  float64(srcFmt.SampleRate),
			OutputRate: float64(dstFmt.SampleRate),
			Channels:   dstFmt.Channels,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("resampler: %w", err)
		}
		r.rs = rs
	}
	return r, nil
}

// Convert resamples a complete buffer.
func Convert(data []byte, srcFmt, dstFmt pcm.Info) ([]byte, error) {
	r, err := New(bytes.NewReader(data), srcFmt, dstFmt)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Read fills p with converted audio. It always returns whole frames of the
// destination format.
func (r *Resampler) Read(p []byte) (int, error) {
	frame := r.dstFmt.FrameSize()
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) < frame {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/frame*frame]

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.leftover) > 0 {
		n := copy(p, r.leftover)
		r.leftover = r.leftover[n:]
		return n, nil
	}
	if r.closeErr != nil {
		return 0, r.closeErr
	}
	if !r.resamples {
		return r.readChannels(p, len(p))
	}
	return r.readResampled(p)
}

func (r *Resampler) readResampled(p []byte) (int, error) {
	if r.flushed {
		return 0, io.EOF
	}
	ratio := float64(r.srcFmt.SampleRate) / float64(r.dstFmt.SampleRate)
	want := int(float64(len(p))*ratio) + r.dstFmt.FrameSize()*4
	want = want / r.dstFmt.FrameSize() * r.dstFmt.FrameSize()

	n, readErr := r.readChannels(nil, want)
	if readErr != nil && readErr != io.EOF {
		return 0, readErr
	}
	if n == 0 && readErr == nil {
		return 0, nil
	}

	var out []float64
	if n > 0 {
		in := make([]float64, n/2)
		for i, s := range pcm.BytesToInt16(r.readBuf[:n]) {
			in[i] = float64(s) / 32768.0
		}
		r.samplesIn += len(in)
		var err error
		if out, err = r.rs.Process(in); err != nil {
			return 0, fmt.Errorf("resampler: %w", err)
		}
	}
	if readErr == io.EOF {
		tail, err := r.rs.Flush()
		if err != nil {
			return 0, fmt.Errorf("resampler: flush: %w", err)
		}
		out = r.fitTail(append(out, tail...))
		r.flushed = true
	}
	r.samplesOut += len(out)

	samples := make([]int16, len(out))
	for i, s := range out {
		samples[i] = int16(math.Max(-32768, math.Min(32767, s*32767.0)))
	}
	b := pcm.Int16ToBytes(samples)
	b = b[:len(b)/r.dstFmt.FrameSize()*r.dstFmt.FrameSize()]

	c := copy(p, b)
	if c < len(b) {
		r.leftover = append(r.leftover, b[c:]...)
	}
	if c == 0 && r.flushed {
		return 0, io.EOF
	}
	return c, nil
}

// fitTail trims or pads the final output so the total matches the input
// duration at the destination rate.
func (r *Resampler) fitTail(out []float64) []float64 {
	total := int(math.Round(float64(r.samplesIn) * float64(r.dstFmt.SampleRate) / float64(r.srcFmt.SampleRate)))
	need := max(total-r.samplesOut, 0)
	if len(out) > need {
		return out[:need]
	}
	return append(out, make([]float64, need-len(out))...)
}

// readChannels reads dstLen bytes worth of destination-channel audio into
// r.readBuf, converting channels, and copies it into p when p is not nil.
func (r *Resampler) readChannels(p []byte, dstLen int) (int, error) {
	srcLen := dstLen
	switch {
	case r.srcFmt.Channels == 2 && r.dstFmt.Channels == 1:
		srcLen = dstLen * 2
	case r.srcFmt.Channels == 1 && r.dstFmt.Channels == 2:
		srcLen = dstLen / 2
	}
	// Room for in-place upmixing.
	if cap(r.readBuf) < max(srcLen, dstLen) {
		r.readBuf = make([]byte, max(srcLen, dstLen))
	}
	r.readBuf = r.readBuf[:cap(r.readBuf)]

	n, err := r.src.Read(r.readBuf[:srcLen])
	if n == 0 {
		return 0, err
	}
	switch {
	case r.srcFmt.Channels == 2 && r.dstFmt.Channels == 1:
		n = stereoToMono(r.readBuf[:n])
	case r.srcFmt.Channels == 1 && r.dstFmt.Channels == 2:
		n = monoToStereo(r.readBuf, n)
	}
	if p != nil {
		copy(p, r.readBuf[:n])
	}
	return n, err
}

// Close releases the resampler. Further reads return io.ErrClosedPipe.
func (r *Resampler) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeErr == nil {
		r.closeErr = fmt.Errorf("resampler: %w", io.ErrClosedPipe)
	}
	r.rs = nil
	r.leftover = nil
	return nil
}

// stereoToMono averages L and R in place and returns the mono length.
func stereoToMono(b []byte) int {
	frames := len(b) / 4
	for i := range frames {
		l := int16(b[i*4]) | int16(b[i*4+1])<<8
		r := int16(b[i*4+2]) | int16(b[i*4+3])<<8
		m := int16((int32(l) + int32(r)) / 2)
		b[i*2] = byte(m)
		b[i*2+1] = byte(m >> 8)
	}
	return frames * 2
}

// monoToStereo duplicates the first n bytes of mono samples in place and
// returns the stereo length. b must hold 2n bytes.
func monoToStereo(b []byte, n int) int {
	samples := n / 2
	for i := samples - 1; i >= 0; i-- {
		s0, s1 := b[i*2], b[i*2+1]
		b[i*4], b[i*4+1] = s0, s1
		b[i*4+2], b[i*4+3] = s0, s1
	}
	return samples * 4
}
