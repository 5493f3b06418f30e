package resampler

import "io"

// sampleReader returns data from r in multiples of frameSize bytes,
// holding back a partial frame until it is complete.
type sampleReader struct {
	r         io.Reader
	frameSize int
	partial   []byte
}

func newSampleReader(r io.Reader, frameSize int) *sampleReader {
	return &sampleReader{r: r, frameSize: frameSize, partial: make([]byte, 0, frameSize)}
}

// Read returns 0 or a multiple of frameSize bytes. A partial frame left at
// EOF is reported as io.ErrUnexpectedEOF.
func (sr *sampleReader) Read(p []byte) (int, error) {
	if len(p) < sr.frameSize {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/sr.frameSize*sr.frameSize]
	n := copy(p, sr.partial)
	sr.partial = sr.partial[:0]

	rn, err := sr.r.Read(p[n:])
	n += rn
	if mod := n % sr.frameSize; mod != 0 {
		if err == io.EOF {
			return n - mod, io.ErrUnexpectedEOF
		}
		n -= mod
		sr.partial = append(sr.partial, p[n:n+mod]...)
	}
	return n, err
}
