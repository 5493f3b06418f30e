package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const wavHeaderSize = 44

// ErrNotWAV is returned for data without a RIFF/WAVE header.
var ErrNotWAV = errors.New("pcm: not a WAV file")

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// DecodeWAV parses a RIFF/WAVE payload and returns its format and the PCM
// data. Chunks other than "fmt " and "data" are skipped. Only 16-bit integer
// PCM is accepted.
func DecodeWAV(data []byte) (Info, []byte, error) {
	if !IsWAV(data) {
		return Info{}, nil, ErrNotWAV
	}

	var (
		info    Info
		haveFmt bool
	)
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		end := body + size
		if size < 0 || end > len(data) {
			if id == "data" && haveFmt {
				// Streamed WAVs may carry a placeholder size.
				end = len(data)
			} else {
				return Info{}, nil, fmt.Errorf("pcm: truncated %q chunk", id)
			}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Info{}, nil, fmt.Errorf("pcm: fmt chunk too short: %d", size)
			}
			audioFormat := binary.LittleEndian.Uint16(data[body:])
			if audioFormat != 1 {
				return Info{}, nil, fmt.Errorf("pcm: unsupported audio format %d (only PCM is supported)", audioFormat)
			}
			info = Info{
				Channels:      int(binary.LittleEndian.Uint16(data[body+2:])),
				SampleRate:    int(binary.LittleEndian.Uint32(data[body+4:])),
				BitsPerSample: int(binary.LittleEndian.Uint16(data[body+14:])),
			}
			if err := info.Validate(); err != nil {
				return Info{}, nil, err
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return Info{}, nil, errors.New("pcm: data chunk before fmt chunk")
			}
			payload := data[body:end]
			payload = payload[:len(payload)/info.FrameSize()*info.FrameSize()]
			return info, payload, nil
		}

		// Chunks are padded to an even size.
		off = end + size%2
	}
	if !haveFmt {
		return Info{}, nil, errors.New("pcm: missing fmt chunk")
	}
	return Info{}, nil, errors.New("pcm: missing data chunk")
}

// EncodeWAV returns data wrapped in a canonical 44-byte WAV header.
func EncodeWAV(info Info, data []byte) []byte {
	out := make([]byte, wavHeaderSize+len(data))
	putHeader(out, info, len(data))
	copy(out[wavHeaderSize:], data)
	return out
}

func putHeader(b []byte, info Info, dataSize int) {
	copy(b[0:4], "RIFF")
	binary.LittleEndian.PutUint32(b[4:8], uint32(36+dataSize))
	copy(b[8:12], "WAVE")
	copy(b[12:16], "fmt ")
	binary.LittleEndian.PutUint32(b[16:20], 16)
	binary.LittleEndian.PutUint16(b[20:22], 1)
	binary.LittleEndian.PutUint16(b[22:24], uint16(info.Channels))
	binary.LittleEndian.PutUint32(b[24:28], uint32(info.SampleRate))
	binary.LittleEndian.PutUint32(b[28:32], uint32(info.ByteRate()))
	binary.LittleEndian.PutUint16(b[32:34], uint16(info.FrameSize()))
	binary.LittleEndian.PutUint16(b[34:36], uint16(info.BitsPerSample))
	copy(b[36:40], "data")
	binary.LittleEndian.PutUint32(b[40:44], uint32(dataSize))
}

// WAVWriter streams PCM data into a WAV file. The header sizes are patched
// when the writer is closed.
type WAVWriter struct {
	w    io.WriteSeeker
	info Info
	n    int
	err  error
}

// NewWAVWriter writes a provisional header to w and returns a writer for the
// PCM data that follows it.
func NewWAVWriter(w io.WriteSeeker, info Info) (*WAVWriter, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	var hdr [wavHeaderSize]byte
	putHeader(hdr[:], info, 0)
	if _, err := w.Write(hdr[:]); err != nil {
		return nil, fmt.Errorf("pcm: write WAV header: %w", err)
	}
	return &WAVWriter{w: w, info: info}, nil
}

// Write appends PCM data.
func (ww *WAVWriter) Write(p []byte) (int, error) {
	if ww.err != nil {
		return 0, ww.err
	}
	n, err := ww.w.Write(p)
	ww.n += n
	if err != nil {
		ww.err = err
	}
	return n, err
}

// Len returns the number of PCM bytes written.
func (ww *WAVWriter) Len() int {
	return ww.n
}

// Close patches the header sizes. It does not close the underlying writer.
func (ww *WAVWriter) Close() error {
	if ww.err != nil {
		return ww.err
	}
	var hdr [wavHeaderSize]byte
	putHeader(hdr[:], ww.info, ww.n)
	if _, err := ww.w.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("pcm: seek WAV header: %w", err)
	}
	if _, err := ww.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("pcm: patch WAV header: %w", err)
	}
	_, err := ww.w.Seek(0, io.SeekEnd)
	ww.err = errors.New("pcm: WAV writer closed")
	return err
}
