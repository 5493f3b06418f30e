// Package pcm describes 16-bit linear PCM audio formats and reads and writes
// them as RIFF/WAVE data.
//
// Format enumerates the mono formats the capture and playback devices run
// at. Info describes arbitrary PCM found in a WAV payload; it is what the
// resampler converts from.
package pcm
