// Package resampler converts 16-bit PCM between sample rates and between
// mono and stereo, using a pure Go polyphase resampler.
//
// Example usage:
//
//	src := pcm.Info{SampleRate: 22050, Channels: 2, BitsPerSample: 16}
//	r, err := resampler.New(bytes.NewReader(data), src, pcm.L16Mono24K.Info())
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	io.Copy(speaker, r)
package resampler
