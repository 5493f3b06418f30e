// Package voicelink implements the client side of a conversational voice
// pipeline.
//
// A Controller owns one duplex websocket connection to a remote processor, a
// capture device and a playback device. Microphone audio is streamed to the
// processor as binary frames while recording; the processor answers with JSON
// text frames carrying the transcript, the synthesized reply audio and a
// completion marker.
//
// All state transitions run on a single goroutine that consumes a typed event
// mailbox. Sockets, capture devices, timers and the Display only post events,
// so the recording state machine can be exercised without any of them.
//
// Example usage:
//
//	ctrl, err := voicelink.New(voicelink.DefaultConfig(), voicelink.Options{
//	    Capture: micSource,
//	    Speaker: speaker,
//	    Display: display,
//	})
//	if err != nil {
//	    return err
//	}
//	go ctrl.Run(ctx)
//	defer ctrl.Close()
//
//	ctrl.Start() // begin a recording
//	ctrl.Stop()  // stop, drain and wait for the reply
package voicelink
