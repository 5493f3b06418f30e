// voicebot is a push-to-talk voice client for a conversational audio
// processor.
//
// It streams microphone audio to the processor over a websocket, shows the
// transcript and plays the spoken reply.
//
// Usage:
//
//	voicebot run                          # Run with the current context
//	voicebot run -c lab                   # Run with the specified context
//	voicebot run --input question.wav     # Send a WAV file instead of the mic
//	voicebot devices                      # List audio devices
//	voicebot config context set local --endpoint=ws://localhost:8000/ws
//
// Configuration is stored in ~/.voicebot/voicebot/
package main

import (
	"os"

	"github.com/datdao1998/voicebot-demo/cmd/voicebot/commands"
	"github.com/datdao1998/voicebot-demo/pkg/cli"
)

func main() {
	if err := commands.Execute(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}
