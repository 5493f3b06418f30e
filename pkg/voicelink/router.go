package voicelink

import "unicode/utf8"

// Handler receives the messages a Router dispatches.
type Handler interface {
	OnTranscript(text string)
	OnAudio(payload []byte, format string)
	OnComplete()
	OnRemoteError(message string)
}

// Router decodes inbound frames and dispatches them to a Handler.
type Router struct {
	logger  Logger
	metrics *Metrics
}

// NewRouter creates a Router. A nil logger uses DefaultLogger.
func NewRouter(logger Logger, metrics *Metrics) *Router {
	if logger == nil {
		logger = DefaultLogger()
	}
	return &Router{logger: logger, metrics: metrics}
}

// Route dispatches one inbound frame. state is the recording state at the
// time the frame is handled.
func (r *Router) Route(f Frame, state RecordingState, h Handler) {
	if f.Type == FrameBinary {
		r.metrics.frameReceived("binary")
		if state == Recording {
			r.logger.DebugPrintf("echo: %d bytes discarded", len(f.Data))
		} else {
			r.logger.DebugPrintf("binary frame (%d bytes) discarded in state %s", len(f.Data), state)
		}
		return
	}

	msg, err := ParseMessage(f.Data)
	if err != nil {
		r.metrics.frameReceived("raw")
		r.logger.InfoPrintf("received: %s", truncate(string(f.Data), 200))
		return
	}

	switch msg.Type {
	case MessageTranscript:
		r.metrics.frameReceived(string(msg.Type))
		h.OnTranscript(msg.Text)
	case MessageAudio:
		payload, err := msg.AudioBytes()
		if err != nil {
			r.metrics.frameReceived("malformed")
			r.logger.WarnPrintf("audio message ignored: %v", err)
			return
		}
		r.metrics.frameReceived(string(msg.Type))
		h.OnAudio(payload, msg.Format)
	case MessageComplete:
		r.metrics.frameReceived(string(msg.Type))
		h.OnComplete()
	case MessageError:
		r.metrics.frameReceived(string(msg.Type))
		h.OnRemoteError(msg.Message)
	default:
		r.metrics.frameReceived("unknown")
		r.logger.InfoPrintf("unknown message type %q ignored", msg.Type)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
