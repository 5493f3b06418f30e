package voicelink

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	// DefaultEndpoint is the well-known local processor address.
	DefaultEndpoint = "ws://localhost:8000/ws"

	// DefaultReconnectDelay is the fixed wait before a reconnect attempt.
	DefaultReconnectDelay = 3000 * time.Millisecond

	// DefaultChunkInterval is the capture chunk cadence.
	DefaultChunkInterval = 250 * time.Millisecond

	// MinDrainDelay is the lower bound of the drain delay.
	MinDrainDelay = 300 * time.Millisecond

	// DefaultTranscriptClearDelay is how long a finished transcript stays on
	// screen.
	DefaultTranscriptClearDelay = 5 * time.Second

	// DefaultDebugLogSize is the number of debug log entries kept.
	DefaultDebugLogSize = 10

	// DefaultHandshakeTimeout bounds a single websocket dial.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultPlaybackBuffer is the duration of each speaker write.
	DefaultPlaybackBuffer = 20 * time.Millisecond
)

// Config holds the tunables of a Controller.
type Config struct {
	// Endpoint is the websocket URL of the remote processor.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// ReconnectDelay is the fixed delay before reconnecting after an
	// abnormal close.
	ReconnectDelay time.Duration `yaml:"reconnect_delay" json:"reconnect_delay"`

	// MaxReconnectAttempts caps consecutive reconnect attempts. Zero means
	// unlimited.
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts" json:"max_reconnect_attempts"`

	// DrainDelay is the wait between stopping capture and sending the stop
	// signal. Values below MinDrainDelay are raised to it.
	DrainDelay time.Duration `yaml:"drain_delay" json:"drain_delay"`

	// ChunkInterval is the capture chunk cadence.
	ChunkInterval time.Duration `yaml:"chunk_interval" json:"chunk_interval"`

	// TranscriptClearDelay is how long the live transcript is kept after a
	// session completes. Zero keeps it until the next recording.
	TranscriptClearDelay time.Duration `yaml:"transcript_clear_delay" json:"transcript_clear_delay"`

	// DebugLogSize is the capacity of the debug log ring.
	DebugLogSize int `yaml:"debug_log_size" json:"debug_log_size"`

	// HandshakeTimeout bounds a single dial.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" json:"handshake_timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Endpoint:             DefaultEndpoint,
		ReconnectDelay:       DefaultReconnectDelay,
		DrainDelay:           MinDrainDelay,
		ChunkInterval:        DefaultChunkInterval,
		TranscriptClearDelay: DefaultTranscriptClearDelay,
		DebugLogSize:         DefaultDebugLogSize,
		HandshakeTimeout:     DefaultHandshakeTimeout,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if err := validateEndpoint(c.Endpoint); err != nil {
		return err
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect_delay must be positive, got %s", c.ReconnectDelay)
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max_reconnect_attempts must not be negative, got %d", c.MaxReconnectAttempts)
	}
	if c.ChunkInterval <= 0 {
		return fmt.Errorf("chunk_interval must be positive, got %s", c.ChunkInterval)
	}
	if c.TranscriptClearDelay < 0 {
		return fmt.Errorf("transcript_clear_delay must not be negative, got %s", c.TranscriptClearDelay)
	}
	if c.DebugLogSize <= 0 {
		return fmt.Errorf("debug_log_size must be positive, got %d", c.DebugLogSize)
	}
	return nil
}

// drainDelay returns the effective drain delay.
func (c *Config) drainDelay() time.Duration {
	return max(c.DrainDelay, MinDrainDelay)
}

func (c *Config) handshakeTimeout() time.Duration {
	if c.HandshakeTimeout <= 0 {
		return DefaultHandshakeTimeout
	}
	return c.HandshakeTimeout
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return fmt.Errorf("%w: scheme %q", ErrInvalidEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidEndpoint)
	}
	return nil
}
