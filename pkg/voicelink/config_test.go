package voicelink

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if cfg.Endpoint != "ws://localhost:8000/ws" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.ReconnectDelay != 3*time.Second {
		t.Errorf("ReconnectDelay = %v; want 3s", cfg.ReconnectDelay)
	}
	if cfg.ChunkInterval != 250*time.Millisecond {
		t.Errorf("ChunkInterval = %v; want 250ms", cfg.ChunkInterval)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty endpoint", func(c *Config) { c.Endpoint = "" }},
		{"http endpoint", func(c *Config) { c.Endpoint = "http://localhost:8000/ws" }},
		{"zero reconnect delay", func(c *Config) { c.ReconnectDelay = 0 }},
		{"negative attempts", func(c *Config) { c.MaxReconnectAttempts = -1 }},
		{"zero chunk interval", func(c *Config) { c.ChunkInterval = 0 }},
		{"negative clear delay", func(c *Config) { c.TranscriptClearDelay = -time.Second }},
		{"zero debug log", func(c *Config) { c.DebugLogSize = 0 }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: Validate() = nil; want error", tt.name)
		}
	}

	cfg := DefaultConfig()
	cfg.Endpoint = "wss://"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidEndpoint) {
		t.Errorf("Validate(wss://) = %v; want ErrInvalidEndpoint", err)
	}
}

func TestConfig_DrainDelay(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{0, MinDrainDelay},
		{100 * time.Millisecond, MinDrainDelay},
		{time.Second, time.Second},
	}
	for _, tt := range tests {
		cfg := Config{DrainDelay: tt.in}
		if got := cfg.drainDelay(); got != tt.want {
			t.Errorf("drainDelay(%v) = %v; want %v", tt.in, got, tt.want)
		}
	}
}
