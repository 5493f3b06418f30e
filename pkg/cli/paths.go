package cli

import (
	"os"
	"path/filepath"
)

// Paths locates the per-app directories under ~/.voicebot.
type Paths struct {
	AppName string
	HomeDir string
}

// NewPaths creates a new Paths instance for the given app
func NewPaths(appName string) (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{AppName: appName, HomeDir: home}, nil
}

// BaseDir returns ~/.voicebot
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// AppDir returns ~/.voicebot/<app>
func (p *Paths) AppDir() string {
	return filepath.Join(p.BaseDir(), p.AppName)
}

// ConfigFile returns ~/.voicebot/<app>/config.yaml
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.AppDir(), DefaultConfigFile)
}

// RecordingsDir returns ~/.voicebot/<app>/recordings
func (p *Paths) RecordingsDir() string {
	return filepath.Join(p.AppDir(), "recordings")
}

// ResponsesDir returns ~/.voicebot/<app>/responses
func (p *Paths) ResponsesDir() string {
	return filepath.Join(p.AppDir(), "responses")
}

// EnsureDir creates dir if it doesn't exist and returns it.
func EnsureDir(dir string) (string, error) {
	return dir, os.MkdirAll(dir, 0755)
}
