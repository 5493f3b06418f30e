package commands

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/datdao1998/voicebot-demo/pkg/audio/pcm"
	"github.com/datdao1998/voicebot-demo/pkg/audio/portaudio"
	"github.com/datdao1998/voicebot-demo/pkg/cli"
	"github.com/datdao1998/voicebot-demo/pkg/voicelink"
)

const appName = "voicebot"

var (
	cfgFile      string
	contextName  string
	logLevel     string
	logFormat    string
	globalConfig *cli.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "voicebot",
	Short: "Push-to-talk voice client",
	Long: `voicebot streams your voice to a conversational audio processor and
plays back its spoken reply.

Configuration is stored in ~/.voicebot/voicebot/ and supports multiple
contexts, so you can switch between processors (local, lab, prod).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runVoicebot,
}

// Command returns the root cobra command for mounting into a parent CLI.
func Command() *cobra.Command {
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.voicebot/voicebot/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context to use (default is current context)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	registerRunFlags(rootCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(versionCmd)
}

// configErr stores the config load error for deferred reporting.
var configErr error

func initConfig() {
	if cfgFile != "" {
		globalConfig, configErr = cli.LoadConfigWithPath(appName, cfgFile)
		return
	}
	globalConfig = cli.LoadConfigIfExists(appName)
}

// loadConfig returns the config, creating the file on first use.
func loadConfig() (*cli.Config, error) {
	if globalConfig == nil {
		if configErr != nil {
			return nil, fmt.Errorf("%s config: %w", appName, configErr)
		}
		var err error
		globalConfig, err = cli.LoadConfigWithPath(appName, cfgFile)
		if err != nil {
			return nil, fmt.Errorf("%s config: %w", appName, err)
		}
	}
	return globalConfig, nil
}

// getContext returns the context to use, resolving from flag or current context.
func getContext() (*cli.Context, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return cfg.ResolveContext(contextName)
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// VoiceConfig holds the voicebot settings of a context. Durations and
// devices are kept in Context.Extra.
type VoiceConfig struct {
	Endpoint             string
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	DrainDelay           time.Duration
	ChunkInterval        time.Duration
	InputDevice          int
	OutputDevice         int
	SampleRate           int
}

// DefaultVoiceConfig returns the defaults: the local processor and the host
// default devices at 16 kHz.
func DefaultVoiceConfig() *VoiceConfig {
	d := voicelink.DefaultConfig()
	return &VoiceConfig{
		Endpoint:       d.Endpoint,
		ReconnectDelay: d.ReconnectDelay,
		DrainDelay:     d.DrainDelay,
		ChunkInterval:  d.ChunkInterval,
		InputDevice:    portaudio.DefaultDevice,
		OutputDevice:   portaudio.DefaultDevice,
		SampleRate:     pcm.L16Mono16K.SampleRate(),
	}
}

// LoadVoiceConfig loads voicebot settings from a context.
func LoadVoiceConfig(ctx *cli.Context) (*VoiceConfig, error) {
	cfg := DefaultVoiceConfig()
	if ctx == nil {
		return cfg, nil
	}
	if ctx.Endpoint != "" {
		cfg.Endpoint = ctx.Endpoint
	}
	for key, dst := range map[string]*time.Duration{
		"reconnect_delay": &cfg.ReconnectDelay,
		"drain_delay":     &cfg.DrainDelay,
		"chunk_interval":  &cfg.ChunkInterval,
	} {
		d, ok, err := ctx.ExtraDuration(key)
		if err != nil {
			return nil, err
		}
		if ok {
			*dst = d
		}
	}
	for key, dst := range map[string]*int{
		"max_reconnects": &cfg.MaxReconnectAttempts,
		"input_device":   &cfg.InputDevice,
		"output_device":  &cfg.OutputDevice,
		"sample_rate":    &cfg.SampleRate,
	} {
		n, ok, err := ctx.ExtraInt(key)
		if err != nil {
			return nil, err
		}
		if ok {
			*dst = n
		}
	}
	return cfg, nil
}

// SaveVoiceConfig saves voicebot settings to a context. Values equal to the
// defaults are not stored.
func SaveVoiceConfig(ctx *cli.Context, cfg *VoiceConfig) {
	def := DefaultVoiceConfig()
	ctx.Endpoint = cfg.Endpoint
	setDuration := func(key string, v, d time.Duration) {
		if v == d {
			ctx.SetExtra(key, "")
			return
		}
		ctx.SetExtra(key, v.String())
	}
	setInt := func(key string, v, d int) {
		if v == d {
			ctx.SetExtra(key, "")
			return
		}
		ctx.SetExtra(key, strconv.Itoa(v))
	}
	setDuration("reconnect_delay", cfg.ReconnectDelay, def.ReconnectDelay)
	setDuration("drain_delay", cfg.DrainDelay, def.DrainDelay)
	setDuration("chunk_interval", cfg.ChunkInterval, def.ChunkInterval)
	setInt("max_reconnects", cfg.MaxReconnectAttempts, def.MaxReconnectAttempts)
	setInt("input_device", cfg.InputDevice, def.InputDevice)
	setInt("output_device", cfg.OutputDevice, def.OutputDevice)
	setInt("sample_rate", cfg.SampleRate, def.SampleRate)
}

// Link returns the controller configuration.
func (c *VoiceConfig) Link() voicelink.Config {
	lc := voicelink.DefaultConfig()
	lc.Endpoint = c.Endpoint
	lc.ReconnectDelay = c.ReconnectDelay
	lc.MaxReconnectAttempts = c.MaxReconnectAttempts
	lc.DrainDelay = c.DrainDelay
	lc.ChunkInterval = c.ChunkInterval
	return lc
}

// CaptureFormat returns the microphone format.
func (c *VoiceConfig) CaptureFormat() (pcm.Format, error) {
	return pcm.FormatForRate(c.SampleRate)
}
