package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/datdao1998/voicebot-demo/pkg/cli"
	"github.com/datdao1998/voicebot-demo/pkg/voicelink"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage voicebot configuration.

Configuration is stored in ~/.voicebot/voicebot/config.yaml`,
}

// contextCmd represents the context subcommand
var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage contexts",
	Long:  `Manage voicebot contexts for different processors.`,
}

// contextListCmd lists all contexts
var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		names := cfg.ListContexts()
		if len(names) == 0 {
			fmt.Println("No contexts configured.")
			fmt.Println("\nCreate one with:")
			fmt.Println("  voicebot config context set local --endpoint=ws://localhost:8000/ws")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tENDPOINT")
		for _, name := range names {
			ctx, _ := cfg.GetContext(name)
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", current, name, valueOrNotSet(ctx.Endpoint))
		}
		return w.Flush()
	},
}

// contextUseCmd switches the current context
var contextUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch to a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		name := args[0]
		if err := cfg.UseContext(name); err != nil {
			return err
		}
		fmt.Printf("Switched to context %q\n", name)
		return nil
	},
}

// contextSetCmd creates or updates a context
var contextSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Create or update a context",
	Long: `Create or update a context with the specified settings.

Examples:
  # Create a new context
  voicebot config context set local --endpoint=ws://localhost:8000/ws

  # Slow network: wait longer before reconnecting, give up after 10 tries
  voicebot config context set lab --reconnect-delay=5s --max-reconnects=10

  # Use a specific microphone (see 'voicebot devices')
  voicebot config context set local --input-device=2 --sample-rate=48000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		name := args[0]

		// Get existing context or create new one
		ctx, err := cfg.GetContext(name)
		if err != nil {
			ctx = &cli.Context{Name: name}
		}

		vc, err := LoadVoiceConfig(ctx)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("endpoint") {
			vc.Endpoint, _ = flags.GetString("endpoint")
		}
		if flags.Changed("reconnect-delay") {
			vc.ReconnectDelay, _ = flags.GetDuration("reconnect-delay")
		}
		if flags.Changed("max-reconnects") {
			vc.MaxReconnectAttempts, _ = flags.GetInt("max-reconnects")
		}
		if flags.Changed("drain-delay") {
			vc.DrainDelay, _ = flags.GetDuration("drain-delay")
		}
		if flags.Changed("chunk-interval") {
			vc.ChunkInterval, _ = flags.GetDuration("chunk-interval")
		}
		if flags.Changed("input-device") {
			vc.InputDevice, _ = flags.GetInt("input-device")
		}
		if flags.Changed("output-device") {
			vc.OutputDevice, _ = flags.GetInt("output-device")
		}
		if flags.Changed("sample-rate") {
			vc.SampleRate, _ = flags.GetInt("sample-rate")
		}

		lc := vc.Link()
		if err := lc.Validate(); err != nil {
			return fmt.Errorf("context %q: %w", name, err)
		}
		if _, err := vc.CaptureFormat(); err != nil {
			return fmt.Errorf("context %q: %w", name, err)
		}

		SaveVoiceConfig(ctx, vc)
		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}

		fmt.Printf("Context %q saved\n", name)
		return nil
	},
}

// contextDeleteCmd deletes a context
var contextDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		name := args[0]
		if err := cfg.DeleteContext(name); err != nil {
			return err
		}
		fmt.Printf("Context %q deleted\n", name)
		return nil
	},
}

// contextShowCmd shows the current context details
var contextShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show context details",
	Long:  `Show details of a context. If no name is provided, shows the current context.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var ctx *cli.Context
		var name string
		if len(args) > 0 {
			name = args[0]
			ctx, err = cfg.GetContext(name)
		} else {
			if cfg.CurrentContext == "" {
				return fmt.Errorf("no current context set. Use 'voicebot config context use <name>' to set one")
			}
			name = cfg.CurrentContext
			ctx, err = cfg.GetCurrentContext()
		}
		if err != nil {
			return err
		}

		vc, err := LoadVoiceConfig(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Context: %s", name)
		if name == cfg.CurrentContext {
			fmt.Print(" (current)")
		}
		fmt.Println()
		fmt.Println(strings.Repeat("-", 40))
		fmt.Printf("Endpoint:         %s\n", vc.Endpoint)
		fmt.Printf("Reconnect delay:  %s\n", vc.ReconnectDelay)
		fmt.Printf("Max reconnects:   %s\n", reconnectLimit(vc.MaxReconnectAttempts))
		fmt.Printf("Drain delay:      %s\n", max(vc.DrainDelay, voicelink.MinDrainDelay))
		fmt.Printf("Chunk interval:   %s\n", vc.ChunkInterval)
		fmt.Printf("Input device:     %s\n", deviceName(vc.InputDevice))
		fmt.Printf("Output device:    %s\n", deviceName(vc.OutputDevice))
		fmt.Printf("Sample rate:      %d Hz\n", vc.SampleRate)
		fmt.Println()
		fmt.Printf("Config file: %s\n", cfg.Path())

		return nil
	},
}

// contextCurrentCmd shows the current context name
var contextCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show current context name",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

func valueOrNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func reconnectLimit(n int) string {
	if n == 0 {
		return "unlimited"
	}
	return fmt.Sprint(n)
}

func deviceName(index int) string {
	if index < 0 {
		return "default"
	}
	return fmt.Sprint(index)
}

func init() {
	configCmd.AddCommand(contextCmd)

	contextCmd.AddCommand(contextListCmd)
	contextCmd.AddCommand(contextUseCmd)
	contextCmd.AddCommand(contextSetCmd)
	contextCmd.AddCommand(contextDeleteCmd)
	contextCmd.AddCommand(contextShowCmd)
	contextCmd.AddCommand(contextCurrentCmd)

	def := DefaultVoiceConfig()
	contextSetCmd.Flags().String("endpoint", def.Endpoint, "processor websocket URL")
	contextSetCmd.Flags().Duration("reconnect-delay", def.ReconnectDelay, "wait before reconnecting after an abnormal close")
	contextSetCmd.Flags().Int("max-reconnects", def.MaxReconnectAttempts, "consecutive reconnect attempts before giving up (0 = unlimited)")
	contextSetCmd.Flags().Duration("drain-delay", def.DrainDelay, "wait between releasing the microphone and the stop signal")
	contextSetCmd.Flags().Duration("chunk-interval", def.ChunkInterval, "audio chunk cadence")
	contextSetCmd.Flags().Int("input-device", def.InputDevice, "microphone device index (-1 = default)")
	contextSetCmd.Flags().Int("output-device", def.OutputDevice, "speaker device index (-1 = default)")
	contextSetCmd.Flags().Int("sample-rate", def.SampleRate, "capture sample rate (16000, 24000, 48000)")
}
