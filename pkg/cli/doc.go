// Package cli provides the shared plumbing of the voicebot command-line
// tools.
//
// This package includes:
//   - Configuration contexts (named endpoint and device profiles)
//   - Output formatting (JSON, YAML)
//   - Run file loading (YAML/JSON)
//   - A log writer and frame renderer for the terminal UI
//
// Configuration is stored in ~/.voicebot/<app>/config.yaml and supports
// multiple contexts similar to kubectl.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig("voicebot")
//	ctx, err := cfg.ResolveContext("")
//	endpoint := ctx.Endpoint
//
//	cli.Output(history, cli.OutputOptions{
//	    Format: cli.FormatYAML,
//	    File:   exportPath,
//	})
package cli
