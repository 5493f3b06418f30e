package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/datdao1998/voicebot-demo/pkg/audio/portaudio"
	"github.com/datdao1998/voicebot-demo/pkg/cli"
)

var devicesOutput string

// devicesCmd lists audio devices
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices",
	Long: `List the audio devices known to PortAudio.

Use the index with 'voicebot config context set <name> --input-device=N'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := portaudio.Devices()
		if err != nil {
			return err
		}
		defer portaudio.Terminate()

		if devicesOutput != "" {
			return cli.Output(devices, cli.OutputOptions{Format: cli.OutputFormat(devicesOutput)})
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tNAME\tIN\tOUT\tRATE\tDEFAULT")
		for _, d := range devices {
			def := ""
			switch {
			case d.IsDefaultInput && d.IsDefaultOutput:
				def = "in,out"
			case d.IsDefaultInput:
				def = "in"
			case d.IsDefaultOutput:
				def = "out"
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%.0f\t%s\n", d.Index, d.Name, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate, def)
		}
		return w.Flush()
	},
}

func init() {
	devicesCmd.Flags().StringVarP(&devicesOutput, "output", "o", "", "output format (yaml, json)")
}
