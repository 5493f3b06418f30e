package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/datdao1998/voicebot-demo/pkg/audio/portaudio"
	"github.com/datdao1998/voicebot-demo/pkg/cli"
	"github.com/datdao1998/voicebot-demo/pkg/voicelink"
)

var (
	// Command-line overrides
	flagRunFile        string
	flagEndpoint       string
	flagInput          string
	flagRecordDir      string
	flagRecord         bool
	flagSpeakerDir     string
	flagSaveReplies    bool
	flagMute           bool
	flagMetricsAddr    string
	flagExport         string
	flagPlain          bool
	flagReconnectDelay time.Duration
	flagMaxReconnects  int
	flagDrainDelay     time.Duration
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a push-to-talk session",
	Long: `Connect to the processor and talk.

Press space to start recording and space again to stop. The transcript and
the spoken reply arrive once the processor is done. Finished sessions can be
replayed with r (last) or 1-9.

With --input the WAV file is sent instead of the microphone: recording starts
as soon as the connection is up and the program exits after the reply.

Settings are taken from the context, then from the run file (-f), then from
flags.`,
	RunE: runVoicebot,
}

func init() {
	registerRunFlags(runCmd)
}

func registerRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&flagRunFile, "file", "f", "", "run file (YAML or JSON) with endpoint, input and output settings")
	f.StringVar(&flagEndpoint, "endpoint", "", "processor websocket URL")
	f.StringVar(&flagInput, "input", "", "send this WAV file instead of the microphone")
	f.StringVar(&flagRecordDir, "record-dir", "", "save every capture as WAV in this directory")
	f.BoolVar(&flagRecord, "record", false, "save every capture under ~/.voicebot/voicebot/recordings")
	f.StringVar(&flagSpeakerDir, "speaker-dir", "", "write replies as WAV files here instead of playing them")
	f.BoolVar(&flagSaveReplies, "save-replies", false, "write replies under ~/.voicebot/voicebot/responses instead of playing them")
	f.BoolVar(&flagMute, "mute", false, "do not play replies")
	f.StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics and /status on this address")
	f.StringVar(&flagExport, "export", "", "write the session history to this file on exit (.json or .yaml)")
	f.BoolVar(&flagPlain, "plain", false, "print plain lines instead of the terminal UI")
	f.DurationVar(&flagReconnectDelay, "reconnect-delay", 0, "wait before reconnecting after an abnormal close")
	f.IntVar(&flagMaxReconnects, "max-reconnects", -1, "consecutive reconnect attempts before giving up (0 = unlimited)")
	f.DurationVar(&flagDrainDelay, "drain-delay", 0, "wait between releasing the microphone and the stop signal")
}

// RunFile is the -f run file.
type RunFile struct {
	Endpoint    string `yaml:"endpoint" json:"endpoint"`
	Input       string `yaml:"input" json:"input"`
	RecordDir   string `yaml:"record_dir" json:"record_dir"`
	SpeakerDir  string `yaml:"speaker_dir" json:"speaker_dir"`
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	Export      string `yaml:"export" json:"export"`
}

// runOptions is the resolved run configuration.
type runOptions struct {
	voice       *VoiceConfig
	input       string
	recordDir   string
	speakerDir  string
	mute        bool
	metricsAddr string
	export      string
	plain       bool
}

func resolveRunOptions() (*runOptions, error) {
	var vc *VoiceConfig
	ctx, err := getContext()
	if err != nil {
		// No context set, use defaults
		vc = DefaultVoiceConfig()
	} else if vc, err = LoadVoiceConfig(ctx); err != nil {
		return nil, err
	}
	opts := &runOptions{voice: vc}

	if flagRunFile != "" {
		var rf RunFile
		if err := cli.LoadRequest(flagRunFile, &rf); err != nil {
			return nil, fmt.Errorf("%s: %w", flagRunFile, err)
		}
		setIfNotEmpty(&vc.Endpoint, rf.Endpoint)
		setIfNotEmpty(&opts.input, rf.Input)
		setIfNotEmpty(&opts.recordDir, rf.RecordDir)
		setIfNotEmpty(&opts.speakerDir, rf.SpeakerDir)
		setIfNotEmpty(&opts.metricsAddr, rf.MetricsAddr)
		setIfNotEmpty(&opts.export, rf.Export)
	}

	setIfNotEmpty(&vc.Endpoint, flagEndpoint)
	setIfNotEmpty(&opts.input, flagInput)
	setIfNotEmpty(&opts.recordDir, flagRecordDir)
	setIfNotEmpty(&opts.speakerDir, flagSpeakerDir)
	setIfNotEmpty(&opts.metricsAddr, flagMetricsAddr)
	setIfNotEmpty(&opts.export, flagExport)
	if flagReconnectDelay > 0 {
		vc.ReconnectDelay = flagReconnectDelay
	}
	if flagMaxReconnects >= 0 {
		vc.MaxReconnectAttempts = flagMaxReconnects
	}
	if flagDrainDelay > 0 {
		vc.DrainDelay = flagDrainDelay
	}
	if flagRecord || flagSaveReplies {
		paths, err := cli.NewPaths(appName)
		if err != nil {
			return nil, err
		}
		if flagRecord && opts.recordDir == "" {
			opts.recordDir = paths.RecordingsDir()
		}
		if flagSaveReplies && opts.speakerDir == "" {
			opts.speakerDir = paths.ResponsesDir()
		}
	}
	opts.mute = flagMute
	opts.plain = flagPlain
	return opts, nil
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func runVoicebot(cmd *cobra.Command, args []string) error {
	opts, err := resolveRunOptions()
	if err != nil {
		return err
	}
	format, err := opts.voice.CaptureFormat()
	if err != nil {
		return err
	}
	level, err := parseLogLevel(logLevel)
	if err != nil {
		return err
	}

	// The terminal UI owns stdout; logs go to its debug panel.
	var logOut io.Writer = os.Stderr
	var logWriter *cli.LogWriter
	if !opts.plain {
		logWriter = cli.NewLogWriter(200)
		logOut = logWriter
	}
	var handler slog.Handler
	if logFormat == "json" {
		handler = slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level})
	}
	logger := voicelink.SlogLogger(slog.New(handler))

	var capture voicelink.CaptureSource = &micSource{device: opts.voice.InputDevice, format: format}
	if opts.input != "" {
		capture = &fileSource{path: opts.input, format: format}
	}
	if opts.recordDir != "" {
		if _, err := cli.EnsureDir(opts.recordDir); err != nil {
			return err
		}
		capture = &recordingSource{inner: capture, dir: opts.recordDir, format: format, logger: logger}
		cli.PrintInfo("Recording captures to %s", opts.recordDir)
	}

	var speaker voicelink.Speaker
	switch {
	case opts.mute:
	case opts.speakerDir != "":
		if _, err := cli.EnsureDir(opts.speakerDir); err != nil {
			return err
		}
		speaker = &fileSpeaker{dir: opts.speakerDir, format: format}
	default:
		speaker = &paSpeaker{device: opts.voice.OutputDevice, format: format}
	}

	if usesPortAudio(opts) {
		if err := portaudio.Initialize(); err != nil {
			logger.WarnPrintf("audio host: %v", err)
		} else {
			defer portaudio.Terminate()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := voicelink.NewMetrics(reg)

	feed := newSnapshotFeed()
	ctrl, err := voicelink.New(opts.voice.Link(), voicelink.Options{
		Capture: capture,
		Speaker: speaker,
		Display: feed,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.metricsAddr != "" {
		srv := newStatusServer(opts.metricsAddr, reg, ctrl)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.ErrorPrintf("metrics server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	runErr := make(chan error, 1)
	go func() { runErr <- ctrl.Run(ctx) }()

	switch {
	case opts.input != "":
		err = runOnce(ctx, ctrl, feed, &lineDisplay{w: os.Stdout})
	case opts.plain:
		err = runPlain(ctx, ctrl, feed, os.Stdin, &lineDisplay{w: os.Stdout})
	default:
		_, err = tea.NewProgram(NewTUIModel(ctrl, feed, logWriter), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			err = nil
		}
	}
	ctrl.Close()
	if rerr := <-runErr; err == nil && rerr != nil && !errors.Is(rerr, context.Canceled) {
		err = rerr
	}

	if opts.export != "" {
		if len(ctrl.History()) == 0 {
			cli.PrintWarning("No finished sessions; writing an empty history to %s", opts.export)
		}
		if xerr := cli.Output(ctrl.History(), cli.OutputOptions{
			Format: cli.FormatForPath(opts.export),
			File:   opts.export,
		}); xerr != nil {
			return errors.Join(err, xerr)
		}
		cli.PrintSuccess("History written to %s", opts.export)
	}
	return err
}

// usesPortAudio reports whether the microphone or the speaker of a run is a
// PortAudio device.
func usesPortAudio(opts *runOptions) bool {
	return opts.input == "" || (!opts.mute && opts.speakerDir == "")
}

// runPlain drives the controller from stdin lines: an empty line toggles
// recording, "r" replays the last session, "r N" replays session N and "q"
// quits.
func runPlain(ctx context.Context, ctrl *voicelink.Controller, feed *snapshotFeed, in io.Reader, out *lineDisplay) error {
	fmt.Fprintln(out.w, "Press Enter to talk, Enter again to stop. r [N] replays, q quits.")
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctrl.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ctrl.Done():
			return nil
		case s := <-feed.C():
			out.Render(s)
		case line, ok := <-lines:
			if !ok || line == "q" {
				return nil
			}
			switch {
			case line == "":
				ctrl.Toggle()
			case line == "r" || strings.HasPrefix(line, "r "):
				replayLine(ctrl, out, strings.TrimSpace(strings.TrimPrefix(line, "r")))
			default:
				fmt.Fprintf(out.w, "unknown command %q\n", line)
			}
		}
	}
}

func replayLine(ctrl *voicelink.Controller, out *lineDisplay, arg string) {
	history := ctrl.History()
	if len(history) == 0 {
		fmt.Fprintln(out.w, "nothing to replay")
		return
	}
	n := len(history)
	if arg != "" {
		if _, err := fmt.Sscanf(arg, "%d", &n); err != nil || n < 1 || n > len(history) {
			fmt.Fprintf(out.w, "no session %q\n", arg)
			return
		}
	}
	ctrl.Replay(history[n-1].ID)
}

// runOnce records a single session from the input file and returns once the
// reply is complete.
func runOnce(ctx context.Context, ctrl *voicelink.Controller, feed *snapshotFeed, out *lineDisplay) error {
	started := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ctrl.Done():
			return voicelink.ErrClosed
		case s := <-feed.C():
			out.Render(s)
			switch {
			case !started && s.Connection == voicelink.Connected && s.CanStart():
				ctrl.Start()
				started = true
			case started && s.Recording == voicelink.Idle && s.Playing == "":
				if len(s.History) > 0 {
					return nil
				}
				if s.LastError != "" {
					return errors.New(s.LastError)
				}
			case !s.ReconnectPending && s.Connection == voicelink.Disconnected && s.LastError != "":
				return errors.New(s.LastError)
			}
		}
	}
}

// newStatusServer serves /metrics from reg and the latest snapshot on
// /status.
func newStatusServer(addr string, reg *prometheus.Registry, ctrl *voicelink.Controller) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ctrl.Snapshot())
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
