package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/datdao1998/voicebot-demo/pkg/cli"
	"github.com/datdao1998/voicebot-demo/pkg/voicelink"
)

// keyMap defines the TUI key bindings.
type keyMap struct {
	Talk   key.Binding
	Replay key.Binding
	Pick   key.Binding
	Scroll key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Talk:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "talk/stop")),
	Replay: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "replay last")),
	Pick:   key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "replay #")),
	Scroll: key.NewBinding(key.WithKeys("up", "down", "pgup", "pgdown"), key.WithHelp("↑/↓", "scroll")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

func (k keyMap) help() string {
	var parts []string
	for _, b := range []key.Binding{k.Talk, k.Replay, k.Pick, k.Scroll, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return " " + strings.Join(parts, " • ")
}

// TUIModel is the TUI model.
type TUIModel struct {
	ctrl *voicelink.Controller
	feed *snapshotFeed

	snap voicelink.Snapshot

	// Scrollable session history
	history viewport.Model

	// System logs
	logContent []string
	logWriter  *cli.LogWriter

	// UI
	styles cli.Styles
	width  int
	height int

	quitting bool
}

// NewTUIModel creates a new TUI model.
func NewTUIModel(ctrl *voicelink.Controller, feed *snapshotFeed, logWriter *cli.LogWriter) TUIModel {
	var logs []string
	if logWriter != nil {
		logs = logWriter.Lines()
	}
	return TUIModel{
		ctrl:       ctrl,
		feed:       feed,
		snap:       ctrl.Snapshot(),
		history:    viewport.New(0, 0),
		logContent: logs,
		logWriter:  logWriter,
		styles:     cli.NewStyles(cli.DefaultTheme),
	}
}

// SnapshotMsg carries a controller snapshot.
type SnapshotMsg voicelink.Snapshot

// ClosedMsg is sent when the controller has shut down.
type ClosedMsg struct{}

// LogMsg wraps log messages for bubbletea.
type LogMsg string

// TickMsg is sent periodically to update the UI.
type TickMsg time.Time

// Init initializes the model.
func (m TUIModel) Init() tea.Cmd {
	return tea.Batch(
		m.listenSnapshots(),
		m.listenLogs(),
		m.tick(),
	)
}

func (m TUIModel) listenSnapshots() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-m.feed.C():
			return SnapshotMsg(s)
		case <-m.ctrl.Done():
			return ClosedMsg{}
		}
	}
}

func (m TUIModel) listenLogs() tea.Cmd {
	if m.logWriter == nil {
		return nil
	}
	return func() tea.Msg {
		line, ok := <-m.logWriter.Channel()
		if !ok {
			return nil
		}
		return LogMsg(line)
	}
}

func (m TUIModel) tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update handles messages.
func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Talk):
			m.ctrl.Toggle()
		case key.Matches(msg, keys.Replay):
			if n := len(m.snap.History); n > 0 {
				m.ctrl.Replay(m.snap.History[n-1].ID)
			}
		case key.Matches(msg, keys.Pick):
			if s, ok := m.recent(int(msg.Runes[0] - '0')); ok {
				m.ctrl.Replay(s.ID)
			}
		case key.Matches(msg, keys.Scroll):
			var cmd tea.Cmd
			m.history, cmd = m.history.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewport()

	case SnapshotMsg:
		m.snap = voicelink.Snapshot(msg)
		m.updateViewport()
		cmds = append(cmds, m.listenSnapshots())

	case ClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case LogMsg:
		m.logContent = append(m.logContent, string(msg))
		if len(m.logContent) > 50 {
			m.logContent = m.logContent[len(m.logContent)-50:]
		}
		cmds = append(cmds, m.listenLogs())

	case TickMsg:
		cmds = append(cmds, m.tick())
	}

	return m, tea.Batch(cmds...)
}

// recent returns the n-th most recent session, starting at 1.
func (m TUIModel) recent(n int) (voicelink.Session, bool) {
	i := len(m.snap.History) - n
	if n < 1 || i < 0 {
		return voicelink.Session{}, false
	}
	return m.snap.History[i], true
}

func (m *TUIModel) historyHeight() int {
	// Title and borders, four section labels, the status and transcript
	// bodies, and the help line.
	rest := m.height - 4 - 4 - 2 - 2
	return max(rest/2, 1)
}

func (m *TUIModel) updateViewport() {
	m.history.Width = max(m.width-4, 1)
	m.history.Height = m.historyHeight()

	var lines []string
	for i := len(m.snap.History) - 1; i >= 0; i-- {
		n := len(m.snap.History) - i
		s := m.snap.History[i]
		prefix := "  "
		if s.ID == m.snap.Playing {
			prefix = "▶ "
		}
		lines = append(lines, fmt.Sprintf("%s#%d %s %s", prefix, n, s.StartedAt.Format("15:04:05"), sessionLine(s)))
	}
	if len(lines) == 0 {
		lines = []string{"(no sessions yet)"}
	}
	// Newest first; SetContent keeps the scroll offset.
	m.history.SetContent(strings.Join(lines, "\n"))
}

// View renders the UI.
func (m TUIModel) View() string {
	if m.quitting {
		return ""
	}

	s := m.snap
	status := []string{
		fmt.Sprintf("%s  •  %s", connectionLabel(s), s.Endpoint),
		recordingLabel(s.Recording),
	}
	if s.Current != nil {
		status[1] += fmt.Sprintf("  sent %d/%d chunks (%s)", s.Current.ChunksSent, s.Current.ChunksCaptured, cli.FormatBytes(s.Current.BytesSent))
	}
	transcript := s.Transcript
	if transcript == "" {
		transcript = "-"
	}

	var debug []string
	for _, e := range s.DebugLog {
		debug = append(debug, e.String())
	}

	frameStatus := s.Recording.String()
	if s.LastError != "" {
		frameStatus = s.LastError
	}

	return cli.Frame{
		Styles: m.styles,
		Title:  "VOICEBOT",
		Status: frameStatus,
		Alert:  s.LastError != "",
		Sections: []cli.Section{
			{Label: "STATUS", Lines: status, Height: 2},
			{Label: "TRANSCRIPT", Lines: []string{transcript}, Height: 1},
			{Label: "HISTORY", Lines: strings.Split(m.history.View(), "\n"), Height: m.historyHeight()},
			{Label: "DEBUG", Lines: append(debug, m.logContent...)},
		},
		Help: keys.help(),
	}.Render(m.width, m.height)
}
