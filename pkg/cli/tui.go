package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colors of the terminal UI.
type Theme struct {
	Primary lipgloss.Color
	Alert   lipgloss.Color
	Dim     lipgloss.Color
}

// DefaultTheme is green on dark with a red alert color.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Alert:   lipgloss.Color("#ff5f5f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds the styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Border lipgloss.Style
	Alert  lipgloss.Style
	Help   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Border: lipgloss.NewStyle().Foreground(t.Primary),
		Alert:  lipgloss.NewStyle().Bold(true).Foreground(t.Alert),
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Section is a labeled block of lines. Only the last lines that fit are
// shown.
type Section struct {
	Label string
	Lines []string

	// Height fixes the number of rows. Zero shares the remaining rows with
	// the other flexible sections.
	Height int
}

// Frame is a bordered screen: a title line, stacked sections and a help
// line below the border.
type Frame struct {
	Styles   Styles
	Title    string
	Status   string
	Alert    bool
	Sections []Section
	Help     string
}

// Render renders the frame for a terminal of width x height cells.
func (f Frame) Render(width, height int) string {
	if width < 10 || height < 6 {
		return "Loading..."
	}
	bc := f.Styles.Border
	inner := width - 4

	var lines []string
	lines = append(lines, bc.Render("╭"+strings.Repeat("─", width-2)+"╮"))

	title := f.Styles.Title.Render(f.Title)
	statusStyle := f.Styles.Help
	if f.Alert {
		statusStyle = f.Styles.Alert
	}
	status := statusStyle.Render("[" + f.Status + "]")
	pad := max(0, width-5-lipgloss.Width(title)-lipgloss.Width(status))
	lines = append(lines, bc.Render("│")+" "+title+" "+status+strings.Repeat(" ", pad)+" "+bc.Render("│"))

	// Rows left for section bodies: borders, title, one label per section
	// and the help line.
	fixed, flexible := 0, 0
	for _, s := range f.Sections {
		if s.Height > 0 {
			fixed += s.Height
		} else {
			flexible++
		}
	}
	free := height - 4 - len(f.Sections) - fixed
	flexHeight := 1
	if flexible > 0 {
		flexHeight = max(free/flexible, 1)
	}

	for _, s := range f.Sections {
		h := s.Height
		if h <= 0 {
			h = flexHeight
		}
		lines = append(lines, f.section(s, h, width, inner)...)
	}

	lines = append(lines, bc.Render("╰"+strings.Repeat("─", width-2)+"╯"))
	lines = append(lines, f.Styles.Help.Render(f.Help))
	return strings.Join(lines, "\n")
}

func (f Frame) section(s Section, height, width, inner int) []string {
	bc := f.Styles.Border
	label := f.Styles.Label.Render(" " + s.Label + " ")
	pad := max(0, width-3-lipgloss.Width(label))
	out := []string{bc.Render("├─") + label + bc.Render(strings.Repeat("─", pad)+"┤")}

	start := max(0, len(s.Lines)-height)
	for i := range height {
		text := ""
		if idx := start + i; idx < len(s.Lines) {
			text = s.Lines[idx]
		}
		if lipgloss.Width(text) > inner {
			text = Truncate(text, inner-1) + "…"
		}
		out = append(out, bc.Render("│")+" "+text+strings.Repeat(" ", max(0, inner-lipgloss.Width(text)))+" "+bc.Render("│"))
	}
	return out
}

// Truncate cuts s to at most width display cells without splitting
// multi-byte characters.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := 0
	for i, r := range s {
		rw := lipgloss.Width(string(r))
		if w+rw > width {
			return s[:i]
		}
		w += rw
	}
	return s
}
