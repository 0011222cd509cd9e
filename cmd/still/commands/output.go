package commands

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	green  = lipgloss.Color("#22A06B")
	red    = lipgloss.Color("#D93025")
	yellow = lipgloss.Color("#F59E0B")
	slate  = lipgloss.Color("#667085")
)

type styles struct {
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	dim    lipgloss.Style
	header lipgloss.Style
}

// newStyles builds styles for w. Colors are dropped when w is not a
// terminal or NO_COLOR is set.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		ok:     r.NewStyle().Foreground(green).Bold(true),
		err:    r.NewStyle().Foreground(red).Bold(true),
		warn:   r.NewStyle().Foreground(yellow),
		dim:    r.NewStyle().Foreground(slate),
		header: r.NewStyle().Bold(true),
	}
}
