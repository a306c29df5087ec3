package formatter

import "github.com/charmbracelet/lipgloss"

// Palette is a small stylesheet for terminal output, built from named [lipgloss.Style] fields.
type Palette struct {
	title  lipgloss.Style
	accent lipgloss.Style
	muted  lipgloss.Style
	warn   lipgloss.Style
	body   lipgloss.Style
}

// DefaultPalette is used by [ExportToText] when no palette is given.
var DefaultPalette = NewPalette("#7D56F4", "#04B575", "#626262", "#FFA500")

// PlainPalette renders no styling at all.
var PlainPalette = &Palette{
	title:  lipgloss.NewStyle(),
	accent: lipgloss.NewStyle(),
	muted:  lipgloss.NewStyle(),
	warn:   lipgloss.NewStyle(),
	body:   lipgloss.NewStyle(),
}

func NewPalette(title, accent, muted, warn string) *Palette {
	return &Palette{
		title:  newBold(title),
		accent: newBold(accent),
		muted:  newStyle(muted).Italic(true),
		warn:   newStyle(warn),
		body:   lipgloss.NewStyle().PaddingLeft(2),
	}
}

func newStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func newBold(fg string) lipgloss.Style {
	return newStyle(fg).Bold(true)
}
