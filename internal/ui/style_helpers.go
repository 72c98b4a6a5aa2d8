package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BgStyle provides helpers for rendering text with consistent background colors.
// This solves lipgloss's limitation where ANSI reset codes between styled segments
// cause gaps in background color. See: https://github.com/charmbracelet/lipgloss/discussions/78
type BgStyle struct {
	bg    lipgloss.Color
	space string // cached styled space
}

// NewBgStyle creates a new background style helper for the given color.
func NewBgStyle(bgColor string) BgStyle {
	bg := lipgloss.Color(bgColor)
	return BgStyle{
		bg:    bg,
		space: lipgloss.NewStyle().Background(bg).Render(" "),
	}
}

// Render renders text with a style, ensuring ALL characters including spaces
// have the background color applied.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}

	// If no spaces, simple render with background
	if !strings.Contains(text, " ") {
		return style.Background(b.bg).Render(text)
	}

	// Split on spaces, style each word, rejoin with styled spaces
	wordStyle := style.Background(b.bg)
	words := strings.Split(text, " ")
	result := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			result = append(result, wordStyle.Render(w))
		} else {
			// Preserve multiple consecutive spaces
			result = append(result, "")
		}
	}
	return strings.Join(result, b.space)
}

// Space returns a single styled space.
func (b BgStyle) Space() string {
	return b.space
}

// Spaces returns n styled spaces.
func (b BgStyle) Spaces(n int) string {
	return lipgloss.NewStyle().Background(b.bg).Render(strings.Repeat(" ", n))
}

// Sep returns a styled separator string.
func (b BgStyle) Sep(sep string) string {
	return lipgloss.NewStyle().Background(b.bg).Render(sep)
}

// Join joins parts with a styled separator.
func (b BgStyle) Join(parts []string, sep string) string {
	return strings.Join(parts, b.Sep(sep))
}

// FillLine pads rendered content to fill the specified width with the background color.
// Use this to ensure lines fill the full viewport width.
func (b BgStyle) FillLine(content string, width int) string {
	return lipgloss.NewStyle().Background(b.bg).Width(width).Render(content)
}

// renderBox draws content inside a rounded border with the title set into
// the top edge. height is the outer height including both borders.
func (m Model) renderBox(title, content string, width, height int, focused bool) string {
	borderColor := m.theme.Border
	if focused {
		borderColor = m.theme.BorderFocus
	}
	border := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColor)).Background(lipgloss.Color(m.theme.Background))
	fill := lipgloss.Color(m.theme.FocusBg)
	if !focused {
		fill = lipgloss.Color(m.theme.Surface)
	}

	inner := maxInt(width-2, 0)
	rb := lipgloss.RoundedBorder()

	label := ""
	if title != "" {
		label = " " + truncate(title, maxInt(inner-4, 0)) + " "
	}
	labelWidth := lipgloss.Width(label)
	topFill := maxInt(inner-1-labelWidth, 0)
	top := border.Render(rb.TopLeft+rb.Top) +
		lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent)).Background(lipgloss.Color(m.theme.Background)).Bold(true).Render(label) +
		border.Render(strings.Repeat(rb.Top, topFill)+rb.TopRight)

	body := lipgloss.NewStyle().
		Width(inner).
		Height(maxInt(height-2, 0)).
		MaxHeight(maxInt(height-2, 0)).
		Background(fill).
		Render(content)

	lines := strings.Split(body, "\n")
	var b strings.Builder
	b.WriteString(top)
	for _, line := range lines {
		b.WriteString("\n")
		b.WriteString(border.Render(rb.Left))
		b.WriteString(line)
		b.WriteString(border.Render(rb.Right))
	}
	b.WriteString("\n")
	b.WriteString(border.Render(rb.BottomLeft + strings.Repeat(rb.Bottom, inner) + rb.BottomRight))
	return b.String()
}
