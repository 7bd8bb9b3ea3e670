package ui

import (
	"github.com/John-Robertt/camsort/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Colors used for event tags.
var (
	colorError   = lipgloss.Color("#FF0000")
	colorMatch   = lipgloss.Color("#CC0000")
	colorHeader  = lipgloss.Color("#0066CC")
	colorSuccess = lipgloss.Color("#009933")
	colorWarning = lipgloss.Color("#FF8800")
	colorMuted   = lipgloss.Color("241")
)

var tagStyles = map[domain.Tag]lipgloss.Style{
	domain.TagNormal:  lipgloss.NewStyle(),
	domain.TagError:   lipgloss.NewStyle().Foreground(colorError),
	domain.TagMatch:   lipgloss.NewStyle().Foreground(colorMatch).Bold(true),
	domain.TagHeader:  lipgloss.NewStyle().Foreground(colorHeader).Bold(true),
	domain.TagSuccess: lipgloss.NewStyle().Foreground(colorSuccess),
	domain.TagWarning: lipgloss.NewStyle().Foreground(colorWarning),
	domain.TagModel:   lipgloss.NewStyle().Bold(true),
}

// TagStyle 返回某个 tag 的样式；未知 tag 使用普通样式。
func TagStyle(tag domain.Tag) lipgloss.Style {
	if s, ok := tagStyles[tag]; ok {
		return s
	}
	return tagStyles[domain.TagNormal]
}

var titleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHeader).
	Padding(0, 1)

var statusBarStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

var hintStyle = lipgloss.NewStyle().
	Foreground(colorMuted)

var promptStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorWarning).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorWarning).
	Padding(0, 1)
