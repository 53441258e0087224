// Package toaster shows one notification at a time over the screen.
package toaster

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/orcidhub/orcidhub/internal/ui/overlay"
	"github.com/orcidhub/orcidhub/internal/ui/styles"
)

// Severity mirrors the web notification levels.
type Severity int

const (
	Success Severity = iota
	Info
	Warning
	Danger
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Danger:
		return "danger"
	default:
		return "success"
	}
}

func (s Severity) icon() string {
	switch s {
	case Info:
		return "ℹ️"
	case Warning:
		return "⚠️"
	case Danger:
		return "❌"
	default:
		return "✅"
	}
}

func (s Severity) color() lipgloss.AdaptiveColor {
	switch s {
	case Info:
		return styles.InfoColor
	case Warning:
		return styles.WarningColor
	case Danger:
		return styles.DangerColor
	default:
		return styles.SuccessColor
	}
}

// Lifetime is how long a toast stays up. Problems stay longer.
func (s Severity) Lifetime() time.Duration {
	if s >= Warning {
		return 6 * time.Second
	}
	return 3 * time.Second
}

// maxWidth bounds the message; longer ones are truncated with an ellipsis.
const maxWidth = 60

// Model holds the toast being shown.
type Model struct {
	message  string
	severity Severity
	visible  bool
	seq      int
}

// New creates a hidden toaster.
func New() Model {
	return Model{}
}

// Show displays message and schedules its dismissal.
func (m Model) Show(message string, sev Severity) (Model, tea.Cmd) {
	m.seq++
	m.message = message
	m.severity = sev
	m.visible = true
	seq := m.seq
	return m, tea.Tick(sev.Lifetime(), func(time.Time) tea.Msg { return DismissMsg{seq: seq} })
}

// Hide dismisses the toast.
func (m Model) Hide() Model {
	m.visible = false
	m.message = ""
	return m
}

// Update handles DismissMsg. A dismissal scheduled for an older toast is
// ignored.
func (m Model) Update(msg tea.Msg) Model {
	if d, ok := msg.(DismissMsg); ok && d.seq == m.seq {
		return m.Hide()
	}
	return m
}

// Visible reports whether a toast is showing.
func (m Model) Visible() bool {
	return m.visible
}

// Severity returns the current toast's severity.
func (m Model) Severity() Severity {
	return m.severity
}

// Message returns the current toast's text.
func (m Model) Message() string {
	return m.message
}

// View renders the toast box.
func (m Model) View() string {
	if !m.visible || m.message == "" {
		return ""
	}
	content := m.severity.icon() + " " + ansi.Truncate(m.message, maxWidth, "…")
	return lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.severity.color()).
		Render(content)
}

// Overlay renders the toast near the bottom of bg.
func (m Model) Overlay(bg string, width, height int) string {
	if !m.visible || m.message == "" {
		return bg
	}
	return overlay.Place(overlay.Config{
		Width:    width,
		Height:   height,
		Position: overlay.Bottom,
		PadY:     1,
	}, m.View(), bg)
}

// DismissMsg hides the toast it was scheduled for.
type DismissMsg struct {
	seq int
}
