// Package modal provides the yes/no confirmation and small input dialogs
// of the browser.
package modal

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/orcidhub/orcidhub/internal/ui/overlay"
	"github.com/orcidhub/orcidhub/internal/ui/styles"
)

// Input is one text field of an input dialog.
type Input struct {
	Key         string
	Label       string
	Placeholder string
	Value       string
	Required    bool
}

// Config controls the dialog. Without Inputs it is a confirmation.
type Config struct {
	// Purpose is echoed in SubmitMsg and CancelMsg so the owner knows
	// which dialog answered.
	Purpose string
	Title   string
	Message string
	Inputs  []Input
	// Danger styles the confirm button as destructive.
	Danger bool
}

// SubmitMsg reports a confirmation; Values holds the inputs by key.
type SubmitMsg struct {
	Purpose string
	Values  map[string]string
}

// CancelMsg reports a declined or dismissed dialog.
type CancelMsg struct {
	Purpose string
}

const width = 48

// Model is the dialog state. focus indexes the inputs followed by the
// confirm and cancel buttons.
type Model struct {
	cfg    Config
	inputs []textinput.Model
	focus  int
	width  int
	height int
}

// New builds a dialog. Confirmations start on the cancel button.
func New(cfg Config) Model {
	m := Model{cfg: cfg}
	for i, in := range cfg.Inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = in.Placeholder
		ti.Width = width - 6
		ti.SetValue(in.Value)
		if i == 0 {
			ti.Focus()
		}
		m.inputs = append(m.inputs, ti)
	}
	if len(m.inputs) == 0 {
		m.focus = m.cancelIndex()
	}
	return m
}

func (m Model) confirmIndex() int { return len(m.inputs) }
func (m Model) cancelIndex() int  { return len(m.inputs) + 1 }

// Purpose returns the configured purpose.
func (m Model) Purpose() string {
	return m.cfg.Purpose
}

// Init starts the cursor blink for input dialogs.
func (m Model) Init() tea.Cmd {
	if len(m.inputs) > 0 {
		return textinput.Blink
	}
	return nil
}

// Update handles keys. y and n answer a confirmation directly.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		onInput := m.focus < len(m.inputs)
		switch msg.String() {
		case "esc":
			return m, m.cancel()
		case "tab", "down":
			return m.move(1), nil
		case "shift+tab", "up":
			return m.move(-1), nil
		case "left", "right":
			if !onInput {
				if m.focus == m.confirmIndex() {
					m.focus = m.cancelIndex()
				} else {
					m.focus = m.confirmIndex()
				}
				return m, nil
			}
		case "y":
			if len(m.inputs) == 0 {
				return m, m.submit()
			}
		case "n":
			if len(m.inputs) == 0 {
				return m, m.cancel()
			}
		case "enter":
			switch {
			case onInput:
				return m.move(1), nil
			case m.focus == m.confirmIndex():
				if !m.complete() {
					return m, nil
				}
				return m, m.submit()
			default:
				return m, m.cancel()
			}
		}
	}

	if m.focus < len(m.inputs) {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) move(delta int) Model {
	n := len(m.inputs) + 2
	if m.focus < len(m.inputs) {
		m.inputs[m.focus].Blur()
	}
	m.focus = ((m.focus+delta)%n + n) % n
	if m.focus < len(m.inputs) {
		m.inputs[m.focus].Focus()
	}
	return m
}

// complete reports whether every required input has a value.
func (m Model) complete() bool {
	for i, in := range m.cfg.Inputs {
		if in.Required && strings.TrimSpace(m.inputs[i].Value()) == "" {
			return false
		}
	}
	return true
}

// Values returns the current input values by key.
func (m Model) Values() map[string]string {
	values := make(map[string]string, len(m.inputs))
	for i, in := range m.cfg.Inputs {
		values[in.Key] = m.inputs[i].Value()
	}
	return values
}

func (m Model) submit() tea.Cmd {
	msg := SubmitMsg{Purpose: m.cfg.Purpose, Values: m.Values()}
	return func() tea.Msg { return msg }
}

func (m Model) cancel() tea.Cmd {
	msg := CancelMsg{Purpose: m.cfg.Purpose}
	return func() tea.Msg { return msg }
}

// View renders the dialog box.
func (m Model) View() string {
	title := lipgloss.NewStyle().Bold(true).PaddingLeft(1).Render(m.cfg.Title)
	divider := lipgloss.NewStyle().Foreground(styles.BorderDefaultColor).Render(strings.Repeat("─", width))

	var body strings.Builder
	if m.cfg.Message != "" {
		body.WriteString(wordwrap.String(m.cfg.Message, width-2))
		body.WriteString("\n\n")
	}
	for i, in := range m.cfg.Inputs {
		label := in.Label
		if in.Required {
			label += " *"
		}
		border := styles.BorderDefaultColor
		if m.focus == i {
			border = styles.BorderFocusColor
		}
		body.WriteString(label + "\n")
		body.WriteString(lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(border).
			Width(width - 4).
			Render(m.inputs[i].View()))
		body.WriteString("\n")
	}
	body.WriteString(m.buttons())

	content := title + "\n" + divider + "\n" + lipgloss.NewStyle().Padding(1, 1).Render(body.String())
	return styles.BoxStyle.Width(width + 2).Render(content)
}

func (m Model) buttons() string {
	label := "Confirm"
	if len(m.inputs) > 0 {
		label = "Save"
	}
	confirm := styles.PrimaryButtonStyle
	switch {
	case m.cfg.Danger && m.focus == m.confirmIndex():
		confirm = styles.DangerButtonFocusedStyle
	case m.cfg.Danger:
		confirm = styles.DangerButtonStyle
	case m.focus == m.confirmIndex():
		confirm = styles.PrimaryButtonFocusedStyle
	}
	cancel := styles.SecondaryButtonStyle
	if m.focus == m.cancelIndex() {
		cancel = styles.SecondaryFocusedStyle
	}
	return confirm.Render(label) + "  " + cancel.Render("Cancel")
}

// Overlay renders the dialog centered on bg.
func (m Model) Overlay(bg string) string {
	return overlay.Place(overlay.Config{Width: m.width, Height: m.height, Position: overlay.Center}, m.View(), bg)
}

// SetSize records the viewport used for centering.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}
