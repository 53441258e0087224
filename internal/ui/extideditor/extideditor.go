// Package extideditor is the terminal editor for a record's external
// identifiers.
package extideditor

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/orcidhub/orcidhub/internal/extid"
	"github.com/orcidhub/orcidhub/internal/ui/modal"
	"github.com/orcidhub/orcidhub/internal/ui/styles"
)

// Dialog purposes.
const (
	purposeDelete = "extid-delete"
	purposeEdit   = "extid-edit"
)

// SaveMsg asks the owner to persist the edited list.
type SaveMsg struct {
	IDs *extid.List
}

// CloseMsg reports that the editor was left without saving.
type CloseMsg struct{}

// Model edits a copy of the record's list. Nothing is persisted until
// the owner handles SaveMsg.
type Model struct {
	title  string
	ids    *extid.List
	cursor int
	dialog *modal.Model
	// asked is the delete question on screen; only that exact question
	// is confirmed when the dialog is answered.
	asked  string
	width  int
	height int
}

// New opens the editor on a copy of ids.
func New(title string, ids *extid.List) Model {
	clone := extid.NewList(ids.Entries()...)
	return Model{title: title, ids: clone}
}

// IDs returns the list being edited.
func (m Model) IDs() *extid.List {
	return m.ids
}

// Cursor returns the selected position.
func (m Model) Cursor() int {
	return m.cursor
}

// Editing reports whether a dialog is open.
func (m Model) Editing() bool {
	return m.dialog != nil
}

// answer binds the dialog's answer to the question that was shown.
func (m Model) answer(yes bool) extid.Confirmer {
	asked := m.asked
	return extid.ConfirmFunc(func(prompt string) bool {
		return yes && prompt == asked
	})
}

// SetSize records the viewport size.
func (m Model) SetSize(w, h int) Model {
	m.width, m.height = w, h
	if m.dialog != nil {
		m.dialog.SetSize(w, h)
	}
	return m
}

// Update handles keys: j/k move, a adds, d deletes after confirmation,
// enter edits the selected entry, s saves, esc closes.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case modal.SubmitMsg:
		m.dialog = nil
		switch msg.Purpose {
		case purposeDelete:
			if ok, _ := m.ids.Delete(m.cursor, m.answer(true)); ok {
				m.cursor = min(m.cursor, max(m.ids.Len()-1, 0))
			}
			m.asked = ""
		case purposeEdit:
			_ = m.ids.Set(m.cursor, extid.Entry{
				Type:         strings.TrimSpace(msg.Values["type"]),
				Value:        strings.TrimSpace(msg.Values["value"]),
				URL:          strings.TrimSpace(msg.Values["url"]),
				Relationship: extid.Relationship(strings.ToUpper(strings.TrimSpace(msg.Values["relationship"]))),
			})
		}
		return m, nil
	case modal.CancelMsg:
		m.dialog = nil
		if msg.Purpose == purposeDelete {
			_, _ = m.ids.Delete(m.cursor, m.answer(false))
			m.asked = ""
		}
		return m, nil
	}

	if m.dialog != nil {
		d, cmd := m.dialog.Update(msg)
		m.dialog = &d
		return m, cmd
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "j", "down":
		if m.cursor < m.ids.Len()-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "a":
		m.ids.Add()
		m.cursor = 0
		return m.openEdit()
	case "d":
		e, err := m.ids.At(m.cursor)
		if err != nil {
			return m, nil
		}
		m.asked = extid.DeletePrompt(m.cursor, e)
		return m.open(modal.Config{Purpose: purposeDelete, Title: "Delete external id", Message: m.asked, Danger: true})
	case "enter":
		if m.ids.Len() > 0 {
			return m.openEdit()
		}
	case "s":
		ids := m.ids
		return m, func() tea.Msg { return SaveMsg{IDs: ids} }
	case "esc", "q":
		return m, func() tea.Msg { return CloseMsg{} }
	}
	return m, nil
}

func (m Model) openEdit() (Model, tea.Cmd) {
	e, err := m.ids.At(m.cursor)
	if err != nil {
		return m, nil
	}
	return m.open(modal.Config{
		Purpose: purposeEdit,
		Title:   fmt.Sprintf("External id #%d", m.cursor+1),
		Inputs: []modal.Input{
			{Key: "type", Label: "Type", Placeholder: "doi, grant_number, …", Value: e.Type},
			{Key: "value", Label: "Value", Value: e.Value},
			{Key: "url", Label: "URL", Value: e.URL},
			{Key: "relationship", Label: "Relationship", Placeholder: "PART_OF or SELF", Value: string(e.Relationship)},
		},
	})
}

func (m Model) open(cfg modal.Config) (Model, tea.Cmd) {
	d := modal.New(cfg)
	d.SetSize(m.width, m.height)
	m.dialog = &d
	return m, d.Init()
}

// View renders the entries with their advisory issues.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("External identifiers · " + m.title))
	b.WriteString("\n\n")

	cols := []int{16, 24, 28, 10}
	b.WriteString(styles.HeaderStyle.Render("  " + row(cols, "Type", "Value", "URL", "Relation")))
	b.WriteString("\n")
	if m.ids.Len() == 0 {
		b.WriteString(styles.PlaceholderStyle.Render("  No external identifiers. Press a to add one."))
		b.WriteString("\n")
	}
	for i, e := range m.ids.Entries() {
		line := row(cols, e.Type, e.Value, e.URL, string(e.Relationship))
		if i == m.cursor {
			b.WriteString(styles.SelectionIndicatorStyle.Render("> ") + styles.SelectedRowStyle.Render(line))
		} else {
			b.WriteString("  " + styles.RowStyle.Render(line))
		}
		b.WriteString("\n")
	}
	for _, issue := range m.ids.Validate() {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.WarningColor).Render("  ⚠ " + issue.String()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("a add · enter edit · d delete · s save · esc back"))

	view := b.String()
	if m.dialog != nil {
		return m.dialog.Overlay(view)
	}
	return view
}

func row(widths []int, cells ...string) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		w := widths[i]
		parts[i] = runewidth.FillRight(runewidth.Truncate(c, w, "…"), w)
	}
	return strings.Join(parts, " ")
}
