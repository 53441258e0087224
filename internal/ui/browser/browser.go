// Package browser is the terminal view of one researcher's sections.
package browser

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"

	"github.com/orcidhub/orcidhub/internal/extid"
	"github.com/orcidhub/orcidhub/internal/log"
	"github.com/orcidhub/orcidhub/internal/pubsub"
	"github.com/orcidhub/orcidhub/internal/record"
	"github.com/orcidhub/orcidhub/internal/schema"
	"github.com/orcidhub/orcidhub/internal/store"
	"github.com/orcidhub/orcidhub/internal/ui/extideditor"
	"github.com/orcidhub/orcidhub/internal/ui/markdown"
	"github.com/orcidhub/orcidhub/internal/ui/modal"
	"github.com/orcidhub/orcidhub/internal/ui/overlay"
	"github.com/orcidhub/orcidhub/internal/ui/styles"
	"github.com/orcidhub/orcidhub/internal/ui/toaster"
	"github.com/orcidhub/orcidhub/internal/view"
)

const purposeDeleteRecord = "delete-record"

// Config wires the browser to its collaborators.
type Config struct {
	Registry      *schema.Registry
	Records       store.Records
	User          store.User
	OwnerClientID string
	Rule          view.MatchRule
	// About is the markdown shown by ?.
	About string
	// MarkdownStyle is passed to glamour; empty detects the terminal.
	MarkdownStyle string
	// Events, when set, refreshes the listing on record changes.
	Events pubsub.Subscriber[store.RecordChange]
	// Logs, when set, feeds the debug log overlay opened with L.
	Logs *log.LogListener
}

type loadedMsg struct {
	section schema.Discriminator
	records []record.Record
	err     error
}

type deletedMsg struct {
	putCode string
	err     error
}

type savedMsg struct {
	putCode string
	err     error
}

// Model is the browser state.
type Model struct {
	cfg      Config
	ctx      context.Context
	sections []*schema.Descriptor
	active   int

	list    view.ListView
	records map[string]record.Record
	cursor  int
	loaded  bool

	confirm  *modal.Model
	deleting string
	editor   *extideditor.Model
	editing  string
	about    string
	showHelp bool

	toaster  toaster.Model
	listener *pubsub.ContinuousListener[store.RecordChange]

	logs     []string
	showLogs bool

	width, height int
}

// New builds the browser. ctx bounds store calls and the event
// subscription.
func New(ctx context.Context, cfg Config) Model {
	m := Model{
		cfg:      cfg,
		ctx:      ctx,
		sections: cfg.Registry.All(),
		toaster:  toaster.New(),
		width:    100,
		height:   30,
	}
	if cfg.Events != nil {
		m.listener = pubsub.NewContinuousListener(ctx, cfg.Events)
	}
	return m
}

// Section returns the active section.
func (m Model) Section() *schema.Descriptor {
	return m.sections[m.active]
}

// List returns the rendered listing of the active section.
func (m Model) List() view.ListView {
	return m.list
}

// Cursor returns the selected row.
func (m Model) Cursor() int {
	return m.cursor
}

// Toast returns the notification being shown.
func (m Model) Toast() toaster.Model {
	return m.toaster
}

// Init loads the first section.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.load()}
	if m.listener != nil {
		cmds = append(cmds, m.listener.Listen())
	}
	if m.cfg.Logs != nil {
		cmds = append(cmds, m.cfg.Logs.Listen())
	}
	return tea.Batch(cmds...)
}

func (m Model) load() tea.Cmd {
	desc := m.Section()
	ctx, records, userID := m.ctx, m.cfg.Records, m.cfg.User.ID
	return func() tea.Msg {
		recs, err := records.FetchRecords(ctx, userID, desc.Discriminator)
		return loadedMsg{section: desc.Discriminator, records: recs, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.editor != nil {
			e := m.editor.SetSize(msg.Width, msg.Height)
			m.editor = &e
		}
		if m.confirm != nil {
			m.confirm.SetSize(msg.Width, msg.Height)
		}
		m.about = ""
		return m, nil

	case toaster.DismissMsg:
		m.toaster = m.toaster.Update(msg)
		return m, nil

	case pubsub.Event[store.RecordChange]:
		cmds := []tea.Cmd{m.listener.Listen()}
		if msg.Type == pubsub.FlushedEvent ||
			(msg.Payload.UserID == m.cfg.User.ID && msg.Payload.Section == m.Section().Discriminator) {
			cmds = append(cmds, m.load())
		}
		return m, tea.Batch(cmds...)

	case log.LogEvent:
		m.logs = append(m.logs, strings.TrimRight(msg.Payload, "\n"))
		if over := len(m.logs) - maxLogLines; over > 0 {
			m.logs = m.logs[over:]
		}
		return m, m.cfg.Logs.Listen()

	case loadedMsg:
		if msg.section != m.Section().Discriminator {
			return m, nil
		}
		return m.applyLoaded(msg)

	case deletedMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatUI, "Delete failed", msg.err, "put_code", msg.putCode)
			return m.toast("Failed to delete the record: "+msg.err.Error(), toaster.Danger, m.load())
		}
		return m.toast("Record deleted.", toaster.Success, m.load())

	case savedMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatUI, "Save failed", msg.err, "put_code", msg.putCode)
			return m.toast("Failed to save the record: "+msg.err.Error(), toaster.Danger, nil)
		}
		m.editor = nil
		return m.toast("Record saved.", toaster.Success, m.load())

	case extideditor.SaveMsg:
		return m, m.saveExternalIDs(msg.IDs)

	case extideditor.CloseMsg:
		m.editor = nil
		return m, nil

	case modal.SubmitMsg, modal.CancelMsg:
		if m.editor != nil {
			return m.updateEditor(msg)
		}
		return m.answerConfirm(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}

	// Cursor blinks and other component messages.
	switch {
	case m.confirm != nil:
		d, cmd := m.confirm.Update(msg)
		m.confirm = &d
		return m, cmd
	case m.editor != nil:
		return m.updateEditor(msg)
	}
	return m, nil
}

func (m Model) applyLoaded(msg loadedMsg) (tea.Model, tea.Cmd) {
	desc := m.Section()
	m.loaded = true
	m.records = make(map[string]record.Record, len(msg.records))
	for _, rec := range msg.records {
		m.records[rec.String(desc.PutCodePath, "")] = rec
	}
	m.list = view.RenderList(desc, msg.records, view.ListContext{
		UserID:        m.cfg.User.ID,
		OwnerClientID: m.cfg.OwnerClientID,
		Rule:          m.cfg.Rule,
	})
	m.cursor = min(m.cursor, max(len(m.list.Rows)-1, 0))
	if msg.err != nil {
		log.ErrorErr(log.CatUI, "Failed to load records", msg.err, "section", desc.Discriminator)
		return m.toast("Failed to load records: "+msg.err.Error(), toaster.Danger, nil)
	}
	return m, nil
}

func (m Model) toast(text string, sev toaster.Severity, next tea.Cmd) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.toaster, cmd = m.toaster.Show(text, sev)
	return m, tea.Batch(cmd, next)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.confirm != nil {
		d, cmd := m.confirm.Update(msg)
		m.confirm = &d
		return m, cmd
	}
	if m.editor != nil {
		return m.updateEditor(msg)
	}
	if m.showHelp {
		switch msg.String() {
		case "?", "esc", "q":
			m.showHelp = false
		}
		return m, nil
	}
	if m.showLogs {
		switch msg.String() {
		case "L", "esc", "q":
			m.showLogs = false
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab", "l", "right":
		return m.switchSection(1)
	case "shift+tab", "h", "left":
		return m.switchSection(-1)
	case "j", "down":
		if m.cursor < len(m.list.Rows)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "r":
		return m, m.load()
	case "d":
		return m.askDelete()
	case "x":
		return m.openEditor()
	case "L":
		m.showLogs = m.cfg.Logs != nil
	case "?":
		m.showHelp = true
		if m.about == "" {
			m.about = m.renderAbout()
		}
	}
	return m, nil
}

// handleMouse selects a tab or a row on left click. Clicks are ignored
// while a dialog, the editor or the about overlay is open.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	if m.confirm != nil || m.editor != nil || m.showHelp || m.showLogs {
		return m, nil
	}
	for i := range m.sections {
		if z := zone.Get(tabZoneID(i)); z != nil && z.InBounds(msg) {
			return m.switchSection(i - m.active)
		}
	}
	for i := range m.list.Rows {
		if z := zone.Get(rowZoneID(i)); z != nil && z.InBounds(msg) {
			m.cursor = i
			return m, nil
		}
	}
	return m, nil
}

func tabZoneID(i int) string { return fmt.Sprintf("browser-tab-%d", i) }
func rowZoneID(i int) string { return fmt.Sprintf("browser-row-%d", i) }

func (m Model) switchSection(delta int) (tea.Model, tea.Cmd) {
	n := len(m.sections)
	m.active = ((m.active+delta)%n + n) % n
	m.cursor = 0
	m.loaded = false
	m.list = view.ListView{}
	return m, m.load()
}

// selected returns the row under the cursor and its record.
func (m Model) selected() (view.Row, record.Record, bool) {
	if m.cursor >= len(m.list.Rows) {
		return view.Row{}, nil, false
	}
	row := m.list.Rows[m.cursor]
	if row.Placeholder {
		return view.Row{}, nil, false
	}
	return row, m.records[row.PutCode], true
}

const notOwnRecord = "This record was not added by your organisation and cannot be changed."

func (m Model) askDelete() (tea.Model, tea.Cmd) {
	row, _, ok := m.selected()
	if !ok {
		return m, nil
	}
	if !row.Eligible() {
		return m.toast(notOwnRecord, toaster.Warning, nil)
	}
	label := row.PutCode
	if len(row.Cells) > 0 && row.Cells[0].Text != "" {
		label = row.Cells[0].Text
	}
	d := modal.New(modal.Config{
		Purpose: purposeDeleteRecord,
		Title:   "Delete " + m.Section().Title,
		Message: fmt.Sprintf("Delete %q (put code %s)? This cannot be undone.", label, row.PutCode),
		Danger:  true,
	})
	d.SetSize(m.width, m.height)
	m.confirm = &d
	m.deleting = row.PutCode
	return m, nil
}

func (m Model) answerConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	putCode := m.deleting
	m.confirm, m.deleting = nil, ""
	switch msg := msg.(type) {
	case modal.SubmitMsg:
		if msg.Purpose != purposeDeleteRecord {
			return m, nil
		}
		// The listing may have reloaded while the dialog was open, so the
		// confirmed record is checked again rather than the cursor row.
		desc := m.Section()
		rec, ok := m.records[putCode]
		if !ok {
			return m.toast("The record is no longer listed and was not deleted.", toaster.Warning, nil)
		}
		if !view.Eligible(desc, rec, m.cfg.OwnerClientID, m.cfg.Rule) {
			return m.toast(notOwnRecord, toaster.Warning, nil)
		}
		ctx, records, userID, d := m.ctx, m.cfg.Records, m.cfg.User.ID, desc.Discriminator
		return m, func() tea.Msg {
			return deletedMsg{putCode: putCode, err: records.DeleteRecord(ctx, userID, d, putCode)}
		}
	case modal.CancelMsg:
		return m.toast("The record was kept.", toaster.Info, nil)
	}
	return m, nil
}

func (m Model) openEditor() (tea.Model, tea.Cmd) {
	desc := m.Section()
	if !desc.HasExternalIDs() {
		return m.toast(desc.Title+" records have no external identifiers.", toaster.Info, nil)
	}
	row, rec, ok := m.selected()
	if !ok {
		return m, nil
	}
	if !row.Eligible() {
		return m.toast(notOwnRecord, toaster.Warning, nil)
	}
	form, err := view.RenderForm(desc, rec, view.FormContext{UserID: m.cfg.User.ID})
	if err != nil {
		return m.toast("The record cannot be edited: "+err.Error(), toaster.Danger, nil)
	}
	title := row.PutCode
	if len(row.Cells) > 0 && row.Cells[0].Text != "" {
		title = row.Cells[0].Text
	}
	e := extideditor.New(title, form.ExternalIDs).SetSize(m.width, m.height)
	m.editor = &e
	m.editing = row.PutCode
	return m, nil
}

func (m Model) updateEditor(msg tea.Msg) (tea.Model, tea.Cmd) {
	e, cmd := m.editor.Update(msg)
	m.editor = &e
	return m, cmd
}

// saveExternalIDs writes the edited list together with the record's
// current field values.
func (m Model) saveExternalIDs(ids *extid.List) tea.Cmd {
	desc := m.Section()
	rec, ok := m.records[m.editing]
	if !ok {
		putCode := m.editing
		return func() tea.Msg { return savedMsg{putCode: putCode, err: store.ErrRecordNotFound} }
	}
	ctx, records, userID, putCode := m.ctx, m.cfg.Records, m.cfg.User.ID, m.editing
	return func() tea.Msg {
		form, err := view.RenderForm(desc, rec, view.FormContext{UserID: userID})
		if err != nil {
			return savedMsg{putCode: putCode, err: err}
		}
		form.ExternalIDs = ids
		payload, err := form.Payload(desc)
		if err == nil {
			_, err = records.SaveRecord(ctx, userID, desc.Discriminator, putCode, payload)
		}
		return savedMsg{putCode: putCode, err: err}
	}
}

func (m Model) renderAbout() string {
	r, err := markdown.New(min(m.width-6, 80), m.cfg.MarkdownStyle)
	if err != nil {
		log.ErrorErr(log.CatUI, "Failed to create markdown renderer", err)
		return m.cfg.About
	}
	out, err := r.Render(m.cfg.About)
	if err != nil {
		log.ErrorErr(log.CatUI, "Failed to render about page", err)
		return m.cfg.About
	}
	return strings.TrimSpace(out)
}

// View renders the screen.
func (m Model) View() string {
	var body string
	if m.editor != nil {
		body = m.editor.View()
	} else {
		body = m.viewList()
	}
	screen := m.header() + "\n" + body
	if m.showHelp {
		screen = overlay.Place(overlay.Config{Width: m.width, Height: m.height, Position: overlay.Center},
			styles.BoxStyle.Padding(0, 1).Render(m.about+"\n\n"+styles.HelpStyle.Render("? or esc to close")), screen)
	}
	if m.showLogs {
		screen = overlay.Place(overlay.Config{Width: m.width, Height: m.height, Position: overlay.Center},
			m.viewLogs(), screen)
	}
	if m.confirm != nil {
		screen = m.confirm.Overlay(screen)
	}
	return zone.Scan(m.toaster.Overlay(screen, m.width, m.height))
}

const maxLogLines = 200

// viewLogs renders the newest log lines that fit the screen.
func (m Model) viewLogs() string {
	width := max(m.width-8, 20)
	lines := m.logs[max(len(m.logs)-max(m.height-8, 1), 0):]
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Debug log"))
	b.WriteString("\n")
	if len(lines) == 0 {
		b.WriteString(styles.PlaceholderStyle.Render("Nothing logged yet."))
	}
	for i, line := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(ansi.Truncate(line, width, "…"))
	}
	b.WriteString("\n\n" + styles.HelpStyle.Render("L or esc to close"))
	return styles.BoxStyle.Padding(0, 1).Render(b.String())
}

func (m Model) header() string {
	user := m.cfg.User.Name
	if m.cfg.User.ORCID != "" {
		user += " · " + m.cfg.User.ORCID
	}
	tabs := make([]string, len(m.sections))
	for i, s := range m.sections {
		if i == m.active {
			tabs[i] = styles.ActiveTabStyle.Render(s.Discriminator.String())
		} else {
			tabs[i] = styles.TabStyle.Render(s.Discriminator.String())
		}
		tabs[i] = zone.Mark(tabZoneID(i), tabs[i])
	}
	return styles.TitleStyle.Render(user) + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewList() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(m.Section().Title))
	b.WriteString("\n\n")
	if !m.loaded {
		b.WriteString(styles.PlaceholderStyle.Render("  Loading…"))
		return b.String()
	}

	width := columnWidth(m.width, len(m.list.Headers))
	b.WriteString(styles.HeaderStyle.Render("  " + cells(width, m.list.Headers)))
	b.WriteString("\n")
	for i, row := range m.list.Rows {
		if row.Placeholder {
			b.WriteString(styles.PlaceholderStyle.Render("  " + row.Cells[0].Text))
			b.WriteString("\n")
			continue
		}
		texts := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			texts[j] = c.Text
		}
		line := cells(width, texts)
		switch {
		case i == m.cursor:
			line = styles.SelectionIndicatorStyle.Render("> ") + styles.SelectedRowStyle.Render(line)
		case !row.Eligible():
			line = "  " + styles.LockedRowStyle.Render(line)
		default:
			line = "  " + styles.RowStyle.Render(line)
		}
		b.WriteString(zone.Mark(rowZoneID(i), line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	help := "tab/shift+tab section · j/k move · d delete · x external ids · r reload · ? about"
	if m.cfg.Logs != nil {
		help += " · L log"
	}
	b.WriteString(styles.HelpStyle.Render(help + " · q quit"))
	return b.String()
}

func columnWidth(total, n int) int {
	if n == 0 {
		return total
	}
	return max((total-2)/n-1, 6)
}

func cells(width int, texts []string) string {
	parts := make([]string, len(texts))
	for i, t := range texts {
		t = ansi.Truncate(t, width, "…")
		parts[i] = t + strings.Repeat(" ", max(width-ansi.StringWidth(t), 0))
	}
	return strings.Join(parts, " ")
}
