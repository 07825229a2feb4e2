// Package tui is the interactive lore browser: a list pane, a preview pane
// and the forms and prompts that drive a client Session.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"lorewiki/internal/client/app"
	"lorewiki/internal/client/ui"
	"lorewiki/internal/client/view"
)

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modeForm
	modeConfirmDelete
	modePrompt
	modeAlert
)

type promptKind int

const (
	promptUpload promptKind = iota
	promptDetach
)

// Form field order; the body textarea comes after the three inputs.
const (
	fieldTitle = iota
	fieldType
	fieldTags
	fieldBody
)

// snapshotMsg carries the collection re-fetched after an action.
type snapshotMsg struct {
	snap   app.Snapshot
	status string
}

// errMsg reports a failed action. Alerts block the UI until dismissed.
type errMsg struct {
	err   error
	alert bool
}

type statusMsg string

// Config holds the optional collaborators of a Model.
type Config struct {
	// SaveTheme persists the theme after it is toggled.
	SaveTheme func(view.Theme) error
	// Location is used to render update times. Defaults to time.Local.
	Location *time.Location
}

// Model is the bubbletea model. All state changes happen in Update; the
// Session runs inside commands and only its Snapshot reaches the state.
type Model struct {
	ctx     context.Context
	session *app.Session
	state   *view.State
	cfg     Config

	mode   mode
	cursor int
	width  int
	height int

	search     textinput.Model
	prompt     textinput.Model
	promptKind promptKind

	formID string
	fields [3]textinput.Model
	body   textarea.Model
	focus  int

	help      help.Model
	keys      keyMap
	status    string
	statusErr bool
	alert     string
}

func New(ctx context.Context, session *app.Session, state *view.State, cfg Config) Model {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "Search title, type, tags, body..."
	search.CharLimit = 100

	prompt := textinput.New()
	prompt.CharLimit = 1024

	var fields [3]textinput.Model
	for i, ph := range []string{"Untitled", "npc, location, item...", "comma, separated, tags"} {
		ti := textinput.New()
		ti.Placeholder = ph
		ti.CharLimit = 0
		fields[i] = ti
	}

	body := textarea.New()
	body.Placeholder = "Write the lore..."
	body.ShowLineNumbers = false
	body.CharLimit = 0

	return Model{
		ctx:     ctx,
		session: session,
		state:   state,
		cfg:     cfg,
		mode:    modeBrowse,
		width:   100,
		height:  30,
		search:  search,
		prompt:  prompt,
		fields:  fields,
		body:    body,
		help:    help.New(),
		keys:    keys,
	}
}

// Run starts the program on the alternate screen and blocks until the user
// quits or ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.load("")
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.body.SetWidth(max(20, msg.Width-6))
		m.body.SetHeight(max(3, msg.Height-16))
		return m, nil

	case snapshotMsg:
		msg.snap.ApplyTo(m.state)
		m.syncCursor()
		if m.mode == modeForm {
			m.closeForm()
		}
		m.setStatus(msg.status, false)
		return m, nil

	case errMsg:
		if msg.alert {
			m.alert = msg.err.Error()
			m.mode = modeAlert
			return m, nil
		}
		m.setStatus(msg.err.Error(), true)
		return m, nil

	case statusMsg:
		m.setStatus(string(msg), false)
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeForm:
			return m.updateForm(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		case modePrompt:
			return m.updatePrompt(msg)
		case modeAlert:
			return m.updateAlert(msg)
		default:
			return m.updateBrowse(msg)
		}
	}

	// Cursor blinks and the like go to whichever input has focus.
	var cmd tea.Cmd
	switch m.mode {
	case modeSearch:
		m.search, cmd = m.search.Update(msg)
	case modePrompt:
		m.prompt, cmd = m.prompt.Update(msg)
	case modeForm:
		cmd = m.updateFocused(msg)
	}
	return m, cmd
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.selectCursor()
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.state.Visible())-1 {
			m.cursor++
			m.selectCursor()
		}

	case key.Matches(msg, m.keys.Select):
		m.selectCursor()

	case key.Matches(msg, m.keys.Clear):
		m.state.ClearSelection()

	case key.Matches(msg, m.keys.New):
		cmd := m.openForm(view.Form{})
		return m, cmd

	case key.Matches(msg, m.keys.Edit):
		e, ok := m.state.Selected()
		if !ok {
			m.setStatus("select an entry to edit", true)
			return m, nil
		}
		cmd := m.openForm(view.FormFromEntry(e))
		return m, cmd

	case key.Matches(msg, m.keys.Delete):
		if _, ok := m.state.Selected(); !ok {
			m.setStatus("select an entry to delete", true)
			return m, nil
		}
		m.mode = modeConfirmDelete

	case key.Matches(msg, m.keys.Upload):
		if _, ok := m.state.Selected(); !ok {
			m.alert = app.ErrNoSelection.Error()
			m.mode = modeAlert
			return m, nil
		}
		cmd := m.openPrompt(promptUpload, "")
		return m, cmd

	case key.Matches(msg, m.keys.Detach):
		e, ok := m.state.Selected()
		if !ok {
			m.setStatus("select an entry first", true)
			return m, nil
		}
		if len(e.Media) == 0 {
			m.setStatus("this entry has no media", true)
			return m, nil
		}
		cmd := m.openPrompt(promptDetach, e.Media[0].Filename)
		return m, cmd

	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.search.SetValue(m.state.Query())
		m.search.CursorEnd()
		cmd := m.search.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Type):
		t := m.state.CycleTypeFilter()
		m.syncCursor()
		if t == "" {
			t = "all"
		}
		m.setStatus("type: "+t, false)

	case key.Matches(msg, m.keys.Theme):
		theme := m.state.ToggleTheme()
		ui.SetTheme(string(theme))
		return m, m.saveTheme(theme)

	case key.Matches(msg, m.keys.Refresh):
		return m, m.load("refreshed")
	}

	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		m.mode = modeBrowse
		m.search.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeBrowse
		m.search.Blur()
		m.search.SetValue("")
		m.state.SetQuery("")
		m.syncCursor()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.state.SetQuery(m.search.Value())
	m.syncCursor()
	return m, cmd
}

func (m Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.mode = modeBrowse
		e, ok := m.state.Selected()
		if !ok {
			return m, nil
		}
		ctx, session, id := m.ctx, m.session, e.ID
		return m, run(func() (app.Snapshot, error) {
			return session.Delete(ctx, id)
		}, fmt.Sprintf("deleted %q", e.Title), false)
	case key.Matches(msg, m.keys.Deny):
		m.mode = modeBrowse
	}
	return m, nil
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		value := strings.TrimSpace(m.prompt.Value())
		m.mode = modeBrowse
		m.prompt.Blur()
		ctx, session, id := m.ctx, m.session, m.state.SelectedID()
		if m.promptKind == promptUpload {
			return m, run(func() (app.Snapshot, error) {
				return session.UploadFile(ctx, id, value)
			}, "uploaded "+value, true)
		}
		return m, run(func() (app.Snapshot, error) {
			return session.Detach(ctx, id, value)
		}, "detached "+value, false)
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeBrowse
		m.prompt.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m Model) updateAlert(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit, m.keys.Cancel) {
		m.alert = ""
		m.mode = modeBrowse
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closeForm()
		return m, nil
	case key.Matches(msg, m.keys.Save):
		f := m.form()
		ctx, session := m.ctx, m.session
		return m, run(func() (app.Snapshot, error) {
			return session.Save(ctx, f)
		}, "saved "+strings.TrimSpace(f.Input().Title), false)
	case key.Matches(msg, m.keys.NextItem):
		cmd := m.setFocus((m.focus + 1) % 4)
		return m, cmd
	case key.Matches(msg, m.keys.PrevItem):
		cmd := m.setFocus((m.focus + 3) % 4)
		return m, cmd
	}
	cmd := m.updateFocused(msg)
	return m, cmd
}

func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if m.focus == fieldBody {
		m.body, cmd = m.body.Update(msg)
	} else {
		m.fields[m.focus], cmd = m.fields[m.focus].Update(msg)
	}
	return cmd
}

func (m *Model) openForm(f view.Form) tea.Cmd {
	m.mode = modeForm
	m.formID = f.ID
	m.fields[fieldTitle].SetValue(f.Title)
	m.fields[fieldType].SetValue(f.Type)
	m.fields[fieldTags].SetValue(f.Tags)
	m.body.SetValue(f.Body)
	return m.setFocus(fieldTitle)
}

func (m *Model) closeForm() {
	m.mode = modeBrowse
	m.formID = ""
	for i := range m.fields {
		m.fields[i].Blur()
	}
	m.body.Blur()
}

func (m Model) form() view.Form {
	return view.Form{
		ID:    m.formID,
		Title: m.fields[fieldTitle].Value(),
		Type:  m.fields[fieldType].Value(),
		Tags:  m.fields[fieldTags].Value(),
		Body:  m.body.Value(),
	}
}

func (m *Model) setFocus(i int) tea.Cmd {
	m.focus = i
	for j := range m.fields {
		m.fields[j].Blur()
	}
	m.body.Blur()
	if i == fieldBody {
		return m.body.Focus()
	}
	return m.fields[i].Focus()
}

func (m *Model) openPrompt(kind promptKind, value string) tea.Cmd {
	m.mode = modePrompt
	m.promptKind = kind
	if kind == promptUpload {
		m.prompt.Prompt = "file: "
		m.prompt.Placeholder = "path to an image or audio file"
	} else {
		m.prompt.Prompt = "detach: "
		m.prompt.Placeholder = "filename"
	}
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	return m.prompt.Focus()
}

// selectCursor makes the entry under the cursor the active one.
func (m *Model) selectCursor() {
	visible := m.state.Visible()
	if m.cursor >= 0 && m.cursor < len(visible) {
		m.state.Select(visible[m.cursor].ID)
	}
}

// syncCursor moves the cursor onto the selected entry, or keeps it inside
// the visible list when nothing visible is selected.
func (m *Model) syncCursor() {
	visible := m.state.Visible()
	if id := m.state.SelectedID(); id != "" {
		for i, e := range visible {
			if e.ID == id {
				m.cursor = i
				return
			}
		}
	}
	if m.cursor >= len(visible) {
		m.cursor = len(visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m Model) load(status string) tea.Cmd {
	ctx, session, keep := m.ctx, m.session, m.state.SelectedID()
	return run(func() (app.Snapshot, error) {
		return session.Load(ctx, keep)
	}, status, false)
}

func (m Model) saveTheme(theme view.Theme) tea.Cmd {
	save := m.cfg.SaveTheme
	return func() tea.Msg {
		if save != nil {
			if err := save(theme); err != nil {
				return errMsg{err: fmt.Errorf("save theme: %w", err)}
			}
		}
		return statusMsg("theme: " + string(theme))
	}
}

func run(action func() (app.Snapshot, error), status string, alert bool) tea.Cmd {
	return func() tea.Msg {
		snap, err := action()
		if err != nil {
			return errMsg{err: err, alert: alert}
		}
		return snapshotMsg{snap: snap, status: status}
	}
}
