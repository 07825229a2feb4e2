package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lorewiki/internal/client/ui"
	"lorewiki/internal/client/view"
	"lorewiki/internal/model"
)

// Lines taken by one entry in the list pane.
const rowHeight = 3

func (m Model) View() string {
	switch m.mode {
	case modeAlert:
		return m.viewAlert()
	case modeForm:
		return m.viewForm()
	}

	listWidth := max(28, m.width*2/5) - 2
	previewWidth := max(30, m.width-listWidth-4) - 2

	var s strings.Builder
	s.WriteString(m.viewHeader())
	s.WriteString("\n")
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		ui.StylePane.Width(listWidth).Render(m.viewList(listWidth-2)),
		ui.StylePane.Width(previewWidth).Render(m.viewPreview(previewWidth-2)),
	))
	s.WriteString("\n")
	s.WriteString(m.viewFooter())
	return s.String()
}

func (m Model) viewHeader() string {
	var parts []string
	parts = append(parts, ui.FormatTitle("Lore Wiki"))
	parts = append(parts, ui.FormatMuted(fmt.Sprintf("%d of %d", len(m.state.Visible()), len(m.state.Entries()))))
	if t := m.state.TypeFilter(); t != "" {
		parts = append(parts, ui.StyleTypeBadge.Render("type: "+t))
	}
	if m.mode == modeSearch {
		parts = append(parts, m.search.View())
	} else if q := m.state.Query(); q != "" {
		parts = append(parts, ui.StyleInfo.Render("search: "+q))
	}
	return strings.Join(parts, "  ")
}

func (m Model) viewList(width int) string {
	visible := m.state.Visible()
	if len(visible) == 0 {
		if len(m.state.Entries()) == 0 {
			return ui.FormatMuted("No lore yet. Press n to write some.")
		}
		return ui.FormatMuted("No entries match.")
	}

	perPage := max(1, (m.height-8)/rowHeight)
	start := 0
	if m.cursor >= perPage {
		start = m.cursor - perPage + 1
	}
	end := min(len(visible), start+perPage)

	selected := m.state.SelectedID()
	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, m.viewRow(visible[i], i == m.cursor, visible[i].ID == selected, width))
	}
	return strings.Join(rows, "\n")
}

func (m Model) viewRow(e model.Entry, atCursor, selected bool, width int) string {
	marker := "  "
	if atCursor {
		marker = ui.StyleSelected.Render("> ")
	}

	title := ui.Truncate(e.Title, max(8, width-len(e.Type)-4))
	if selected {
		title = ui.StyleSelected.Render(title)
	} else {
		title = ui.StyleBold.Render(title)
	}
	line1 := marker + title
	if e.Type != "" {
		line1 += " " + ui.StyleTypeBadge.Render(e.Type)
	}

	updated := view.FormatUpdated(e.UpdatedAt, m.cfg.Location)
	line2 := "  " + ui.FormatMuted(updated) + " " + view.Excerpt(e.Body, max(8, width-len(updated)-3))

	chips := make([]string, 0, 3)
	for _, t := range view.TagPreview(e.Tags) {
		chips = append(chips, ui.StyleTagChip.Render("#"+t))
	}
	line3 := "  " + strings.Join(chips, " ")

	return line1 + "\n" + line2 + "\n" + line3
}

func (m Model) viewPreview(width int) string {
	e, ok := m.state.Selected()
	if !ok {
		return ui.FormatMuted("Select an entry to read it here.")
	}
	p := view.NewPreview(e, m.cfg.Location)

	var s strings.Builder
	s.WriteString(ui.FormatTitle(p.Title))
	s.WriteString("\n")
	s.WriteString(ui.FormatMuted(p.Meta))
	s.WriteString("\n\n")
	if p.Body != "" {
		s.WriteString(lipgloss.NewStyle().Width(width).Render(p.Body))
		s.WriteString("\n")
	}
	if len(p.Media) > 0 {
		s.WriteString("\n")
		for _, b := range p.Media {
			s.WriteString(fmt.Sprintf("%s %s %s\n", ui.KindIcon(b.Kind), b.Filename, ui.FormatMuted(b.URL)))
		}
	}
	return strings.TrimRight(s.String(), "\n")
}

func (m Model) viewFooter() string {
	var s strings.Builder
	switch m.mode {
	case modeConfirmDelete:
		e, _ := m.state.Selected()
		s.WriteString(ui.FormatWarning(fmt.Sprintf("Delete %q? (y/n)", e.Title)))
	case modePrompt:
		s.WriteString(m.prompt.View())
	default:
		if m.status != "" {
			if m.statusErr {
				s.WriteString(ui.FormatError(m.status))
			} else {
				s.WriteString(ui.FormatSuccess(m.status))
			}
		}
	}
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))
	return s.String()
}

func (m Model) viewForm() string {
	heading := "New entry"
	if m.formID != "" {
		heading = "Edit entry"
	}

	var s strings.Builder
	s.WriteString(ui.FormatTitle(heading))
	s.WriteString("\n\n")
	for i, label := range []string{"Title", "Type", "Tags"} {
		s.WriteString(m.fieldLabel(i, label))
		s.WriteString(m.fields[i].View())
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(m.fieldLabel(fieldBody, "Body"))
	s.WriteString("\n")
	s.WriteString(m.body.View())
	s.WriteString("\n\n")
	if m.status != "" && m.statusErr {
		s.WriteString(ui.FormatError(m.status))
		s.WriteString("\n")
	}
	s.WriteString(m.help.View(formKeys{m.keys}))
	return s.String()
}

func (m Model) fieldLabel(i int, label string) string {
	l := fmt.Sprintf("%-6s", label)
	if m.focus == i {
		return ui.StyleSelected.Render(l)
	}
	return ui.StyleMuted.Render(l)
}

func (m Model) viewAlert() string {
	box := ui.StyleAlert.Render(ui.FormatError(m.alert) + "\n\n" + ui.FormatMuted("press enter to dismiss"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
