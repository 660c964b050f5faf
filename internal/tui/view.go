package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/relcards/internal/relationship"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(48)
	cursorStyle  = cardStyle.BorderForeground(lipgloss.Color("12"))
	grabbedStyle = cardStyle.BorderStyle(lipgloss.ThickBorder()).BorderForeground(lipgloss.Color("11"))
	editStyle    = cardStyle.BorderStyle(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	bannerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1).Border(lipgloss.NormalBorder(), true, false, false, false)
)

func (a *App) View() string {
	cfg := a.field.Config()
	out := titleStyle.Render(fmt.Sprintf("%s %s / %s", cfg.Owner.Singular, a.ownerLabel, cfg.Field.Label)) + "\n"

	st := a.field.State()
	switch st.Kind {
	case relationship.StateLoading:
		out += dimStyle.Render("Loading…") + "\n"
	case relationship.StateError:
		out += errorStyle.Render(st.Message) + "\n"
	default:
		out += a.renderCards()
	}

	if n := a.field.Notice(); n != "" {
		out += noticeStyle.Render(n) + "\n"
	}
	if a.form != nil && a.form.kind == formCreate {
		out += a.renderCreate()
	}
	if a.field.Mode() == relationship.ModeConnect {
		out += a.renderPicker()
	}
	out += a.helpLine()
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderCards() string {
	cards := a.field.Cards()
	if len(cards) == 0 {
		return dimStyle.Render("No related "+strings.ToLower(a.field.Config().Foreign.Plural)) + "\n"
	}
	var blocks []string
	for _, c := range cards {
		style := cardStyle
		switch {
		case c.EditMode && a.form != nil && a.form.id == c.ID:
			blocks = append(blocks, editStyle.Render(a.renderForm(a.form)))
			continue
		case a.grabbed && c.Index == a.grabFrom:
			style = grabbedStyle
		case c.Index == a.cursor:
			style = cursorStyle
		}
		body := a.renderCard(c)
		if a.grabbed && c.Index == a.cursor && c.Index != a.grabFrom {
			body = "↳ drop here\n" + body
		}
		blocks = append(blocks, style.Render(body))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...) + "\n"
}

func (a *App) renderCard(c relationship.Card) string {
	foreign := a.field.Config().Foreign
	opts := a.session.Value().DisplayOptions
	lines := make([]string, 0, len(opts.CardFields))
	for _, p := range opts.CardFields {
		f, ok := foreign.Field(p)
		if !ok {
			continue
		}
		if a.starIcon != "" {
			f.Icon = a.starIcon
		}
		lines = append(lines, fmt.Sprintf("%s: %s", f.Label, f.Format(c.Item.Get(p))))
	}
	if len(lines) == 0 {
		lines = append(lines, c.Item.Label(foreign.LabelField))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderForm(f *form) string {
	foreign := a.field.Config().Foreign
	var lines []string
	for i, p := range f.fields {
		label := p
		if fd, ok := foreign.Field(p); ok {
			label = fd.Label
		}
		marker := " "
		if i == f.cursor {
			marker = "▶"
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", marker, label, f.inputs[i].View()))
	}
	lines = append(lines, dimStyle.Render(a.help.ShortHelpView(a.formKeys.ShortHelp())))
	return strings.Join(lines, "\n")
}

func (a *App) renderCreate() string {
	foreign := a.field.Config().Foreign
	return bannerStyle.Render("New "+foreign.Singular) + "\n" + a.renderForm(a.form) + "\n"
}

func (a *App) renderPicker() string {
	foreign := a.field.Config().Foreign
	out := bannerStyle.Render("Link existing "+foreign.Plural) + "\n"
	out += "Search: " + a.picker.input.View() + "\n"
	if len(a.picker.results) == 0 {
		out += dimStyle.Render("  (no matches)") + "\n"
	}
	for i, it := range a.picker.results {
		marker := " "
		if i == a.picker.cursor {
			marker = "▶"
		}
		out += fmt.Sprintf("%s %s\n", marker, it.Label(foreign.LabelField))
	}
	k := a.pickerKeys
	out += fmt.Sprintf("[%s] Link  [%s] %s\n", k.Submit.Help().Key, k.Close.Help().Key, a.field.ConnectLabel())
	return out
}

func (a *App) helpLine() string {
	if a.form != nil || a.field.Mode() == relationship.ModeConnect {
		return ""
	}
	if a.grabbed {
		return a.help.View(movingKeyMap{a.keys})
	}
	k := a.keys
	opts := a.session.Value().DisplayOptions
	readOnly := a.field.ReadOnly()
	k.Grab.SetEnabled(!readOnly)
	k.Create.SetEnabled(!readOnly && opts.InlineCreate != nil)
	k.Link.SetEnabled(!readOnly && opts.InlineConnect)
	k.Edit.SetEnabled(!readOnly && opts.InlineEdit != nil)
	k.Unlink.SetEnabled(!readOnly)
	k.Save.SetEnabled(!readOnly)
	out := a.help.View(k)
	if a.session.Dirty() {
		out += "  " + noticeStyle.Render("(unsaved)")
	}
	return out
}
