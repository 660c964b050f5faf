package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jask/relcards/internal/relationship"
	"github.com/jask/relcards/internal/schema"
	"github.com/jask/relcards/internal/service"
)

// App is the card board for one relationship field.
type App struct {
	ctx        context.Context
	source     *service.ItemSource
	session    *service.Session
	field      *relationship.Field
	log        *zap.SugaredLogger
	initial    *relationship.FetchRequest
	ownerLabel string
	starIcon   string
	limit      int

	cursor   int
	grabbed  bool
	grabFrom int

	form   *form
	picker picker
	status string

	keys       keyMap
	formKeys   inputKeyMap
	pickerKeys inputKeyMap
	help       help.Model
}

// Deps wires an App. Initial is the request returned by relationship.NewField.
type Deps struct {
	Source      *service.ItemSource
	Session     *service.Session
	Field       *relationship.Field
	Initial     *relationship.FetchRequest
	Log         *zap.SugaredLogger
	OwnerLabel  string
	StarIcon    string
	SearchLimit int
}

type formKind string

const (
	formCreate formKind = "create"
	formEdit   formKind = "edit"
)

// form is the inline create or edit sub-form, one text input per field.
type form struct {
	kind   formKind
	id     string
	fields []string
	inputs []textinput.Model
	cursor int
}

type picker struct {
	input   textinput.Model
	results []relationship.Item
	cursor  int
}

func (p picker) query() string { return p.input.Value() }

func newInput(value string) textinput.Model {
	in := textinput.New()
	in.Prompt = ""
	in.Cursor.SetMode(cursor.CursorStatic)
	in.SetValue(value)
	in.CursorEnd()
	return in
}

func newPicker() picker {
	in := newInput("")
	in.Placeholder = "search"
	in.Focus()
	return picker{input: in}
}

func New(ctx context.Context, d Deps) *App {
	log := d.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &App{
		ctx:        ctx,
		source:     d.Source,
		session:    d.Session,
		field:      d.Field,
		log:        log,
		initial:    d.Initial,
		ownerLabel: d.OwnerLabel,
		starIcon:   d.StarIcon,
		limit:      d.SearchLimit,
		keys:       newKeyMap(),
		formKeys:   newFormKeyMap(),
		pickerKeys: newPickerKeyMap(),
		help:       help.New(),
	}
}

func (a *App) Init() tea.Cmd {
	req := a.initial
	a.initial = nil
	return a.fetchCmd(req)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(m, a.keys.Force) {
			return a.quit()
		}
		if a.form != nil {
			return a.handleFormKey(m)
		}
		if a.field.Mode() == relationship.ModeConnect {
			return a.handlePickerKey(m)
		}
		return a.handleBoardKey(m)
	case itemsFetchedMsg:
		if a.field.ApplyFetch(relationship.FetchResult(m)) {
			a.clampCursor()
		}
	case persistDoneMsg:
		next := a.field.ApplyPersist(relationship.PersistResult(m))
		a.clampCursor()
		return a, a.persistCmd(next)
	case createdMsg:
		a.form = nil
		if !a.field.CompleteCreate(m.item) {
			return a, nil
		}
		a.status = "created " + m.item.Label(a.labelField())
		return a, a.sync()
	case editedMsg:
		a.form = nil
		if !a.field.CompleteEdit(m.item) {
			return a, nil
		}
		a.status = "saved " + m.item.Label(a.labelField())
		return a, a.sync()
	case searchMsg:
		if m.query == a.picker.query() {
			a.picker.results = m.items
			if a.picker.cursor >= len(m.items) {
				a.picker.cursor = 0
			}
		}
	case savedMsg:
		a.session.MarkSaved(m.ids)
		a.status = "saved links"
	case errMsg:
		a.status = "error: " + m.Error()
	}
	return a, nil
}

func (a *App) quit() (tea.Model, tea.Cmd) {
	a.field.Teardown()
	return a, tea.Quit
}

func (a *App) handleBoardKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	cards := a.field.Cards()
	if a.grabbed {
		switch {
		case key.Matches(m, a.keys.Up):
			if a.cursor > 0 {
				a.cursor--
			}
		case key.Matches(m, a.keys.Down):
			if a.cursor < len(cards)-1 {
				a.cursor++
			}
		case key.Matches(m, a.keys.Drop):
			a.grabbed = false
			a.status = ""
			return a, a.persistCmd(a.field.Move(a.grabFrom, a.cursor))
		case key.Matches(m, a.keys.Cancel):
			a.grabbed = false
			a.cursor = a.grabFrom
			a.status = "move cancelled"
		case key.Matches(m, a.keys.Quit):
			return a.quit()
		}
		return a, nil
	}

	switch {
	case key.Matches(m, a.keys.Quit):
		return a.quit()
	case key.Matches(m, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(m, a.keys.Down):
		if a.cursor < len(cards)-1 {
			a.cursor++
		}
	case key.Matches(m, a.keys.Grab):
		if a.field.ReadOnly() || len(cards) == 0 {
			return a, nil
		}
		a.grabbed = true
		a.grabFrom = a.cursor
		a.status = "moving " + cards[a.cursor].Item.Label(a.labelField())
	case key.Matches(m, a.keys.Create):
		if !a.field.StartCreate() {
			return a, nil
		}
		opts := a.session.Value().DisplayOptions
		a.form = newForm(formCreate, "", opts.InlineCreate.Fields, relationship.Item{})
		return a, a.sync()
	case key.Matches(m, a.keys.Link):
		if !a.field.OpenConnect() {
			return a, nil
		}
		a.picker = newPicker()
		return a, a.searchCmd("")
	case key.Matches(m, a.keys.Edit):
		if len(cards) == 0 {
			return a, nil
		}
		card := cards[a.cursor]
		if !a.field.StartEdit(card.ID) {
			return a, nil
		}
		opts := a.session.Value().DisplayOptions
		a.form = newForm(formEdit, card.ID, opts.InlineEdit.Fields, card.Item)
		return a, a.sync()
	case key.Matches(m, a.keys.Unlink):
		if len(cards) == 0 {
			return a, nil
		}
		card := cards[a.cursor]
		if !a.field.Disconnect(card.ID) {
			return a, nil
		}
		a.status = "disconnected " + card.Item.Label(a.labelField())
		return a, a.sync()
	case key.Matches(m, a.keys.Save):
		return a, a.saveCmd()
	case key.Matches(m, a.keys.Reload):
		return a, a.fetchCmd(a.field.Reload())
	}
	return a, nil
}

func (a *App) handlePickerKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.pickerKeys.Close):
		a.field.CloseConnect()
		a.picker = picker{}
		return a, nil
	case key.Matches(m, a.pickerKeys.Prev):
		if a.picker.cursor > 0 {
			a.picker.cursor--
		}
		return a, nil
	case key.Matches(m, a.pickerKeys.Next):
		if a.picker.cursor < len(a.picker.results)-1 {
			a.picker.cursor++
		}
		return a, nil
	case key.Matches(m, a.pickerKeys.Submit):
		if len(a.picker.results) == 0 {
			return a, nil
		}
		it := a.picker.results[a.picker.cursor]
		if !a.field.Connect(it) {
			return a, nil
		}
		a.status = "connected " + it.Label(a.labelField())
		return a, tea.Batch(a.sync(), a.searchCmd(a.picker.query()))
	}

	before := a.picker.query()
	var cmd tea.Cmd
	a.picker.input, cmd = a.picker.input.Update(m)
	if q := a.picker.query(); q != before {
		return a, tea.Batch(cmd, a.searchCmd(q))
	}
	return a, cmd
}

func (a *App) handleFormKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := a.form
	switch {
	case key.Matches(m, a.formKeys.Close):
		a.form = nil
		if f.kind == formCreate {
			a.field.CancelCreate()
		} else {
			a.field.CancelEdit(f.id)
		}
		return a, a.sync()
	case key.Matches(m, a.formKeys.Next):
		f.focus(f.cursor + 1)
		return a, nil
	case key.Matches(m, a.formKeys.Prev):
		f.focus(f.cursor - 1)
		return a, nil
	case key.Matches(m, a.formKeys.Submit):
		data, err := a.formData(f)
		if err != nil {
			a.status = err.Error()
			return a, nil
		}
		if f.kind == formCreate {
			return a, a.createCmd(data)
		}
		return a, a.editCmd(f.id, data)
	}
	if len(f.inputs) == 0 {
		return a, nil
	}
	var cmd tea.Cmd
	f.inputs[f.cursor], cmd = f.inputs[f.cursor].Update(m)
	return a, cmd
}

func newForm(kind formKind, id string, fields []string, item relationship.Item) *form {
	f := &form{kind: kind, id: id, fields: append([]string(nil), fields...)}
	for _, p := range fields {
		value := ""
		if v := item.Get(p); v != nil && item.ID != "" {
			value = fmt.Sprint(v)
		}
		f.inputs = append(f.inputs, newInput(value))
	}
	f.focus(0)
	return f
}

// focus moves the cursor to field i, clamped to the form.
func (f *form) focus(i int) {
	if len(f.inputs) == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(f.inputs) {
		i = len(f.inputs) - 1
	}
	f.inputs[f.cursor].Blur()
	f.cursor = i
	f.inputs[i].Focus()
}

func (f *form) value(i int) string { return f.inputs[i].Value() }

// formData converts the typed values to record data. Stars fields must be whole numbers.
func (a *App) formData(f *form) (map[string]any, error) {
	list := a.field.Config().Foreign
	data := make(map[string]any, len(f.fields))
	for i, p := range f.fields {
		raw := strings.TrimSpace(f.value(i))
		fd, _ := list.Field(p)
		switch fd.Kind {
		case schema.KindStars, schema.KindInteger:
			if raw == "" {
				continue
			}
			n, ok := schema.Rating(raw)
			if !ok {
				return nil, fmt.Errorf("%s must be a number", strings.ToLower(fd.Label))
			}
			if fd.Kind == schema.KindStars && (n < 0 || n > fd.Stars()) {
				return nil, fmt.Errorf("%s must be between 0 and %d", strings.ToLower(fd.Label), fd.Stars())
			}
			data[p] = n
		default:
			data[p] = raw
		}
	}
	if label := list.LabelField; label != "" {
		if v, ok := data[label]; ok && v == "" {
			return nil, fmt.Errorf("%s is required", strings.ToLower(list.Fields[label].Label))
		}
	}
	return data, nil
}

// sync hands the session's value back to the field after a proposed change.
func (a *App) sync() tea.Cmd {
	req, err := a.field.SetValue(a.session.Value())
	if err != nil {
		a.status = "error: " + err.Error()
		return nil
	}
	a.clampCursor()
	return a.fetchCmd(req)
}

func (a *App) clampCursor() {
	n := len(a.field.Cards())
	if a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
	if a.grabbed && a.grabFrom >= n {
		a.grabbed = false
	}
}

func (a *App) labelField() string { return a.field.Config().Foreign.LabelField }

// commands
func (a *App) fetchCmd(req *relationship.FetchRequest) tea.Cmd {
	if req == nil {
		return nil
	}
	r := *req
	return func() tea.Msg {
		return itemsFetchedMsg(relationship.Fetch(a.ctx, a.source, r))
	}
}

func (a *App) persistCmd(job *relationship.PersistJob) tea.Cmd {
	if job == nil {
		return nil
	}
	j := *job
	return func() tea.Msg {
		return persistDoneMsg(relationship.Persist(a.ctx, a.source, j))
	}
}

func (a *App) createCmd(data map[string]any) tea.Cmd {
	listKey := a.field.Config().Foreign.Key
	return func() tea.Msg {
		it, err := a.source.CreateItem(a.ctx, listKey, data)
		if err != nil {
			return errMsg{err}
		}
		return createdMsg{item: it}
	}
}

func (a *App) editCmd(id string, data map[string]any) tea.Cmd {
	listKey := a.field.Config().Foreign.Key
	return func() tea.Msg {
		it, err := a.source.UpdateItem(a.ctx, listKey, id, data)
		if err != nil {
			return errMsg{err}
		}
		return editedMsg{item: it}
	}
}

func (a *App) searchCmd(query string) tea.Cmd {
	foreign := a.field.Config().Foreign
	exclude := a.session.Value().CurrentIDs
	return func() tea.Msg {
		items, err := a.source.Search(a.ctx, foreign.Key, foreign.LabelField, query, exclude, a.limit)
		if err != nil {
			return errMsg{err}
		}
		return searchMsg{query: query, items: items}
	}
}

func (a *App) saveCmd() tea.Cmd {
	if err := a.field.Validate(); err != nil {
		a.status = err.Error()
		return nil
	}
	v := a.session.Value()
	return func() tea.Msg {
		if err := a.session.Write(a.ctx, v); err != nil {
			a.log.Warnw("save links failed", "error", err)
			return errMsg{err}
		}
		return savedMsg{ids: v.CurrentIDs}
	}
}

type itemsFetchedMsg relationship.FetchResult

type persistDoneMsg relationship.PersistResult

type createdMsg struct{ item relationship.Item }

type editedMsg struct{ item relationship.Item }

type searchMsg struct {
	query string
	items []relationship.Item
}

type savedMsg struct{ ids relationship.IDSet }

type errMsg struct{ error }
