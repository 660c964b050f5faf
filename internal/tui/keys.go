package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Grab   key.Binding
	Drop   key.Binding
	Cancel key.Binding
	Create key.Binding
	Link   key.Binding
	Edit   key.Binding
	Unlink key.Binding
	Save   key.Binding
	Reload key.Binding
	Quit   key.Binding
	Force  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Grab:   key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "move")),
		Drop:   key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "drop")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel move")),
		Create: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "create")),
		Link:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "link existing")),
		Edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Unlink: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "unlink")),
		Save:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:   key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Force:  key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// ShortHelp lists the bindings for the idle board. Disabled bindings are skipped by the help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Grab, k.Create, k.Link, k.Edit, k.Unlink, k.Save, k.Reload, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Up, k.Down}}
}

// movingKeyMap is shown while a card is grabbed.
type movingKeyMap struct {
	keyMap
}

func (k movingKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Drop, k.Cancel}
}

// inputKeyMap drives the inline form and the connect picker. Everything it does not bind goes to
// the focused text input.
type inputKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Close  key.Binding
}

func newFormKeyMap() inputKeyMap {
	return inputKeyMap{
		Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Close:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

func newPickerKeyMap() inputKeyMap {
	return inputKeyMap{
		Next:   key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "next")),
		Prev:   key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "previous")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "link")),
		Close:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

func (k inputKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Next, k.Prev, k.Close}
}

func (k inputKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
