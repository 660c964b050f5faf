package relationship

// Mode is the inline sub-form shown below the cards.
type Mode int

const (
	ModeIdle Mode = iota
	ModeCreate
	ModeConnect
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeConnect:
		return "connect"
	default:
		return "idle"
	}
}

// Connect picker toggle labels.
const (
	ConnectCancel = "Cancel"
	ConnectDone   = "Done"
)

// Mode reports which sub-form is active. The connect picker wins over an in-progress create.
func (f *Field) Mode() Mode {
	if f.onChange == nil {
		return ModeIdle
	}
	if f.value.DisplayOptions.InlineConnect && f.connectOpen {
		return ModeConnect
	}
	if f.value.ItemBeingCreated {
		return ModeCreate
	}
	return ModeIdle
}

func (f *Field) propose(v Value) bool {
	if f.onChange == nil || !f.alive {
		return false
	}
	f.onChange(v)
	return true
}

// StartCreate opens the inline create form and closes the connect picker.
func (f *Field) StartCreate() bool {
	if f.onChange == nil || f.value.DisplayOptions.InlineCreate == nil {
		return false
	}
	f.connectOpen = false
	v := f.value
	v.ItemBeingCreated = true
	return f.propose(v)
}

// CancelCreate discards the create form without touching the ids.
func (f *Field) CancelCreate() bool {
	if !f.value.ItemBeingCreated {
		return false
	}
	v := f.value
	v.ItemBeingCreated = false
	return f.propose(v)
}

// CompleteCreate folds a created record into the store and links it: a single-record field is
// replaced, a many field gains the id.
func (f *Field) CompleteCreate(item Item) bool {
	if f.onChange == nil || !f.alive {
		return false
	}
	f.store.Put(item)
	v := f.value
	v.ItemBeingCreated = false
	v.CurrentIDs = f.link(item.ID)
	return f.propose(v)
}

// OpenConnect shows the connect picker. It is refused while a create is in progress.
func (f *Field) OpenConnect() bool {
	if f.onChange == nil || !f.value.DisplayOptions.InlineConnect || f.value.ItemBeingCreated {
		return false
	}
	f.connectOpen = true
	f.connectLabel = ConnectCancel
	return true
}

// Connect links existing records picked in the connect picker.
func (f *Field) Connect(items ...Item) bool {
	if f.onChange == nil || !f.alive || len(items) == 0 {
		return false
	}
	f.store.Put(items...)
	v := f.value
	for _, it := range items {
		v.CurrentIDs = linkTo(v.CurrentIDs, it.ID, f.cfg.Field.Many)
	}
	f.connectLabel = ConnectDone
	return f.propose(v)
}

// CloseConnect hides the connect picker.
func (f *Field) CloseConnect() {
	f.connectOpen = false
	f.connectLabel = ConnectCancel
}

// ConnectLabel is "Cancel" until something was connected, then "Done".
func (f *Field) ConnectLabel() string { return f.connectLabel }

// StartEdit puts the card for id into edit mode.
func (f *Field) StartEdit(id string) bool {
	if f.onChange == nil || f.value.DisplayOptions.InlineEdit == nil || !f.value.CurrentIDs.Has(id) {
		return false
	}
	if f.value.ItemsBeingEdited.Has(id) {
		return false
	}
	v := f.value
	v.ItemsBeingEdited = v.ItemsBeingEdited.With(id)
	return f.propose(v)
}

// CancelEdit leaves edit mode without saving.
func (f *Field) CancelEdit(id string) bool {
	if !f.value.ItemsBeingEdited.Has(id) {
		return false
	}
	v := f.value
	v.ItemsBeingEdited = v.ItemsBeingEdited.Without(id)
	return f.propose(v)
}

// CompleteEdit stores the saved record and leaves edit mode.
func (f *Field) CompleteEdit(item Item) bool {
	if f.onChange == nil || !f.alive {
		return false
	}
	f.store.Put(item)
	f.board.Reconcile(f.value.CurrentIDs, f.store.Items())
	v := f.value
	v.ItemsBeingEdited = v.ItemsBeingEdited.Without(item.ID)
	return f.propose(v)
}

// Disconnect unlinks the card for id. The related record itself is kept.
func (f *Field) Disconnect(id string) bool {
	if !f.value.CurrentIDs.Has(id) {
		return false
	}
	v := f.value
	v.CurrentIDs = v.CurrentIDs.Without(id)
	v.ItemsBeingEdited = v.ItemsBeingEdited.Without(id)
	return f.propose(v)
}

func (f *Field) link(id string) IDSet {
	return linkTo(f.value.CurrentIDs, id, f.cfg.Field.Many)
}

func linkTo(ids IDSet, id string, many bool) IDSet {
	if many {
		return ids.With(id)
	}
	return NewIDSet(id)
}
