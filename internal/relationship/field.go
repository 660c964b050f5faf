package relationship

import (
	"go.uber.org/zap"

	"github.com/jask/relcards/internal/schema"
)

// Outcomes reported to a Recorder.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeStale = "stale"
)

// Recorder observes fetch and persist outcomes.
type Recorder interface {
	FetchDone(list, outcome string)
	PersistDone(list, outcome string, updates int)
}

type nopRecorder struct{}

func (nopRecorder) FetchDone(string, string)        {}
func (nopRecorder) PersistDone(string, string, int) {}

// Config identifies the relationship field an instance edits.
type Config struct {
	Owner    schema.List
	OwnerID  string
	Field    schema.Field
	Foreign  schema.List
	ReadOnly bool
}

// Option configures a Field.
type Option func(*Field)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(f *Field) {
		if log != nil {
			f.log = log
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(f *Field) {
		if r != nil {
			f.rec = r
		}
	}
}

// Card is what the presentation layer renders for one entry.
type Card struct {
	ID       string
	Item     Item
	Index    int
	EditMode bool
}

// Field is one mounted instance of a relationship field. It owns the item store, the display
// order and the connect picker state; the Value itself belongs to the host and changes only
// through onChange. A Field is driven from a single event loop.
type Field struct {
	cfg       Config
	value     Value
	onChange  func(Value)
	selection string
	started   bool

	store *Store
	board *Board

	connectOpen  bool
	connectLabel string

	alive bool
	log   *zap.SugaredLogger
	rec   Recorder
}

// NewField mounts a field with its initial value. The returned request, when non-nil, must be
// run with Fetch and its result handed to ApplyFetch.
func NewField(cfg Config, value Value, onChange func(Value), opts ...Option) (*Field, *FetchRequest, error) {
	f := &Field{
		cfg:          cfg,
		onChange:     onChange,
		store:        NewStore(),
		connectLabel: ConnectCancel,
		alive:        true,
		log:          zap.NewNop().Sugar(),
		rec:          nopRecorder{},
	}
	if cfg.ReadOnly {
		f.onChange = nil
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With("field", cfg.Owner.Key+"."+cfg.Field.Path, "owner", cfg.OwnerID)
	f.board = NewBoard(cfg.Foreign.Key, f.log)
	req, err := f.SetValue(value)
	if err != nil {
		return nil, nil, err
	}
	return f, req, nil
}

// SetValue receives the host's current value. A changed id set or selection starts a new item
// query; the returned request is nil when none is needed.
func (f *Field) SetValue(v Value) (*FetchRequest, error) {
	sel, err := ResolveSelection(v.DisplayOptions, f.cfg.Foreign)
	if err != nil {
		return nil, err
	}
	changed := !f.started || sel != f.selection || !v.CurrentIDs.Equal(f.value.CurrentIDs)
	f.value = v
	f.selection = sel
	if !changed {
		return nil, nil
	}
	f.started = true

	req := f.store.Query(Query{
		Selection:   sel,
		ForeignList: f.cfg.Foreign.Key,
		OwnerID:     f.cfg.OwnerID,
		Field:       f.cfg.Field.Path,
		IDs:         v.CurrentIDs,
	})
	if req == nil {
		f.board.Reconcile(v.CurrentIDs, f.store.Items())
	}
	return req, nil
}

// Reload issues a fresh query for the current ids regardless of what is known.
func (f *Field) Reload() *FetchRequest {
	if !f.alive {
		return nil
	}
	f.store.Set(nil)
	req := f.store.Query(Query{
		Selection:   f.selection,
		ForeignList: f.cfg.Foreign.Key,
		OwnerID:     f.cfg.OwnerID,
		Field:       f.cfg.Field.Path,
		IDs:         f.value.CurrentIDs,
	})
	if req == nil {
		f.board.Reconcile(f.value.CurrentIDs, f.store.Items())
	}
	return req
}

// ApplyFetch hands a query result to the store. Results for a torn-down field or a superseded
// request are dropped and false is returned.
func (f *Field) ApplyFetch(res FetchResult) bool {
	if !f.alive {
		f.log.Debugw("dropping fetch result after teardown", "gen", res.Gen)
		return false
	}
	if !f.store.Resolve(res) {
		f.log.Infow("dropping stale fetch result", "gen", res.Gen)
		f.rec.FetchDone(f.cfg.Foreign.Key, OutcomeStale)
		return false
	}
	st := f.store.State()
	if st.Kind == StateError {
		f.log.Warnw("item query failed", "error", st.Message)
		f.rec.FetchDone(f.cfg.Foreign.Key, OutcomeError)
		return true
	}
	f.rec.FetchDone(f.cfg.Foreign.Key, OutcomeOK)
	f.board.Reconcile(f.value.CurrentIDs, st.Items)
	return true
}

// Move drops the card at from onto position to. The returned job, when non-nil, must be run with
// Persist and its result handed to ApplyPersist.
func (f *Field) Move(from, to int) *PersistJob {
	if !f.alive || f.store.State().Kind != StateReady {
		return nil
	}
	return f.board.Move(from, to)
}

// ApplyPersist settles a reorder result and returns the next queued job, if any.
func (f *Field) ApplyPersist(res PersistResult) *PersistJob {
	if !f.alive {
		f.log.Debugw("dropping reorder result after teardown", "seq", res.Seq)
		return nil
	}
	switch job := f.board.inflight; {
	case job == nil || job.Seq != res.Seq:
		f.rec.PersistDone(f.cfg.Foreign.Key, OutcomeStale, 0)
	case res.Err != nil:
		f.rec.PersistDone(f.cfg.Foreign.Key, OutcomeError, len(job.Updates))
	default:
		f.rec.PersistDone(f.cfg.Foreign.Key, OutcomeOK, len(job.Updates))
	}
	return f.board.Settle(res, f.store, f.value.CurrentIDs)
}

// Teardown marks the field unmounted. Late results are ignored from then on.
func (f *Field) Teardown() { f.alive = false }

func (f *Field) Alive() bool { return f.alive }

func (f *Field) Value() Value { return f.value }

func (f *Field) Selection() string { return f.selection }

func (f *Field) Config() Config { return f.cfg }

func (f *Field) State() ItemsState { return f.store.State() }

// Order returns the current display order.
func (f *Field) Order() []Entry { return f.board.Order() }

// Notice returns the message left by the last failed reorder, if any.
func (f *Field) Notice() string { return f.board.Notice() }

// ReadOnly reports whether the field has no onChange to propose values to.
func (f *Field) ReadOnly() bool { return f.onChange == nil }

// Cards returns the cards to render, in display order.
func (f *Field) Cards() []Card {
	order := f.board.Order()
	out := make([]Card, len(order))
	for i, e := range order {
		out[i] = Card{ID: e.ID, Item: e.Item, Index: i, EditMode: f.IsEditMode(e.ID)}
	}
	return out
}

// IsEditMode reports whether the card for id shows its inline edit form.
func (f *Field) IsEditMode(id string) bool {
	return f.onChange != nil && f.value.ItemsBeingEdited.Has(id)
}

// Validate fails while inline sub-forms are still open.
func (f *Field) Validate() error {
	return f.value.Validate(f.cfg.Foreign.Plural, f.cfg.Owner.Singular)
}
