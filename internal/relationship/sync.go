package relationship

import (
	"context"

	"go.uber.org/zap"
)

const persistFailedNotice = "could not save the new order"

// PersistJob is one reorder batch. Order and Previous are captured when the job is issued and
// are not affected by later drops.
type PersistJob struct {
	Seq      uint64
	ListKey  string
	Order    []Entry
	Previous []Entry
	Updates  []Update
}

// PersistResult reports the outcome of a PersistJob.
type PersistResult struct {
	Seq uint64
	Err error
}

// Persist issues job's batch as a single UpdateMany call.
func Persist(ctx context.Context, src DataSource, job PersistJob) PersistResult {
	if err := src.UpdateMany(ctx, job.ListKey, job.Updates); err != nil {
		return PersistResult{Seq: job.Seq, Err: &PersistError{List: job.ListKey, Updates: len(job.Updates), Err: err}}
	}
	return PersistResult{Seq: job.Seq}
}

// Board holds the display order and serializes its persistence. At most one job is in flight;
// drops made meanwhile are coalesced into one follow-up sent after the in-flight job succeeds.
// A failure restores the failed job's pre-image and discards the follow-up.
type Board struct {
	listKey   string
	order     []Entry
	confirmed []Entry
	seq       uint64
	inflight  *PersistJob
	queued    bool
	stale     bool
	notice    string
	log       *zap.SugaredLogger
}

func NewBoard(listKey string, log *zap.SugaredLogger) *Board {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Board{listKey: listKey, log: log}
}

// Order returns a copy of the display order.
func (b *Board) Order() []Entry { return copyOrder(b.order) }

// Busy reports whether a persist is in flight.
func (b *Board) Busy() bool { return b.inflight != nil }

// Notice is the transient message left by a failed persist.
func (b *Board) Notice() string { return b.notice }

// Reconcile rederives the order from ids and items. While a persist is in flight the rederive is
// deferred until it settles.
func (b *Board) Reconcile(ids IDSet, items map[string]Item) {
	if b.inflight != nil {
		b.stale = true
		return
	}
	b.order = DeriveOrder(ids, items)
	b.confirmed = copyOrder(b.order)
}

// Move applies a drop optimistically. It returns the job to persist, or nil when the drop is a
// no-op, the new order already matches the stored sorts, or a job is in flight (the drop is then
// queued).
func (b *Board) Move(from, to int) *PersistJob {
	if from == to || from < 0 || from >= len(b.order) || to < 0 || to >= len(b.order) {
		return nil
	}
	b.order = ApplyReorder(b.order, from, to)
	b.notice = ""
	if b.inflight != nil {
		b.queued = true
		return nil
	}
	return b.launch()
}

func (b *Board) launch() *PersistJob {
	updates := SortBatch(b.order)
	if len(updates) == 0 {
		b.confirmed = copyOrder(b.order)
		return nil
	}
	b.seq++
	job := &PersistJob{
		Seq:      b.seq,
		ListKey:  b.listKey,
		Order:    copyOrder(b.order),
		Previous: copyOrder(b.confirmed),
		Updates:  updates,
	}
	b.inflight = job
	return job
}

// Settle applies a persist outcome and returns the queued follow-up job, if any. Results that do
// not belong to the in-flight job are ignored.
func (b *Board) Settle(res PersistResult, store *Store, ids IDSet) *PersistJob {
	job := b.inflight
	if job == nil || res.Seq != job.Seq {
		b.log.Infow("ignoring stale reorder result", "list", b.listKey, "seq", res.Seq)
		return nil
	}
	b.inflight = nil

	if res.Err != nil {
		b.log.Warnw("reorder failed, restoring previous order",
			"list", b.listKey, "seq", job.Seq, "updates", len(job.Updates), "error", res.Err)
		if b.queued {
			b.log.Infow("discarding queued reorder", "list", b.listKey)
			b.queued = false
		}
		b.order = copyOrder(job.Previous)
		if b.stale {
			b.stale = false
			b.order = DeriveOrder(ids, store.Items())
		}
		b.confirmed = copyOrder(b.order)
		b.notice = persistFailedNotice
		return nil
	}

	store.learnSorts(job.Updates)
	b.notice = ""
	b.confirmed = indexSorted(job.Order)
	items := store.Items()
	switch {
	case b.stale:
		b.stale = false
		derived := DeriveOrder(ids, items)
		if b.queued {
			b.order = mergeOrder(b.order, derived)
			b.confirmed = mergeOrder(b.confirmed, derived)
		} else {
			b.order = derived
			b.confirmed = copyOrder(derived)
		}
	default:
		b.order = refresh(b.order, items)
	}
	if b.queued {
		b.queued = false
		return b.launch()
	}
	return nil
}

// indexSorted copies order with each item's sort set to its index.
func indexSorted(order []Entry) []Entry {
	out := make([]Entry, len(order))
	for i, e := range order {
		out[i] = Entry{ID: e.ID, Item: e.Item.withSort(i)}
	}
	return out
}

// refresh swaps in the latest known item for each entry, keeping positions.
func refresh(order []Entry, items map[string]Item) []Entry {
	out := copyOrder(order)
	for i, e := range out {
		if it, ok := items[e.ID]; ok {
			out[i].Item = it
		}
	}
	return out
}

// mergeOrder keeps the entries of order that are still in derived, in their current positions,
// and appends the derived entries that order did not have.
func mergeOrder(order, derived []Entry) []Entry {
	byID := make(map[string]Entry, len(derived))
	for _, e := range derived {
		byID[e.ID] = e
	}
	out := make([]Entry, 0, len(derived))
	kept := make(map[string]struct{}, len(order))
	for _, e := range order {
		if d, ok := byID[e.ID]; ok {
			out = append(out, d)
			kept[e.ID] = struct{}{}
		}
	}
	for _, e := range derived {
		if _, ok := kept[e.ID]; !ok {
			out = append(out, e)
		}
	}
	return out
}
