package relationship

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingRecorder struct {
	fetch   map[string]int
	persist map[string]int
	updates int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{fetch: map[string]int{}, persist: map[string]int{}}
}

func (r *countingRecorder) FetchDone(_ string, outcome string) { r.fetch[outcome]++ }

func (r *countingRecorder) PersistDone(_ string, outcome string, updates int) {
	r.persist[outcome]++
	r.updates += updates
}

func threeSections() *fakeSource {
	return newFakeSource(item("a", 0), item("b", 1), item("c", 2))
}

func persist(t *testing.T, src *fakeSource, job *PersistJob) PersistResult {
	t.Helper()
	require.NotNil(t, job)
	return Persist(context.Background(), src, *job)
}

func TestMoveRoundTripsThroughPersist(t *testing.T) {
	src := threeSections()
	f, h := mount(src, true, "a", "b", "c")
	require.Equal(t, []string{"a", "b", "c"}, ids(f.Order()))

	job := f.Move(0, 2)
	require.Equal(t, []string{"b", "c", "a"}, ids(f.Order()), "drop applies before the write")
	require.Equal(t, []string{"b", "c", "a"}, ids(job.Order))
	require.Equal(t, []string{"a", "b", "c"}, ids(job.Previous))
	require.Len(t, job.Updates, 3)

	require.Nil(t, f.ApplyPersist(persist(t, src, job)))
	require.Equal(t, []string{"b", "c", "a"}, ids(f.Order()))
	require.Empty(t, f.Notice())

	for i, e := range f.Order() {
		require.Equal(t, i, e.Item.Sort)
		require.Equal(t, i, src.records[e.ID].Sort)
	}
	require.Equal(t, f.Order(), DeriveOrder(h.value.CurrentIDs, f.State().Items))

	// a reload reads back the same order from the source
	req := f.Reload()
	require.NotNil(t, req)
	require.True(t, f.ApplyFetch(Fetch(context.Background(), src, *req)))
	require.Equal(t, []string{"b", "c", "a"}, ids(f.Order()))
}

func TestFailedPersistRestoresPreviousOrder(t *testing.T) {
	src := threeSections()
	f, _ := mount(src, true, "a", "b", "c")
	before := f.Order()

	src.updateErr = errBoom
	job := f.Move(2, 0)
	require.Equal(t, []string{"c", "a", "b"}, ids(f.Order()))

	res := persist(t, src, job)
	var perr *PersistError
	require.True(t, errors.As(res.Err, &perr))
	require.Equal(t, 3, perr.Updates, "c moves up, a and b shift down")

	require.Nil(t, f.ApplyPersist(res))
	require.Equal(t, before, f.Order())
	require.Equal(t, persistFailedNotice, f.Notice())

	// the next successful drop clears the notice
	src.updateErr = nil
	job = f.Move(0, 1)
	require.Empty(t, f.Notice())
	require.Nil(t, f.ApplyPersist(persist(t, src, job)))
	require.Equal(t, []string{"b", "a", "c"}, ids(f.Order()))
}

func TestDropWhileBusyIsSentAfterSuccess(t *testing.T) {
	src := threeSections()
	f, _ := mount(src, true, "a", "b", "c")

	first := f.Move(0, 2)
	require.Nil(t, f.Move(0, 1), "a second drop waits for the first write")
	require.Equal(t, []string{"c", "b", "a"}, ids(f.Order()))
	require.Nil(t, f.Move(1, 2))
	require.Equal(t, []string{"c", "a", "b"}, ids(f.Order()))

	next := f.ApplyPersist(persist(t, src, first))
	require.NotNil(t, next, "both queued drops go out as one batch")
	require.Greater(t, next.Seq, first.Seq)
	require.Equal(t, []string{"c", "a", "b"}, ids(next.Order))
	require.Equal(t, []string{"b", "c", "a"}, ids(next.Previous))
	require.Len(t, src.batches, 1)

	require.Nil(t, f.ApplyPersist(persist(t, src, next)))
	require.Len(t, src.batches, 2)
	require.Equal(t, []string{"c", "a", "b"}, ids(f.Order()))
	require.Equal(t, 0, src.records["c"].Sort)
	require.Equal(t, 1, src.records["a"].Sort)
	require.Equal(t, 2, src.records["b"].Sort)
}

func TestFailureDiscardsQueuedDrop(t *testing.T) {
	src := threeSections()
	f, _ := mount(src, true, "a", "b", "c")
	before := f.Order()

	first := f.Move(0, 2)
	require.Nil(t, f.Move(0, 1))

	src.updateErr = errBoom
	require.Nil(t, f.ApplyPersist(persist(t, src, first)))
	require.Equal(t, before, f.Order())
	require.Len(t, src.batches, 1)
}

func TestFailedFollowUpRestoresFirstWrite(t *testing.T) {
	src := threeSections()
	f, _ := mount(src, true, "a", "b", "c")

	first := f.Move(0, 2)
	require.Nil(t, f.Move(0, 1))
	next := f.ApplyPersist(persist(t, src, first))

	src.updateErr = errBoom
	require.Nil(t, f.ApplyPersist(persist(t, src, next)))
	require.Equal(t, []string{"b", "c", "a"}, ids(f.Order()))
	for i, e := range f.Order() {
		require.Equal(t, i, e.Item.Sort)
	}
}

func TestStalePersistResultIsIgnored(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := newCountingRecorder()
	src := threeSections()
	f, _ := mountWith(src, testConfig(true), sectionOptions(),
		[]Option{WithLogger(zap.New(core).Sugar()), WithRecorder(rec)}, "a", "b", "c")

	job := f.Move(0, 1)
	require.Nil(t, f.ApplyPersist(PersistResult{Seq: job.Seq + 7, Err: errBoom}))
	require.Equal(t, []string{"b", "a", "c"}, ids(f.Order()))
	require.Equal(t, 1, logs.FilterMessage("ignoring stale reorder result").Len())

	require.Nil(t, f.ApplyPersist(persist(t, src, job)))
	require.Equal(t, 1, rec.persist[OutcomeStale])
	require.Equal(t, 1, rec.persist[OutcomeOK])
	require.Equal(t, 2, rec.updates)
}

func TestNoOpDrops(t *testing.T) {
	src := threeSections()
	f, _ := mount(src, true, "a", "b", "c")

	require.Nil(t, f.Move(1, 1))
	require.Nil(t, f.Move(0, 3))
	require.Nil(t, f.Move(-1, 0))
	require.Equal(t, []string{"a", "b", "c"}, ids(f.Order()))
	require.Empty(t, src.batches)
}

func TestBatchSkipsEntriesAlreadyAtTheirSort(t *testing.T) {
	src := newFakeSource(item("a", 0), item("b", 0))
	f, _ := mount(src, true, "a", "b")
	require.Equal(t, []string{"a", "b"}, ids(f.Order()))

	job := f.Move(1, 0)
	require.Equal(t, []Update{{ID: "a", Data: map[string]any{SortField: 1}}}, job.Updates)
}

func TestIDChangeDuringPersistIsAppliedOnSettle(t *testing.T) {
	src := threeSections()
	src.records["d"] = item("d", 5)
	f, h := mount(src, true, "a", "b", "c")

	job := f.Move(0, 2)

	h.value.CurrentIDs = h.value.CurrentIDs.With("d")
	h.sync(f, src)
	require.Equal(t, []string{"b", "c", "a"}, ids(f.Order()), "the drag is not clobbered by the refetch")

	require.Nil(t, f.ApplyPersist(persist(t, src, job)))
	require.Equal(t, []string{"b", "c", "a", "d"}, ids(f.Order()))
}

func TestTeardownIgnoresLateResults(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	src := threeSections()
	h := &host{value: Value{CurrentIDs: NewIDSet("a", "b"), DisplayOptions: sectionOptions()}}
	f, req, err := NewField(testConfig(true), h.value, h.onChange, WithLogger(zap.New(core).Sugar()))
	require.NoError(t, err)
	require.NotNil(t, req)

	f.Teardown()
	require.False(t, f.Alive())
	require.False(t, f.ApplyFetch(Fetch(context.Background(), src, *req)))
	require.Equal(t, StateLoading, f.State().Kind)
	require.Nil(t, f.Move(0, 1))
	require.Nil(t, f.ApplyPersist(PersistResult{Seq: 1}))
	require.Nil(t, f.Reload())
	require.False(t, f.StartCreate())
	require.Zero(t, h.changes)
	require.Equal(t, 2, logs.FilterMessageSnippet("after teardown").Len())
}

func TestTeardownDuringPersist(t *testing.T) {
	src := threeSections()
	f, _ := mount(src, true, "a", "b", "c")

	job := f.Move(0, 1)
	f.Teardown()
	require.Nil(t, f.ApplyPersist(persist(t, src, job)))
	require.Equal(t, []string{"b", "a", "c"}, ids(f.Order()))
}

func TestFailedFollowUpAfterUnlinkKeepsOnlyLinkedCards(t *testing.T) {
	src := threeSections()
	f, h := mount(src, true, "a", "b", "c")

	first := f.Move(0, 2)
	h.value.CurrentIDs = h.value.CurrentIDs.Without("a")
	h.sync(f, src)
	require.Nil(t, f.Move(0, 1))

	next := f.ApplyPersist(persist(t, src, first))
	require.NotNil(t, next)
	require.Equal(t, []string{"c", "b"}, ids(next.Order))
	require.Equal(t, []string{"b", "c"}, ids(next.Previous), "the unlinked card is not part of the pre-image")

	src.updateErr = errBoom
	require.Nil(t, f.ApplyPersist(persist(t, src, next)))
	require.Equal(t, []string{"b", "c"}, ids(f.Order()))
	require.Equal(t, DeriveOrder(h.value.CurrentIDs, f.State().Items), f.Order())
}
