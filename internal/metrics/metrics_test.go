package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/jask/relcards/internal/relationship"
)

var _ relationship.Recorder = (*Recorder)(nil)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()
	r.FetchDone("Section", relationship.OutcomeOK)
	r.FetchDone("Section", relationship.OutcomeOK)
	r.FetchDone("Section", relationship.OutcomeStale)
	r.PersistDone("Section", relationship.OutcomeOK, 3)
	r.PersistDone("Section", relationship.OutcomeError, 2)
	r.PersistDone("Section", relationship.OutcomeStale, 0)

	require.Equal(t, 2.0, testutil.ToFloat64(r.fetches.WithLabelValues("Section", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("Section", "stale")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.writes.WithLabelValues("Section", "error")))
	require.Equal(t, 3.0, testutil.ToFloat64(r.updates.WithLabelValues("Section", "ok")))
	require.Equal(t, 2, testutil.CollectAndCount(r.updates))
}

func TestHandlerServesCounters(t *testing.T) {
	r := NewRecorder()
	r.PersistDone("Author", relationship.OutcomeOK, 1)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	require.True(t, strings.Contains(body, `relcards_reorder_writes_total{list="Author",outcome="ok"} 1`), body)
}
