// Package metrics exports relationship field outcomes to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Recorder counts item fetches and reorder writes per related list and outcome.
// It satisfies relationship.Recorder.
type Recorder struct {
	reg     *prometheus.Registry
	fetches *prometheus.CounterVec
	writes  *prometheus.CounterVec
	updates *prometheus.CounterVec
}

// NewRecorder registers the counters on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relcards",
			Name:      "item_fetches_total",
			Help:      "Related item queries by list and outcome.",
		}, []string{"list", "outcome"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relcards",
			Name:      "reorder_writes_total",
			Help:      "Reorder batches by list and outcome.",
		}, []string{"list", "outcome"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relcards",
			Name:      "reorder_updates_total",
			Help:      "Records rewritten by reorder batches, by list and outcome.",
		}, []string{"list", "outcome"}),
	}
	r.reg.MustRegister(r.fetches, r.writes, r.updates)
	return r
}

func (r *Recorder) FetchDone(list, outcome string) {
	r.fetches.WithLabelValues(list, outcome).Inc()
}

func (r *Recorder) PersistDone(list, outcome string, updates int) {
	r.writes.WithLabelValues(list, outcome).Inc()
	if updates > 0 {
		r.updates.WithLabelValues(list, outcome).Add(float64(updates))
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string, log *zap.SugaredLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infow("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
