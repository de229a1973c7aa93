// Package metrics defines the Prometheus collectors for store operations.
//
// Collectors live on a private registry owned by Recorder so that tests and
// multiple App instances never collide on the default registry. A nil
// *Recorder is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contactbook"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder owns the registry and collectors.
type Recorder struct {
	registry *prometheus.Registry

	// OpsTotal counts store operations.
	// Labels: store ("auth", "contacts"), op ("register", "create", ...), result ("ok"/"error").
	OpsTotal *prometheus.CounterVec

	// OpDuration measures operations including simulated latency.
	OpDuration *prometheus.HistogramVec

	// StorageErrorsTotal counts key/value backend failures by op ("get", "set", "remove", "update").
	StorageErrorsTotal *prometheus.CounterVec
}

// NewRecorder creates and registers all collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		OpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of store operations, by store, operation and result.",
		}, []string{"store", "op", "result"}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of store operations including simulated latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "op"}),
		StorageErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Total number of key/value storage failures, by operation.",
		}, []string{"op"}),
	}
	r.registry.MustRegister(r.OpsTotal, r.OpDuration, r.StorageErrorsTotal)
	return r
}

// Observe records one finished store operation.
func (r *Recorder) Observe(store, op string, started time.Time, err error) {
	if r == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.OpsTotal.WithLabelValues(store, op, result).Inc()
	r.OpDuration.WithLabelValues(store, op).Observe(time.Since(started).Seconds())
}

// StorageError records a key/value backend failure.
func (r *Recorder) StorageError(op string) {
	if r == nil {
		return
	}
	r.StorageErrorsTotal.WithLabelValues(op).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
