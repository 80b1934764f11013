package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/turbekoff/deccalc/pkg/calculator"
)

type Metrics struct {
	registry       *prometheus.Registry
	keys           *prometheus.CounterVec
	faults         *prometheus.CounterVec
	sessionsOpened prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "calcbot"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		keys: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "keys_total",
				Help:      "Keypad presses applied to calculator sessions",
			},
			[]string{"key"},
		),
		faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "faults_total",
				Help:      "Calculations that ended in an error display",
			},
			[]string{"fault"},
		),
		sessionsOpened: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_opened_total",
				Help:      "Calculator sessions opened with /open",
			},
		),
	}

	m.registry.MustRegister(m.keys, m.faults, m.sessionsOpened)
	return m
}

// ObserveKey counts key and, when the key moved the engine into an error
// state, the fault it produced.
func (m *Metrics) ObserveKey(key string, before calculator.State, engine *calculator.Engine) {
	m.keys.WithLabelValues(keyLabel(key)).Inc()

	if !before.IsError() && engine.State().IsError() {
		m.faults.WithLabelValues(engine.State().String()).Inc()
	}
}

func (m *Metrics) ObserveSessionOpened() {
	m.sessionsOpened.Inc()
}

func keyLabel(key string) string {
	if len(key) == 1 && '0' <= key[0] && key[0] <= '9' {
		return "digit"
	}
	return key
}

// Serve exposes the registry on addr until ctx is done and reports how
// the server stopped.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}
