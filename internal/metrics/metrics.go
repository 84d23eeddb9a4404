// Package metrics exposes the bot's Prometheus counters.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GateDecisions counts force-join evaluations by result (admit, block).
	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neetbot_gate_decisions_total",
		Help: "Total number of force-join gate decisions by result",
	}, []string{"decision"})

	// OracleErrors counts membership lookups that failed and were treated as satisfied.
	OracleErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neetbot_gate_oracle_errors_total",
		Help: "Total number of membership lookups that failed",
	})

	// BroadcastDeliveries counts broadcast sends by outcome.
	BroadcastDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neetbot_broadcast_deliveries_total",
		Help: "Total number of broadcast deliveries by outcome",
	}, []string{"outcome"})

	BroadcastRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neetbot_broadcast_runs_total",
		Help: "Total number of completed broadcast runs",
	})

	// AnswerRequests counts answer lookups by source (api, mock) and result.
	AnswerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neetbot_answer_requests_total",
		Help: "Total number of answer requests by source and result",
	}, []string{"source", "result"})

	// PromptsSwept counts stale join prompts removed by the sweeper.
	PromptsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neetbot_gate_prompts_swept_total",
		Help: "Total number of stale join prompts removed",
	})

	// UpdatesHandled counts processed updates by kind and result.
	UpdatesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neetbot_updates_handled_total",
		Help: "Total number of handled updates by kind and result",
	}, []string{"kind", "result"})
)

// Delivery outcomes.
const (
	OutcomeSucceeded   = "succeeded"
	OutcomeRateLimited = "rate_limited"
	OutcomeUnreachable = "unreachable"
	OutcomeFailed      = "failed"
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Metrics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
