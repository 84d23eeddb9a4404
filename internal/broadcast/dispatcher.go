// Package broadcast copies one message to every known user and group.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rg/neetbot/internal/messaging"
	"github.com/rg/neetbot/internal/metrics"
	"github.com/rg/neetbot/internal/storage"
)

const (
	DefaultSendDelay     = 350 * time.Millisecond
	DefaultProgressEvery = 10
)

type Sender interface {
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error
}

type UsageLogger interface {
	LogUsage(ctx context.Context, entry storage.UsageLog) error
}

// Snapshot is the state of a run after Processed recipients.
type Snapshot struct {
	Processed int
	Total     int
	Succeeded int
	Failed    int
}

type Report struct {
	RunID     uuid.UUID
	Total     int
	Succeeded int
	Failed    int
}

// Sink receives live progress and the final tally, typically by editing a
// status message shown to the admin. Sink errors are logged and ignored.
type Sink interface {
	Progress(ctx context.Context, s Snapshot) error
	Complete(ctx context.Context, r Report) error
}

// Source identifies the message being broadcast.
type Source struct {
	ChatID    int64
	MessageID int
}

type Request struct {
	AdminID    int64
	Source     Source
	Recipients Recipients
	Sink       Sink
}

type Options struct {
	SendDelay     time.Duration
	ProgressEvery int
}

type Dispatcher struct {
	sender        Sender
	usage         UsageLogger
	sendDelay     time.Duration
	progressEvery int
	sleep         func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(sender Sender, usage UsageLogger, opts Options) *Dispatcher {
	if opts.SendDelay < 0 {
		opts.SendDelay = 0
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	return &Dispatcher{
		sender:        sender,
		usage:         usage,
		sendDelay:     opts.SendDelay,
		progressEvery: opts.ProgressEvery,
		sleep:         sleepContext,
	}
}

// Broadcast delivers req.Source to every recipient in order, one at a time.
// Individual delivery failures are counted, never returned. The returned
// error is either context cancellation (with the partial report) or a failure
// to record the run in the usage log.
func (d *Dispatcher) Broadcast(ctx context.Context, req Request) (Report, error) {
	run := Report{RunID: uuid.New(), Total: req.Recipients.Len()}
	log := slog.With("run_id", run.RunID, "admin_id", req.AdminID)
	log.Info("Starting broadcast", "total", run.Total,
		"users", len(req.Recipients.Users), "groups", len(req.Recipients.Groups))

	start := time.Now()
	for i, r := range req.Recipients.All() {
		if err := ctx.Err(); err != nil {
			log.Warn("Broadcast interrupted", "processed", i, "total", run.Total)
			return run, err
		}

		if d.deliver(ctx, log, req.Source, r) {
			run.Succeeded++
		} else {
			run.Failed++
		}

		processed := i + 1
		if processed%d.progressEvery == 0 && req.Sink != nil {
			snap := Snapshot{Processed: processed, Total: run.Total, Succeeded: run.Succeeded, Failed: run.Failed}
			if err := req.Sink.Progress(ctx, snap); err != nil {
				log.Debug("Failed to report broadcast progress", "error", err)
			}
		}
	}

	if req.Sink != nil {
		if err := req.Sink.Complete(ctx, run); err != nil {
			log.Warn("Failed to report broadcast result", "error", err)
		}
	}

	metrics.BroadcastRuns.Inc()
	log.Info("Broadcast complete",
		"total", run.Total,
		"succeeded", run.Succeeded,
		"failed", run.Failed,
		"duration", time.Since(start))

	err := d.usage.LogUsage(ctx, storage.UsageLog{UserID: req.AdminID, Command: "/broadcast"})
	if err != nil {
		return run, fmt.Errorf("failed to log broadcast: %w", err)
	}
	return run, nil
}

// deliver makes at most two attempts: the send and, after a rate-limit
// signal, one retry after the requested wait.
func (d *Dispatcher) deliver(ctx context.Context, log *slog.Logger, src Source, r Recipient) bool {
	if r.ID == 0 {
		metrics.BroadcastDeliveries.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Warn("Skipping malformed broadcast recipient", "kind", r.Kind)
		return false
	}

	err := d.sender.CopyMessage(ctx, r.ID, src.ChatID, src.MessageID)
	if err == nil {
		return d.succeeded(ctx)
	}

	kind, wait := messaging.Classify(err)
	switch kind {
	case messaging.KindRateLimited:
		metrics.BroadcastDeliveries.WithLabelValues(metrics.OutcomeRateLimited).Inc()
		log.Info("Broadcast rate limited, waiting", "recipient", r.ID, "wait", wait)
		if err := d.sleep(ctx, wait); err != nil {
			metrics.BroadcastDeliveries.WithLabelValues(metrics.OutcomeFailed).Inc()
			return false
		}
		if err := d.sender.CopyMessage(ctx, r.ID, src.ChatID, src.MessageID); err != nil {
			metrics.BroadcastDeliveries.WithLabelValues(metrics.OutcomeFailed).Inc()
			log.Warn("Broadcast retry failed", "recipient", r.ID, "kind", r.Kind, "error", err)
			return false
		}
		return d.succeeded(ctx)

	case messaging.KindPeerUnreachable:
		metrics.BroadcastDeliveries.WithLabelValues(metrics.OutcomeUnreachable).Inc()
		log.Debug("Broadcast recipient unreachable", "recipient", r.ID, "kind", r.Kind, "error", err)
		return false

	default: // messaging.KindOther
		metrics.BroadcastDeliveries.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Error("Broadcast delivery failed", "recipient", r.ID, "kind", r.Kind, "error", err)
		return false
	}
}

func (d *Dispatcher) succeeded(ctx context.Context) bool {
	metrics.BroadcastDeliveries.WithLabelValues(metrics.OutcomeSucceeded).Inc()
	// A cancelled pause still counts the delivery; the loop stops next turn.
	_ = d.sleep(ctx, d.sendDelay)
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
