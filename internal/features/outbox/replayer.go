package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"giveaway-miniapp/internal/common/logger"
	"giveaway-miniapp/internal/features/ledger/repository"
)

// Replayer periodically re-applies pending writes. Ledger writes are
// idempotent per (user, giveaway), so a replay never double-counts.
type Replayer struct {
	store       *Store
	ledger      repository.Ledger
	interval    time.Duration
	maxAttempts int
	timeout     time.Duration
	logger      zerolog.Logger
}

func NewReplayer(store *Store, ledger repository.Ledger, interval time.Duration, maxAttempts int, timeout time.Duration) *Replayer {
	return &Replayer{
		store:       store,
		ledger:      ledger,
		interval:    interval,
		maxAttempts: maxAttempts,
		timeout:     timeout,
		logger:      logger.With("outbox"),
	}
}

func (r *Replayer) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("Starting outbox replayer")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Stopping outbox replayer")
			return
		case <-ticker.C:
			r.ReplayOnce(ctx)
		}
	}
}

// ReplayStats is the outcome of one replay pass.
type ReplayStats struct {
	Replayed   int
	Failed     int
	DeadLetter int
}

func (r *Replayer) ReplayOnce(ctx context.Context) ReplayStats {
	var stats ReplayStats

	writes, err := r.store.List(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list pending writes")
		return stats
	}

	for _, w := range writes {
		if ctx.Err() != nil {
			return stats
		}
		if w.Attempts >= r.maxAttempts {
			stats.DeadLetter++
			continue
		}

		if err := r.apply(ctx, w); err != nil {
			stats.Failed++
			w.Attempts++
			w.LastError = err.Error()
			if uerr := r.store.Update(ctx, w); uerr != nil {
				r.logger.Error().Err(uerr).Str("id", w.ID).Msg("Failed to update pending write")
			}
			ev := r.logger.Warn()
			if w.Attempts >= r.maxAttempts {
				ev = r.logger.Error()
			}
			ev.Err(err).
				Str("id", w.ID).
				Str("kind", string(w.Kind)).
				Str("user_id", w.UserID).
				Str("giveaway_id", w.GiveawayID).
				Int("attempts", w.Attempts).
				Msg("Replay failed")
			continue
		}

		if err := r.store.Delete(ctx, w.ID); err != nil {
			r.logger.Error().Err(err).Str("id", w.ID).Msg("Failed to delete replayed write")
			continue
		}
		stats.Replayed++
	}

	if stats.Replayed+stats.Failed > 0 {
		r.logger.Info().
			Int("replayed", stats.Replayed).
			Int("failed", stats.Failed).
			Int("dead_letter", stats.DeadLetter).
			Msg("Outbox pass finished")
	}
	return stats
}

func (r *Replayer) apply(ctx context.Context, w *PendingWrite) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	switch w.Kind {
	case WriteTickets:
		return r.ledger.IncrementTickets(ctx, w.UserID, w.Delta, w.GiveawayID)
	case WriteEntry:
		if w.Entry == nil {
			return fmt.Errorf("entry write %s has no record", w.ID)
		}
		return r.ledger.PutEntryRecord(ctx, w.Entry)
	default:
		return fmt.Errorf("unknown write kind %q", w.Kind)
	}
}
