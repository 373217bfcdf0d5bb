package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"giveaway-miniapp/internal/common/logger"
	"giveaway-miniapp/internal/features/events"
	"giveaway-miniapp/internal/features/ledger/models"
	"giveaway-miniapp/internal/features/ledger/repository"
	"giveaway-miniapp/internal/features/outbox"
)

var (
	// ErrDoubleJoinAttempted: join called while not ReadyToJoin, or while
	// another join for the same pair is still running.
	ErrDoubleJoinAttempted = errors.New("double join attempted")
	ErrInvalidGiveawayID   = errors.New("invalid giveaway id")

	// Non-fatal, reported in JoinResult.Warnings.
	ErrLedgerUnreachable      = errors.New("ledger unreachable")
	ErrEntryRecordWriteFailed = errors.New("entry record write failed")
)

// GiveawayChecker is the catalog lookup used to reject unknown giveaways.
type GiveawayChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Enqueuer stores writes for later replay.
type Enqueuer interface {
	Enqueue(ctx context.Context, w *outbox.PendingWrite) error
}

type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	// Timeout bounds each attempt
	Timeout time.Duration
}

var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: 300 * time.Millisecond, Timeout: 5 * time.Second}

type JoinResult struct {
	Profile       *models.UserProfile
	AlreadyJoined bool
	// Warnings wrap ErrLedgerUnreachable or ErrEntryRecordWriteFailed.
	Warnings []error
	// Queued counts writes handed to the outbox.
	Queued int
}

type Coordinator struct {
	ledger    repository.Ledger
	catalog   GiveawayChecker
	publisher events.Publisher
	outbox    Enqueuer
	retry     RetryPolicy
	now       func() time.Time
	logger    zerolog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

type Option func(*Coordinator)

func WithOutbox(o Enqueuer) Option { return func(c *Coordinator) { c.outbox = o } }

func WithRetryPolicy(p RetryPolicy) Option { return func(c *Coordinator) { c.retry = p } }

func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

func NewCoordinator(ledger repository.Ledger, catalog GiveawayChecker, publisher events.Publisher, opts ...Option) *Coordinator {
	c := &Coordinator{
		ledger:    ledger,
		catalog:   catalog,
		publisher: publisher,
		retry:     DefaultRetryPolicy,
		now:       time.Now,
		logger:    logger.With("participation"),
		inflight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.Attempts < 1 {
		c.retry.Attempts = 1
	}
	return c
}

// Join commits a join of local's user to giveawayID.
//
// The ticket increment is written first, then the entry record. Ledger
// failures do not fail the call: the local profile is updated anyway and the
// failed writes go to the outbox. Only logic errors (not eligible, unknown
// giveaway, concurrent duplicate) are returned as errors, and in that case
// nothing is written.
func (c *Coordinator) Join(ctx context.Context, local LocalProfile, giveawayID string, gate TaskGate) (*JoinResult, error) {
	profile := local.Profile()
	userID := profile.ID

	switch EvaluateJoinEligibility(profile, giveawayID, gate) {
	case AlreadyJoined:
		return &JoinResult{Profile: profile, AlreadyJoined: true}, nil
	case PendingTasks:
		err := fmt.Errorf("%w: tasks for %s are not complete", ErrDoubleJoinAttempted, giveawayID)
		c.publish(events.JoinFailed(userID, giveawayID, err))
		return nil, err
	}

	if err := c.checkGiveaway(ctx, giveawayID); err != nil {
		c.publish(events.JoinFailed(userID, giveawayID, err))
		return nil, err
	}

	release, ok := c.acquire(userID, giveawayID)
	if !ok {
		err := fmt.Errorf("%w: join for %s is already in progress", ErrDoubleJoinAttempted, giveawayID)
		c.publish(events.JoinFailed(userID, giveawayID, err))
		return nil, err
	}
	defer release()

	// предыдущий join мог завершиться, пока мы проверяли каталог
	if current := local.Profile(); current.HasJoined(giveawayID) {
		return &JoinResult{Profile: current, AlreadyJoined: true}, nil
	}

	result := &JoinResult{}

	// 1. билеты + joined set, одной операцией
	if err := c.withRetry(ctx, func(ctx context.Context) error {
		return c.ledger.IncrementTickets(ctx, userID, 1, giveawayID)
	}); err != nil {
		warn := fmt.Errorf("%w: %v", ErrLedgerUnreachable, err)
		result.Warnings = append(result.Warnings, warn)
		c.logger.Warn().Err(err).Str("user_id", userID).Str("giveaway_id", giveawayID).Msg("Ticket increment failed, applying locally")
		c.publish(events.LedgerUnreachable(userID, giveawayID, err))
		result.Queued += c.enqueue(ctx, &outbox.PendingWrite{
			Kind:       outbox.WriteTickets,
			UserID:     userID,
			GiveawayID: giveawayID,
			Delta:      1,
		})
	}

	// 2. запись участия, best-effort
	record := &models.EntryRecord{
		GiveawayID: giveawayID,
		UserID:     userID,
		UserName:   profile.Name,
		UserAvatar: profile.AvatarRef,
		JoinedAt:   c.now().UTC(),
	}
	if err := c.withRetry(ctx, func(ctx context.Context) error {
		return c.ledger.PutEntryRecord(ctx, record)
	}); err != nil {
		warn := fmt.Errorf("%w: %v", ErrEntryRecordWriteFailed, err)
		result.Warnings = append(result.Warnings, warn)
		c.logger.Warn().Err(err).Str("user_id", userID).Str("giveaway_id", giveawayID).Msg("Entry record write failed")
		c.publish(events.EntryRecordWriteFailed(userID, giveawayID, err))
		result.Queued += c.enqueue(ctx, &outbox.PendingWrite{
			Kind:       outbox.WriteEntry,
			UserID:     userID,
			GiveawayID: giveawayID,
			Entry:      record,
		})
	}

	// 3. локально применяем всегда
	result.Profile = local.ApplyJoin(giveawayID)

	c.publish(events.ProfileUpdated(result.Profile))
	c.publish(events.JoinStateChanged(userID, giveawayID, string(AlreadyJoined)))
	c.publish(events.JoinSucceeded(userID, giveawayID))

	c.logger.Info().
		Str("user_id", userID).
		Str("giveaway_id", giveawayID).
		Int64("tickets", result.Profile.Tickets).
		Int("warnings", len(result.Warnings)).
		Msg("User joined giveaway")
	return result, nil
}

func (c *Coordinator) checkGiveaway(ctx context.Context, giveawayID string) error {
	if c.catalog == nil {
		return nil
	}
	ok, err := c.catalog.Exists(ctx, giveawayID)
	if err != nil {
		return fmt.Errorf("check giveaway %s: %w", giveawayID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidGiveawayID, giveawayID)
	}
	return nil
}

func (c *Coordinator) acquire(userID, giveawayID string) (release func(), ok bool) {
	key := models.EntryKey(giveawayID, userID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[key]; busy {
		return nil, false
	}
	c.inflight[key] = struct{}{}
	return func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}, true
}

func (c *Coordinator) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.retry.Attempts; attempt++ {
		err := c.attempt(ctx, op)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == c.retry.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(c.retry.Delay * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", c.retry.Attempts, lastErr)
}

func (c *Coordinator) attempt(ctx context.Context, op func(ctx context.Context) error) error {
	if c.retry.Timeout <= 0 {
		return op(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, c.retry.Timeout)
	defer cancel()
	return op(ctx)
}

// enqueue returns 1 if the write was queued.
func (c *Coordinator) enqueue(ctx context.Context, w *outbox.PendingWrite) int {
	if c.outbox == nil {
		return 0
	}
	// запрос мог быть отменён, а запись всё равно нужно сохранить
	if err := c.outbox.Enqueue(context.WithoutCancel(ctx), w); err != nil {
		c.logger.Error().Err(err).Str("kind", string(w.Kind)).Str("user_id", w.UserID).Str("giveaway_id", w.GiveawayID).Msg("Failed to queue write for replay")
		return 0
	}
	return 1
}

func (c *Coordinator) publish(e events.Event) {
	if c.publisher != nil {
		c.publisher.Publish(e)
	}
}
