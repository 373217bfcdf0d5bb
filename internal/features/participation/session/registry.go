// Package session keeps the per-user state the mini-app shell works against:
// identity, optimistic profile and the task tracker of the open giveaway.
// Nothing here is persisted; a restart or eviction drops verification progress.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"giveaway-miniapp/internal/common/logger"
	"giveaway-miniapp/internal/features/events"
	"giveaway-miniapp/internal/features/identity"
	"giveaway-miniapp/internal/features/ledger/models"
	participation "giveaway-miniapp/internal/features/participation/service"
	"giveaway-miniapp/internal/features/tasks"
	userService "giveaway-miniapp/internal/features/user/service"
)

type UserSession struct {
	Identity identity.Identity
	Tracker  *tasks.Tracker

	local *participation.Local

	mu        sync.Mutex
	persisted bool
	lastSeen  time.Time
}

func (s *UserSession) Local() *participation.Local { return s.local }

func (s *UserSession) Profile() *models.UserProfile { return s.local.Profile() }

// Persisted reports whether the profile was loaded from (or created in) the ledger.
func (s *UserSession) Persisted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persisted
}

func (s *UserSession) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *UserSession) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type Config struct {
	TaskKinds         []string
	VerificationDelay time.Duration
	IdleTTL           time.Duration
	Scheduler         tasks.Scheduler
}

type Registry struct {
	profiles  userService.ProfileService
	publisher events.Publisher
	cfg       Config
	now       func() time.Time
	logger    zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*UserSession
}

func NewRegistry(profiles userService.ProfileService, publisher events.Publisher, cfg Config) *Registry {
	if cfg.Scheduler == nil {
		cfg.Scheduler = tasks.RealScheduler
	}
	return &Registry{
		profiles:  profiles,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With("sessions"),
		sessions:  make(map[string]*UserSession),
	}
}

// Acquire returns the session of id, creating it (and the ledger profile) on first use.
// A ledger failure is not an error: the session starts with a default, unpersisted profile.
func (r *Registry) Acquire(ctx context.Context, id identity.Identity) *UserSession {
	r.mu.Lock()
	sess, ok := r.sessions[id.ID]
	r.mu.Unlock()

	if ok {
		sess.touch(r.now())
		r.refreshUnpersisted(ctx, sess)
		return sess
	}

	profile, persisted, err := r.profiles.LoadOrCreate(ctx, id)
	if err != nil {
		r.logger.Warn().Err(err).Str("user_id", id.ID).Msg("Session started with unpersisted profile")
	}

	created := r.newSession(id, profile, persisted)

	r.mu.Lock()
	if existing, ok := r.sessions[id.ID]; ok {
		// параллельный запрос успел раньше
		r.mu.Unlock()
		created.Tracker.Close()
		existing.touch(r.now())
		return existing
	}
	r.sessions[id.ID] = created
	r.mu.Unlock()

	r.publish(events.ProfileUpdated(profile))
	return created
}

func (r *Registry) newSession(id identity.Identity, profile *models.UserProfile, persisted bool) *UserSession {
	userID := id.ID
	tracker := tasks.NewTracker(r.cfg.TaskKinds, r.cfg.VerificationDelay,
		tasks.WithScheduler(r.cfg.Scheduler),
		tasks.WithListener(func(giveawayID, kind string, complete bool) {
			r.publish(events.TaskStateChanged(userID, giveawayID, kind, complete))
		}),
	)
	return &UserSession{
		Identity:  id,
		Tracker:   tracker,
		local:     participation.NewLocalProfile(profile),
		persisted: persisted,
		lastSeen:  r.now(),
	}
}

// refreshUnpersisted retries the ledger for sessions that started while it was down.
// Joins applied locally in the meantime are merged into the ledger profile.
func (r *Registry) refreshUnpersisted(ctx context.Context, sess *UserSession) {
	if sess.Persisted() {
		return
	}
	remote, persisted, err := r.profiles.LoadOrCreate(ctx, sess.Identity)
	if err != nil || !persisted {
		return
	}
	profile := sess.local.Reconcile(remote)
	sess.mu.Lock()
	sess.persisted = true
	sess.mu.Unlock()
	r.publish(events.ProfileUpdated(profile))
}

func (r *Registry) Get(userID string) (*UserSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[userID]
	return sess, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than IdleTTL and stops their timers.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	var evicted []*UserSession
	for id, sess := range r.sessions {
		if sess.idleSince().Before(cutoff) {
			evicted = append(evicted, sess)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, sess := range evicted {
		sess.Tracker.Close()
	}
	if len(evicted) > 0 {
		r.logger.Debug().Int("evicted", len(evicted)).Msg("Idle sessions evicted")
	}
	return len(evicted)
}

func (r *Registry) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", interval).Dur("idle_ttl", r.cfg.IdleTTL).Msg("Starting session sweeper")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Stopping session sweeper")
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close drops every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*UserSession)
	r.mu.Unlock()
	for _, sess := range sessions {
		sess.Tracker.Close()
	}
}

func (r *Registry) publish(e events.Event) {
	if r.publisher != nil {
		r.publisher.Publish(e)
	}
}
