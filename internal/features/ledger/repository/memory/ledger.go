// Package memory is a process-local Ledger used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"giveaway-miniapp/internal/features/ledger/models"
	"giveaway-miniapp/internal/features/ledger/repository"
)

type Ledger struct {
	mu       sync.Mutex
	profiles map[string]*models.UserProfile
	entries  map[string]*models.EntryRecord
	// профили, созданные IncrementTickets до CreateProfile
	partial map[string]bool
}

var _ repository.Ledger = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{
		profiles: make(map[string]*models.UserProfile),
		entries:  make(map[string]*models.EntryRecord),
		partial:  make(map[string]bool),
	}
}

func (l *Ledger) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.profiles[userID]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (l *Ledger) CreateProfile(ctx context.Context, initial *models.UserProfile) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.profiles[initial.ID]; ok {
		if l.partial[initial.ID] {
			p.Name = initial.Name
			p.AvatarRef = initial.AvatarRef
			p.Invites = initial.Invites
			delete(l.partial, initial.ID)
		}
		return false, nil
	}
	l.profiles[initial.ID] = initial.Clone()
	return true, nil
}

func (l *Ledger) IncrementTickets(ctx context.Context, userID string, delta int64, giveawayID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.profiles[userID]
	if !ok {
		p = models.NewProfile(userID, "", "")
		l.profiles[userID] = p
		l.partial[userID] = true
	}
	if p.HasJoined(giveawayID) {
		return nil
	}
	p.Tickets += delta
	p.JoinedGiveaways = append(p.JoinedGiveaways, giveawayID)
	return nil
}

func (l *Ledger) PutEntryRecord(ctx context.Context, record *models.EntryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[record.Key()]; ok {
		return nil
	}
	cp := *record
	l.entries[record.Key()] = &cp
	return nil
}

func (l *Ledger) ListEntries(ctx context.Context, giveawayID string) ([]*models.EntryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*models.EntryRecord
	for _, rec := range l.entries {
		if rec.GiveawayID == giveawayID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}
