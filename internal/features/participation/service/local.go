package service

import (
	"sync"

	"giveaway-miniapp/internal/features/ledger/models"
)

// LocalProfile holds the optimistic in-memory copy of a user's profile.
// It may run ahead of the ledger while writes wait in the outbox.
type LocalProfile interface {
	Profile() *models.UserProfile
	// ApplyJoin adds one ticket and the giveaway unless it is already joined.
	ApplyJoin(giveawayID string) *models.UserProfile
}

// Local is the in-process LocalProfile.
type Local struct {
	mu      sync.Mutex
	profile *models.UserProfile
}

func NewLocalProfile(p *models.UserProfile) *Local {
	return &Local{profile: p.Clone()}
}

func (l *Local) Profile() *models.UserProfile {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.profile.Clone()
}

func (l *Local) ApplyJoin(giveawayID string) *models.UserProfile {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.profile.HasJoined(giveawayID) {
		l.profile.Tickets++
		l.profile.JoinedGiveaways = append(l.profile.JoinedGiveaways, giveawayID)
	}
	return l.profile.Clone()
}

// Reconcile adopts a profile read from the ledger and keeps joins the ledger
// has not seen yet. Each such join still owes the ledger one ticket through the
// outbox, so it is counted on top of the remote balance.
func (l *Local) Reconcile(remote *models.UserProfile) *models.UserProfile {
	l.mu.Lock()
	defer l.mu.Unlock()
	merged := remote.Clone()
	for _, g := range l.profile.JoinedGiveaways {
		if !merged.HasJoined(g) {
			merged.JoinedGiveaways = append(merged.JoinedGiveaways, g)
			merged.Tickets++
		}
	}
	l.profile = merged
	return merged.Clone()
}
