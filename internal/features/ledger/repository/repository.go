package repository

import (
	"context"
	"errors"

	"giveaway-miniapp/internal/features/ledger/models"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
)

// Ledger is the remote document store holding user profiles and entry records.
// Every method may fail with a transport/remote error; callers decide how fatal it is.
type Ledger interface {
	// GetProfile returns (nil, nil) when the user has no profile yet.
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	// CreateProfile stores initial only if no profile exists; created reports whether it did.
	CreateProfile(ctx context.Context, initial *models.UserProfile) (created bool, err error)
	// IncrementTickets adds delta to the ticket count and appends giveawayID to the joined
	// set as one unit. It is a no-op when giveawayID is already in the set, so retries
	// never double-count.
	IncrementTickets(ctx context.Context, userID string, delta int64, giveawayID string) error
	// PutEntryRecord creates the record keyed by (giveaway, user) if absent.
	PutEntryRecord(ctx context.Context, record *models.EntryRecord) error
	// ListEntries returns entry records of a giveaway ordered by join time.
	ListEntries(ctx context.Context, giveawayID string) ([]*models.EntryRecord, error)
}
