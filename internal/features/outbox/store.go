// Package outbox keeps ledger writes that failed after retries on local disk
// and replays them until the ledger accepts them.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	"giveaway-miniapp/internal/features/ledger/models"
)

var (
	ErrClosed   = errors.New("outbox: store is closed")
	ErrNotFound = errors.New("outbox: write not found")
)

type WriteKind string

const (
	WriteTickets WriteKind = "tickets"
	WriteEntry   WriteKind = "entry"
)

// PendingWrite is one ledger write waiting for replay.
type PendingWrite struct {
	ID         string              `json:"id"`
	Kind       WriteKind           `json:"kind"`
	UserID     string              `json:"user_id"`
	GiveawayID string              `json:"giveaway_id"`
	Delta      int64               `json:"delta,omitempty"`
	Entry      *models.EntryRecord `json:"entry,omitempty"`
	Attempts   int                 `json:"attempts"`
	LastError  string              `json:"last_error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

const keyPrefix = "outbox/"

// '/'+1, верхняя граница префикса
var keyUpperBound = []byte("outbox0")

func makeKey(id string) []byte {
	return []byte(keyPrefix + id)
}

type Store struct {
	db     *pebble.DB
	closed bool
	mu     sync.RWMutex
}

func Open(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(8 << 20),
		MemTableSize: 4 << 20,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open outbox at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Enqueue assigns an id (ordered by enqueue time) and persists w.
func (s *Store) Enqueue(_ context.Context, w *PendingWrite) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	if w.ID == "" {
		w.ID = fmt.Sprintf("%020d-%s", w.CreatedAt.UnixNano(), uuid.NewString())
	}
	return s.put(w)
}

// Update rewrites an existing write (attempt counter, last error).
func (s *Store) Update(_ context.Context, w *PendingWrite) error {
	return s.put(w)
}

func (s *Store) put(w *PendingWrite) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal pending write: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Set(makeKey(w.ID), data, pebble.Sync)
}

func (s *Store) Get(_ context.Context, id string) (*PendingWrite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	value, closer, err := s.db.Get(makeKey(id))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var w PendingWrite
	if err := json.Unmarshal(value, &w); err != nil {
		return nil, fmt.Errorf("decode pending write %s: %w", id, err)
	}
	return &w, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Delete(makeKey(id), pebble.Sync)
}

// List returns pending writes oldest first.
func (s *Store) List(_ context.Context) ([]*PendingWrite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: keyUpperBound,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox iterator: %w", err)
	}
	defer iter.Close()

	var out []*PendingWrite
	for valid := iter.First(); valid; valid = iter.Next() {
		val, err := iter.ValueAndErr()
		if err != nil {
			return nil, fmt.Errorf("outbox value: %w", err)
		}
		var w PendingWrite
		if err := json.Unmarshal(val, &w); err != nil {
			return nil, fmt.Errorf("decode pending write %s: %w", iter.Key(), err)
		}
		out = append(out, &w)
	}
	return out, iter.Error()
}

// Pending reports how many writes are still waiting.
func (s *Store) Pending(ctx context.Context) (int, error) {
	writes, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(writes), nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
