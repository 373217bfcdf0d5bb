package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giveaway-miniapp/internal/features/ledger/models"
)

func TestLedger_CreateProfileIfAbsent(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()

	p, err := l.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, p)

	created, err := l.CreateProfile(ctx, models.NewProfile("u1", "Alice", ""))
	require.NoError(t, err)
	assert.True(t, created)

	again := models.NewProfile("u1", "Mallory", "")
	again.Tickets = 100
	created, err = l.CreateProfile(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)

	p, err = l.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Alice", p.Name)
	assert.Zero(t, p.Tickets)
}

func TestLedger_CreateProfileFillsProfileLeftByIncrement(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	require.NoError(t, l.IncrementTickets(ctx, "u1", 1, "g1"))

	created, err := l.CreateProfile(ctx, models.NewProfile("u1", "Alice", "https://a/p.png"))
	require.NoError(t, err)
	assert.False(t, created)

	p, err := l.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, "https://a/p.png", p.AvatarRef)
	assert.Equal(t, int64(1), p.Tickets)
	assert.Equal(t, []string{"g1"}, p.JoinedGiveaways)

	_, err = l.CreateProfile(ctx, models.NewProfile("u1", "Mallory", ""))
	require.NoError(t, err)
	p, err = l.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
}

func TestLedger_IncrementTicketsIsIdempotentPerGiveaway(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	_, err := l.CreateProfile(ctx, models.NewProfile("u1", "Alice", ""))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.IncrementTickets(ctx, "u1", 1, "g1"))
		}()
	}
	wg.Wait()
	require.NoError(t, l.IncrementTickets(ctx, "u1", 1, "g2"))

	p, err := l.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Tickets)
	assert.Equal(t, []string{"g1", "g2"}, p.JoinedGiveaways)
}

func TestLedger_GetProfileReturnsCopy(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	_, err := l.CreateProfile(ctx, models.NewProfile("u1", "Alice", ""))
	require.NoError(t, err)

	p, err := l.GetProfile(ctx, "u1")
	require.NoError(t, err)
	p.Tickets = 42
	p.JoinedGiveaways = append(p.JoinedGiveaways, "x")

	fresh, err := l.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, fresh.Tickets)
	assert.Empty(t, fresh.JoinedGiveaways)
}

func TestLedger_EntryRecords(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.PutEntryRecord(ctx, &models.EntryRecord{GiveawayID: "g1", UserID: "b", UserName: "Bob", JoinedAt: base.Add(time.Minute)}))
	require.NoError(t, l.PutEntryRecord(ctx, &models.EntryRecord{GiveawayID: "g1", UserID: "a", UserName: "Alice", JoinedAt: base}))
	// повторная запись не перезаписывает первую
	require.NoError(t, l.PutEntryRecord(ctx, &models.EntryRecord{GiveawayID: "g1", UserID: "a", UserName: "Changed", JoinedAt: base.Add(time.Hour)}))
	require.NoError(t, l.PutEntryRecord(ctx, &models.EntryRecord{GiveawayID: "g2", UserID: "a", JoinedAt: base}))

	entries, err := l.ListEntries(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].UserID)
	assert.Equal(t, "Alice", entries[0].UserName)
	assert.Equal(t, "b", entries[1].UserID)
	assert.Equal(t, "g1_a", entries[0].Key())
}

func TestLedger_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := NewLedger()

	_, err := l.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, l.IncrementTickets(ctx, "u1", 1, "g1"), context.Canceled)
}
