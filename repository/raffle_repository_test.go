package repository

import (
	"context"
	"testing"
	"time"

	"raffler/domain/entities"
	"raffler/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaffleRepository_GetOrCreate(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRaffleRepositoryScoped(testDB.DB.Pool, 1)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("missing raffle", func(t *testing.T) {
		raffle, err := NewRaffleRepositoryScoped(testDB.DB.Pool, 42).Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, raffle)
	})

	t.Run("creates open raffle", func(t *testing.T) {
		raffle, err := repo.GetOrCreate(ctx, testutil.CreateTestRaffleConfig(), now)
		require.NoError(t, err)
		require.NotNil(t, raffle)

		assert.Equal(t, int64(1), raffle.ID)
		assert.Equal(t, testutil.TestEntranceFee, raffle.EntranceFee)
		assert.Equal(t, 30*time.Second, raffle.Interval)
		assert.Equal(t, entities.RaffleStateOpen, raffle.State)
		assert.Equal(t, int64(1), raffle.Round.Number)
		assert.Empty(t, raffle.Round.Participants)
		assert.Zero(t, raffle.Round.PooledValue)
		assert.True(t, now.Equal(raffle.Round.LastResetAt))
		assert.Nil(t, raffle.Outstanding)
		assert.Nil(t, raffle.RecentWinner)
	})

	t.Run("keeps stored configuration", func(t *testing.T) {
		cfg := testutil.CreateTestRaffleConfig()
		cfg.EntranceFee *= 2
		cfg.Interval = time.Minute

		raffle, err := repo.GetOrCreate(ctx, cfg, now.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, testutil.TestEntranceFee, raffle.EntranceFee)
		assert.Equal(t, 30*time.Second, raffle.Interval)
		assert.True(t, now.Equal(raffle.Round.LastResetAt))
	})
}

func TestRaffleRepository_EntriesAndUpdate(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRaffleRepositoryScoped(testDB.DB.Pool, 1)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	_, err := repo.GetOrCreate(ctx, testutil.CreateTestRaffleConfig(), now)
	require.NoError(t, err)

	players := []entities.Entry{
		*testutil.CreateTestEntry(1, 0, testutil.TestAddress(1), now),
		*testutil.CreateTestEntry(1, 1, testutil.TestAddress(2), now),
		*testutil.CreateTestEntry(1, 2, testutil.TestAddress(1), now),
	}
	for i := range players {
		require.NoError(t, repo.AppendEntry(ctx, &players[i]))
		assert.NotZero(t, players[i].ID)
	}

	t.Run("duplicate position is rejected", func(t *testing.T) {
		err := repo.AppendEntry(ctx, testutil.CreateTestEntry(1, 1, testutil.TestAddress(3), now))
		assert.Error(t, err)
	})

	t.Run("participants follow entry order", func(t *testing.T) {
		raffle, err := repo.Get(ctx)
		require.NoError(t, err)
		require.Len(t, raffle.Round.Participants, 3)
		assert.Equal(t, testutil.TestAddress(1), raffle.Round.Participants[0])
		assert.Equal(t, testutil.TestAddress(2), raffle.Round.Participants[1])
		assert.Equal(t, testutil.TestAddress(1), raffle.Round.Participants[2])

		entries, err := repo.ListEntries(ctx, 1)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, testutil.TestEntranceFee, entries[2].PaidValue)
	})

	t.Run("outstanding request round trip", func(t *testing.T) {
		raffle, err := repo.Get(ctx)
		require.NoError(t, err)

		raffle.Round.PooledValue = 3 * testutil.TestEntranceFee
		raffle.BeginCalculating(&entities.OutstandingRequest{
			RequestID:   77,
			RoundEpoch:  1,
			RequestedAt: now.Add(time.Minute),
		})
		require.NoError(t, repo.Update(ctx, raffle))

		stored, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, entities.RaffleStateCalculating, stored.State)
		assert.Equal(t, 3*testutil.TestEntranceFee, stored.Round.PooledValue)
		require.NotNil(t, stored.Outstanding)
		assert.Equal(t, uint64(77), stored.Outstanding.RequestID)
		assert.Equal(t, int64(1), stored.Outstanding.RoundEpoch)
		assert.True(t, now.Add(time.Minute).Equal(stored.Outstanding.RequestedAt))
	})

	t.Run("payout resets to an empty round", func(t *testing.T) {
		raffle, err := repo.Get(ctx)
		require.NoError(t, err)

		winner := testutil.TestAddress(2)
		raffle.CompletePayout(winner, now.Add(2*time.Minute))
		require.NoError(t, repo.Update(ctx, raffle))

		stored, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, entities.RaffleStateOpen, stored.State)
		assert.Equal(t, int64(2), stored.Round.Number)
		assert.Empty(t, stored.Round.Participants)
		assert.Zero(t, stored.Round.PooledValue)
		assert.Nil(t, stored.Outstanding)
		require.NotNil(t, stored.RecentWinner)
		assert.Equal(t, winner, *stored.RecentWinner)

		// Entries of the finished round are kept
		entries, err := repo.ListEntries(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})

	t.Run("calculating without a request violates the schema", func(t *testing.T) {
		raffle, err := repo.Get(ctx)
		require.NoError(t, err)

		raffle.State = entities.RaffleStateCalculating
		raffle.Outstanding = nil
		assert.Error(t, repo.Update(ctx, raffle))
	})
}

func TestRaffleRepository_GetForUpdateSerializes(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	_, err := NewRaffleRepositoryScoped(testDB.DB.Pool, 1).GetOrCreate(ctx, testutil.CreateTestRaffleConfig(), time.Now())
	require.NoError(t, err)

	tx1, err := testDB.DB.Begin(ctx)
	require.NoError(t, err)
	defer tx1.Rollback(ctx)

	_, err = NewRaffleRepositoryScoped(tx1, 1).GetForUpdate(ctx)
	require.NoError(t, err)

	tx2, err := testDB.DB.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx)

	// The second locker blocks until the first transaction ends
	lockCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = NewRaffleRepositoryScoped(tx2, 1).GetForUpdate(lockCtx)
	assert.Error(t, err)
}
