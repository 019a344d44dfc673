package repository

import (
	"reflect"
	"testing"
	"time"

	"raffler/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticRow hands fixed column values to Scan in order
type staticRow struct {
	values []any
}

func (r staticRow) Scan(dest ...any) error {
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

func raffleRow(state string, requestID *int64, winner *string) staticRow {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	round := int64(3)
	return staticRow{values: []any{
		int64(1),      // id
		int64(100),    // entrance_fee
		int64(30_000), // interval_ms
		state,
		int64(3),   // round_number
		int64(200), // pooled_value
		at,         // last_reset_at
		requestID,
		&round,
		&at,
		winner,
		at,
		at,
	}}
}

func TestScanRaffle(t *testing.T) {
	t.Parallel()

	requestID := int64(7)
	winner := "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

	t.Run("calculating with request", func(t *testing.T) {
		t.Parallel()

		raffle, err := scanRaffle(raffleRow("calculating", &requestID, &winner))
		require.NoError(t, err)
		assert.Equal(t, entities.RaffleStateCalculating, raffle.State)
		assert.Equal(t, 30*time.Second, raffle.Interval)
		require.NotNil(t, raffle.Outstanding)
		assert.Equal(t, uint64(7), raffle.Outstanding.RequestID)
		assert.Equal(t, int64(3), raffle.Outstanding.RoundEpoch)
		require.NotNil(t, raffle.RecentWinner)
		assert.Equal(t, common.HexToAddress(winner), *raffle.RecentWinner)
	})

	t.Run("open without request", func(t *testing.T) {
		t.Parallel()

		raffle, err := scanRaffle(raffleRow("open", nil, nil))
		require.NoError(t, err)
		assert.True(t, raffle.IsOpen())
		assert.Nil(t, raffle.Outstanding)
		assert.Nil(t, raffle.RecentWinner)
	})

	t.Run("unknown state is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := scanRaffle(raffleRow("paused", nil, nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown state "paused"`)
	})
}
