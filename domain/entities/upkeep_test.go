package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpkeepDiagnostic_Reason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		diagnostic UpkeepDiagnostic
		satisfied  bool
		want       string
	}{
		{
			name:       "all satisfied",
			diagnostic: UpkeepDiagnostic{IsOpen: true, TimePassed: true, HasPlayers: true, HasBalance: true},
			satisfied:  true,
			want:       "all conditions satisfied",
		},
		{
			name:       "calculating",
			diagnostic: UpkeepDiagnostic{IsOpen: false, TimePassed: true, HasPlayers: true, HasBalance: true},
			want:       "raffle not open",
		},
		{
			name:       "empty round",
			diagnostic: UpkeepDiagnostic{IsOpen: true, TimePassed: true},
			want:       "no participants, no pooled value",
		},
		{
			name:       "nothing holds",
			diagnostic: UpkeepDiagnostic{},
			want:       "raffle not open, interval not elapsed, no participants, no pooled value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.satisfied, tt.diagnostic.AllSatisfied())
			assert.Equal(t, tt.want, tt.diagnostic.Reason())
		})
	}
}
