package services

import (
	"time"

	"raffler/domain/entities"
)

// EvaluateUpkeep decides whether the round should be closed. All four
// conditions must hold; the diagnostic reports each one separately.
func EvaluateUpkeep(now time.Time, round entities.Round, state entities.RaffleState, interval time.Duration) entities.UpkeepCheck {
	elapsed := round.Elapsed(now)
	diagnostic := entities.UpkeepDiagnostic{
		IsOpen:     state == entities.RaffleStateOpen,
		TimePassed: elapsed >= interval,
		HasPlayers: round.ParticipantCount() > 0,
		HasBalance: round.PooledValue > 0,
		Elapsed:    elapsed,
	}

	return entities.UpkeepCheck{
		Needed:     diagnostic.AllSatisfied(),
		Diagnostic: diagnostic,
	}
}
