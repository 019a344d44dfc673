package httpapi

import (
	"time"

	"raffler/domain/entities"
	"raffler/domain/interfaces"
)

type enterRequest struct {
	Participant string `json:"participant" binding:"required"`
	Value       int64  `json:"value"`
}

type enterResponse struct {
	Participant string `json:"participant"`
	Count       int    `json:"count"`
	PooledValue int64  `json:"pooled_value"`
	RoundNumber int64  `json:"round_number"`
}

type outstandingResponse struct {
	RequestID   uint64    `json:"request_id"`
	RoundNumber int64     `json:"round_number"`
	RequestedAt time.Time `json:"requested_at"`
}

type raffleInfoResponse struct {
	RaffleID         int64                `json:"raffle_id"`
	State            string               `json:"state"`
	EntranceFee      int64                `json:"entrance_fee"`
	IntervalSeconds  float64              `json:"interval_seconds"`
	RoundNumber      int64                `json:"round_number"`
	ParticipantCount int                  `json:"participant_count"`
	PooledValue      int64                `json:"pooled_value"`
	LastResetAt      time.Time            `json:"last_reset_at"`
	RecentWinner     *string              `json:"recent_winner"`
	Outstanding      *outstandingResponse `json:"outstanding_request"`
}

func newRaffleInfoResponse(info *interfaces.RaffleInfo) raffleInfoResponse {
	resp := raffleInfoResponse{
		RaffleID:         info.RaffleID,
		State:            info.State.String(),
		EntranceFee:      info.EntranceFee,
		IntervalSeconds:  info.Interval.Seconds(),
		RoundNumber:      info.RoundNumber,
		ParticipantCount: info.ParticipantCount,
		PooledValue:      info.PooledValue,
		LastResetAt:      info.LastResetAt,
	}
	if info.RecentWinner != nil {
		winner := info.RecentWinner.Hex()
		resp.RecentWinner = &winner
	}
	if info.Outstanding != nil {
		resp.Outstanding = &outstandingResponse{
			RequestID:   info.Outstanding.RequestID,
			RoundNumber: info.Outstanding.RoundEpoch,
			RequestedAt: info.Outstanding.RequestedAt,
		}
	}
	return resp
}

type payoutResponse struct {
	RoundNumber int64     `json:"round_number"`
	RequestID   uint64    `json:"request_id"`
	Winner      string    `json:"winner"`
	WinnerIndex int       `json:"winner_index"`
	Amount      int64     `json:"amount"`
	RandomValue string    `json:"random_value"`
	PaidAt      time.Time `json:"paid_at"`
}

func newPayoutResponse(p *entities.Payout) payoutResponse {
	return payoutResponse{
		RoundNumber: p.RoundNumber,
		RequestID:   p.RequestID,
		Winner:      p.Winner.Hex(),
		WinnerIndex: p.WinnerIndex,
		Amount:      p.Amount,
		RandomValue: p.RandomValue,
		PaidAt:      p.PaidAt,
	}
}

type upkeepResponse struct {
	RequestID   uint64 `json:"request_id"`
	RoundNumber int64  `json:"round_number"`
}

type recoveryResponse struct {
	AbandonedRequestID uint64  `json:"abandoned_request_id"`
	RoundNumber        int64   `json:"round_number"`
	PendingForSeconds  float64 `json:"pending_for_seconds"`
}

type fulfillRequest struct {
	RequestID   uint64   `json:"request_id" binding:"required"`
	RandomWords []string `json:"random_words"`
}

type frozenRequest struct {
	Frozen *bool `json:"frozen" binding:"required"`
}

type errorResponse struct {
	Error      string                     `json:"error"`
	Diagnostic *entities.UpkeepDiagnostic `json:"diagnostic,omitempty"`
}
