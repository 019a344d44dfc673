package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"raffler/domain/entities"
	"raffler/domain/interfaces"
	"raffler/domain/services"
	"raffler/infrastructure"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	defaultPayoutLimit = 10
	maxPayoutLimit     = 100
)

// RaffleAPI is the application surface used by the HTTP handlers
type RaffleAPI interface {
	Enter(ctx context.Context, participant common.Address, paidValue int64) (*interfaces.EnterResult, error)
	CheckUpkeep(ctx context.Context) (*entities.UpkeepCheck, error)
	PerformUpkeep(ctx context.Context) (*interfaces.UpkeepResult, error)
	RecoverStuckRound(ctx context.Context) (*interfaces.RecoveryResult, error)
	GetRaffleInfo(ctx context.Context) (*interfaces.RaffleInfo, error)
	GetParticipant(ctx context.Context, index int) (common.Address, error)
	GetRecentWinner(ctx context.Context) (*entities.Payout, error)
	ListRecentPayouts(ctx context.Context, limit int) ([]*entities.Payout, error)
	GetLedgerAccount(ctx context.Context, address common.Address) (*entities.LedgerAccount, error)
	SetAccountFrozen(ctx context.Context, address common.Address, frozen bool) error
}

// ManualOracle lets operators deliver fulfillments by hand. Only the local oracle supports it.
type ManualOracle interface {
	Fulfill(ctx context.Context, requestID uint64) error
	FulfillWith(ctx context.Context, requestID uint64, words []entities.RandomValue) error
	Pending() []uint64
}

// RaffleHandler serves the raffle HTTP API
type RaffleHandler struct {
	raffle RaffleAPI
	oracle ManualOracle
}

// NewRaffleHandler creates a new handler. oracle may be nil.
func NewRaffleHandler(raffle RaffleAPI, oracle ManualOracle) *RaffleHandler {
	return &RaffleHandler{raffle: raffle, oracle: oracle}
}

// GetInfo returns the raffle snapshot
func (h *RaffleHandler) GetInfo(c *gin.Context) {
	info, err := h.raffle.GetRaffleInfo(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRaffleInfoResponse(info))
}

// Enter admits a paid entry
func (h *RaffleHandler) Enter(c *gin.Context) {
	var req enterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if !common.IsHexAddress(req.Participant) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "participant must be a hex address"})
		return
	}

	result, err := h.raffle.Enter(c.Request.Context(), common.HexToAddress(req.Participant), req.Value)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enterResponse{
		Participant: result.Participant.Hex(),
		Count:       result.Count,
		PooledValue: result.PooledValue,
		RoundNumber: result.RoundNumber,
	})
}

// GetParticipant returns the participant at an index of the current round
func (h *RaffleHandler) GetParticipant(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "index must be an integer"})
		return
	}

	participant, err := h.raffle.GetParticipant(c.Request.Context(), index)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": index, "participant": participant.Hex()})
}

// GetRecentWinner returns the last payout
func (h *RaffleHandler) GetRecentWinner(c *gin.Context) {
	payout, err := h.raffle.GetRecentWinner(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPayoutResponse(payout))
}

// ListPayouts returns recent payouts, newest first
func (h *RaffleHandler) ListPayouts(c *gin.Context) {
	limit := defaultPayoutLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxPayoutLimit {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be between 1 and 100"})
			return
		}
		limit = parsed
	}

	payouts, err := h.raffle.ListRecentPayouts(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]payoutResponse, 0, len(payouts))
	for _, p := range payouts {
		resp = append(resp, newPayoutResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"payouts": resp})
}

// CheckUpkeep reports whether the round may be closed
func (h *RaffleHandler) CheckUpkeep(c *gin.Context) {
	check, err := h.raffle.CheckUpkeep(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}

// GetLedgerAccount returns the ledger balance of an address
func (h *RaffleHandler) GetLedgerAccount(c *gin.Context) {
	address, ok := parseAddressParam(c)
	if !ok {
		return
	}

	account, err := h.raffle.GetLedgerAccount(c.Request.Context(), address)
	if err != nil {
		writeError(c, err)
		return
	}
	if account == nil {
		account = &entities.LedgerAccount{Address: address}
	}
	c.JSON(http.StatusOK, gin.H{
		"address": account.Address.Hex(),
		"balance": account.Balance,
		"frozen":  account.Frozen,
	})
}

// PerformUpkeep closes the round on operator request
func (h *RaffleHandler) PerformUpkeep(c *gin.Context) {
	result, err := h.raffle.PerformUpkeep(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, upkeepResponse{RequestID: result.RequestID, RoundNumber: result.RoundNumber})
}

// RecoverStuckRound abandons an outstanding request past its grace period
func (h *RaffleHandler) RecoverStuckRound(c *gin.Context) {
	result, err := h.raffle.RecoverStuckRound(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recoveryResponse{
		AbandonedRequestID: result.AbandonedRequestID,
		RoundNumber:        result.RoundNumber,
		PendingForSeconds:  result.PendingFor.Seconds(),
	})
}

// SetAccountFrozen freezes or unfreezes a ledger account
func (h *RaffleHandler) SetAccountFrozen(c *gin.Context) {
	address, ok := parseAddressParam(c)
	if !ok {
		return
	}

	var req frozenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "frozen is required"})
		return
	}

	if err := h.raffle.SetAccountFrozen(c.Request.Context(), address, *req.Frozen); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address.Hex(), "frozen": *req.Frozen})
}

// ListPendingOracleRequests returns the undelivered local oracle requests
func (h *RaffleHandler) ListPendingOracleRequests(c *gin.Context) {
	if h.oracle == nil {
		c.JSON(http.StatusNotImplemented, errorResponse{Error: "manual fulfillment requires the local oracle"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": h.oracle.Pending()})
}

// FulfillOracleRequest delivers a fulfillment through the local oracle.
// Without random_words fresh random words are generated.
func (h *RaffleHandler) FulfillOracleRequest(c *gin.Context) {
	if h.oracle == nil {
		c.JSON(http.StatusNotImplemented, errorResponse{Error: "manual fulfillment requires the local oracle"})
		return
	}

	var req fulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "request_id is required"})
		return
	}

	var err error
	if len(req.RandomWords) == 0 {
		err = h.oracle.Fulfill(c.Request.Context(), req.RequestID)
	} else {
		words := make([]entities.RandomValue, 0, len(req.RandomWords))
		for _, raw := range req.RandomWords {
			word, parseErr := entities.ParseRandomValue(raw)
			if parseErr != nil {
				c.JSON(http.StatusBadRequest, errorResponse{Error: parseErr.Error()})
				return
			}
			words = append(words, word)
		}
		err = h.oracle.FulfillWith(c.Request.Context(), req.RequestID, words)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request_id": req.RequestID, "delivered": true})
}

func parseAddressParam(c *gin.Context) (common.Address, bool) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "address must be a hex address"})
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// writeError maps domain errors to HTTP status codes
func writeError(c *gin.Context, err error) {
	var notNeeded *services.UpkeepNotNeededError
	switch {
	case errors.As(err, &notNeeded):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Diagnostic: &notNeeded.Diagnostic})
	case errors.Is(err, services.ErrInsufficientFee):
		c.JSON(http.StatusPaymentRequired, errorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrRaffleClosed),
		errors.Is(err, services.ErrRecoveryNotAllowed),
		errors.Is(err, services.ErrPayoutFailed):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrInvalidParticipant),
		errors.Is(err, services.ErrPoolOverflow):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrParticipantIndexOutOfRange),
		errors.Is(err, services.ErrNoRecentWinner),
		errors.Is(err, infrastructure.ErrUnknownLocalRequest):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		log.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
