package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouterConfig holds everything the router needs
type RouterConfig struct {
	Handler     *RaffleHandler
	AdminToken  string
	HealthCheck func(ctx context.Context) error
}

// SetupRoutes builds the gin engine with the public and admin routes
func SetupRoutes(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := cfg.Handler
	api := r.Group("/api")
	{
		raffle := api.Group("/raffle")
		raffle.GET("", h.GetInfo)
		raffle.POST("/entries", h.Enter)
		raffle.GET("/participants/:index", h.GetParticipant)
		raffle.GET("/winner", h.GetRecentWinner)
		raffle.GET("/payouts", h.ListPayouts)
		raffle.GET("/upkeep", h.CheckUpkeep)

		api.GET("/ledger/:address", h.GetLedgerAccount)
	}

	admin := r.Group("/api/admin", BearerAuth(cfg.AdminToken))
	{
		admin.POST("/raffle/upkeep", h.PerformUpkeep)
		admin.POST("/raffle/recover", h.RecoverStuckRound)
		admin.PUT("/ledger/:address/frozen", h.SetAccountFrozen)
		admin.GET("/oracle/pending", h.ListPendingOracleRequests)
		admin.POST("/oracle/fulfill", h.FulfillOracleRequest)
	}

	return r
}
