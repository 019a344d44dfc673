package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"raffler/application"
	"raffler/config"
	"raffler/database"
	"raffler/domain/interfaces"
	"raffler/domain/services"
	"raffler/httpapi"
	"raffler/infrastructure"
	"raffler/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// RaffleID identifies the single raffle this process operates
const RaffleID int64 = 1

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"oracle_mode": cfg.OracleMode,
	}).Info("Starting raffler")

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics := observability.GetMetrics()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), cfg.PoolOptions())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	var natsClient *infrastructure.NATSClient
	var eventPublisher interfaces.EventPublisher = infrastructure.NewNoopEventPublisher()
	if cfg.NATSServers != "" {
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer func() {
			if err := natsClient.Close(); err != nil {
				log.WithError(err).Error("Error closing NATS connection")
			}
		}()

		mapper := infrastructure.NewEventSubjectMapper()
		if err := infrastructure.EnsureEventStream(natsClient, mapper); err != nil {
			return fmt.Errorf("failed to ensure raffle event stream: %w", err)
		}
		eventPublisher = infrastructure.NewNATSEventPublisher(natsClient, mapper, metrics)
	} else {
		log.Warn("NATS_SERVERS is empty, domain events will not be published")
	}

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, RaffleID, eventPublisher)

	var oracle interfaces.RandomnessOracle
	var localOracle *infrastructure.LocalRandomnessOracle
	switch cfg.OracleMode {
	case config.OracleModeNATS:
		if natsClient == nil {
			return errors.New("the nats oracle requires NATS_SERVERS")
		}
		if err := infrastructure.EnsureOracleStream(natsClient); err != nil {
			return fmt.Errorf("failed to ensure oracle stream: %w", err)
		}
		oracle = infrastructure.NewNATSRandomnessOracle(natsClient)
	case config.OracleModeLocal:
		localOracle = infrastructure.NewLocalRandomnessOracle(cfg.LocalOracleDelay)
		defer localOracle.Stop()
		oracle = localOracle
	default:
		return fmt.Errorf("unknown oracle mode %q", cfg.OracleMode)
	}

	coordinator := application.NewRaffleCoordinator(uowFactory, oracle, services.RaffleSettings{
		RaffleID:     RaffleID,
		OracleParams: cfg.OracleParams(),
		GracePeriod:  cfg.OracleGracePeriod,
	}, metrics)

	if _, err := coordinator.Bootstrap(ctx, cfg.RaffleConfig()); err != nil {
		return err
	}

	// Fulfillments are only accepted once the raffle exists
	var manualOracle httpapi.ManualOracle
	if localOracle != nil {
		localOracle.SetHandler(coordinator)
		manualOracle = localOracle
	} else {
		listener := infrastructure.NewRandomnessFulfillmentListener(coordinator, metrics)
		if err := listener.Subscribe(natsClient); err != nil {
			return fmt.Errorf("failed to subscribe to oracle fulfillments: %w", err)
		}
	}

	stopWorker, err := application.NewUpkeepWorker(coordinator, cfg.UpkeepPollInterval).Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start upkeep worker: %w", err)
	}
	defer stopWorker()

	router := httpapi.SetupRoutes(httpapi.RouterConfig{
		Handler:     httpapi.NewRaffleHandler(coordinator, manualOracle),
		AdminToken:  cfg.AdminToken,
		HealthCheck: db.Ping,
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	log.Info("Shutting down raffler...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return nil
}

// ConfigureLogging applies the configured level and formatter to logrus
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
