package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"raffler/application"
	"raffler/cmd"
	"raffler/config"
	"raffler/database"
	"raffler/domain/services"
	"raffler/infrastructure"
)

func main() {
	// Check for migration subcommands
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			log.Fatal("Migration error:", err)
		}
		return
	}

	// Operator escape hatch for a round stuck waiting on the oracle
	if len(os.Args) > 1 && os.Args[1] == "recover" {
		if err := handleRecoverCommand(); err != nil {
			log.Fatal("Recovery error:", err)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error:", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: raffler migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

// handleRecoverCommand abandons the outstanding oracle request once the grace period has passed.
// Events are not published since no message bus is connected.
func handleRecoverCommand() error {
	ctx := context.Background()
	cfg := config.Get()
	cmd.ConfigureLogging(cfg)

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), cfg.PoolOptions())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, cmd.RaffleID, infrastructure.NewNoopEventPublisher())
	coordinator := application.NewRaffleCoordinator(uowFactory, nil, services.RaffleSettings{
		RaffleID:     cmd.RaffleID,
		OracleParams: cfg.OracleParams(),
		GracePeriod:  cfg.OracleGracePeriod,
	}, nil)

	result, err := coordinator.RecoverStuckRound(ctx)
	if err != nil {
		return err
	}

	log.Printf("Abandoned request %d of round %d after %s", result.AbandonedRequestID, result.RoundNumber, result.PendingFor)
	return nil
}
