// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gatortrader_backend/internal/app"
	"gatortrader_backend/internal/config"
	"gatortrader_backend/internal/listing"
	"gatortrader_backend/internal/listing/esutil"
	"gatortrader_backend/internal/platform/database"
	platformElasticsearch "gatortrader_backend/internal/platform/elasticsearch"
	"gatortrader_backend/internal/platform/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		startServer()
	case "migrate":
		runMigrate()
	case "sync-listings":
		syncListingsCmd := flag.NewFlagSet("sync-listings", flag.ExitOnError)
		batchSize := syncListingsCmd.Int("batch-size", 100, "Batch size for syncing listings")
		_ = syncListingsCmd.Parse(os.Args[2:])
		runListingSync(*batchSize)
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [serve|migrate|sync-listings [-batch-size N]]\n", os.Args[0])
		os.Exit(2)
	}
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
}

// bootstrap loads config, logger and database for the one-shot subcommands.
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, func()) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	db, err := database.NewGORM(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	closeAll := func() {
		database.CloseGORMDB(db, appLogger)
		_ = appLogger.Sync()
	}
	return cfg, appLogger, db, closeAll
}

func runMigrate() {
	_, appLogger, db, closeAll := bootstrap()
	defer closeAll()

	if err := app.Migrate(db); err != nil {
		appLogger.Error("Migration failed", zap.Error(err))
		closeAll()
		os.Exit(1)
	}
	appLogger.Info("Migration completed successfully.")
}

func runListingSync(batchSize int) {
	cfg, appLogger, db, closeAll := bootstrap()
	defer closeAll()

	esClient, err := platformElasticsearch.NewClient(cfg, appLogger)
	if err != nil || esClient == nil {
		appLogger.Error("Elasticsearch is required for sync-listings; check ELASTICSEARCH_URL", zap.Error(err))
		closeAll()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := platformElasticsearch.CreateListingsIndexIfNotExists(ctx, esClient, appLogger); err != nil {
		appLogger.Error("Failed to create/verify Elasticsearch index before sync", zap.Error(err))
		closeAll()
		os.Exit(1)
	}

	indexer := esutil.NewIndexer(esClient, appLogger)
	synced, err := esutil.SyncAll(ctx, listing.NewGORMRepository(db), indexer, batchSize, appLogger)
	if err != nil {
		appLogger.Error("Listing synchronization failed", zap.Int("synced", synced), zap.Error(err))
		closeAll()
		os.Exit(1)
	}
	appLogger.Info("Listing synchronization completed successfully.", zap.Int("synced", synced))
}
