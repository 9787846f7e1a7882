package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tyebliya/waitlist-api/config"
	"github.com/tyebliya/waitlist-api/internal/repository"
	"github.com/tyebliya/waitlist-api/internal/services"
	"github.com/tyebliya/waitlist-api/pkg/db"
	"github.com/tyebliya/waitlist-api/pkg/logger"
	"github.com/tyebliya/waitlist-api/pkg/storage"
	"go.uber.org/zap"
)

const exportTimeout = 2 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: "waitlist-export",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("Waitlist export failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if !cfg.ExportEnabled() {
		return fmt.Errorf("EXPORT_BUCKET is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	pool, err := db.NewPool(ctx, db.PoolConfigFrom(cfg.Database))
	if err != nil {
		return err
	}
	defer db.Close(pool)

	uploader, err := storage.NewClient(storage.Config{
		AccessKeyID:     cfg.Export.AccessKeyID,
		SecretAccessKey: cfg.Export.SecretAccessKey,
		Bucket:          cfg.Export.Bucket,
		Endpoint:        cfg.Export.Endpoint,
		Region:          cfg.Export.Region,
	})
	if err != nil {
		return err
	}

	result, err := services.NewExportService(repository.NewWaitlistRepository(pool), uploader).Export(ctx)
	if err != nil {
		return err
	}

	logger.Info("Export uploaded",
		zap.String("location", result.Location),
		zap.Int("rows", result.Rows))
	return nil
}
