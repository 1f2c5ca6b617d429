package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	expensePostgres "github.com/frahmantamala/expense-tickets/internal/expense/postgres"
	"github.com/frahmantamala/expense-tickets/internal/media"
	"github.com/frahmantamala/expense-tickets/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run background maintenance jobs",
}

var mediaSweepCmd = &cobra.Command{
	Use:   "media-sweep",
	Short: "Remove upload files no ticket references",
	Long:  `Walk the upload directory and remove every file that no ticket attachment points at, through the media cleanup worker pool.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMediaSweep(cmd.Context())
	},
}

var (
	sweepWorkers int
	sweepDryRun  bool
)

func runMediaSweep(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper()

	db, sqlDB, err := initDB(cfg.Database, lg)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer sqlDB.Close()

	referenced, err := expensePostgres.NewExpenseRepository(db).AttachmentPaths(ctx)
	if err != nil {
		return fmt.Errorf("load attachment paths: %w", err)
	}

	uploads := afero.NewBasePathFs(afero.NewOsFs(), cfg.Media.UploadDir)
	if sweepDryRun {
		orphans, err := media.Unreferenced(ctx, uploads, referenced)
		if err != nil {
			return err
		}
		for _, name := range orphans {
			lg.Info("unreferenced attachment", "path", name)
		}
		lg.Info("media sweep dry run complete", "unreferenced", len(orphans))
		return nil
	}

	workers := cfg.Media.Workers
	if sweepWorkers > 0 {
		workers = sweepWorkers
	}

	lg.Info("starting media sweep",
		"upload_dir", cfg.Media.UploadDir,
		"referenced", len(referenced),
		"workers", workers)

	cleaner := media.NewCleaner(uploads, media.Config{
		Workers:        workers,
		QueueSize:      cfg.Media.QueueSize,
		MaxRetries:     cfg.Media.MaxRetries,
		RetryBaseDelay: cfg.Media.RetryBaseDelay,
	}, lg)

	queued, sweepErr := cleaner.Sweep(ctx, referenced)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := cleaner.Shutdown(shutdownCtx); err != nil {
		lg.Warn("media cleaner shutdown timed out", "error", err)
	}

	if sweepErr != nil {
		return sweepErr
	}
	lg.Info("media sweep complete", "queued", queued)
	return nil
}

func init() {
	mediaSweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "Number of removal workers (overrides config)")
	mediaSweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "Walk and report without removing files")

	workerCmd.AddCommand(mediaSweepCmd)
}
