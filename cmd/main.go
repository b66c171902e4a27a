package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Dosada05/tournament-tracker/brackets"
	"github.com/Dosada05/tournament-tracker/cli"
	"github.com/Dosada05/tournament-tracker/config"
	"github.com/Dosada05/tournament-tracker/db"
	"github.com/Dosada05/tournament-tracker/repositories"
	"github.com/Dosada05/tournament-tracker/services"
	"github.com/Dosada05/tournament-tracker/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Logs go to stderr so command output on stdout stays clean.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	policy, err := services.ParseScorePolicy(cfg.ScorePolicy)
	if err != nil {
		return err
	}

	var notifier services.Notifier = services.NewLogNotifier(logger)
	if cfg.SMTPHost != "" {
		notifier = services.NewSMTPNotifier(cfg)
	}

	var archiver services.Archiver
	if cfg.Archive.Enabled() {
		uploader, err := storage.NewS3Uploader(ctx, storage.S3UploaderConfig{
			Endpoint:        cfg.Archive.Endpoint,
			Region:          cfg.Archive.Region,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			BucketName:      cfg.Archive.Bucket,
			PublicBaseURL:   cfg.Archive.PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize archive uploader: %w", err)
		}
		archiver = storage.NewArchiver(uploader, cfg.Archive.Prefix)
		logger.Debug("archive uploader initialized", slog.String("bucket", cfg.Archive.Bucket))
	}

	generator := brackets.NewSingleEliminationGenerator(brackets.RandomShuffle, logger)
	app := &cli.App{
		Roster:      services.NewRosterService(store, logger),
		Tournaments: services.NewTournamentService(store, generator, notifier, archiver, policy, cfg.SenderName, logger),
	}

	return cli.NewRootCommand(app).ExecuteContext(ctx)
}

// openStore builds the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.Store, func(), error) {
	noop := func() {}

	var (
		driver  string
		dialect repositories.Dialect
	)
	switch cfg.Storage {
	case config.StorageTextFile:
		store, err := repositories.NewTextFileStore(cfg.DataDir)
		if err != nil {
			return nil, noop, err
		}
		logger.Debug("text file store opened", slog.String("dir", cfg.DataDir))
		return store, noop, nil
	case config.StoragePostgres:
		driver, dialect = "postgres", repositories.DialectPostgres
	case config.StorageSQLite:
		driver, dialect = "sqlite3", repositories.DialectSQLite
	default:
		return nil, noop, fmt.Errorf("%w: %q", repositories.ErrUnknownBackend, cfg.Storage)
	}

	dbConn, err := db.Connect(driver, cfg.DatabaseURL, cfg.DBTimeout, logger)
	if err != nil {
		return nil, noop, err
	}
	closeDB := func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}

	store, err := newSQLStore(ctx, dbConn, dialect, logger)
	if err != nil {
		closeDB()
		return nil, noop, err
	}
	logger.Debug("database connection established", slog.String("driver", driver))
	return store, closeDB, nil
}

func newSQLStore(ctx context.Context, dbConn *sql.DB, dialect repositories.Dialect, logger *slog.Logger) (*repositories.SQLStore, error) {
	store, err := repositories.NewSQLStore(dbConn, dialect, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
