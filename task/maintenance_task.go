package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/angas/solarquote-go/config"
)

// Maintainer is the database housekeeping done every night.
type Maintainer interface {
	Backup(ctx context.Context) (string, error)
	PurgeBackups(ctx context.Context, retentionDays int) (int, error)
	PurgeLog(ctx context.Context, maxLogEntries, retentionDays int) error
}

func NewMaintenanceTask(logger *slog.Logger, db Maintainer, cnfg *config.AppConfig) func() {
	return func() {
		logger.Debug("running maintenance task...")

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()

		if file, err := db.Backup(ctx); err != nil {
			logger.Error("database backup error", slog.Any("error", err))
		} else {
			logger.Debug("database backup done", slog.String("file", file))
		}

		if n, err := db.PurgeBackups(ctx, cnfg.Database.GetBackupRetentionDays()); err != nil {
			logger.Error("backup maintenance error", slog.Any("error", err))
		} else if n > 0 {
			logger.Debug("old backups removed", slog.Int("count", n))
		}

		if err := db.PurgeLog(ctx, cnfg.Logging.GetDbMaxEntries(), cnfg.Database.GetLogRetentionDays()); err != nil {
			logger.Error("log maintenance error", slog.Any("error", err))
		}

		logger.Info("maintenance task done")
	}
}
