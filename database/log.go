package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type LogEntryRow struct {
	Timestamp time.Time
	Level     int
	Module    string
	Message   string
	Attrs     string
}

func (d *Database) SaveLogEntry(ctx context.Context, r LogEntryRow) error {
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO log (timestamp, level, module, message, attrs)
		VALUES (?, ?, ?, ?, ?)`,
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Level,
		r.Module,
		r.Message,
		r.Attrs)
	if err != nil {
		return fmt.Errorf("saving log entry: %w", err)
	}
	return nil
}

// LogFilter selects log entries. An empty Module matches all modules.
type LogFilter struct {
	MinLevel slog.Level
	Module   string
}

func (d *Database) GetLogEntries(ctx context.Context, f LogFilter, page, pageSize int) ([]LogEntryRow, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	rows, err := d.read.QueryContext(ctx, `
		SELECT timestamp, level, module, message, attrs
		FROM log
		WHERE level >= ? AND (? = '' OR module = ?)
		ORDER BY id DESC
		LIMIT ? OFFSET ?`,
		int(f.MinLevel), f.Module, f.Module, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetching log entries: %w", err)
	}
	defer rows.Close()

	var ts string
	var entries []LogEntryRow
	for rows.Next() {
		var r LogEntryRow
		if err := rows.Scan(&ts, &r.Level, &r.Module, &r.Message, &r.Attrs); err != nil {
			return nil, err
		}
		r.Timestamp, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		entries = append(entries, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading log rows: %w", err)
	}

	return entries, nil
}

func (d *Database) CountLogEntries(ctx context.Context, f LogFilter) (int, error) {
	var n int
	err := d.read.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM log WHERE level >= ? AND (? = '' OR module = ?)`,
		int(f.MinLevel), f.Module, f.Module).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting log entries: %w", err)
	}
	return n, nil
}

// PurgeLog keeps the newest maxLogEntries entries and drops everything older than
// retentionDays. A retention below one day keeps entries regardless of age.
func (d *Database) PurgeLog(ctx context.Context, maxLogEntries, retentionDays int) error {
	d.logger.Debug("purging log")
	res, err := d.write.ExecContext(ctx, `
		DELETE FROM log WHERE id <= (SELECT id FROM log ORDER BY id DESC LIMIT 1 OFFSET ?)`, maxLogEntries)
	if err != nil {
		return fmt.Errorf("purging log: %w", err)
	}
	d.logAffected(res, "entries above max")

	if retentionDays < 1 {
		return nil
	}
	before := time.Now().Add(-24 * time.Hour * time.Duration(retentionDays))
	res, err = d.write.ExecContext(ctx, `DELETE FROM log WHERE timestamp < ?`, before.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("purging log by age: %w", err)
	}
	d.logAffected(res, "entries past retention")

	return nil
}

func (d *Database) logAffected(res interface{ RowsAffected() (int64, error) }, what string) {
	rows, err := res.RowsAffected()
	if err != nil {
		d.logger.Warn("can't get rows affected by purge", slog.Any("error", err))
		return
	}
	d.logger.Debug(fmt.Sprintf("purged %d log %s", rows, what))
}
