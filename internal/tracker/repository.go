package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/fitplan/internal/sqlite"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"

// repository bundles the per-table repositories.
type repository struct {
	profiles  *sqliteProfileRepository
	workouts  *sqliteWorkoutRepository
	diet      *sqliteDietRepository
	wearables *sqliteWearableRepository
	schedule  *sqliteScheduleRepository
	community *sqliteCommunityRepository
}

func newRepository(db *sqlite.Database, logger *slog.Logger) *repository {
	base := baseRepository{db: db, logger: logger}
	return &repository{
		profiles:  &sqliteProfileRepository{baseRepository: base},
		workouts:  &sqliteWorkoutRepository{baseRepository: base},
		diet:      &sqliteDietRepository{baseRepository: base},
		wearables: &sqliteWearableRepository{baseRepository: base},
		schedule:  &sqliteScheduleRepository{baseRepository: base},
		community: &sqliteCommunityRepository{baseRepository: base},
	}
}

type baseRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

// rollback is deferred after BeginTx. Rolling back a committed transaction is a no-op.
func (r *baseRepository) rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		r.logger.LogAttrs(ctx, slog.LevelError, "rollback failed", slog.Any("error", err))
	}
}

// closeRows is deferred after QueryContext.
func (r *baseRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "close rows failed", slog.Any("error", err))
	}
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
