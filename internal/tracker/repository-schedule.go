package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/planner"
)

type sqliteScheduleRepository struct {
	baseRepository
}

const slotColumns = `id, scheduled_date, workout_type, duration_min, status, note`

func scanSlot(row rowScanner) (planner.ScheduleSlot, error) {
	var (
		slot         planner.ScheduleSlot
		date, status string
	)
	if err := row.Scan(&slot.ID, &date, &slot.WorkoutType, &slot.DurationMin, &status, &slot.Note); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return planner.ScheduleSlot{}, ErrNotFound
		}
		return planner.ScheduleSlot{}, fmt.Errorf("scan slot: %w", err)
	}
	var err error
	if slot.ScheduledDate, err = parseDate(date); err != nil {
		return planner.ScheduleSlot{}, err
	}
	slot.Status = planner.SlotStatus(status)
	return slot, nil
}

// List returns every slot of the user ordered by date.
func (r *sqliteScheduleRepository) List(ctx context.Context) ([]planner.ScheduleSlot, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	rows, err := r.db.ReadOnly.QueryContext(ctx, `SELECT `+slotColumns+`
FROM schedule_slots
WHERE user_id = ?
ORDER BY scheduled_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer r.closeRows(ctx, rows)

	var slots []planner.ScheduleSlot
	for rows.Next() {
		var slot planner.ScheduleSlot
		if slot, err = scanSlot(rows); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return slots, nil
}

// NextPending returns the earliest pending slot dated from or later.
func (r *sqliteScheduleRepository) NextPending(ctx context.Context, from time.Time) (planner.ScheduleSlot, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	row := r.db.ReadOnly.QueryRowContext(ctx, `SELECT `+slotColumns+`
FROM schedule_slots
WHERE user_id = ? AND status = 'pending' AND scheduled_date >= ?
ORDER BY scheduled_date, id
LIMIT 1`, userID, formatDate(from))
	return scanSlot(row)
}

// ReplacePending deletes the pending slots dated from or later and inserts slots in their place. The inserted
// slots are returned with their IDs.
func (r *sqliteScheduleRepository) ReplacePending(
	ctx context.Context,
	from time.Time,
	slots []planner.ScheduleSlot,
) ([]planner.ScheduleSlot, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer r.rollback(ctx, tx)

	if _, err = tx.ExecContext(ctx, `DELETE FROM schedule_slots
WHERE user_id = ? AND status = 'pending' AND scheduled_date >= ?`, userID, formatDate(from)); err != nil {
		return nil, fmt.Errorf("delete pending slots: %w", err)
	}

	inserted := make([]planner.ScheduleSlot, 0, len(slots))
	for _, slot := range slots {
		if err = tx.QueryRowContext(ctx, `INSERT INTO schedule_slots
    (user_id, scheduled_date, workout_type, duration_min, status, note)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`, userID, formatDate(slot.ScheduledDate), slot.WorkoutType, slot.DurationMin, string(slot.Status),
			slot.Note).Scan(&slot.ID); err != nil {
			return nil, fmt.Errorf("insert slot %s: %w", formatDate(slot.ScheduledDate), err)
		}
		inserted = append(inserted, slot)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// Save writes the type, duration and note of slots back. Completed slots are left untouched.
func (r *sqliteScheduleRepository) Save(ctx context.Context, slots []planner.ScheduleSlot) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer r.rollback(ctx, tx)

	for _, slot := range slots {
		if _, err = tx.ExecContext(ctx, `UPDATE schedule_slots
SET workout_type = ?, duration_min = ?, note = ?
WHERE id = ? AND user_id = ? AND status = 'pending'`,
			slot.WorkoutType, slot.DurationMin, slot.Note, slot.ID, userID); err != nil {
			return fmt.Errorf("update slot %d: %w", slot.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Complete marks the pending slot completed, logs the workout on day and awards points in one transaction.
// Rest days are not logged as workouts.
func (r *sqliteScheduleRepository) Complete(
	ctx context.Context,
	slotID int,
	day time.Time,
	points int,
) (planner.ScheduleSlot, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return planner.ScheduleSlot{}, fmt.Errorf("begin: %w", err)
	}
	defer r.rollback(ctx, tx)

	slot, err := scanSlot(tx.QueryRowContext(ctx, `UPDATE schedule_slots
SET status = 'completed'
WHERE id = ? AND user_id = ? AND status = 'pending'
RETURNING `+slotColumns, slotID, userID))
	if err != nil {
		return planner.ScheduleSlot{}, err
	}

	if slot.DurationMin > 0 {
		if _, err = tx.ExecContext(ctx, `INSERT INTO workouts (user_id, date, workout_type, duration_min)
VALUES (?, ?, ?, ?)`, userID, formatDate(day), slot.WorkoutType, slot.DurationMin); err != nil {
			return planner.ScheduleSlot{}, fmt.Errorf("log workout: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE users SET community_points = community_points + ? WHERE id = ?`,
		points, userID); err != nil {
		return planner.ScheduleSlot{}, fmt.Errorf("award points: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return planner.ScheduleSlot{}, fmt.Errorf("commit: %w", err)
	}
	return slot, nil
}
