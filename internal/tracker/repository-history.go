package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/planner"
)

type sqliteWorkoutRepository struct {
	baseRepository
}

func (r *sqliteWorkoutRepository) Add(ctx context.Context, w planner.WorkoutRecord) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	if _, err := r.db.ReadWrite.ExecContext(ctx, `INSERT INTO workouts
    (user_id, date, workout_type, duration_min, calories_burned)
VALUES (?, ?, ?, ?, ?)`,
		userID, formatDate(w.Date), w.WorkoutType, w.DurationMin, w.CaloriesBurned); err != nil {
		return fmt.Errorf("insert workout: %w", err)
	}
	return nil
}

// ListRecent returns at most limit workouts, newest first.
func (r *sqliteWorkoutRepository) ListRecent(ctx context.Context, limit int) ([]planner.WorkoutRecord, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	rows, err := r.db.ReadOnly.QueryContext(ctx, `SELECT date, workout_type, duration_min, calories_burned
FROM workouts
WHERE user_id = ?
ORDER BY date DESC, id DESC
LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query workouts: %w", err)
	}
	defer r.closeRows(ctx, rows)

	var workouts []planner.WorkoutRecord
	for rows.Next() {
		var (
			w    planner.WorkoutRecord
			date string
		)
		if err = rows.Scan(&date, &w.WorkoutType, &w.DurationMin, &w.CaloriesBurned); err != nil {
			return nil, fmt.Errorf("scan workout: %w", err)
		}
		if w.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return workouts, nil
}

// CountByType returns the limit most logged workout types.
func (r *sqliteWorkoutRepository) CountByType(ctx context.Context, limit int) ([]WorkoutCount, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	rows, err := r.db.ReadOnly.QueryContext(ctx, `SELECT workout_type, COUNT(*) AS cnt
FROM workouts
WHERE user_id = ?
GROUP BY workout_type
ORDER BY cnt DESC, workout_type
LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query workout counts: %w", err)
	}
	defer r.closeRows(ctx, rows)

	var counts []WorkoutCount
	for rows.Next() {
		var c WorkoutCount
		if err = rows.Scan(&c.WorkoutType, &c.Count); err != nil {
			return nil, fmt.Errorf("scan workout count: %w", err)
		}
		counts = append(counts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return counts, nil
}

type sqliteDietRepository struct {
	baseRepository
}

func (r *sqliteDietRepository) Add(ctx context.Context, d planner.DietRecord) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	if _, err := r.db.ReadWrite.ExecContext(ctx, `INSERT INTO diet_entries
    (user_id, date, meal_type, calories, protein_g, carbs_g, fats_g)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, formatDate(d.Date), d.MealType, d.Calories, d.ProteinG, d.CarbsG, d.FatsG); err != nil {
		return fmt.Errorf("insert diet entry: %w", err)
	}
	return nil
}

// ListRecent returns at most limit diet entries, newest first.
func (r *sqliteDietRepository) ListRecent(ctx context.Context, limit int) ([]planner.DietRecord, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	rows, err := r.db.ReadOnly.QueryContext(ctx, `SELECT date, meal_type, calories, protein_g, carbs_g, fats_g
FROM diet_entries
WHERE user_id = ?
ORDER BY date DESC, id DESC
LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query diet entries: %w", err)
	}
	defer r.closeRows(ctx, rows)

	var entries []planner.DietRecord
	for rows.Next() {
		var (
			d    planner.DietRecord
			date string
		)
		if err = rows.Scan(&date, &d.MealType, &d.Calories, &d.ProteinG, &d.CarbsG, &d.FatsG); err != nil {
			return nil, fmt.Errorf("scan diet entry: %w", err)
		}
		if d.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		entries = append(entries, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}

type sqliteWearableRepository struct {
	baseRepository
}

func (r *sqliteWearableRepository) Add(ctx context.Context, s planner.WearableSample) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	if _, err := r.db.ReadWrite.ExecContext(ctx, `INSERT INTO wearable_samples
    (user_id, recorded_at, steps, heart_rate, sleep_hours, calories_burned)
VALUES (?, ?, ?, ?, ?, ?)`,
		userID, formatTimestamp(s.RecordedAt), s.Steps, s.HeartRate, s.SleepHours, s.CaloriesBurned); err != nil {
		return fmt.Errorf("insert wearable sample: %w", err)
	}
	return nil
}

// ListRecent returns the latest limit samples ordered oldest first.
func (r *sqliteWearableRepository) ListRecent(ctx context.Context, limit int) ([]planner.WearableSample, error) {
	return r.list(ctx, `SELECT recorded_at, steps, heart_rate, sleep_hours, calories_burned
FROM (SELECT *
      FROM wearable_samples
      WHERE user_id = ?
      ORDER BY recorded_at DESC, id DESC
      LIMIT ?)
ORDER BY recorded_at, id`, limit)
}

// ListRecentSleep returns the latest limit samples that carry sleep, ordered oldest first. Step-only syncs
// do not push nights out of the window.
func (r *sqliteWearableRepository) ListRecentSleep(ctx context.Context, limit int) ([]planner.WearableSample, error) {
	return r.list(ctx, `SELECT recorded_at, steps, heart_rate, sleep_hours, calories_burned
FROM (SELECT *
      FROM wearable_samples
      WHERE user_id = ? AND sleep_hours > 0
      ORDER BY recorded_at DESC, id DESC
      LIMIT ?)
ORDER BY recorded_at, id`, limit)
}

func (r *sqliteWearableRepository) list(ctx context.Context, query string, limit int) ([]planner.WearableSample, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	rows, err := r.db.ReadOnly.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query wearable samples: %w", err)
	}
	defer r.closeRows(ctx, rows)

	var samples []planner.WearableSample
	for rows.Next() {
		var (
			s          planner.WearableSample
			recordedAt string
		)
		if err = rows.Scan(&recordedAt, &s.Steps, &s.HeartRate, &s.SleepHours, &s.CaloriesBurned); err != nil {
			return nil, fmt.Errorf("scan wearable sample: %w", err)
		}
		if s.RecordedAt, err = parseTimestamp(recordedAt); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return samples, nil
}

// sumDiet totals the entries dated day.
func sumDiet(entries []planner.DietRecord, day time.Time) DietTotals {
	var totals DietTotals
	for _, d := range entries {
		if !planner.Day(d.Date).Equal(planner.Day(day)) {
			continue
		}
		totals.Calories += d.Calories
		totals.ProteinG += d.ProteinG
		totals.CarbsG += d.CarbsG
		totals.FatsG += d.FatsG
	}
	return totals
}
