package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/planner"
)

type sqliteProfileRepository struct {
	baseRepository
}

type rowScanner interface {
	Scan(dest ...any) error
}

const profileColumns = `id, display_name, age, weight_kg, height_cm, gender, activity_level, goal, community_points`

func scanProfile(row rowScanner) (Profile, error) {
	var (
		p                      Profile
		gender, level, goalStr string
	)
	if err := row.Scan(&p.ID, &p.DisplayName, &p.Age, &p.WeightKg, &p.HeightCm, &gender, &level, &goalStr,
		&p.CommunityPoints); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("scan profile: %w", err)
	}
	p.Gender = planner.ParseGender(gender)
	var err error
	if p.ActivityLevel, err = planner.ParseActivityLevel(level); err != nil {
		return Profile{}, fmt.Errorf("parse activity level: %w", err)
	}
	if p.Goal, err = planner.ParseGoal(goalStr); err != nil {
		return Profile{}, fmt.Errorf("parse goal: %w", err)
	}
	return p, nil
}

// Get returns the authenticated user's profile.
func (r *sqliteProfileRepository) Get(ctx context.Context) (Profile, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	row := r.db.ReadOnly.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM users WHERE id = ?`, userID)
	return scanProfile(row)
}

// Update reads the profile and writes it back if updateFn reports a change, all in one transaction.
func (r *sqliteProfileRepository) Update(
	ctx context.Context,
	updateFn func(p *Profile) (bool, error),
) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer r.rollback(ctx, tx)

	p, err := scanProfile(tx.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM users WHERE id = ?`, userID))
	if err != nil {
		return err
	}
	updated, err := updateFn(&p)
	if err != nil {
		return err
	}
	if !updated {
		return nil
	}

	if _, err = tx.ExecContext(ctx, `UPDATE users
SET display_name   = :display_name,
    age            = :age,
    weight_kg      = :weight_kg,
    height_cm      = :height_cm,
    gender         = :gender,
    activity_level = :activity_level,
    goal           = :goal
WHERE id = :id`,
		sql.Named("display_name", p.DisplayName),
		sql.Named("age", p.Age),
		sql.Named("weight_kg", p.WeightKg),
		sql.Named("height_cm", p.HeightCm),
		sql.Named("gender", string(p.Gender)),
		sql.Named("activity_level", string(p.ActivityLevel)),
		sql.Named("goal", string(p.Goal)),
		sql.Named("id", userID),
	); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Delete removes the user. Foreign keys cascade to every per-user table.
func (r *sqliteProfileRepository) Delete(ctx context.Context) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	res, err := r.db.ReadWrite.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Create inserts a user that has no passkey, e.g. a demo account, and returns its ID.
func (r *sqliteProfileRepository) Create(ctx context.Context, handle []byte, p Profile) (int, error) {
	var id int
	err := r.db.ReadWrite.QueryRowContext(ctx, `INSERT INTO users
    (webauthn_user_id, display_name, age, weight_kg, height_cm, gender, activity_level, goal, community_points)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`,
		handle, p.DisplayName, p.Age, p.WeightKg, p.HeightCm, string(p.Gender), string(p.ActivityLevel),
		string(p.Goal), p.CommunityPoints,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}
