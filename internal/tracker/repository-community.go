package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/myrjola/fitplan/internal/contexthelpers"
)

type sqliteCommunityRepository struct {
	baseRepository
}

// Leaderboard ranks users by community points. Ties share the rank.
func (r *sqliteCommunityRepository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	rows, err := r.db.ReadOnly.QueryContext(ctx, `SELECT RANK() OVER (ORDER BY community_points DESC),
       display_name,
       community_points,
       id = ?
FROM users
ORDER BY community_points DESC, id
LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer r.closeRows(ctx, rows)

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err = rows.Scan(&e.Rank, &e.DisplayName, &e.Points, &e.IsCurrentUser); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}

// ListActive returns the challenges that end on day or later, newest start first.
func (r *sqliteCommunityRepository) ListActive(ctx context.Context, day time.Time) ([]Challenge, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	rows, err := r.db.ReadOnly.QueryContext(ctx, `SELECT c.id,
       c.title,
       c.description_markdown,
       c.starts_on,
       c.ends_on,
       COALESCE(u.display_name, ''),
       (SELECT COUNT(*) FROM challenge_participants cp WHERE cp.challenge_id = c.id),
       EXISTS (SELECT 1 FROM challenge_participants cp WHERE cp.challenge_id = c.id AND cp.user_id = :user_id)
FROM challenges c
         LEFT JOIN users u ON u.id = c.creator_id
WHERE c.ends_on >= :day
ORDER BY c.starts_on DESC, c.id DESC`, sql.Named("user_id", userID), sql.Named("day", formatDate(day)))
	if err != nil {
		return nil, fmt.Errorf("query challenges: %w", err)
	}
	defer r.closeRows(ctx, rows)

	var challenges []Challenge
	for rows.Next() {
		var (
			c                Challenge
			startsOn, endsOn string
		)
		if err = rows.Scan(&c.ID, &c.Title, &c.DescriptionMarkdown, &startsOn, &endsOn, &c.CreatedBy,
			&c.Participants, &c.Joined); err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		if c.StartsOn, err = parseDate(startsOn); err != nil {
			return nil, err
		}
		if c.EndsOn, err = parseDate(endsOn); err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return challenges, nil
}

// Create inserts the challenge with the authenticated user as its first participant.
func (r *sqliteCommunityRepository) Create(ctx context.Context, in ChallengeInput) (int, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer r.rollback(ctx, tx)

	var id int
	if err = tx.QueryRowContext(ctx, `INSERT INTO challenges (creator_id, title, description_markdown, starts_on, ends_on)
VALUES (?, ?, ?, ?, ?)
RETURNING id`, userID, in.Title, in.DescriptionMarkdown, formatDate(in.StartsOn), formatDate(in.EndsOn)).
		Scan(&id); err != nil {
		return 0, fmt.Errorf("insert challenge: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO challenge_participants (challenge_id, user_id) VALUES (?, ?)`,
		id, userID); err != nil {
		return 0, fmt.Errorf("join created challenge: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Join adds the authenticated user to the challenge. Joining twice is a no-op.
func (r *sqliteCommunityRepository) Join(ctx context.Context, challengeID int) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	var exists bool
	err := r.db.ReadOnly.QueryRowContext(ctx, `SELECT 1 FROM challenges WHERE id = ?`, challengeID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query challenge: %w", err)
	}
	if _, err = r.db.ReadWrite.ExecContext(ctx, `INSERT INTO challenge_participants (challenge_id, user_id)
VALUES (?, ?)
ON CONFLICT DO NOTHING`, challengeID, userID); err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}
