package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressStore implements progress.Store for PostgreSQL. The point
// total is incremented in SQL, so concurrent reward events for the same
// user serialize on the row instead of losing updates.
type ProgressStore struct {
	conn *Connection
}

// NewProgressStore creates a new ProgressStore.
func NewProgressStore(conn *Connection) *ProgressStore {
	return &ProgressStore{conn: conn}
}

// Get returns the progress snapshot for a user.
func (s *ProgressStore) Get(ctx context.Context, userID shared.UserID) (*shared.UserProgress, error) {
	query := `
		SELECT user_id, total_points, streak_days, cohort, updated_at
		FROM user_progress
		WHERE user_id = $1
	`

	p := &shared.UserProgress{Skills: make(map[shared.SkillID]shared.SkillLevel)}
	var (
		id     string
		points int
	)
	row := s.conn.QueryRow(ctx, query, userID.String())
	if err := row.Scan(&id, &points, &p.StreakDays, &p.Cohort, &p.UpdatedAt); err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserProgressNotFound
		}
		return nil, fmt.Errorf("failed to load user progress: %w", err)
	}
	p.UserID = shared.UserID(id)
	p.TotalPoints = shared.Points(points)

	if err := s.loadSkills(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update applies a delta inside one transaction and returns the updated
// snapshot read back from the same transaction.
func (s *ProgressStore) Update(ctx context.Context, userID shared.UserID, delta shared.ProgressDelta) (*shared.UserProgress, error) {
	var updated *shared.UserProgress

	err := s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		// Atomic increment on the row itself. Streak is overwritten only
		// when the delta carries a non-negative value.
		query := `
			UPDATE user_progress
			SET total_points = total_points + $1,
			    streak_days = CASE WHEN $2 >= 0 THEN $2 ELSE streak_days END,
			    updated_at = NOW()
			WHERE user_id = $3
			RETURNING user_id, total_points, streak_days, cohort, updated_at
		`

		p := &shared.UserProgress{Skills: make(map[shared.SkillID]shared.SkillLevel)}
		var (
			id     string
			points int
		)
		row := tx.QueryRow(ctx, query, delta.PointsDelta.Int(), delta.StreakDays, userID.String())
		if err := row.Scan(&id, &points, &p.StreakDays, &p.Cohort, &p.UpdatedAt); err != nil {
			if IsNoRows(err) {
				return shared.ErrUserProgressNotFound
			}
			return fmt.Errorf("failed to update user progress: %w", err)
		}
		p.UserID = shared.UserID(id)
		p.TotalPoints = shared.Points(points)

		for skill, xp := range delta.SkillExperience {
			if err := s.upsertSkill(ctx, tx, userID, skill, xp); err != nil {
				return err
			}
		}

		rows, err := tx.Query(ctx,
			`SELECT skill_id, level, experience_points FROM user_skills WHERE user_id = $1`,
			userID.String())
		if err != nil {
			return fmt.Errorf("failed to load user skills: %w", err)
		}
		if err := scanSkills(rows, p); err != nil {
			return err
		}

		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CreateUser inserts an empty progress record. Existing records are left
// untouched.
func (s *ProgressStore) CreateUser(ctx context.Context, userID shared.UserID, cohort string) error {
	query := `
		INSERT INTO user_progress (user_id, cohort)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := s.conn.Exec(ctx, query, userID.String(), cohort); err != nil {
		return fmt.Errorf("failed to create user progress: %w", err)
	}
	return nil
}

// UserTotal is one row of the rank-rebuild read: a user's current point
// total and cohort.
type UserTotal struct {
	UserID      shared.UserID
	Cohort      string
	TotalPoints int
}

// ListTotals returns every user's point total, for rebuilding the rank
// cache from the system of record.
func (s *ProgressStore) ListTotals(ctx context.Context) ([]UserTotal, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT user_id, cohort, total_points FROM user_progress`)
	if err != nil {
		return nil, fmt.Errorf("failed to list point totals: %w", err)
	}
	defer rows.Close()

	var totals []UserTotal
	for rows.Next() {
		var t UserTotal
		var userID string
		if err := rows.Scan(&userID, &t.Cohort, &t.TotalPoints); err != nil {
			return nil, fmt.Errorf("failed to scan point total: %w", err)
		}
		t.UserID = shared.UserID(userID)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// RecordHistory appends a points-history row for auditing.
func (s *ProgressStore) RecordHistory(ctx context.Context, userID shared.UserID, eventID, eventKind string, delta, newTotal int) error {
	query := `
		INSERT INTO points_history (user_id, event_id, event_kind, delta, new_total)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := s.conn.Exec(ctx, query, userID.String(), eventID, eventKind, delta, newTotal); err != nil {
		return fmt.Errorf("failed to record points history: %w", err)
	}
	return nil
}

func (s *ProgressStore) upsertSkill(ctx context.Context, tx pgx.Tx, userID shared.UserID, skill shared.SkillID, xp int) error {
	query := `
		INSERT INTO user_skills (user_id, skill_id, level, experience_points, updated_at)
		VALUES ($1, $2, 1, $3, NOW())
		ON CONFLICT (user_id, skill_id) DO UPDATE
		SET experience_points = user_skills.experience_points + EXCLUDED.experience_points,
		    updated_at = NOW()
	`

	if _, err := tx.Exec(ctx, query, userID.String(), skill.String(), xp); err != nil {
		return fmt.Errorf("failed to upsert skill %s: %w", skill, err)
	}
	return nil
}

func (s *ProgressStore) loadSkills(ctx context.Context, p *shared.UserProgress) error {
	rows, err := s.conn.Query(ctx,
		`SELECT skill_id, level, experience_points FROM user_skills WHERE user_id = $1`,
		p.UserID.String())
	if err != nil {
		return fmt.Errorf("failed to load user skills: %w", err)
	}
	return scanSkills(rows, p)
}

func scanSkills(rows pgx.Rows, p *shared.UserProgress) error {
	defer rows.Close()

	for rows.Next() {
		var (
			skillID string
			level   shared.SkillLevel
		)
		if err := rows.Scan(&skillID, &level.Level, &level.ExperiencePoints); err != nil {
			return fmt.Errorf("failed to scan skill row: %w", err)
		}
		p.Skills[shared.SkillID(skillID)] = level
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate skill rows: %w", err)
	}
	return nil
}
