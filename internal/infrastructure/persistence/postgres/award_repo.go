package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/codequest-hub/gamification-engine/internal/domain/badge"
	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AwardRepository persists badge-award records and allocates serial
// numbers for limited-edition badges.
type AwardRepository struct {
	conn *Connection
}

// NewAwardRepository creates a new AwardRepository.
func NewAwardRepository(conn *Connection) *AwardRepository {
	return &AwardRepository{conn: conn}
}

// Save inserts a badge award. A duplicate (user, badge) pair returns
// shared.ErrAlreadyExists wrapped in a domain error.
func (r *AwardRepository) Save(ctx context.Context, userID shared.UserID, award *badge.Award) error {
	query := `
		INSERT INTO badge_awards (
			id, user_id, badge_name, category, rarity, rarity_score,
			verification_status, awarded_at, expires_at, edition_serial, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	metaJSON, err := json.Marshal(metadataToMap(award.Metadata))
	if err != nil {
		return fmt.Errorf("failed to marshal award metadata: %w", err)
	}

	var editionSerial *int
	if award.EditionSerial > 0 {
		editionSerial = &award.EditionSerial
	}

	_, err = r.conn.Exec(ctx, query,
		award.ID,
		userID.String(),
		award.BadgeName,
		string(award.Category),
		award.Rarity.String(),
		award.RarityScore,
		string(award.VerificationStatus),
		award.AwardedAt,
		award.ExpiresAt,
		editionSerial,
		metaJSON,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("badge", "Save", shared.ErrAlreadyExists,
				"user already holds badge "+award.BadgeName, err)
		}
		return fmt.Errorf("failed to save badge award: %w", err)
	}
	return nil
}

// UpdateVerification records the ledger's settled verification status.
func (r *AwardRepository) UpdateVerification(ctx context.Context, awardID string, status badge.VerificationStatus) error {
	query := `UPDATE badge_awards SET verification_status = $1 WHERE id = $2`

	tag, err := r.conn.Exec(ctx, query, string(status), awardID)
	if err != nil {
		return fmt.Errorf("failed to update verification status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.WrapError("badge", "UpdateVerification", shared.ErrNotFound,
			"award "+awardID+" not found", nil)
	}
	return nil
}

// AwardRecord is the stored shape of an award, as read back from the
// history table.
type AwardRecord struct {
	ID                 string
	UserID             shared.UserID
	BadgeName          string
	Category           badge.Category
	Rarity             badge.RarityTier
	RarityScore        int
	VerificationStatus badge.VerificationStatus
	AwardedAt          time.Time
	ExpiresAt          *time.Time
	EditionSerial      *int
}

// ListByUser returns a user's awards, most recent first.
func (r *AwardRepository) ListByUser(ctx context.Context, userID shared.UserID, limit int) ([]AwardRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, badge_name, category, rarity, rarity_score,
			   verification_status, awarded_at, expires_at, edition_serial
		FROM badge_awards
		WHERE user_id = $1
		ORDER BY awarded_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list badge awards: %w", err)
	}
	defer rows.Close()

	var records []AwardRecord
	for rows.Next() {
		rec, err := scanAwardRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate badge awards: %w", err)
	}
	return records, nil
}

// HasBadge reports whether the user already holds the named badge.
func (r *AwardRepository) HasBadge(ctx context.Context, userID shared.UserID, badgeName string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM badge_awards WHERE user_id = $1 AND badge_name = $2)`

	var exists bool
	if err := r.conn.QueryRow(ctx, query, userID.String(), badgeName).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check badge ownership: %w", err)
	}
	return exists, nil
}

// CountByBadge returns how many awards exist per badge name.
func (r *AwardRepository) CountByBadge(ctx context.Context, badgeName string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM badge_awards WHERE badge_name = $1`, badgeName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count badge awards: %w", err)
	}
	return count, nil
}

// ListPending returns awards still awaiting ledger verification, oldest
// first. Backed by the partial index on verification_status.
func (r *AwardRepository) ListPending(ctx context.Context, limit int) ([]AwardRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.conn.Query(ctx, `
		SELECT id, user_id, badge_name, category, rarity, rarity_score,
		       verification_status, awarded_at, expires_at, edition_serial
		FROM badge_awards
		WHERE verification_status = 'pending'
		ORDER BY awarded_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending awards: %w", err)
	}
	defer rows.Close()

	var records []AwardRecord
	for rows.Next() {
		rec, err := scanAwardRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// NextEditionSerial allocates the next serial for a limited-edition
// badge. Returns shared.ErrValueOutOfRange once the edition is sold out.
// The row update is atomic, so concurrent allocations never collide.
func (r *AwardRepository) NextEditionSerial(ctx context.Context, badgeName string, editionTotal int) (int, error) {
	var serial int

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO badge_editions (badge_name, edition_total)
			VALUES ($1, $2)
			ON CONFLICT (badge_name) DO NOTHING
		`, badgeName, editionTotal)
		if err != nil {
			return fmt.Errorf("failed to seed badge edition: %w", err)
		}

		row := tx.QueryRow(ctx, `
			UPDATE badge_editions
			SET next_serial = next_serial + 1
			WHERE badge_name = $1 AND next_serial <= edition_total
			RETURNING next_serial - 1
		`, badgeName)
		if err := row.Scan(&serial); err != nil {
			if IsNoRows(err) {
				return shared.WrapError("badge", "NextEditionSerial", shared.ErrValueOutOfRange,
					"edition sold out for badge "+badgeName, nil)
			}
			return fmt.Errorf("failed to allocate edition serial: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return serial, nil
}

func scanAwardRecord(rows pgx.Rows) (AwardRecord, error) {
	var (
		rec      AwardRecord
		userID   string
		category string
		rarity   string
		status   string
	)
	err := rows.Scan(&rec.ID, &userID, &rec.BadgeName, &category, &rarity,
		&rec.RarityScore, &status, &rec.AwardedAt, &rec.ExpiresAt, &rec.EditionSerial)
	if err != nil {
		return AwardRecord{}, fmt.Errorf("failed to scan award row: %w", err)
	}
	rec.UserID = shared.UserID(userID)
	rec.Category = badge.Category(category)
	rec.Rarity = badge.RarityTier(rarity)
	rec.VerificationStatus = badge.VerificationStatus(status)
	return rec, nil
}

func metadataToMap(m badge.AwardMetadata) map[string]interface{} {
	skills := make([]string, 0, len(m.ValidatedSkills))
	for _, s := range m.ValidatedSkills {
		skills = append(skills, s.String())
	}

	criteria := make([]map[string]interface{}, 0, len(m.ValidationCriteria))
	for _, c := range m.ValidationCriteria {
		criteria = append(criteria, map[string]interface{}{
			"name":     c.Name,
			"observed": c.Observed,
			"required": c.Required,
			"passed":   c.Passed,
		})
	}

	return map[string]interface{}{
		"validated_skills":   skills,
		"code_quality_score": m.CodeQualityScore,
		"difficulty_level":   string(m.DifficultyLevel),
		"criteria":           criteria,
	}
}
