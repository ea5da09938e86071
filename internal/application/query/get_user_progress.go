package query

import (
	"context"
	"errors"
	"time"

	"github.com/codequest-hub/gamification-engine/internal/domain/progress"
	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/persistence/postgres"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/persistence/redis"
	"github.com/codequest-hub/gamification-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER PROGRESS QUERY
// Returns a user's full gamification profile: points, skills, streak,
// badge history, and rank position.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserProgressQuery contains user progress request parameters.
type GetUserProgressQuery struct {
	// UserID identifies the user (required).
	UserID string

	// BadgeLimit caps the number of returned awards (default 20, max 100).
	BadgeLimit int
}

// Validate checks query parameters and applies defaults.
func (q *GetUserProgressQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	if q.BadgeLimit < 0 {
		return errors.New("badge limit cannot be negative")
	}
	if q.BadgeLimit == 0 {
		q.BadgeLimit = 20
	}
	if q.BadgeLimit > 100 {
		q.BadgeLimit = 100
	}
	return nil
}

// SkillDTO is a user's standing in one skill.
type SkillDTO struct {
	SkillID          string `json:"skill_id"`
	Level            int    `json:"level"`
	ExperiencePoints int    `json:"experience_points"`
}

// AwardDTO is one badge award in the user's history.
type AwardDTO struct {
	ID                 string     `json:"id"`
	BadgeName          string     `json:"badge_name"`
	Category           string     `json:"category"`
	Rarity             string     `json:"rarity"`
	RarityScore        int        `json:"rarity_score"`
	VerificationStatus string     `json:"verification_status"`
	AwardedAt          time.Time  `json:"awarded_at"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	EditionSerial      *int       `json:"edition_serial,omitempty"`
}

// GetUserProgressResult contains the user progress query result.
type GetUserProgressResult struct {
	UserID      string     `json:"user_id"`
	TotalPoints int        `json:"total_points"`
	Cohort      string     `json:"cohort,omitempty"`
	Skills      []SkillDTO `json:"skills"`

	// StreakDays is the consecutive-activity streak.
	StreakDays int `json:"streak_days"`

	// StreakActiveToday reports whether the streak was already extended
	// on the current UTC day.
	StreakActiveToday bool `json:"streak_active_today"`

	// Badges are the user's most recent awards.
	Badges []AwardDTO `json:"badges"`

	// Rank is the user's global rank position (0 = not ranked).
	Rank int64 `json:"rank"`

	// CohortRank is the rank within the user's cohort (0 = not ranked).
	CohortRank int64 `json:"cohort_rank,omitempty"`

	// GeneratedAt is when the result was produced.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetUserProgressHandler serves user profile queries.
type GetUserProgressHandler struct {
	store  progress.Store
	awards *postgres.AwardRepository
	ranks  *redis.RankCache
}

// NewGetUserProgressHandler creates a new user progress query handler.
// The awards repository and rank cache are optional: when nil the
// corresponding sections of the result stay empty.
func NewGetUserProgressHandler(
	store progress.Store,
	awards *postgres.AwardRepository,
	ranks *redis.RankCache,
) *GetUserProgressHandler {
	return &GetUserProgressHandler{
		store:  store,
		awards: awards,
		ranks:  ranks,
	}
}

// Handle executes the user progress query.
func (h *GetUserProgressHandler) Handle(ctx context.Context, query GetUserProgressQuery) (*GetUserProgressResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetUserProgress", shared.ErrValidation, err.Error(), err)
	}

	userID := shared.UserID(query.UserID)

	state, err := h.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &GetUserProgressResult{
		UserID:            string(state.UserID),
		TotalPoints:       state.TotalPoints.Int(),
		Cohort:            state.Cohort,
		Skills:            h.skillDTOs(state),
		StreakDays:        state.StreakDays,
		StreakActiveToday: state.StreakDays > 0 && timeutil.SameDay(state.UpdatedAt, time.Now()),
		Badges:            []AwardDTO{},
		GeneratedAt:       time.Now().UTC(),
	}

	h.attachBadges(ctx, userID, query.BadgeLimit, result)
	h.attachRanks(ctx, userID, state.Cohort, result)

	return result, nil
}

// skillDTOs converts the skill map into a response slice.
func (h *GetUserProgressHandler) skillDTOs(state *shared.UserProgress) []SkillDTO {
	dtos := make([]SkillDTO, 0, len(state.Skills))
	for id, s := range state.Skills {
		dtos = append(dtos, SkillDTO{
			SkillID:          string(id),
			Level:            s.Level,
			ExperiencePoints: s.ExperiencePoints,
		})
	}
	return dtos
}

// attachBadges adds award history. Failures are not fatal to the query.
func (h *GetUserProgressHandler) attachBadges(ctx context.Context, userID shared.UserID, limit int, result *GetUserProgressResult) {
	if h.awards == nil {
		return
	}

	records, err := h.awards.ListByUser(ctx, userID, limit)
	if err != nil {
		return
	}

	for _, rec := range records {
		result.Badges = append(result.Badges, AwardDTO{
			ID:                 rec.ID,
			BadgeName:          rec.BadgeName,
			Category:           string(rec.Category),
			Rarity:             rec.Rarity.String(),
			RarityScore:        rec.RarityScore,
			VerificationStatus: string(rec.VerificationStatus),
			AwardedAt:          rec.AwardedAt,
			ExpiresAt:          rec.ExpiresAt,
			EditionSerial:      rec.EditionSerial,
		})
	}
}

// attachRanks adds global and cohort rank positions. Failures are not
// fatal to the query.
func (h *GetUserProgressHandler) attachRanks(ctx context.Context, userID shared.UserID, cohort string, result *GetUserProgressResult) {
	if h.ranks == nil {
		return
	}

	if rank, err := h.ranks.RankOf(ctx, "", userID); err == nil {
		result.Rank = rank
	}
	if cohort != "" {
		if rank, err := h.ranks.RankOf(ctx, cohort, userID); err == nil {
			result.CohortRank = rank
		}
	}
}
