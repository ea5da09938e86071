// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
//
// The read side goes straight to the storage adapters instead of the
// domain repositories: rankings live in Redis sorted sets and award
// history in PostgreSQL, and the queries return exactly what those
// stores hold.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Returns the top-N users of a cohort ranking, highest points first.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery contains leaderboard request parameters.
type GetLeaderboardQuery struct {
	// Cohort filters the ranking (empty string = global ranking).
	Cohort string

	// Limit is the number of entries (default 20, maximum 100).
	Limit int

	// Offset for pagination.
	Offset int
}

// Validate checks query parameters and applies defaults.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		return errors.New("offset cannot be negative")
	}
	return nil
}

// LeaderboardEntryDTO is one row of the leaderboard response.
type LeaderboardEntryDTO struct {
	// Rank is the position in the ranking (starting at 1).
	Rank int64 `json:"rank"`

	// UserID identifies the user.
	UserID string `json:"user_id"`

	// TotalPoints is the user's point balance in this ranking.
	TotalPoints int `json:"total_points"`
}

// GetLeaderboardResult contains the leaderboard query result.
type GetLeaderboardResult struct {
	// Entries are the leaderboard rows, highest points first.
	Entries []LeaderboardEntryDTO `json:"entries"`

	// TotalCount is the total number of ranked users in the cohort.
	TotalCount int `json:"total_count"`

	// Cohort the ranking was filtered by (empty = global).
	Cohort string `json:"cohort"`

	// AveragePoints over the returned page.
	AveragePoints int `json:"average_points"`

	// MedianPoints over the returned page.
	MedianPoints int `json:"median_points"`

	// GeneratedAt is when the result was produced.
	GeneratedAt time.Time `json:"generated_at"`

	// HasMore reports whether more entries exist after this page.
	HasMore bool `json:"has_more"`

	// Page is the current page (1-based).
	Page int `json:"page"`

	// PageSize is the requested page size.
	PageSize int `json:"page_size"`
}

// GetLeaderboardHandler serves leaderboard queries from the rank cache.
type GetLeaderboardHandler struct {
	ranks *redis.RankCache
}

// NewGetLeaderboardHandler creates a new leaderboard query handler.
func NewGetLeaderboardHandler(ranks *redis.RankCache) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{ranks: ranks}
}

// Handle executes the leaderboard query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrValidation, err.Error(), err)
	}
	if h.ranks == nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrServiceUnavailable,
			"rank tracking is not enabled", nil)
	}

	// The sorted set has no offset read in the cache API, so fetch the
	// page plus everything before it and slice.
	ranked, err := h.ranks.Top(ctx, query.Cohort, query.Offset+query.Limit)
	if err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrExternalService,
			"failed to read ranking", err)
	}

	page := h.paginate(ranked, query.Offset, query.Limit)

	totalCount := len(ranked)
	if n, err := h.ranks.Size(ctx, query.Cohort); err == nil {
		totalCount = int(n)
	}

	return h.buildResult(page, query, totalCount), nil
}

// paginate slices the fetched entries down to the requested page.
func (h *GetLeaderboardHandler) paginate(entries []redis.RankedUser, offset, limit int) []redis.RankedUser {
	if offset >= len(entries) {
		return []redis.RankedUser{}
	}

	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}

	return entries[offset:end]
}

// buildResult assembles the response with page statistics.
func (h *GetLeaderboardHandler) buildResult(
	entries []redis.RankedUser,
	query GetLeaderboardQuery,
	totalCount int,
) *GetLeaderboardResult {
	dtos := make([]LeaderboardEntryDTO, len(entries))
	var totalPoints int
	for i, e := range entries {
		dtos[i] = LeaderboardEntryDTO{
			Rank:        e.Rank,
			UserID:      string(e.UserID),
			TotalPoints: e.Points,
		}
		totalPoints += e.Points
	}

	avg := 0
	if len(entries) > 0 {
		avg = totalPoints / len(entries)
	}

	median := 0
	if len(entries) > 0 {
		mid := len(entries) / 2
		if len(entries)%2 == 0 && mid > 0 {
			median = (entries[mid-1].Points + entries[mid].Points) / 2
		} else {
			median = entries[mid].Points
		}
	}

	currentPage := 1
	if query.Limit > 0 {
		currentPage = (query.Offset / query.Limit) + 1
	}

	return &GetLeaderboardResult{
		Entries:       dtos,
		TotalCount:    totalCount,
		Cohort:        query.Cohort,
		AveragePoints: avg,
		MedianPoints:  median,
		GeneratedAt:   time.Now().UTC(),
		HasMore:       query.Offset+len(entries) < totalCount,
		Page:          currentPage,
		PageSize:      query.Limit,
	}
}
