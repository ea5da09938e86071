// Package http implements the REST API for the gamification engine.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/codequest-hub/gamification-engine/internal/application/query"
	"github.com/codequest-hub/gamification-engine/internal/application/reward"
	"github.com/codequest-hub/gamification-engine/internal/domain/badge"
	"github.com/codequest-hub/gamification-engine/internal/domain/difficulty"
	"github.com/codequest-hub/gamification-engine/internal/domain/points"
	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Gamification Engine API",
		"version":     "v1",
		"description": "Scoring, badge awards, and rankings for coding activity",
		"endpoints": map[string]string{
			"health":      "/health",
			"events":      "/api/v1/events",
			"leaderboard": "/api/v1/leaderboard",
			"progress":    "/api/v1/users/{id}/progress",
			"badges":      "/api/v1/badges",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleMetrics serves the Prometheus metrics exposition.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT INGESTION
// ══════════════════════════════════════════════════════════════════════════════

// ingestEventRequest is the wire form of a reward event. Only the
// payload block matching the kind needs to be present.
type ingestEventRequest struct {
	EventID    string    `json:"event_id"`
	Kind       string    `json:"kind"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`

	Analysis *struct {
		QualityScore       float64  `json:"quality_score"`
		EfficiencyScore    float64  `json:"efficiency_score"`
		CreativityScore    float64  `json:"creativity_score"`
		BestPracticesScore float64  `json:"best_practices_score"`
		DetectedSkills     []string `json:"detected_skills"`
		Suggestions        []string `json:"suggestions"`
	} `json:"analysis,omitempty"`

	Tier string `json:"tier,omitempty"`

	Challenge *struct {
		ID           string   `json:"id"`
		Title        string   `json:"title"`
		Tier         string   `json:"tier"`
		TimeLimitSec int      `json:"time_limit_seconds"`
		Skills       []string `json:"skills"`
	} `json:"challenge,omitempty"`

	Submission *struct {
		ID     string  `json:"id"`
		Score  float64 `json:"score"`
		Passed bool    `json:"passed"`
	} `json:"submission,omitempty"`

	Timing *struct {
		SubmissionTimeSec  int `json:"submission_time_seconds"`
		SessionDurationSec int `json:"session_duration_seconds"`
		StreakDays         int `json:"streak_days"`
	} `json:"timing,omitempty"`

	Review *struct {
		Rating       int  `json:"rating"`
		ReviewLength int  `json:"review_length"`
		Helpfulness  int  `json:"helpfulness"`
		FirstReview  bool `json:"first_review"`
	} `json:"review,omitempty"`

	PeerReviewScore *float64 `json:"peer_review_score,omitempty"`

	Contribution *struct {
		Kind     string `json:"kind"`
		Impact   string `json:"impact"`
		Votes    int    `json:"votes"`
		Accepted bool   `json:"accepted"`
	} `json:"contribution,omitempty"`
}

// toEvent maps the wire form onto the application event.
func (req *ingestEventRequest) toEvent() *reward.Event {
	event := &reward.Event{
		ID:         req.EventID,
		Kind:       reward.EventKind(req.Kind),
		UserID:     shared.UserID(req.UserID),
		OccurredAt: req.OccurredAt,
		Tier:       difficulty.Tier(req.Tier),
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	if req.Analysis != nil {
		skills := make([]shared.SkillID, len(req.Analysis.DetectedSkills))
		for i, s := range req.Analysis.DetectedSkills {
			skills[i] = shared.SkillID(s)
		}
		event.Analysis = &shared.CodeAnalysis{
			QualityScore:       req.Analysis.QualityScore,
			EfficiencyScore:    req.Analysis.EfficiencyScore,
			CreativityScore:    req.Analysis.CreativityScore,
			BestPracticesScore: req.Analysis.BestPracticesScore,
			DetectedSkills:     skills,
			Suggestions:        req.Analysis.Suggestions,
		}
	}

	if req.Challenge != nil {
		skills := make([]shared.SkillID, len(req.Challenge.Skills))
		for i, s := range req.Challenge.Skills {
			skills[i] = shared.SkillID(s)
		}
		event.Challenge = &badge.Challenge{
			ID:        req.Challenge.ID,
			Title:     req.Challenge.Title,
			Tier:      difficulty.Tier(req.Challenge.Tier),
			TimeLimit: time.Duration(req.Challenge.TimeLimitSec) * time.Second,
			Skills:    skills,
		}
	}

	if req.Submission != nil {
		event.Submission = &badge.Submission{
			ID:     req.Submission.ID,
			Score:  req.Submission.Score,
			Passed: req.Submission.Passed,
		}
	}

	if req.Timing != nil {
		event.Timing = &badge.Timing{
			SubmissionTime:  time.Duration(req.Timing.SubmissionTimeSec) * time.Second,
			SessionDuration: time.Duration(req.Timing.SessionDurationSec) * time.Second,
			StreakDays:      req.Timing.StreakDays,
		}
	}

	if req.Review != nil {
		event.Review = &points.PeerReviewInput{
			Rating:       req.Review.Rating,
			ReviewLength: req.Review.ReviewLength,
			Helpfulness:  req.Review.Helpfulness,
			FirstReview:  req.Review.FirstReview,
		}
	}

	event.PeerReviewScore = req.PeerReviewScore

	if req.Contribution != nil {
		event.Contribution = &points.CommunityContributionInput{
			Kind:     points.ContributionKind(req.Contribution.Kind),
			Impact:   points.ImpactLevel(req.Contribution.Impact),
			Votes:    req.Contribution.Votes,
			Accepted: req.Contribution.Accepted,
		}
	}

	return event
}

// rewardResultDTO is the wire form of a processed reward.
type rewardResultDTO struct {
	EventID        string                 `json:"event_id"`
	UserID         string                 `json:"user_id"`
	PointsAwarded  int                    `json:"points_awarded"`
	NewTotalPoints int                    `json:"new_total_points"`
	Breakdown      []breakdownLineDTO     `json:"breakdown"`
	Badges         []rewardBadgeDTO       `json:"badges"`
	Achievements   []rewardAchievementDTO `json:"achievements"`
	RankBefore     int64                  `json:"rank_before,omitempty"`
	RankAfter      int64                  `json:"rank_after,omitempty"`
	RankDelta      int64                  `json:"rank_delta"`
	ProcessedAt    time.Time              `json:"processed_at"`
}

type breakdownLineDTO struct {
	Category    string  `json:"category"`
	Points      int     `json:"points"`
	Description string  `json:"description"`
	Multiplier  float64 `json:"multiplier,omitempty"`
}

type rewardBadgeDTO struct {
	ID                 string `json:"id"`
	BadgeName          string `json:"badge_name"`
	Category           string `json:"category"`
	Rarity             string `json:"rarity"`
	RarityScore        int    `json:"rarity_score"`
	VerificationStatus string `json:"verification_status"`
	EditionSerial      int    `json:"edition_serial,omitempty"`
	EditionTotal       int    `json:"edition_total,omitempty"`
}

type rewardAchievementDTO struct {
	AchievementID string  `json:"achievement_id"`
	Current       int     `json:"current"`
	Target        int     `json:"target"`
	Percent       float64 `json:"percent"`
	Completed     bool    `json:"completed"`
}

// handleIngestEvent accepts one activity event and runs the reward flow.
func (s *Server) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid API key")
		return
	}
	if s.deps.Orchestrator == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "not_configured", "Reward processing is not enabled")
		return
	}

	var req ingestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON")
		return
	}

	result, err := s.deps.Orchestrator.Process(r.Context(), req.toEvent())
	if err != nil {
		s.writeProcessError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResultDTO(result))
}

// writeProcessError maps domain error kinds onto HTTP statuses. The
// domain message goes into the details field so the client sees which
// check failed without the internal Domain/Op prefix.
func (s *Server) writeProcessError(w http.ResponseWriter, err error) {
	var derr *shared.DomainError
	details := ""
	if errors.As(err, &derr) {
		details = derr.Message
	}

	switch {
	case shared.IsValidation(err):
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_event", "Event failed validation", details)
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "user_not_found", "No progress recorded for this user")
	default:
		writeJSONErrorWithDetails(w, http.StatusInternalServerError, "processing_failed", "Reward processing failed", details)
	}
}

// toResultDTO converts the orchestrator result into its wire form.
func toResultDTO(result *reward.Result) rewardResultDTO {
	dto := rewardResultDTO{
		EventID:        result.EventID,
		UserID:         string(result.UserID),
		PointsAwarded:  result.TotalAwarded,
		NewTotalPoints: result.NewTotalPoints.Int(),
		Breakdown:      []breakdownLineDTO{},
		Badges:         []rewardBadgeDTO{},
		Achievements:   []rewardAchievementDTO{},
		RankBefore:     result.RankBefore,
		RankAfter:      result.RankAfter,
		RankDelta:      result.RankDelta,
		ProcessedAt:    result.ProcessedAt,
	}

	if result.Points != nil {
		for _, line := range result.Points.Breakdown {
			dto.Breakdown = append(dto.Breakdown, breakdownLineDTO{
				Category:    line.Category,
				Points:      line.Points,
				Description: line.Description,
				Multiplier:  line.Multiplier,
			})
		}
	}

	for _, award := range result.Badges {
		dto.Badges = append(dto.Badges, rewardBadgeDTO{
			ID:                 award.ID,
			BadgeName:          award.BadgeName,
			Category:           string(award.Category),
			Rarity:             award.Rarity.String(),
			RarityScore:        award.RarityScore,
			VerificationStatus: string(award.VerificationStatus),
			EditionSerial:      award.EditionSerial,
			EditionTotal:       award.EditionTotal,
		})
	}

	for _, a := range result.Achievements {
		dto.Achievements = append(dto.Achievements, rewardAchievementDTO{
			AchievementID: a.AchievementID,
			Current:       a.CurrentValue,
			Target:        a.TargetValue,
			Percent:       a.Percentage,
			Completed:     a.IsCompleted,
		})
	}

	return dto
}

// ══════════════════════════════════════════════════════════════════════════════
// READ API
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard serves the global leaderboard.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.handleLeaderboardInternal(w, r, "")
}

// handleGetLeaderboardByCohort serves a cohort leaderboard.
func (s *Server) handleGetLeaderboardByCohort(w http.ResponseWriter, r *http.Request) {
	s.handleLeaderboardInternal(w, r, r.PathValue("cohort"))
}

func (s *Server) handleLeaderboardInternal(w http.ResponseWriter, r *http.Request, cohort string) {
	if s.deps.GetLeaderboardHandler == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "not_configured", "Leaderboard is not enabled")
		return
	}

	q := query.GetLeaderboardQuery{
		Cohort: cohort,
		Limit:  getQueryParamInt(r, "limit", 20),
		Offset: getQueryParamInt(r, "offset", 0),
	}

	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), q)
	if err != nil {
		if shared.IsValidation(err) {
			writeJSONError(w, http.StatusBadRequest, "invalid_query", err.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "leaderboard_failed", "Failed to load leaderboard")
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{
		TotalCount: result.TotalCount,
		Page:       result.Page,
		PageSize:   result.PageSize,
		HasMore:    result.HasMore,
	})
}

// handleGetUserProgress serves a user's gamification profile.
func (s *Server) handleGetUserProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetUserProgressHandler == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "not_configured", "Progress queries are not enabled")
		return
	}

	q := query.GetUserProgressQuery{
		UserID:     r.PathValue("id"),
		BadgeLimit: getQueryParamInt(r, "badge_limit", 20),
	}

	result, err := s.deps.GetUserProgressHandler.Handle(r.Context(), q)
	if err != nil {
		switch {
		case shared.IsValidation(err):
			writeJSONError(w, http.StatusBadRequest, "invalid_query", err.Error())
		case shared.IsNotFound(err):
			writeJSONError(w, http.StatusNotFound, "user_not_found", "No progress recorded for this user")
		default:
			writeJSONError(w, http.StatusInternalServerError, "progress_failed", "Failed to load user progress")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetCatalog lists the loaded badge catalog.
func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "not_configured", "Badge catalog is not loaded")
		return
	}

	type catalogEntryDTO struct {
		Name     string `json:"name"`
		Category string `json:"category"`
		Rarity   string `json:"rarity"`
		Awarded  *int   `json:"awarded,omitempty"`
	}

	names := s.deps.Catalog.Names()
	entries := make([]catalogEntryDTO, 0, len(names))
	for _, name := range names {
		def, ok := s.deps.Catalog.Lookup(name)
		if !ok {
			continue
		}
		entry := catalogEntryDTO{
			Name:     def.Name,
			Category: string(def.Category),
			Rarity:   def.Rarity.String(),
		}
		if s.deps.AwardCounts != nil {
			if n, err := s.deps.AwardCounts.CountByBadge(r.Context(), def.Name); err == nil {
				entry.Awarded = &n
			}
		}
		entries = append(entries, entry)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"badges": entries,
		"count":  len(entries),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH
// ══════════════════════════════════════════════════════════════════════════════

// authorize checks the API key header on write endpoints. An empty key
// list disables authentication (development mode).
func (s *Server) authorize(r *http.Request) bool {
	if len(s.config.APIKeys) == 0 {
		return true
	}

	provided := r.Header.Get(s.config.APIKeyHeader)
	if provided == "" {
		return false
	}
	for _, key := range s.config.APIKeys {
		if key == provided {
			return true
		}
	}
	return false
}
