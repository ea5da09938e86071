// Package reward contains the reward orchestration flow: the top-level
// business process that turns a single learner-activity event into a
// points award, badge awards, achievement progress, and a rank delta.
package reward

import (
	"context"
	"errors"
	"time"

	"github.com/codequest-hub/gamification-engine/internal/domain/badge"
	"github.com/codequest-hub/gamification-engine/internal/domain/difficulty"
	"github.com/codequest-hub/gamification-engine/internal/domain/points"
	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// EventKind enumerates the four reward-bearing activity kinds.
type EventKind string

const (
	EventCodeAnalysis          EventKind = "code_analysis"
	EventChallengeCompletion   EventKind = "challenge_completion"
	EventPeerReview            EventKind = "peer_review"
	EventCommunityContribution EventKind = "community_contribution"
)

// IsValid checks membership in the event-kind enumeration.
func (k EventKind) IsValid() bool {
	switch k {
	case EventCodeAnalysis, EventChallengeCompletion, EventPeerReview, EventCommunityContribution:
		return true
	default:
		return false
	}
}

// Event is a single learner-activity event to reward. Only the payload
// fields matching the kind are consulted; the rest stay nil.
type Event struct {
	// ID correlates the event through logs and published domain events.
	ID string

	// Kind selects the reward path.
	Kind EventKind

	// UserID is the learner being rewarded.
	UserID shared.UserID

	// OccurredAt anchors time-window badge criteria. Zero means "now".
	OccurredAt time.Time

	// Analysis is the AI analysis (code analysis events; optional on
	// challenge completions).
	Analysis *shared.CodeAnalysis

	// Tier is the difficulty tier of the analyzed submission (code
	// analysis events; challenge completions take it from Challenge).
	Tier difficulty.Tier

	// Challenge and Submission describe a completed challenge.
	Challenge  *badge.Challenge
	Submission *badge.Submission

	// Timing carries optional timing signals (any kind).
	Timing *badge.Timing

	// Review describes a peer review the user gave.
	Review *points.PeerReviewInput

	// PeerReviewScore is the user's aggregate peer-review rating, used
	// by review-score badge criteria.
	PeerReviewScore *float64

	// Contribution describes a community contribution.
	Contribution *points.CommunityContributionInput
}

// Validate checks that the event is well formed for its kind.
func (e *Event) Validate() error {
	if !e.UserID.IsValid() {
		return shared.WrapError("reward", "Validate", shared.ErrInvalidInput, "event has no valid user ID", nil)
	}
	if !e.Kind.IsValid() {
		return shared.WrapError("reward", "Validate", shared.ErrInvalidInput, "unknown event kind "+string(e.Kind), nil)
	}
	switch e.Kind {
	case EventCodeAnalysis:
		if e.Analysis == nil {
			return shared.WrapError("reward", "Validate", shared.ErrInvalidInput, "code analysis event without analysis", nil)
		}
	case EventChallengeCompletion:
		if e.Challenge == nil || e.Submission == nil {
			return shared.WrapError("reward", "Validate", shared.ErrInvalidInput, "challenge event without challenge/submission pair", nil)
		}
	case EventPeerReview:
		if e.Review == nil {
			return shared.WrapError("reward", "Validate", shared.ErrInvalidInput, "peer review event without review", nil)
		}
	case EventCommunityContribution:
		if e.Contribution == nil {
			return shared.WrapError("reward", "Validate", shared.ErrInvalidInput, "community event without contribution", nil)
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RESULT
// ══════════════════════════════════════════════════════════════════════════════

// Result reports everything one reward event produced. Points and badge
// issuance are independent outcomes: a ledger failure degrades a badge
// to unverified but never claws back points.
type Result struct {
	// EventID and UserID echo the input.
	EventID string
	UserID  shared.UserID

	// Points is the event's itemized calculation.
	Points *points.Calculation

	// StreakBonus is the streak calculation, when a streak applied.
	StreakBonus *points.Calculation

	// RarityBonuses are the per-badge rarity point bonuses.
	RarityBonuses []*points.Calculation

	// TotalAwarded is the sum of all calculations above.
	TotalAwarded int

	// NewTotalPoints is the user's balance after the update.
	NewTotalPoints shared.Points

	// Badges are the newly awarded badges, ledger status settled.
	Badges []*badge.Award

	// Achievements is the recomputed progress toward point-threshold
	// achievements, using the updated totals.
	Achievements []badge.AchievementProgress

	// Rank movement across the point update (zeros when no rank
	// tracking is configured for the user's cohort).
	RankBefore int64
	RankAfter  int64
	RankDelta  int64

	// ProcessedAt is when the flow completed.
	ProcessedAt time.Time
}

// UnlockedAchievements returns only the achievements that are complete.
func (r *Result) UnlockedAchievements() []badge.AchievementProgress {
	var unlocked []badge.AchievementProgress
	for _, a := range r.Achievements {
		if a.IsCompleted {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked
}

// ══════════════════════════════════════════════════════════════════════════════
// EXTERNAL COLLABORATOR PORTS
// ══════════════════════════════════════════════════════════════════════════════

// LedgerReceipt is the credential ledger's answer to an award
// submission.
type LedgerReceipt struct {
	// Status is the verification status the ledger settled on.
	Status badge.VerificationStatus

	// TransactionRef is the ledger's external transaction reference.
	TransactionRef string
}

// CredentialLedger is the external system of record that durably
// verifies an awarded badge. The orchestrator never blocks the reward on
// this call's success.
type CredentialLedger interface {
	SubmitAward(ctx context.Context, award *badge.Award, qualityScore float64) (*LedgerReceipt, error)
}

// AwardStore is the durable badge-award history. HasBadge backs the
// newly-eligible filter so one badge is never granted twice; Save is
// the fatal persistence step; NextEditionSerial allocates serials for
// limited editions; UpdateVerification settles the ledger's answer.
type AwardStore interface {
	Save(ctx context.Context, userID shared.UserID, award *badge.Award) error
	HasBadge(ctx context.Context, userID shared.UserID, badgeName string) (bool, error)
	NextEditionSerial(ctx context.Context, badgeName string, editionTotal int) (int, error)
	UpdateVerification(ctx context.Context, awardID string, status badge.VerificationStatus) error
}

// RankTracker exposes the leaderboard positions the orchestrator needs
// for its rank-delta computation.
type RankTracker interface {
	// RankOf returns the user's 1-based rank within a cohort.
	RankOf(ctx context.Context, cohort string, userID shared.UserID) (int64, error)

	// UpdateScore records the user's new point total.
	UpdateScore(ctx context.Context, cohort string, userID shared.UserID, totalPoints int) error
}

// ErrRankUnavailable is returned by RankTracker implementations when the
// user has no recorded rank yet.
var ErrRankUnavailable = errors.New("reward: rank unavailable")

// Metrics observes the reward pipeline. Implementations must be safe
// for concurrent use.
type Metrics interface {
	EventProcessed(kind EventKind, succeeded bool, duration time.Duration)
	PointsAwarded(kind EventKind, total int)
	BadgeAwarded(tier badge.RarityTier, verified bool)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) EventProcessed(EventKind, bool, time.Duration) {}
func (NopMetrics) PointsAwarded(EventKind, int)                  {}
func (NopMetrics) BadgeAwarded(badge.RarityTier, bool)           {}
