// Package badge implements badge eligibility evaluation, rarity scoring,
// award materialization, and achievement progress tracking. All
// computations are pure and deterministic over immutable inputs; the
// only variability (clock, ID generation) is injected.
package badge

import (
	"strings"
	"time"

	"github.com/codequest-hub/gamification-engine/internal/domain/difficulty"
	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RARITY
// ══════════════════════════════════════════════════════════════════════════════

// RarityTier is a badge's discrete rarity band.
type RarityTier string

const (
	RarityCommon    RarityTier = "common"
	RarityUncommon  RarityTier = "uncommon"
	RarityRare      RarityTier = "rare"
	RarityEpic      RarityTier = "epic"
	RarityLegendary RarityTier = "legendary"
)

// IsValid checks membership in the rarity enumeration.
func (r RarityTier) IsValid() bool {
	switch r {
	case RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (r RarityTier) String() string {
	return string(r)
}

// BaseScore returns the declared tier's base rarity score.
func (r RarityTier) BaseScore() int {
	switch r {
	case RarityCommon:
		return 10
	case RarityUncommon:
		return 30
	case RarityRare:
		return 60
	case RarityEpic:
		return 85
	case RarityLegendary:
		return 95
	default:
		return 10
	}
}

// RarityForScore maps a numeric rarity score onto its tier. The mapping
// is monotone and uses the same bands as the base-rarity mapping, so
// bonuses can promote a badge's effective tier above its declared one.
func RarityForScore(score int) RarityTier {
	switch {
	case score >= 95:
		return RarityLegendary
	case score >= 85:
		return RarityEpic
	case score >= 60:
		return RarityRare
	case score >= 30:
		return RarityUncommon
	default:
		return RarityCommon
	}
}

// assumedPopulation is the platform-wide user count the holder
// statistics are computed against.
const assumedPopulation = 100_000

// estimatedHolders returns the expected number of holders per tier.
func estimatedHolders(r RarityTier) int {
	switch r {
	case RarityLegendary:
		return 50
	case RarityEpic:
		return 250
	case RarityRare:
		return 1_000
	case RarityUncommon:
		return 4_000
	default:
		return 10_000
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITIONS & CRITERIA
// ══════════════════════════════════════════════════════════════════════════════

// Category classifies a badge definition into one of the static catalogs.
type Category string

const (
	CategorySkill       Category = "skill"
	CategoryAchievement Category = "achievement"
	CategorySpecial     Category = "special"
	CategoryCommunity   Category = "community"
)

// IsValid checks membership in the category enumeration.
func (c Category) IsValid() bool {
	switch c {
	case CategorySkill, CategoryAchievement, CategorySpecial, CategoryCommunity:
		return true
	default:
		return false
	}
}

// TimeWindow constrains when a badge can be earned.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Criteria is the declarative requirement set attached to a badge
// definition. Every field is optional; only present fields are checked.
// Static catalog data, never mutated at runtime.
type Criteria struct {
	// MinSkillLevel requires the user's best skill to be at least this
	// level.
	MinSkillLevel *int

	// MinTotalPoints requires at least this much experience summed
	// across the user's skills.
	MinTotalPoints *int

	// MinCodeQuality requires the AI analysis quality score to reach
	// this threshold. Fails when no analysis is present.
	MinCodeQuality *float64

	// RequiredSkills must all appear in the AI analysis's detected
	// skills.
	RequiredSkills []shared.SkillID

	// RequiresChallengeCompletion requires a passing submission.
	RequiresChallengeCompletion bool

	// TimeWindow, when set, requires the evaluation to happen inside
	// the window.
	TimeWindow *TimeWindow

	// MinPeerReviewScore requires the supplied peer-review score to
	// reach this threshold.
	MinPeerReviewScore *float64
}

// Definition is a named badge in a static catalog.
type Definition struct {
	// Name uniquely identifies the badge across all catalogs.
	Name string `validate:"required"`

	// Category places the definition in its catalog.
	Category Category `validate:"required"`

	// Subcategory refines the category (e.g. "language", "milestone").
	Subcategory string

	// Description is the catalog's human-readable description.
	Description string

	// Rarity is the declared base rarity tier.
	Rarity RarityTier `validate:"required"`

	// Criteria is the requirement set.
	Criteria Criteria

	// EditionTotal, when positive, marks a limited-edition special
	// badge with that many copies.
	EditionTotal int

	// ValidFor, when positive, expires special-badge awards after this
	// duration.
	ValidFor time.Duration

	// ContributionType names the community contribution a community
	// badge recognizes.
	ContributionType string
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATION CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

// Challenge describes the challenge a submission answered.
type Challenge struct {
	ID        string
	Title     string
	Tier      difficulty.Tier
	TimeLimit time.Duration
	Skills    []shared.SkillID
}

// Submission is the user's answer to a challenge.
type Submission struct {
	ID     string
	Score  float64
	Passed bool
}

// Timing carries the optional timing signals of an event.
type Timing struct {
	// SubmissionTime is how long the user took to submit.
	SubmissionTime time.Duration

	// SessionDuration is the length of the working session.
	SessionDuration time.Duration

	// StreakDays is the activity streak at event time.
	StreakDays int
}

// EvaluationContext is the per-event bundle of signals badge criteria
// are computed against. Constructed fresh per call; read-only within the
// engine. Optional signals are pointer fields - every criterion check
// pattern-matches on presence before evaluating, so "absent" and
// "present but failing" remain distinguishable.
type EvaluationContext struct {
	// UserID identifies the user being evaluated.
	UserID shared.UserID

	// Progress is the current user-progress snapshot.
	Progress *shared.UserProgress

	// Analysis is the optional AI code-analysis result.
	Analysis *shared.CodeAnalysis

	// Challenge and Submission form an optional pair.
	Challenge  *Challenge
	Submission *Submission

	// PeerReviewScore is the optional peer-review rating (1-5 scale).
	PeerReviewScore *float64

	// Timing carries optional timing data.
	Timing *Timing

	// EvaluatedAt anchors time-window checks. The orchestrator sets it
	// once per event so all catalog entries see the same instant.
	EvaluatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// RESULTS
// ══════════════════════════════════════════════════════════════════════════════

// ValidationCriterion is one evaluated criterion: the eligibility proof
// and the progress signal at once.
type ValidationCriterion struct {
	// Name identifies the criterion.
	Name string

	// Observed is the value found in the context.
	Observed any

	// Required is the threshold, when the criterion has one.
	Required any

	// Passed reports whether the criterion was satisfied.
	Passed bool
}

// VerificationStatus is the credential-ledger state of an award.
type VerificationStatus string

const (
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
	VerificationUnverified VerificationStatus = "unverified"
)

// AwardMetadata carries the evaluation evidence attached to an award.
type AwardMetadata struct {
	// ValidatedSkills are the skills confirmed by the evaluation.
	ValidatedSkills []shared.SkillID

	// CodeQualityScore is the AI quality score at award time (0 when no
	// analysis was present).
	CodeQualityScore float64

	// DifficultyLevel is the challenge tier, when a challenge was part
	// of the event.
	DifficultyLevel difficulty.Tier

	// ValidationCriteria is the full criteria evaluation list.
	ValidationCriteria []ValidationCriterion
}

// Award is the engine's output artifact: a complete badge-award record.
// Ownership passes to the reward orchestrator, which hands it to the
// external credential ledger for verification.
type Award struct {
	// ID is the award's unique identifier.
	ID string

	// BadgeName names the awarded badge.
	BadgeName string

	// Category and Subcategory classify the badge.
	Category    Category
	Subcategory string

	// Rarity is the effective rarity tier after bonuses.
	Rarity RarityTier

	// RarityScore is the final numeric rarity, clamped to [0,100].
	RarityScore int

	// EstimatedHolders and GlobalPercentage are the holder statistics
	// for the effective tier.
	EstimatedHolders int
	GlobalPercentage float64

	// Description is the generated award description.
	Description string

	// IconRef is the deterministic icon reference.
	IconRef string

	// Criteria is a snapshot of the definition's requirement set.
	Criteria Criteria

	// AwardedAt is the award timestamp.
	AwardedAt time.Time

	// VerificationStatus starts pending and is settled by the ledger.
	VerificationStatus VerificationStatus

	// Metadata carries the evaluation evidence.
	Metadata AwardMetadata

	// EditionSerial / EditionTotal are set on limited-edition special
	// badges.
	EditionSerial int
	EditionTotal  int

	// ExpiresAt is set on expiring special badges.
	ExpiresAt *time.Time

	// ContributionType, ImpactScore, and Endorsements are set on
	// community badges.
	ContributionType string
	ImpactScore      float64
	Endorsements     []string
}

// EligibilityResult is the outcome of evaluating one badge for one
// event. Ineligibility is a normal outcome, not an error.
type EligibilityResult struct {
	// IsEligible is true when every present criterion passed.
	IsEligible bool

	// Award is the materialized award; nil unless eligible.
	Award *Award

	// MissingCriteria names the criteria that did not pass.
	MissingCriteria []string

	// ProgressToNext is the percentage of criteria passed (100 when
	// eligible).
	ProgressToNext float64

	// EstimatedTimeToEarn is an advisory bucket, not a guarantee.
	EstimatedTimeToEarn string

	// Criteria is the full evaluation list.
	Criteria []ValidationCriterion
}

// RarityCalculation breaks down how a badge's rarity score was reached.
type RarityCalculation struct {
	// BaseScore comes from the definition's declared tier.
	BaseScore int

	// The four contextual bonuses, each independently capped.
	DifficultyBonus int
	QualityBonus    int
	TimeBonus       int
	CommunityBonus  int

	// FinalScore is the clamped sum.
	FinalScore int

	// Tier is re-derived from the final score.
	Tier RarityTier
}

// sanitizeBadgeName turns a badge name into its icon slug: lowercase,
// spaces to hyphens, everything else stripped.
func sanitizeBadgeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// IconRef builds the deterministic icon reference for a badge name and
// effective tier.
func IconRef(name string, tier RarityTier) string {
	return "badges/" + string(tier) + "/" + sanitizeBadgeName(name) + ".svg"
}
