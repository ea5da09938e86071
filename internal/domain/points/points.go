// Package points implements the points calculation model: itemized,
// reproducible point awards for learner activity. Every entry point
// returns a Calculation whose breakdown list is authoritative - the
// total is always the sum of the breakdown entries. Calculations never
// fail; absent optional inputs contribute zero.
package points

import (
	"time"

	"github.com/codequest-hub/gamification-engine/internal/domain/difficulty"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Category names used in calculation breakdowns.
const (
	CategoryBase          = "Base Points"
	CategoryQuality       = "Quality Bonus"
	CategoryEfficiency    = "Efficiency Bonus"
	CategoryCreativity    = "Creativity Bonus"
	CategoryBestPractices = "Best Practices Bonus"
	CategoryDifficulty    = "Difficulty Bonus"
	CategoryPerformance   = "Performance Bonus"
	CategorySpeed         = "Speed Bonus"
	CategoryPerfectScore  = "Perfect Score Bonus"
	CategoryAIAnalysis    = "AI Analysis Bonus"
	CategoryReviewQuality = "Review Quality Bonus"
	CategoryReviewDetail  = "Review Detail Bonus"
	CategoryHelpfulness   = "Helpfulness Bonus"
	CategoryFirstReview   = "First Review Bonus"
	CategoryImpact        = "Impact Bonus"
	CategoryCommunityVote = "Community Votes Bonus"
	CategoryAcceptance    = "Acceptance Bonus"
	CategoryStreak        = "Streak Base"
	CategoryMilestone     = "Streak Milestone"
	CategoryBadgeRarity   = "Badge Rarity Bonus"
)

// BreakdownEntry is a single line of a points calculation.
type BreakdownEntry struct {
	// Category names the bonus or base line.
	Category string

	// Points is the (non-negative) amount this line contributes.
	Points int

	// Description explains the line in human-readable form.
	Description string

	// Multiplier records the multiplier that produced the line, when one
	// applied (zero otherwise).
	Multiplier float64
}

// Calculation is an itemized points award. The breakdown is the source
// of truth: TotalPoints always equals the sum of the breakdown entries.
type Calculation struct {
	// BasePoints is the pre-bonus award.
	BasePoints int

	// Bonuses maps bonus categories to their point amounts. The ordered
	// view lives in Breakdown; this map is for direct lookup.
	Bonuses map[string]int

	// DifficultyMultiplier is the multiplier that was in effect (1.0
	// when difficulty does not apply to the event kind).
	DifficultyMultiplier float64

	// TotalPoints is the sum of all breakdown entries.
	TotalPoints int

	// Breakdown lists every line of the calculation in order.
	Breakdown []BreakdownEntry
}

// addLine appends a breakdown entry and keeps the bonus map and total in
// sync. Negative amounts are clamped to zero - point lines are always
// non-negative.
func (c *Calculation) addLine(category string, pts int, description string, multiplier float64) {
	if pts < 0 {
		pts = 0
	}
	c.Breakdown = append(c.Breakdown, BreakdownEntry{
		Category:    category,
		Points:      pts,
		Description: description,
		Multiplier:  multiplier,
	})
	if category != CategoryBase {
		c.Bonuses[category] += pts
	}
	c.TotalPoints += pts
}

func newCalculation(multiplier float64) *Calculation {
	return &Calculation{
		Bonuses:              make(map[string]int),
		DifficultyMultiplier: multiplier,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// INPUTS
// ══════════════════════════════════════════════════════════════════════════════

// CodeScores are the four AI analysis sub-scores (0-100 each).
type CodeScores struct {
	Quality       float64
	Efficiency    float64
	Creativity    float64
	BestPractices float64
}

// Average returns the mean of the four sub-scores.
func (s CodeScores) Average() float64 {
	return (s.Quality + s.Efficiency + s.Creativity + s.BestPractices) / 4
}

// ChallengeCompletionInput captures a completed challenge.
type ChallengeCompletionInput struct {
	// Tier is the challenge's difficulty tier.
	Tier difficulty.Tier

	// SubmissionScore is the graded score of the submission, 0-100.
	SubmissionScore float64

	// Elapsed is how long the user took.
	Elapsed time.Duration

	// TimeLimit is the challenge's time limit (zero = no limit).
	TimeLimit time.Duration

	// Analysis is the optional AI analysis of the winning submission.
	Analysis *CodeScores
}

// PeerReviewInput captures a peer review the user gave.
type PeerReviewInput struct {
	// Rating is the review's star rating, 1-5.
	Rating int

	// ReviewLength is the review text length in characters.
	ReviewLength int

	// Helpfulness is how helpful the reviewee rated the review, 1-5.
	Helpfulness int

	// FirstReview flags the user's first-ever review.
	FirstReview bool
}

// ContributionKind enumerates community contribution types.
type ContributionKind string

const (
	ContributionBugReport         ContributionKind = "bug_report"
	ContributionFeatureSuggestion ContributionKind = "feature_suggestion"
	ContributionContentCreation   ContributionKind = "content_creation"
	ContributionMentorship        ContributionKind = "mentorship"
	ContributionModeration        ContributionKind = "moderation"
)

// ImpactLevel rates a contribution's community impact.
type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "low"
	ImpactMedium ImpactLevel = "medium"
	ImpactHigh   ImpactLevel = "high"
)

// CommunityContributionInput captures a community contribution.
type CommunityContributionInput struct {
	Kind     ContributionKind
	Impact   ImpactLevel
	Votes    int
	Accepted bool
}
