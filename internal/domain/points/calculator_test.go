package points

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codequest-hub/gamification-engine/internal/domain/difficulty"
)

func perfectScores() CodeScores {
	return CodeScores{Quality: 100, Efficiency: 100, Creativity: 100, BestPractices: 100}
}

func TestCodeSubmission_PerfectScores(t *testing.T) {
	calc := NewCalculator(DefaultConfig()).
		CodeSubmission(perfectScores(), difficulty.TierBeginner)

	// Average 100 interpolates to the configured maximum.
	assert.Equal(t, 100, calc.BasePoints)
	assert.Equal(t, 1.0, calc.DifficultyMultiplier)

	// 100 base + 50 quality + 30 efficiency + 40 creativity + 60 best practices.
	assert.Equal(t, 280, calc.TotalPoints)
	assert.True(t, Validate(calc))
}

func TestCodeSubmission_ZeroScores(t *testing.T) {
	calc := NewCalculator(DefaultConfig()).
		CodeSubmission(CodeScores{}, difficulty.TierBeginner)

	// Average 0 interpolates to the configured minimum; no bonuses.
	assert.Equal(t, 10, calc.BasePoints)
	assert.Equal(t, 10, calc.TotalPoints)
	assert.True(t, Validate(calc))
}

func TestCodeSubmission_DifficultySurplusLine(t *testing.T) {
	calc := NewCalculator(DefaultConfig()).
		CodeSubmission(perfectScores(), difficulty.TierExpert)

	// The x3.0 multiplier surfaces as a surplus line: 280 * 2 = 560.
	assert.Equal(t, 3.0, calc.DifficultyMultiplier)
	assert.Equal(t, 560, calc.Bonuses[CategoryDifficulty])
	assert.Equal(t, 840, calc.TotalPoints)
	assert.True(t, Validate(calc))
}

func TestChallengeCompletion_BaseByTier(t *testing.T) {
	c := NewCalculator(DefaultConfig())

	assert.Equal(t, 50, c.ChallengeCompletion(ChallengeCompletionInput{Tier: difficulty.TierBeginner}).BasePoints)
	assert.Equal(t, 75, c.ChallengeCompletion(ChallengeCompletionInput{Tier: difficulty.TierIntermediate}).BasePoints)
	assert.Equal(t, 100, c.ChallengeCompletion(ChallengeCompletionInput{Tier: difficulty.TierAdvanced}).BasePoints)
	assert.Equal(t, 150, c.ChallengeCompletion(ChallengeCompletionInput{Tier: difficulty.TierExpert}).BasePoints)
}

func TestChallengeCompletion_SpeedAndPerfectBonuses(t *testing.T) {
	calc := NewCalculator(DefaultConfig()).ChallengeCompletion(ChallengeCompletionInput{
		Tier:            difficulty.TierIntermediate,
		SubmissionScore: 100,
		Elapsed:         10 * time.Minute,
		TimeLimit:       60 * time.Minute,
	})

	// 75 base + 38 performance + 23 speed + 15 perfect.
	assert.Equal(t, 38, calc.Bonuses[CategoryPerformance])
	assert.Equal(t, 23, calc.Bonuses[CategorySpeed])
	assert.Equal(t, 15, calc.Bonuses[CategoryPerfectScore])
	assert.Equal(t, 151, calc.TotalPoints)
	assert.True(t, Validate(calc))
}

func TestChallengeCompletion_NoSpeedBonusAtExactlyHalf(t *testing.T) {
	calc := NewCalculator(DefaultConfig()).ChallengeCompletion(ChallengeCompletionInput{
		Tier:            difficulty.TierBeginner,
		SubmissionScore: 80,
		Elapsed:         30 * time.Minute,
		TimeLimit:       60 * time.Minute,
	})

	assert.Zero(t, calc.Bonuses[CategorySpeed])
}

func TestChallengeCompletion_AIAnalysisBonus(t *testing.T) {
	scores := perfectScores()
	calc := NewCalculator(DefaultConfig()).ChallengeCompletion(ChallengeCompletionInput{
		Tier:            difficulty.TierBeginner,
		SubmissionScore: 90,
		Analysis:        &scores,
	})

	// 30% of the hypothetical 280-point code submission award.
	assert.Equal(t, 84, calc.Bonuses[CategoryAIAnalysis])
	assert.True(t, Validate(calc))
}

func TestPeerReview_RatingsClamped(t *testing.T) {
	c := NewCalculator(DefaultConfig())

	low := c.PeerReview(PeerReviewInput{Rating: -3, Helpfulness: 0})
	assert.Zero(t, low.Bonuses[CategoryReviewQuality])
	assert.Zero(t, low.Bonuses[CategoryHelpfulness])

	high := c.PeerReview(PeerReviewInput{Rating: 9, Helpfulness: 7})
	assert.Equal(t, 40, high.Bonuses[CategoryReviewQuality])
	assert.Equal(t, 32, high.Bonuses[CategoryHelpfulness])
}

func TestPeerReview_FullReview(t *testing.T) {
	calc := NewCalculator(DefaultConfig()).PeerReview(PeerReviewInput{
		Rating:       5,
		ReviewLength: 500,
		Helpfulness:  4,
		FirstReview:  true,
	})

	// 20 base + 40 quality + 10 detail + 24 helpfulness + 15 first review.
	assert.Equal(t, 20, calc.BasePoints)
	assert.Equal(t, 10, calc.Bonuses[CategoryReviewDetail])
	assert.Equal(t, 15, calc.Bonuses[CategoryFirstReview])
	assert.Equal(t, 109, calc.TotalPoints)
	assert.True(t, Validate(calc))
}

func TestPeerReview_DetailCapped(t *testing.T) {
	calc := NewCalculator(DefaultConfig()).PeerReview(PeerReviewInput{
		Rating:       3,
		ReviewLength: 100000,
		Helpfulness:  3,
	})

	assert.Equal(t, 20, calc.Bonuses[CategoryReviewDetail])
}

func TestCommunityContribution_ImpactAndVotes(t *testing.T) {
	calc := NewCalculator(DefaultConfig()).CommunityContribution(CommunityContributionInput{
		Kind:     ContributionMentorship,
		Impact:   ImpactHigh,
		Votes:    10,
		Accepted: true,
	})

	// 50 base + 50 impact surplus + 20 votes + 25 acceptance.
	assert.Equal(t, 50, calc.BasePoints)
	assert.Equal(t, 50, calc.Bonuses[CategoryImpact])
	assert.Equal(t, 20, calc.Bonuses[CategoryCommunityVote])
	assert.Equal(t, 25, calc.Bonuses[CategoryAcceptance])
	assert.Equal(t, 145, calc.TotalPoints)
	assert.True(t, Validate(calc))
}

func TestCommunityContribution_VotesCapped(t *testing.T) {
	calc := NewCalculator(DefaultConfig()).CommunityContribution(CommunityContributionInput{
		Kind:  ContributionBugReport,
		Votes: 1000,
	})

	assert.Equal(t, 50, calc.Bonuses[CategoryCommunityVote])
}

func TestCommunityContribution_LowImpactNoSurplusLine(t *testing.T) {
	calc := NewCalculator(DefaultConfig()).CommunityContribution(CommunityContributionInput{
		Kind:   ContributionBugReport,
		Impact: ImpactLow,
	})

	assert.Zero(t, calc.Bonuses[CategoryImpact])
	assert.Equal(t, 30, calc.TotalPoints)
}

func TestStreakBonus_AllCrossedMilestonesApply(t *testing.T) {
	calc := NewCalculator(DefaultConfig()).StreakBonus(30)

	// 60 base + milestones 14 + 28 + 60 for the 7, 14, and 30 day marks.
	assert.Equal(t, 60, calc.BasePoints)
	assert.Equal(t, 102, calc.Bonuses[CategoryMilestone])
	assert.Equal(t, 162, calc.TotalPoints)
	assert.True(t, Validate(calc))
}

func TestStreakBonus_BaseCapped(t *testing.T) {
	calc := NewCalculator(DefaultConfig()).StreakBonus(365)
	assert.Equal(t, 100, calc.BasePoints)
}

func TestStreakBonus_NegativeDaysTreatedAsZero(t *testing.T) {
	calc := NewCalculator(DefaultConfig()).StreakBonus(-5)
	assert.Zero(t, calc.BasePoints)
	assert.Zero(t, calc.TotalPoints)
}

func TestBadgeRarityBonus(t *testing.T) {
	c := NewCalculator(DefaultConfig())

	assert.Equal(t, 10, c.BadgeRarityBonus("common").TotalPoints)
	assert.Equal(t, 200, c.BadgeRarityBonus("legendary").TotalPoints)
	assert.Zero(t, c.BadgeRarityBonus("mythic").TotalPoints)
}

func TestNewCalculator_RepairsInvertedRange(t *testing.T) {
	c := NewCalculator(Config{
		CodeSubmissionMinPoints: 100,
		CodeSubmissionMaxPoints: 10,
	})

	calc := c.CodeSubmission(CodeScores{}, difficulty.TierBeginner)
	assert.Equal(t, DefaultConfig().CodeSubmissionMinPoints, calc.BasePoints)
}
