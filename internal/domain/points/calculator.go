package points

import (
	"fmt"
	"math"

	"github.com/codequest-hub/gamification-engine/internal/domain/difficulty"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config tunes the points calculator. Defaults reproduce the platform's
// standard scoring; deployments override through the app configuration.
type Config struct {
	// CodeSubmissionMinPoints / MaxPoints bound the base award for a
	// code submission; the AI sub-score average interpolates between.
	CodeSubmissionMinPoints int
	CodeSubmissionMaxPoints int

	// Per-category bonus multipliers for code submissions.
	QualityMultiplier       float64
	EfficiencyMultiplier    float64
	CreativityMultiplier    float64
	BestPracticesMultiplier float64

	// AIAnalysisBonusRate is the fraction of a hypothetical
	// code-submission award granted when a challenge submission carries
	// an AI analysis.
	AIAnalysisBonusRate float64

	// PeerReviewBasePoints is the flat base for a peer review given.
	PeerReviewBasePoints int

	// FirstReviewBonus is the flat bonus for a user's first review.
	FirstReviewBonus int

	// StreakMilestones are the day thresholds that earn milestone lines.
	StreakMilestones []int
}

// DefaultConfig returns the standard scoring configuration.
func DefaultConfig() Config {
	return Config{
		CodeSubmissionMinPoints: 10,
		CodeSubmissionMaxPoints: 100,
		QualityMultiplier:       0.5,
		EfficiencyMultiplier:    0.3,
		CreativityMultiplier:    0.4,
		BestPracticesMultiplier: 0.6,
		AIAnalysisBonusRate:     0.3,
		PeerReviewBasePoints:    20,
		FirstReviewBonus:        15,
		StreakMilestones:        []int{7, 14, 30, 60, 100},
	}
}

// difficultyMultiplier returns the tier's points multiplier.
func difficultyMultiplier(tier difficulty.Tier) float64 {
	switch tier {
	case difficulty.TierBeginner:
		return 1.0
	case difficulty.TierIntermediate:
		return 1.5
	case difficulty.TierAdvanced:
		return 2.0
	case difficulty.TierExpert:
		return 3.0
	default:
		return 1.0
	}
}

// challengeBasePoints returns the fixed per-tier base for a completed
// challenge.
func challengeBasePoints(tier difficulty.Tier) int {
	switch tier {
	case difficulty.TierBeginner:
		return 50
	case difficulty.TierIntermediate:
		return 75
	case difficulty.TierAdvanced:
		return 100
	case difficulty.TierExpert:
		return 150
	default:
		return 50
	}
}

// contributionBasePoints returns the base award per contribution kind.
func contributionBasePoints(kind ContributionKind) int {
	switch kind {
	case ContributionBugReport:
		return 30
	case ContributionFeatureSuggestion:
		return 25
	case ContributionContentCreation:
		return 40
	case ContributionMentorship:
		return 50
	case ContributionModeration:
		return 35
	default:
		return 0
	}
}

// impactMultiplier returns the contribution impact multiplier.
func impactMultiplier(impact ImpactLevel) float64 {
	switch impact {
	case ImpactMedium:
		return 1.5
	case ImpactHigh:
		return 2.0
	default:
		return 1.0
	}
}

// badgeRarityBonusPoints maps a badge rarity tier name to the flat point
// bonus granted alongside the badge.
var badgeRarityBonusPoints = map[string]int{
	"common":    10,
	"uncommon":  25,
	"rare":      50,
	"epic":      100,
	"legendary": 200,
}

// ══════════════════════════════════════════════════════════════════════════════
// CALCULATOR
// ══════════════════════════════════════════════════════════════════════════════

// Calculator produces itemized point awards. It is pure and safe for
// concurrent use.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a points calculator with the given configuration.
func NewCalculator(cfg Config) *Calculator {
	if cfg.CodeSubmissionMaxPoints <= cfg.CodeSubmissionMinPoints {
		def := DefaultConfig()
		cfg.CodeSubmissionMinPoints = def.CodeSubmissionMinPoints
		cfg.CodeSubmissionMaxPoints = def.CodeSubmissionMaxPoints
	}
	if len(cfg.StreakMilestones) == 0 {
		cfg.StreakMilestones = DefaultConfig().StreakMilestones
	}
	return &Calculator{cfg: cfg}
}

func round(v float64) int {
	return int(math.Round(v))
}

// CodeSubmission computes the award for an analyzed code submission.
// The base interpolates the configured [min,max] range by the average of
// the four AI sub-scores; each sub-score then earns its own bonus line,
// and the tier multiplier's surplus over the subtotal becomes an
// explicit difficulty-bonus line when positive.
func (c *Calculator) CodeSubmission(scores CodeScores, tier difficulty.Tier) *Calculation {
	mult := difficultyMultiplier(tier)
	calc := newCalculation(mult)

	span := float64(c.cfg.CodeSubmissionMaxPoints - c.cfg.CodeSubmissionMinPoints)
	base := round(float64(c.cfg.CodeSubmissionMinPoints) + span*scores.Average()/100)
	calc.BasePoints = base
	calc.addLine(CategoryBase, base,
		fmt.Sprintf("Base points for code submission (avg score %.1f)", scores.Average()), 0)

	calc.addLine(CategoryQuality, round(scores.Quality/100*float64(base)*c.cfg.QualityMultiplier),
		fmt.Sprintf("Code quality score %.0f/100", scores.Quality), c.cfg.QualityMultiplier)
	calc.addLine(CategoryEfficiency, round(scores.Efficiency/100*float64(base)*c.cfg.EfficiencyMultiplier),
		fmt.Sprintf("Efficiency score %.0f/100", scores.Efficiency), c.cfg.EfficiencyMultiplier)
	calc.addLine(CategoryCreativity, round(scores.Creativity/100*float64(base)*c.cfg.CreativityMultiplier),
		fmt.Sprintf("Creativity score %.0f/100", scores.Creativity), c.cfg.CreativityMultiplier)
	calc.addLine(CategoryBestPractices, round(scores.BestPractices/100*float64(base)*c.cfg.BestPracticesMultiplier),
		fmt.Sprintf("Best practices score %.0f/100", scores.BestPractices), c.cfg.BestPracticesMultiplier)

	// The multiplier applies to the whole subtotal; only the surplus is
	// emitted, as its own line, so the breakdown still sums to the total.
	subtotal := calc.TotalPoints
	if bonus := round(float64(subtotal) * (mult - 1)); bonus > 0 {
		calc.addLine(CategoryDifficulty, bonus,
			fmt.Sprintf("Difficulty multiplier x%.1f (%s)", mult, tier), mult)
	}

	return calc
}

// ChallengeCompletion computes the award for a completed challenge.
func (c *Calculator) ChallengeCompletion(in ChallengeCompletionInput) *Calculation {
	mult := difficultyMultiplier(in.Tier)
	calc := newCalculation(mult)

	base := challengeBasePoints(in.Tier)
	calc.BasePoints = base
	calc.addLine(CategoryBase, base,
		fmt.Sprintf("Challenge completed at %s tier", in.Tier), 0)

	calc.addLine(CategoryPerformance, round(in.SubmissionScore/100*float64(base)*0.5),
		fmt.Sprintf("Submission scored %.0f/100", in.SubmissionScore), 0.5)

	if in.TimeLimit > 0 && in.Elapsed < in.TimeLimit/2 {
		calc.addLine(CategorySpeed, round(float64(base)*0.3),
			"Completed in under half the time limit", 0.3)
	}

	if in.SubmissionScore == 100 {
		calc.addLine(CategoryPerfectScore, round(float64(base)*0.2),
			"Perfect score", 0.2)
	}

	if in.Analysis != nil {
		hypothetical := c.CodeSubmission(*in.Analysis, in.Tier)
		calc.addLine(CategoryAIAnalysis, round(float64(hypothetical.TotalPoints)*c.cfg.AIAnalysisBonusRate),
			"AI analysis of the winning submission", c.cfg.AIAnalysisBonusRate)
	}

	return calc
}

// PeerReview computes the award for a peer review the user wrote.
// Ratings outside 1-5 are clamped into range; the calculation never
// fails.
func (c *Calculator) PeerReview(in PeerReviewInput) *Calculation {
	calc := newCalculation(1.0)

	base := c.cfg.PeerReviewBasePoints
	calc.BasePoints = base
	calc.addLine(CategoryBase, base, "Peer review given", 0)

	rating := clampRating(in.Rating)
	calc.addLine(CategoryReviewQuality, (rating-1)*10,
		fmt.Sprintf("Review rated %d/5", rating), 0)

	detail := in.ReviewLength / 50
	if detail > 20 {
		detail = 20
	}
	calc.addLine(CategoryReviewDetail, detail,
		fmt.Sprintf("Review length %d characters", in.ReviewLength), 0)

	helpfulness := clampRating(in.Helpfulness)
	calc.addLine(CategoryHelpfulness, (helpfulness-1)*8,
		fmt.Sprintf("Helpfulness rated %d/5", helpfulness), 0)

	if in.FirstReview {
		calc.addLine(CategoryFirstReview, c.cfg.FirstReviewBonus, "First peer review", 0)
	}

	return calc
}

func clampRating(r int) int {
	if r < 1 {
		return 1
	}
	if r > 5 {
		return 5
	}
	return r
}

// CommunityContribution computes the award for a community contribution.
func (c *Calculator) CommunityContribution(in CommunityContributionInput) *Calculation {
	calc := newCalculation(1.0)

	base := contributionBasePoints(in.Kind)
	calc.BasePoints = base
	calc.addLine(CategoryBase, base,
		fmt.Sprintf("Community contribution: %s", in.Kind), 0)

	mult := impactMultiplier(in.Impact)
	if bonus := round(float64(base) * (mult - 1)); bonus > 0 {
		calc.addLine(CategoryImpact, bonus,
			fmt.Sprintf("%s community impact", in.Impact), mult)
	}

	votes := in.Votes * 2
	if votes > 50 {
		votes = 50
	}
	if votes > 0 {
		calc.addLine(CategoryCommunityVote, votes,
			fmt.Sprintf("%d community votes", in.Votes), 0)
	}

	if in.Accepted {
		calc.addLine(CategoryAcceptance, round(float64(base)*0.5),
			"Contribution accepted", 0.5)
	}

	return calc
}

// StreakBonus computes the bonus for a consecutive-activity streak.
// Every crossed milestone contributes its own line; all crossed
// thresholds apply simultaneously.
func (c *Calculator) StreakBonus(days int) *Calculation {
	calc := newCalculation(1.0)

	if days < 0 {
		days = 0
	}
	base := days * 2
	if base > 100 {
		base = 100
	}
	calc.BasePoints = base
	calc.addLine(CategoryStreak, base,
		fmt.Sprintf("%d-day activity streak", days), 0)

	for _, threshold := range c.cfg.StreakMilestones {
		if days >= threshold {
			calc.addLine(CategoryMilestone, threshold*2,
				fmt.Sprintf("Crossed the %d-day milestone", threshold), 0)
		}
	}

	return calc
}

// BadgeRarityBonus computes the flat point bonus that accompanies an
// awarded badge of the given rarity tier. Unknown tiers earn nothing.
func (c *Calculator) BadgeRarityBonus(rarity string) *Calculation {
	calc := newCalculation(1.0)

	bonus := badgeRarityBonusPoints[rarity]
	calc.BasePoints = bonus
	calc.addLine(CategoryBadgeRarity, bonus,
		fmt.Sprintf("Earned a %s badge", rarity), 0)

	return calc
}

// Validate checks that the breakdown sums to the total within the
// rounding tolerance of one point. This is a self-check on calculator
// internals, not a gate on awarding.
func Validate(calc *Calculation) bool {
	sum := 0
	for _, entry := range calc.Breakdown {
		sum += entry.Points
	}
	diff := sum - calc.TotalPoints
	return diff >= -1 && diff <= 1
}
