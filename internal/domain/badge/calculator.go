package badge

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

// Criterion names as they appear in validation results and missing-criteria
// lists.
const (
	CriterionBadgeNotFound  = "Badge not found"
	CriterionMinSkillLevel  = "Minimum skill level"
	CriterionMinTotalPoints = "Minimum total points"
	CriterionCodeQuality    = "Code quality"
	CriterionRequiredSkills = "Required skills"
	CriterionChallenge      = "Challenge completion"
	CriterionTimeWindow     = "Time window"
	CriterionPeerReview     = "Peer review score"
)

// Advisory time-to-earn buckets, driven by the count of failing criteria.
const (
	EstimateReady       = "ready"
	EstimateOneTwoSess  = "1-2 sessions"
	EstimateOneTwoWeeks = "1-2 weeks"
	EstimateTwoFourWks  = "2-4 weeks"
)

// ══════════════════════════════════════════════════════════════════════════════
// CALCULATOR
// ══════════════════════════════════════════════════════════════════════════════

// CalculatorConfig injects the calculator's only sources of
// non-determinism. Zero values fall back to the real clock and random
// UUIDs.
type CalculatorConfig struct {
	// Now supplies award timestamps.
	Now func() time.Time

	// NewID supplies award identifiers.
	NewID func() string
}

// Calculator evaluates badge eligibility against a static catalog and
// materializes award records. Safe for concurrent use: the catalog is
// immutable and each call works on its own context.
type Calculator struct {
	catalog *Catalog
	now     func() time.Time
	newID   func() string
}

// NewCalculator creates a badge calculator over the given catalog.
func NewCalculator(catalog *Catalog, cfg CalculatorConfig) *Calculator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Calculator{
		catalog: catalog,
		now:     cfg.Now,
		newID:   cfg.NewID,
	}
}

// Catalog returns the calculator's catalog.
func (c *Calculator) Catalog() *Catalog {
	return c.catalog
}

// ══════════════════════════════════════════════════════════════════════════════
// ELIGIBILITY
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateEligibility validates every criterion present on the named
// badge's definition against the evaluation context. An unknown badge
// name is the normal "not eligible" outcome with a single
// "Badge not found" criterion; ineligibility is never an error.
func (c *Calculator) EvaluateEligibility(badgeName string, ctx *EvaluationContext) EligibilityResult {
	def, ok := c.catalog.Lookup(badgeName)
	if !ok {
		return EligibilityResult{
			IsEligible:      false,
			MissingCriteria: []string{CriterionBadgeNotFound},
			ProgressToNext:  0,
			Criteria: []ValidationCriterion{{
				Name:     CriterionBadgeNotFound,
				Observed: badgeName,
				Passed:   false,
			}},
		}
	}

	criteria := c.evaluateCriteria(def, ctx)

	passed := 0
	var missing []string
	for _, cr := range criteria {
		if cr.Passed {
			passed++
		} else {
			missing = append(missing, cr.Name)
		}
	}

	result := EligibilityResult{
		IsEligible:          len(missing) == 0,
		MissingCriteria:     missing,
		ProgressToNext:      100,
		EstimatedTimeToEarn: estimateTimeToEarn(len(missing)),
		Criteria:            criteria,
	}
	if len(criteria) > 0 {
		result.ProgressToNext = float64(passed) / float64(len(criteria)) * 100
	}

	if result.IsEligible {
		result.ProgressToNext = 100
		result.Award = c.CreateAward(def, ctx, criteria)
	}
	return result
}

// estimateTimeToEarn buckets the failing-criteria count into advisory
// text.
func estimateTimeToEarn(failing int) string {
	switch {
	case failing == 0:
		return EstimateReady
	case failing == 1:
		return EstimateOneTwoSess
	case failing <= 3:
		return EstimateOneTwoWeeks
	default:
		return EstimateTwoFourWks
	}
}

// evaluateCriteria checks each criterion present on the definition.
// Criteria that depend on an absent optional signal fail with an
// "absent" observation rather than being skipped, so the missing-criteria
// list distinguishes "no data" from "data below threshold".
func (c *Calculator) evaluateCriteria(def *Definition, ctx *EvaluationContext) []ValidationCriterion {
	var results []ValidationCriterion
	crit := def.Criteria

	if crit.MinSkillLevel != nil {
		observed := 0
		if ctx.Progress != nil {
			observed = ctx.Progress.MaxSkillLevel()
		}
		results = append(results, ValidationCriterion{
			Name:     CriterionMinSkillLevel,
			Observed: observed,
			Required: *crit.MinSkillLevel,
			Passed:   observed >= *crit.MinSkillLevel,
		})
	}

	if crit.MinTotalPoints != nil {
		observed := 0
		if ctx.Progress != nil {
			observed = ctx.Progress.TotalExperience()
		}
		results = append(results, ValidationCriterion{
			Name:     CriterionMinTotalPoints,
			Observed: observed,
			Required: *crit.MinTotalPoints,
			Passed:   observed >= *crit.MinTotalPoints,
		})
	}

	if crit.MinCodeQuality != nil {
		cr := ValidationCriterion{
			Name:     CriterionCodeQuality,
			Required: *crit.MinCodeQuality,
			Observed: "no AI analysis available",
		}
		if ctx.Analysis != nil {
			cr.Observed = ctx.Analysis.QualityScore
			cr.Passed = ctx.Analysis.QualityScore >= *crit.MinCodeQuality
		}
		results = append(results, cr)
	}

	if len(crit.RequiredSkills) > 0 {
		cr := ValidationCriterion{
			Name:     CriterionRequiredSkills,
			Required: crit.RequiredSkills,
			Observed: "no AI analysis available",
		}
		if ctx.Analysis != nil {
			cr.Observed = ctx.Analysis.DetectedSkills
			cr.Passed = hasAllSkills(ctx.Analysis, crit.RequiredSkills)
		}
		results = append(results, cr)
	}

	if crit.RequiresChallengeCompletion {
		cr := ValidationCriterion{
			Name:     CriterionChallenge,
			Required: true,
			Observed: "no submission available",
		}
		if ctx.Submission != nil {
			cr.Observed = ctx.Submission.Passed
			cr.Passed = ctx.Submission.Passed
		}
		results = append(results, cr)
	}

	if crit.TimeWindow != nil {
		at := ctx.EvaluatedAt
		if at.IsZero() {
			at = c.now()
		}
		results = append(results, ValidationCriterion{
			Name:     CriterionTimeWindow,
			Observed: at,
			Required: *crit.TimeWindow,
			Passed:   crit.TimeWindow.Contains(at),
		})
	}

	if crit.MinPeerReviewScore != nil {
		cr := ValidationCriterion{
			Name:     CriterionPeerReview,
			Required: *crit.MinPeerReviewScore,
			Observed: "no peer-review score available",
		}
		if ctx.PeerReviewScore != nil {
			cr.Observed = *ctx.PeerReviewScore
			cr.Passed = *ctx.PeerReviewScore >= *crit.MinPeerReviewScore
		}
		results = append(results, cr)
	}

	return results
}

func hasAllSkills(analysis *shared.CodeAnalysis, required []shared.SkillID) bool {
	for _, skill := range required {
		if !analysis.HasSkill(skill) {
			return false
		}
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// RARITY
// ══════════════════════════════════════════════════════════════════════════════

// CalculateRarity combines a badge's declared base rarity with four
// contextual bonuses. The sum is clamped into [0,100] and the tier is
// re-derived from the final score, so bonuses can promote a badge's
// effective tier above its declared one.
func (c *Calculator) CalculateRarity(def *Definition, ctx *EvaluationContext) RarityCalculation {
	calc := RarityCalculation{
		BaseScore: def.Rarity.BaseScore(),
	}

	calc.DifficultyBonus = difficultyRarityBonus(def.Criteria)
	calc.QualityBonus = qualityRarityBonus(ctx.Analysis)
	calc.TimeBonus = timeRarityBonus(ctx)
	calc.CommunityBonus = communityRarityBonus(ctx.PeerReviewScore)

	score := calc.BaseScore + calc.DifficultyBonus + calc.QualityBonus + calc.TimeBonus + calc.CommunityBonus
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	calc.FinalScore = score
	calc.Tier = RarityForScore(score)
	return calc
}

// difficultyRarityBonus rewards demanding criteria sets. The individual
// contributions stack.
func difficultyRarityBonus(crit Criteria) int {
	bonus := 0
	if crit.MinSkillLevel != nil && *crit.MinSkillLevel >= 4 {
		bonus += 15
	}
	if crit.MinCodeQuality != nil && *crit.MinCodeQuality >= 90 {
		bonus += 10
	}
	if len(crit.RequiredSkills) > 2 {
		bonus += 5
	}
	if crit.TimeWindow != nil {
		bonus += 10
	}
	return bonus
}

// qualityRarityBonus rewards an exceptional AI analysis.
func qualityRarityBonus(analysis *shared.CodeAnalysis) int {
	if analysis == nil {
		return 0
	}
	switch avg := analysis.AverageScore(); {
	case avg >= 95:
		return 15
	case avg >= 90:
		return 10
	case avg >= 85:
		return 5
	default:
		return 0
	}
}

// timeRarityBonus rewards fast submissions relative to the challenge's
// time limit.
func timeRarityBonus(ctx *EvaluationContext) int {
	if ctx.Timing == nil || ctx.Challenge == nil || ctx.Challenge.TimeLimit <= 0 {
		return 0
	}
	ratio := float64(ctx.Timing.SubmissionTime) / float64(ctx.Challenge.TimeLimit)
	switch {
	case ratio < 0.3:
		return 10
	case ratio < 0.5:
		return 5
	default:
		return 0
	}
}

// communityRarityBonus rewards outstanding peer-review ratings.
func communityRarityBonus(score *float64) int {
	if score == nil {
		return 0
	}
	switch {
	case *score >= 4.8:
		return 10
	case *score >= 4.5:
		return 5
	default:
		return 0
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// AWARD MATERIALIZATION
// ══════════════════════════════════════════════════════════════════════════════

// CreateAward materializes the complete badge-award record for a
// definition the context is eligible for. The criteria evaluation list
// becomes part of the award's metadata; verification starts pending and
// is settled by the external credential ledger.
func (c *Calculator) CreateAward(def *Definition, ctx *EvaluationContext, criteria []ValidationCriterion) *Award {
	rarity := c.CalculateRarity(def, ctx)
	holders := estimatedHolders(rarity.Tier)

	awardedAt := ctx.EvaluatedAt
	if awardedAt.IsZero() {
		awardedAt = c.now()
	}

	award := &Award{
		ID:                 c.newID(),
		BadgeName:          def.Name,
		Category:           def.Category,
		Subcategory:        def.Subcategory,
		Rarity:             rarity.Tier,
		RarityScore:        rarity.FinalScore,
		EstimatedHolders:   holders,
		GlobalPercentage:   float64(holders) / float64(assumedPopulation) * 100,
		Description:        buildDescription(def, ctx),
		IconRef:            IconRef(def.Name, rarity.Tier),
		Criteria:           def.Criteria,
		AwardedAt:          awardedAt,
		VerificationStatus: VerificationPending,
		Metadata: AwardMetadata{
			ValidatedSkills:    validatedSkills(def, ctx),
			CodeQualityScore:   codeQuality(ctx),
			ValidationCriteria: criteria,
		},
	}
	if ctx.Challenge != nil {
		award.Metadata.DifficultyLevel = ctx.Challenge.Tier
	}
	return award
}

// CreateSpecialBadge materializes a special-catalog badge carrying
// limited-edition and expiration fields. An unknown name is a catalog
// misconfiguration and is raised immediately, never swallowed as
// ineligibility.
func (c *Calculator) CreateSpecialBadge(badgeName string, ctx *EvaluationContext, editionSerial int) (*Award, error) {
	def, ok := c.catalog.LookupIn(CategorySpecial, badgeName)
	if !ok {
		return nil, shared.WrapError("badge", "CreateSpecial", shared.ErrConfiguration,
			fmt.Sprintf("special badge %q is not in the catalog", badgeName), nil)
	}

	award := c.CreateAward(def, ctx, c.evaluateCriteria(def, ctx))
	award.EditionSerial = editionSerial
	award.EditionTotal = def.EditionTotal
	if def.ValidFor > 0 {
		expires := award.AwardedAt.Add(def.ValidFor)
		award.ExpiresAt = &expires
	}
	return award, nil
}

// CreateCommunityBadge materializes a community-catalog badge carrying
// contribution type, impact score, and endorsements. An unknown name is
// a catalog misconfiguration and is raised immediately.
func (c *Calculator) CreateCommunityBadge(badgeName string, ctx *EvaluationContext, impactScore float64, endorsements []string) (*Award, error) {
	def, ok := c.catalog.LookupIn(CategoryCommunity, badgeName)
	if !ok {
		return nil, shared.WrapError("badge", "CreateCommunity", shared.ErrConfiguration,
			fmt.Sprintf("community badge %q is not in the catalog", badgeName), nil)
	}

	award := c.CreateAward(def, ctx, c.evaluateCriteria(def, ctx))
	award.ContributionType = def.ContributionType
	award.ImpactScore = impactScore
	award.Endorsements = endorsements
	return award, nil
}

// buildDescription generates the award description, referencing the
// detected skills when an analysis is present.
func buildDescription(def *Definition, ctx *EvaluationContext) string {
	if ctx.Analysis == nil || len(ctx.Analysis.DetectedSkills) == 0 {
		return def.Description
	}
	skills := make([]string, len(ctx.Analysis.DetectedSkills))
	for i, s := range ctx.Analysis.DetectedSkills {
		skills[i] = string(s)
	}
	sort.Strings(skills)
	return fmt.Sprintf("%s. Demonstrated skills: %s", def.Description, strings.Join(skills, ", "))
}

// validatedSkills picks the skills the evaluation actually confirmed:
// the analyzer's detected skills when present, the definition's required
// skills otherwise.
func validatedSkills(def *Definition, ctx *EvaluationContext) []shared.SkillID {
	if ctx.Analysis != nil && len(ctx.Analysis.DetectedSkills) > 0 {
		return ctx.Analysis.DetectedSkills
	}
	return def.Criteria.RequiredSkills
}

func codeQuality(ctx *EvaluationContext) float64 {
	if ctx.Analysis == nil {
		return 0
	}
	return ctx.Analysis.QualityScore
}
