package badge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

func testCalculator() *Calculator {
	fixed := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	return NewCalculator(DefaultCatalog(), CalculatorConfig{
		Now:   func() time.Time { return fixed },
		NewID: func() string { return "award-1" },
	})
}

func progressWith(level, xp int) *shared.UserProgress {
	return &shared.UserProgress{
		UserID: "user-1",
		Skills: map[shared.SkillID]shared.SkillLevel{
			"python": {Level: level, ExperiencePoints: xp},
		},
	}
}

func TestEvaluateEligibility_UnknownBadge(t *testing.T) {
	result := testCalculator().EvaluateEligibility("No Such Badge", &EvaluationContext{})

	assert.False(t, result.IsEligible)
	assert.Nil(t, result.Award)
	assert.Equal(t, []string{CriterionBadgeNotFound}, result.MissingCriteria)
	assert.Zero(t, result.ProgressToNext)
}

func TestEvaluateEligibility_AllCriteriaPass(t *testing.T) {
	ctx := &EvaluationContext{
		UserID:   "user-1",
		Progress: progressWith(3, 500),
		Analysis: &shared.CodeAnalysis{
			QualityScore:   85,
			DetectedSkills: []shared.SkillID{"python"},
		},
	}

	result := testCalculator().EvaluateEligibility("Python Pioneer", ctx)

	assert.True(t, result.IsEligible)
	assert.NotNil(t, result.Award)
	assert.Equal(t, 100.0, result.ProgressToNext)
	assert.Empty(t, result.MissingCriteria)
	assert.Equal(t, EstimateReady, result.EstimatedTimeToEarn)
	assert.Equal(t, "Python Pioneer", result.Award.BadgeName)
	assert.Equal(t, VerificationPending, result.Award.VerificationStatus)
}

func TestEvaluateEligibility_AbsentAnalysisFailsQualityCriterion(t *testing.T) {
	ctx := &EvaluationContext{
		Progress:   progressWith(8, 20_000),
		Submission: &Submission{Passed: true},
	}

	// Algorithm Ace needs an AI analysis; absence fails the criterion
	// rather than skipping it.
	result := testCalculator().EvaluateEligibility("Algorithm Ace", ctx)

	assert.False(t, result.IsEligible)
	assert.Contains(t, result.MissingCriteria, CriterionCodeQuality)
	assert.Contains(t, result.MissingCriteria, CriterionRequiredSkills)
}

func TestEvaluateEligibility_PartialProgress(t *testing.T) {
	ctx := &EvaluationContext{
		Progress: progressWith(6, 200), // level passes, points fail
		Analysis: &shared.CodeAnalysis{QualityScore: 95},
	}

	// Code Artisan: level 6 (pass), quality 90 (pass), 5000 points (fail).
	result := testCalculator().EvaluateEligibility("Code Artisan", ctx)

	assert.False(t, result.IsEligible)
	assert.Equal(t, []string{CriterionMinTotalPoints}, result.MissingCriteria)
	assert.InDelta(t, 66.7, result.ProgressToNext, 0.1)
	assert.Equal(t, EstimateOneTwoSess, result.EstimatedTimeToEarn)
}

func TestCalculateRarity_BonusesPromoteTier(t *testing.T) {
	calc := testCalculator()
	def, ok := calc.Catalog().Lookup("Algorithm Ace")
	assert.True(t, ok)

	score := 4.9
	ctx := &EvaluationContext{
		Analysis: &shared.CodeAnalysis{
			QualityScore:       96,
			EfficiencyScore:    96,
			CreativityScore:    96,
			BestPracticesScore: 96,
		},
		Challenge:       &Challenge{TimeLimit: time.Hour},
		Timing:          &Timing{SubmissionTime: 10 * time.Minute},
		PeerReviewScore: &score,
	}

	rarity := calc.CalculateRarity(def, ctx)

	// Declared rare (60) + skill-level 15 + quality 15 + time 10 +
	// community 10, clamped to 100: the effective tier is legendary.
	assert.Equal(t, 60, rarity.BaseScore)
	assert.Equal(t, 15, rarity.DifficultyBonus)
	assert.Equal(t, 15, rarity.QualityBonus)
	assert.Equal(t, 10, rarity.TimeBonus)
	assert.Equal(t, 10, rarity.CommunityBonus)
	assert.Equal(t, 100, rarity.FinalScore)
	assert.Equal(t, RarityLegendary, rarity.Tier)
}

func TestCalculateRarity_NoContextSignals(t *testing.T) {
	calc := testCalculator()
	def, _ := calc.Catalog().Lookup("First Steps")

	rarity := calc.CalculateRarity(def, &EvaluationContext{})

	assert.Equal(t, RarityCommon.BaseScore(), rarity.FinalScore)
	assert.Equal(t, RarityCommon, rarity.Tier)
}

func TestRarityForScore_Bands(t *testing.T) {
	assert.Equal(t, RarityCommon, RarityForScore(0))
	assert.Equal(t, RarityUncommon, RarityForScore(30))
	assert.Equal(t, RarityRare, RarityForScore(60))
	assert.Equal(t, RarityEpic, RarityForScore(85))
	assert.Equal(t, RarityLegendary, RarityForScore(95))
}

func TestCreateAward_CarriesEvidence(t *testing.T) {
	calc := testCalculator()
	ctx := &EvaluationContext{
		UserID:   "user-1",
		Progress: progressWith(3, 500),
		Analysis: &shared.CodeAnalysis{
			QualityScore:   88,
			DetectedSkills: []shared.SkillID{"python", "testing"},
		},
		EvaluatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	result := calc.EvaluateEligibility("Python Pioneer", ctx)
	assert.True(t, result.IsEligible)

	award := result.Award
	assert.Equal(t, "award-1", award.ID)
	assert.Equal(t, ctx.EvaluatedAt, award.AwardedAt)
	assert.Equal(t, 88.0, award.Metadata.CodeQualityScore)
	assert.Equal(t, []shared.SkillID{"python", "testing"}, award.Metadata.ValidatedSkills)
	assert.Contains(t, award.Description, "Demonstrated skills: python, testing")
	assert.Contains(t, award.IconRef, "python-pioneer.svg")
}

func TestCreateSpecialBadge_EditionAndExpiry(t *testing.T) {
	calc := testCalculator()
	ctx := &EvaluationContext{
		Submission: &Submission{Passed: true},
	}

	award, err := calc.CreateSpecialBadge("Night Owl", ctx, 7)
	assert.NoError(t, err)
	assert.Equal(t, 7, award.EditionSerial)
	assert.NotNil(t, award.ExpiresAt)
	assert.Equal(t, award.AwardedAt.Add(365*24*time.Hour), *award.ExpiresAt)
}

func TestCreateSpecialBadge_UnknownNameIsConfigurationError(t *testing.T) {
	_, err := testCalculator().CreateSpecialBadge("Nonexistent", &EvaluationContext{}, 1)
	assert.Error(t, err)
	assert.True(t, shared.IsConfiguration(err))
}

func TestCreateCommunityBadge(t *testing.T) {
	calc := testCalculator()
	score := 4.2
	ctx := &EvaluationContext{PeerReviewScore: &score}

	award, err := calc.CreateCommunityBadge("Community Mentor", ctx, 8.5, []string{"user-2", "user-3"})
	assert.NoError(t, err)
	assert.Equal(t, "mentorship", award.ContributionType)
	assert.Equal(t, 8.5, award.ImpactScore)
	assert.Len(t, award.Endorsements, 2)
}

func TestCreateCommunityBadge_WrongCategoryRejected(t *testing.T) {
	// Python Pioneer exists but is a skill badge, not a community badge.
	_, err := testCalculator().CreateCommunityBadge("Python Pioneer", &EvaluationContext{}, 1, nil)
	assert.Error(t, err)
}

func TestIconRef_Sanitization(t *testing.T) {
	assert.Equal(t, "badges/rare/algorithm-ace.svg", IconRef("Algorithm Ace", RarityRare))
	assert.Equal(t, "badges/epic/c-wizard.svg", IconRef("C++ Wizard!", RarityEpic))
}

func TestTimeWindow_Contains(t *testing.T) {
	w := TimeWindow{
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC),
	}

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.End.Add(time.Second)))
	assert.False(t, w.Contains(w.Start.Add(-time.Second)))
}
