package difficulty

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

func TestTierForScore_Bands(t *testing.T) {
	assert.Equal(t, TierBeginner, TierForScore(0))
	assert.Equal(t, TierBeginner, TierForScore(25))
	assert.Equal(t, TierIntermediate, TierForScore(25.1))
	assert.Equal(t, TierIntermediate, TierForScore(50))
	assert.Equal(t, TierAdvanced, TierForScore(50.1))
	assert.Equal(t, TierAdvanced, TierForScore(75))
	assert.Equal(t, TierExpert, TierForScore(75.1))
	assert.Equal(t, TierExpert, TierForScore(100))
}

func TestTier_StepSaturation(t *testing.T) {
	assert.Equal(t, TierIntermediate, TierBeginner.StepUp())
	assert.Equal(t, TierExpert, TierExpert.StepUp())
	assert.Equal(t, TierBeginner, TierBeginner.StepDown())
	assert.Equal(t, TierAdvanced, TierExpert.StepDown())
}

func TestClassify_EasyChallenge(t *testing.T) {
	c := Classify(Metrics{
		ConceptComplexity:     2,
		ExpectedCodeLength:    20,
		AlgorithmicComplexity: 1,
		PrerequisiteCount:     0,
		TimeComplexity:        O1,
		DomainSpecificity:     1,
	})

	assert.Equal(t, TierBeginner, c.Tier)
	assert.Equal(t, 1, c.RecommendedSkillLevel)
	assert.NotEmpty(t, c.Reasoning)
	assert.Contains(t, c.Reasoning[0], "Straightforward")
}

func TestClassify_HardChallenge(t *testing.T) {
	c := Classify(Metrics{
		ConceptComplexity:     9,
		ExpectedCodeLength:    180,
		AlgorithmicComplexity: 9,
		PrerequisiteCount:     8,
		TimeComplexity:        O2N,
		DomainSpecificity:     8,
	})

	assert.Equal(t, TierExpert, c.Tier)
	assert.Equal(t, 8, c.RecommendedSkillLevel)
	assert.GreaterOrEqual(t, len(c.Reasoning), 4)
	assert.Greater(t, c.EstimatedDurationMinutes, 120)
}

func TestClassify_ScoreClamped(t *testing.T) {
	c := Classify(Metrics{
		ConceptComplexity:     10,
		ExpectedCodeLength:    5000,
		AlgorithmicComplexity: 10,
		PrerequisiteCount:     50,
		TimeComplexity:        ONFact,
		DomainSpecificity:     10,
	})

	assert.LessOrEqual(t, c.Score, 100.0)
	assert.Equal(t, TierExpert, c.Tier)
}

func TestTimeComplexity_UnknownFallsBackToLinear(t *testing.T) {
	assert.Equal(t, ON.Score(), TimeComplexity("O(n^4)").Score())
	assert.False(t, TimeComplexity("O(n^4)").IsValid())
	assert.True(t, ONLogN.IsValid())
}

func TestIsUserReady_MissingSkill(t *testing.T) {
	report := IsUserReady(
		map[shared.SkillID]shared.SkillLevel{
			"go": {Level: 5},
		},
		[]shared.SkillID{"go", "sql"},
		TierIntermediate,
	)

	assert.False(t, report.Ready)
	assert.Equal(t, []shared.SkillID{"sql"}, report.MissingSkills)
	assert.Len(t, report.Recommendations, 1)
}

func TestIsUserReady_UnderLeveledSkill(t *testing.T) {
	report := IsUserReady(
		map[shared.SkillID]shared.SkillLevel{
			"go": {Level: 2},
		},
		[]shared.SkillID{"go"},
		TierAdvanced, // requires level 6
	)

	assert.False(t, report.Ready)
	assert.Empty(t, report.MissingSkills)
	assert.Contains(t, report.Recommendations[0], "level 6")
}

func TestIsUserReady_AllSkillsSufficient(t *testing.T) {
	report := IsUserReady(
		map[shared.SkillID]shared.SkillLevel{
			"go":  {Level: 7},
			"sql": {Level: 6},
		},
		[]shared.SkillID{"go", "sql"},
		TierAdvanced,
	)

	assert.True(t, report.Ready)
	assert.Empty(t, report.MissingSkills)
	assert.Empty(t, report.Recommendations)
}

func TestSuggestForUser_NoMatchedSkills(t *testing.T) {
	tier := SuggestForUser(
		map[shared.SkillID]shared.SkillLevel{"rust": {Level: 9}},
		[]shared.SkillID{"go"},
	)
	assert.Equal(t, TierBeginner, tier)
}

func TestSuggestForUser_BlendsAverageAndBest(t *testing.T) {
	// avg 5, max 8 -> 0.7*5 + 0.3*8 = 5.9 -> advanced
	tier := SuggestForUser(
		map[shared.SkillID]shared.SkillLevel{
			"go":  {Level: 8},
			"sql": {Level: 2},
		},
		[]shared.SkillID{"go", "sql"},
	)
	assert.Equal(t, TierAdvanced, tier)
}

func TestAdaptBasedOnPerformance(t *testing.T) {
	// Not enough samples: unchanged.
	assert.Equal(t, TierIntermediate,
		AdaptBasedOnPerformance(TierIntermediate, []float64{95, 95}, 1.0))

	// Strong performance steps up.
	assert.Equal(t, TierAdvanced,
		AdaptBasedOnPerformance(TierIntermediate, []float64{90, 88, 92}, 0.9))

	// Struggling steps down.
	assert.Equal(t, TierBeginner,
		AdaptBasedOnPerformance(TierIntermediate, []float64{30, 40, 45}, 0.3))

	// Middling performance holds.
	assert.Equal(t, TierIntermediate,
		AdaptBasedOnPerformance(TierIntermediate, []float64{70, 65, 75}, 0.6))
}
