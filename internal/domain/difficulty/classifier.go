// Package difficulty contains the difficulty classification model for
// challenges and code submissions. This is the core of adaptive difficulty -
// here there are no external dependencies.
package difficulty

import (
	"fmt"
	"math"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Tier represents a difficulty level.
type Tier string

const (
	// TierBeginner - suitable for newcomers, minimal prerequisites.
	TierBeginner Tier = "beginner"
	// TierIntermediate - assumes working knowledge of the basics.
	TierIntermediate Tier = "intermediate"
	// TierAdvanced - multi-concept problems with real algorithmic depth.
	TierAdvanced Tier = "advanced"
	// TierExpert - the hardest tier, reserved for specialists.
	TierExpert Tier = "expert"
)

// tierOrder fixes the ordering of tiers for stepping up/down.
var tierOrder = []Tier{TierBeginner, TierIntermediate, TierAdvanced, TierExpert}

// IsValid checks that the tier is one of the four known values.
func (t Tier) IsValid() bool {
	switch t {
	case TierBeginner, TierIntermediate, TierAdvanced, TierExpert:
		return true
	default:
		return false
	}
}

// String returns the string representation of the tier.
func (t Tier) String() string {
	return string(t)
}

// Index returns the ordinal position of the tier (beginner = 0).
// Unknown tiers report as beginner.
func (t Tier) Index() int {
	for i, tier := range tierOrder {
		if tier == t {
			return i
		}
	}
	return 0
}

// StepUp returns the next harder tier, saturating at expert.
func (t Tier) StepUp() Tier {
	i := t.Index()
	if i >= len(tierOrder)-1 {
		return TierExpert
	}
	return tierOrder[i+1]
}

// StepDown returns the next easier tier, saturating at beginner.
func (t Tier) StepDown() Tier {
	i := t.Index()
	if i <= 0 {
		return TierBeginner
	}
	return tierOrder[i-1]
}

// MinimumSkillLevel returns the skill-level floor a user should have
// before attempting a challenge at this tier.
func (t Tier) MinimumSkillLevel() int {
	switch t {
	case TierBeginner:
		return 1
	case TierIntermediate:
		return 3
	case TierAdvanced:
		return 6
	case TierExpert:
		return 8
	default:
		return 1
	}
}

// baseDurationMinutes returns the baseline duration estimate per tier.
func (t Tier) baseDurationMinutes() float64 {
	switch t {
	case TierBeginner:
		return 15
	case TierIntermediate:
		return 30
	case TierAdvanced:
		return 60
	case TierExpert:
		return 120
	default:
		return 15
	}
}

// TimeComplexity is the asymptotic time-complexity class of the expected
// solution, from the fixed enumeration O(1) through O(n!).
type TimeComplexity string

const (
	O1     TimeComplexity = "O(1)"
	OLogN  TimeComplexity = "O(log n)"
	ON     TimeComplexity = "O(n)"
	ONLogN TimeComplexity = "O(n log n)"
	ON2    TimeComplexity = "O(n^2)"
	ON3    TimeComplexity = "O(n^3)"
	O2N    TimeComplexity = "O(2^n)"
	ONFact TimeComplexity = "O(n!)"
)

// timeComplexityScores maps each complexity class to its normalized
// 0-100 contribution. Unknown classes fall back to O(n).
var timeComplexityScores = map[TimeComplexity]float64{
	O1:     10,
	OLogN:  20,
	ON:     35,
	ONLogN: 50,
	ON2:    65,
	ON3:    75,
	O2N:    90,
	ONFact: 100,
}

// Score returns the normalized 0-100 score for the complexity class.
func (tc TimeComplexity) Score() float64 {
	if s, ok := timeComplexityScores[tc]; ok {
		return s
	}
	return timeComplexityScores[ON]
}

// IsValid checks membership in the fixed enumeration.
func (tc TimeComplexity) IsValid() bool {
	_, ok := timeComplexityScores[tc]
	return ok
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS & CLASSIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// Metrics are the raw complexity signals for a challenge or exercise.
// Immutable input, constructed by the caller.
type Metrics struct {
	// ConceptComplexity rates how hard the underlying concepts are, 1-10.
	ConceptComplexity int

	// ExpectedCodeLength is the expected solution size in lines.
	ExpectedCodeLength int

	// AlgorithmicComplexity rates the algorithmic depth required, 1-10.
	AlgorithmicComplexity int

	// PrerequisiteCount is how many prior skills the challenge assumes.
	PrerequisiteCount int

	// TimeComplexity is the expected solution's asymptotic class.
	TimeComplexity TimeComplexity

	// DomainSpecificity rates how niche the problem domain is, 1-10.
	DomainSpecificity int
}

// Classification is the classifier's output: a tier, a 0-100 score, the
// reasoning behind it, and planning hints. Derived, never persisted.
type Classification struct {
	// Tier is the difficulty band the score falls into.
	Tier Tier

	// Score is the weighted difficulty score, clamped to [0,100].
	Score float64

	// Reasoning lists the factors that drove the score, in evaluation
	// order. Never empty.
	Reasoning []string

	// RecommendedSkillLevel is the minimum skill level (1-10) a user
	// should have before attempting this.
	RecommendedSkillLevel int

	// EstimatedDurationMinutes is a rough time-to-complete estimate.
	EstimatedDurationMinutes int
}

// Weights for the six normalized sub-scores. They sum to 1.0.
const (
	weightConceptComplexity     = 0.25
	weightCodeLength            = 0.15
	weightAlgorithmicComplexity = 0.30
	weightPrerequisites         = 0.15
	weightTimeComplexity        = 0.10
	weightDomainSpecificity     = 0.05
)

// Reference maxima for capped-ratio normalizations.
const (
	referenceMaxCodeLength    = 200
	referenceMaxPrerequisites = 10
)

// Clamp bounds a score into [0,100].
func Clamp(score float64) float64 {
	return math.Min(100, math.Max(0, score))
}

// normalizeScale10 maps a 1-10 rating onto 0-100.
func normalizeScale10(v int) float64 {
	return Clamp(float64(v) * 10)
}

// normalizeRatio maps a count onto 0-100 against a reference maximum,
// capped at 100.
func normalizeRatio(v, max int) float64 {
	if max <= 0 {
		return 0
	}
	return Clamp(float64(v) / float64(max) * 100)
}

// TierForScore maps a difficulty score onto the fixed tier bands.
func TierForScore(score float64) Tier {
	switch {
	case score <= 25:
		return TierBeginner
	case score <= 50:
		return TierIntermediate
	case score <= 75:
		return TierAdvanced
	default:
		return TierExpert
	}
}

// Classify converts raw complexity metrics into a difficulty classification.
// The score is a weighted sum over six sub-scores, each normalized to
// 0-100 before weighting, and the tier is read off fixed score bands.
func Classify(m Metrics) Classification {
	concept := normalizeScale10(m.ConceptComplexity)
	codeLen := normalizeRatio(m.ExpectedCodeLength, referenceMaxCodeLength)
	algo := normalizeScale10(m.AlgorithmicComplexity)
	prereq := normalizeRatio(m.PrerequisiteCount, referenceMaxPrerequisites)
	timeCplx := m.TimeComplexity.Score()
	domain := normalizeScale10(m.DomainSpecificity)

	score := Clamp(concept*weightConceptComplexity +
		codeLen*weightCodeLength +
		algo*weightAlgorithmicComplexity +
		prereq*weightPrerequisites +
		timeCplx*weightTimeComplexity +
		domain*weightDomainSpecificity)

	tier := TierForScore(score)

	reasoning := buildReasoning(m)

	duration := tier.baseDurationMinutes() *
		(1 + float64(m.ConceptComplexity)/20) *
		(1 + float64(m.ExpectedCodeLength)/400)

	return Classification{
		Tier:                     tier,
		Score:                    score,
		Reasoning:                reasoning,
		RecommendedSkillLevel:    tier.MinimumSkillLevel(),
		EstimatedDurationMinutes: int(math.Round(duration)),
	}
}

// buildReasoning appends one line per factor that materially raises the
// difficulty. If none apply the challenge is straightforward, and we say
// so rather than returning an empty list.
func buildReasoning(m Metrics) []string {
	var reasons []string
	if m.ConceptComplexity >= 7 {
		reasons = append(reasons, fmt.Sprintf("High concept complexity (%d/10) requires deep understanding", m.ConceptComplexity))
	}
	if m.AlgorithmicComplexity >= 7 {
		reasons = append(reasons, fmt.Sprintf("Advanced algorithmic thinking needed (%d/10)", m.AlgorithmicComplexity))
	}
	if m.PrerequisiteCount >= 5 {
		reasons = append(reasons, fmt.Sprintf("Builds on %d prerequisite skills", m.PrerequisiteCount))
	}
	if m.ExpectedCodeLength > 100 {
		reasons = append(reasons, fmt.Sprintf("Substantial implementation expected (~%d lines)", m.ExpectedCodeLength))
	}
	if m.DomainSpecificity >= 7 {
		reasons = append(reasons, fmt.Sprintf("Requires specialized domain knowledge (%d/10)", m.DomainSpecificity))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "Straightforward challenge suitable for building confidence")
	}
	return reasons
}
