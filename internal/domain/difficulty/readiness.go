package difficulty

import (
	"fmt"

	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// READINESS & ADAPTATION
// ══════════════════════════════════════════════════════════════════════════════

// ReadinessReport is the outcome of checking a user against a challenge's
// skill requirements.
type ReadinessReport struct {
	// Ready is true when the user has every required skill at the
	// tier's minimum level.
	Ready bool

	// MissingSkills lists required skills absent from the user's profile.
	MissingSkills []shared.SkillID

	// Recommendations lists human-readable next steps, one per gap.
	Recommendations []string
}

// IsUserReady judges learner readiness for a challenge. A skill that is
// absent from the user's profile is recorded as missing; a skill that is
// present but below the tier's minimum level produces a recommendation
// only. Either kind of gap makes the user not ready, so a user whose
// skills are all present but under-leveled is still correctly reported
// as not ready.
func IsUserReady(userSkills map[shared.SkillID]shared.SkillLevel, challengeSkills []shared.SkillID, tier Tier) ReadinessReport {
	required := tier.MinimumSkillLevel()

	report := ReadinessReport{}
	for _, skill := range challengeSkills {
		level, ok := userSkills[skill]
		if !ok {
			report.MissingSkills = append(report.MissingSkills, skill)
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("Learn the basics of %s before attempting this challenge", skill))
			continue
		}
		if level.Level < required {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("Raise %s to level %d (currently %d)", skill, required, level.Level))
		}
	}

	report.Ready = len(report.MissingSkills) == 0 && len(report.Recommendations) == 0
	return report
}

// SuggestForUser picks a starting tier from the user's standing in the
// target skills. The effective level blends the average with the best
// skill so one strong skill pulls the suggestion up without dominating.
func SuggestForUser(userSkills map[shared.SkillID]shared.SkillLevel, targetSkills []shared.SkillID) Tier {
	var sum, max, matched float64
	for _, skill := range targetSkills {
		level, ok := userSkills[skill]
		if !ok {
			continue
		}
		matched++
		sum += float64(level.Level)
		if float64(level.Level) > max {
			max = float64(level.Level)
		}
	}

	if matched == 0 {
		return TierBeginner
	}

	effective := 0.7*(sum/matched) + 0.3*max
	switch {
	case effective < 2:
		return TierBeginner
	case effective < 4:
		return TierIntermediate
	case effective < 7:
		return TierAdvanced
	default:
		return TierExpert
	}
}

// Thresholds for performance-based difficulty adaptation.
const (
	adaptMinSamples     = 3
	stepUpMeanScore     = 85.0
	stepUpSuccessRate   = 0.8
	stepDownMeanScore   = 50.0
	stepDownSuccessRate = 0.4
)

// AdaptBasedOnPerformance adjusts the difficulty tier from recent
// performance. With fewer than three recent scores there is not enough
// signal and the current tier is returned unchanged. Stepping saturates
// at the tier enumeration's bounds.
func AdaptBasedOnPerformance(current Tier, recentScores []float64, successRate float64) Tier {
	if len(recentScores) < adaptMinSamples {
		return current
	}

	var sum float64
	for _, s := range recentScores {
		sum += s
	}
	mean := sum / float64(len(recentScores))

	switch {
	case mean > stepUpMeanScore && successRate > stepUpSuccessRate:
		return current.StepUp()
	case mean < stepDownMeanScore && successRate < stepDownSuccessRate:
		return current.StepDown()
	default:
		return current
	}
}
