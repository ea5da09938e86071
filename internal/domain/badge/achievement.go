package badge

import (
	"math"
	"time"

	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// milestonePercentages are the fixed checkpoints within an achievement.
var milestonePercentages = []int{25, 50, 75, 90, 100}

// estimatedVelocityPerDay is the progress-units-per-day assumption used
// for the estimated completion date.
const estimatedVelocityPerDay = 10

// MilestoneReward describes what completing a milestone grants.
type MilestoneReward struct {
	// Type is "points" or "badge".
	Type string

	// Points is the point grant for point rewards.
	Points int

	// BadgeName names the achievement badge for the final milestone.
	BadgeName string
}

// Milestone is one fixed percentage checkpoint within an achievement.
type Milestone struct {
	// Percentage is the checkpoint position (25/50/75/90/100).
	Percentage int

	// TargetValue is the progress value at the checkpoint.
	TargetValue int

	// CurrentValue is progress toward this checkpoint, capped at its
	// target.
	CurrentValue int

	// IsCompleted is true once CurrentValue reaches TargetValue.
	IsCompleted bool

	// CompletedAt is set when the milestone is complete.
	CompletedAt *time.Time

	// Reward is what the milestone grants.
	Reward MilestoneReward
}

// AchievementProgress is the recomputed progress state toward a
// milestone-bearing achievement. It is derived on every call from the
// two progress numbers plus the static milestone template, never
// incrementally mutated.
type AchievementProgress struct {
	// UserID and AchievementID identify the progress record.
	UserID        shared.UserID
	AchievementID string

	// CurrentValue and TargetValue are the raw progress numbers.
	CurrentValue int
	TargetValue  int

	// Percentage is overall progress, 0-100.
	Percentage float64

	// Milestones are the five fixed checkpoints, in order.
	Milestones []Milestone

	// IsCompleted is true once CurrentValue reaches TargetValue.
	IsCompleted bool

	// EstimatedCompletion is the projected completion date. Absent once
	// the achievement is complete.
	EstimatedCompletion *time.Time
}

// TrackAchievementProgress recomputes progress toward an achievement.
// Five milestones are generated at 25/50/75/90/100% of the target; the
// final milestone's reward is the achievement badge itself, the others
// award points proportional to their percentage. The estimated
// completion date assumes a fixed velocity and must be absent - not a
// stale date - once the achievement is complete.
func (c *Calculator) TrackAchievementProgress(userID shared.UserID, achievementID string, current, target int) AchievementProgress {
	if current < 0 {
		current = 0
	}
	if target < 1 {
		target = 1
	}

	now := c.now()
	progress := AchievementProgress{
		UserID:        userID,
		AchievementID: achievementID,
		CurrentValue:  current,
		TargetValue:   target,
		IsCompleted:   current >= target,
	}

	progress.Percentage = math.Min(100, float64(current)/float64(target)*100)

	for _, pct := range milestonePercentages {
		milestoneTarget := int(math.Round(float64(target) * float64(pct) / 100))
		milestoneCurrent := current
		if milestoneCurrent > milestoneTarget {
			milestoneCurrent = milestoneTarget
		}

		m := Milestone{
			Percentage:   pct,
			TargetValue:  milestoneTarget,
			CurrentValue: milestoneCurrent,
			IsCompleted:  milestoneCurrent >= milestoneTarget,
		}
		if m.IsCompleted {
			completedAt := now
			m.CompletedAt = &completedAt
		}
		if pct == 100 {
			m.Reward = MilestoneReward{Type: "badge", BadgeName: achievementID}
		} else {
			m.Reward = MilestoneReward{Type: "points", Points: pct * 2}
		}

		progress.Milestones = append(progress.Milestones, m)
	}

	if !progress.IsCompleted {
		remaining := target - current
		days := int(math.Ceil(float64(remaining) / estimatedVelocityPerDay))
		estimated := now.AddDate(0, 0, days)
		progress.EstimatedCompletion = &estimated
	}

	return progress
}
