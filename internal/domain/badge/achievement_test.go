package badge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackAchievementProgress_Midway(t *testing.T) {
	p := testCalculator().TrackAchievementProgress("user-1", "hundred-challenges", 60, 100)

	assert.Equal(t, 60.0, p.Percentage)
	assert.False(t, p.IsCompleted)
	assert.Len(t, p.Milestones, 5)

	// 25% and 50% checkpoints are done, 75/90/100 are not.
	assert.True(t, p.Milestones[0].IsCompleted)
	assert.True(t, p.Milestones[1].IsCompleted)
	assert.False(t, p.Milestones[2].IsCompleted)
	assert.NotNil(t, p.Milestones[0].CompletedAt)
	assert.Nil(t, p.Milestones[2].CompletedAt)

	// Progress toward the next checkpoint is capped at its target.
	assert.Equal(t, 25, p.Milestones[0].CurrentValue)
	assert.Equal(t, 60, p.Milestones[2].CurrentValue)
}

func TestTrackAchievementProgress_MilestoneRewards(t *testing.T) {
	p := testCalculator().TrackAchievementProgress("user-1", "streak-master", 0, 200)

	for _, m := range p.Milestones[:4] {
		assert.Equal(t, "points", m.Reward.Type)
		assert.Equal(t, m.Percentage*2, m.Reward.Points)
	}
	final := p.Milestones[4]
	assert.Equal(t, "badge", final.Reward.Type)
	assert.Equal(t, "streak-master", final.Reward.BadgeName)
}

func TestTrackAchievementProgress_CompletedHasNoEstimate(t *testing.T) {
	p := testCalculator().TrackAchievementProgress("user-1", "done", 150, 100)

	assert.True(t, p.IsCompleted)
	assert.Equal(t, 100.0, p.Percentage)
	assert.Nil(t, p.EstimatedCompletion)
	for _, m := range p.Milestones {
		assert.True(t, m.IsCompleted)
	}
}

func TestTrackAchievementProgress_EstimateUsesFixedVelocity(t *testing.T) {
	calc := testCalculator()
	p := calc.TrackAchievementProgress("user-1", "big-goal", 0, 100)

	// 100 remaining at 10 units/day projects 10 days out.
	assert.NotNil(t, p.EstimatedCompletion)
	expected := time.Date(2026, 3, 25, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, expected, *p.EstimatedCompletion)
}

func TestTrackAchievementProgress_DefensiveInputs(t *testing.T) {
	p := testCalculator().TrackAchievementProgress("user-1", "odd", -5, 0)

	assert.Equal(t, 0, p.CurrentValue)
	assert.Equal(t, 1, p.TargetValue)
	assert.False(t, p.IsCompleted)
}
