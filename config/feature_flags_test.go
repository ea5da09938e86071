package config

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFeatureFlagDefaults(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{UserID: "user-1"}

	assert.True(t, ff.IsEnabled(FeatureScoringStreakBonus, ctx))
	assert.True(t, ff.IsEnabled(FeatureBadgesSkill, ctx))
	assert.True(t, ff.IsEnabled(FeatureLedgerSubmission, ctx))

	// Experimental and reverify features ship dark.
	assert.False(t, ff.IsEnabled(FeatureExperimentalVelocity, ctx))
	assert.False(t, ff.IsEnabled(FeatureLedgerReverify, ctx))

	// Unknown features are never enabled.
	assert.False(t, ff.IsEnabled("scoring.does_not_exist", ctx))
}

func TestFeatureFlagEnvOverrides(t *testing.T) {
	t.Setenv("FEATURE_SCORING_STREAK_BONUS", "false")
	t.Setenv("FEATURE_EXPERIMENTAL_VELOCITY", "true")
	t.Setenv("FEATURE_SCORING_SPEED_BONUS", "0")

	ff := LoadFeatureFlags()
	ctx := &FeatureContext{UserID: "user-1"}

	assert.False(t, ff.IsEnabled(FeatureScoringStreakBonus, ctx))
	assert.True(t, ff.IsEnabled(FeatureExperimentalVelocity, ctx))
	assert.False(t, ff.IsEnabled(FeatureScoringSpeedBonus, ctx))
}

func TestFeatureFlagEnvPercentage(t *testing.T) {
	t.Setenv("FEATURE_EXPERIMENTAL_VELOCITY", "40")

	ff := LoadFeatureFlags()
	feature := ff.GetAllFeatures()[FeatureExperimentalVelocity]
	assert.True(t, feature.Enabled)
	assert.Equal(t, 40, feature.RolloutPercent)
}

func TestFeatureFlagEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("FEATURE_SCORING_AI_BONUS", "maybe")
	t.Setenv("FEATURE_SCORING_RARITY_BONUS", "150")

	ff := LoadFeatureFlags()
	features := ff.GetAllFeatures()

	// Unparseable and out-of-range values keep the defaults.
	assert.Equal(t, 100, features[FeatureScoringAIBonus].RolloutPercent)
	assert.Equal(t, 100, features[FeatureScoringRarityBonus].RolloutPercent)
}

func TestRolloutBucketingIsDeterministic(t *testing.T) {
	ff := LoadFeatureFlags()
	assert.NoError(t, ff.SetRolloutPercent(FeatureScoringStreakBonus, 50))

	other := LoadFeatureFlags()
	assert.NoError(t, other.SetRolloutPercent(FeatureScoringStreakBonus, 50))

	var enabled, disabled int
	for i := 0; i < 200; i++ {
		ctx := &FeatureContext{UserID: fmt.Sprintf("user-%d", i)}

		got := ff.IsEnabled(FeatureScoringStreakBonus, ctx)
		// Same user, same feature, same percent: same bucket everywhere.
		assert.Equal(t, got, ff.IsEnabled(FeatureScoringStreakBonus, ctx))
		assert.Equal(t, got, other.IsEnabled(FeatureScoringStreakBonus, ctx))

		if got {
			enabled++
		} else {
			disabled++
		}
	}

	// A 50% rollout over 200 users lands somewhere in between.
	assert.Positive(t, enabled)
	assert.Positive(t, disabled)
}

func TestRolloutPercentBounds(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{UserID: "user-1"}

	assert.NoError(t, ff.DisableFeature(FeatureBadgesSkill))
	assert.False(t, ff.IsEnabled(FeatureBadgesSkill, ctx))

	assert.NoError(t, ff.EnableFeature(FeatureBadgesSkill))
	assert.True(t, ff.IsEnabled(FeatureBadgesSkill, ctx))

	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureBadgesSkill, 101), ErrInvalidRolloutPercent)
	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureBadgesSkill, -1), ErrInvalidRolloutPercent)
	assert.ErrorIs(t, ff.SetRolloutPercent("nope", 50), ErrFeatureNotFound)
}

func TestUserOverridesWinOverRollout(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{UserID: "user-1"}

	assert.NoError(t, ff.DisableFeature(FeatureScoringAIBonus))
	ff.SetUserOverride("user-1", FeatureScoringAIBonus, true)
	assert.True(t, ff.IsEnabled(FeatureScoringAIBonus, ctx))

	// Overrides are per user.
	assert.False(t, ff.IsEnabled(FeatureScoringAIBonus, &FeatureContext{UserID: "user-2"}))

	ff.ClearUserOverrides("user-1")
	assert.False(t, ff.IsEnabled(FeatureScoringAIBonus, ctx))
}

func TestAdminBypassesRollout(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.NoError(t, ff.DisableFeature(FeatureExperimentalVelocity))
	assert.True(t, ff.IsEnabled(FeatureExperimentalVelocity, &FeatureContext{UserID: "admin-1", IsAdmin: true}))
}

func TestTimeBoxedActivation(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{UserID: "user-1"}

	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	ff.features[FeatureBadgesSpecial].EnabledFrom = &future
	assert.False(t, ff.IsEnabled(FeatureBadgesSpecial, ctx))

	ff.features[FeatureBadgesSpecial].EnabledFrom = &past
	assert.True(t, ff.IsEnabled(FeatureBadgesSpecial, ctx))

	ff.features[FeatureBadgesSpecial].EnabledUntil = &past
	assert.False(t, ff.IsEnabled(FeatureBadgesSpecial, ctx))
}

func TestCohortTargeting(t *testing.T) {
	ff := LoadFeatureFlags()
	ff.features[FeatureRankingCohorts].TargetCohorts = []string{"2026-spring"}

	assert.True(t, ff.IsEnabled(FeatureRankingCohorts, &FeatureContext{UserID: "u", Cohort: "2026-spring"}))
	assert.False(t, ff.IsEnabled(FeatureRankingCohorts, &FeatureContext{UserID: "u", Cohort: "2026-fall"}))

	// Users without a cohort are not filtered.
	assert.True(t, ff.IsEnabled(FeatureRankingCohorts, &FeatureContext{UserID: "u"}))
}

func TestBadgesEnabledAggregates(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{UserID: "user-1"}

	assert.True(t, ff.BadgesEnabled(ctx))

	assert.NoError(t, ff.DisableFeature(FeatureBadgesSkill))
	assert.NoError(t, ff.DisableFeature(FeatureBadgesAchievement))
	assert.NoError(t, ff.DisableFeature(FeatureBadgesSpecial))
	assert.NoError(t, ff.DisableFeature(FeatureBadgesCommunity))
	assert.False(t, ff.BadgesEnabled(ctx))
}

func TestGetVariantAssignment(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{UserID: "user-1"}

	// No variants defined.
	assert.Empty(t, ff.GetVariant(FeatureScoringStreakBonus, ctx))

	ff.features[FeatureScoringStreakBonus].Variants = []string{"control", "boosted"}

	got := ff.GetVariant(FeatureScoringStreakBonus, ctx)
	assert.Contains(t, []string{"control", "boosted"}, got)
	assert.Equal(t, got, ff.GetVariant(FeatureScoringStreakBonus, ctx))

	// Disabled features and anonymous contexts get no variant.
	assert.Empty(t, ff.GetVariant(FeatureScoringStreakBonus, &FeatureContext{}))
	assert.NoError(t, ff.DisableFeature(FeatureScoringStreakBonus))
	assert.Empty(t, ff.GetVariant(FeatureScoringStreakBonus, ctx))
}

func TestGetAllFeaturesReturnsCopies(t *testing.T) {
	ff := LoadFeatureFlags()

	f := ff.GetAllFeatures()[FeatureBadgesSkill]
	f.RolloutPercent = 5

	assert.Equal(t, 100, ff.GetAllFeatures()[FeatureBadgesSkill].RolloutPercent)
}
