package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles for the reward pipeline.
// Supports gradual rollout, cohort targeting, and time-boxed
// activation, so scoring changes can be trialled on a slice of users
// before a full release.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	userOverrides map[string]map[string]bool // userID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Users are assigned based on hash of their ID
	RolloutPercent int

	// Cohort targeting (e.g., "2026-spring", "2026-fall")
	// Empty means all cohorts
	TargetCohorts []string

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time

	// A/B test variant (for experiments)
	Variants []string
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID  string // Engine user ID
	Cohort  string // User cohort (e.g., "2026-spring")
	IsAdmin bool   // Is admin user
}

// Predefined feature flag names.
const (
	// === Scoring Features ===
	FeatureScoringStreakBonus   = "scoring.streak_bonus"   // Streak point bonuses
	FeatureScoringRarityBonus   = "scoring.rarity_bonus"   // Flat points per awarded badge
	FeatureScoringAIBonus       = "scoring.ai_bonus"       // AI-analysis bonus on challenges
	FeatureScoringSpeedBonus    = "scoring.speed_bonus"    // Fast-submission bonus
	FeatureScoringAdaptiveTiers = "scoring.adaptive_tiers" // Performance-based tier adaptation

	// === Badge Features ===
	FeatureBadgesSkill       = "badges.skill"       // Skill badge awards
	FeatureBadgesAchievement = "badges.achievement" // Achievement badge awards
	FeatureBadgesSpecial     = "badges.special"     // Limited-edition special badges
	FeatureBadgesCommunity   = "badges.community"   // Community badge awards

	// === Ledger Features ===
	FeatureLedgerSubmission = "ledger.submission" // Submit awards to the ledger
	FeatureLedgerReverify   = "ledger.reverify"   // Background re-verification

	// === Ranking Features ===
	FeatureRankingCohorts = "ranking.cohorts" // Per-cohort rank tracking
	FeatureRankingDeltas  = "ranking.deltas"  // Rank delta in results

	// === Experimental Features ===
	FeatureExperimentalVelocity = "experimental.velocity" // Per-user velocity estimates
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	enabled := func(name, description string) *Feature {
		return &Feature{
			Name:           name,
			Description:    description,
			Enabled:        true,
			RolloutPercent: 100,
		}
	}
	disabled := func(name, description string) *Feature {
		return &Feature{
			Name:        name,
			Description: description,
		}
	}

	// Scoring features - enabled by default
	ff.features[FeatureScoringStreakBonus] = enabled(FeatureScoringStreakBonus, "Streak point bonuses")
	ff.features[FeatureScoringRarityBonus] = enabled(FeatureScoringRarityBonus, "Flat point bonus per awarded badge")
	ff.features[FeatureScoringAIBonus] = enabled(FeatureScoringAIBonus, "AI-analysis bonus on challenge completions")
	ff.features[FeatureScoringSpeedBonus] = enabled(FeatureScoringSpeedBonus, "Fast-submission bonus")
	ff.features[FeatureScoringAdaptiveTiers] = enabled(FeatureScoringAdaptiveTiers, "Performance-based tier adaptation")

	// Badge features - enabled by default
	ff.features[FeatureBadgesSkill] = enabled(FeatureBadgesSkill, "Skill badge awards")
	ff.features[FeatureBadgesAchievement] = enabled(FeatureBadgesAchievement, "Achievement badge awards")
	ff.features[FeatureBadgesSpecial] = enabled(FeatureBadgesSpecial, "Limited-edition special badges")
	ff.features[FeatureBadgesCommunity] = enabled(FeatureBadgesCommunity, "Community badge awards")

	// Ledger features
	ff.features[FeatureLedgerSubmission] = enabled(FeatureLedgerSubmission, "Submit awards to the credential ledger")
	ff.features[FeatureLedgerReverify] = disabled(FeatureLedgerReverify, "Background re-verification of pending awards")

	// Ranking features
	ff.features[FeatureRankingCohorts] = enabled(FeatureRankingCohorts, "Per-cohort rank tracking")
	ff.features[FeatureRankingDeltas] = enabled(FeatureRankingDeltas, "Rank delta in reward results")

	// Experimental features - off by default
	ff.features[FeatureExperimentalVelocity] = disabled(FeatureExperimentalVelocity, "Per-user velocity estimates")
}

// loadFromEnvironment applies env-var overrides to the defaults.
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "scoring.streak_bonus" -> "FEATURE_SCORING_STREAK_BONUS"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check user overrides first
	if ctx != nil && ctx.UserID != "" {
		if userOverrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := userOverrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	// Check if feature is enabled at all
	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check cohort targeting
	if len(feature.TargetCohorts) > 0 && ctx != nil && ctx.Cohort != "" {
		cohortMatch := false
		for _, c := range feature.TargetCohorts {
			if c == ctx.Cohort {
				cohortMatch = true
				break
			}
		}
		if !cohortMatch {
			return false
		}
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return ff.isInRollout(ctx.UserID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a user is in the rollout percentage.
// Uses consistent hashing so users stay in their bucket.
func (ff *FeatureFlags) isInRollout(userID string, featureName string, percent int) bool {
	// Create a consistent hash for this user+feature combination
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// GetVariant returns the A/B test variant for a user.
// Returns empty string if no variants defined or feature disabled.
func (ff *FeatureFlags) GetVariant(featureName string, ctx *FeatureContext) string {
	if !ff.IsEnabled(featureName, ctx) {
		return ""
	}

	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ""
	}

	if len(feature.Variants) == 0 || ctx == nil || ctx.UserID == "" {
		return ""
	}

	// Use consistent hashing to assign variant
	h := fnv.New32a()
	h.Write([]byte(featureName + "_variant"))
	h.Write([]byte(ctx.UserID))
	hash := h.Sum32()

	variantIndex := int(hash % uint32(len(feature.Variants)))
	return feature.Variants[variantIndex]
}

// SetUserOverride sets a feature override for a specific user.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetUserOverride(userID string, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.userOverrides[userID]; !ok {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// ClearUserOverrides removes all overrides for a user.
func (ff *FeatureFlags) ClearUserOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, userID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		// Return a copy
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Convenience methods for common checks ---

// BadgesEnabled checks if any badge category is enabled.
func (ff *FeatureFlags) BadgesEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureBadgesSkill, ctx) ||
		ff.IsEnabled(FeatureBadgesAchievement, ctx) ||
		ff.IsEnabled(FeatureBadgesSpecial, ctx) ||
		ff.IsEnabled(FeatureBadgesCommunity, ctx)
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
