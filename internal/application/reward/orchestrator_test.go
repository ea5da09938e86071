package reward

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codequest-hub/gamification-engine/config"
	"github.com/codequest-hub/gamification-engine/internal/domain/badge"
	"github.com/codequest-hub/gamification-engine/internal/domain/difficulty"
	"github.com/codequest-hub/gamification-engine/internal/domain/points"
	"github.com/codequest-hub/gamification-engine/internal/domain/progress"
	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test doubles
// ─────────────────────────────────────────────────────────────────────────────

type stubLedger struct {
	receipt *LedgerReceipt
	err     error
	calls   int
}

func (l *stubLedger) SubmitAward(ctx context.Context, award *badge.Award, qualityScore float64) (*LedgerReceipt, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.receipt, nil
}

type stubAwards struct {
	held      map[string]bool
	saved     []*badge.Award
	serial    int
	serialErr error
	saveErr   error
	heldErr   error
	verified  map[string]badge.VerificationStatus
}

func newStubAwards() *stubAwards {
	return &stubAwards{
		held:     make(map[string]bool),
		verified: make(map[string]badge.VerificationStatus),
	}
}

func (s *stubAwards) Save(ctx context.Context, userID shared.UserID, award *badge.Award) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, award)
	s.held[userID.String()+"/"+award.BadgeName] = true
	return nil
}

func (s *stubAwards) HasBadge(ctx context.Context, userID shared.UserID, badgeName string) (bool, error) {
	if s.heldErr != nil {
		return false, s.heldErr
	}
	return s.held[userID.String()+"/"+badgeName], nil
}

func (s *stubAwards) NextEditionSerial(ctx context.Context, badgeName string, editionTotal int) (int, error) {
	if s.serialErr != nil {
		return 0, s.serialErr
	}
	s.serial++
	return s.serial, nil
}

func (s *stubAwards) UpdateVerification(ctx context.Context, awardID string, status badge.VerificationStatus) error {
	s.verified[awardID] = status
	return nil
}

type stubRanks struct {
	ranks  map[string]int64
	scores map[string]int
}

func newStubRanks() *stubRanks {
	return &stubRanks{ranks: make(map[string]int64), scores: make(map[string]int)}
}

func (r *stubRanks) RankOf(ctx context.Context, cohort string, userID shared.UserID) (int64, error) {
	rank, ok := r.ranks[cohort+"/"+userID.String()]
	if !ok {
		return 0, ErrRankUnavailable
	}
	return rank, nil
}

func (r *stubRanks) UpdateScore(ctx context.Context, cohort string, userID shared.UserID, totalPoints int) error {
	key := cohort + "/" + userID.String()
	r.scores[key] = totalPoints
	if _, ok := r.ranks[key]; !ok {
		r.ranks[key] = 1
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Setup
// ─────────────────────────────────────────────────────────────────────────────

func seededStore(totalXP int) *progress.MemoryStore {
	store := progress.NewMemoryStore()
	store.Seed(shared.UserProgress{
		UserID:      "user-1",
		TotalPoints: 500,
		Cohort:      "2026-spring",
		Skills: map[shared.SkillID]shared.SkillLevel{
			"python": {Level: 3, ExperiencePoints: totalXP},
		},
	})
	return store
}

func testOrchestrator(store progress.Store, ledger CredentialLedger, ranks RankTracker) *Orchestrator {
	return NewOrchestrator(Dependencies{
		Store:  store,
		Points: points.NewCalculator(points.DefaultConfig()),
		Badges: badge.NewCalculator(badge.DefaultCatalog(), badge.CalculatorConfig{}),
		Ledger: ledger,
		Ranks:  ranks,
	}, DefaultConfig())
}

func testOrchestratorWithAwards(store progress.Store, awards AwardStore, ledger CredentialLedger, flags *config.FeatureFlags) *Orchestrator {
	return NewOrchestrator(Dependencies{
		Store:  store,
		Points: points.NewCalculator(points.DefaultConfig()),
		Badges: badge.NewCalculator(badge.DefaultCatalog(), badge.CalculatorConfig{}),
		Awards: awards,
		Ledger: ledger,
		Flags:  flags,
	}, DefaultConfig())
}

func peerReviewEvent(id string) *Event {
	return &Event{
		ID:     id,
		Kind:   EventPeerReview,
		UserID: "user-1",
		Review: &points.PeerReviewInput{
			Rating:       5,
			ReviewLength: 300,
			Helpfulness:  5,
		},
	}
}

func communityEvent(id string) *Event {
	return &Event{
		ID:     id,
		Kind:   EventCommunityContribution,
		UserID: "user-1",
		Contribution: &points.CommunityContributionInput{
			Kind:     points.ContributionBugReport,
			Impact:   points.ImpactHigh,
			Votes:    10,
			Accepted: true,
		},
	}
}

func codeAnalysisEvent() *Event {
	return &Event{
		ID:     "evt-1",
		Kind:   EventCodeAnalysis,
		UserID: "user-1",
		Tier:   difficulty.TierIntermediate,
		Analysis: &shared.CodeAnalysis{
			QualityScore:       90,
			EfficiencyScore:    80,
			CreativityScore:    70,
			BestPracticesScore: 85,
			DetectedSkills:     []shared.SkillID{"python"},
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestProcess_CodeAnalysisAwardsPointsAndBadge(t *testing.T) {
	store := seededStore(50)
	ledger := &stubLedger{receipt: &LedgerReceipt{Status: badge.VerificationVerified}}
	orch := testOrchestrator(store, ledger, nil)

	result, err := orch.Process(context.Background(), codeAnalysisEvent())
	assert.NoError(t, err)

	assert.Equal(t, "evt-1", result.EventID)
	assert.Positive(t, result.Points.TotalPoints)
	assert.Positive(t, result.TotalAwarded)

	// Python Pioneer: skill level 3 and python detected.
	assert.NotEmpty(t, result.Badges)
	assert.Equal(t, "Python Pioneer", result.Badges[0].BadgeName)
	assert.Equal(t, badge.VerificationVerified, result.Badges[0].VerificationStatus)
	assert.Equal(t, 1, ledger.calls)

	// Rarity bonus line accompanies the badge.
	assert.Len(t, result.RarityBonuses, 1)

	// The store saw the full point delta.
	updated, _ := store.Get(context.Background(), "user-1")
	assert.Equal(t, shared.Points(500+result.TotalAwarded), updated.TotalPoints)
}

func TestProcess_LedgerFailureDegradesToUnverified(t *testing.T) {
	store := seededStore(50)
	ledger := &stubLedger{err: errors.New("ledger down")}
	orch := testOrchestrator(store, ledger, nil)

	result, err := orch.Process(context.Background(), codeAnalysisEvent())
	assert.NoError(t, err)

	// Points survive a ledger outage; badges degrade, never disappear.
	assert.Positive(t, result.TotalAwarded)
	assert.NotEmpty(t, result.Badges)
	for _, award := range result.Badges {
		assert.Equal(t, badge.VerificationUnverified, award.VerificationStatus)
	}
}

func TestProcess_UnknownUserIsFatal(t *testing.T) {
	orch := testOrchestrator(progress.NewMemoryStore(), nil, nil)

	_, err := orch.Process(context.Background(), codeAnalysisEvent())
	assert.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestProcess_InvalidEventRejected(t *testing.T) {
	orch := testOrchestrator(seededStore(0), nil, nil)

	_, err := orch.Process(context.Background(), &Event{
		ID:     "evt-bad",
		Kind:   EventCodeAnalysis,
		UserID: "user-1",
		// Analysis missing for a code analysis event.
	})
	assert.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestProcess_ChallengeCompletionWithStreak(t *testing.T) {
	store := seededStore(100)
	orch := testOrchestrator(store, nil, nil)

	result, err := orch.Process(context.Background(), &Event{
		ID:     "evt-2",
		Kind:   EventChallengeCompletion,
		UserID: "user-1",
		Challenge: &badge.Challenge{
			ID:        "ch-1",
			Tier:      difficulty.TierAdvanced,
			TimeLimit: time.Hour,
		},
		Submission: &badge.Submission{ID: "sub-1", Score: 95, Passed: true},
		Timing:     &badge.Timing{SubmissionTime: 20 * time.Minute, StreakDays: 7},
	})
	assert.NoError(t, err)

	assert.NotNil(t, result.StreakBonus)
	assert.Positive(t, result.StreakBonus.TotalPoints)

	// First Steps requires only a passing submission.
	names := make([]string, 0, len(result.Badges))
	for _, b := range result.Badges {
		names = append(names, b.BadgeName)
	}
	assert.Contains(t, names, "First Steps")

	// The streak was persisted.
	updated, _ := store.Get(context.Background(), "user-1")
	assert.Equal(t, 7, updated.StreakDays)
}

func TestProcess_PeerReviewEvent(t *testing.T) {
	orch := testOrchestrator(seededStore(40), nil, nil)

	result, err := orch.Process(context.Background(), &Event{
		ID:     "evt-3",
		Kind:   EventPeerReview,
		UserID: "user-1",
		Review: &points.PeerReviewInput{
			Rating:       5,
			ReviewLength: 300,
			Helpfulness:  5,
			FirstReview:  true,
		},
	})
	assert.NoError(t, err)
	assert.Positive(t, result.TotalAwarded)
	assert.Equal(t, result.Points.TotalPoints, result.TotalAwarded)
}

func TestProcess_RankDeltaComputed(t *testing.T) {
	store := seededStore(100)
	ranks := newStubRanks()
	ranks.ranks["2026-spring/user-1"] = 12
	orch := testOrchestrator(store, nil, ranks)

	result, err := orch.Process(context.Background(), codeAnalysisEvent())
	assert.NoError(t, err)

	assert.Equal(t, int64(12), result.RankBefore)
	assert.Equal(t, int64(12), result.RankAfter)
	assert.Zero(t, result.RankDelta)
	assert.Positive(t, ranks.scores["2026-spring/user-1"])
}

func TestProcess_BadgeCapHonored(t *testing.T) {
	store := seededStore(100)
	orch := NewOrchestrator(Dependencies{
		Store:  store,
		Points: points.NewCalculator(points.DefaultConfig()),
		Badges: badge.NewCalculator(badge.DefaultCatalog(), badge.CalculatorConfig{}),
	}, Config{MaxBadgesPerEvent: 1, EnableRarityBonuses: true})

	result, err := orch.Process(context.Background(), codeAnalysisEvent())
	assert.NoError(t, err)
	assert.LessOrEqual(t, len(result.Badges), 1)
}

func TestProcess_AchievementProgressRecomputed(t *testing.T) {
	// 150 XP plus the event's skill experience crosses Century Club's 100.
	orch := testOrchestrator(seededStore(150), nil, nil)

	result, err := orch.Process(context.Background(), codeAnalysisEvent())
	assert.NoError(t, err)

	var century *badge.AchievementProgress
	for i := range result.Achievements {
		if result.Achievements[i].AchievementID == "Century Club" {
			century = &result.Achievements[i]
		}
	}
	assert.NotNil(t, century)
	assert.True(t, century.IsCompleted)
	assert.Nil(t, century.EstimatedCompletion)
}

func TestProcess_BadgeNotReawardedOnRepeatEvent(t *testing.T) {
	store := seededStore(150)
	awards := newStubAwards()
	orch := testOrchestratorWithAwards(store, awards, nil, nil)

	first, err := orch.Process(context.Background(), peerReviewEvent("evt-10"))
	assert.NoError(t, err)

	names := make([]string, 0, len(first.Badges))
	for _, b := range first.Badges {
		names = append(names, b.BadgeName)
	}
	assert.Contains(t, names, "Century Club")
	assert.Contains(t, names, "Bug Hunter")

	// The same user submitting the same kind of event again holds the
	// badges already; nothing is granted twice.
	second, err := orch.Process(context.Background(), peerReviewEvent("evt-11"))
	assert.NoError(t, err)
	assert.Empty(t, second.Badges)
	assert.Empty(t, second.RarityBonuses)
	assert.Equal(t, second.Points.TotalPoints, second.TotalAwarded)
	assert.Len(t, awards.saved, len(first.Badges))
}

func TestProcess_AwardsPersistedAndVerificationSettled(t *testing.T) {
	awards := newStubAwards()
	ledger := &stubLedger{receipt: &LedgerReceipt{Status: badge.VerificationVerified}}
	orch := testOrchestratorWithAwards(seededStore(50), awards, ledger, nil)

	result, err := orch.Process(context.Background(), codeAnalysisEvent())
	assert.NoError(t, err)

	assert.Len(t, awards.saved, 1)
	assert.Equal(t, "Python Pioneer", awards.saved[0].BadgeName)
	assert.Equal(t, badge.VerificationVerified, awards.verified[awards.saved[0].ID])
	assert.Len(t, result.Badges, 1)
}

func TestProcess_AwardPersistFailureAborts(t *testing.T) {
	store := seededStore(50)
	awards := newStubAwards()
	awards.saveErr = errors.New("db down")
	orch := testOrchestratorWithAwards(store, awards, nil, nil)

	_, err := orch.Process(context.Background(), codeAnalysisEvent())
	assert.Error(t, err)

	// No points moved for the aborted event.
	p, _ := store.Get(context.Background(), "user-1")
	assert.Equal(t, shared.Points(500), p.TotalPoints)
}

func TestProcess_OwnershipCheckFailureSkipsBadge(t *testing.T) {
	awards := newStubAwards()
	awards.heldErr = errors.New("store timeout")
	orch := testOrchestratorWithAwards(seededStore(50), awards, nil, nil)

	result, err := orch.Process(context.Background(), codeAnalysisEvent())
	assert.NoError(t, err)

	// When ownership cannot be confirmed the badge is withheld rather
	// than risking a duplicate grant.
	assert.Empty(t, result.Badges)
	assert.Empty(t, awards.saved)
}

func TestProcess_LimitedEditionSerialAllocated(t *testing.T) {
	awards := newStubAwards()
	orch := testOrchestratorWithAwards(seededStore(150), awards, nil, nil)

	result, err := orch.Process(context.Background(), communityEvent("evt-20"))
	assert.NoError(t, err)

	var founding *badge.Award
	for _, b := range result.Badges {
		if b.BadgeName == "Founding Cohort" {
			founding = b
		}
	}
	assert.NotNil(t, founding)
	assert.Equal(t, 1, founding.EditionSerial)
	assert.Equal(t, 100, founding.EditionTotal)
}

func TestProcess_SoldOutEditionDropped(t *testing.T) {
	awards := newStubAwards()
	awards.serialErr = shared.ErrValueOutOfRange
	orch := testOrchestratorWithAwards(seededStore(150), awards, nil, nil)

	result, err := orch.Process(context.Background(), communityEvent("evt-21"))
	assert.NoError(t, err)

	// The sold-out edition is dropped; the open badge still lands, and
	// only it earns a rarity bonus.
	assert.Len(t, result.Badges, 1)
	assert.Equal(t, "Bug Hunter", result.Badges[0].BadgeName)
	assert.Len(t, result.RarityBonuses, 1)
}

func TestProcess_DuplicateRaceDropped(t *testing.T) {
	awards := newStubAwards()
	awards.saveErr = shared.ErrAlreadyExists
	orch := testOrchestratorWithAwards(seededStore(50), awards, nil, nil)

	result, err := orch.Process(context.Background(), codeAnalysisEvent())
	assert.NoError(t, err)
	assert.Empty(t, result.Badges)
	assert.Empty(t, result.RarityBonuses)
}

func TestProcess_SkillBadgeFlagDisabled(t *testing.T) {
	flags := config.LoadFeatureFlags()
	assert.NoError(t, flags.DisableFeature(config.FeatureBadgesSkill))
	orch := testOrchestratorWithAwards(seededStore(50), nil, nil, flags)

	result, err := orch.Process(context.Background(), codeAnalysisEvent())
	assert.NoError(t, err)
	assert.Empty(t, result.Badges)
}

func TestProcess_RarityBonusFlagDisabled(t *testing.T) {
	flags := config.LoadFeatureFlags()
	assert.NoError(t, flags.DisableFeature(config.FeatureScoringRarityBonus))
	orch := testOrchestratorWithAwards(seededStore(50), nil, nil, flags)

	result, err := orch.Process(context.Background(), codeAnalysisEvent())
	assert.NoError(t, err)
	assert.NotEmpty(t, result.Badges)
	assert.Empty(t, result.RarityBonuses)
	assert.Equal(t, result.Points.TotalPoints, result.TotalAwarded)
}

func TestProcess_StreakBonusFlagDisabled(t *testing.T) {
	flags := config.LoadFeatureFlags()
	assert.NoError(t, flags.DisableFeature(config.FeatureScoringStreakBonus))
	orch := testOrchestratorWithAwards(seededStore(100), nil, nil, flags)

	result, err := orch.Process(context.Background(), &Event{
		ID:     "evt-22",
		Kind:   EventChallengeCompletion,
		UserID: "user-1",
		Challenge: &badge.Challenge{
			ID:        "ch-1",
			Tier:      difficulty.TierAdvanced,
			TimeLimit: time.Hour,
		},
		Submission: &badge.Submission{ID: "sub-1", Score: 95, Passed: true},
		Timing:     &badge.Timing{SubmissionTime: 20 * time.Minute, StreakDays: 7},
	})
	assert.NoError(t, err)
	assert.Nil(t, result.StreakBonus)
}

func TestEventKind_IsValid(t *testing.T) {
	assert.True(t, EventCodeAnalysis.IsValid())
	assert.True(t, EventCommunityContribution.IsValid())
	assert.False(t, EventKind("login").IsValid())
}

func TestEvent_Validate(t *testing.T) {
	valid := codeAnalysisEvent()
	assert.NoError(t, valid.Validate())

	noUser := codeAnalysisEvent()
	noUser.UserID = ""
	assert.Error(t, noUser.Validate())

	badKind := codeAnalysisEvent()
	badKind.Kind = "login"
	assert.Error(t, badKind.Validate())

	noContribution := &Event{ID: "x", Kind: EventCommunityContribution, UserID: "user-1"}
	assert.Error(t, noContribution.Validate())
}

func TestResult_UnlockedAchievements(t *testing.T) {
	r := &Result{Achievements: []badge.AchievementProgress{
		{AchievementID: "a", IsCompleted: true},
		{AchievementID: "b", IsCompleted: false},
		{AchievementID: "c", IsCompleted: true},
	}}

	unlocked := r.UnlockedAchievements()
	assert.Len(t, unlocked, 2)
	assert.Equal(t, "a", unlocked[0].AchievementID)
}
