package reward

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codequest-hub/gamification-engine/config"
	"github.com/codequest-hub/gamification-engine/internal/domain/badge"
	"github.com/codequest-hub/gamification-engine/internal/domain/points"
	"github.com/codequest-hub/gamification-engine/internal/domain/progress"
	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
	"github.com/codequest-hub/gamification-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REWARD FLOW
// Business process: reward a single learner-activity event.
// Flow: Load User State → Compute Points → Build Evaluation Context →
//
//	Evaluate Badge Catalog → Persist Points → Submit to Ledger →
//	Achievements → Rank Delta → Publish Events
//
// Failing to load user state aborts the event (no partial reward).
// Ledger, rank, and event-bus failures are non-fatal: they are logged
// and degrade the affected output instead of rolling anything back.
// ══════════════════════════════════════════════════════════════════════════════

// Step identifies a stage of the reward flow.
type Step string

const (
	StepLoadUserState   Step = "load_user_state"
	StepComputePoints   Step = "compute_points"
	StepBuildContext    Step = "build_evaluation_context"
	StepEvaluateCatalog Step = "evaluate_badge_catalog"
	StepPersistAwards   Step = "persist_awards"
	StepPersistPoints   Step = "persist_points"
	StepSubmitLedger    Step = "submit_ledger"
	StepAchievements    Step = "achievements"
	StepRankDelta       Step = "rank_delta"
	StepPublishEvents   Step = "publish_events"
	StepComplete        Step = "complete"
)

// flowState tracks one event's progress through the flow.
type flowState struct {
	CurrentStep Step
	Event       *Event
	EvaluatedAt time.Time

	Progress    *shared.UserProgress
	Points      *points.Calculation
	Streak      *points.Calculation
	EvalCtx     *badge.EvaluationContext
	Eligible    []*badge.Award
	RarityBonus []*points.Calculation
	Updated     *shared.UserProgress

	FailedStep Step
	Err        error
}

// Config tunes the orchestrator.
type Config struct {
	// MaxBadgesPerEvent caps how many badges one event can award.
	MaxBadgesPerEvent int

	// EnableRarityBonuses grants the flat per-rarity point bonuses
	// alongside awarded badges.
	EnableRarityBonuses bool
}

// DefaultConfig returns the standard orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		MaxBadgesPerEvent:   5, // keeps a misconfigured catalog from flooding a user
		EnableRarityBonuses: true,
	}
}

// Dependencies wires the orchestrator's collaborators. Store, Points,
// and Badges are required; the rest are optional and degrade to no-ops.
// Without Awards there is no durable history, so badges are re-evaluated
// from scratch on every event (acceptable only for tests and the
// in-memory development mode). Nil Flags means every feature is on.
type Dependencies struct {
	Store   progress.Store
	Points  *points.Calculator
	Badges  *badge.Calculator
	Awards  AwardStore
	Ledger  CredentialLedger
	Ranks   RankTracker
	Events  shared.EventPublisher
	Metrics Metrics
	Flags   *config.FeatureFlags
	Logger  *logger.Logger
}

// Orchestrator sequences the reward flow for each of the four event
// kinds. It is safe for concurrent use; concurrent events for the same
// user race on the external progress store, whose atomic increment is a
// required property of that collaborator.
type Orchestrator struct {
	store   progress.Store
	points  *points.Calculator
	badges  *badge.Calculator
	awards  AwardStore
	ledger  CredentialLedger
	ranks   RankTracker
	events  shared.EventPublisher
	metrics Metrics
	flags   *config.FeatureFlags
	log     *logger.Logger
	cfg     Config
}

// NewOrchestrator creates a reward orchestrator.
func NewOrchestrator(deps Dependencies, cfg Config) *Orchestrator {
	if cfg.MaxBadgesPerEvent <= 0 {
		cfg.MaxBadgesPerEvent = DefaultConfig().MaxBadgesPerEvent
	}
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.New(logger.DefaultOptions())
	}
	return &Orchestrator{
		store:   deps.Store,
		points:  deps.Points,
		badges:  deps.Badges,
		awards:  deps.Awards,
		ledger:  deps.Ledger,
		ranks:   deps.Ranks,
		events:  deps.Events,
		metrics: deps.Metrics,
		flags:   deps.Flags,
		log:     deps.Logger,
		cfg:     cfg,
	}
}

// categoryFeature maps a badge category to the flag that gates it.
var categoryFeature = map[badge.Category]string{
	badge.CategorySkill:       config.FeatureBadgesSkill,
	badge.CategoryAchievement: config.FeatureBadgesAchievement,
	badge.CategorySpecial:     config.FeatureBadgesSpecial,
	badge.CategoryCommunity:   config.FeatureBadgesCommunity,
}

// featureOn consults the feature flags for this event's user. A nil
// flag set means everything is enabled.
func (o *Orchestrator) featureOn(name string, state *flowState) bool {
	if o.flags == nil {
		return true
	}
	return o.flags.IsEnabled(name, o.featureCtx(state))
}

func (o *Orchestrator) featureCtx(state *flowState) *config.FeatureContext {
	fctx := &config.FeatureContext{UserID: state.Event.UserID.String()}
	if state.Progress != nil {
		fctx.Cohort = state.Progress.Cohort
	}
	return fctx
}

// applicableCategories maps an event kind to the badge catalogs worth
// evaluating for it.
func applicableCategories(kind EventKind) []badge.Category {
	switch kind {
	case EventCodeAnalysis:
		return []badge.Category{badge.CategorySkill, badge.CategoryAchievement}
	case EventChallengeCompletion:
		return []badge.Category{badge.CategorySkill, badge.CategoryAchievement, badge.CategorySpecial}
	case EventPeerReview:
		return []badge.Category{badge.CategoryAchievement, badge.CategoryCommunity}
	case EventCommunityContribution:
		return []badge.Category{badge.CategoryCommunity, badge.CategorySpecial}
	default:
		return nil
	}
}

// Process runs the complete reward flow for one event.
func (o *Orchestrator) Process(ctx context.Context, event *Event) (*Result, error) {
	started := time.Now()

	if err := event.Validate(); err != nil {
		o.metrics.EventProcessed(event.Kind, false, time.Since(started))
		return nil, err
	}

	state := &flowState{
		CurrentStep: StepLoadUserState,
		Event:       event,
		EvaluatedAt: event.OccurredAt,
	}
	if state.EvaluatedAt.IsZero() {
		state.EvaluatedAt = time.Now().UTC()
	}

	// Step 1: load user state. Fatal on failure - no partial reward.
	if err := o.stepLoadUserState(ctx, state); err != nil {
		o.metrics.EventProcessed(event.Kind, false, time.Since(started))
		return nil, o.wrapError(state, err)
	}

	// Step 2: compute points. Pure; cannot fail.
	state.CurrentStep = StepComputePoints
	o.stepComputePoints(state)

	// Step 3: build the per-event evaluation context.
	state.CurrentStep = StepBuildContext
	o.stepBuildContext(state)

	// Step 4: evaluate every applicable catalog entry independently,
	// skipping badges the user already holds.
	state.CurrentStep = StepEvaluateCatalog
	o.stepEvaluateCatalog(ctx, state)

	// Step 5: persist the awards. Fatal on failure; a lost duplicate
	// race or a sold-out edition just drops that one award. Runs before
	// the point update so dropped awards never leave bonus points behind.
	state.CurrentStep = StepPersistAwards
	if err := o.stepPersistAwards(ctx, state); err != nil {
		o.metrics.EventProcessed(event.Kind, false, time.Since(started))
		return nil, o.wrapError(state, err)
	}

	// Step 6: persist the point award. Fatal on failure.
	state.CurrentStep = StepPersistPoints
	if err := o.stepPersistPoints(ctx, state); err != nil {
		o.metrics.EventProcessed(event.Kind, false, time.Since(started))
		return nil, o.wrapError(state, err)
	}

	result := &Result{
		EventID:        event.ID,
		UserID:         event.UserID,
		Points:         state.Points,
		StreakBonus:    state.Streak,
		RarityBonuses:  state.RarityBonus,
		TotalAwarded:   totalAwarded(state),
		NewTotalPoints: state.Updated.TotalPoints,
		Badges:         state.Eligible,
	}

	// Step 7: submit awards to the credential ledger. Non-fatal: a
	// failure degrades the badge to unverified and is logged per badge.
	state.CurrentStep = StepSubmitLedger
	o.stepSubmitLedger(ctx, state)

	// Step 8: recompute achievement progress from the updated totals.
	state.CurrentStep = StepAchievements
	result.Achievements = o.stepAchievements(state)

	// Step 9: rank delta around the point update. Non-fatal.
	state.CurrentStep = StepRankDelta
	o.stepRankDelta(ctx, state, result)

	// Step 10: publish domain events. Non-fatal - consumers can rebuild.
	state.CurrentStep = StepPublishEvents
	o.stepPublishEvents(state, result)

	state.CurrentStep = StepComplete
	result.ProcessedAt = time.Now().UTC()

	o.metrics.EventProcessed(event.Kind, true, time.Since(started))
	o.metrics.PointsAwarded(event.Kind, result.TotalAwarded)
	for _, award := range result.Badges {
		o.metrics.BadgeAwarded(award.Rarity, award.VerificationStatus == badge.VerificationVerified)
	}

	o.log.Info("reward event processed",
		logger.String("event_id", event.ID),
		logger.String("kind", string(event.Kind)),
		logger.String("user_id", event.UserID.String()),
		logger.Int("points", result.TotalAwarded),
		logger.Int("badges", len(result.Badges)),
	)
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FLOW STEPS
// ══════════════════════════════════════════════════════════════════════════════

func (o *Orchestrator) stepLoadUserState(ctx context.Context, state *flowState) error {
	p, err := o.store.Get(ctx, state.Event.UserID)
	if err != nil {
		state.FailedStep = StepLoadUserState
		state.Err = fmt.Errorf("failed to load user state: %w", err)
		return state.Err
	}
	state.Progress = p
	return nil
}

func (o *Orchestrator) stepComputePoints(state *flowState) {
	event := state.Event
	switch event.Kind {
	case EventCodeAnalysis:
		state.Points = o.points.CodeSubmission(scoresOf(event.Analysis), event.Tier)
	case EventChallengeCompletion:
		in := points.ChallengeCompletionInput{
			Tier:            event.Challenge.Tier,
			SubmissionScore: event.Submission.Score,
			TimeLimit:       event.Challenge.TimeLimit,
		}
		if event.Timing != nil {
			in.Elapsed = event.Timing.SubmissionTime
		}
		if event.Analysis != nil {
			scores := scoresOf(event.Analysis)
			in.Analysis = &scores
		}
		state.Points = o.points.ChallengeCompletion(in)
	case EventPeerReview:
		state.Points = o.points.PeerReview(*event.Review)
	case EventCommunityContribution:
		state.Points = o.points.CommunityContribution(*event.Contribution)
	}

	if event.Timing != nil && event.Timing.StreakDays > 0 &&
		o.featureOn(config.FeatureScoringStreakBonus, state) {
		state.Streak = o.points.StreakBonus(event.Timing.StreakDays)
	}
}

func (o *Orchestrator) stepBuildContext(state *flowState) {
	state.EvalCtx = &badge.EvaluationContext{
		UserID:          state.Event.UserID,
		Progress:        state.Progress,
		Analysis:        state.Event.Analysis,
		Challenge:       state.Event.Challenge,
		Submission:      state.Event.Submission,
		PeerReviewScore: state.Event.PeerReviewScore,
		Timing:          state.Event.Timing,
		EvaluatedAt:     state.EvaluatedAt,
	}
}

func (o *Orchestrator) stepEvaluateCatalog(ctx context.Context, state *flowState) {
	// Kill switch: with every badge category off, skip the catalog walk.
	if o.flags != nil && !o.flags.BadgesEnabled(o.featureCtx(state)) {
		return
	}
	catalog := o.badges.Catalog()
	for _, category := range applicableCategories(state.Event.Kind) {
		if !o.featureOn(categoryFeature[category], state) {
			continue
		}
		for _, def := range catalog.ByCategory(category) {
			if len(state.Eligible) >= o.cfg.MaxBadgesPerEvent {
				return
			}
			if o.alreadyHeld(ctx, state, def.Name) {
				continue
			}
			res := o.badges.EvaluateEligibility(def.Name, state.EvalCtx)
			if !res.IsEligible {
				continue
			}
			state.Eligible = append(state.Eligible, res.Award)
		}
	}
}

// alreadyHeld filters out badges the user was granted on an earlier
// event. On a store error the badge is skipped rather than risking a
// double grant; the next event for the user retries it.
func (o *Orchestrator) alreadyHeld(ctx context.Context, state *flowState, badgeName string) bool {
	if o.awards == nil {
		return false
	}
	held, err := o.awards.HasBadge(ctx, state.Event.UserID, badgeName)
	if err != nil {
		o.log.Warn("badge ownership check failed",
			logger.String("badge", badgeName),
			logger.String("user_id", state.Event.UserID.String()),
			logger.Err(err),
		)
		return true
	}
	return held
}

// stepPersistAwards writes each eligible award to the durable history
// before any points move. Limited editions get their serial here; a
// sold-out edition or a concurrently-won duplicate silently drops that
// award. Any other storage error aborts the event.
func (o *Orchestrator) stepPersistAwards(ctx context.Context, state *flowState) error {
	if o.awards != nil {
		kept := state.Eligible[:0]
		for _, award := range state.Eligible {
			if def, ok := o.badges.Catalog().Lookup(award.BadgeName); ok && def.EditionTotal > 0 {
				award.EditionTotal = def.EditionTotal
				serial, err := o.awards.NextEditionSerial(ctx, award.BadgeName, award.EditionTotal)
				if err != nil {
					if errors.Is(err, shared.ErrValueOutOfRange) {
						o.log.Info("limited edition sold out",
							logger.String("badge", award.BadgeName))
						continue
					}
					state.FailedStep = StepPersistAwards
					state.Err = fmt.Errorf("failed to allocate edition serial: %w", err)
					return state.Err
				}
				award.EditionSerial = serial
			}

			if err := o.awards.Save(ctx, state.Event.UserID, award); err != nil {
				if errors.Is(err, shared.ErrAlreadyExists) {
					continue
				}
				state.FailedStep = StepPersistAwards
				state.Err = fmt.Errorf("failed to persist award: %w", err)
				return state.Err
			}
			kept = append(kept, award)
		}
		state.Eligible = kept
	}

	if o.cfg.EnableRarityBonuses && o.featureOn(config.FeatureScoringRarityBonus, state) {
		for _, award := range state.Eligible {
			state.RarityBonus = append(state.RarityBonus,
				o.points.BadgeRarityBonus(award.Rarity.String()))
		}
	}
	return nil
}

func (o *Orchestrator) stepPersistPoints(ctx context.Context, state *flowState) error {
	delta := shared.ProgressDelta{
		PointsDelta:     shared.Points(totalAwarded(state)),
		SkillExperience: skillExperienceOf(state),
		StreakDays:      -1,
	}
	if state.Event.Timing != nil {
		delta.StreakDays = state.Event.Timing.StreakDays
	}

	updated, err := o.store.Update(ctx, state.Event.UserID, delta)
	if err != nil {
		state.FailedStep = StepPersistPoints
		state.Err = fmt.Errorf("failed to persist points: %w", err)
		return state.Err
	}
	state.Updated = updated
	return nil
}

func (o *Orchestrator) stepSubmitLedger(ctx context.Context, state *flowState) {
	if o.ledger == nil {
		return
	}
	for _, award := range state.Eligible {
		receipt, err := o.ledger.SubmitAward(ctx, award, award.Metadata.CodeQualityScore)
		if err != nil {
			award.VerificationStatus = badge.VerificationUnverified
			o.log.Warn("credential ledger submission failed",
				logger.String("badge", award.BadgeName),
				logger.String("award_id", award.ID),
				logger.Err(err),
			)
		} else {
			award.VerificationStatus = receipt.Status
		}
		o.settleVerification(ctx, award)
	}
}

// settleVerification records the post-ledger status on the stored award
// so the re-verification job only ever sees genuinely pending rows.
func (o *Orchestrator) settleVerification(ctx context.Context, award *badge.Award) {
	if o.awards == nil || award.VerificationStatus == badge.VerificationPending {
		return
	}
	if err := o.awards.UpdateVerification(ctx, award.ID, award.VerificationStatus); err != nil {
		o.log.Warn("verification status update failed",
			logger.String("award_id", award.ID),
			logger.Err(err),
		)
	}
}

func (o *Orchestrator) stepAchievements(state *flowState) []badge.AchievementProgress {
	var achievements []badge.AchievementProgress
	total := state.Updated.TotalExperience()
	for _, def := range o.badges.Catalog().ByCategory(badge.CategoryAchievement) {
		if def.Criteria.MinTotalPoints == nil {
			continue
		}
		achievements = append(achievements,
			o.badges.TrackAchievementProgress(state.Event.UserID, def.Name, total, *def.Criteria.MinTotalPoints))
	}
	return achievements
}

func (o *Orchestrator) stepRankDelta(ctx context.Context, state *flowState, result *Result) {
	if o.ranks == nil || state.Updated.Cohort == "" {
		return
	}
	cohort := state.Updated.Cohort
	userID := state.Event.UserID

	before, err := o.ranks.RankOf(ctx, cohort, userID)
	if err != nil {
		before = 0
	}
	if err := o.ranks.UpdateScore(ctx, cohort, userID, state.Updated.TotalPoints.Int()); err != nil {
		o.log.Warn("rank update failed", logger.String("user_id", userID.String()), logger.Err(err))
		return
	}
	after, err := o.ranks.RankOf(ctx, cohort, userID)
	if err != nil {
		o.log.Warn("rank lookup failed", logger.String("user_id", userID.String()), logger.Err(err))
		return
	}

	result.RankBefore = before
	result.RankAfter = after
	if before > 0 {
		result.RankDelta = before - after // positive = climbed
	}
}

func (o *Orchestrator) stepPublishEvents(state *flowState, result *Result) {
	if o.events == nil {
		return
	}
	userID := state.Event.UserID.String()

	publish := func(e shared.Event) {
		if err := o.events.Publish(e); err != nil {
			o.log.Warn("event publish failed",
				logger.String("type", string(e.EventType())), logger.Err(err))
		}
	}

	publish(shared.NewPointsAwardedEvent(userID, string(state.Event.Kind),
		result.TotalAwarded, result.NewTotalPoints.Int()))

	for _, award := range result.Badges {
		publish(shared.NewBadgeAwardedEvent(userID, award.ID, award.BadgeName,
			award.Rarity.String(), award.RarityScore,
			award.VerificationStatus == badge.VerificationVerified))
	}

	for _, a := range result.UnlockedAchievements() {
		publish(shared.NewAchievementUnlockedEvent(userID, a.AchievementID, a.CurrentValue, a.TargetValue))
	}

	if result.RankDelta != 0 {
		publish(shared.NewRankChangedEvent(userID, result.RankBefore, result.RankAfter,
			result.NewTotalPoints.Int()))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func totalAwarded(state *flowState) int {
	total := state.Points.TotalPoints
	if state.Streak != nil {
		total += state.Streak.TotalPoints
	}
	for _, calc := range state.RarityBonus {
		total += calc.TotalPoints
	}
	return total
}

// skillExperienceOf credits each skill the analyzer confirmed with the
// calculation's base points.
func skillExperienceOf(state *flowState) map[shared.SkillID]int {
	if state.Event.Analysis == nil || len(state.Event.Analysis.DetectedSkills) == 0 {
		return nil
	}
	xp := make(map[shared.SkillID]int, len(state.Event.Analysis.DetectedSkills))
	for _, skill := range state.Event.Analysis.DetectedSkills {
		xp[skill] = state.Points.BasePoints
	}
	return xp
}

func scoresOf(a *shared.CodeAnalysis) points.CodeScores {
	return points.CodeScores{
		Quality:       a.QualityScore,
		Efficiency:    a.EfficiencyScore,
		Creativity:    a.CreativityScore,
		BestPractices: a.BestPracticesScore,
	}
}

func (o *Orchestrator) wrapError(state *flowState, err error) error {
	return fmt.Errorf("reward flow failed at step %q for event %q: %w",
		state.CurrentStep, state.Event.ID, err)
}
