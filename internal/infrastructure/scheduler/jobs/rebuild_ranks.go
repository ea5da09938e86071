// Package jobs contains implementations of scheduled jobs for the
// gamification engine.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/persistence/postgres"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD RANKS JOB
// ══════════════════════════════════════════════════════════════════════════════

// RebuildRanksJob rebuilds the Redis rank cache from the PostgreSQL
// point totals. The cache is updated incrementally on every reward, but
// missed events or cache eviction can let it drift; a periodic rebuild
// from the system of record keeps rankings trustworthy.
type RebuildRanksJob struct {
	store  *postgres.ProgressStore
	ranks  *redis.RankCache
	logger *slog.Logger

	config RebuildRanksConfig

	lastStats atomic.Value // *RebuildRanksStats
}

// RebuildRanksConfig contains configuration for the rebuild job.
type RebuildRanksConfig struct {
	// Cohorts restricts the rebuild to specific cohorts (empty = all
	// cohorts found in the store, plus the global ranking).
	Cohorts []string

	// Timeout is the maximum duration for the rebuild operation.
	Timeout time.Duration
}

// DefaultRebuildRanksConfig returns sensible defaults.
func DefaultRebuildRanksConfig() RebuildRanksConfig {
	return RebuildRanksConfig{
		Timeout: 5 * time.Minute,
	}
}

// RebuildRanksStats contains statistics from a rebuild run.
type RebuildRanksStats struct {
	StartedAt        time.Time
	CompletedAt      time.Time
	Duration         time.Duration
	TotalUsers       int
	CohortsProcessed int
	Errors           []error
}

// NewRebuildRanksJob creates a new rank rebuild job.
func NewRebuildRanksJob(
	store *postgres.ProgressStore,
	ranks *redis.RankCache,
	logger *slog.Logger,
	config RebuildRanksConfig,
) *RebuildRanksJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &RebuildRanksJob{
		store:  store,
		ranks:  ranks,
		logger: logger,
		config: config,
	}
}

// Name returns the job name.
func (j *RebuildRanksJob) Name() string {
	return "rebuild_ranks"
}

// Description returns a human-readable description.
func (j *RebuildRanksJob) Description() string {
	return "Rebuilds the Redis rank cache from PostgreSQL point totals"
}

// Run executes the rebuild job.
func (j *RebuildRanksJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &RebuildRanksStats{
		StartedAt: startedAt,
		Errors:    make([]error, 0),
	}

	j.logger.Info("starting rebuild_ranks job")

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	totals, err := j.store.ListTotals(ctx)
	if err != nil {
		return fmt.Errorf("failed to load point totals: %w", err)
	}

	stats.TotalUsers = len(totals)
	j.logger.Info("loaded point totals", "count", stats.TotalUsers)

	// Group scores globally and per cohort.
	global := make(map[shared.UserID]int, len(totals))
	byCohort := make(map[string]map[shared.UserID]int)
	for _, t := range totals {
		global[t.UserID] = t.TotalPoints
		if t.Cohort == "" {
			continue
		}
		if byCohort[t.Cohort] == nil {
			byCohort[t.Cohort] = make(map[shared.UserID]int)
		}
		byCohort[t.Cohort][t.UserID] = t.TotalPoints
	}

	if err := j.ranks.Rebuild(ctx, "", global); err != nil {
		stats.Errors = append(stats.Errors, err)
		j.logger.Error("failed to rebuild global ranking", "error", err)
	}

	for cohort, scores := range byCohort {
		if !j.cohortSelected(cohort) {
			continue
		}
		if err := j.ranks.Rebuild(ctx, cohort, scores); err != nil {
			stats.Errors = append(stats.Errors, err)
			j.logger.Error("failed to rebuild cohort ranking",
				"cohort", cohort,
				"error", err,
			)
			continue
		}
		stats.CohortsProcessed++
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastStats.Store(stats)

	j.logger.Info("rebuild_ranks job completed",
		"duration", stats.Duration.String(),
		"total_users", stats.TotalUsers,
		"cohorts", stats.CohortsProcessed,
	)

	if len(stats.Errors) > 0 {
		return fmt.Errorf("rebuild completed with %d errors", len(stats.Errors))
	}

	return nil
}

// cohortSelected applies the cohort allow-list, if configured.
func (j *RebuildRanksJob) cohortSelected(cohort string) bool {
	if len(j.config.Cohorts) == 0 {
		return true
	}
	for _, c := range j.config.Cohorts {
		if c == cohort {
			return true
		}
	}
	return false
}

// LastStats returns statistics from the last rebuild.
func (j *RebuildRanksJob) LastStats() *RebuildRanksStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RebuildRanksStats)
}
