package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codequest-hub/gamification-engine/internal/domain/badge"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/ledger"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/persistence/postgres"
	"github.com/codequest-hub/gamification-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REVERIFY AWARDS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ReverifyAwardsJob re-checks pending badge awards against the
// credential ledger. A ledger outage during reward processing degrades
// awards to pending or unverified; this job settles them once the
// ledger recovers, so verification failures stay temporary instead of
// permanent.
type ReverifyAwardsJob struct {
	awards *postgres.AwardRepository
	ledger *ledger.Client
	logger *slog.Logger

	config ReverifyAwardsConfig
}

// ReverifyAwardsConfig contains configuration for the re-verify job.
type ReverifyAwardsConfig struct {
	// BatchSize caps how many pending awards one run processes.
	BatchSize int

	// MinAge skips awards newer than this, giving the ledger's own
	// asynchronous settlement time to finish first.
	MinAge time.Duration

	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultReverifyAwardsConfig returns sensible defaults.
func DefaultReverifyAwardsConfig() ReverifyAwardsConfig {
	return ReverifyAwardsConfig{
		BatchSize: 100,
		MinAge:    10 * time.Minute,
		Timeout:   2 * time.Minute,
	}
}

// NewReverifyAwardsJob creates a new award re-verification job.
func NewReverifyAwardsJob(
	awards *postgres.AwardRepository,
	ledgerClient *ledger.Client,
	logger *slog.Logger,
	config ReverifyAwardsConfig,
) *ReverifyAwardsJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &ReverifyAwardsJob{
		awards: awards,
		ledger: ledgerClient,
		logger: logger,
		config: config,
	}
}

// Name returns the job name.
func (j *ReverifyAwardsJob) Name() string {
	return "reverify_awards"
}

// Description returns a human-readable description.
func (j *ReverifyAwardsJob) Description() string {
	return "Settles pending badge awards against the credential ledger"
}

// Run executes the re-verification job.
func (j *ReverifyAwardsJob) Run(ctx context.Context) error {
	j.logger.Info("starting reverify_awards job")

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	pending, err := j.awards.ListPending(ctx, j.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending awards: %w", err)
	}

	var settled, skipped, failed int
	now := time.Now()

	for _, rec := range pending {
		if now.Sub(rec.AwardedAt) < j.config.MinAge {
			skipped++
			continue
		}

		result, err := j.ledger.GetVerification(ctx, rec.ID)
		if err != nil {
			failed++
			j.logger.Warn("ledger verification lookup failed",
				"award_id", rec.ID,
				"badge", rec.BadgeName,
				"pending_days", timeutil.DaysBetween(rec.AwardedAt, now),
				"error", err,
			)
			continue
		}

		if result.Status == badge.VerificationPending {
			skipped++
			continue
		}

		if err := j.awards.UpdateVerification(ctx, rec.ID, result.Status); err != nil {
			failed++
			j.logger.Error("failed to update award verification",
				"award_id", rec.ID,
				"status", string(result.Status),
				"error", err,
			)
			continue
		}

		settled++
		j.logger.Info("award verification settled",
			"award_id", rec.ID,
			"badge", rec.BadgeName,
			"status", string(result.Status),
		)
	}

	j.logger.Info("reverify_awards job completed",
		"pending", len(pending),
		"settled", settled,
		"skipped", skipped,
		"failed", failed,
	)

	if failed > 0 {
		return fmt.Errorf("re-verification completed with %d failures", failed)
	}

	return nil
}
