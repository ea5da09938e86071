package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/codequest-hub/gamification-engine/internal/domain/badge"
	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/observability"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/persistence/redis"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON BADGE AWARDED HANDLER
// Keeps the read side consistent after a badge award: the cached
// progress snapshot for the user is stale the moment a badge lands,
// and the award shows up in the Prometheus counters.
// ═══════════════════════════════════════════════════════════════════════════

// OnBadgeAwardedHandler handles badge award events.
type OnBadgeAwardedHandler struct {
	// cache is optional: with caching disabled the handler only
	// records metrics and logs.
	cache   *redis.CachedProgressStore
	metrics *observability.PrometheusMetrics

	logger *slog.Logger
	config BadgeAwardedConfig
}

// BadgeAwardedConfig contains handler configuration.
type BadgeAwardedConfig struct {
	// InvalidateTimeout bounds the cache invalidation call. The
	// handler runs on the dispatcher's worker pool, so a hung Redis
	// connection must not hold a worker hostage.
	InvalidateTimeout time.Duration
}

// DefaultBadgeAwardedConfig returns the default configuration.
func DefaultBadgeAwardedConfig() BadgeAwardedConfig {
	return BadgeAwardedConfig{
		InvalidateTimeout: 2 * time.Second,
	}
}

// NewOnBadgeAwardedHandler creates a new badge award handler.
func NewOnBadgeAwardedHandler(
	cache *redis.CachedProgressStore,
	metrics *observability.PrometheusMetrics,
	logger *slog.Logger,
	config BadgeAwardedConfig,
) *OnBadgeAwardedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnBadgeAwardedHandler{
		cache:   cache,
		metrics: metrics,
		logger:  logger.With("handler", "on_badge_awarded"),
		config:  config,
	}
}

// Handle processes a badge award event.
// Implements shared.EventHandler as a method value (h.Handle).
func (h *OnBadgeAwardedHandler) Handle(event shared.Event) error {
	badgeEvent, ok := event.(shared.BadgeAwardedEvent)
	if !ok {
		h.logger.Warn("received non-BadgeAwardedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("badge awarded",
		"user_id", badgeEvent.UserID,
		"badge_name", badgeEvent.BadgeName,
		"rarity", badgeEvent.Rarity,
		"rarity_score", badgeEvent.RarityScore,
		"verified", badgeEvent.Verified,
	)

	if h.metrics != nil {
		h.metrics.BadgeAwarded(badge.RarityTier(badgeEvent.Rarity), badgeEvent.Verified)
	}

	if h.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), h.config.InvalidateTimeout)
		defer cancel()

		userID := shared.UserID(badgeEvent.UserID)
		if err := h.cache.Invalidate(ctx, userID); err != nil {
			// Stale cache entries expire on their own; not worth a retry.
			h.logger.Warn("failed to invalidate progress cache",
				"user_id", badgeEvent.UserID,
				"error", err,
			)
		}
	}

	return nil
}
