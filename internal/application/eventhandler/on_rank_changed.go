// Package eventhandler contains handlers for domain events emitted by
// the reward pipeline. Handlers are the reactive part of the engine:
// they run after an event has been processed and take care of side
// effects such as cache invalidation and milestone logging, keeping
// the scoring path itself free of those concerns.
package eventhandler

import (
	"log/slog"

	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON RANK CHANGED HANDLER
// Reacts to rank movements produced by a reward. Large climbs and
// entries into a top-N bracket are worth surfacing in the logs; small
// oscillations around a position are routine noise.
// ═══════════════════════════════════════════════════════════════════════════

// OnRankChangedHandler handles rank change events.
type OnRankChangedHandler struct {
	logger *slog.Logger
	config RankChangedConfig
}

// RankChangedConfig contains handler configuration.
type RankChangedConfig struct {
	// MinDeltaToLog is the minimum rank movement worth an info-level
	// log line. Smaller movements are logged at debug level.
	MinDeltaToLog int64

	// TopNMilestones are the brackets whose crossing is always logged,
	// regardless of delta size. Example: [10, 50, 100].
	TopNMilestones []int64
}

// DefaultRankChangedConfig returns the default configuration.
func DefaultRankChangedConfig() RankChangedConfig {
	return RankChangedConfig{
		MinDeltaToLog:  5,
		TopNMilestones: []int64{10, 50, 100},
	}
}

// NewOnRankChangedHandler creates a new rank change handler.
func NewOnRankChangedHandler(logger *slog.Logger, config RankChangedConfig) *OnRankChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnRankChangedHandler{
		logger: logger.With("handler", "on_rank_changed"),
		config: config,
	}
}

// Handle processes a rank change event.
// Implements shared.EventHandler as a method value (h.Handle).
func (h *OnRankChangedHandler) Handle(event shared.Event) error {
	rankEvent, ok := event.(shared.RankChangedEvent)
	if !ok {
		h.logger.Warn("received non-RankChangedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	if milestone, crossed := h.crossedMilestone(rankEvent); crossed {
		h.logger.Info("user entered top bracket",
			"user_id", rankEvent.UserID,
			"top_n", milestone,
			"new_rank", rankEvent.NewRank,
			"total_points", rankEvent.NewTotal,
		)
		return nil
	}

	delta := rankEvent.Delta
	if delta < 0 {
		delta = -delta
	}

	if delta >= h.config.MinDeltaToLog {
		h.logger.Info("significant rank movement",
			"user_id", rankEvent.UserID,
			"old_rank", rankEvent.OldRank,
			"new_rank", rankEvent.NewRank,
			"delta", rankEvent.Delta,
		)
	} else {
		h.logger.Debug("rank changed",
			"user_id", rankEvent.UserID,
			"old_rank", rankEvent.OldRank,
			"new_rank", rankEvent.NewRank,
			"delta", rankEvent.Delta,
		)
	}

	return nil
}

// crossedMilestone reports whether the movement took the user into a
// top-N bracket they were outside of before. OldRank of zero means the
// user was unranked, which counts as being outside every bracket.
func (h *OnRankChangedHandler) crossedMilestone(e shared.RankChangedEvent) (int64, bool) {
	for _, n := range h.config.TopNMilestones {
		wasOutside := e.OldRank == 0 || e.OldRank > n
		nowInside := e.NewRank > 0 && e.NewRank <= n
		if wasOutside && nowInside {
			return n, true
		}
	}
	return 0, false
}
