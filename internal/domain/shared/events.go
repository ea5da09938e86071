// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Reward events
	EventPointsAwarded       EventType = "reward.points_awarded"
	EventBadgeAwarded        EventType = "reward.badge_awarded"
	EventAchievementUnlocked EventType = "reward.achievement_unlocked"
	EventMilestoneReached    EventType = "reward.milestone_reached"
	EventRankChanged         EventType = "reward.rank_changed"

	// Ledger events
	EventBadgeVerified           EventType = "ledger.badge_verified"
	EventBadgeVerificationFailed EventType = "ledger.badge_verification_failed"

	// System events
	EventCatalogLoaded EventType = "system.catalog_loaded"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Reward Events
// ═══════════════════════════════════════════════════════════════════════════

// PointsAwardedEvent is emitted when a user earns points for an activity.
type PointsAwardedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	EventKind string `json:"event_kind"` // code_submission, challenge_completion, ...
	Amount    int    `json:"amount"`
	NewTotal  int    `json:"new_total"`
}

// Payload implements Event interface.
func (e PointsAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"event_kind": e.EventKind,
		"amount":     e.Amount,
		"new_total":  e.NewTotal,
	}
}

// NewPointsAwardedEvent creates a new PointsAwardedEvent.
func NewPointsAwardedEvent(userID, eventKind string, amount, newTotal int) PointsAwardedEvent {
	return PointsAwardedEvent{
		BaseEvent: NewBaseEvent(EventPointsAwarded, userID),
		UserID:    userID,
		EventKind: eventKind,
		Amount:    amount,
		NewTotal:  newTotal,
	}
}

// BadgeAwardedEvent is emitted when a badge award is materialized.
type BadgeAwardedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	BadgeID     string `json:"badge_id"`
	BadgeName   string `json:"badge_name"`
	Rarity      string `json:"rarity"`
	RarityScore int    `json:"rarity_score"`
	Verified    bool   `json:"verified"`
}

// Payload implements Event interface.
func (e BadgeAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"badge_id":     e.BadgeID,
		"badge_name":   e.BadgeName,
		"rarity":       e.Rarity,
		"rarity_score": e.RarityScore,
		"verified":     e.Verified,
	}
}

// NewBadgeAwardedEvent creates a new BadgeAwardedEvent.
func NewBadgeAwardedEvent(userID, badgeID, badgeName, rarity string, rarityScore int, verified bool) BadgeAwardedEvent {
	return BadgeAwardedEvent{
		BaseEvent:   NewBaseEvent(EventBadgeAwarded, userID),
		UserID:      userID,
		BadgeID:     badgeID,
		BadgeName:   badgeName,
		Rarity:      rarity,
		RarityScore: rarityScore,
		Verified:    verified,
	}
}

// AchievementUnlockedEvent is emitted when an achievement reaches its target.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	AchievementID string `json:"achievement_id"`
	CurrentValue  int    `json:"current_value"`
	TargetValue   int    `json:"target_value"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"achievement_id": e.AchievementID,
		"current_value":  e.CurrentValue,
		"target_value":   e.TargetValue,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, achievementID string, current, target int) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, userID),
		UserID:        userID,
		AchievementID: achievementID,
		CurrentValue:  current,
		TargetValue:   target,
	}
}

// RankChangedEvent is emitted when a reward moves a user in the rankings.
type RankChangedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldRank  int64  `json:"old_rank"`
	NewRank  int64  `json:"new_rank"`
	Delta    int64  `json:"delta"` // positive = climbed
	NewTotal int    `json:"new_total"`
}

// Payload implements Event interface.
func (e RankChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_rank":  e.OldRank,
		"new_rank":  e.NewRank,
		"delta":     e.Delta,
		"new_total": e.NewTotal,
	}
}

// NewRankChangedEvent creates a new RankChangedEvent.
func NewRankChangedEvent(userID string, oldRank, newRank int64, newTotal int) RankChangedEvent {
	return RankChangedEvent{
		BaseEvent: NewBaseEvent(EventRankChanged, userID),
		UserID:    userID,
		OldRank:   oldRank,
		NewRank:   newRank,
		Delta:     oldRank - newRank,
		NewTotal:  newTotal,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Serialization & Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// SerializedEvent is the wire form used by persistent event transports.
type SerializedEvent struct {
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
