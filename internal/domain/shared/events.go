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
	// Identity events
	EventEmailLinked    EventType = "identity.email_linked"
	EventAccountLinked  EventType = "identity.account_linked"
	EventAccountCreated EventType = "identity.account_created"

	// Progress events
	EventRecordSaved        EventType = "progress.record_saved"
	EventMigrationCompleted EventType = "progress.migration_completed"
	EventXPGained           EventType = "progress.xp_gained"

	// Learning events
	EventUnitCompleted EventType = "learning.unit_completed"
	EventUnitUnlocked  EventType = "learning.unit_unlocked"

	// Streak events
	EventStreakUpdated EventType = "streak.updated"
	EventStreakBroken  EventType = "streak.broken"

	// Achievement events
	EventAchievementGranted EventType = "achievement.granted"

	// System events
	EventStaleVisitorsSwept EventType = "system.stale_visitors_swept"
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
// Identity Events
// ═══════════════════════════════════════════════════════════════════════════

// EmailLinkedEvent is emitted when a visitor's records are linked to an email.
type EmailLinkedEvent struct {
	BaseEvent
	VisitorID     string `json:"visitor_id"`
	Email         string `json:"email"`
	RecordsLinked int    `json:"records_linked"`
	RecordsKept   int    `json:"records_kept"` // already linked to a different email
}

// Payload implements Event interface.
func (e EmailLinkedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"visitor_id":     e.VisitorID,
		"email":          e.Email,
		"records_linked": e.RecordsLinked,
		"records_kept":   e.RecordsKept,
	}
}

// NewEmailLinkedEvent creates a new EmailLinkedEvent.
func NewEmailLinkedEvent(visitorID, email string, linked, kept int) EmailLinkedEvent {
	return EmailLinkedEvent{
		BaseEvent:     NewBaseEvent(EventEmailLinked, visitorID),
		VisitorID:     visitorID,
		Email:         email,
		RecordsLinked: linked,
		RecordsKept:   kept,
	}
}

// AccountLinkedEvent is emitted when a visitor's records are linked to an account.
type AccountLinkedEvent struct {
	BaseEvent
	VisitorID     string `json:"visitor_id"`
	AccountID     string `json:"account_id"`
	RecordsLinked int    `json:"records_linked"`
	RecordsKept   int    `json:"records_kept"`
}

// Payload implements Event interface.
func (e AccountLinkedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"visitor_id":     e.VisitorID,
		"account_id":     e.AccountID,
		"records_linked": e.RecordsLinked,
		"records_kept":   e.RecordsKept,
	}
}

// NewAccountLinkedEvent creates a new AccountLinkedEvent.
func NewAccountLinkedEvent(visitorID, accountID string, linked, kept int) AccountLinkedEvent {
	return AccountLinkedEvent{
		BaseEvent:     NewBaseEvent(EventAccountLinked, visitorID),
		VisitorID:     visitorID,
		AccountID:     accountID,
		RecordsLinked: linked,
		RecordsKept:   kept,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// MigrationCompletedEvent is emitted when a visitor's records finish migrating
// into permanent account storage.
type MigrationCompletedEvent struct {
	BaseEvent
	AccountID     string `json:"account_id"`
	VisitorID     string `json:"visitor_id"`
	FormsMigrated int    `json:"forms_migrated"`
	ItemsMigrated int    `json:"items_migrated"`
	Skipped       int    `json:"skipped"`
	Malformed     int    `json:"malformed"`
}

// Payload implements Event interface.
func (e MigrationCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"account_id":     e.AccountID,
		"visitor_id":     e.VisitorID,
		"forms_migrated": e.FormsMigrated,
		"items_migrated": e.ItemsMigrated,
		"skipped":        e.Skipped,
		"malformed":      e.Malformed,
	}
}

// NewMigrationCompletedEvent creates a new MigrationCompletedEvent.
func NewMigrationCompletedEvent(accountID, visitorID string, forms, items, skipped, malformed int) MigrationCompletedEvent {
	return MigrationCompletedEvent{
		BaseEvent:     NewBaseEvent(EventMigrationCompleted, accountID),
		AccountID:     accountID,
		VisitorID:     visitorID,
		FormsMigrated: forms,
		ItemsMigrated: items,
		Skipped:       skipped,
		Malformed:     malformed,
	}
}

// XPGainedEvent is emitted when an account gains XP.
type XPGainedEvent struct {
	BaseEvent
	AccountID string `json:"account_id"`
	Amount    int    `json:"amount"`
	NewTotal  int    `json:"new_total"`
	Source    string `json:"source"` // e.g., "achievement", "unit_completion"
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"account_id": e.AccountID,
		"amount":     e.Amount,
		"new_total":  e.NewTotal,
		"source":     e.Source,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(accountID string, amount, newTotal int, source string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, accountID),
		AccountID: accountID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Learning Events
// ═══════════════════════════════════════════════════════════════════════════

// UnitCompletedEvent is emitted when an account completes a course unit.
type UnitCompletedEvent struct {
	BaseEvent
	AccountID        string   `json:"account_id"`
	UnitSlug         string   `json:"unit_slug"`
	QuizScore        *float64 `json:"quiz_score,omitempty"`
	TimeSpentMinutes int      `json:"time_spent_minutes"`
}

// Payload implements Event interface.
func (e UnitCompletedEvent) Payload() map[string]interface{} {
	p := map[string]interface{}{
		"account_id":         e.AccountID,
		"unit_slug":          e.UnitSlug,
		"time_spent_minutes": e.TimeSpentMinutes,
	}
	if e.QuizScore != nil {
		p["quiz_score"] = *e.QuizScore
	}
	return p
}

// NewUnitCompletedEvent creates a new UnitCompletedEvent.
func NewUnitCompletedEvent(accountID, unitSlug string, quizScore *float64, timeSpentMinutes int) UnitCompletedEvent {
	return UnitCompletedEvent{
		BaseEvent:        NewBaseEvent(EventUnitCompleted, accountID),
		AccountID:        accountID,
		UnitSlug:         unitSlug,
		QuizScore:        quizScore,
		TimeSpentMinutes: timeSpentMinutes,
	}
}

// UnitUnlockedEvent is emitted when a unit becomes available to an account.
type UnitUnlockedEvent struct {
	BaseEvent
	AccountID string `json:"account_id"`
	UnitSlug  string `json:"unit_slug"`
	Reason    string `json:"reason"` // default, prerequisite, achievement, manual
}

// Payload implements Event interface.
func (e UnitUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"account_id": e.AccountID,
		"unit_slug":  e.UnitSlug,
		"reason":     e.Reason,
	}
}

// NewUnitUnlockedEvent creates a new UnitUnlockedEvent.
func NewUnitUnlockedEvent(accountID, unitSlug, reason string) UnitUnlockedEvent {
	return UnitUnlockedEvent{
		BaseEvent: NewBaseEvent(EventUnitUnlocked, accountID),
		AccountID: accountID,
		UnitSlug:  unitSlug,
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakUpdatedEvent is emitted when a learner's daily streak changes.
type StreakUpdatedEvent struct {
	BaseEvent
	AccountID string `json:"account_id"`
	Current   int    `json:"current"`
	Longest   int    `json:"longest"`
	Extended  bool   `json:"extended"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"account_id": e.AccountID,
		"current":    e.Current,
		"longest":    e.Longest,
		"extended":   e.Extended,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(accountID string, current, longest int, extended bool) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent: NewBaseEvent(EventStreakUpdated, accountID),
		AccountID: accountID,
		Current:   current,
		Longest:   longest,
		Extended:  extended,
	}
}

// StreakBrokenEvent is emitted when a learner's daily streak resets.
type StreakBrokenEvent struct {
	BaseEvent
	AccountID      string `json:"account_id"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"account_id":      e.AccountID,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(accountID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, accountID),
		AccountID:      accountID,
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementGrantedEvent is emitted when an account earns an achievement.
type AchievementGrantedEvent struct {
	BaseEvent
	AccountID string `json:"account_id"`
	Code      string `json:"code"`
	RewardXP  int    `json:"reward_xp"`
	Secret    bool   `json:"secret"`
}

// Payload implements Event interface.
func (e AchievementGrantedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"account_id": e.AccountID,
		"code":       e.Code,
		"reward_xp":  e.RewardXP,
		"secret":     e.Secret,
	}
}

// NewAchievementGrantedEvent creates a new AchievementGrantedEvent.
func NewAchievementGrantedEvent(accountID, code string, rewardXP int, secret bool) AchievementGrantedEvent {
	return AchievementGrantedEvent{
		BaseEvent: NewBaseEvent(EventAchievementGranted, accountID),
		AccountID: accountID,
		Code:      code,
		RewardXP:  rewardXP,
		Secret:    secret,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
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
