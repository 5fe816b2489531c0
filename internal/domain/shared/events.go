// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened to a learner profile or to the content catalog.
const (
	// Profile events
	EventProfileCreated   EventType = "profile.created"
	EventProfileUpdated   EventType = "profile.updated"
	EventProfileActivated EventType = "profile.activated"
	EventProfileDeleted   EventType = "profile.deleted"
	EventProfilesImported EventType = "profile.imported"

	// Progress events
	EventPracticeRecorded EventType = "progress.practice_recorded"
	EventStageChanged     EventType = "progress.stage_changed"

	// Session events
	EventSessionRecorded EventType = "session.recorded"
	EventStreakUpdated   EventType = "session.streak_updated"
	EventStreakBroken    EventType = "session.streak_broken"

	// Grading events
	EventGradingRecorded EventType = "grading.recorded"
	EventRankPromoted    EventType = "grading.rank_promoted"

	// System events
	EventContentReloaded EventType = "system.content_reloaded"
)

// Family returns the part of t before the first dot, e.g. "session" for
// EventStreakUpdated.
func (t EventType) Family() string {
	family, _, _ := strings.Cut(string(t), ".")
	return family
}

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
		Timestamp:   time.Now().UTC(),
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
// Profile Events
// ═══════════════════════════════════════════════════════════════════════════

// ProfileCreatedEvent is emitted when a learner profile is created.
type ProfileCreatedEvent struct {
	BaseEvent
	Name      string `json:"name"`
	BeltID    string `json:"belt_id"`
	Activated bool   `json:"activated"`
}

// Payload implements Event interface.
func (e ProfileCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":      e.Name,
		"belt_id":   e.BeltID,
		"activated": e.Activated,
	}
}

// NewProfileCreatedEvent creates a new ProfileCreatedEvent.
func NewProfileCreatedEvent(profileID, name, beltID string, activated bool) ProfileCreatedEvent {
	return ProfileCreatedEvent{
		BaseEvent: NewBaseEvent(EventProfileCreated, profileID),
		Name:      name,
		BeltID:    beltID,
		Activated: activated,
	}
}

// ProfileUpdatedEvent is emitted when profile settings change.
type ProfileUpdatedEvent struct {
	BaseEvent
	ChangedFields []string `json:"changed_fields"`
}

// Payload implements Event interface.
func (e ProfileUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"changed_fields": e.ChangedFields,
	}
}

// NewProfileUpdatedEvent creates a new ProfileUpdatedEvent.
func NewProfileUpdatedEvent(profileID string, changed []string) ProfileUpdatedEvent {
	return ProfileUpdatedEvent{
		BaseEvent:     NewBaseEvent(EventProfileUpdated, profileID),
		ChangedFields: changed,
	}
}

// ProfileActivatedEvent is emitted when the active profile switches.
type ProfileActivatedEvent struct {
	BaseEvent
	PreviousProfileID string `json:"previous_profile_id,omitempty"`
}

// Payload implements Event interface.
func (e ProfileActivatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"previous_profile_id": e.PreviousProfileID,
	}
}

// NewProfileActivatedEvent creates a new ProfileActivatedEvent.
func NewProfileActivatedEvent(profileID, previousID string) ProfileActivatedEvent {
	return ProfileActivatedEvent{
		BaseEvent:         NewBaseEvent(EventProfileActivated, profileID),
		PreviousProfileID: previousID,
	}
}

// ProfileDeletedEvent is emitted after a profile and its records are removed.
type ProfileDeletedEvent struct {
	BaseEvent
	Name      string `json:"name"`
	WasActive bool   `json:"was_active"`
}

// Payload implements Event interface.
func (e ProfileDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":       e.Name,
		"was_active": e.WasActive,
	}
}

// NewProfileDeletedEvent creates a new ProfileDeletedEvent.
func NewProfileDeletedEvent(profileID, name string, wasActive bool) ProfileDeletedEvent {
	return ProfileDeletedEvent{
		BaseEvent: NewBaseEvent(EventProfileDeleted, profileID),
		Name:      name,
		WasActive: wasActive,
	}
}

// ProfilesImportedEvent is emitted when an export document is restored.
type ProfilesImportedEvent struct {
	BaseEvent
	ProfileIDs []string `json:"profile_ids"`
	DeviceName string   `json:"device_name,omitempty"`
}

// Payload implements Event interface.
func (e ProfilesImportedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"profile_ids": e.ProfileIDs,
		"device_name": e.DeviceName,
	}
}

// NewProfilesImportedEvent creates a new ProfilesImportedEvent.
func NewProfilesImportedEvent(ids []string, deviceName string) ProfilesImportedEvent {
	return ProfilesImportedEvent{
		BaseEvent:  NewBaseEvent(EventProfilesImported, "import"),
		ProfileIDs: ids,
		DeviceName: deviceName,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// PracticeRecordedEvent is emitted for every answered item.
type PracticeRecordedEvent struct {
	BaseEvent
	ContentID string  `json:"content_id"`
	Correct   bool    `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
}

// Payload implements Event interface.
func (e PracticeRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"content_id": e.ContentID,
		"correct":    e.Correct,
		"accuracy":   e.Accuracy,
	}
}

// NewPracticeRecordedEvent creates a new PracticeRecordedEvent.
func NewPracticeRecordedEvent(profileID, contentID string, correct bool, accuracy float64) PracticeRecordedEvent {
	return PracticeRecordedEvent{
		BaseEvent: NewBaseEvent(EventPracticeRecorded, profileID),
		ContentID: contentID,
		Correct:   correct,
		Accuracy:  accuracy,
	}
}

// StageChangedEvent is emitted when an item moves to another mastery stage.
type StageChangedEvent struct {
	BaseEvent
	ContentID string `json:"content_id"`
	OldStage  string `json:"old_stage"`
	NewStage  string `json:"new_stage"`
}

// Payload implements Event interface.
func (e StageChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"content_id": e.ContentID,
		"old_stage":  e.OldStage,
		"new_stage":  e.NewStage,
	}
}

// NewStageChangedEvent creates a new StageChangedEvent.
func NewStageChangedEvent(profileID, contentID, oldStage, newStage string) StageChangedEvent {
	return StageChangedEvent{
		BaseEvent: NewBaseEvent(EventStageChanged, profileID),
		ContentID: contentID,
		OldStage:  oldStage,
		NewStage:  newStage,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionRecordedEvent is emitted when a study session is finalized.
type SessionRecordedEvent struct {
	BaseEvent
	SessionID      string        `json:"session_id"`
	SessionType    string        `json:"session_type"`
	ItemsStudied   int           `json:"items_studied"`
	CorrectAnswers int           `json:"correct_answers"`
	Accuracy       float64       `json:"accuracy"`
	Duration       time.Duration `json:"duration"`
}

// Payload implements Event interface.
func (e SessionRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":      e.SessionID,
		"session_type":    e.SessionType,
		"items_studied":   e.ItemsStudied,
		"correct_answers": e.CorrectAnswers,
		"accuracy":        e.Accuracy,
		"duration_sec":    e.Duration.Seconds(),
	}
}

// NewSessionRecordedEvent creates a new SessionRecordedEvent.
func NewSessionRecordedEvent(profileID, sessionID, sessionType string, items, correct int, accuracy float64, duration time.Duration) SessionRecordedEvent {
	return SessionRecordedEvent{
		BaseEvent:      NewBaseEvent(EventSessionRecorded, profileID),
		SessionID:      sessionID,
		SessionType:    sessionType,
		ItemsStudied:   items,
		CorrectAnswers: correct,
		Accuracy:       accuracy,
		Duration:       duration,
	}
}

// StreakUpdatedEvent is emitted when the daily streak grows.
type StreakUpdatedEvent struct {
	BaseEvent
	CurrentStreak int `json:"current_streak"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"current_streak": e.CurrentStreak,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(profileID string, current int) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent:     NewBaseEvent(EventStreakUpdated, profileID),
		CurrentStreak: current,
	}
}

// StreakBrokenEvent is emitted when a missed day resets the streak.
type StreakBrokenEvent struct {
	BaseEvent
	PreviousStreak int `json:"previous_streak"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"previous_streak": e.PreviousStreak,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(profileID string, previous int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, profileID),
		PreviousStreak: previous,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Grading Events
// ═══════════════════════════════════════════════════════════════════════════

// GradingRecordedEvent is emitted for every grading attempt.
type GradingRecordedEvent struct {
	BaseEvent
	GradingID    string `json:"grading_id"`
	BeltTested   string `json:"belt_tested"`
	BeltAchieved string `json:"belt_achieved"`
	Passed       bool   `json:"passed"`
}

// Payload implements Event interface.
func (e GradingRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"grading_id":    e.GradingID,
		"belt_tested":   e.BeltTested,
		"belt_achieved": e.BeltAchieved,
		"passed":        e.Passed,
	}
}

// NewGradingRecordedEvent creates a new GradingRecordedEvent.
func NewGradingRecordedEvent(profileID, gradingID, tested, achieved string, passed bool) GradingRecordedEvent {
	return GradingRecordedEvent{
		BaseEvent:    NewBaseEvent(EventGradingRecorded, profileID),
		GradingID:    gradingID,
		BeltTested:   tested,
		BeltAchieved: achieved,
		Passed:       passed,
	}
}

// RankPromotedEvent is emitted when a passed grading changes the profile rank.
type RankPromotedEvent struct {
	BaseEvent
	OldBeltID string `json:"old_belt_id"`
	NewBeltID string `json:"new_belt_id"`
}

// Payload implements Event interface.
func (e RankPromotedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_belt_id": e.OldBeltID,
		"new_belt_id": e.NewBeltID,
	}
}

// NewRankPromotedEvent creates a new RankPromotedEvent.
func NewRankPromotedEvent(profileID, oldBelt, newBelt string) RankPromotedEvent {
	return RankPromotedEvent{
		BaseEvent: NewBaseEvent(EventRankPromoted, profileID),
		OldBeltID: oldBelt,
		NewBeltID: newBelt,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// System Events
// ═══════════════════════════════════════════════════════════════════════════

// ContentReloadedEvent is emitted after the catalog is swapped.
type ContentReloadedEvent struct {
	BaseEvent
	ItemCount int    `json:"item_count"`
	Version   string `json:"catalog_version"`
}

// Payload implements Event interface.
func (e ContentReloadedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"item_count":      e.ItemCount,
		"catalog_version": e.Version,
	}
}

// NewContentReloadedEvent creates a new ContentReloadedEvent.
func NewContentReloadedEvent(version string, count int) ContentReloadedEvent {
	return ContentReloadedEvent{
		BaseEvent: NewBaseEvent(EventContentReloaded, "catalog"),
		ItemCount: count,
		Version:   version,
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

// NopPublisher drops every event. Useful where no bus is wired.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }

// PublishAll publishes events in order, stopping at the first failure.
func PublishAll(p EventPublisher, events []Event) error {
	if p == nil {
		return nil
	}
	for _, e := range events {
		if err := p.Publish(e); err != nil {
			return err
		}
	}
	return nil
}
