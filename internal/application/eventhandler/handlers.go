package eventhandler

import (
	"context"
	"fmt"

	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ACTIVITY HANDLER
// Forwards every domain event to the tracker as an activity.
// ═══════════════════════════════════════════════════════════════════════════

// ActivityHandler mirrors events into analytics.
type ActivityHandler struct {
	tracker Tracker
	log     *logger.Logger
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(tracker Tracker, log *logger.Logger) *ActivityHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ActivityHandler{tracker: tracker, log: log.With(logger.String("handler", "activity"))}
}

// Handle implements shared.EventHandler.
func (h *ActivityHandler) Handle(event shared.Event) error {
	a := Activity{
		ProfileID:  event.AggregateID(),
		Name:       string(event.EventType()),
		Properties: event.Payload(),
		At:         event.OccurredAt(),
	}
	if err := h.tracker.Track(context.Background(), a); err != nil {
		h.log.Warn("track activity failed", logger.String("event_type", a.Name), logger.Err(err))
		return fmt.Errorf("track %s: %w", a.Name, err)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT HANDLER
// Turns streak, mastery and belt events into achievements.
// ═══════════════════════════════════════════════════════════════════════════

// StreakMilestones are the streak lengths that unlock an achievement.
var StreakMilestones = []int{3, 7, 30, 100}

// AchievementHandler evaluates milestone events.
type AchievementHandler struct {
	tracker Tracker
	log     *logger.Logger
}

// NewAchievementHandler creates a new AchievementHandler.
func NewAchievementHandler(tracker Tracker, log *logger.Logger) *AchievementHandler {
	if log == nil {
		log = logger.Default()
	}
	return &AchievementHandler{tracker: tracker, log: log.With(logger.String("handler", "achievement"))}
}

// Handle implements shared.EventHandler.
func (h *AchievementHandler) Handle(event shared.Event) error {
	var unlocked []Achievement
	switch e := event.(type) {
	case shared.StreakUpdatedEvent:
		for _, m := range StreakMilestones {
			if e.CurrentStreak == m {
				unlocked = append(unlocked, Achievement{
					Code:  fmt.Sprintf("streak_%d", m),
					Title: fmt.Sprintf("%d-day study streak", m),
				})
			}
		}
	case shared.StageChangedEvent:
		if e.NewStage == "mastered" {
			unlocked = append(unlocked, Achievement{
				Code:  "mastered_" + e.ContentID,
				Title: "Mastered " + e.ContentID,
			})
		}
	case shared.RankPromotedEvent:
		unlocked = append(unlocked, Achievement{
			Code:  "belt_" + e.NewBeltID,
			Title: "Promoted to " + e.NewBeltID,
		})
	default:
		return nil
	}

	for _, a := range unlocked {
		a.ProfileID = event.AggregateID()
		a.At = event.OccurredAt()
		if err := h.tracker.Unlock(context.Background(), a); err != nil {
			h.log.Warn("unlock achievement failed", logger.String("code", a.Code), logger.Err(err))
			return fmt.Errorf("unlock %s: %w", a.Code, err)
		}
	}
	return nil
}

// Register subscribes both handlers on sub.
func Register(sub shared.EventSubscriber, tracker Tracker, log *logger.Logger) error {
	if tracker == nil {
		tracker = NopTracker{}
	}
	if err := RegisterActivity(sub, tracker, log); err != nil {
		return err
	}
	ach := NewAchievementHandler(tracker, log).Handle
	for _, t := range []shared.EventType{shared.EventStreakUpdated, shared.EventStageChanged, shared.EventRankPromoted} {
		if err := sub.Subscribe(t, ach); err != nil {
			return fmt.Errorf("subscribe achievement handler: %w", err)
		}
	}
	return nil
}

// RegisterActivity subscribes only the activity handler, for deployments
// with achievements switched off.
func RegisterActivity(sub shared.EventSubscriber, tracker Tracker, log *logger.Logger) error {
	if tracker == nil {
		tracker = NopTracker{}
	}
	if err := sub.SubscribeAll(NewActivityHandler(tracker, log).Handle); err != nil {
		return fmt.Errorf("subscribe activity handler: %w", err)
	}
	return nil
}
