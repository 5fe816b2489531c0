// Package eventhandler reacts to domain events after commit. Handlers feed
// analytics and achievements through the Tracker port; rule outcomes never
// depend on them.
package eventhandler

import (
	"context"
	"time"

	"github.com/tkdojang/dojang/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// TRACKER PORT
// ═══════════════════════════════════════════════════════════════════════════

// Activity is one analytics record.
type Activity struct {
	ProfileID  string
	Name       string
	Properties map[string]interface{}
	At         time.Time
}

// Achievement is an unlocked milestone.
type Achievement struct {
	ProfileID string
	Code      string
	Title     string
	At        time.Time
}

// Tracker receives analytics and achievement notifications.
type Tracker interface {
	Track(ctx context.Context, a Activity) error
	Unlock(ctx context.Context, a Achievement) error
}

// LogTracker writes activities and achievements as structured log lines.
// It is the production tracker until a remote analytics sink exists.
type LogTracker struct {
	log *logger.Logger
}

// NewLogTracker creates a LogTracker. A nil logger uses the default.
func NewLogTracker(log *logger.Logger) *LogTracker {
	if log == nil {
		log = logger.Default()
	}
	return &LogTracker{log: log.With(logger.Component("tracker"))}
}

// Track implements Tracker.
func (t *LogTracker) Track(_ context.Context, a Activity) error {
	t.log.Info("activity",
		logger.ProfileID(a.ProfileID),
		logger.String("name", a.Name),
		logger.Any("properties", a.Properties),
		logger.Time("at", a.At),
	)
	return nil
}

// Unlock implements Tracker.
func (t *LogTracker) Unlock(_ context.Context, a Achievement) error {
	t.log.Info("achievement unlocked",
		logger.ProfileID(a.ProfileID),
		logger.String("code", a.Code),
		logger.String("title", a.Title),
	)
	return nil
}

// NopTracker discards everything.
type NopTracker struct{}

// Track implements Tracker.
func (NopTracker) Track(context.Context, Activity) error { return nil }

// Unlock implements Tracker.
func (NopTracker) Unlock(context.Context, Achievement) error { return nil }
