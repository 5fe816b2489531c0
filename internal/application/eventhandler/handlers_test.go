package eventhandler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/pkg/logger"
)

type mockTracker struct {
	mock.Mock
}

func (m *mockTracker) Track(ctx context.Context, a Activity) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockTracker) Unlock(ctx context.Context, a Achievement) error {
	return m.Called(ctx, a).Error(0)
}

func TestActivityHandler_ForwardsEvent(t *testing.T) {
	tr := new(mockTracker)
	tr.On("Track", mock.Anything, mock.MatchedBy(func(a Activity) bool {
		return a.ProfileID == "p1" && a.Name == "session.recorded" && a.Properties["items_studied"] == 12
	})).Return(nil).Once()

	h := NewActivityHandler(tr, logger.Nop())
	err := h.Handle(shared.NewSessionRecordedEvent("p1", "s1", "flashcards", 12, 9, 0.75, 0))

	require.NoError(t, err)
	tr.AssertExpectations(t)
}

func TestActivityHandler_PropagatesTrackerError(t *testing.T) {
	tr := new(mockTracker)
	tr.On("Track", mock.Anything, mock.Anything).Return(errors.New("sink down"))

	err := NewActivityHandler(tr, logger.Nop()).Handle(shared.NewProfileCreatedEvent("p1", "Mina", "10th_keup", true))
	assert.Error(t, err)
}

func TestAchievementHandler_StreakMilestones(t *testing.T) {
	tr := new(mockTracker)
	tr.On("Unlock", mock.Anything, mock.MatchedBy(func(a Achievement) bool {
		return a.Code == "streak_7" && a.ProfileID == "p1"
	})).Return(nil).Once()

	h := NewAchievementHandler(tr, logger.Nop())
	require.NoError(t, h.Handle(shared.NewStreakUpdatedEvent("p1", 7)))
	require.NoError(t, h.Handle(shared.NewStreakUpdatedEvent("p1", 8)))

	tr.AssertExpectations(t)
	tr.AssertNumberOfCalls(t, "Unlock", 1)
}

func TestAchievementHandler_MasteryAndPromotion(t *testing.T) {
	tr := new(mockTracker)
	tr.On("Unlock", mock.Anything, mock.MatchedBy(func(a Achievement) bool { return a.Code == "mastered_ap_chagi" })).Return(nil).Once()
	tr.On("Unlock", mock.Anything, mock.MatchedBy(func(a Achievement) bool { return a.Code == "belt_6th_keup" })).Return(nil).Once()

	h := NewAchievementHandler(tr, logger.Nop())
	require.NoError(t, h.Handle(shared.NewStageChangedEvent("p1", "ap_chagi", "proficient", "mastered")))
	require.NoError(t, h.Handle(shared.NewStageChangedEvent("p1", "ap_chagi", "learning", "familiar")))
	require.NoError(t, h.Handle(shared.NewRankPromotedEvent("p1", "7th_keup", "6th_keup")))

	tr.AssertExpectations(t)
}

func TestAchievementHandler_IgnoresUnrelatedEvents(t *testing.T) {
	tr := new(mockTracker)
	h := NewAchievementHandler(tr, logger.Nop())

	require.NoError(t, h.Handle(shared.NewProfileDeletedEvent("p1", "Mina", false)))
	tr.AssertNotCalled(t, "Unlock", mock.Anything, mock.Anything)
}
