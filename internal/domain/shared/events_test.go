package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventType_Family(t *testing.T) {
	assert.Equal(t, "session", EventStreakUpdated.Family())
	assert.Equal(t, "grading", EventRankPromoted.Family())
	assert.Equal(t, "system", EventContentReloaded.Family())
	assert.Equal(t, "custom", EventType("custom").Family())
}
