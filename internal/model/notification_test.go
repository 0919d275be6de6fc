package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotificationTypeValid(t *testing.T) {
	assert.True(t, NotificationTypeTaskAssigned.Valid())
	assert.True(t, NotificationTypeSystem.Valid())
	assert.False(t, NotificationType("shipment_arrived").Valid())
	assert.False(t, NotificationType("").Valid())
}

func TestSelfNotifiable(t *testing.T) {
	assert.True(t, NotificationTypeSystem.SelfNotifiable())
	assert.True(t, NotificationTypeApprovalRequested.SelfNotifiable())

	for _, typ := range []NotificationType{
		NotificationTypeTaskAssigned,
		NotificationTypeTaskUpdated,
		NotificationTypeTaskComment,
		NotificationTypeCommentMention,
		NotificationTypeApprovalStatusChanged,
		NotificationTypeProjectAdded,
	} {
		assert.False(t, typ.SelfNotifiable(), "type %s", typ)
	}
}

func TestPriorityScheduleDelay(t *testing.T) {
	tests := []struct {
		priority Priority
		delay    time.Duration
	}{
		{PriorityCritical, 0},
		{PriorityHigh, 5 * time.Minute},
		{PriorityMedium, 15 * time.Minute},
		{PriorityLow, 30 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.delay, tt.priority.ScheduleDelay(), "priority %s", tt.priority)
	}
}

func TestPriorityRankOrdering(t *testing.T) {
	assert.Greater(t, PriorityCritical.Rank(), PriorityHigh.Rank())
	assert.Greater(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Greater(t, PriorityMedium.Rank(), PriorityLow.Rank())
}
