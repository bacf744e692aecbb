package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanProgressTo(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"pending to confirmed", OrderStatusPending, OrderStatusConfirmed, true},
		{"confirmed to ready skips preparing", OrderStatusConfirmed, OrderStatusReady, true},
		{"ready to completed", OrderStatusReady, OrderStatusCompleted, true},
		{"ready back to preparing", OrderStatusReady, OrderStatusPreparing, false},
		{"same status is not progress", OrderStatusPreparing, OrderStatusPreparing, false},
		{"cancel from pending", OrderStatusPending, OrderStatusCancelled, true},
		{"cancel from ready", OrderStatusReady, OrderStatusCancelled, true},
		{"completed never regresses", OrderStatusCompleted, OrderStatusPreparing, false},
		{"completed cannot cancel", OrderStatusCompleted, OrderStatusCancelled, false},
		{"cancelled stays cancelled", OrderStatusCancelled, OrderStatusConfirmed, false},
		{"unknown target", OrderStatusPending, "vaporized", false},
		{"pos_failed is outside the happy path", OrderStatusPOSFailed, OrderStatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanProgressTo(tt.from, tt.to))
		})
	}
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(OrderStatusCompleted))
	assert.True(t, IsTerminalStatus(OrderStatusCancelled))
	assert.False(t, IsTerminalStatus(OrderStatusPending))
	assert.False(t, IsTerminalStatus(OrderStatusReady))
	assert.False(t, IsTerminalStatus(OrderStatusPOSFailed))
}
