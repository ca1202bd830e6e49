package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    AppointmentStatus
		to      AppointmentStatus
		allowed bool
	}{
		{AppointmentStatusPending, AppointmentStatusConfirmed, true},
		{AppointmentStatusPending, AppointmentStatusCancelled, true},
		{AppointmentStatusPending, AppointmentStatusCompleted, true},
		{AppointmentStatusConfirmed, AppointmentStatusCompleted, true},
		{AppointmentStatusConfirmed, AppointmentStatusCancelled, true},
		{AppointmentStatusConfirmed, AppointmentStatusPending, false},
		{AppointmentStatusCompleted, AppointmentStatusCancelled, false},
		{AppointmentStatusCompleted, AppointmentStatusConfirmed, false},
		{AppointmentStatusCancelled, AppointmentStatusPending, false},
		{AppointmentStatusCancelled, AppointmentStatusConfirmed, false},
		{AppointmentStatusPending, AppointmentStatusPending, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransitionTo(tt.to)
		assert.Equal(t, tt.allowed, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, AppointmentStatusPending.IsActive())
	assert.True(t, AppointmentStatusConfirmed.IsActive())
	assert.False(t, AppointmentStatusCompleted.IsActive())
	assert.False(t, AppointmentStatusCancelled.IsActive())

	assert.True(t, AppointmentStatusCompleted.IsTerminal())
	assert.True(t, AppointmentStatusCancelled.IsTerminal())
	assert.False(t, AppointmentStatusPending.IsTerminal())

	assert.True(t, AppointmentStatusPending.Valid())
	assert.False(t, AppointmentStatus("Scheduled").Valid())
	assert.False(t, AppointmentStatus("").Valid())
}

func TestUpdateRequestStatusOnly(t *testing.T) {
	status := AppointmentStatusConfirmed
	date := "2026-10-01"

	assert.True(t, (&UpdateAppointmentRequest{Status: &status}).StatusOnly())
	assert.False(t, (&UpdateAppointmentRequest{Status: &status, Date: &date}).StatusOnly())
	assert.False(t, (&UpdateAppointmentRequest{Date: &date}).StatusOnly())
	assert.False(t, (&UpdateAppointmentRequest{}).StatusOnly())
}
