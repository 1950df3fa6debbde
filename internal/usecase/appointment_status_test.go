package usecase

import (
	"context"
	"testing"

	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmAppointment(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.addMondayDoctor()
	existing := env.addBooking(doctor.ID, mondayAt(10, 0), entity.AppointmentStatusScheduled)

	resp, err := env.appointments.ConfirmAppointment(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", resp.Status)
	assert.Equal(t, 2, resp.Version)

	stored, _ := env.store.appointment(existing.ID)
	assert.Equal(t, entity.AppointmentStatusConfirmed, stored.Status)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, []string{entity.AuditActionAppointmentConfirm}, env.store.auditActions())
	assert.Contains(t, env.cache.invalidations(), cacheKey(doctor.ID, "2025-01-06"))

	// Confirming twice is an illegal transition and changes nothing.
	_, err = env.appointments.ConfirmAppointment(context.Background(), existing.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	stored, _ = env.store.appointment(existing.ID)
	assert.Equal(t, 2, stored.Version)
	assert.Len(t, env.store.auditActions(), 1)
}

func TestCancelAppointment(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.addMondayDoctor()
	existing := env.addBooking(doctor.ID, mondayAt(10, 0), entity.AppointmentStatusConfirmed)

	resp, err := env.appointments.CancelAppointment(context.Background(), existing.ID, &dto.CancelAppointmentRequest{Reason: "feeling better"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", resp.Status)
	require.NotNil(t, resp.CancelledAt)
	assert.True(t, testNow.Equal(*resp.CancelledAt))
	assert.Equal(t, "feeling better", resp.CancellationReason)

	// The slot is free again.
	_, err = env.appointments.BookAppointment(context.Background(), bookRequest(doctor.ID, "2025-01-06 10:00"))
	assert.NoError(t, err)
}

func TestCancelAppointment_AfterStart(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.addMondayDoctor()
	existing := env.addBooking(doctor.ID, mondayAt(10, 0), entity.AppointmentStatusScheduled)
	env.now = mondayAt(10, 5)

	_, err := env.appointments.CancelAppointment(context.Background(), existing.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	stored, _ := env.store.appointment(existing.ID)
	assert.Equal(t, entity.AppointmentStatusScheduled, stored.Status)
	assert.Nil(t, stored.CancelledAt)
}

func TestCompleteAppointment(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.addMondayDoctor()
	existing := env.addBooking(doctor.ID, mondayAt(10, 0), entity.AppointmentStatusConfirmed)

	resp, err := env.appointments.CompleteAppointment(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)

	_, err = env.appointments.CancelAppointment(context.Background(), existing.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition, "completed is terminal")
}

func TestMarkNoShow(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.addMondayDoctor()
	existing := env.addBooking(doctor.ID, mondayAt(10, 0), entity.AppointmentStatusScheduled)

	_, err := env.appointments.MarkNoShow(context.Background(), existing.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition, "cannot mark no-show before the end")

	env.now = mondayAt(10, 30)
	resp, err := env.appointments.MarkNoShow(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "no_show", resp.Status)
	assert.Equal(t, 2, resp.Version)
}

func TestChangeStatus_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.appointments.ConfirmAppointment(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestChangeStatus_VersionConflict(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.addMondayDoctor()
	existing := env.addBooking(doctor.ID, mondayAt(10, 0), entity.AppointmentStatusScheduled)
	env.store.staleOnUpdate = true

	_, err := env.appointments.ConfirmAppointment(context.Background(), existing.ID)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Empty(t, env.store.auditActions())
}

func TestChangeStatus_VersionIncrementsAcrossTransitions(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.addMondayDoctor()
	existing := env.addBooking(doctor.ID, mondayAt(10, 0), entity.AppointmentStatusScheduled)

	_, err := env.appointments.ConfirmAppointment(context.Background(), existing.ID)
	require.NoError(t, err)

	env.now = mondayAt(11, 0)
	resp, err := env.appointments.CompleteAppointment(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Version)
	assert.Equal(t, []string{entity.AuditActionAppointmentConfirm, entity.AuditActionAppointmentComplete}, env.store.auditActions())
}
