package usecase

import (
	"context"
	"errors"
	"time"

	"clinic-appointment-service/internal/converter"
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// statusChange applies one state-machine move to a loaded appointment.
type statusChange func(appointment *entity.Appointment, now time.Time) error

func (u *appointmentUsecase) ConfirmAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.changeStatus(ctx, appointmentID, entity.AuditActionAppointmentConfirm, func(a *entity.Appointment, _ time.Time) error {
		return a.Confirm()
	})
}

func (u *appointmentUsecase) CancelAppointment(ctx context.Context, appointmentID uuid.UUID, req *dto.CancelAppointmentRequest) (*dto.AppointmentResponse, error) {
	reason := ""
	if req != nil {
		reason = req.Reason
	}
	return u.changeStatus(ctx, appointmentID, entity.AuditActionAppointmentCancel, func(a *entity.Appointment, now time.Time) error {
		return a.Cancel(now, reason)
	})
}

func (u *appointmentUsecase) CompleteAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.changeStatus(ctx, appointmentID, entity.AuditActionAppointmentComplete, func(a *entity.Appointment, _ time.Time) error {
		return a.Complete()
	})
}

func (u *appointmentUsecase) MarkNoShow(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.changeStatus(ctx, appointmentID, entity.AuditActionAppointmentNoShow, func(a *entity.Appointment, now time.Time) error {
		return a.MarkNoShow(now)
	})
}

// changeStatus loads the appointment, applies change and persists it guarded
// by the version read in the same transaction. Illegal moves leave the row
// untouched.
func (u *appointmentUsecase) changeStatus(ctx context.Context, appointmentID uuid.UUID, action string, change statusChange) (*dto.AppointmentResponse, error) {
	var updated *entity.Appointment

	err := u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		appointment, err := u.appointmentRepo.FindByID(tx, appointmentID)
		if err != nil {
			return err
		}
		if appointment == nil {
			return ErrAppointmentNotFound
		}

		before := statusSnapshot(appointment)
		expectedVersion := appointment.Version

		if err := change(appointment, u.now()); err != nil {
			return err
		}

		affected, err := u.appointmentRepo.UpdateStatus(tx, appointment, expectedVersion)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrVersionConflict
		}

		if err := u.auditService.LogUpdate(ctx, tx, action, "appointment", appointment.ID.String(), before, statusSnapshot(appointment)); err != nil {
			return err
		}

		updated = appointment
		return nil
	})
	if err != nil {
		err = translateStoreError(err)
		if !errors.Is(err, ErrInvalidStatusTransition) && !errors.Is(err, ErrAppointmentNotFound) {
			u.log.Warnf("Failed to apply %s to appointment %s: %+v", action, appointmentID, err)
		}
		return nil, err
	}

	u.invalidateAvailability(ctx, updated)

	u.log.Infof("Appointment %s: id=%s, status=%s, version=%d", action, updated.ID, updated.Status, updated.Version)
	return converter.AppointmentToResponse(updated), nil
}

func statusSnapshot(appointment *entity.Appointment) map[string]interface{} {
	snapshot := map[string]interface{}{
		"status":  appointment.Status,
		"version": appointment.Version,
	}
	if appointment.CancelledAt != nil {
		snapshot["cancelled_at"] = appointment.CancelledAt
		snapshot["cancellation_reason"] = appointment.CancellationReason
	}
	return snapshot
}
