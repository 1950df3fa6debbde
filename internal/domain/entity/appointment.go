package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// AppointmentStatuses lists every valid status.
var AppointmentStatuses = []AppointmentStatus{
	AppointmentStatusScheduled,
	AppointmentStatusConfirmed,
	AppointmentStatusCompleted,
	AppointmentStatusCancelled,
	AppointmentStatusNoShow,
}

// IsValid reports whether s is one of AppointmentStatuses.
func (s AppointmentStatus) IsValid() bool {
	for _, status := range AppointmentStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ErrInvalidStatusTransition is returned by every illegal state-machine move.
var ErrInvalidStatusTransition = errors.New("invalid appointment status transition")

// Appointment is a booked [StartTime, EndTime) interval with one doctor.
type Appointment struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DoctorID           uuid.UUID         `gorm:"type:uuid;not null;index" json:"doctor_id"`
	PatientName        string            `gorm:"type:varchar(255);not null;index" json:"patient_name"`
	PatientEmail       string            `gorm:"type:varchar(255);index" json:"patient_email,omitempty"`
	PatientPhone       string            `gorm:"type:varchar(50)" json:"patient_phone,omitempty"`
	StartTime          time.Time         `gorm:"not null;index" json:"start_time"`
	EndTime            time.Time         `gorm:"not null;index" json:"end_time"`
	Status             AppointmentStatus `gorm:"type:appointment_status;not null;default:'scheduled';index" json:"status"`
	Notes              string            `gorm:"type:text" json:"notes,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	CancellationReason string            `gorm:"type:text" json:"cancellation_reason,omitempty"`
	Version            int               `gorm:"not null;default:1" json:"version"`
	CreatedAt          time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt    `gorm:"index" json:"-"`

	// Relationships
	Doctor *Doctor `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// NewAppointmentParams carries the booking input before defaults are applied.
type NewAppointmentParams struct {
	DoctorID     uuid.UUID
	PatientName  string
	PatientEmail string
	PatientPhone string
	StartTime    time.Time
	EndTime      *time.Time
	Notes        string
}

// NewAppointment applies the pre-persistence defaults: a fresh ID, end time
// of StartTime+SlotDuration when none was supplied, scheduled status and
// version 1.
func NewAppointment(p NewAppointmentParams) *Appointment {
	end := p.StartTime.Add(SlotDuration)
	if p.EndTime != nil {
		end = *p.EndTime
	}
	return &Appointment{
		ID:           uuid.New(),
		DoctorID:     p.DoctorID,
		PatientName:  p.PatientName,
		PatientEmail: p.PatientEmail,
		PatientPhone: p.PatientPhone,
		StartTime:    p.StartTime,
		EndTime:      end,
		Status:       AppointmentStatusScheduled,
		Notes:        p.Notes,
		Version:      1,
	}
}

// IsCancelled checks if appointment is cancelled
func (a *Appointment) IsCancelled() bool {
	return a.Status == AppointmentStatusCancelled
}

// IsOpen reports whether the appointment can still change status.
func (a *Appointment) IsOpen() bool {
	return a.Status == AppointmentStatusScheduled || a.Status == AppointmentStatusConfirmed
}

// IsTerminal reports whether no further status changes are allowed.
func (a *Appointment) IsTerminal() bool {
	return !a.IsOpen()
}

// CanBeCancelled is true only for open appointments that have not started yet.
func (a *Appointment) CanBeCancelled(now time.Time) bool {
	return a.IsOpen() && a.StartTime.After(now)
}

// Confirm moves scheduled → confirmed.
func (a *Appointment) Confirm() error {
	if a.Status != AppointmentStatusScheduled {
		return fmt.Errorf("%w: only scheduled appointments can be confirmed (status %s)", ErrInvalidStatusTransition, a.Status)
	}
	a.setStatus(AppointmentStatusConfirmed)
	return nil
}

// Cancel moves an open, future appointment to cancelled and records when and why.
func (a *Appointment) Cancel(now time.Time, reason string) error {
	if !a.CanBeCancelled(now) {
		return fmt.Errorf("%w: appointment cannot be cancelled (status %s, starts %s)", ErrInvalidStatusTransition, a.Status, a.StartTime.Format(time.RFC3339))
	}
	a.setStatus(AppointmentStatusCancelled)
	cancelledAt := now
	a.CancelledAt = &cancelledAt
	a.CancellationReason = reason
	return nil
}

// Complete moves an open appointment to completed.
func (a *Appointment) Complete() error {
	if !a.IsOpen() {
		return fmt.Errorf("%w: appointment is already %s", ErrInvalidStatusTransition, a.Status)
	}
	a.setStatus(AppointmentStatusCompleted)
	return nil
}

// MarkNoShow moves an open appointment whose end time has passed to no_show.
func (a *Appointment) MarkNoShow(now time.Time) error {
	if !a.IsOpen() {
		return fmt.Errorf("%w: appointment is already %s", ErrInvalidStatusTransition, a.Status)
	}
	if a.EndTime.After(now) {
		return fmt.Errorf("%w: appointment has not ended yet", ErrInvalidStatusTransition)
	}
	a.setStatus(AppointmentStatusNoShow)
	return nil
}

// setStatus is the single place a status changes; it bumps Version.
func (a *Appointment) setStatus(status AppointmentStatus) {
	a.Status = status
	a.Version++
}
