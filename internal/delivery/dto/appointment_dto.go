package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type BookAppointmentRequest struct {
	DoctorID     uuid.UUID `json:"doctor_id" validate:"required"`
	PatientName  string    `json:"patient_name" validate:"required,max=255"`
	PatientEmail string    `json:"patient_email" validate:"omitempty,email,max=255"`
	PatientPhone string    `json:"patient_phone" validate:"omitempty,max=50"`
	StartTime    string    `json:"start_time" validate:"required"` // RFC3339 or "YYYY-MM-DD HH:MM" in clinic time
	EndTime      string    `json:"end_time" validate:"omitempty"`
	Notes        string    `json:"notes" validate:"omitempty,max=1000"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

type ListAppointmentsRequest struct {
	Date   string `json:"date" validate:"omitempty"` // Format: YYYY-MM-DD
	Status string `json:"status" validate:"omitempty,oneof=scheduled confirmed completed cancelled no_show"`
}

// Response DTOs

type AppointmentResponse struct {
	ID                 uuid.UUID              `json:"id"`
	DoctorID           uuid.UUID              `json:"doctor_id"`
	Doctor             *DoctorSummaryResponse `json:"doctor,omitempty"`
	PatientName        string                 `json:"patient_name"`
	PatientEmail       string                 `json:"patient_email,omitempty"`
	PatientPhone       string                 `json:"patient_phone,omitempty"`
	StartTime          time.Time              `json:"start_time"`
	EndTime            time.Time              `json:"end_time"`
	Status             string                 `json:"status"`
	Notes              string                 `json:"notes,omitempty"`
	CancelledAt        *time.Time             `json:"cancelled_at,omitempty"`
	CancellationReason string                 `json:"cancellation_reason,omitempty"`
	Version            int                    `json:"version"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
