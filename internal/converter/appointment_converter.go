package converter

import (
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:                 appointment.ID,
		DoctorID:           appointment.DoctorID,
		Doctor:             DoctorToSummary(appointment.Doctor),
		PatientName:        appointment.PatientName,
		PatientEmail:       appointment.PatientEmail,
		PatientPhone:       appointment.PatientPhone,
		StartTime:          appointment.StartTime,
		EndTime:            appointment.EndTime,
		Status:             string(appointment.Status),
		Notes:              appointment.Notes,
		CancelledAt:        appointment.CancelledAt,
		CancellationReason: appointment.CancellationReason,
		Version:            appointment.Version,
		CreatedAt:          appointment.CreatedAt,
		UpdatedAt:          appointment.UpdatedAt,
	}
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}
