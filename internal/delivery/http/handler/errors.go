package handler

import (
	"errors"
	"net/http"

	"clinic-appointment-service/internal/usecase"
	"clinic-appointment-service/pkg/response"
)

// errorMapping binds a usecase error to its HTTP status and stable code.
type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters: ErrNoWorkingHoursForDay wraps ErrOutsideWorkingHours.
var errorMappings = []errorMapping{
	{usecase.ErrDoctorNotFound, http.StatusNotFound, "doctor_not_found"},
	{usecase.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
	{usecase.ErrAuditLogNotFound, http.StatusNotFound, "audit_log_not_found"},
	{usecase.ErrDoctorInactive, http.StatusUnprocessableEntity, "doctor_inactive"},
	{usecase.ErrDoctorUnavailable, http.StatusUnprocessableEntity, "doctor_unavailable"},
	{usecase.ErrNoWorkingHoursForDay, http.StatusUnprocessableEntity, "no_working_hours_for_day"},
	{usecase.ErrOutsideWorkingHours, http.StatusUnprocessableEntity, "outside_working_hours"},
	{usecase.ErrSlotAlreadyBooked, http.StatusConflict, "slot_already_booked"},
	{usecase.ErrInvalidStatusTransition, http.StatusConflict, "invalid_status_transition"},
	{usecase.ErrVersionConflict, http.StatusConflict, "version_conflict"},
	{usecase.ErrTransientStoreFailure, http.StatusServiceUnavailable, "transient_store_failure"},
	{usecase.ErrAppointmentInPast, http.StatusUnprocessableEntity, "appointment_in_past"},
	{usecase.ErrInvalidTimeRange, http.StatusBadRequest, "invalid_time_range"},
	{usecase.ErrInvalidDateFormat, http.StatusBadRequest, "invalid_date_format"},
	{usecase.ErrInvalidDateTimeFormat, http.StatusBadRequest, "invalid_time_format"},
	{usecase.ErrInvalidWorkingHours, http.StatusBadRequest, "invalid_working_hours"},
}

// lookupError resolves err against errorMappings. ok is false for unknown errors.
func lookupError(err error) (errorMapping, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return errorMapping{}, false
}

// writeError renders a known usecase error with its code, or a 500 with fallback.
func writeError(w http.ResponseWriter, err error, fallback string) {
	m, ok := lookupError(err)
	if !ok {
		response.InternalServerError(w, fallback)
		return
	}
	message := err.Error()
	if m.status >= http.StatusInternalServerError {
		message = m.err.Error()
	}
	response.ErrorWithCode(w, m.status, message, m.code)
}
