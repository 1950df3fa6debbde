package handler

import (
	"errors"
	"net/http"

	"clinic-appointment-service/internal/usecase"
	"clinic-appointment-service/pkg/response"
)

// AvailabilityOptions decides whether an inactive doctor or a day without
// working hours is reported as an error or as an empty slot list.
type AvailabilityOptions struct {
	InactiveDoctorStrict bool
	NoHoursStrict        bool
}

type AvailabilityHandler struct {
	availabilityUsecase usecase.AvailabilityUsecase
	options             AvailabilityOptions
}

func NewAvailabilityHandler(availabilityUsecase usecase.AvailabilityUsecase, options AvailabilityOptions) *AvailabilityHandler {
	return &AvailabilityHandler{
		availabilityUsecase: availabilityUsecase,
		options:             options,
	}
}

func (h *AvailabilityHandler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := parseUUIDVar(w, r, "id", "Invalid doctor ID")
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		response.ValidationError(w, map[string]string{"date": "date is required"})
		return
	}

	availability, err := h.availabilityUsecase.GetAvailableSlots(r.Context(), doctorID, date)
	switch {
	case err == nil:
		response.Success(w, http.StatusOK, "Available slots retrieved successfully", availability)
	case errors.Is(err, usecase.ErrDoctorUnavailable) && !h.options.InactiveDoctorStrict && availability != nil:
		response.Success(w, http.StatusOK, err.Error(), availability)
	case errors.Is(err, usecase.ErrNoWorkingHoursForDay) && !h.options.NoHoursStrict && availability != nil:
		response.Success(w, http.StatusOK, err.Error(), availability)
	default:
		writeError(w, err, "Failed to get available slots")
	}
}
