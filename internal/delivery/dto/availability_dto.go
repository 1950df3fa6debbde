package dto

type SlotResponse struct {
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`   // HH:MM
}

type AvailabilityResponse struct {
	Doctor DoctorSummaryResponse `json:"doctor"`
	Date   string                `json:"date"` // YYYY-MM-DD
	Slots  []SlotResponse        `json:"slots"`
}
