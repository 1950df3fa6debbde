package converter

import (
	"time"

	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
)

// SlotsToResponses renders slots as HH:MM wall-clock pairs in loc.
func SlotsToResponses(slots []entity.Slot, loc *time.Location) []dto.SlotResponse {
	responses := make([]dto.SlotResponse, len(slots))
	for i, slot := range slots {
		responses[i] = dto.SlotResponse{
			StartTime: slot.Start.In(loc).Format("15:04"),
			EndTime:   slot.End.In(loc).Format("15:04"),
		}
	}
	return responses
}
