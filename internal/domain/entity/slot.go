package entity

import "time"

// SlotDuration is the fixed width of every bookable slot.
const SlotDuration = 30 * time.Minute

// Slot is a candidate appointment interval [Start, End). Never persisted.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Overlaps is the half-open interval intersection test shared by the
// availability engine and the booking transactor.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// GenerateSlots tiles [dayStart, dayEnd) with SlotDuration-wide slots.
// A trailing remainder shorter than SlotDuration is dropped.
func GenerateSlots(dayStart, dayEnd time.Time) []Slot {
	var slots []Slot
	for cursor := dayStart; !cursor.Add(SlotDuration).After(dayEnd); cursor = cursor.Add(SlotDuration) {
		slots = append(slots, Slot{Start: cursor, End: cursor.Add(SlotDuration)})
	}
	return slots
}

// FreeSlots keeps, in order, the slots that overlap none of the booked
// appointments. Cancelled appointments never block a slot.
func FreeSlots(slots []Slot, booked []Appointment) []Slot {
	free := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		taken := false
		for i := range booked {
			if booked[i].IsCancelled() {
				continue
			}
			if Overlaps(slot.Start, slot.End, booked[i].StartTime, booked[i].EndTime) {
				taken = true
				break
			}
		}
		if !taken {
			free = append(free, slot)
		}
	}
	return free
}

// AvailableSlots is the availability engine: the free slots of a working day.
// ok is false when the doctor has no working hours on date's weekday.
func AvailableSlots(hours WorkingHours, date time.Time, booked []Appointment) (slots []Slot, ok bool) {
	day, ok := hours.ForDate(date)
	if !ok {
		return nil, false
	}
	dayStart, dayEnd := day.Window(date)
	return FreeSlots(GenerateSlots(dayStart, dayEnd), booked), true
}
