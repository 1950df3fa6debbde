package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidWeekday   = errors.New("invalid weekday name")
	ErrInvalidClockTime = errors.New("invalid clock time, use HH:MM")
	ErrInvalidDayHours  = errors.New("working hours start must be before end")
)

// ClockTime is a wall-clock time of day expressed in minutes since midnight.
type ClockTime int

// ParseClockTime parses "HH:MM" (seconds are accepted and must be zero).
func ParseClockTime(s string) (ClockTime, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		t, err := time.Parse(layout, strings.TrimSpace(s))
		if err == nil {
			if t.Second() != 0 {
				return 0, ErrInvalidClockTime
			}
			return ClockTime(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, ErrInvalidClockTime
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// On anchors the clock time to the calendar day of date in date's location.
func (c ClockTime) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, date.Location())
}

// DayHours is the working window of a single weekday. The zero value means
// the doctor does not work that day.
type DayHours struct {
	Start ClockTime
	End   ClockTime
}

// IsWorking reports whether the entry describes a working day.
func (h DayHours) IsWorking() bool {
	return h.End > h.Start
}

// Window returns [dayStart, dayEnd) anchored to date.
func (h DayHours) Window(date time.Time) (time.Time, time.Time) {
	return h.Start.On(date), h.End.On(date)
}

// Contains reports whether [start, end) fits inside the window on start's day.
func (h DayHours) Contains(start, end time.Time) bool {
	if !h.IsWorking() {
		return false
	}
	dayStart, dayEnd := h.Window(start)
	return !start.Before(dayStart) && !end.After(dayEnd)
}

// WorkingHours is indexed by time.Weekday. It is persisted as a JSON object
// keyed by lowercase weekday name, e.g. {"monday": ["09:00", "17:00"]}.
type WorkingHours [7]DayHours

var weekdayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// WeekdayName returns the lowercase English weekday name.
func WeekdayName(day time.Weekday) string {
	return weekdayNames[day]
}

// ParseWeekday resolves a lowercase or capitalized weekday name.
func ParseWeekday(name string) (time.Weekday, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range weekdayNames {
		if n == name {
			return time.Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, name)
}

// On returns the hours for the given weekday and whether the doctor works it.
func (w WorkingHours) On(day time.Weekday) (DayHours, bool) {
	h := w[day]
	return h, h.IsWorking()
}

// ForDate is On for the weekday of date.
func (w WorkingHours) ForDate(date time.Time) (DayHours, bool) {
	return w.On(date.Weekday())
}

// ParseWorkingHours builds WorkingHours from a weekday → [start, end] map.
func ParseWorkingHours(raw map[string][]string) (WorkingHours, error) {
	var w WorkingHours
	for name, pair := range raw {
		day, err := ParseWeekday(name)
		if err != nil {
			return WorkingHours{}, err
		}
		if len(pair) != 2 {
			return WorkingHours{}, fmt.Errorf("%w: %s needs [start, end]", ErrInvalidClockTime, name)
		}
		start, err := ParseClockTime(pair[0])
		if err != nil {
			return WorkingHours{}, fmt.Errorf("%s start: %w", name, err)
		}
		end, err := ParseClockTime(pair[1])
		if err != nil {
			return WorkingHours{}, fmt.Errorf("%s end: %w", name, err)
		}
		if end <= start {
			return WorkingHours{}, fmt.Errorf("%w (%s)", ErrInvalidDayHours, name)
		}
		w[day] = DayHours{Start: start, End: end}
	}
	return w, nil
}

// ToMap is the inverse of ParseWorkingHours. Non-working days are omitted.
func (w WorkingHours) ToMap() map[string][]string {
	out := make(map[string][]string)
	for i, h := range w {
		if h.IsWorking() {
			out[weekdayNames[i]] = []string{h.Start.String(), h.End.String()}
		}
	}
	return out
}

func (w WorkingHours) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.ToMap())
}

func (w *WorkingHours) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseWorkingHours(raw)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// Value implements driver.Valuer for the jsonb column.
func (w WorkingHours) Value() (driver.Value, error) {
	return w.MarshalJSON()
}

// Scan implements sql.Scanner for the jsonb column.
func (w *WorkingHours) Scan(value interface{}) error {
	if value == nil {
		*w = WorkingHours{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return w.UnmarshalJSON(v)
	case string:
		return w.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("failed to unmarshal working hours value: %v", value)
	}
}
