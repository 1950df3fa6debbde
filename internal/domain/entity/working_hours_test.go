package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		in      string
		want    ClockTime
		wantErr bool
	}{
		{in: "09:00", want: 9 * 60},
		{in: "17:30", want: 17*60 + 30},
		{in: "08:15:00", want: 8*60 + 15},
		{in: " 00:00 ", want: 0},
		{in: "08:15:30", wantErr: true},
		{in: "24:00", wantErr: true},
		{in: "9am", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClockTime(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClockTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClockTimeString(t *testing.T) {
	assert.Equal(t, "09:05", ClockTime(9*60+5).String())
	assert.Equal(t, "00:00", ClockTime(0).String())
}

func TestParseWorkingHours(t *testing.T) {
	hours, err := ParseWorkingHours(map[string][]string{
		"monday":  {"09:00", "17:00"},
		"Friday":  {"08:00", "12:30"},
		"sunday ": {"10:00", "11:00"},
	})
	require.NoError(t, err)

	monday, ok := hours.On(time.Monday)
	require.True(t, ok)
	assert.Equal(t, "09:00", monday.Start.String())
	assert.Equal(t, "17:00", monday.End.String())

	_, ok = hours.On(time.Tuesday)
	assert.False(t, ok, "absent weekday is not a working day")

	friday, ok := hours.On(time.Friday)
	require.True(t, ok)
	assert.Equal(t, "12:30", friday.End.String())

	_, ok = hours.On(time.Sunday)
	assert.True(t, ok)
}

func TestParseWorkingHoursRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string][]string
		wantErr error
	}{
		{name: "unknown weekday", raw: map[string][]string{"funday": {"09:00", "10:00"}}, wantErr: ErrInvalidWeekday},
		{name: "missing end", raw: map[string][]string{"monday": {"09:00"}}, wantErr: ErrInvalidClockTime},
		{name: "bad clock", raw: map[string][]string{"monday": {"9", "10:00"}}, wantErr: ErrInvalidClockTime},
		{name: "end before start", raw: map[string][]string{"monday": {"17:00", "09:00"}}, wantErr: ErrInvalidDayHours},
		{name: "empty window", raw: map[string][]string{"monday": {"09:00", "09:00"}}, wantErr: ErrInvalidDayHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWorkingHours(tt.raw)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWorkingHoursJSONRoundTrip(t *testing.T) {
	raw := `{"monday":["09:00","17:00"],"wednesday":["13:00","18:00"]}`

	var hours WorkingHours
	require.NoError(t, json.Unmarshal([]byte(raw), &hours))

	out, err := json.Marshal(hours)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestWorkingHoursScan(t *testing.T) {
	var hours WorkingHours
	require.NoError(t, hours.Scan([]byte(`{"tuesday":["10:00","12:00"]}`)))

	_, ok := hours.On(time.Tuesday)
	assert.True(t, ok)

	require.NoError(t, hours.Scan(nil))
	assert.Equal(t, WorkingHours{}, hours)

	assert.EqualError(t, hours.Scan(42), "failed to unmarshal working hours value: 42")
}

func TestDayHoursContains(t *testing.T) {
	day := DayHours{Start: 9 * 60, End: 17 * 60}
	monday := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	at := func(h, m int) time.Time {
		return time.Date(2025, 1, 6, h, m, 0, 0, time.UTC)
	}

	assert.True(t, day.Contains(at(9, 0), at(9, 30)))
	assert.True(t, day.Contains(at(16, 30), at(17, 0)))
	assert.False(t, day.Contains(at(8, 30), at(9, 0)))
	assert.False(t, day.Contains(at(16, 45), at(17, 15)))
	assert.False(t, day.Contains(at(16, 30), monday.AddDate(0, 0, 1).Add(9*time.Hour)))
	assert.False(t, DayHours{}.Contains(at(9, 0), at(9, 30)))
}
