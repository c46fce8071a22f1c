package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOpeningHours_EveryDayOpen(t *testing.T) {
	hours := DefaultOpeningHours()
	for d := time.Sunday; d <= time.Saturday; d++ {
		day := hours.For(d)
		assert.False(t, day.Closed, d.String())
		assert.Equal(t, "17:00", day.Open)
		assert.Equal(t, "21:30", day.LastSeating)
	}
}

func TestParseOpeningHours(t *testing.T) {
	raw := []byte(`
slot_minutes: 15
days:
  Monday:
    closed: true
  friday:
    open: "18:00"
    last_seating: "22:45"
`)
	hours, err := ParseOpeningHours(raw)
	require.NoError(t, err)

	assert.Equal(t, 15, hours.SlotMinutes)
	assert.True(t, hours.For(time.Monday).Closed)
	assert.Equal(t, "18:00", hours.For(time.Friday).Open)
	assert.True(t, hours.For(time.Tuesday).Closed, "missing weekdays are closed")
}

func TestParseOpeningHours_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown day", "days:\n  funday:\n    open: \"18:00\"\n    last_seating: \"20:00\"\n"},
		{"bad open", "days:\n  monday:\n    open: \"6pm\"\n    last_seating: \"20:00\"\n"},
		{"reversed", "days:\n  monday:\n    open: \"21:00\"\n    last_seating: \"20:00\"\n"},
		{"not yaml", "days: [:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOpeningHours([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}
