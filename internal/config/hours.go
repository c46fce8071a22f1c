package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DayHours is the seating window of a single weekday. Open and LastSeating are
// "HH:MM" start times; LastSeating is the last bookable slot, inclusive.
type DayHours struct {
	Closed      bool   `yaml:"closed"`
	Open        string `yaml:"open"`
	LastSeating string `yaml:"last_seating"`
}

// OpeningHours describes when tables can be booked.
type OpeningHours struct {
	SlotMinutes int                 `yaml:"slot_minutes"`
	Days        map[string]DayHours `yaml:"days"`
}

var weekdayNames = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// DefaultOpeningHours seats every day from 17:00 to 21:30 in half-hour steps.
func DefaultOpeningHours() OpeningHours {
	days := make(map[string]DayHours, len(weekdayNames))
	for _, name := range weekdayNames {
		days[name] = DayHours{Open: "17:00", LastSeating: "21:30"}
	}
	return OpeningHours{SlotMinutes: 30, Days: days}
}

// LoadOpeningHours reads a YAML opening-hours file. Weekdays missing from the
// file are treated as closed.
func LoadOpeningHours(path string) (OpeningHours, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return OpeningHours{}, fmt.Errorf("read opening hours: %w", err)
	}
	return ParseOpeningHours(raw)
}

// ParseOpeningHours decodes and validates opening hours from YAML.
func ParseOpeningHours(raw []byte) (OpeningHours, error) {
	var hours OpeningHours
	if err := yaml.Unmarshal(raw, &hours); err != nil {
		return OpeningHours{}, fmt.Errorf("parse opening hours: %w", err)
	}
	if hours.SlotMinutes <= 0 {
		hours.SlotMinutes = 30
	}

	normalized := make(map[string]DayHours, len(weekdayNames))
	for name, day := range hours.Days {
		key := strings.ToLower(strings.TrimSpace(name))
		if !isWeekday(key) {
			return OpeningHours{}, fmt.Errorf("unknown weekday %q in opening hours", name)
		}
		if !day.Closed {
			open, err := time.Parse("15:04", day.Open)
			if err != nil {
				return OpeningHours{}, fmt.Errorf("%s: invalid open time %q", key, day.Open)
			}
			last, err := time.Parse("15:04", day.LastSeating)
			if err != nil {
				return OpeningHours{}, fmt.Errorf("%s: invalid last_seating %q", key, day.LastSeating)
			}
			if last.Before(open) {
				return OpeningHours{}, fmt.Errorf("%s: last_seating before open", key)
			}
		}
		normalized[key] = day
	}
	for _, name := range weekdayNames {
		if _, ok := normalized[name]; !ok {
			normalized[name] = DayHours{Closed: true}
		}
	}
	hours.Days = normalized
	return hours, nil
}

// For returns the hours that apply to the given weekday.
func (h OpeningHours) For(day time.Weekday) DayHours {
	return h.Days[weekdayNames[day]]
}

func isWeekday(name string) bool {
	for _, w := range weekdayNames {
		if w == name {
			return true
		}
	}
	return false
}
