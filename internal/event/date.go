package event

import "time"

// DateLayout is the calendar date format events are stored with.
const DateLayout = "2006-01-02"

// ParseDate attempts to parse an event date into a time.Time.
// Returns time.Time{} (zero value) if parsing fails.
// Supports formats: "2025-02-15", RFC3339 timestamps, "Feb 15 2025", "15/02/2025"
func ParseDate(date string) time.Time {
	if date == "" {
		return time.Time{}
	}

	layouts := []string{
		DateLayout,
		time.RFC3339,
		"Jan 2 2006",
		"Jan 2, 2006",
		"02/01/2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t
		}
	}

	return time.Time{}
}

// startOfDay returns midnight of the calendar day t falls on.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsPastAt reports whether the event date lies before the day of now.
// Returns false if the date cannot be parsed (safer default).
func (e *Event) IsPastAt(now time.Time) bool {
	parsed := ParseDate(e.Date)
	if parsed.IsZero() {
		return false
	}
	return startOfDay(parsed).Before(startOfDay(now))
}

// IsPast checks if an event's date has passed. Registration is closed for
// past events.
func (e *Event) IsPast() bool {
	return e.IsPastAt(time.Now())
}

// IsUpcoming checks if an event is today or later.
// Returns true if the date cannot be parsed (safer default).
func (e *Event) IsUpcoming() bool {
	return !e.IsPast()
}
