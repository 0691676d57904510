// Package filter narrows event listings for the devent CLI.
//
// A Filter combines optional criteria; an event must satisfy all of them:
//   - Category (exact, case-insensitive; "all" disables it)
//   - Keyword (case-insensitive substring of title, description, location or category)
//   - Date range (DateFrom/DateTo, inclusive)
//   - Maximum price, or free events only
//   - Upcoming events only (today or later)
//
// Example usage:
//
//	from, to, _ := filter.ParseDateRange("Mar 1-15")
//	f := &filter.Filter{Category: "Workshop", DateFrom: from, DateTo: to}
//	upcoming := f.Apply(events)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/devent/internal/event"
)

// Filter represents event filtering criteria
type Filter struct {
	Category string `json:"category,omitempty"`
	Keyword  string `json:"keyword,omitempty"`

	DateFrom *time.Time `json:"dateFrom,omitempty"`
	DateTo   *time.Time `json:"dateTo,omitempty"`

	MaxPrice *event.Amount `json:"maxPrice,omitempty"`
	FreeOnly bool          `json:"freeOnly,omitempty"`

	UpcomingOnly bool `json:"upcomingOnly,omitempty"`

	now func() time.Time
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return f.category() == "" &&
		strings.TrimSpace(f.Keyword) == "" &&
		f.DateFrom == nil &&
		f.DateTo == nil &&
		f.MaxPrice == nil &&
		!f.FreeOnly &&
		!f.UpcomingOnly
}

func (f *Filter) category() string {
	c := strings.TrimSpace(f.Category)
	if strings.EqualFold(c, "all") {
		return ""
	}
	return c
}

func (f *Filter) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now()
}

// Matches checks if an event matches all active filter criteria.
// Events whose date cannot be parsed pass the date range check.
func (f *Filter) Matches(evt *event.Event) bool {
	if c := f.category(); c != "" && !strings.EqualFold(evt.Category, c) {
		return false
	}

	if kw := strings.ToLower(strings.TrimSpace(f.Keyword)); kw != "" {
		haystack := strings.ToLower(strings.Join([]string{evt.Title, evt.Description, evt.Location, evt.Category}, "\n"))
		if !strings.Contains(haystack, kw) {
			return false
		}
	}

	if f.DateFrom != nil || f.DateTo != nil {
		date := event.ParseDate(evt.Date)
		if !date.IsZero() {
			if f.DateFrom != nil && date.Before(dayStart(*f.DateFrom)) {
				return false
			}
			if f.DateTo != nil && date.After(*f.DateTo) {
				return false
			}
		}
	}

	if f.FreeOnly && !evt.IsFree() {
		return false
	}
	if f.MaxPrice != nil && evt.Price > *f.MaxPrice {
		return false
	}

	if f.UpcomingOnly && evt.IsPastAt(f.clock()) {
		return false
	}

	return true
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Apply returns the events that match. An empty filter returns events unchanged.
func (f *Filter) Apply(events []event.Event) []event.Event {
	if f.IsEmpty() {
		return events
	}

	filtered := make([]event.Event, 0)
	for i := range events {
		if f.Matches(&events[i]) {
			filtered = append(filtered, events[i])
		}
	}
	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "Category: Workshop | From: Mar 1, 2026 | Free only"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if c := f.category(); c != "" {
		parts = append(parts, fmt.Sprintf("Category: %s", c))
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		parts = append(parts, fmt.Sprintf("Keyword: %q", kw))
	}
	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}
	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}
	if f.FreeOnly {
		parts = append(parts, "Free only")
	}
	if f.MaxPrice != nil {
		parts = append(parts, fmt.Sprintf("Max price: %s", f.MaxPrice.Format()))
	}
	if f.UpcomingOnly {
		parts = append(parts, "Upcoming only")
	}

	return strings.Join(parts, " | ")
}
