package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultImage is shown for events created without an image.
const DefaultImage = "https://images.unsplash.com/photo-1505373877841-8d25f7d46678?w=800"

// ID identifies an event.
type ID int64

// Amount is a currency amount in whole rupiah. Zero means free.
type Amount int64

// Quantity is a ticket count.
type Quantity int

// String formats the id as a decimal number.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID converts user input such as a command-line argument to an ID.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid event id %q", s)
	}
	return ID(n), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (id *ID) UnmarshalJSON(data []byte) error {
	n, err := decodeFlexibleInt(data)
	if err != nil {
		return fmt.Errorf("decoding id: %w", err)
	}
	*id = ID(n)
	return nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. Strings without
// a leading integer decode to zero.
func (a *Amount) UnmarshalJSON(data []byte) error {
	n, err := decodeFlexibleInt(data)
	if err != nil {
		return fmt.Errorf("decoding amount: %w", err)
	}
	*a = Amount(n)
	return nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	n, err := decodeFlexibleInt(data)
	if err != nil {
		return fmt.Errorf("decoding quantity: %w", err)
	}
	*q = Quantity(n)
	return nil
}

// Format renders the amount the way the demo shows prices:
// "FREE" for zero, otherwise "Rp 1.500.000".
func (a Amount) Format() string {
	if a == 0 {
		return "FREE"
	}
	digits := strconv.FormatInt(int64(a), 10)
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "Rp -" + b.String()
	}
	return "Rp " + b.String()
}

// decodeFlexibleInt decodes a JSON number, numeric string or null.
// Fractional numbers are truncated; numbers beyond the int64 range saturate.
func decodeFlexibleInt(data []byte) (int64, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return 0, nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, err
		}
		return ParseLeadingInt(s), nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return 0, err
	}
	if n, err := num.Int64(); err == nil {
		return n, nil
	}
	f, err := num.Float64()
	if err != nil {
		return 0, err
	}
	return clampToInt64(f), nil
}

// clampToInt64 truncates f toward zero, saturating at the int64 limits.
func clampToInt64(f float64) int64 {
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}

// ParseLeadingInt parses the integer prefix of s, ignoring surrounding
// whitespace. It returns 0 when s does not start with a number, so "12.5"
// is 12 and "abc" is 0.
func ParseLeadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Event represents a schedulable D-Event listing.
type Event struct {
	ID          ID         `json:"id"`
	Title       string     `json:"title"`
	Date        string     `json:"date"` // calendar date, YYYY-MM-DD
	Location    string     `json:"location"`
	Category    string     `json:"category"`
	Price       Amount     `json:"price"`
	Description string     `json:"description"`
	Image       string     `json:"image,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// ImageURL returns the event image or DefaultImage.
func (e *Event) ImageURL() string {
	if strings.TrimSpace(e.Image) == "" {
		return DefaultImage
	}
	return e.Image
}

// IsFree reports whether the event has no ticket price.
func (e *Event) IsFree() bool {
	return e.Price == 0
}

// StableKey identifies an event by its normalized title, independent of
// its id. Imports use it to recognise events that already exist.
func StableKey(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// Patch holds the fields an update changes. Nil fields keep their value.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Date        *string `json:"date,omitempty"`
	Location    *string `json:"location,omitempty"`
	Category    *string `json:"category,omitempty"`
	Price       *Amount `json:"price,omitempty"`
	Description *string `json:"description,omitempty"`
	Image       *string `json:"image,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Date == nil && p.Location == nil &&
		p.Category == nil && p.Price == nil && p.Description == nil &&
		p.Image == nil
}

// Apply returns e with the patch merged over it. ID and timestamps are
// never touched.
func (p Patch) Apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Price != nil {
		e.Price = *p.Price
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Image != nil {
		e.Image = *p.Image
	}
	return e
}

// Statistics is the dashboard summary, recomputed on every request.
type Statistics struct {
	TotalEvents        int    `json:"totalEvents"`
	TotalCategories    int    `json:"totalCategories"`
	TotalRegistrations int    `json:"totalRegistrations"`
	TotalTickets       int    `json:"totalTickets"`
	TotalRevenue       Amount `json:"totalRevenue"`
}
