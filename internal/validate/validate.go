// Package validate checks user-supplied events and registrations before
// they are handed to storage.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pfrederiksen/devent/internal/event"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Indonesian mobile numbers: 08..., 628... or +628...
	phonePattern = regexp.MustCompile(`^(\+62|62|0)[8-9][0-9]{7,11}$`)
	urlPattern   = regexp.MustCompile(`^https?://(www\.)?[-a-zA-Z0-9@:%._\+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_\+.~#?&/=]*)$`)
)

// ErrInvalid is wrapped by every FieldError.
var ErrInvalid = errors.New("invalid input")

// FieldError reports the first field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalid.
func (e *FieldError) Unwrap() error {
	return ErrInvalid
}

func fieldError(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

// IsValidEmail reports whether email looks like an address.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// IsValidPhone reports whether phone is an Indonesian mobile number such as
// 08123456789 or +628123456789.
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(strings.TrimSpace(phone))
}

// IsValidURL reports whether s is an http or https URL.
func IsValidURL(s string) bool {
	return urlPattern.MatchString(strings.TrimSpace(s))
}

// Event checks the fields an event form requires.
func Event(e *event.Event) error {
	required := []struct {
		field, value string
	}{
		{"title", e.Title},
		{"date", e.Date},
		{"location", e.Location},
		{"category", e.Category},
		{"description", e.Description},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fieldError(r.field, "is required")
		}
	}

	if event.ParseDate(e.Date).IsZero() {
		return fieldError("date", fmt.Sprintf("%q is not a date (use YYYY-MM-DD)", e.Date))
	}
	if e.Price < 0 {
		return fieldError("price", "must be 0 or more")
	}
	if img := strings.TrimSpace(e.Image); img != "" && !IsValidURL(img) {
		return fieldError("image", "must be an http(s) URL")
	}
	return nil
}

// Registration checks the fields a registration form requires.
func Registration(r *event.Registration) error {
	if strings.TrimSpace(r.FullName) == "" {
		return fieldError("fullName", "is required")
	}
	if !IsValidEmail(r.Email) {
		return fieldError("email", "please enter a valid email address")
	}
	if !IsValidPhone(r.Phone) {
		return fieldError("phone", "please enter a valid phone number (format: 08123456789 or +628123456789)")
	}
	if r.TicketQty < event.MinTickets || r.TicketQty > event.MaxTickets {
		return fieldError("ticketQty", fmt.Sprintf("number of tickets must be between %d-%d", event.MinTickets, event.MaxTickets))
	}
	if strings.TrimSpace(r.Address) == "" {
		return fieldError("address", "is required")
	}
	return nil
}
