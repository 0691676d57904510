package event

import (
	"strings"
	"time"
)

// Ticket limits per registration.
const (
	MinTickets = 1
	MaxTickets = 10
)

// Payment status values.
const (
	PaymentCompleted = "completed"
	PaymentFree      = "free"
)

// Registration records a person committing to attend an event.
type Registration struct {
	RegistrationID   string     `json:"registrationId"`
	EventID          ID         `json:"eventId"`
	EventTitle       string     `json:"eventTitle,omitempty"`
	EventDate        string     `json:"eventDate,omitempty"`
	EventLocation    string     `json:"eventLocation,omitempty"`
	FullName         string     `json:"fullName"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	TicketQty        Quantity   `json:"ticketQty"`
	Address          string     `json:"address"`
	Notes            string     `json:"notes,omitempty"`
	PricePerTicket   Amount     `json:"pricePerTicket"`
	TotalPrice       Amount     `json:"totalPrice"` // computed by the caller
	RegistrationDate time.Time  `json:"registrationDate"`
	PaymentMethod    string     `json:"paymentMethod,omitempty"`
	PaymentAmount    Amount     `json:"paymentAmount,omitempty"`
	PaymentDate      *time.Time `json:"paymentDate,omitempty"`
	PaymentStatus    string     `json:"paymentStatus,omitempty"`
}

// NewRegistration builds a registration draft for evt, copying the event
// details shown on confirmation screens and computing the total price.
func NewRegistration(evt *Event, fullName, email, phone string, qty Quantity, address, notes string) *Registration {
	return &Registration{
		EventID:        evt.ID,
		EventTitle:     evt.Title,
		EventDate:      evt.Date,
		EventLocation:  evt.Location,
		FullName:       strings.TrimSpace(fullName),
		Email:          strings.TrimSpace(email),
		Phone:          strings.TrimSpace(phone),
		TicketQty:      qty,
		Address:        strings.TrimSpace(address),
		Notes:          strings.TrimSpace(notes),
		PricePerTicket: evt.Price,
		TotalPrice:     evt.Price * Amount(qty),
	}
}

// SameAttendee reports whether r and other are for the same event and email.
// Emails compare case-insensitively.
func (r *Registration) SameAttendee(other *Registration) bool {
	return r.EventID == other.EventID && NormalizeEmail(r.Email) == NormalizeEmail(other.Email)
}

// IsFree reports whether nothing is owed for the registration.
func (r *Registration) IsFree() bool {
	return r.TotalPrice == 0
}

// NormalizeEmail trims and lowercases an email address for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
