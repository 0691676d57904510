// Package event defines the D-Event data model: events, registrations and
// the derived statistics view.
//
// Identifiers and currency amounts use one canonical integer type each.
// Legacy persisted data stores them as either JSON numbers or numeric
// strings; both decode, and values always encode back as numbers.
//
// Registration emails compare trimmed and case-insensitively, so
// "Budi@Example.com" and "budi@example.com" are the same attendee.
package event
