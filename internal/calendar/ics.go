// Package calendar renders events as iCalendar (RFC 5545) documents.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/devent/internal/event"
)

// UIDDomain is appended to event ids to form calendar UIDs.
const UIDDomain = "devent.local"

// maxLineOctets is the RFC 5545 line length limit, excluding CRLF.
const maxLineOctets = 75

// GenerateICS generates one calendar holding an all-day VEVENT per event.
// Events whose date cannot be parsed are left out. stamp becomes DTSTAMP.
func GenerateICS(stamp time.Time, events ...event.Event) string {
	var ics strings.Builder

	writeLine(&ics, "BEGIN:VCALENDAR")
	writeLine(&ics, "VERSION:2.0")
	writeLine(&ics, "PRODID:-//D-Event//devent//EN")
	writeLine(&ics, "CALSCALE:GREGORIAN")
	writeLine(&ics, "METHOD:PUBLISH")

	for i := range events {
		writeEvent(&ics, &events[i], stamp)
	}

	writeLine(&ics, "END:VCALENDAR")
	return ics.String()
}

func writeEvent(ics *strings.Builder, evt *event.Event, stamp time.Time) {
	date := event.ParseDate(evt.Date)
	if date.IsZero() {
		return
	}

	writeLine(ics, "BEGIN:VEVENT")
	writeLine(ics, fmt.Sprintf("UID:%d@%s", evt.ID, UIDDomain))
	writeLine(ics, "DTSTAMP:"+formatICSTime(stamp))

	// All-day event: DTEND is the exclusive following day.
	writeLine(ics, "DTSTART;VALUE=DATE:"+formatICSDate(date))
	writeLine(ics, "DTEND;VALUE=DATE:"+formatICSDate(date.AddDate(0, 0, 1)))

	writeLine(ics, "SUMMARY:"+escapeICS(evt.Title))

	description := fmt.Sprintf("Price: %s", evt.Price.Format())
	if evt.Description != "" {
		description = evt.Description + "\n\n" + description
	}
	writeLine(ics, "DESCRIPTION:"+escapeICS(description))

	if evt.Location != "" {
		writeLine(ics, "LOCATION:"+escapeICS(evt.Location))
	}
	if evt.Category != "" {
		writeLine(ics, "CATEGORIES:"+escapeICS(evt.Category))
	}
	if evt.UpdatedAt != nil {
		writeLine(ics, "LAST-MODIFIED:"+formatICSTime(*evt.UpdatedAt))
	}

	writeLine(ics, "STATUS:CONFIRMED")
	writeLine(ics, "TRANSP:TRANSPARENT")
	writeLine(ics, "END:VEVENT")
}

// writeLine writes a content line folded to maxLineOctets, never splitting
// a UTF-8 sequence.
func writeLine(ics *strings.Builder, line string) {
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !isRuneStart(line[cut]) {
			cut--
		}
		ics.WriteString(line[:cut])
		ics.WriteString("\r\n ")
		line = line[cut:]
		// Continuation lines start with a space that counts toward the limit.
		limit = maxLineOctets - 1
	}
	ics.WriteString(line)
	ics.WriteString("\r\n")
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// formatICSTime formats a time.Time as an iCalendar UTC datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func formatICSDate(t time.Time) string {
	return t.Format("20060102")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
