package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pfrederiksen/devent/internal/event"
	"github.com/pfrederiksen/devent/internal/logger"
	"github.com/pfrederiksen/devent/internal/storage"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// EventList is the result of events list.
type EventList struct {
	Filter     string        `json:"filter"`
	Sort       string        `json:"sort,omitempty"`
	Events     []event.Event `json:"events"`
	EventCount int           `json:"event_count"`
	Favorites  []event.ID    `json:"favorites"`
}

// EventDetail is the result of events show.
type EventDetail struct {
	Event         event.Event `json:"event"`
	Favorite      bool        `json:"favorite"`
	Registrations int         `json:"registrations"`
	Tickets       int         `json:"tickets"`
}

// ImportResult describes how an import changed the events collection.
type ImportResult struct {
	Added   []event.Event `json:"added"`
	Removed []event.Event `json:"removed"`
	Changed []event.Event `json:"changed"`
}

func newImportResult(diff *event.DiffResult) *ImportResult {
	return &ImportResult{Added: diff.Added, Removed: diff.Removed, Changed: diff.Changed}
}

// StatsResult is the result of stats.
type StatsResult struct {
	event.Statistics
	Categories []storage.CategoryCount `json:"categories"`
	Metrics    *logger.MetricsSnapshot `json:"metrics,omitempty"`
}

// WriteOutput writes v as JSON, or calls text to render it for humans.
func WriteOutput(w io.Writer, format OutputFormat, v any, text func(w io.Writer)) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, v)
	case FormatText:
		text(w)
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeEventsText outputs an event listing as human-readable text
func writeEventsText(w io.Writer, list *EventList, verbose bool) {
	if list.EventCount == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	favorites := make(map[event.ID]bool, len(list.Favorites))
	for _, id := range list.Favorites {
		favorites[id] = true
	}

	for i := range list.Events {
		evt := &list.Events[i]
		marker := " "
		if favorites[evt.ID] {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %d  %s  %s (%s)  %s\n", marker, evt.ID, evt.Date, evt.Title, evt.Category, evt.Price.Format())
		if verbose {
			fmt.Fprintf(w, "     Location: %s\n", evt.Location)
			if evt.IsPast() {
				fmt.Fprintln(w, "     Past event")
			}
		}
	}

	if list.Filter != "" {
		fmt.Fprintf(w, "\nFilter: %s\n", list.Filter)
	}
	fmt.Fprintf(w, "Total: %d events\n", list.EventCount)
}

func writeEventText(w io.Writer, d *EventDetail) {
	evt := &d.Event
	fmt.Fprintf(w, "%s\n", evt.Title)
	fmt.Fprintf(w, "  ID:          %d\n", evt.ID)
	fmt.Fprintf(w, "  Date:        %s\n", evt.Date)
	fmt.Fprintf(w, "  Location:    %s\n", evt.Location)
	fmt.Fprintf(w, "  Category:    %s\n", evt.Category)
	fmt.Fprintf(w, "  Price:       %s\n", evt.Price.Format())
	fmt.Fprintf(w, "  Image:       %s\n", evt.ImageURL())
	if d.Favorite {
		fmt.Fprintln(w, "  Favorite:    yes")
	}
	fmt.Fprintf(w, "  Registered:  %d registrations, %d tickets\n", d.Registrations, d.Tickets)
	if desc := strings.TrimSpace(evt.Description); desc != "" {
		fmt.Fprintf(w, "\n%s\n", desc)
	}
}

func writeRegistrationsText(w io.Writer, regs []event.Registration) {
	if len(regs) == 0 {
		fmt.Fprintln(w, "No registrations found.")
		return
	}
	for i := range regs {
		r := &regs[i]
		fmt.Fprintf(w, "%s  %s  %s <%s>  %d ticket(s)  %s\n",
			r.RegistrationID, r.EventTitle, r.FullName, r.Email, r.TicketQty, r.TotalPrice.Format())
	}
	fmt.Fprintf(w, "\nTotal: %d registrations\n", len(regs))
}

func writeRegistrationText(w io.Writer, r *event.Registration) {
	fmt.Fprintf(w, "Registration %s\n", r.RegistrationID)
	fmt.Fprintf(w, "  Event:    %s (%d)\n", r.EventTitle, r.EventID)
	if r.EventDate != "" {
		fmt.Fprintf(w, "  Date:     %s\n", r.EventDate)
	}
	if r.EventLocation != "" {
		fmt.Fprintf(w, "  Location: %s\n", r.EventLocation)
	}
	fmt.Fprintf(w, "  Name:     %s\n", r.FullName)
	fmt.Fprintf(w, "  Email:    %s\n", r.Email)
	fmt.Fprintf(w, "  Phone:    %s\n", r.Phone)
	fmt.Fprintf(w, "  Address:  %s\n", r.Address)
	fmt.Fprintf(w, "  Tickets:  %d x %s\n", r.TicketQty, r.PricePerTicket.Format())
	fmt.Fprintf(w, "  Total:    %s\n", r.TotalPrice.Format())
	if r.PaymentMethod != "" {
		fmt.Fprintf(w, "  Paid:     %s via %s\n", r.PaymentAmount.Format(), r.PaymentMethod)
	}
	if r.PaymentStatus != "" {
		fmt.Fprintf(w, "  Status:   %s\n", r.PaymentStatus)
	}
	if !r.RegistrationDate.IsZero() {
		fmt.Fprintf(w, "  Created:  %s\n", r.RegistrationDate.Format("2006-01-02 15:04"))
	}
	if r.Notes != "" {
		fmt.Fprintf(w, "  Notes:    %s\n", r.Notes)
	}
}

func writeImportText(w io.Writer, result *ImportResult) {
	if len(result.Added)+len(result.Removed)+len(result.Changed) == 0 {
		fmt.Fprintln(w, "No event changes.")
		return
	}
	for _, evt := range result.Added {
		fmt.Fprintf(w, "ADDED: %s (%s)\n", evt.Title, evt.Date)
	}
	for _, evt := range result.Changed {
		fmt.Fprintf(w, "CHANGED: %s (%s)\n", evt.Title, evt.Date)
	}
	for _, evt := range result.Removed {
		fmt.Fprintf(w, "REMOVED: %s (%s)\n", evt.Title, evt.Date)
	}
	fmt.Fprintf(w, "\nTotal: %d added, %d changed, %d removed\n", len(result.Added), len(result.Changed), len(result.Removed))
}

func writeStatsText(w io.Writer, s *StatsResult) {
	fmt.Fprintf(w, "Events:        %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Categories:    %d\n", s.TotalCategories)
	fmt.Fprintf(w, "Registrations: %d\n", s.TotalRegistrations)
	fmt.Fprintf(w, "Tickets:       %d\n", s.TotalTickets)
	fmt.Fprintf(w, "Revenue:       %s\n", s.TotalRevenue.Format())

	if len(s.Categories) > 0 {
		fmt.Fprintln(w, "\nBy category:")
		for _, c := range s.Categories {
			fmt.Fprintf(w, "  %-20s %d\n", c.Category, c.Count)
		}
	}

	if s.Metrics != nil {
		fmt.Fprintln(w, "\nMetrics:")
		for _, name := range sortedNames(s.Metrics.Counters) {
			fmt.Fprintf(w, "  %-28s %d\n", name, s.Metrics.Counters[name])
		}
		for _, name := range sortedNames(s.Metrics.Gauges) {
			fmt.Fprintf(w, "  %-28s %g\n", name, s.Metrics.Gauges[name])
		}
		for _, name := range sortedNames(s.Metrics.Timings) {
			t := s.Metrics.Timings[name]
			fmt.Fprintf(w, "  %-28s count=%d avg=%s max=%s\n", name, t.Count, t.Average, t.Max)
		}
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
