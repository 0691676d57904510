package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/devent/internal/calendar"
	"github.com/pfrederiksen/devent/internal/event"
	"github.com/pfrederiksen/devent/internal/filter"
	"github.com/pfrederiksen/devent/internal/storage"
	"github.com/pfrederiksen/devent/internal/validate"
)

func newEventsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List and manage events",
	}
	cmd.AddCommand(
		newEventsListCmd(a),
		newEventsShowCmd(a),
		newEventsAddCmd(a),
		newEventsUpdateCmd(a),
		newEventsDeleteCmd(a),
		newEventsICSCmd(a),
	)
	return cmd
}

func newEventsListCmd(a *app) *cobra.Command {
	var (
		category  string
		search    string
		dates     string
		maxPrice  int64
		free      bool
		upcoming  bool
		favorites bool
		sortKey   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseSortKey(sortKey)
			if err != nil {
				return err
			}

			f := &filter.Filter{
				Category:     category,
				Keyword:      search,
				FreeOnly:     free,
				UpcomingOnly: upcoming,
			}
			if dates != "" {
				if f.DateFrom, f.DateTo, err = filter.ParseDateRange(dates); err != nil {
					return fmt.Errorf("parsing --dates: %w", err)
				}
			}
			if cmd.Flags().Changed("max-price") {
				limit := event.Amount(maxPrice)
				f.MaxPrice = &limit
			}

			events := a.manager.Events()
			if favorites {
				events = a.manager.FavoriteEvents()
			}
			events = f.Apply(events)
			if key != "" {
				events = storage.SortEvents(events, key)
			}

			list := &EventList{
				Sort:       key,
				Events:     events,
				EventCount: len(events),
				Favorites:  a.manager.Favorites(),
			}
			if !f.IsEmpty() {
				list.Filter = f.String()
			}
			return a.output(cmd, list, func(w io.Writer) { writeEventsText(w, list, a.opts.verbose) })
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only events in this category ('all' for every category)")
	cmd.Flags().StringVar(&search, "search", "", "Keyword matched against title, description, location and category")
	cmd.Flags().StringVar(&dates, "dates", "", "Date range, e.g. 'Mar 1-15', 'March 2026' or '2026-03-01..2026-03-31'")
	cmd.Flags().Int64Var(&maxPrice, "max-price", 0, "Maximum ticket price in rupiah")
	cmd.Flags().BoolVar(&free, "free", false, "Only free events")
	cmd.Flags().BoolVar(&upcoming, "upcoming", false, "Only events today or later")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "Only favorite events")
	cmd.Flags().StringVar(&sortKey, "sort", "", "Sort: date-asc, date-desc, price-asc, price-desc, name-asc or name-desc")

	return cmd
}

func newEventsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := event.ParseID(args[0])
			if err != nil {
				return err
			}
			evt, err := a.manager.EventByID(id)
			if err != nil {
				return err
			}

			detail := &EventDetail{Event: *evt, Favorite: a.manager.IsFavorite(id)}
			for _, r := range a.manager.RegistrationsByEventID(id) {
				detail.Registrations++
				detail.Tickets += int(r.TicketQty)
			}
			return a.output(cmd, detail, func(w io.Writer) { writeEventText(w, detail) })
		},
	}
}

// eventFlags are the editable event fields shared by add and update.
type eventFlags struct {
	title       string
	date        string
	location    string
	category    string
	price       int64
	description string
	image       string
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Event title")
	cmd.Flags().StringVar(&f.date, "date", "", "Event date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.location, "location", "", "Venue")
	cmd.Flags().StringVar(&f.category, "category", "", "Category, e.g. Conference, Workshop, Music")
	cmd.Flags().Int64Var(&f.price, "price", 0, "Ticket price in rupiah (0 = free)")
	cmd.Flags().StringVar(&f.description, "description", "", "Description")
	cmd.Flags().StringVar(&f.image, "image", "", "Image URL")
}

// patch returns the fields whose flags were given on the command line.
func (f *eventFlags) patch(cmd *cobra.Command) event.Patch {
	var p event.Patch
	changed := cmd.Flags().Changed
	if changed("title") {
		p.Title = &f.title
	}
	if changed("date") {
		p.Date = &f.date
	}
	if changed("location") {
		p.Location = &f.location
	}
	if changed("category") {
		p.Category = &f.category
	}
	if changed("price") {
		price := event.Amount(f.price)
		p.Price = &price
	}
	if changed("description") {
		p.Description = &f.description
	}
	if changed("image") {
		p.Image = &f.image
	}
	return p
}

func newEventsAddCmd(a *app) *cobra.Command {
	var f eventFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			evt := event.Event{
				Title:       strings.TrimSpace(f.title),
				Date:        strings.TrimSpace(f.date),
				Location:    strings.TrimSpace(f.location),
				Category:    strings.TrimSpace(f.category),
				Price:       event.Amount(f.price),
				Description: strings.TrimSpace(f.description),
				Image:       strings.TrimSpace(f.image),
			}
			if err := validate.Event(&evt); err != nil {
				return err
			}

			added, err := a.manager.AddEvent(evt)
			if err != nil {
				return err
			}
			return a.output(cmd, added, func(w io.Writer) {
				fmt.Fprintf(w, "Event added: %s (ID %d)\n", added.Title, added.ID)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newEventsUpdateCmd(a *app) *cobra.Command {
	var f eventFlags

	cmd := &cobra.Command{
		Use:   "update <event-id>",
		Short: "Update the given fields of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := event.ParseID(args[0])
			if err != nil {
				return err
			}
			p := f.patch(cmd)
			if p.IsEmpty() {
				return fmt.Errorf("nothing to update: pass at least one field flag")
			}

			current, err := a.manager.EventByID(id)
			if err != nil {
				return err
			}
			merged := p.Apply(*current)
			if err := validate.Event(&merged); err != nil {
				return err
			}

			updated, err := a.manager.UpdateEvent(id, p)
			if err != nil {
				return err
			}
			return a.output(cmd, updated, func(w io.Writer) {
				fmt.Fprintf(w, "Event updated: %s (ID %d)\n", updated.Title, updated.ID)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newEventsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete an event and its registrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := event.ParseID(args[0])
			if err != nil {
				return err
			}
			removed := len(a.manager.RegistrationsByEventID(id))
			if err := a.manager.DeleteEvent(id); err != nil {
				return err
			}

			result := map[string]any{"deleted": id, "registrations_removed": removed}
			return a.output(cmd, result, func(w io.Writer) {
				fmt.Fprintf(w, "Event %d deleted (%d registrations removed)\n", id, removed)
			})
		},
	}
}

func newEventsICSCmd(a *app) *cobra.Command {
	var (
		output   string
		upcoming bool
	)

	cmd := &cobra.Command{
		Use:   "ics [event-id...]",
		Short: "Export events as an iCalendar file",
		Long:  "Export the given events, or every event when no id is given, as iCalendar (.ics).",
		RunE: func(cmd *cobra.Command, args []string) error {
			var events []event.Event
			if len(args) == 0 {
				f := &filter.Filter{UpcomingOnly: upcoming}
				events = f.Apply(a.manager.Events())
			}
			for _, arg := range args {
				id, err := event.ParseID(arg)
				if err != nil {
					return err
				}
				evt, err := a.manager.EventByID(id)
				if err != nil {
					return err
				}
				events = append(events, *evt)
			}

			ics := calendar.GenerateICS(a.now(), events...)
			if output == "" || output == "-" {
				_, err := io.WriteString(cmd.OutOrStdout(), ics)
				return err
			}
			if err := os.WriteFile(output, []byte(ics), 0644); err != nil {
				return fmt.Errorf("writing calendar: %w", err)
			}
			if a.opts.verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d events to %s\n", len(events), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&upcoming, "upcoming", false, "Only upcoming events (when no ids are given)")
	return cmd
}
