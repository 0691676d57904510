package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/devent/internal/event"
)

func newFavoritesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Manage favorite events",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List favorite events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events := a.manager.FavoriteEvents()
			result := &EventList{
				Events:     events,
				EventCount: len(events),
				Favorites:  a.manager.Favorites(),
			}
			return a.output(cmd, result, func(w io.Writer) { writeEventsText(w, result, a.opts.verbose) })
		},
	}

	add := &cobra.Command{
		Use:   "add <event-id>",
		Short: "Add an event to favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := event.ParseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.manager.EventByID(id); err != nil {
				return err
			}
			added, err := a.manager.AddToFavorites(id)
			if err != nil {
				return err
			}
			result := map[string]any{"event_id": id, "added": added}
			return a.output(cmd, result, func(w io.Writer) {
				if added {
					fmt.Fprintf(w, "Event %d added to favorites\n", id)
				} else {
					fmt.Fprintf(w, "Event %d is already a favorite\n", id)
				}
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <event-id>",
		Short: "Remove an event from favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := event.ParseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.manager.RemoveFromFavorites(id); err != nil {
				return err
			}
			result := map[string]any{"event_id": id, "removed": true}
			return a.output(cmd, result, func(w io.Writer) {
				fmt.Fprintf(w, "Event %d removed from favorites\n", id)
			})
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}
