package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/devent/internal/config"
	"github.com/pfrederiksen/devent/internal/event"
	"github.com/pfrederiksen/devent/internal/scraper"
	"github.com/pfrederiksen/devent/internal/storage"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize storage and seed the sample events",
		Long: `Initialize storage. Every command does this first; init only reports
the result. When fewer than 6 events are stored, sample events whose
titles are not present yet are added.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats := a.manager.Statistics()
			result := map[string]any{
				"backend": a.cfg.Backend,
				"events":  stats.TotalEvents,
			}
			if a.cfg.Backend == config.BackendFile {
				result["data_dir"] = a.cfg.DataDir
			}
			return a.output(cmd, result, func(w io.Writer) {
				fmt.Fprintf(w, "Storage ready (%s backend): %d events\n", a.cfg.Backend, stats.TotalEvents)
			})
		},
	}
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List event categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			counts := a.manager.CategoryCounts()
			return a.output(cmd, counts, func(w io.Writer) {
				if len(counts) == 0 {
					fmt.Fprintln(w, "No categories found.")
					return
				}
				for _, c := range counts {
					fmt.Fprintf(w, "%s (%d)\n", c.Category, c.Count)
				}
			})
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := &StatsResult{
				Statistics: a.manager.Statistics(),
				Categories: a.manager.CategoryCounts(),
			}
			if showMetrics {
				snapshot := a.metrics.Snapshot()
				result.Metrics = &snapshot
			}
			return a.output(cmd, result, func(w io.Writer) { writeStatsText(w, result) })
		},
	}

	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Include storage metrics for this run")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all data as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backup := a.manager.Export()
			if output == "" || output == "-" {
				return writeJSON(cmd.OutOrStdout(), backup)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}
			defer f.Close()
			if err := writeJSON(f, backup); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			if a.opts.verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d events, %d registrations to %s\n",
					len(backup.Events), len(backup.Registrations), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON export, replacing the collections it contains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading import file: %w", err)
			}

			var backup storage.Backup
			if err := json.Unmarshal(data, &backup); err != nil {
				return fmt.Errorf("parsing import file: %w", err)
			}

			diff, err := a.manager.Import(backup)
			if err != nil {
				return err
			}
			result := newImportResult(diff)
			return a.output(cmd, result, func(w io.Writer) { writeImportText(w, result) })
		},
	}
}

func newImportHTMLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-html <file-or-url>",
		Short: "Add events from a page of D-Event cards",
		Long: `Parse the event cards of a saved D-Event page (or a URL serving one) and
add the events whose titles are not stored yet. Stored events are never
overwritten; changed ones are reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]

			var (
				events []event.Event
				err    error
			)
			if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
				if a.opts.verbose {
					fmt.Fprintf(cmd.ErrOrStderr(), "Fetching events from %s\n", source)
				}
				events, err = scraper.New().FetchEvents(a.context(cmd), source)
			} else {
				var f *os.File
				if f, err = os.Open(source); err != nil {
					return fmt.Errorf("opening %s: %w", source, err)
				}
				defer f.Close()
				events, err = scraper.ParseEvents(f)
			}
			if err != nil {
				return err
			}

			if a.opts.verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "Parsed %d events\n", len(events))
			}

			diff, err := a.manager.MergeEvents(events)
			if err != nil {
				return err
			}
			result := newImportResult(diff)
			return a.output(cmd, result, func(w io.Writer) { writeImportText(w, result) })
		},
	}
}
