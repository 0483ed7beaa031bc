package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tripstitch/internal/geo"
	"tripstitch/internal/timeline"
	"tripstitch/internal/trip"
)

func newTripCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trip",
		Short: "Inspect and create trip documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newTripShowCommand(ctx))
	cmd.AddCommand(newTripImportCommand(ctx))
	return cmd
}

func newTripShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <trip.json>",
		Short: "Display a trip document as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			t, err := trip.Load(args[0])
			if err != nil {
				return err
			}

			locs := t.SortedLocations()
			rows := make([][]string, 0, len(locs))
			for _, loc := range locs {
				mode := string(loc.TransportMode)
				if mode == "" {
					mode = "-"
				}
				rating := "-"
				if loc.Rating > 0 {
					rating = fmt.Sprintf("%d/5", loc.Rating)
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", loc.Order+1),
					loc.DisplayName(),
					fmt.Sprintf("%.4f, %.4f", loc.Lat, loc.Lng),
					mode,
					rating,
					clipSummary(loc.ClipsWithMedia()),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s, %d locations)\n", t.Title, t.AspectRatio, len(locs))
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Location", "Coordinates", "Arrived by", "Rating", "Media"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "Distance: %.1f mi, estimated recap: %s\n",
				geo.TotalDistance(t.Points()),
				timeline.FormatDuration(timeline.Estimate(t, nil)))
			return nil
		},
	}
}

func newTripImportCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var title string

	cmd := &cobra.Command{
		Use:   "import <track.gpx>",
		Short: "Create a trip document from a GPX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			t, err := trip.ImportGPX(args[0], title)
			if err != nil {
				return err
			}
			if err := trip.Save(t, outPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d locations)\n", outPath, len(t.Locations))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "trip.json", "Output trip document path")
	cmd.Flags().StringVar(&title, "title", "", "Trip title (defaults to the GPX name)")
	return cmd
}
