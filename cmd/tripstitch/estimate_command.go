package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tripstitch/internal/ffprobe"
	"tripstitch/internal/maprender"
	"tripstitch/internal/timeline"
	"tripstitch/internal/trip"
)

func newEstimateCommand(ctx *commandContext) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "estimate <trip.json>",
		Short: "Estimate the duration of a recap without rendering it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			t, err := trip.Load(args[0])
			if err != nil {
				return err
			}

			// Probed video lengths tighten the estimate; videos that fail
			// to probe fall back to the playback cap.
			durations := map[string]float64{}
			if probe {
				for _, loc := range t.SortedLocations() {
					for _, c := range loc.ClipsWithMedia() {
						if c.Kind != trip.MediaVideo {
							continue
						}
						info, err := ffprobe.Inspect(cmd.Context(), cfg.Tools.FFprobe, c.File)
						if err != nil {
							ctx.logger.Warn("probe failed, assuming full clip", "file", c.File, "error", err)
							continue
						}
						durations[c.ID] = info.DurationSeconds()
					}
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, estimateTable(t, durations))
			fmt.Fprintf(out, "Estimated recap length: %s\n",
				timeline.FormatDuration(timeline.Estimate(t, durations)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Probe video clips with ffprobe for exact lengths")
	return cmd
}

func estimateTable(t *trip.Trip, durations map[string]float64) string {
	locs := t.SortedLocations()
	rows := [][]string{
		{"Trip intro", "title", fmt.Sprintf("%.1fs", timeline.TitleDuration.Seconds())},
	}
	for i, loc := range locs {
		fly := maprender.FlyToNextDuration
		if i == 0 {
			fly = maprender.FlyToFirstDuration
		}
		rows = append(rows, []string{loc.DisplayName(), "map", fmt.Sprintf("%.1fs", fly.Seconds())})

		clips := loc.ClipsWithMedia()
		if len(clips) == 0 {
			continue
		}
		single := &trip.Trip{Locations: []trip.Location{{Clips: loc.Clips}}}
		group := timeline.Estimate(single, durations) -
			timeline.TitleDuration.Seconds() -
			maprender.FlyToFirstDuration.Seconds() -
			maprender.FinalRouteDuration.Seconds()
		rows = append(rows, []string{
			loc.DisplayName() + " memories",
			fmt.Sprintf("clips (%s)", clipSummary(clips)),
			fmt.Sprintf("%.1fs", group),
		})
	}
	rows = append(rows, []string{"Trip route", "route", fmt.Sprintf("%.1fs", maprender.FinalRouteDuration.Seconds())})

	return renderTable(
		[]string{"Segment", "Kind", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	)
}
