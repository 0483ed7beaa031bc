package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"tripstitch/internal/assembler"
	"tripstitch/internal/capture"
	"tripstitch/internal/timeline"
	"tripstitch/internal/trip"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var logoPath string

	cmd := &cobra.Command{
		Use:   "render <trip.json>",
		Short: "Render a trip document into a recap video",
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

			tty := stdoutIsTerminal()
			var bar *progressbar.ProgressBar
			opts := assembler.Options{
				Trip:           t,
				TileCachePath:  cfg.Map.TileCachePath,
				RoutingBaseURL: cfg.Routing.BaseURL,
				FFmpegBin:      cfg.Tools.FFmpeg,
				FFprobeBin:     cfg.Tools.FFprobe,
				LogoPath:       logoPath,
				Logger:         ctx.logger,
				ShowProgress:   tty,
				Visibility:     capture.NewSignalVisibility(),
			}
			if tty {
				opts.OnProgress = func(p assembler.Progress) {
					if bar == nil {
						bar = progressbar.NewOptions(p.Total,
							progressbar.OptionSetDescription("rendering"),
							progressbar.OptionClearOnFinish(),
						)
					}
					bar.Describe(p.Phase)
					bar.Set(p.Step)
				}
			}

			res, err := assembler.Assemble(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, res.Video, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s (%s, %d segments)\n",
				outPath, timeline.FormatDuration(res.DurationSec), len(res.Segments))
			fmt.Fprintln(out, segmentTable(res.Segments))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "recap.mp4", "Output video path")
	cmd.Flags().StringVar(&logoPath, "logo", "", "Watermark image stamped on every frame")
	return cmd
}

func segmentTable(segments []timeline.Segment) string {
	rows := make([][]string, 0, len(segments))
	for _, s := range segments {
		rows = append(rows, []string{
			string(s.Kind),
			s.Label,
			fmt.Sprintf("%.1fs", s.StartSec),
			fmt.Sprintf("%.1fs", s.DurationSec),
		})
	}
	return renderTable(
		[]string{"Kind", "Label", "Start", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}

func clipSummary(clips []trip.Clip) string {
	if len(clips) == 0 {
		return "-"
	}
	photos, videos := 0, 0
	for _, c := range clips {
		if c.Kind == trip.MediaVideo {
			videos++
		} else {
			photos++
		}
	}
	var parts []string
	if photos > 0 {
		parts = append(parts, fmt.Sprintf("%d photo(s)", photos))
	}
	if videos > 0 {
		parts = append(parts, fmt.Sprintf("%d video(s)", videos))
	}
	return strings.Join(parts, ", ")
}
