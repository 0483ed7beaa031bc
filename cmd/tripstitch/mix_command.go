package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"tripstitch/internal/audiomix"
)

func newMixCommand(ctx *commandContext) *cobra.Command {
	var (
		outPath      string
		voiceOver    string
		music        string
		musicOffset  float64
		keepOriginal bool
	)

	cmd := &cobra.Command{
		Use:   "mix <video.mp4>",
		Short: "Mix voice-over and music onto a rendered recap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			spec := audiomix.MixSpec{
				VideoPath:         args[0],
				OutputPath:        outPath,
				VoiceOverPath:     voiceOver,
				MusicPath:         music,
				MusicStartOffset:  musicOffset,
				KeepOriginalAudio: keepOriginal,
				Gains: audiomix.Gains{
					VoiceOver: cfg.Audio.VoiceOverGain,
					Original:  cfg.Audio.OriginalGain,
					Music:     cfg.Audio.MusicGain,
				},
				FFmpegBin:  cfg.Tools.FFmpeg,
				FFprobeBin: cfg.Tools.FFprobe,
				Logger:     ctx.logger,
			}
			if stdoutIsTerminal() {
				bar := progressbar.NewOptions(100,
					progressbar.OptionSetDescription("mixing"),
					progressbar.OptionClearOnFinish(),
				)
				spec.Progress = func(percent float64) { bar.Set(int(percent)) }
			}

			if err := audiomix.Mix(cmd.Context(), spec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "final.mp4", "Output video path")
	cmd.Flags().StringVar(&voiceOver, "voice-over", "", "Voice-over audio file")
	cmd.Flags().StringVar(&music, "music", "", "Background music file, looped and faded out")
	cmd.Flags().Float64Var(&musicOffset, "music-offset", 0, "Seconds into the music track to start from")
	cmd.Flags().BoolVar(&keepOriginal, "keep-original-audio", false, "Mix in the video's own audio track")
	return cmd
}
