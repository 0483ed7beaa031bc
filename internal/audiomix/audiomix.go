// Package audiomix remuxes the rendered picture with voice-over, original
// clip audio and background music in a single ffmpeg pass. The picture track
// is never re-encoded.
package audiomix

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"tripstitch/internal/ffprobe"
)

// Gains are the relative volumes of the three possible audio sources.
type Gains struct {
	VoiceOver float64
	Original  float64
	Music     float64
}

// DefaultGains mirrors the mix the composer was tuned with.
func DefaultGains() Gains {
	return Gains{VoiceOver: 1.0, Original: 0.2, Music: 0.7}
}

const musicFadeSeconds = 3.0

// MixSpec describes one mix job.
type MixSpec struct {
	VideoPath         string
	OutputPath        string
	VoiceOverPath     string // optional
	MusicPath         string // optional
	MusicStartOffset  float64
	KeepOriginalAudio bool
	Gains             Gains
	FFmpegBin         string
	FFprobeBin        string
	Logger            *slog.Logger
	Progress          func(percent float64) // optional, monotonic in [0, 100]
}

// buildArgs assembles the full ffmpeg invocation. Split out so the filter
// graph is testable without running ffmpeg.
func buildArgs(spec MixSpec, hasOriginalAudio bool, duration float64) []string {
	args := []string{"-y", "-v", "error", "-progress", "pipe:1", "-nostats"}

	args = append(args, "-i", spec.VideoPath)
	next := 1

	voIdx, musicIdx := -1, -1
	if spec.VoiceOverPath != "" {
		args = append(args, "-i", spec.VoiceOverPath)
		voIdx = next
		next++
	}
	if spec.MusicPath != "" {
		// Loop the music input; the filter trims it back to the video
		// length, so short tracks repeat seamlessly.
		args = append(args, "-stream_loop", "-1")
		if spec.MusicStartOffset > 0 {
			args = append(args, "-ss", fmt.Sprintf("%.3f", spec.MusicStartOffset))
		}
		args = append(args, "-i", spec.MusicPath)
		musicIdx = next
		next++
	}

	var filters []string
	var mixInputs []string

	useOriginal := spec.KeepOriginalAudio && hasOriginalAudio
	if useOriginal {
		filters = append(filters, fmt.Sprintf("[0:a]volume=%.3f,atrim=duration=%.3f[orig]", spec.Gains.Original, duration))
		mixInputs = append(mixInputs, "[orig]")
	}
	if voIdx >= 0 {
		filters = append(filters, fmt.Sprintf("[%d:a]volume=%.3f,atrim=duration=%.3f[vo]", voIdx, spec.Gains.VoiceOver, duration))
		mixInputs = append(mixInputs, "[vo]")
	}
	if musicIdx >= 0 {
		fadeStart := duration - musicFadeSeconds
		if fadeStart < 0 {
			fadeStart = 0
		}
		filters = append(filters, fmt.Sprintf(
			"[%d:a]atrim=duration=%.3f,volume=%.3f,afade=t=out:st=%.3f:d=%.3f[music]",
			musicIdx, duration, spec.Gains.Music, fadeStart, musicFadeSeconds))
		mixInputs = append(mixInputs, "[music]")
	}

	if len(mixInputs) == 0 {
		// Nothing to mix: pass the container through untouched.
		args = append(args, "-c", "copy", spec.OutputPath)
		return args
	}

	var out string
	if len(mixInputs) == 1 {
		out = mixInputs[0]
	} else {
		filters = append(filters, fmt.Sprintf("%samix=inputs=%d:normalize=0[mix]",
			strings.Join(mixInputs, ""), len(mixInputs)))
		out = "[mix]"
	}

	args = append(args,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", "0:v",
		"-map", out,
		"-c:v", "copy",
		"-c:a", "aac",
		"-t", fmt.Sprintf("%.3f", duration),
		spec.OutputPath,
	)
	return args
}

// parseOutTime extracts seconds from an ffmpeg -progress line, or -1 when the
// line carries no usable position.
func parseOutTime(line string) float64 {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return -1
	}
	switch key {
	case "out_time_us", "out_time_ms":
		// Both keys are microseconds in practice.
		us, err := strconv.ParseFloat(value, 64)
		if err != nil || us < 0 {
			return -1
		}
		return us / 1e6
	case "out_time":
		var h, m int
		var s float64
		if _, err := fmt.Sscanf(value, "%d:%d:%f", &h, &m, &s); err != nil {
			return -1
		}
		return float64(h)*3600 + float64(m)*60 + s
	}
	return -1
}

// Mix runs the remux/mix job. Progress callbacks are clamped to [0, 100] and
// never move backwards.
func Mix(ctx context.Context, spec MixSpec) error {
	if spec.FFmpegBin == "" {
		spec.FFmpegBin = "ffmpeg"
	}
	if spec.Logger == nil {
		spec.Logger = slog.Default()
	}
	if spec.Gains == (Gains{}) {
		spec.Gains = DefaultGains()
	}

	info, err := ffprobe.Inspect(ctx, spec.FFprobeBin, spec.VideoPath)
	if err != nil {
		return err
	}
	duration := info.DurationSeconds()
	if duration <= 0 {
		return fmt.Errorf("video %s has no duration", spec.VideoPath)
	}

	args := buildArgs(spec, info.HasAudio(), duration)
	spec.Logger.Debug("audio mix starting", "duration", duration, "original_audio", info.HasAudio())

	cmd := exec.CommandContext(ctx, spec.FFmpegBin, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("mix progress pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start audio mix: %w", err)
	}

	last := 0.0
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		secs := parseOutTime(scanner.Text())
		if secs < 0 || spec.Progress == nil {
			continue
		}
		percent := secs / duration * 100
		if percent > 100 {
			percent = 100
		}
		if percent > last {
			last = percent
			spec.Progress(percent)
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("audio mix: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if spec.Progress != nil && last < 100 {
		spec.Progress(100)
	}
	return nil
}
