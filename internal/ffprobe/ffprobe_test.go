package ffprobe

import (
	"context"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Width: 1920, Height: 1080},
			{CodecType: "audio", Channels: 2},
		},
		Format: Format{Duration: "12.5"},
	}
	if result.DurationSeconds() != 12.5 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if !result.HasAudio() {
		t.Fatal("expected audio stream")
	}
	w, h := result.VideoDimensions()
	if w != 1920 || h != 1080 {
		t.Fatalf("unexpected dimensions: %dx%d", w, h)
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Duration: "8.25"},
			{CodecType: "audio", Duration: "8.10"},
		},
		Format: Format{Duration: "bad"},
	}
	if result.DurationSeconds() != 8.25 {
		t.Fatalf("unexpected fallback duration: %v", result.DurationSeconds())
	}
}

func TestResultZeroValues(t *testing.T) {
	var result Result
	if result.HasAudio() {
		t.Fatal("empty result should report no audio")
	}
	if w, h := result.VideoDimensions(); w != 0 || h != 0 {
		t.Fatalf("expected zero dimensions, got %dx%d", w, h)
	}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected zero duration, got %v", result.DurationSeconds())
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "", ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
