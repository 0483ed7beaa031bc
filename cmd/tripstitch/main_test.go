package main

import (
	"strings"
	"testing"

	"tripstitch/internal/timeline"
	"tripstitch/internal/trip"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	want := []string{"render", "estimate", "mix", "trip", "version"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("subcommand %q not registered", name)
		}
	}
}

func TestSegmentTableRendersEveryRow(t *testing.T) {
	out := segmentTable([]timeline.Segment{
		{Kind: timeline.KindTitle, Label: "Trip intro", StartSec: 0, DurationSec: 2.5},
		{Kind: timeline.KindMap, Label: "Pier 39", StartSec: 2.5, DurationSec: 4},
	})
	for _, want := range []string{"Trip intro", "Pier 39", "2.5s", "4.0s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestClipSummary(t *testing.T) {
	cases := []struct {
		clips []trip.Clip
		want  string
	}{
		{nil, "-"},
		{[]trip.Clip{{Kind: trip.MediaPhoto}}, "1 photo(s)"},
		{[]trip.Clip{{Kind: trip.MediaPhoto}, {Kind: trip.MediaVideo}, {Kind: trip.MediaVideo}}, "1 photo(s), 2 video(s)"},
	}
	for _, c := range cases {
		if got := clipSummary(c.clips); got != c.want {
			t.Fatalf("clipSummary = %q, want %q", got, c.want)
		}
	}
}

func TestEstimateTableClipGroupMatchesEstimator(t *testing.T) {
	tr := &trip.Trip{
		Locations: []trip.Location{
			{ID: "a", Order: 0, Name: "Start"},
			{ID: "b", Order: 1, Name: "End", Clips: []trip.Clip{
				{ID: "c1", Order: 0, Kind: trip.MediaPhoto, File: "a.jpg"},
			}},
		},
	}
	out := estimateTable(tr, nil)
	// One photo plus the two flash pads around the group.
	if !strings.Contains(out, "3.4s") {
		t.Fatalf("clip group duration missing:\n%s", out)
	}
}
