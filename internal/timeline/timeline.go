// Package timeline tracks the segment list of a composed recap and estimates
// total duration before an export starts. Segment times come from a single
// cursor owned by the builder, so the list is contiguous by construction.
package timeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"tripstitch/internal/clip"
	"tripstitch/internal/maprender"
	"tripstitch/internal/trip"
)

// SegmentKind labels what a segment shows.
type SegmentKind string

const (
	KindTitle SegmentKind = "title"
	KindMap   SegmentKind = "map"
	KindClips SegmentKind = "clips"
	KindRoute SegmentKind = "route"
)

// Segment is one contiguous span of the final video.
type Segment struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	StartSec    float64     `json:"startSec"`
	DurationSec float64     `json:"durationSec"`
	Kind        SegmentKind `json:"kind"`
}

// EndSec is the segment's exclusive end time.
func (s Segment) EndSec() float64 { return s.StartSec + s.DurationSec }

// Builder accumulates segments behind a monotonically advancing cursor.
// Transition pads advance the cursor without producing a segment.
type Builder struct {
	segments []Segment
	cursor   float64
}

// NewBuilder returns an empty builder with the cursor at zero.
func NewBuilder() *Builder { return &Builder{} }

// Append records a segment starting at the current cursor and advances it.
func (b *Builder) Append(label string, kind SegmentKind, duration time.Duration) Segment {
	seg := Segment{
		ID:          uuid.NewString(),
		Label:       label,
		StartSec:    b.cursor,
		DurationSec: duration.Seconds(),
		Kind:        kind,
	}
	b.segments = append(b.segments, seg)
	b.cursor += seg.DurationSec
	return seg
}

// AppendSeconds is Append for durations already measured in seconds, as video
// clip playback reports them.
func (b *Builder) AppendSeconds(label string, kind SegmentKind, seconds float64) Segment {
	seg := Segment{
		ID:          uuid.NewString(),
		Label:       label,
		StartSec:    b.cursor,
		DurationSec: seconds,
		Kind:        kind,
	}
	b.segments = append(b.segments, seg)
	b.cursor += seconds
	return seg
}

// AdvanceCursor moves the cursor without recording a segment, used for the
// white-flash pads around clip groups.
func (b *Builder) AdvanceCursor(d time.Duration) {
	b.cursor += d.Seconds()
}

// CursorSec is the current cursor position.
func (b *Builder) CursorSec() float64 { return b.cursor }

// Segments returns a copy of the recorded segments.
func (b *Builder) Segments() []Segment {
	out := make([]Segment, len(b.segments))
	copy(out, b.segments)
	return out
}

// Timing constants shared between the estimator and the assembler.
const (
	TitleDuration = 2500 * time.Millisecond
	FlashDuration = 200 * time.Millisecond
)

// Estimate predicts the total duration of a recap before rendering. Video
// clip durations (in seconds, keyed by clip ID) come from prior inspection;
// videos without an entry assume the full cap. The math must mirror the
// assembler exactly: title, first fly, a transition per remaining location,
// clip groups padded by flashes on both sides, final route.
func Estimate(t *trip.Trip, videoDurations map[string]float64) float64 {
	locs := t.SortedLocations()
	if len(locs) == 0 {
		return 0
	}

	total := TitleDuration.Seconds()
	total += maprender.FlyToFirstDuration.Seconds()
	total += float64(len(locs)-1) * maprender.FlyToNextDuration.Seconds()

	for _, loc := range locs {
		clips := loc.ClipsWithMedia()
		if len(clips) == 0 {
			continue
		}
		total += 2 * FlashDuration.Seconds()
		for _, c := range clips {
			switch c.Kind {
			case trip.MediaVideo:
				limit := clip.MaxVideoDuration.Seconds()
				if d, ok := videoDurations[c.ID]; ok && d > 0 {
					if d > limit {
						d = limit
					}
					total += d
				} else {
					total += limit
				}
			default:
				total += clip.PhotoDuration.Seconds()
			}
		}
	}

	total += maprender.FinalRouteDuration.Seconds()
	return total
}

// FormatDuration renders an approximate duration for display: "~42s" under a
// minute, "~1m 5s" above.
func FormatDuration(seconds float64) string {
	s := int(seconds + 0.5)
	if s < 60 {
		return fmt.Sprintf("~%ds", s)
	}
	return fmt.Sprintf("~%dm %ds", s/60, s%60)
}
