// Package trip defines the trip document model and a controller that owns all
// mutations. Derived values are computed at read time from current state; the
// render pipeline only ever sees an immutable snapshot.
package trip

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"

	"tripstitch/internal/geo"
)

// AspectRatio selects the output frame shape.
type AspectRatio string

const (
	AspectPortrait  AspectRatio = "9:16"
	AspectSquare    AspectRatio = "1:1"
	AspectLandscape AspectRatio = "16:9"
)

// MediaKind distinguishes photo and video clips.
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// AnimationStyle selects the pan/zoom program applied to photo clips.
type AnimationStyle string

const (
	AnimKenBurns      AnimationStyle = "kenBurns"
	AnimZoomIn        AnimationStyle = "zoomIn"
	AnimPanHorizontal AnimationStyle = "panHorizontal"
	AnimStatic        AnimationStyle = "static"
)

// Clip is one piece of media attached to a location.
type Clip struct {
	ID             string         `json:"id"`
	Order          int            `json:"order"`
	Kind           MediaKind      `json:"kind"`
	File           string         `json:"file,omitempty"`
	AnimationStyle AnimationStyle `json:"animationStyle,omitempty"`
}

// Location is one stop on the trip. TransportMode describes travel into this
// location from the previous one.
type Location struct {
	ID            string            `json:"id"`
	Order         int               `json:"order"`
	Name          string            `json:"name"`
	Label         string            `json:"label,omitempty"`
	Description   string            `json:"description,omitempty"`
	Lat           float64           `json:"lat"`
	Lng           float64           `json:"lng"`
	TransportMode geo.TransportMode `json:"transportMode,omitempty"`
	Rating        int               `json:"rating,omitempty"`
	Clips         []Clip            `json:"clips"`
}

// Point returns the location's coordinate.
func (l Location) Point() geo.Point {
	return geo.Point{Lat: l.Lat, Lng: l.Lng}
}

// DisplayName prefers the short label; otherwise the name up to the first comma.
func (l Location) DisplayName() string {
	if l.Label != "" {
		return l.Label
	}
	name := l.Name
	for i := 0; i < len(name); i++ {
		if name[i] == ',' {
			return name[:i]
		}
	}
	return name
}

// ClipsWithMedia returns the clips that have a backing file, in clip order.
func (l Location) ClipsWithMedia() []Clip {
	out := make([]Clip, 0, len(l.Clips))
	for _, c := range l.Clips {
		if c.File != "" {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Trip is the top-level document. Locations are owned exclusively by the trip.
type Trip struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	TitleColor       string      `json:"titleColor"`
	SecondaryColor   string      `json:"secondaryColor,omitempty"`
	TitleDescription string      `json:"titleDescription,omitempty"`
	TitleMediaFile   string      `json:"titleMediaFile,omitempty"`
	ShowLogo         bool        `json:"showLogo,omitempty"`
	FontID           string      `json:"fontId,omitempty"`
	MapStyle         string      `json:"mapStyle,omitempty"`
	AspectRatio      AspectRatio `json:"aspectRatio"`
	Locations        []Location  `json:"locations"`
}

// ErrNotExportable is returned when a trip has too few locations to render.
var ErrNotExportable = errors.New("trip needs at least 2 locations to export")

// SortedLocations returns the locations ordered by their Order field.
func (t *Trip) SortedLocations() []Location {
	out := make([]Location, len(t.Locations))
	copy(out, t.Locations)
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Points returns the ordered location coordinates.
func (t *Trip) Points() []geo.Point {
	locs := t.SortedLocations()
	pts := make([]geo.Point, len(locs))
	for i, l := range locs {
		pts[i] = l.Point()
	}
	return pts
}

// Legs returns ordered coordinates paired with inbound transport modes.
func (t *Trip) Legs() []geo.Leg {
	locs := t.SortedLocations()
	legs := make([]geo.Leg, len(locs))
	for i, l := range locs {
		legs[i] = geo.Leg{Point: l.Point(), Mode: l.TransportMode}
	}
	return legs
}

// Validate checks exportability and document consistency.
func (t *Trip) Validate() error {
	if len(t.Locations) < 2 {
		return ErrNotExportable
	}
	seen := make(map[int]bool, len(t.Locations))
	for _, l := range t.Locations {
		if l.Order < 0 || l.Order >= len(t.Locations) || seen[l.Order] {
			return fmt.Errorf("location %q has non-dense order %d", l.Name, l.Order)
		}
		seen[l.Order] = true
	}
	return nil
}

// Snapshot deep-copies the trip so a render never observes later mutations.
func (t *Trip) Snapshot() *Trip {
	cp := *t
	cp.Locations = make([]Location, len(t.Locations))
	for i, l := range t.Locations {
		lc := l
		lc.Clips = make([]Clip, len(l.Clips))
		copy(lc.Clips, l.Clips)
		cp.Locations[i] = lc
	}
	return &cp
}

// Load reads a trip document from a JSON file.
func Load(path string) (*Trip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trip document: %w", err)
	}
	var t Trip
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse trip document %s: %w", path, err)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return &t, nil
}

// Save writes the trip document as indented JSON.
func Save(t *Trip, path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trip document: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write trip document: %w", err)
	}
	return nil
}
