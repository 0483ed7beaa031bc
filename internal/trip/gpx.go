package trip

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	gpxgo "github.com/tkrajina/gpxgo/gpx"

	"tripstitch/internal/geo"
)

// ImportGPX builds a trip document from a GPX file. Waypoints become stops in
// file order; when the file carries no waypoints, track segment endpoints are
// used instead. Transport modes for each leg are suggested from distance.
func ImportGPX(path, title string) (*Trip, error) {
	doc, err := gpxgo.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse gpx %s: %w", path, err)
	}

	type stop struct {
		name string
		pt   geo.Point
	}
	var stops []stop

	for _, wp := range doc.Waypoints {
		name := strings.TrimSpace(wp.Name)
		if name == "" {
			name = fmt.Sprintf("Stop %d", len(stops)+1)
		}
		stops = append(stops, stop{name: name, pt: geo.Point{Lat: wp.Latitude, Lng: wp.Longitude}})
	}

	if len(stops) == 0 {
		for _, trk := range doc.Tracks {
			for _, seg := range trk.Segments {
				if len(seg.Points) == 0 {
					continue
				}
				first := seg.Points[0]
				last := seg.Points[len(seg.Points)-1]
				name := strings.TrimSpace(trk.Name)
				if name == "" {
					name = fmt.Sprintf("Stop %d", len(stops)+1)
				}
				stops = append(stops, stop{name: name, pt: geo.Point{Lat: first.Latitude, Lng: first.Longitude}})
				stops = append(stops, stop{
					name: fmt.Sprintf("Stop %d", len(stops)+1),
					pt:   geo.Point{Lat: last.Latitude, Lng: last.Longitude},
				})
			}
		}
	}

	if len(stops) < 2 {
		return nil, fmt.Errorf("gpx %s: found %d stops, need at least 2", path, len(stops))
	}

	if title == "" {
		title = strings.TrimSpace(doc.Name)
	}
	if title == "" {
		title = "My Trip"
	}

	t := &Trip{
		ID:          uuid.NewString(),
		Title:       title,
		TitleColor:  "#FFFFFF",
		AspectRatio: AspectPortrait,
		MapStyle:    "streets",
	}
	for i, s := range stops {
		loc := Location{
			ID:    uuid.NewString(),
			Order: i,
			Name:  s.name,
			Lat:   s.pt.Lat,
			Lng:   s.pt.Lng,
			Clips: []Clip{},
		}
		if i > 0 {
			loc.TransportMode = geo.SuggestMode(stops[i-1].pt, s.pt)
		}
		t.Locations = append(t.Locations, loc)
	}
	return t, nil
}
