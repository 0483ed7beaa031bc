package geo

import (
	"math"
	"testing"
)

func TestDistanceKnownPair(t *testing.T) {
	// Golden Gate Bridge to Ferry Building, roughly 5.2 miles.
	a := Point{Lat: 37.8199, Lng: -122.4783}
	b := Point{Lat: 37.7955, Lng: -122.3937}
	d := Distance(a, b)
	if d < 4.5 || d > 5.5 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestDistanceCoincidentIsZero(t *testing.T) {
	p := Point{Lat: 40.7128, Lng: -74.006}
	if d := Distance(p, p); d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestTravelTimeMinutes(t *testing.T) {
	cases := []struct {
		miles float64
		mode  TransportMode
		want  float64
	}{
		{3, ModeWalked, 60},
		{12, ModeBiked, 60},
		{25, ModeDrove, 60},
		{5, ModeDrove, 12},
	}
	for _, tc := range cases {
		got := TravelTimeMinutes(tc.miles, tc.mode)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("TravelTimeMinutes(%v, %s) = %v, want %v", tc.miles, tc.mode, got, tc.want)
		}
	}
}

func TestSuggestModeThresholds(t *testing.T) {
	origin := Point{Lat: 40, Lng: -74}
	// One degree of longitude at lat 40 is about 53 miles; scale offsets from that.
	mileLng := 1.0 / 53.0
	cases := []struct {
		offset float64
		want   TransportMode
	}{
		{0, ModeWalked},
		{0.5 * mileLng, ModeWalked},
		{2 * mileLng, ModeBiked},
		{20 * mileLng, ModeDrove},
	}
	for _, tc := range cases {
		got := SuggestMode(origin, Point{Lat: origin.Lat, Lng: origin.Lng + tc.offset})
		if got != tc.want {
			t.Fatalf("SuggestMode offset %v = %s, want %s", tc.offset, got, tc.want)
		}
	}
}

func TestTotalDistanceShortInputs(t *testing.T) {
	if d := TotalDistance(nil); d != 0 {
		t.Fatalf("expected 0 for empty input, got %v", d)
	}
	if d := TotalDistance([]Point{{Lat: 1, Lng: 1}}); d != 0 {
		t.Fatalf("expected 0 for single point, got %v", d)
	}
}

func TestTotalDistanceIsSumOfLegs(t *testing.T) {
	pts := []Point{
		{Lat: 37.8199, Lng: -122.4783},
		{Lat: 37.8083, Lng: -122.4156},
		{Lat: 37.7955, Lng: -122.3937},
	}
	want := Distance(pts[0], pts[1]) + Distance(pts[1], pts[2])
	got := TotalDistance(pts)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("TotalDistance = %v, want %v", got, want)
	}
	if got < 0 {
		t.Fatalf("negative distance %v", got)
	}
}

func TestTotalTravelTimeDefaultsToDrove(t *testing.T) {
	legs := []Leg{
		{Point: Point{Lat: 40, Lng: -74}},
		{Point: Point{Lat: 40, Lng: -73.5}},
	}
	want := TravelTimeMinutes(Distance(legs[0].Point, legs[1].Point), ModeDrove)
	got := TotalTravelTime(legs)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("TotalTravelTime = %v, want %v", got, want)
	}
}

func TestWorldCoordsRoundTrip(t *testing.T) {
	for _, p := range []Point{{0, 0, }, {37.8, -122.4, }, {-33.9, 151.2, }} {
		x, y := WorldCoords(p)
		back := Unproject(x, y)
		if math.Abs(back.Lat-p.Lat) > 1e-9 || math.Abs(back.Lng-p.Lng) > 1e-9 {
			t.Fatalf("round trip %v -> %v", p, back)
		}
	}
}

func TestBoundsExtendAndCenter(t *testing.T) {
	var b Bounds
	if b.Valid() {
		t.Fatal("empty bounds should not be valid")
	}
	b.Extend(Point{Lat: 10, Lng: 20})
	b.Extend(Point{Lat: -10, Lng: 40})
	if !b.Valid() {
		t.Fatal("bounds should be valid after Extend")
	}
	if b.MinLat != -10 || b.MaxLat != 10 || b.MinLng != 20 || b.MaxLng != 40 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
	c := b.Center()
	if c.Lng < 29 || c.Lng > 31 {
		t.Fatalf("unexpected center lng: %v", c.Lng)
	}
	if !b.Contains(Point{Lat: 0, Lng: 30}) || b.Contains(Point{Lat: 11, Lng: 30}) {
		t.Fatal("Contains misbehaves")
	}
}
