package geo

import "math"

// WorldCoords projects a WGS84 point into Web Mercator world space at zoom 0,
// where both axes span [0, 1).
func WorldCoords(p Point) (x, y float64) {
	latRad := toRadians(p.Lat)
	x = (p.Lng + 180) / 360
	y = (1 - math.Asinh(math.Tan(latRad))/math.Pi) / 2
	return x, y
}

// Unproject converts world-space coordinates back to a WGS84 point.
func Unproject(x, y float64) Point {
	lng := x*360 - 180
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*y)))
	return Point{Lat: latRad * 180 / math.Pi, Lng: lng}
}

// TileCoords returns fractional tile coordinates for a point at an integer zoom.
func TileCoords(p Point, zoom int) (x, y float64) {
	wx, wy := WorldCoords(p)
	n := math.Pow(2, float64(zoom))
	return wx * n, wy * n
}

// Bounds is an axis-aligned box over WGS84 coordinates.
type Bounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	valid          bool
}

// Extend grows the bounds to include p.
func (b *Bounds) Extend(p Point) {
	if !b.valid {
		b.MinLat, b.MaxLat = p.Lat, p.Lat
		b.MinLng, b.MaxLng = p.Lng, p.Lng
		b.valid = true
		return
	}
	b.MinLat = math.Min(b.MinLat, p.Lat)
	b.MaxLat = math.Max(b.MaxLat, p.Lat)
	b.MinLng = math.Min(b.MinLng, p.Lng)
	b.MaxLng = math.Max(b.MaxLng, p.Lng)
}

// Valid reports whether any point has been added.
func (b *Bounds) Valid() bool { return b.valid }

// Center returns the midpoint of the bounds in world space, converted back to
// WGS84. Using world space keeps the center correct across the antimeridian-free
// cases this renderer deals with and matches how the camera interpolates.
func (b *Bounds) Center() Point {
	x1, y1 := WorldCoords(Point{Lat: b.MinLat, Lng: b.MinLng})
	x2, y2 := WorldCoords(Point{Lat: b.MaxLat, Lng: b.MaxLng})
	return Unproject((x1+x2)/2, (y1+y2)/2)
}

// Contains reports whether p lies inside the bounds.
func (b *Bounds) Contains(p Point) bool {
	if !b.valid {
		return false
	}
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
