package maprender

import (
	"math"

	"tripstitch/internal/geo"
)

// Zoom limits for the raster sources we use.
const (
	MinZoom   = 2.0
	MaxZoom   = 19.0
	CloseZoom = 18.0
)

// Camera is a float-zoom view over the tile pyramid. Rendering happens at the
// integer tile zoom with the fractional remainder applied as a residual scale
// on the tile images.
type Camera struct {
	Center geo.Point
	Zoom   float64
}

// TileZoom is the integer zoom tiles are fetched at.
func (c Camera) TileZoom() int {
	tz := int(math.Floor(c.Zoom))
	if tz < 0 {
		tz = 0
	}
	if tz > int(MaxZoom) {
		tz = int(MaxZoom)
	}
	return tz
}

// Residual is the extra scale applied on top of the tile zoom, in [1, 2).
func (c Camera) Residual() float64 {
	return math.Exp2(c.Zoom - float64(c.TileZoom()))
}

// scale is the world-to-pixel factor at the camera's float zoom.
func (c Camera) scale() float64 {
	return TileSize * math.Exp2(c.Zoom)
}

func (c Camera) centerWorld() (float64, float64) {
	return geo.WorldCoords(c.Center)
}

// Project maps a geographic point to screen pixels for a viewport of the
// given size centered on the camera.
func (c Camera) Project(p geo.Point, width, height int) (x, y float64) {
	wx, wy := geo.WorldCoords(p)
	cx, cy := c.centerWorld()
	s := c.scale()
	return (wx-cx)*s + float64(width)/2, (wy-cy)*s + float64(height)/2
}

// clampZoom keeps z within [lo, hi].
func clampZoom(z, lo, hi float64) float64 {
	if z < lo {
		return lo
	}
	if z > hi {
		return hi
	}
	return z
}

// Padding is per-edge screen padding in pixels for bounds fitting.
type Padding struct {
	Top, Bottom, Left, Right float64
}

// UniformPadding pads every edge equally.
func UniformPadding(px float64) Padding {
	return Padding{Top: px, Bottom: px, Left: px, Right: px}
}

// CameraForBounds returns the camera that fits bounds inside the padded
// viewport, zoom clamped to [minZoom, maxZoom]. Asymmetric padding shifts the
// center so the content sits centered within the padded area.
func CameraForBounds(b geo.Bounds, width, height int, pad Padding, minZoom, maxZoom float64) Camera {
	center := b.Center()
	if !b.Valid() {
		return Camera{Center: center, Zoom: minZoom}
	}

	x1, y1 := geo.WorldCoords(geo.Point{Lat: b.MaxLat, Lng: b.MinLng}) // top-left
	x2, y2 := geo.WorldCoords(geo.Point{Lat: b.MinLat, Lng: b.MaxLng}) // bottom-right
	dwx := x2 - x1
	dwy := y2 - y1

	availW := math.Max(float64(width)-pad.Left-pad.Right, 1)
	availH := math.Max(float64(height)-pad.Top-pad.Bottom, 1)

	zoom := maxZoom
	if dwx > 0 {
		zoom = math.Min(zoom, math.Log2(availW/(dwx*TileSize)))
	}
	if dwy > 0 {
		zoom = math.Min(zoom, math.Log2(availH/(dwy*TileSize)))
	}
	zoom = clampZoom(zoom, minZoom, maxZoom)

	cam := Camera{Center: center, Zoom: zoom}

	// Shift the camera so the bounds center projects to the center of the
	// padded content area rather than the raw viewport center.
	s := cam.scale()
	contentCx := pad.Left + availW/2
	contentCy := pad.Top + availH/2
	wx, wy := geo.WorldCoords(center)
	wx -= (contentCx - float64(width)/2) / s
	wy -= (contentCy - float64(height)/2) / s
	cam.Center = geo.Unproject(wx, wy)
	return cam
}

// EaseInOutCubic is the easing curve used for all camera flights.
func EaseInOutCubic(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// InterpolateCamera blends two cameras at eased progress t, moving the center
// through world space so flights track straight lines on screen.
func InterpolateCamera(from, to Camera, t float64) Camera {
	e := EaseInOutCubic(t)
	x1, y1 := from.centerWorld()
	x2, y2 := to.centerWorld()
	return Camera{
		Center: geo.Unproject(x1+(x2-x1)*e, y1+(y2-y1)*e),
		Zoom:   from.Zoom + (to.Zoom-from.Zoom)*e,
	}
}
