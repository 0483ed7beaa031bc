// Package clip plays media clips onto the shared render surface: photos
// through one of four animation programs, videos through an ffmpeg rawvideo
// decode pipe. Durations are fixed for photos and capped for videos.
package clip

import (
	"context"
	"image"
	"math"
	"time"

	"github.com/fogleman/gg"

	"tripstitch/internal/capture"
	"tripstitch/internal/overlay"
	"tripstitch/internal/trip"
)

// PhotoDuration is how long a still photo holds the frame.
const PhotoDuration = 3 * time.Second

// Crop is a source-space rectangle to stretch onto the full canvas.
type Crop struct {
	X, Y, W, H float64
}

// CropFunc maps animation progress t in [0,1] to a source crop for an image
// of srcW x srcH shown on a dstW x dstH canvas. Programs are continuous and
// monotone in t.
type CropFunc func(t, srcW, srcH, dstW, dstH float64) Crop

// coverRect is the centered source rectangle matching the canvas aspect
// ratio, the zoom-1 baseline every program works within.
func coverRect(srcW, srcH, dstW, dstH float64) Crop {
	scale := math.Max(dstW/srcW, dstH/srcH)
	w := dstW / scale
	h := dstH / scale
	return Crop{X: (srcW - w) / 2, Y: (srcH - h) / 2, W: w, H: h}
}

func clampCrop(c Crop, srcW, srcH float64) Crop {
	if c.X < 0 {
		c.X = 0
	}
	if c.Y < 0 {
		c.Y = 0
	}
	if c.X+c.W > srcW {
		c.X = srcW - c.W
	}
	if c.Y+c.H > srcH {
		c.Y = srcH - c.H
	}
	return c
}

func zoomed(base Crop, zoom, centerShiftX, centerShiftY float64) Crop {
	w := base.W / zoom
	h := base.H / zoom
	cx := base.X + base.W/2 + centerShiftX
	cy := base.Y + base.H/2 + centerShiftY
	return Crop{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// PhotoProgram returns the crop program for an animation style. Unknown
// styles fall back to kenBurns, matching the default applied when a photo is
// attached.
//
// Boundary behavior:
//   - kenBurns: t=0 zoom 1.15 panned by (3% width, 2% height), t=1 the exact
//     cover crop.
//   - zoomIn: t=0 the cover crop, t=1 zoom 1.2 centered.
//   - panHorizontal: constant zoom 1.15, crop slides across the full
//     horizontal margin left to right.
//   - static: the cover crop at every t.
func PhotoProgram(style trip.AnimationStyle) CropFunc {
	switch style {
	case trip.AnimZoomIn:
		return func(t, srcW, srcH, dstW, dstH float64) Crop {
			t = clamp01(t)
			base := coverRect(srcW, srcH, dstW, dstH)
			zoom := 1.0 + 0.2*t
			return clampCrop(zoomed(base, zoom, 0, 0), srcW, srcH)
		}
	case trip.AnimPanHorizontal:
		return func(t, srcW, srcH, dstW, dstH float64) Crop {
			t = clamp01(t)
			base := coverRect(srcW, srcH, dstW, dstH)
			const zoom = 1.15
			w := base.W / zoom
			h := base.H / zoom
			margin := base.W - w
			return clampCrop(Crop{
				X: base.X + margin*t,
				Y: base.Y + (base.H-h)/2,
				W: w,
				H: h,
			}, srcW, srcH)
		}
	case trip.AnimStatic:
		return func(t, srcW, srcH, dstW, dstH float64) Crop {
			return coverRect(srcW, srcH, dstW, dstH)
		}
	default: // kenBurns
		return func(t, srcW, srcH, dstW, dstH float64) Crop {
			t = clamp01(t)
			base := coverRect(srcW, srcH, dstW, dstH)
			zoom := 1.15 + (1.0-1.15)*t
			// Pan offsets are expressed in canvas pixels and shrink
			// to zero as the zoom settles.
			scale := math.Max(dstW/srcW, dstH/srcH)
			shiftX := (1 - t) * 0.03 * dstW / (scale * zoom)
			shiftY := (1 - t) * 0.02 * dstH / (scale * zoom)
			return clampCrop(zoomed(base, zoom, shiftX, shiftY), srcW, srcH)
		}
	}
}

// PlayPhoto renders one photo through its animation program for the standard
// photo duration.
func PlayPhoto(ctx context.Context, sess capture.Session, dc *gg.Context, img image.Image, style trip.AnimationStyle, hook func(*gg.Context)) error {
	program := PhotoProgram(style)
	srcW := float64(img.Bounds().Dx())
	srcH := float64(img.Bounds().Dy())
	dstW := float64(dc.Width())
	dstH := float64(dc.Height())

	return sess.Loop(ctx, PhotoDuration, func(elapsed time.Duration) image.Image {
		t := float64(elapsed) / float64(PhotoDuration)
		c := program(t, srcW, srcH, dstW, dstH)
		overlay.DrawCrop(dc, img, c.X, c.Y, c.W, c.H)
		if hook != nil {
			hook(dc)
		}
		return dc.Image()
	})
}
