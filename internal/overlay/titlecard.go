package overlay

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// TitleCard describes the opening frame of a recap.
type TitleCard struct {
	Title       string
	Description string
	TitleColor  color.RGBA
	Cover       image.Image // optional; gradient fallback when nil
}

var (
	gradientEdge = color.RGBA{R: 0x0a, G: 0x0a, B: 0x0a, A: 0xff}
	gradientMid  = color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff}
)

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(a.R) + (float64(b.R)-float64(a.R))*t),
		G: uint8(float64(a.G) + (float64(b.G)-float64(a.G))*t),
		B: uint8(float64(a.B) + (float64(b.B)-float64(a.B))*t),
		A: 0xff,
	}
}

func drawGradientBackdrop(dc *gg.Context) {
	w := float64(dc.Width())
	h := dc.Height()
	for y := 0; y < h; y++ {
		t := float64(y) / float64(h-1)
		var c color.RGBA
		if t < 0.5 {
			c = lerpColor(gradientEdge, gradientMid, t*2)
		} else {
			c = lerpColor(gradientMid, gradientEdge, (t-0.5)*2)
		}
		dc.SetColor(c)
		dc.DrawRectangle(0, float64(y), w, 1)
		dc.Fill()
	}
}

// DrawTitleCard paints the full title frame: cover media (or gradient
// fallback) under a 40% scrim, the wrapped trip title, and either the wrapped
// description or a short accent divider when there is none.
func DrawTitleCard(dc *gg.Context, card TitleCard) {
	w := float64(dc.Width())
	h := float64(dc.Height())

	if card.Cover != nil {
		DrawCoverFit(dc, card.Cover, 0, 0, w, h)
		dc.SetColor(color.RGBA{A: 102})
		dc.DrawRectangle(0, 0, w, h)
		dc.Fill()
	} else {
		drawGradientBackdrop(dc)
	}

	titleSize := 72.0
	if w > 1200 {
		titleSize = 88
	}
	dc.SetFontFace(MustFace(titleSize, true))
	titleLines := WrapText(dc, card.Title, w*0.8)
	lineH := titleSize * 1.25
	blockH := float64(len(titleLines)) * lineH
	y := h/2 - blockH/2 + lineH/2

	dc.SetColor(card.TitleColor)
	for _, line := range titleLines {
		dc.DrawStringAnchored(line, w/2, y, 0.5, 0.35)
		y += lineH
	}

	if card.Description != "" {
		descSize := 34.0
		dc.SetFontFace(MustFace(descSize, false))
		dc.SetColor(color.RGBA{R: 255, G: 255, B: 255, A: 217})
		descLines := WrapText(dc, card.Description, w*0.72)
		y += descSize * 0.4
		for _, line := range descLines {
			dc.DrawStringAnchored(line, w/2, y, 0.5, 0.35)
			y += descSize * 1.4
		}
	} else {
		dc.SetColor(WithAlpha(card.TitleColor, 0.6))
		dc.DrawRoundedRectangle(w/2-60, y+10, 120, 4, 2)
		dc.Fill()
	}
}

// fadeImage returns a copy of img with every pixel's alpha scaled down.
// DrawImage pays no attention to the current color, so partial transparency
// has to be baked into the pixels up front.
func fadeImage(img image.Image, alpha float64) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			out.SetRGBA(x, y, color.RGBA{
				R: uint8(float64(r>>8) * alpha),
				G: uint8(float64(g>>8) * alpha),
				B: uint8(float64(bl>>8) * alpha),
				A: uint8(float64(a>>8) * alpha),
			})
		}
	}
	return out
}

// LogoOverlay loads the watermark image at path and returns a hook that
// stamps it bottom-right on every frame at 80% alpha. A missing or unreadable
// file yields a nil hook; the watermark is best effort.
func LogoOverlay(path string) func(dc *gg.Context) {
	if path == "" {
		return nil
	}
	img, err := gg.LoadImage(path)
	if err != nil {
		return nil
	}
	faded := fadeImage(img, 0.8)
	return func(dc *gg.Context) {
		w := float64(dc.Width())
		h := float64(dc.Height())
		b := faded.Bounds()
		logoW := w * 0.14
		scale := logoW / float64(b.Dx())
		logoH := float64(b.Dy()) * scale
		dc.Push()
		dc.Translate(w-logoW-24, h-logoH-24)
		dc.Scale(scale, scale)
		dc.DrawImage(faded, 0, 0)
		dc.Pop()
	}
}
