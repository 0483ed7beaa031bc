package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/fogleman/gg"

	"tripstitch/internal/geo"
)

// Pin geometry: white halo, accent fill, inner highlight.
const (
	pinHaloRadius      = 22.0
	pinFillRadius      = 17.0
	pinHighlightRadius = 6.0
)

var starYellow = color.RGBA{R: 0xfb, G: 0xbf, B: 0x24, A: 0xff}

// WrapText greedily wraps text against maxWidth using the context's current
// font face. Words are never split; at least one line is always returned,
// even when a single word exceeds maxWidth.
func WrapText(dc *gg.Context, text string, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	current := ""
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if w, _ := dc.MeasureString(candidate); w > maxWidth && current != "" {
			lines = append(lines, current)
			current = word
		} else {
			current = candidate
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// DrawCoverFit paints src scaled to fill the target rectangle while keeping
// its aspect ratio, cropping overflow and centering the result.
func DrawCoverFit(dc *gg.Context, src image.Image, x, y, w, h float64) {
	b := src.Bounds()
	srcW := float64(b.Dx())
	srcH := float64(b.Dy())
	if srcW == 0 || srcH == 0 {
		dc.SetColor(color.Black)
		dc.DrawRectangle(x, y, w, h)
		dc.Fill()
		return
	}
	scale := math.Max(w/srcW, h/srcH)
	dc.Push()
	dc.DrawRectangle(x, y, w, h)
	dc.Clip()
	dc.Translate(x+(w-srcW*scale)/2, y+(h-srcH*scale)/2)
	dc.Scale(scale, scale)
	dc.DrawImage(src, 0, 0)
	dc.Pop()
}

// DrawCrop paints the source sub-rectangle (sx, sy, sw, sh) of src stretched
// onto the full canvas, over a black letterbox fill. Used by the photo
// animation programs and video frame blitting.
func DrawCrop(dc *gg.Context, src image.Image, sx, sy, sw, sh float64) {
	w := float64(dc.Width())
	h := float64(dc.Height())
	dc.SetColor(color.Black)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()
	if sw <= 0 || sh <= 0 {
		return
	}
	dc.Push()
	dc.DrawRectangle(0, 0, w, h)
	dc.Clip()
	dc.Scale(w/sw, h/sh)
	dc.Translate(-sx, -sy)
	dc.DrawImage(src, 0, 0)
	dc.Pop()
}

// DrawWhiteFlash fills the whole frame white. The transition cue between map
// and clip segments.
func DrawWhiteFlash(dc *gg.Context) {
	dc.SetColor(color.White)
	dc.DrawRectangle(0, 0, float64(dc.Width()), float64(dc.Height()))
	dc.Fill()
}

func drawPill(dc *gg.Context, x, y, w, h float64) {
	dc.DrawRoundedRectangle(x, y, w, h, h/2)
}

// DrawPin draws a location pin: white halo, accent-colored fill, inner
// highlight. When showLabel is set, a label pill with an optional star rating
// is drawn above the pin — used only in the final overview; during fly-tos the
// title banner already names the location.
func DrawPin(dc *gg.Context, x, y float64, label string, accent color.RGBA, rating int, showLabel bool, pillBG color.RGBA) {
	dc.SetColor(color.White)
	dc.DrawCircle(x, y, pinHaloRadius)
	dc.Fill()
	dc.SetColor(accent)
	dc.DrawCircle(x, y, pinFillRadius)
	dc.Fill()
	dc.SetColor(color.RGBA{R: 255, G: 255, B: 255, A: 178})
	dc.DrawCircle(x, y, pinHighlightRadius)
	dc.Fill()

	if !showLabel || label == "" {
		return
	}

	fontSize := 30.0
	dc.SetFontFace(MustFace(fontSize, true))
	textW, _ := dc.MeasureString(label)
	padX, padY := 20.0, 12.0
	bgW := textW + padX*2
	bgH := fontSize + padY*2
	bgX := x - bgW/2
	bgY := y - 38 - bgH

	dc.SetColor(pillBG)
	drawPill(dc, bgX, bgY, bgW, bgH)
	dc.Fill()
	dc.SetColor(WithAlpha(accent, 0.6))
	dc.SetLineWidth(2)
	drawPill(dc, bgX, bgY, bgW, bgH)
	dc.Stroke()

	dc.SetColor(ContrastColor(pillBG))
	dc.DrawStringAnchored(label, x, bgY+bgH/2, 0.5, 0.35)

	if rating > 0 {
		drawStarRow(dc, x, bgY-16, rating, pillBG)
	}
}

func drawStar(dc *gg.Context, cx, cy, outerR float64) {
	innerR := outerR * 0.4
	const spikes = 5
	for i := 0; i < spikes*2; i++ {
		r := outerR
		if i%2 == 1 {
			r = innerR
		}
		angle := -math.Pi/2 + math.Pi/spikes*float64(i)
		px := cx + math.Cos(angle)*r
		py := cy + math.Sin(angle)*r
		if i == 0 {
			dc.MoveTo(px, py)
		} else {
			dc.LineTo(px, py)
		}
	}
	dc.ClosePath()
}

func drawStarRow(dc *gg.Context, centerX, bottomY float64, rating int, pillBG color.RGBA) {
	if rating > 5 {
		rating = 5
	}
	starSize := 16.0
	starGap := 6.0
	rowW := 5*starSize*2 + 4*starGap
	starsY := bottomY - starSize - 7

	pillW := rowW + 24
	pillH := starSize*2 + 14
	dc.SetColor(WithAlpha(pillBG, 0.88))
	drawPill(dc, centerX-pillW/2, starsY-starSize-7, pillW, pillH)
	dc.Fill()

	startX := centerX - rowW/2
	for i := 0; i < 5; i++ {
		cx := startX + starSize + float64(i)*(starSize*2+starGap)
		drawStar(dc, cx, starsY, starSize)
		if i < rating {
			dc.SetColor(starYellow)
		} else {
			dc.SetColor(color.RGBA{R: 255, G: 255, B: 255, A: 51})
		}
		dc.Fill()
	}
}

// DrawLocationTitle draws the large banner naming the current location at the
// top of the frame, with an accent bottom border and an optional star rating
// row beneath it.
func DrawLocationTitle(dc *gg.Context, text string, accent, secondary color.RGBA, rating int) {
	width := float64(dc.Width())
	fontSize := 46.0
	topOffset := 60.0
	if width > 1200 {
		fontSize = 56
		topOffset = 80
	}
	dc.SetFontFace(MustFace(fontSize, true))
	textW, _ := dc.MeasureString(text)
	padX, padY := 44.0, 20.0
	bgW := textW + padX*2
	bgH := fontSize + padY*2
	bgX := width/2 - bgW/2

	dc.SetColor(WithAlpha(secondary, 0.92))
	dc.DrawRoundedRectangle(bgX, topOffset, bgW, bgH, 14)
	dc.Fill()

	// Accent-colored bottom border line.
	dc.SetColor(WithAlpha(accent, 0.8))
	dc.DrawRoundedRectangle(bgX+8, topOffset+bgH-3, bgW-16, 3, 1.5)
	dc.Fill()

	dc.SetColor(ContrastColor(secondary))
	dc.DrawStringAnchored(text, width/2, topOffset+bgH/2, 0.5, 0.35)

	if rating > 0 {
		rowTop := topOffset + bgH + 20 + 16
		drawStarRow(dc, width/2, rowTop+16+7, rating, secondary)
	}
}

// TransportLabel returns the human label shown in the transport badge.
func TransportLabel(mode geo.TransportMode) string {
	switch mode {
	case geo.ModeWalked:
		return "Walked"
	case geo.ModeBiked:
		return "Biked"
	case geo.ModeDrove:
		return "Drove"
	}
	return string(mode)
}

func drawTransportIcon(dc *gg.Context, mode geo.TransportMode, cx, cy, size float64, c color.RGBA) {
	dc.SetColor(c)
	dc.SetLineWidth(size / 9)
	switch mode {
	case geo.ModeBiked:
		r := size / 3.2
		dc.DrawCircle(cx-size/2.6, cy+size/5, r)
		dc.Stroke()
		dc.DrawCircle(cx+size/2.6, cy+size/5, r)
		dc.Stroke()
		dc.MoveTo(cx-size/2.6, cy+size/5)
		dc.LineTo(cx, cy-size/4)
		dc.LineTo(cx+size/2.6, cy+size/5)
		dc.LineTo(cx-size/8, cy+size/5)
		dc.Stroke()
	case geo.ModeDrove:
		dc.DrawRoundedRectangle(cx-size/2, cy-size/4, size, size/2.2, size/10)
		dc.Stroke()
		dc.DrawCircle(cx-size/4, cy+size/3.2, size/9)
		dc.Fill()
		dc.DrawCircle(cx+size/4, cy+size/3.2, size/9)
		dc.Fill()
	default: // walked
		dc.DrawEllipse(cx-size/5, cy-size/8, size/7, size/4.5)
		dc.Fill()
		dc.DrawEllipse(cx+size/5, cy+size/6, size/7, size/4.5)
		dc.Fill()
	}
}

// DrawTransportBadge draws the icon+label pill near the bottom of the frame.
// Shown only when a transport mode applies to the current transition.
func DrawTransportBadge(dc *gg.Context, mode geo.TransportMode, accent, secondary color.RGBA) {
	width := float64(dc.Width())
	height := float64(dc.Height())
	label := TransportLabel(mode)

	fontSize := 32.0
	dc.SetFontFace(MustFace(fontSize, true))
	textW, _ := dc.MeasureString(label)
	iconSize := fontSize * 1.1
	padX, padY := 28.0, 14.0
	bgW := iconSize + 12 + textW + padX*2
	bgH := fontSize + padY*2
	bgX := width/2 - bgW/2
	bgY := height - height*0.12 - bgH

	dc.SetColor(WithAlpha(secondary, 0.92))
	drawPill(dc, bgX, bgY, bgW, bgH)
	dc.Fill()
	dc.SetColor(WithAlpha(accent, 0.4))
	dc.SetLineWidth(1.5)
	drawPill(dc, bgX, bgY, bgW, bgH)
	dc.Stroke()

	textColor := ContrastColor(secondary)
	drawTransportIcon(dc, mode, bgX+padX+iconSize/2, bgY+bgH/2, iconSize, textColor)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(label, bgX+padX+iconSize+12+textW/2, bgY+bgH/2, 0.5, 0.35)
}

// Stats summarizes the whole trip for the final route frame.
type Stats struct {
	Stops   int
	Miles   float64
	Minutes float64
}

// FormatStats renders the stats line: miles get one decimal under 10, a
// rounded integer otherwise; minutes always round to an integer.
func FormatStats(s Stats) string {
	var miles string
	if s.Miles < 10 {
		miles = fmt.Sprintf("%.1f", s.Miles)
	} else {
		miles = fmt.Sprintf("%.0f", math.Round(s.Miles))
	}
	return fmt.Sprintf("%d stops · %s mi · ~%.0f min", s.Stops, miles, math.Round(s.Minutes))
}

// DrawStatsBar draws the trip summary pill near the bottom of the frame,
// positioned above the edge so playback controls do not obscure it.
func DrawStatsBar(dc *gg.Context, stats Stats, accent, secondary color.RGBA) {
	width := float64(dc.Width())
	height := float64(dc.Height())
	text := FormatStats(stats)

	fontSize := 36.0
	if width > 1200 {
		fontSize = 44
	}
	dc.SetFontFace(MustFace(fontSize, true))
	textW, _ := dc.MeasureString(text)
	padX, padY := 44.0, 22.0
	bgW := textW + padX*2
	bgH := fontSize + padY*2
	bgX := width/2 - bgW/2
	bgY := math.Round(height*0.87 - bgH)

	dc.SetColor(WithAlpha(secondary, 0.95))
	dc.DrawRoundedRectangle(bgX, bgY, bgW, bgH, 14)
	dc.Fill()

	// Accent-colored top border line.
	dc.SetColor(WithAlpha(accent, 0.7))
	dc.DrawRoundedRectangle(bgX+8, bgY, bgW-16, 3, 1.5)
	dc.Fill()

	dc.SetColor(ContrastColor(secondary))
	dc.DrawStringAnchored(text, width/2, bgY+bgH/2, 0.5, 0.35)
}
