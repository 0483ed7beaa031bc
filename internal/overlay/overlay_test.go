package overlay

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/fogleman/gg"
)

func TestContrastColor(t *testing.T) {
	cases := []struct {
		bg   color.RGBA
		want color.RGBA
	}{
		{color.RGBA{0, 0, 0, 255}, White},
		{color.RGBA{255, 255, 255, 255}, NearBlack},
		{color.RGBA{0x1a, 0x1a, 0x2e, 255}, White},
		{color.RGBA{0xfb, 0xbf, 0x24, 255}, NearBlack},
	}
	for _, c := range cases {
		if got := ContrastColor(c.bg); got != c.want {
			t.Fatalf("ContrastColor(%v) = %v, want %v", c.bg, got, c.want)
		}
	}
}

func TestLuminanceBounds(t *testing.T) {
	if l := Luminance(color.RGBA{0, 0, 0, 255}); l != 0 {
		t.Fatalf("black luminance = %v", l)
	}
	if l := Luminance(color.RGBA{255, 255, 255, 255}); l < 0.999 || l > 1.001 {
		t.Fatalf("white luminance = %v", l)
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#00f5ff")
	if err != nil {
		t.Fatal(err)
	}
	if c.R != 0x00 || c.G != 0xf5 || c.B != 0xff || c.A != 0xff {
		t.Fatalf("unexpected color %v", c)
	}
	if _, err := ParseHex("oops"); err == nil {
		t.Fatal("expected error for malformed color")
	}
	def := color.RGBA{1, 2, 3, 255}
	if got := ParseHexDefault("bad", def); got != def {
		t.Fatalf("default not applied: %v", got)
	}
}

func TestWrapTextNeverSplitsWords(t *testing.T) {
	dc := gg.NewContext(400, 100)
	dc.SetFontFace(MustFace(30, false))

	lines := WrapText(dc, "one two three four five six seven", 200)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping, got %v", lines)
	}
	joined := strings.Join(lines, " ")
	for _, w := range strings.Fields("one two three four five six seven") {
		if !strings.Contains(joined, w) {
			t.Fatalf("word %q lost in wrap: %v", w, lines)
		}
	}
	for _, line := range lines {
		for _, w := range strings.Fields(line) {
			switch w {
			case "one", "two", "three", "four", "five", "six", "seven":
			default:
				t.Fatalf("word split across lines: %q in %v", w, lines)
			}
		}
	}
}

func TestWrapTextAlwaysReturnsALine(t *testing.T) {
	dc := gg.NewContext(100, 100)
	dc.SetFontFace(MustFace(40, true))
	lines := WrapText(dc, "Supercalifragilistic", 10)
	if len(lines) != 1 || lines[0] != "Supercalifragilistic" {
		t.Fatalf("oversized single word should stay intact: %v", lines)
	}
	if lines := WrapText(dc, "   ", 100); len(lines) != 1 {
		t.Fatalf("blank input should yield one line: %v", lines)
	}
}

func TestFormatStats(t *testing.T) {
	cases := []struct {
		stats Stats
		want  string
	}{
		{Stats{Stops: 3, Miles: 4.27, Minutes: 31.6}, "3 stops · 4.3 mi · ~32 min"},
		{Stats{Stops: 5, Miles: 12.6, Minutes: 60.2}, "5 stops · 13 mi · ~60 min"},
		{Stats{Stops: 2, Miles: 9.99, Minutes: 0.4}, "2 stops · 10.0 mi · ~0 min"},
	}
	for _, c := range cases {
		if got := FormatStats(c.stats); got != c.want {
			t.Fatalf("FormatStats(%+v) = %q, want %q", c.stats, got, c.want)
		}
	}
}

func TestDrawCoverFitFillsTarget(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			src.SetRGBA(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	dc := gg.NewContext(60, 120)
	dc.SetRGB(0, 0, 1)
	dc.Clear()
	DrawCoverFit(dc, src, 0, 0, 60, 120)

	img := dc.Image()
	for _, p := range []image.Point{{0, 0}, {59, 0}, {30, 60}, {0, 119}, {59, 119}} {
		r, _, b, _ := img.At(p.X, p.Y).RGBA()
		if r>>8 < 150 || b>>8 > 100 {
			t.Fatalf("pixel %v not covered by source: r=%d b=%d", p, r>>8, b>>8)
		}
	}
}

func TestDrawWhiteFlash(t *testing.T) {
	dc := gg.NewContext(8, 8)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	DrawWhiteFlash(dc)
	r, g, b, _ := dc.Image().At(4, 4).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Fatalf("flash frame not white: %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestDrawTitleCardGradientFallback(t *testing.T) {
	dc := gg.NewContext(108, 192)
	DrawTitleCard(dc, TitleCard{Title: "Coast Trip", TitleColor: White})
	// Mid-row of the gradient should be brighter blue than the top edge.
	_, _, bTop, _ := dc.Image().At(2, 2).RGBA()
	_, _, bMid, _ := dc.Image().At(2, 96).RGBA()
	if bMid <= bTop {
		t.Fatalf("gradient missing: top b=%d mid b=%d", bTop>>8, bMid>>8)
	}
}

func TestLogoOverlayMissingFileIsNoop(t *testing.T) {
	if hook := LogoOverlay("/nonexistent/logo.png"); hook != nil {
		t.Fatal("missing logo should yield nil hook")
	}
	if hook := LogoOverlay(""); hook != nil {
		t.Fatal("empty path should yield nil hook")
	}
}

func TestDrawPinLeavesAccentAtCenter(t *testing.T) {
	dc := gg.NewContext(200, 200)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	accent := color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 255}
	DrawPin(dc, 100, 100, "", accent, 0, false, NearBlack)

	// Inside the fill radius but outside the highlight.
	r, g, b, _ := dc.Image().At(100+12, 100).RGBA()
	if uint8(r>>8) != accent.R || uint8(g>>8) != accent.G || uint8(b>>8) != accent.B {
		t.Fatalf("pin fill not accent colored: %d %d %d", r>>8, g>>8, b>>8)
	}
	// Just outside the halo stays background.
	r, _, _, _ = dc.Image().At(100+30, 100).RGBA()
	if r>>8 != 0 {
		t.Fatalf("halo bled past its radius: r=%d", r>>8)
	}
}
