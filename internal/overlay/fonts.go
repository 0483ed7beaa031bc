// Package overlay contains the stateless drawing routines painted on top of
// map and media frames: pins, banners, badges, the stats bar, the title card
// and the watermark hook. Every function is synchronous and idempotent for a
// given set of inputs; no timing logic lives here.
package overlay

import (
	"fmt"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontOnce sync.Once
	fontErr  error
	regular  *truetype.Font
	bold     *truetype.Font

	faceMu    sync.Mutex
	faceCache = map[faceKey]font.Face{}
)

type faceKey struct {
	size float64
	bold bool
}

func loadFonts() {
	fontOnce.Do(func() {
		regular, fontErr = truetype.Parse(goregular.TTF)
		if fontErr != nil {
			fontErr = fmt.Errorf("parse regular font: %w", fontErr)
			return
		}
		bold, fontErr = truetype.Parse(gobold.TTF)
		if fontErr != nil {
			fontErr = fmt.Errorf("parse bold font: %w", fontErr)
		}
	})
}

// Face returns a cached font face at the given pixel size.
func Face(size float64, useBold bool) (font.Face, error) {
	loadFonts()
	if fontErr != nil {
		return nil, fontErr
	}
	key := faceKey{size: size, bold: useBold}
	faceMu.Lock()
	defer faceMu.Unlock()
	if f, ok := faceCache[key]; ok {
		return f, nil
	}
	src := regular
	if useBold {
		src = bold
	}
	f := truetype.NewFace(src, &truetype.Options{Size: size})
	faceCache[key] = f
	return f, nil
}

// MustFace is Face for callers that have already rendered at least one frame;
// the embedded gofont data cannot fail to parse after the first success.
func MustFace(size float64, useBold bool) font.Face {
	f, err := Face(size, useBold)
	if err != nil {
		panic(err)
	}
	return f
}
