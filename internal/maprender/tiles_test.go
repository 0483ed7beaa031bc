package maprender

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"tripstitch/internal/geo"
)

func TestResolveStyle(t *testing.T) {
	if _, err := ResolveStyle("streets"); err != nil {
		t.Fatalf("streets should resolve: %v", err)
	}
	if _, err := ResolveStyle("no-such-style"); err == nil {
		t.Fatal("expected error for unknown style")
	}
	RegisterStyle(Style{Name: "custom", URL: "https://example.test/{z}/{x}/{y}.png"})
	s, err := ResolveStyle("custom")
	if err != nil || s.URL == "" {
		t.Fatalf("registered style missing: %v", err)
	}
}

func TestTileURL(t *testing.T) {
	s := Style{URL: "https://tiles.test/{z}/{x}/{y}.png"}
	got := tileURL(s, Tile{X: 3, Y: 7, Z: 12})
	if got != "https://tiles.test/12/3/7.png" {
		t.Fatalf("tileURL = %q", got)
	}
}

func TestNormalizeTile(t *testing.T) {
	if _, ok := normalizeTile(Tile{X: 0, Y: -1, Z: 3}); ok {
		t.Fatal("negative Y should be out of world")
	}
	if _, ok := normalizeTile(Tile{X: 0, Y: 8, Z: 3}); ok {
		t.Fatal("Y past the pole should be out of world")
	}
	got, ok := normalizeTile(Tile{X: -1, Y: 2, Z: 3})
	if !ok || got.X != 7 {
		t.Fatalf("X should wrap: %+v ok=%v", got, ok)
	}
	got, ok = normalizeTile(Tile{X: 9, Y: 2, Z: 3})
	if !ok || got.X != 1 {
		t.Fatalf("X should wrap forward: %+v ok=%v", got, ok)
	}
}

func TestTileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.db")
	store, err := OpenTileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	tile := Tile{X: 1, Y: 2, Z: 3}
	if got := store.Get("streets", tile); got != nil {
		t.Fatalf("empty store returned data: %v", got)
	}
	data := []byte{0x89, 0x50, 0x4e, 0x47}
	if err := store.Put("streets", tile, data); err != nil {
		t.Fatal(err)
	}
	if got := store.Get("streets", tile); !bytes.Equal(got, data) {
		t.Fatalf("stored data mismatch: %v", got)
	}
	if got := store.Get("toner", tile); got != nil {
		t.Fatal("styles must not share rows")
	}
}

func TestNilTileStoreIsInert(t *testing.T) {
	var store *TileStore
	if store.Get("s", Tile{}) != nil {
		t.Fatal("nil store should miss")
	}
	if err := store.Put("s", Tile{}, []byte{1}); err != nil {
		t.Fatalf("nil store put should no-op: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("nil store close should no-op: %v", err)
	}
}

func testTilePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFetcherCachesAcrossLayers(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(testTilePNG(t))
	}))
	defer srv.Close()

	store, err := OpenTileStore(filepath.Join(t.TempDir(), "tiles.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	style := Style{Name: "test", URL: srv.URL + "/{z}/{x}/{y}.png"}
	f := NewFetcher(style, store, srv.Client(), nil)
	tile := Tile{X: 1, Y: 1, Z: 4}

	if _, err := f.Get(context.Background(), tile); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Get(context.Background(), tile); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one network hit, got %d", hits.Load())
	}

	// A fresh fetcher with the same store must not touch the network.
	f2 := NewFetcher(style, store, srv.Client(), nil)
	if img := f2.Cached(tile); img == nil {
		t.Fatal("tile not served from store")
	}
	if hits.Load() != 1 {
		t.Fatalf("store read hit the network: %d", hits.Load())
	}
}

func TestPrefetchRateLimitSpansWorkers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(testTilePNG(t))
	}))
	defer srv.Close()

	f := NewFetcher(Style{Name: "t", URL: srv.URL + "/{z}/{x}/{y}.png"}, nil, srv.Client(), nil)
	tiles := make([]Tile, 0, 8)
	for x := 0; x < 8; x++ {
		tiles = append(tiles, Tile{X: x, Y: 0, Z: 4})
	}

	// 8 tiles at 20/s need at least 8 dispatch ticks of 50ms, no matter how
	// many workers are free.
	start := time.Now()
	f.Prefetch(context.Background(), tiles, false)
	if elapsed := time.Since(start); elapsed < 350*time.Millisecond {
		t.Fatalf("8 tiles prefetched in %v, rate limit not shared", elapsed)
	}
}

func TestFetcherReturnsFillerOutOfWorld(t *testing.T) {
	f := NewFetcher(Style{Name: "t", URL: "http://unreachable.invalid/{z}/{x}/{y}.png"}, nil, nil, nil)
	img, err := f.Get(context.Background(), Tile{X: 0, Y: -5, Z: 2})
	if err != nil || img == nil {
		t.Fatalf("out-of-world tile should be filler, got %v %v", img, err)
	}
}

func TestFetcherSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	f := NewFetcher(Style{Name: "t", URL: srv.URL + "/{z}/{x}/{y}.png"}, nil, srv.Client(), nil)
	if _, err := f.Get(context.Background(), Tile{X: 0, Y: 0, Z: 1}); err == nil {
		t.Fatal("expected error for 404 tile")
	}
}

func TestTilesForCameraCoversViewport(t *testing.T) {
	cam := Camera{Center: geo.Point{Lat: 37.8, Lng: -122.4}, Zoom: 15}
	tiles := TilesForCamera(cam, 1080, 1920)
	if len(tiles) == 0 {
		t.Fatal("no tiles for viewport")
	}
	// 1080px wide at 256px tiles needs at least 5 columns, 1920 tall at
	// least 8 rows.
	if len(tiles) < 5*8 {
		t.Fatalf("viewport under-covered: %d tiles", len(tiles))
	}
	ctx, cty := geo.TileCoords(cam.Center, cam.TileZoom())
	found := false
	for _, tile := range tiles {
		if tile.X == int(ctx) && tile.Y == int(cty) {
			found = true
		}
		if tile.Z != cam.TileZoom() {
			t.Fatalf("tile at wrong zoom: %+v", tile)
		}
	}
	if !found {
		t.Fatal("center tile missing from viewport set")
	}
}
