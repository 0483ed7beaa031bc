package maprender

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	_ "modernc.org/sqlite"
)

const (
	// TileSize is the pixel size of a raster tile.
	TileSize = 256

	tileFetchTimeout     = 3 * time.Second
	tileFetchConcurrency = 8
	tileUserAgent        = "tripstitch/0.1"
)

// Tile addresses one slippy-map raster tile.
type Tile struct {
	X, Y, Z int
}

// TileStore persists fetched tiles in a single sqlite file so repeated renders
// of the same trip never re-download.
type TileStore struct {
	db *sql.DB
}

// OpenTileStore opens (creating if needed) the tile database at path. An
// empty path yields a nil store and tiles stay memory-only.
func OpenTileStore(path string) (*TileStore, error) {
	if path == "" {
		return nil, nil
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open tile store %s: %w", path, err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS tiles (
		style TEXT NOT NULL,
		z INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (style, z, x, y)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tile store: %w", err)
	}
	return &TileStore{db: db}, nil
}

// Get returns the stored PNG bytes for a tile, or nil when absent.
func (s *TileStore) Get(style string, t Tile) []byte {
	if s == nil {
		return nil
	}
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM tiles WHERE style = ? AND z = ? AND x = ? AND y = ?`,
		style, t.Z, t.X, t.Y).Scan(&data)
	if err != nil {
		return nil
	}
	return data
}

// Put stores PNG bytes for a tile, replacing any existing row.
func (s *TileStore) Put(style string, t Tile, data []byte) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO tiles (style, z, x, y, data) VALUES (?, ?, ?, ?, ?)`,
		style, t.Z, t.X, t.Y, data)
	return err
}

// Close closes the underlying database.
func (s *TileStore) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// Fetcher resolves tiles through three layers: in-memory hot cache, sqlite
// store, HTTP.
type Fetcher struct {
	style  Style
	store  *TileStore
	client *http.Client
	logger *slog.Logger

	hot sync.Map // tileKey -> image.Image
}

type tileKey struct {
	style string
	t     Tile
}

// NewFetcher builds a Fetcher for one style. A nil client gets the default
// 3 second timeout.
func NewFetcher(style Style, store *TileStore, client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: tileFetchTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{style: style, store: store, client: client, logger: logger}
}

var emptyTile = func() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))
	for i := range img.Pix {
		img.Pix[i] = 0xe0
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}()

func tileURL(style Style, t Tile) string {
	url := strings.Replace(style.URL, "{z}", strconv.Itoa(t.Z), 1)
	url = strings.Replace(url, "{x}", strconv.Itoa(t.X), 1)
	return strings.Replace(url, "{y}", strconv.Itoa(t.Y), 1)
}

// normalizeTile wraps X around the antimeridian and reports whether Y is
// within the world.
func normalizeTile(t Tile) (Tile, bool) {
	n := 1 << uint(t.Z)
	if t.Y < 0 || t.Y >= n {
		return t, false
	}
	t.X = ((t.X % n) + n) % n
	return t, true
}

// Get returns the tile image. Out-of-world tiles come back as a flat filler
// tile; fetch errors are returned so callers can decide whether they are
// fatal.
func (f *Fetcher) Get(ctx context.Context, t Tile) (image.Image, error) {
	t, ok := normalizeTile(t)
	if !ok {
		return emptyTile, nil
	}
	key := tileKey{style: f.style.Name, t: t}
	if img, ok := f.hot.Load(key); ok {
		return img.(image.Image), nil
	}

	if data := f.store.Get(f.style.Name, t); data != nil {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err == nil {
			f.hot.Store(key, img)
			return img, nil
		}
		f.logger.Warn("stored tile corrupt, refetching", "tile", t, "error", err)
	}

	url := tileURL(f.style, t)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", tileUserAgent)
	for k, v := range f.style.Headers {
		req.Header.Set(k, v)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download tile %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download tile %s: status %d", url, resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode tile %s: %w", url, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err == nil {
		if err := f.store.Put(f.style.Name, t, buf.Bytes()); err != nil {
			f.logger.Warn("tile store write failed", "tile", t, "error", err)
		}
	}
	f.hot.Store(key, img)
	return img, nil
}

// Cached returns the tile only if it is already in the hot cache or the
// store; it never touches the network. Render loops use this so a slow tile
// server degrades to filler tiles instead of stalling frames.
func (f *Fetcher) Cached(t Tile) image.Image {
	t, ok := normalizeTile(t)
	if !ok {
		return emptyTile
	}
	key := tileKey{style: f.style.Name, t: t}
	if img, ok := f.hot.Load(key); ok {
		return img.(image.Image)
	}
	if data := f.store.Get(f.style.Name, t); data != nil {
		if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
			f.hot.Store(key, img)
			return img
		}
	}
	return nil
}

// Prefetch downloads the given tiles with bounded concurrency and a polite
// rate limit. Individual failures are logged and skipped; the first context
// error aborts the rest.
func (f *Fetcher) Prefetch(ctx context.Context, tiles []Tile, showProgress bool) {
	if len(tiles) == 0 {
		return
	}
	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.Default(int64(len(tiles)), "Downloading tiles")
	}

	var wg sync.WaitGroup
	limit := make(chan struct{}, tileFetchConcurrency)
	// One shared ticker gates dispatch, holding the whole pool to 20 tiles
	// per second regardless of worker count.
	rate := time.NewTicker(time.Second / 20)
	defer rate.Stop()
	for _, tile := range tiles {
		select {
		case <-rate.C:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		limit <- struct{}{}
		go func(t Tile) {
			defer wg.Done()
			defer func() { <-limit }()
			if _, err := f.Get(ctx, t); err != nil {
				f.logger.Debug("prefetch tile failed", "tile", t, "error", err)
			}
			if bar != nil {
				bar.Add(1)
			}
		}(tile)
	}
	wg.Wait()
}

// TilesForCamera lists the tiles covering the camera's viewport.
func TilesForCamera(cam Camera, width, height int) []Tile {
	tz := cam.TileZoom()
	n := math.Exp2(float64(tz))
	scale := cam.scale()

	cx, cy := cam.centerWorld()
	halfW := float64(width) / 2 / scale
	halfH := float64(height) / 2 / scale

	txMin := int(math.Floor((cx - halfW) * n))
	txMax := int(math.Floor((cx + halfW) * n))
	tyMin := int(math.Floor((cy - halfH) * n))
	tyMax := int(math.Floor((cy + halfH) * n))

	var tiles []Tile
	for x := txMin; x <= txMax; x++ {
		for y := tyMin; y <= tyMax; y++ {
			if t, ok := normalizeTile(Tile{X: x, Y: y, Z: tz}); ok {
				tiles = append(tiles, t)
			}
		}
	}
	return tiles
}
