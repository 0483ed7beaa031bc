// Package routing fetches road-following geometry between consecutive stops
// from an OSRM-compatible server. Geometry is decoration: every failure mode
// degrades to a nil geometry and the caller falls back to straight lines.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"tripstitch/internal/geo"
)

// DefaultBaseURL is the public OSRM demo server.
const DefaultBaseURL = "https://router.project-osrm.org"

const requestTimeout = 5 * time.Second

// ErrNoRoute means the server answered but found no route between the
// points, as opposed to a transport failure.
var ErrNoRoute = errors.New("no route between points")

// Geometry is a route's polyline in [lng, lat] pairs, GeoJSON order.
type Geometry struct {
	Coordinates [][2]float64
}

// Points converts the geometry to geographic points.
func (g *Geometry) Points() []geo.Point {
	if g == nil {
		return nil
	}
	pts := make([]geo.Point, len(g.Coordinates))
	for i, c := range g.Coordinates {
		pts[i] = geo.Point{Lng: c[0], Lat: c[1]}
	}
	return pts
}

// Profile maps a transport mode onto an OSRM routing profile.
func Profile(mode geo.TransportMode) string {
	switch mode {
	case geo.ModeWalked:
		return "foot"
	case geo.ModeBiked:
		return "cycling"
	}
	return "driving"
}

// Client talks to one OSRM server.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient builds a Client. Empty baseURL uses the public demo server; a nil
// http client gets the standard 5 second timeout.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: baseURL, http: httpClient, logger: logger}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// FetchRoute requests geometry between two points for a transport mode.
// ErrNoRoute is returned when the server cleanly reports no route; other
// errors indicate transport or protocol failures.
func (c *Client) FetchRoute(ctx context.Context, from, to geo.Point, mode geo.TransportMode) (*Geometry, error) {
	endpoint := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f",
		c.baseURL, url.PathEscape(Profile(mode)),
		from.Lng, from.Lat, to.Lng, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?overview=full&geometries=geojson", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("route response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return nil, fmt.Errorf("route request: status %d", resp.StatusCode)
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("route decode: %w", err)
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return nil, ErrNoRoute
	}
	coords := parsed.Routes[0].Geometry.Coordinates
	if len(coords) < 2 {
		return nil, ErrNoRoute
	}
	return &Geometry{Coordinates: coords}, nil
}

// Cache holds fetched geometry for one export session. Keys include the
// profile so changing a leg's transport mode refetches. Pass the same cache
// by reference everywhere within a session and drop it afterwards.
type Cache struct {
	mu     sync.Mutex
	routes map[cacheKey]*Geometry
}

type cacheKey struct {
	from, to geo.Point
	profile  string
}

// NewCache returns an empty session cache.
func NewCache() *Cache {
	return &Cache{routes: make(map[cacheKey]*Geometry)}
}

func (c *Cache) get(k cacheKey) (*Geometry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.routes[k]
	return g, ok
}

func (c *Cache) put(k cacheKey, g *Geometry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[k] = g
}

// Len reports how many legs the cache holds, failed fetches included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.routes)
}

// Leg pairs a fetched geometry with the transport mode it was fetched for.
// Geometry is nil when no route could be obtained.
type Leg struct {
	Geometry *Geometry
	Mode     geo.TransportMode
}

// FetchAll fetches geometry for every consecutive pair of legs concurrently,
// caching results. A missing route logs at debug (expected for far-apart
// stops), a transport failure at warn; both leave nil geometry so the map
// falls back to a straight line.
func (c *Client) FetchAll(ctx context.Context, legs []geo.Leg, cache *Cache) []Leg {
	if cache == nil {
		cache = NewCache()
	}
	out := make([]Leg, 0, max(len(legs)-1, 0))
	if len(legs) < 2 {
		return out
	}

	var wg sync.WaitGroup
	results := make([]*Geometry, len(legs)-1)
	for i := 1; i < len(legs); i++ {
		from := legs[i-1].Point
		to := legs[i].Point
		mode := legs[i].Mode
		key := cacheKey{from: from, to: to, profile: Profile(mode)}

		if g, ok := cache.get(key); ok {
			results[i-1] = g
			continue
		}
		wg.Add(1)
		go func(idx int, from, to geo.Point, mode geo.TransportMode, key cacheKey) {
			defer wg.Done()
			g, err := c.FetchRoute(ctx, from, to, mode)
			switch {
			case errors.Is(err, ErrNoRoute):
				c.logger.Debug("no route for leg", "from", from, "to", to, "profile", key.profile)
			case err != nil:
				c.logger.Warn("route fetch failed", "from", from, "to", to, "error", err)
			}
			cache.put(key, g)
			results[idx] = g
		}(i-1, from, to, mode, key)
	}
	wg.Wait()

	for i := 1; i < len(legs); i++ {
		out = append(out, Leg{Geometry: results[i-1], Mode: legs[i].Mode})
	}
	return out
}
