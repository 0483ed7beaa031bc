// Package maprender is the persistent map engine: a slippy-tile renderer over
// one off-screen surface, with camera fly animations, route drawing, and a
// tile pipeline backed by HTTP, sqlite, and an in-memory hot cache.
package maprender

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Style names a raster tile source.
type Style struct {
	Name    string
	URL     string // template with {z}/{x}/{y} placeholders
	Headers map[string]string
}

var (
	stylesMu sync.RWMutex
	styles   = map[string]Style{
		"streets":  {Name: "streets", URL: "https://tile.openstreetmap.org/{z}/{x}/{y}.png"},
		"outdoor":  {Name: "outdoor", URL: "https://tile.thunderforest.com/outdoors/{z}/{x}/{y}.png"},
		"cyclosm":  {Name: "cyclosm", URL: "https://c.tile-cyclosm.openstreetmap.fr/cyclosm/{z}/{x}/{y}.png"},
		"toner":    {Name: "toner", URL: "https://tiles.stadiamaps.com/tiles/stamen_toner/{z}/{x}/{y}.png"},
		"positron": {Name: "positron", URL: "https://d.basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png"},
	}
)

// RegisterStyle adds or replaces a style, normally from configuration.
func RegisterStyle(s Style) {
	stylesMu.Lock()
	defer stylesMu.Unlock()
	styles[s.Name] = s
}

// ResolveStyle looks up a style by name.
func ResolveStyle(name string) (Style, error) {
	stylesMu.RLock()
	defer stylesMu.RUnlock()
	s, ok := styles[name]
	if !ok {
		return Style{}, fmt.Errorf("unknown map style %q (known: %s)", name, strings.Join(styleNamesLocked(), ", "))
	}
	return s, nil
}

// StyleNames lists the registered style names, sorted.
func StyleNames() []string {
	stylesMu.RLock()
	defer stylesMu.RUnlock()
	return styleNamesLocked()
}

func styleNamesLocked() []string {
	names := make([]string, 0, len(styles))
	for name := range styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
