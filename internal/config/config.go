// Package config loads and validates the TOML configuration document.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFilename is looked up in the working directory when no --config
// flag is given.
const DefaultFilename = "tripstitch.toml"

// Tools names the external binaries the renderer shells out to.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// MapConfig covers the tile layer.
type MapConfig struct {
	TileCachePath string            `toml:"tile_cache_path"`
	Styles        []StyleOverride   `toml:"styles"`
	Headers       map[string]string `toml:"headers"`
}

// StyleOverride adds or replaces a named tile style.
type StyleOverride struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// Routing covers the route geometry service.
type Routing struct {
	BaseURL string `toml:"base_url"`
}

// Audio carries the default mix gains.
type Audio struct {
	VoiceOverGain float64 `toml:"voice_over_gain"`
	OriginalGain  float64 `toml:"original_gain"`
	MusicGain     float64 `toml:"music_gain"`
}

// Logging covers log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the full application configuration.
type Config struct {
	Tools   Tools     `toml:"tools"`
	Map     MapConfig `toml:"map"`
	Routing Routing   `toml:"routing"`
	Audio   Audio     `toml:"audio"`
	Logging Logging   `toml:"logging"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Tools: Tools{FFmpeg: "ffmpeg", FFprobe: "ffprobe"},
		Map: MapConfig{
			TileCachePath: filepath.Join(defaultCacheDir(), "tiles.db"),
		},
		Audio: Audio{
			VoiceOverGain: 1.0,
			OriginalGain:  0.2,
			MusicGain:     0.7,
		},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "tripstitch")
	}
	return "."
}

// Load reads the config at path, layered over defaults. An empty path tries
// DefaultFilename and falls back to pure defaults when it does not exist; an
// explicit path that is missing is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = DefaultFilename
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the document for values that would fail later in
// confusing places.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Tools.FFmpeg) == "" {
		return errors.New("tools.ffmpeg must not be empty")
	}
	if strings.TrimSpace(c.Tools.FFprobe) == "" {
		return errors.New("tools.ffprobe must not be empty")
	}
	for _, g := range []struct {
		name  string
		value float64
	}{
		{"audio.voice_over_gain", c.Audio.VoiceOverGain},
		{"audio.original_gain", c.Audio.OriginalGain},
		{"audio.music_gain", c.Audio.MusicGain},
	} {
		if g.value < 0 || g.value > 2 {
			return fmt.Errorf("%s out of range [0, 2]: %v", g.name, g.value)
		}
	}
	for _, s := range c.Map.Styles {
		if s.Name == "" || s.URL == "" {
			return fmt.Errorf("map.styles entries need both name and url: %+v", s)
		}
		if !strings.Contains(s.URL, "{z}") {
			return fmt.Errorf("map style %q url has no {z} placeholder", s.Name)
		}
	}
	return nil
}
