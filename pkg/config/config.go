// Package config loads mermaidlive settings from a TOML file.
//
// The default location is $XDG_CONFIG_HOME/mermaidlive/config.toml, falling
// back to ~/.config/mermaidlive/config.toml. A missing file is not an error:
// [Load] returns [Defaults] in that case. Values present in the file
// override the defaults field by field.
//
// Example file:
//
//	[render]
//	backend = "kroki"
//	debounce = "300ms"
//
//	[render.kroki]
//	url = "https://kroki.io"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/mermaidlive/pkg/errors"
)

const (
	appName  = "mermaidlive"
	fileName = "config.toml"
)

// Render backends.
const (
	BackendMMDC     = "mmdc"
	BackendKroki    = "kroki"
	BackendGraphviz = "graphviz"
)

// Cache backends.
const (
	CacheFile   = "file"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheMongo  = "mongo"
	CacheNone   = "none"
)

// =============================================================================
// Types
// =============================================================================

// Config is the complete configuration.
type Config struct {
	Render RenderConfig `toml:"render"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
	Export ExportConfig `toml:"export"`
}

// RenderConfig selects and tunes the diagram rendering service.
type RenderConfig struct {
	Backend     string        `toml:"backend"`
	Language    string        `toml:"language"`
	Debounce    time.Duration `toml:"debounce"`
	Timeout     time.Duration `toml:"timeout"`
	Concurrency int           `toml:"concurrency"`
	Theme       string        `toml:"theme"`
	MMDC        MMDCConfig    `toml:"mmdc"`
	Kroki       KrokiConfig   `toml:"kroki"`
}

// MMDCConfig configures the mermaid-cli backend.
type MMDCConfig struct {
	Path            string `toml:"path"`
	PuppeteerConfig string `toml:"puppeteer_config"`
	Background      string `toml:"background"`
}

// KrokiConfig configures the Kroki HTTP backend.
type KrokiConfig struct {
	URL string `toml:"url"`
}

// CacheConfig selects the artifact cache.
type CacheConfig struct {
	Backend         string        `toml:"backend"`
	Dir             string        `toml:"dir"`
	TTL             time.Duration `toml:"ttl"`
	RedisAddr       string        `toml:"redis_addr"`
	RedisPassword   string        `toml:"redis_password"`
	RedisDB         int           `toml:"redis_db"`
	MongoURI        string        `toml:"mongo_uri"`
	MongoDatabase   string        `toml:"mongo_database"`
	MongoCollection string        `toml:"mongo_collection"`
}

// RedisURL builds a redis:// URL from the address, password and database.
func (c CacheConfig) RedisURL() string {
	if c.RedisPassword != "" {
		return fmt.Sprintf("redis://:%s@%s/%d", c.RedisPassword, c.RedisAddr, c.RedisDB)
	}
	return fmt.Sprintf("redis://%s/%d", c.RedisAddr, c.RedisDB)
}

// ServerConfig configures the HTTP shell.
type ServerConfig struct {
	Addr       string        `toml:"addr"`
	SessionTTL time.Duration `toml:"session_ttl"`
}

// ExportConfig configures PNG/PDF export.
type ExportConfig struct {
	Scale      float64 `toml:"scale"`
	Background string  `toml:"background"`
}

// =============================================================================
// Defaults
// =============================================================================

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Render: RenderConfig{
			Backend:     BackendMMDC,
			Language:    "mermaid",
			Debounce:    250 * time.Millisecond,
			Timeout:     30 * time.Second,
			Concurrency: 4,
			Theme:       "default",
			MMDC: MMDCConfig{
				Path:       "mmdc",
				Background: "white",
			},
			Kroki: KrokiConfig{URL: "https://kroki.io"},
		},
		Cache: CacheConfig{
			Backend:         CacheFile,
			TTL:             7 * 24 * time.Hour,
			RedisAddr:       "localhost:6379",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   appName,
			MongoCollection: "artifacts",
		},
		Server: ServerConfig{
			Addr:       "127.0.0.1:8080",
			SessionTTL: 2 * time.Hour,
		},
		Export: ExportConfig{
			Scale:      2.0,
			Background: "white",
		},
	}
}

// =============================================================================
// Loading
// =============================================================================

// DefaultPath returns the XDG config file location.
func DefaultPath() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, fileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, fileName), nil
}

// Load reads path on top of the defaults. An empty path uses DefaultPath.
// A missing file at the default location yields the defaults; a missing
// file that was named explicitly is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Defaults(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Defaults(), nil
		}
		if os.IsNotExist(err) {
			return Config{}, errors.New(errors.ErrCodeFileNotFound, "config file not found: %s", path)
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML data on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Defaults()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidInput, "unknown config key: %s", undecoded[0])
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks backends and numeric ranges.
func (c Config) Validate() error {
	switch c.Render.Backend {
	case BackendMMDC, BackendKroki, BackendGraphviz:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown render backend %q", c.Render.Backend)
	}
	switch c.Cache.Backend {
	case CacheFile, CacheMemory, CacheRedis, CacheMongo, CacheNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Render.Concurrency <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "render concurrency must be positive, got %d", c.Render.Concurrency)
	}
	if c.Render.Debounce < 0 || c.Render.Timeout < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "render durations must not be negative")
	}
	if c.Render.Backend == BackendKroki {
		if err := errors.ValidateURL(c.Render.Kroki.URL); err != nil {
			return err
		}
	}
	if c.Export.Scale <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "export scale must be positive, got %g", c.Export.Scale)
	}
	return nil
}
