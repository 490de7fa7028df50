package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tikzcell/pkg/cache"
	"github.com/matzehuels/tikzcell/pkg/render"
	"github.com/matzehuels/tikzcell/pkg/server"
	"github.com/matzehuels/tikzcell/pkg/tikz"
)

// Cache backends accepted in [cache] backend.
const (
	cacheBackendFile  = "file"
	cacheBackendRedis = "redis"
	cacheBackendNone  = "none"
)

// Config is the contents of config.toml. Every field is optional; command
// flags override what the file sets.
//
//	engine = "lualatex"
//	converter = "pdftoppm"
//	timeout = "1m"
//	latex_packages = "amsmath"
//
//	[cache]
//	backend = "redis"
//	ttl = "168h"
//
//	[redis]
//	addr = "localhost:6379"
type Config struct {
	tikz.Request

	Converter string        `toml:"converter"`
	Timeout   time.Duration `toml:"timeout"`
	TempDir   string        `toml:"temp_dir"`

	Cache  CacheConfig  `toml:"cache"`
	Redis  RedisConfig  `toml:"redis"`
	Server ServerConfig `toml:"server"`
}

// CacheConfig selects and tunes the artifact cache.
type CacheConfig struct {
	Backend string        `toml:"backend"`
	Dir     string        `toml:"dir"`
	TTL     time.Duration `toml:"ttl"`
}

// RedisConfig is used when the cache backend is redis.
type RedisConfig struct {
	Addr            string `toml:"addr"`
	Password        string `toml:"password"`
	DB              int    `toml:"db"`
	Prefix          string `toml:"prefix"`
	ConnectAttempts int    `toml:"connect_attempts"`
}

// ServerConfig configures `tikzcell serve`.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`

	// Engines are the engines HTTP clients may request.
	Engines []string `toml:"engines"`
}

// defaultConfig returns the configuration used when no file exists.
func defaultConfig() Config {
	return Config{
		Request:   tikz.NewRequest(""),
		Converter: render.DefaultConverter,
		Cache: CacheConfig{
			Backend: cacheBackendFile,
			TTL:     cache.TTLArtifact,
		},
		Redis: RedisConfig{
			Addr:            "localhost:6379",
			Prefix:          appName + ":",
			ConnectAttempts: 3,
		},
		Server: ServerConfig{
			Addr:         server.DefaultAddr,
			MaxBodyBytes: server.DefaultMaxBodyBytes,
			Engines:      slices.Clone(server.DefaultEngines),
		},
	}
}

// loadConfig reads the config file at path on top of the defaults.
// An empty path reads the default location, where a missing file is fine;
// an explicit path must exist.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, configFile)
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return defaultConfig(), nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case cacheBackendFile, cacheBackendRedis, cacheBackendNone:
	default:
		return fmt.Errorf("cache backend %q (must be %s, %s or %s)",
			c.Cache.Backend, cacheBackendFile, cacheBackendRedis, cacheBackendNone)
	}
	if _, err := render.NewConverter(c.Converter); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	req := c.Request
	req.Content = "%"
	return req.Validate()
}
