package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	builder "github.com/goliatone/go-dashboard-builder/components/builder"
)

// Storage drivers understood by the CLI.
const (
	DriverFile   = "file"
	DriverMemory = "memory"
	DriverMongo  = "mongo"
)

// Config is the builderctl configuration file.
type Config struct {
	API     APIConfig     `yaml:"api" toml:"api"`
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	History HistoryConfig `yaml:"history" toml:"history"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Chart   ChartConfig   `yaml:"chart" toml:"chart"`
	Log     LogConfig     `yaml:"log" toml:"log"`
}

// APIConfig points at the Ask For Data backend.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" toml:"base_url"`
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// StorageConfig selects where dashboards are persisted.
type StorageConfig struct {
	Driver          string `yaml:"driver" toml:"driver"`
	Dir             string `yaml:"dir" toml:"dir"`
	Key             string `yaml:"key" toml:"key"`
	MongoURI        string `yaml:"mongo_uri" toml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database" toml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection" toml:"mongo_collection"`
}

type HistoryConfig struct {
	Limit int `yaml:"limit" toml:"limit"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	BasePath string `yaml:"base_path" toml:"base_path"`
}

// ChartConfig tunes chart rendering.
type ChartConfig struct {
	Theme      string        `yaml:"theme" toml:"theme"`
	AssetsHost string        `yaml:"assets_host" toml:"assets_host"`
	CacheTTL   time.Duration `yaml:"cache_ttl" toml:"cache_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Pretty bool   `yaml:"pretty" toml:"pretty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver:          DriverFile,
			Dir:             ".askdata",
			Key:             builder.DefaultStorageKey,
			MongoDatabase:   "askdata",
			MongoCollection: "dashboard_state",
		},
		History: HistoryConfig{Limit: builder.DefaultHistoryLimit},
		Server: ServerConfig{
			Addr:     ":9876",
			BasePath: "/builder",
		},
		Chart: ChartConfig{
			Theme:    "westeros",
			CacheTTL: 5 * time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, applies ASKDATA_* overrides and
// validates the result. An empty path loads defaults and environment only.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := decode(path, data, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
	case ".toml":
		meta, err := toml.Decode(string(data), cfg)
		if err != nil {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("config: decode %s: unknown key %s", path, undecoded[0])
		}
	default:
		return fmt.Errorf("config: unsupported file type %q", filepath.Ext(path))
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("config: api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return errors.New("config: api.timeout must be positive")
	}
	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.Dir == "" {
			return errors.New("config: storage.dir is required for the file driver")
		}
	case DriverMemory:
	case DriverMongo:
		if c.Storage.MongoURI == "" || c.Storage.MongoDatabase == "" {
			return errors.New("config: storage.mongo_uri and storage.mongo_database are required for the mongo driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Key == "" {
		return errors.New("config: storage.key is required")
	}
	if c.History.Limit < 1 {
		return fmt.Errorf("config: history.limit must be at least 1, got %d", c.History.Limit)
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config: server.base_path must start with /, got %q", c.Server.BasePath)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
