package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the waste engine.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Engine  EngineConfig  `yaml:"engine"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Cache   CacheConfig   `yaml:"cache"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// EngineConfig holds the analysis parameters.
type EngineConfig struct {
	BuildingID        string  `yaml:"buildingID"`
	TariffINRPerKWh   float64 `yaml:"tariffINRPerKWh"`
	BusinessStartHour int     `yaml:"businessStartHour"`
	BusinessEndHour   int     `yaml:"businessEndHour"`
	MinPowerW         float64 `yaml:"minPowerW"`
	MaxPowerW         float64 `yaml:"maxPowerW"`
}

// StoreConfig selects the alert persistence backend.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls Redis-backed caching of building reports.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	ReportTTL time.Duration `yaml:"reportTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("WASTE_ENGINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine constructors would refuse.
func (c *Config) Validate() error {
	if c.Engine.TariffINRPerKWh <= 0 {
		return fmt.Errorf("engine.tariffINRPerKWh must be positive, got %f", c.Engine.TariffINRPerKWh)
	}
	if c.Engine.BusinessStartHour >= c.Engine.BusinessEndHour {
		return fmt.Errorf("engine business window inverted: %d-%d", c.Engine.BusinessStartHour, c.Engine.BusinessEndHour)
	}
	if c.Engine.MaxPowerW <= c.Engine.MinPowerW {
		return fmt.Errorf("engine power bounds inverted: [%f, %f]", c.Engine.MinPowerW, c.Engine.MaxPowerW)
	}
	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8085",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			BuildingID:        "default-building",
			TariffINRPerKWh:   8.0,
			BusinessStartHour: 9,
			BusinessEndHour:   18,
			MinPowerW:         0,
			MaxPowerW:         50000,
		},
		Store:   StoreConfig{Backend: "memory"},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:   false,
			ReportTTL: 2 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WASTE_ENGINE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("WASTE_ENGINE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("WASTE_ENGINE_BUILDING_ID"); v != "" {
		cfg.Engine.BuildingID = v
	}
	if v := os.Getenv("WASTE_ENGINE_TARIFF_INR_PER_KWH"); v != "" {
		if tariff, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.TariffINRPerKWh = tariff
		}
	}
	if v := os.Getenv("WASTE_ENGINE_BUSINESS_START_HOUR"); v != "" {
		if h, err := strconv.Atoi(v); err == nil {
			cfg.Engine.BusinessStartHour = h
		}
	}
	if v := os.Getenv("WASTE_ENGINE_BUSINESS_END_HOUR"); v != "" {
		if h, err := strconv.Atoi(v); err == nil {
			cfg.Engine.BusinessEndHour = h
		}
	}
	if v := os.Getenv("WASTE_ENGINE_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("WASTE_ENGINE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("WASTE_ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WASTE_ENGINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("WASTE_ENGINE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("WASTE_ENGINE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("WASTE_ENGINE_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("WASTE_ENGINE_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("WASTE_ENGINE_CACHE_REPORT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ReportTTL = d
		}
	}
}
