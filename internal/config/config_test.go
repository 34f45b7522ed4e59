package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":8085" {
		t.Fatalf("unexpected default address %s", cfg.Server.Address)
	}
	if cfg.Engine.TariffINRPerKWh != 8.0 {
		t.Fatalf("unexpected default tariff %f", cfg.Engine.TariffINRPerKWh)
	}
	if cfg.Store.Backend != "memory" {
		t.Fatalf("unexpected default store backend %s", cfg.Store.Backend)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
engine:
  buildingID: "hq"
  tariffINRPerKWh: 9.5
store:
  backend: sqlite
  path: /tmp/alerts.db
logging:
  level: debug
  json: true
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.BuildingID != "hq" || cfg.Engine.TariffINRPerKWh != 9.5 {
		t.Fatalf("file values not applied: %+v", cfg.Engine)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.Path != "/tmp/alerts.db" {
		t.Fatalf("store values not applied: %+v", cfg.Store)
	}
	if cfg.Server.Address != ":8085" {
		t.Fatalf("unset file values should keep defaults, got %s", cfg.Server.Address)
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Fatalf("logging values not applied: %+v", cfg.Logging)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WASTE_ENGINE_SERVER_ADDRESS", ":9999")
	t.Setenv("WASTE_ENGINE_TARIFF_INR_PER_KWH", "12.5")
	t.Setenv("WASTE_ENGINE_CACHE_ENABLED", "true")
	t.Setenv("WASTE_ENGINE_CACHE_ADDR", "redis:6379")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":9999" {
		t.Fatalf("env address not applied: %s", cfg.Server.Address)
	}
	if cfg.Engine.TariffINRPerKWh != 12.5 {
		t.Fatalf("env tariff not applied: %f", cfg.Engine.TariffINRPerKWh)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Addr != "redis:6379" {
		t.Fatalf("env cache values not applied: %+v", cfg.Cache)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tariff", func(c *Config) { c.Engine.TariffINRPerKWh = 0 }},
		{"inverted window", func(c *Config) { c.Engine.BusinessStartHour = 20 }},
		{"inverted bounds", func(c *Config) { c.Engine.MaxPowerW = -1 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }},
		{"sqlite without path", func(c *Config) { c.Store.Backend = "sqlite" }},
	}
	for _, tc := range cases {
		cfg := defaultConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
