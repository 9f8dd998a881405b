package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/anomredux/claude-relay/internal/domain"
	"github.com/anomredux/claude-relay/internal/pricing"
)

// PlanAuto asks for plan detection from the OAuth credential.
const PlanAuto = "auto"

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Usage   UsageConfig   `toml:"usage"`
	API     APIConfig     `toml:"api"`
	Cache   CacheConfig   `toml:"cache"`
	Weather WeatherConfig `toml:"weather"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	Host      string  `toml:"host"`
	Port      int     `toml:"port"`
	RateLimit float64 `toml:"rate_limit"` // requests per second, 0 disables
}

type UsageConfig struct {
	Plan        string `toml:"plan"`
	DataDir     string `toml:"data_dir"` // empty means the Claude Code defaults
	Timezone    string `toml:"timezone"` // empty means the system zone
	PricingFile string `toml:"pricing_file"`
	CostMode    string `toml:"cost_mode"`
}

type APIConfig struct {
	Enabled    bool `toml:"enabled"`
	TTLSeconds int  `toml:"ttl_seconds"`
}

type CacheConfig struct {
	TTLSeconds int  `toml:"ttl_seconds"`
	Watch      bool `toml:"watch"`
}

type WeatherConfig struct {
	Enabled  bool   `toml:"enabled"`
	Location string `toml:"location"` // empty means GeoIP
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8265,
			RateLimit: 5,
		},
		Usage: UsageConfig{
			Plan:     PlanAuto,
			CostMode: string(pricing.CostModeAuto),
		},
		API: APIConfig{
			Enabled:    true,
			TTLSeconds: 30,
		},
		Cache: CacheConfig{
			TTLSeconds: 300,
		},
		Weather: WeatherConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "claude-relay", "config.toml")
}

// DataDirs returns the log trees to scan. Claude Code writes to
// ~/.claude/projects, newer versions to $XDG_CONFIG_HOME/claude/projects.
func (c Config) DataDirs() []string {
	if c.Usage.DataDir != "" {
		return []string{c.Usage.DataDir}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return []string{filepath.Join(xdg.ConfigHome, "claude", "projects")}
	}
	return []string{
		filepath.Join(home, ".claude", "projects"),
		filepath.Join(xdg.ConfigHome, "claude", "projects"),
	}
}

// Location returns the zone for daily totals and clock fields.
func (c Config) Location() (*time.Location, error) {
	if c.Usage.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Usage.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Usage.Timezone, err)
	}
	return loc, nil
}

func (c Config) ReportTTL() time.Duration { return time.Duration(c.Cache.TTLSeconds) * time.Second }
func (c Config) APITTL() time.Duration    { return time.Duration(c.API.TTLSeconds) * time.Second }
func (c Config) Addr() string             { return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port) }

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Usage.Plan != PlanAuto && !domain.ValidPlan(c.Usage.Plan) {
		errs = append(errs, fmt.Errorf("usage.plan: unknown plan %q (want auto, %v)", c.Usage.Plan, domain.Plans()))
	}
	if !pricing.ValidMode(pricing.CostMode(c.Usage.CostMode)) {
		errs = append(errs, fmt.Errorf("usage.cost_mode: unknown mode %q", c.Usage.CostMode))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit: must not be negative"))
	}
	if c.Cache.TTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl_seconds: must be positive"))
	}
	if c.API.TTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("api.ttl_seconds: must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("usage.timezone: %w", err))
	}
	return errors.Join(errs...)
}

func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // use defaults
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
