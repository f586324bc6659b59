package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/creatorbot/core/config"
	coredatabase "github.com/m3rciful/creatorbot/core/database"
	"github.com/m3rciful/creatorbot/internal/adminhttp"
	"github.com/m3rciful/creatorbot/internal/challenge"
	"github.com/m3rciful/creatorbot/internal/chart"
	"github.com/m3rciful/creatorbot/internal/reminder"
	"github.com/m3rciful/creatorbot/internal/storage"
)

// Config is the full application configuration: the core sections plus the
// bot's own.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Storage   storage.Config      `yaml:"storage"`
	Database  coredatabase.Config `yaml:"database"`
	Challenge challenge.Config    `yaml:"challenge"`
	Chart     chart.Config        `yaml:"chart"`
	Reminder  reminder.Config     `yaml:"reminder"`
	Admin     adminhttp.Config    `yaml:"admin"`
}

// CoreConfig exposes the embedded core section to the runner.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// LoadConfig reads the YAML file at path, applies environment overrides and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the application sections and fills defaults.
func Normalize(cfg *Config) error {
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" {
		driver = storage.DriverMemory
	}
	switch driver {
	case storage.DriverMemory:
	case storage.DriverPostgres:
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required when storage.driver is 'postgres'")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: memory, postgres", cfg.Storage.Driver)
	}
	cfg.Storage.Driver = driver

	if cfg.Challenge.TotalDays < 0 || cfg.Challenge.ChartEvery < 0 {
		return fmt.Errorf("challenge settings must not be negative")
	}
	if cfg.Chart.Width < 0 || cfg.Chart.Height < 0 {
		return fmt.Errorf("chart size must not be negative")
	}
	if cfg.Reminder.CheckInterval < 0 || cfg.Reminder.Period < 0 {
		return fmt.Errorf("reminder durations must not be negative")
	}
	cfg.Admin.Listen = strings.TrimSpace(cfg.Admin.Listen)
	return nil
}

// DatabaseConfig returns the SQL settings, or nil when the memory driver is used.
func (c *Config) DatabaseConfig() *coredatabase.Config {
	if c.Storage.Driver != storage.DriverPostgres {
		return nil
	}
	db := c.Database
	return &db
}
