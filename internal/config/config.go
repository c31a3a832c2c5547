package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rogersf/court-engine/internal/domain"
	"github.com/rogersf/court-engine/internal/game"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the server's runtime configuration.
type Config struct {
	ListenAddr         string     `json:"listen_addr" yaml:"listen_addr"`
	DBDriver           string     `json:"db_driver" yaml:"db_driver"`
	DBPath             string     `json:"db_path" yaml:"db_path"`
	DBDSN              string     `json:"db_dsn" yaml:"db_dsn"`
	EventsDir          string     `json:"events_dir" yaml:"events_dir"`
	JournalDir         string     `json:"journal_dir" yaml:"journal_dir"`
	Seed               int64      `json:"seed" yaml:"seed"`
	RateLimitPerMinute int        `json:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	MaxSessions        int        `json:"max_sessions" yaml:"max_sessions"`
	Game               game.Rules `json:"game" yaml:"game"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Game: game.DefaultRules()}
	cfg.applyDefaults()
	return cfg
}

// Load reads a JSON or YAML config file, applies COURT_* environment
// overrides and defaults, and validates. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{Game: game.DefaultRules()}
	cfg.Game.IgnoredPetition = nil

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("parse config YAML: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("parse config JSON: %w", err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":9810"
	}
	if c.DBDriver == "" {
		c.DBDriver = DriverSQLite
	}
	if c.DBDriver == DriverSQLite && c.DBPath == "" {
		c.DBPath = "court.db"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if c.MaxSessions == 0 {
		c.MaxSessions = 64
	}
	if c.Game.IgnoredPetition == nil {
		c.Game.IgnoredPetition = game.DefaultRules().IgnoredPetition
	}
}

func (c *Config) validate() error {
	var problems []string

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			problems = append(problems, "db_path is required for sqlite")
		}
	case DriverPostgres:
		if c.DBDSN == "" {
			problems = append(problems, "db_dsn is required for postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("db_driver %q is not sqlite or postgres", c.DBDriver))
	}
	if c.RateLimitPerMinute < 0 {
		problems = append(problems, "rate_limit_per_minute must not be negative")
	}
	if c.MaxSessions < 0 {
		problems = append(problems, "max_sessions must not be negative")
	}
	if c.EventsDir != "" {
		if fi, err := os.Stat(c.EventsDir); err != nil || !fi.IsDir() {
			problems = append(problems, fmt.Sprintf("events_dir %q is not a directory", c.EventsDir))
		}
	}
	for _, p := range c.Game.Problems() {
		problems = append(problems, "game."+p)
	}

	if len(problems) > 0 {
		return &domain.GameError{
			Code:    domain.ErrConfigInvalid.Code,
			Message: fmt.Sprintf("%s: %v", domain.ErrConfigInvalid.Message, problems),
		}
	}
	return nil
}
