package config

import (
	"encoding/json"
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/rogersf/court-engine/internal/catalog"
)

// envConfig mirrors the overridable keys. Unset variables leave the
// prefilled value in place.
type envConfig struct {
	ListenAddr         string `env:"COURT_LISTEN_ADDR"`
	DBDriver           string `env:"COURT_DB_DRIVER"`
	DBPath             string `env:"COURT_DB_PATH"`
	DBDSN              string `env:"COURT_DB_DSN"`
	EventsDir          string `env:"COURT_EVENTS_DIR"`
	JournalDir         string `env:"COURT_JOURNAL_DIR"`
	Seed               int64  `env:"COURT_SEED"`
	RateLimitPerMinute int    `env:"COURT_RATE_LIMIT_PER_MINUTE"`
	MaxSessions        int    `env:"COURT_MAX_SESSIONS"`

	CourtCapacity      int     `env:"COURT_GAME_COURT_CAPACITY"`
	ActionsPerDay      int     `env:"COURT_GAME_ACTIONS_PER_DAY"`
	WaitLimit          int     `env:"COURT_GAME_WAIT_LIMIT"`
	MinTax             float64 `env:"COURT_GAME_MIN_TAX"`
	MaxTax             float64 `env:"COURT_GAME_MAX_TAX"`
	TaxRate            float64 `env:"COURT_GAME_TAX_RATE"`
	LoveLostAtMaxTax   float64 `env:"COURT_GAME_LOVE_LOST_AT_MAX_TAX"`
	StartingMoney      float64 `env:"COURT_GAME_STARTING_MONEY"`
	WinThreshold       float64 `env:"COURT_GAME_WIN_THRESHOLD"`
	LoseThreshold      float64 `env:"COURT_GAME_LOSE_THRESHOLD"`
	MoneyLossInclusive bool    `env:"COURT_GAME_MONEY_LOSS_INCLUSIVE"`
	RulerName          string  `env:"COURT_GAME_RULER_NAME"`
	Title              string  `env:"COURT_GAME_TITLE"`
	// IgnoredPetitionJSON is a JSON array of consequences.
	IgnoredPetitionJSON string `env:"COURT_GAME_IGNORED_PETITION"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	g := &c.Game
	raw := envConfig{
		ListenAddr:         c.ListenAddr,
		DBDriver:           c.DBDriver,
		DBPath:             c.DBPath,
		DBDSN:              c.DBDSN,
		EventsDir:          c.EventsDir,
		JournalDir:         c.JournalDir,
		Seed:               c.Seed,
		RateLimitPerMinute: c.RateLimitPerMinute,
		MaxSessions:        c.MaxSessions,
		CourtCapacity:      g.CourtCapacity,
		ActionsPerDay:      g.ActionsPerDay,
		WaitLimit:          g.WaitLimit,
		MinTax:             g.MinTax,
		MaxTax:             g.MaxTax,
		TaxRate:            g.TaxRate,
		LoveLostAtMaxTax:   g.LoveLostAtMaxTax,
		StartingMoney:      g.StartingMoney,
		WinThreshold:       g.WinThreshold,
		LoseThreshold:      g.LoseThreshold,
		MoneyLossInclusive: g.MoneyLossInclusive,
		RulerName:          g.RulerName,
		Title:              g.Title,
	}
	if err := ParseEnv(&raw); err != nil {
		return err
	}

	c.ListenAddr = raw.ListenAddr
	c.DBDriver = raw.DBDriver
	c.DBPath = raw.DBPath
	c.DBDSN = raw.DBDSN
	c.EventsDir = raw.EventsDir
	c.JournalDir = raw.JournalDir
	c.Seed = raw.Seed
	c.RateLimitPerMinute = raw.RateLimitPerMinute
	c.MaxSessions = raw.MaxSessions
	g.CourtCapacity = raw.CourtCapacity
	g.ActionsPerDay = raw.ActionsPerDay
	g.WaitLimit = raw.WaitLimit
	g.MinTax = raw.MinTax
	g.MaxTax = raw.MaxTax
	g.TaxRate = raw.TaxRate
	g.LoveLostAtMaxTax = raw.LoveLostAtMaxTax
	g.StartingMoney = raw.StartingMoney
	g.WinThreshold = raw.WinThreshold
	g.LoseThreshold = raw.LoseThreshold
	g.MoneyLossInclusive = raw.MoneyLossInclusive
	g.RulerName = raw.RulerName
	g.Title = raw.Title

	if raw.IgnoredPetitionJSON != "" {
		var cs []catalog.Consequence
		if err := json.Unmarshal([]byte(raw.IgnoredPetitionJSON), &cs); err != nil {
			return fmt.Errorf("parse COURT_GAME_IGNORED_PETITION: %w", err)
		}
		if cs == nil {
			cs = []catalog.Consequence{}
		}
		g.IgnoredPetition = cs
	}
	return nil
}
