package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rogersf/court-engine/internal/domain"
)

// validJSON returns a minimal valid configuration JSON string.
func validJSON() string {
	return `{
		"db_path": "/tmp/test.db",
		"seed": 42,
		"game": {"court_capacity": 4, "tax_rate": 10}
	}`
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func requireConfigInvalid(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	gameErr, ok := err.(*domain.GameError)
	if !ok {
		t.Fatalf("expected GameError, got %T", err)
	}
	if gameErr.Code != domain.ErrConfigInvalid.Code {
		t.Errorf("Code = %d, want %d", gameErr.Code, domain.ErrConfigInvalid.Code)
	}
}

func TestLoad_Valid(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", validJSON())

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want /tmp/test.db", cfg.DBPath)
	}
	if cfg.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Seed)
	}
	if cfg.Game.CourtCapacity != 4 {
		t.Errorf("CourtCapacity = %d, want 4", cfg.Game.CourtCapacity)
	}
	if cfg.Game.TaxRate != 10 {
		t.Errorf("TaxRate = %f, want 10", cfg.Game.TaxRate)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Game.ActionsPerDay != 3 || cfg.Game.MaxTax != 30 {
		t.Errorf("ActionsPerDay %d MaxTax %f, want 3 and 30", cfg.Game.ActionsPerDay, cfg.Game.MaxTax)
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
db_driver: sqlite
db_path: court.db
game:
  wait_limit: 1
  money_loss_inclusive: true
  ruler_name: Aldric
  ignored_petition:
    - field: respect
      minChange: -4
      maxChange: -4
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game.WaitLimit != 1 || !cfg.Game.MoneyLossInclusive || cfg.Game.RulerName != "Aldric" {
		t.Errorf("game = %+v", cfg.Game)
	}
	if len(cfg.Game.IgnoredPetition) != 1 || cfg.Game.IgnoredPetition[0].MinChange != -4 {
		t.Errorf("IgnoredPetition = %+v, want one respect -4", cfg.Game.IgnoredPetition)
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "court.db" || cfg.DBDriver != DriverSQLite {
		t.Errorf("db = %s %q, want sqlite court.db", cfg.DBDriver, cfg.DBPath)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", `{not valid json}`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", `{"budget_cap_usd": 10}`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", `{"db_driver": "postgres"}`)

	_, err := Load(path)
	requireConfigInvalid(t, err)
}

func TestLoad_UnknownDriver(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", `{"db_driver": "mysql"}`)

	_, err := Load(path)
	requireConfigInvalid(t, err)
}

func TestLoad_InvalidGameRules(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", `{"game": {"tax_rate": 50, "actions_per_day": -1}}`)

	_, err := Load(path)
	requireConfigInvalid(t, err)
}

func TestLoad_MissingEventsDir(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", `{"events_dir": "/nonexistent/events"}`)

	_, err := Load(path)
	requireConfigInvalid(t, err)
}

func TestLoad_DefaultsApplied(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", validJSON())

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":9810" {
		t.Errorf("ListenAddr = %q, want :9810", cfg.ListenAddr)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Errorf("RateLimitPerMinute = %d, want 120", cfg.RateLimitPerMinute)
	}
	if cfg.MaxSessions != 64 {
		t.Errorf("MaxSessions = %d, want 64", cfg.MaxSessions)
	}
	if cfg.Game.WinThreshold != 100 || cfg.Game.LoseThreshold != -100 {
		t.Errorf("thresholds = %f/%f, want 100/-100", cfg.Game.WinThreshold, cfg.Game.LoseThreshold)
	}
	if len(cfg.Game.IgnoredPetition) != 2 {
		t.Errorf("IgnoredPetition = %+v, want the two defaults", cfg.Game.IgnoredPetition)
	}
}

func TestLoad_EmptyIgnoredPetitionKept(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", `{"game": {"ignored_petition": []}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Game.IgnoredPetition) != 0 {
		t.Errorf("IgnoredPetition = %+v, want none", cfg.Game.IgnoredPetition)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", validJSON())

	t.Setenv("COURT_LISTEN_ADDR", ":7000")
	t.Setenv("COURT_SEED", "7")
	t.Setenv("COURT_GAME_COURT_CAPACITY", "8")
	t.Setenv("COURT_GAME_MONEY_LOSS_INCLUSIVE", "true")
	t.Setenv("COURT_GAME_IGNORED_PETITION", `[{"field":"love","minChange":-1,"maxChange":-1}]`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":7000" {
		t.Errorf("ListenAddr = %q, want :7000", cfg.ListenAddr)
	}
	if cfg.Seed != 7 {
		t.Errorf("Seed = %d, want 7", cfg.Seed)
	}
	if cfg.Game.CourtCapacity != 8 {
		t.Errorf("CourtCapacity = %d, want 8", cfg.Game.CourtCapacity)
	}
	if !cfg.Game.MoneyLossInclusive {
		t.Error("MoneyLossInclusive = false, want true")
	}
	if len(cfg.Game.IgnoredPetition) != 1 || cfg.Game.IgnoredPetition[0].Field != "love" {
		t.Errorf("IgnoredPetition = %+v", cfg.Game.IgnoredPetition)
	}
	// Untouched by env.
	if cfg.Game.TaxRate != 10 {
		t.Errorf("TaxRate = %f, want 10", cfg.Game.TaxRate)
	}
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("COURT_MAX_SESSIONS", "many")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-numeric env value, got nil")
	}
	var gameErr *domain.GameError
	if _, err := Load(""); errors.As(err, &gameErr) {
		t.Errorf("env parse error should not be a config validation error: %v", err)
	}
}
