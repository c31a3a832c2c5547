// Package main is the entry point for the court engine server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/rogersf/court-engine/content"
	"github.com/rogersf/court-engine/internal/catalog"
	"github.com/rogersf/court-engine/internal/config"
	"github.com/rogersf/court-engine/internal/court"
	"github.com/rogersf/court-engine/internal/guard"
	"github.com/rogersf/court-engine/internal/ipc"
	"github.com/rogersf/court-engine/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// configNames are tried in order when no config path is given.
var configNames = []string{"config.json", "config.yaml", "config.yml"}

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to configuration JSON or YAML file")
	flag.Parse()

	if *showVersion {
		fmt.Printf("court %s (commit=%s, built=%s)\n", version, commit, date)
		os.Exit(0)
	}

	// Resolve config path: --config flag > COURT_CONFIG env > auto-discover.
	// With no file at all the defaults and COURT_* variables apply.
	path := *configPath
	if path == "" {
		path = os.Getenv("COURT_CONFIG")
	}
	if path == "" {
		path = discoverConfig()
	}

	cfg, err := config.Load(path)
	if err != nil {
		fatal(fmt.Sprintf("load config: %v", err))
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	cat, err := loadCatalog(cfg.EventsDir)
	if err != nil {
		fatal(fmt.Sprintf("load events: %v", err))
	}

	dsn := cfg.DBPath
	if cfg.DBDriver == config.DriverPostgres {
		dsn = cfg.DBDSN
	}
	db, err := store.Open(store.Dialect(cfg.DBDriver), dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	g := guard.NewGuard(guard.GuardConfig{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxSessions:        cfg.MaxSessions,
	})

	manager, err := court.NewManager(court.Options{
		Catalog:    cat,
		Rules:      cfg.Game,
		Seed:       cfg.Seed,
		DB:         db,
		Guard:      g,
		JournalDir: cfg.JournalDir,
		Logger:     logger,
	})
	if err != nil {
		fatal(fmt.Sprintf("create session manager: %v", err))
	}

	handler := &ipc.Handler{
		Manager: manager,
		Logger:  logger,
	}
	srv := ipc.NewServer(handler, cfg.ListenAddr)

	// Graceful shutdown on interrupt.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Println("shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Printf("server shutdown: %v", err)
		}
		manager.Shutdown(ctx)
	}()

	logger.Printf("court engine listening on %s (%d events, db=%s)", ipc.FormatListenURL(cfg.ListenAddr), cat.Len(), cfg.DBDriver)

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		fatal(fmt.Sprintf("server error: %v", err))
	}
}

// loadCatalog reads events from dir, or the embedded content when dir is empty.
func loadCatalog(dir string) (*catalog.Catalog, error) {
	if dir == "" {
		return content.Catalog()
	}
	return catalog.LoadDir(dir)
}

// discoverConfig looks for a config file next to the executable, then in the cwd.
func discoverConfig() string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	dirs = append(dirs, ".")

	for _, dir := range dirs {
		for _, name := range configNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

// fatal prints an error and, on Windows, waits for a keypress so the user can
// read the message when the exe is launched by double-click.
func fatal(msg string) {
	fmt.Fprintf(os.Stderr, "ERROR: %s\n", msg)
	if runtime.GOOS == "windows" {
		fmt.Fprintln(os.Stderr, "\nPress Enter to exit...")
		bufio.NewReader(os.Stdin).ReadBytes('\n')
	}
	os.Exit(1)
}
