package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/lib/pq"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/config"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/database"
)

type action string

const (
	actionUp     action = "up"
	actionDown   action = "down"
	actionStatus action = "status"
	actionList   action = "list"
)

func parseAction(s string) (action, error) {
	switch a := action(s); a {
	case actionUp, actionDown, actionStatus, actionList:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q (want up, down, status or list)", s)
	}
}

// schemaMigrator is the subset of database.Migrator the command drives.
type schemaMigrator interface {
	Up(steps int) error
	Down(steps int) error
	Version() (uint, bool, error)
}

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		actionFlag = flag.String("action", "up", "Migration action: up, down, status, list")
		steps      = flag.Int("steps", 0, "Number of migrations to run (0 = all)")
	)
	flag.Parse()

	act, err := parseAction(*actionFlag)
	if err != nil {
		slog.Error("invalid action", "error", err)
		os.Exit(2)
	}

	// Listing only reads the embedded files.
	if act == actionList {
		if err := listMigrations(os.Stdout); err != nil {
			slog.Error("failed to list migrations", "error", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if !cfg.Database.Enabled() {
		slog.Error("database.url is not configured")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	m, err := database.NewMigrator(db)
	if err != nil {
		slog.Error("failed to create migrator", "error", err)
		os.Exit(1)
	}

	if err := execute(m, act, *steps, os.Stdout); err != nil {
		slog.Error("migration failed", "action", act, "error", err)
		db.Close()
		os.Exit(1)
	}
}

func execute(m schemaMigrator, act action, steps int, w io.Writer) error {
	switch act {
	case actionUp:
		if err := m.Up(steps); err != nil {
			return err
		}
		slog.Info("migrations applied", "steps", steps)
	case actionDown:
		if err := m.Down(steps); err != nil {
			return err
		}
		slog.Info("migrations rolled back", "steps", steps)
	case actionStatus:
		// handled below
	default:
		return fmt.Errorf("action %q needs no database", act)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	fmt.Fprintf(w, "version: %d\ndirty: %t\n", version, dirty)
	return nil
}

func listMigrations(w io.Writer) error {
	names, err := database.Migrations()
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
	return nil
}
