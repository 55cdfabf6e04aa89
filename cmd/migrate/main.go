// Package main applies schema migrations.
// Usage: migrate up
//        migrate down [steps]
//        migrate version
package main

import (
	"fmt"
	"os"
	"strconv"

	"buildledger/internal/config"
	"buildledger/internal/infrastructure/storage/postgres"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fail("load config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		fail("DATABASE_URL is required")
	}

	m, err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath)
	if err != nil {
		fail("%v", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			fmt.Printf("close migrator: %v\n", err)
		}
	}()

	switch os.Args[1] {
	case "up":
		changed, err := m.Up()
		if err != nil {
			fail("migrate up: %v", err)
		}
		report(m, changed)
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			if steps, err = strconv.Atoi(os.Args[2]); err != nil || steps <= 0 {
				fail("steps must be a positive integer, got %q", os.Args[2])
			}
		}
		changed, err := m.Down(steps)
		if err != nil {
			fail("migrate down: %v", err)
		}
		report(m, changed)
	case "version":
		report(m, false)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func report(m *postgres.Migrator, changed bool) {
	v, dirty, err := m.Version()
	if err != nil {
		fail("read version: %v", err)
	}
	if !changed && os.Args[1] != "version" {
		fmt.Println("no change")
	}
	fmt.Printf("version %d (dirty=%t)\n", v, dirty)
}

func fail(format string, args ...any) {
	fmt.Printf("Error: "+format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`buildledger schema migrations

Usage:
  migrate <command> [options]

Commands:
  up             Apply all pending migrations
  down [steps]   Roll back steps migrations (default 1)
  version        Print the applied version
  help           Show this help

Environment Variables:
  DATABASE_URL      Connection string (required)
  MIGRATIONS_PATH   Directory with *.up.sql / *.down.sql (default migrations)`)
}
