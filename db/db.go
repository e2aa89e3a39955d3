// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/pollroom/pollroom/cliparse"
)

// Connect opens and pings the configured database.
// Queries throughout the codebase use "?" placeholders and are passed
// through sqlx.Rebind, so both drivers run the same SQL.
func Connect(cfg cliparse.Config) (*sqlx.DB, error) {
	driver := "sqlite"
	if cfg.DatabaseType == "postgres" {
		driver = "postgres"
	}

	conn, err := sqlx.Connect(driver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	return conn, nil
}
