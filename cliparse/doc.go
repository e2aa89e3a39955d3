// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 8080)
  - DatabaseURL: database connection string (required)
  - DatabaseType: "sqlite" (default) or "postgres"
  - AllowDuplicateSetNames: tolerate duplicate (name, owner) question
    sets instead of rejecting the second create (default: false)

# CLI Flags

	-p   Server port
	-d   Database URL
	-t   Database type
	-allow-duplicate-set-names   Duplicate set name toggle

# Environment Variables

Flags fall back to environment variables:

	PORT                      → -p
	DATABASE_URL              → -d
	DATABASE_TYPE             → -t
	ALLOW_DUPLICATE_SET_NAMES → -allow-duplicate-set-names

CLI flags take precedence over environment variables.

# Example

	// In main.go
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	dbConn, err := db.Connect(cfg)
	// ...
	mux := router.NewRouter(dbConn, cfg)
*/
package cliparse
