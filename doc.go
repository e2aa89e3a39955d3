// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Pollroom API server.

Pollroom is a live-voting backend: users build question sets (up to ten
questions, each with up to four choices), open rooms that present one
question set, and cast one vote per choice while they are a member of
the room.

# Starting the Server

The server reads environment variables (optionally from a .env file) or
CLI flags:

	DATABASE_URL=postgres://... go run main.go

Or with flags:

	go run main.go -p 8080 -t sqlite -d pollroom.db

# Configuration

Settings:

  - DATABASE_URL (-d): database connection string
  - DATABASE_TYPE (-t): "sqlite" (default) or "postgres"
  - PORT (-p): server port (default: 8080)
  - ALLOW_DUPLICATE_SET_NAMES (-allow-duplicate-set-names): tolerate
    two question sets with the same name and owner (default: reject)

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (users, question sets, questions,
    choices, rooms)
  - router: route definitions using Go 1.22+ routing
  - middleware: auth resolution, CORS, logging, JSON helpers, request
    validation
  - rules: pure admission rules (quotas, ownership, membership caps)
  - models: domain and request/response types
  - auth: token generation and password hashing
  - db: connection and schema creation
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
