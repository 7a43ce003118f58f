// Package database manages the SurrealDB connection used by the encounter
// store. It wraps connect/auth/namespace selection and exposes generic query
// helpers over the driver.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/questdeck/questdeck/internal/config"
	"github.com/surrealdb/surrealdb.go"
)

// Connect establishes a SurrealDB connection, signs in and selects the
// configured namespace/database.
func Connect(ctx context.Context, cfg config.Provider) (*surrealdb.DB, error) {
	dbURL := cfg.GetDBURL()

	db, err := surrealdb.FromEndpointURLString(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database at %s: %w", redactDBURL(dbURL), err)
	}

	if cfg.GetDBUser() != "" {
		auth := &surrealdb.Auth{
			Username: cfg.GetDBUser(),
			Password: cfg.GetDBPass(),
		}
		if _, err = db.SignIn(ctx, auth); err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("failed to sign in: %w", err)
		}
	}

	if err = db.Use(ctx, cfg.GetDBNs(), cfg.GetDBDb()); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/db: %w", err)
	}

	slog.Info("Database connection established",
		"db_url", redactDBURL(dbURL),
		"namespace", cfg.GetDBNs(),
		"database", cfg.GetDBDb())
	return db, nil
}

// Query executes a raw SurrealQL query with parameters and unmarshals the
// first statement's results into []T.
func Query[T any](ctx context.Context, db *surrealdb.DB, query string, params map[string]any) ([]T, error) {
	results, err := surrealdb.Query[[]T](ctx, db, query, params)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	if len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

// QueryOne executes a query expected to return at most one row. It returns
// nil, nil when nothing matches.
func QueryOne[T any](ctx context.Context, db *surrealdb.DB, query string, params map[string]any) (*T, error) {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT") && !strings.Contains(strings.ToUpper(query), " LIMIT ") {
		query += " LIMIT 1"
	}
	results, err := Query[T](ctx, db, query, params)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// Execute runs a statement whose rows we do not care about.
func Execute(ctx context.Context, db *surrealdb.DB, query string, params map[string]any) error {
	if _, err := surrealdb.Query[any](ctx, db, query, params); err != nil {
		return fmt.Errorf("query execution failed: %w", err)
	}
	return nil
}

// redactDBURL strips credentials before the URL reaches a log line.
func redactDBURL(dbURL string) string {
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}
	return parsed.Redacted()
}
