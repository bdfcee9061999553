package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/config"
)

func Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", config.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(config.DatabaseMaxConns())
	db.SetMaxIdleConns(config.DatabaseMaxConns() / 2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// EnsureSchema creates missing tables and indexes. It never alters existing
// ones.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range AllTables() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
