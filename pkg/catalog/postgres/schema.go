// Package postgres provides a PostgreSQL-backed [catalog.Store].
//
// Items and usage logs live in two tables sharing one [pgxpool.Pool].
// [Migrate] creates them on startup and is safe to run repeatedly.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//	items, _ := store.ListItems(ctx)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlItems = `
CREATE TABLE IF NOT EXISTS inventory_items (
    id            TEXT         PRIMARY KEY,
    name          TEXT         NOT NULL,
    current_stock INTEGER      NOT NULL DEFAULT 0 CHECK (current_stock >= 0),
    unit          TEXT         NOT NULL DEFAULT 'units',
    min_stock     INTEGER      NOT NULL DEFAULT 0,
    max_stock     INTEGER      NOT NULL DEFAULT 1000000,
    category      TEXT         NOT NULL DEFAULT '',
    location      TEXT         NOT NULL DEFAULT '',
    description   TEXT         NOT NULL DEFAULT '',
    last_updated  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_inventory_items_lower_name
    ON inventory_items (lower(name));
`

const ddlUsageLogs = `
CREATE TABLE IF NOT EXISTS usage_logs (
    id         TEXT         PRIMARY KEY,
    item_id    TEXT         NOT NULL,
    quantity   INTEGER      NOT NULL,
    actor      TEXT         NOT NULL DEFAULT '',
    timestamp  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    note       TEXT         NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_usage_logs_item_timestamp
    ON usage_logs (item_id, timestamp DESC);
`

// Migrate creates the catalog tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlItems, ddlUsageLogs} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
