// Package sqlite provides an embedded [catalog.Store] on top of the pure-Go
// modernc.org/sqlite driver, for single-node deployments without a database
// server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/MrWong99/vocalstock/internal/catalog"
)

const schema = `
CREATE TABLE IF NOT EXISTS inventory_items (
    id            TEXT     PRIMARY KEY,
    name          TEXT     NOT NULL,
    current_stock INTEGER  NOT NULL DEFAULT 0 CHECK (current_stock >= 0),
    unit          TEXT     NOT NULL DEFAULT 'units',
    min_stock     INTEGER  NOT NULL DEFAULT 0,
    max_stock     INTEGER  NOT NULL DEFAULT 1000000,
    category      TEXT     NOT NULL DEFAULT '',
    location      TEXT     NOT NULL DEFAULT '',
    description   TEXT     NOT NULL DEFAULT '',
    last_updated  INTEGER  NOT NULL,
    name_key      TEXT     NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS usage_logs (
    id        TEXT     PRIMARY KEY,
    item_id   TEXT     NOT NULL,
    quantity  INTEGER  NOT NULL,
    actor     TEXT     NOT NULL DEFAULT '',
    timestamp INTEGER  NOT NULL,
    note      TEXT     NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_usage_logs_item_timestamp ON usage_logs (item_id, timestamp DESC);
`

// name_key holds the Unicode case-folded name. SQLite's lower() folds ASCII
// only, so "MĂNUȘI" would not match "mănuși" through it.
const nameKeyIndex = `CREATE INDEX IF NOT EXISTS idx_inventory_items_name_key ON inventory_items (name_key)`

const itemColumns = `id, name, current_stock, unit, min_stock, max_stock, category, location, description, last_updated`

var _ catalog.Store = (*Store)(nil)

// Store is a SQLite [catalog.Store]. Timestamps are stored as Unix
// nanoseconds. A single connection serialises access.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// path may be ":memory:".
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// migrate applies the schema, adds name_key to databases created before it
// existed and backfills it.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	var has int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('inventory_items') WHERE name = 'name_key'`).Scan(&has); err != nil {
		return err
	}
	if has == 0 {
		if _, err := db.ExecContext(ctx,
			`ALTER TABLE inventory_items ADD COLUMN name_key TEXT NOT NULL DEFAULT ''`); err != nil {
			return err
		}
	}
	if _, err := db.ExecContext(ctx, nameKeyIndex); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, name FROM inventory_items WHERE name_key = ''`)
	if err != nil {
		return err
	}
	var pending [][2]string
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return err
		}
		pending = append(pending, [2]string{id, name})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, p := range pending {
		if _, err := db.ExecContext(ctx,
			`UPDATE inventory_items SET name_key = ? WHERE id = ?`, nameKey(p[1]), p[0]); err != nil {
			return err
		}
	}
	return nil
}

func nameKey(name string) string {
	return cases.Fold().String(name)
}

// Ping checks the database handle. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListItems implements catalog.Store.
func (s *Store) ListItems(ctx context.Context) ([]catalog.Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY name_key, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list items: %w", err)
	}
	defer rows.Close()

	var items []catalog.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: list items: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite store: list items: %w", err)
	}
	return items, nil
}

// FindExact implements catalog.Store.
func (s *Store) FindExact(ctx context.Context, name string) (*catalog.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE name_key = ? ORDER BY id LIMIT 1`, nameKey(name))
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite store: find %q: %w", name, err)
	}
	return &it, nil
}

// Get implements catalog.Store.
func (s *Store) Get(ctx context.Context, id string) (*catalog.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite store: get %q: %w", id, catalog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite store: get %q: %w", id, err)
	}
	return &it, nil
}

// SetStock implements catalog.Store.
func (s *Store) SetStock(ctx context.Context, id string, stock int) error {
	if stock < 0 {
		return fmt.Errorf("sqlite store: set stock of %q: %w", id, catalog.ErrNegativeStock)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE inventory_items SET current_stock = ?, last_updated = ? WHERE id = ?`,
		stock, time.Now().UTC().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("sqlite store: set stock of %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite store: set stock of %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("sqlite store: set stock of %q: %w", id, catalog.ErrNotFound)
	}
	return nil
}

// CreateItem implements catalog.Store.
func (s *Store) CreateItem(ctx context.Context, item catalog.Item) (*catalog.Item, error) {
	if item.CurrentStock < 0 {
		return nil, fmt.Errorf("sqlite store: create %q: %w", item.Name, catalog.ErrNegativeStock)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.LastUpdated.IsZero() {
		item.LastUpdated = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inventory_items (`+itemColumns+`, name_key) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.CurrentStock, item.Unit, item.MinStock, item.MaxStock,
		item.Category, item.Location, item.Description, item.LastUpdated.UnixNano(), nameKey(item.Name),
	)
	if err != nil {
		if isConstraint(err) {
			return nil, fmt.Errorf("sqlite store: create %q: %w", item.ID, catalog.ErrDuplicateID)
		}
		return nil, fmt.Errorf("sqlite store: create %q: %w", item.Name, err)
	}
	return &item, nil
}

// AppendUsageLog implements catalog.Store.
func (s *Store) AppendUsageLog(ctx context.Context, entry catalog.UsageLog) (*catalog.UsageLog, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_logs (id, item_id, quantity, actor, timestamp, note) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ItemID, entry.Quantity, entry.Actor, entry.Timestamp.UnixNano(), entry.Note,
	); err != nil {
		return nil, fmt.Errorf("sqlite store: append usage log: %w", err)
	}
	return &entry, nil
}

// UsageLogs implements catalog.Store.
func (s *Store) UsageLogs(ctx context.Context, itemID string) ([]catalog.UsageLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, quantity, actor, timestamp, note
		FROM   usage_logs
		WHERE  ?1 = '' OR item_id = ?1
		ORDER  BY timestamp DESC, id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: usage logs: %w", err)
	}
	defer rows.Close()

	var logs []catalog.UsageLog
	for rows.Next() {
		var (
			l  catalog.UsageLog
			ts int64
		)
		if err := rows.Scan(&l.ID, &l.ItemID, &l.Quantity, &l.Actor, &ts, &l.Note); err != nil {
			return nil, fmt.Errorf("sqlite store: usage logs: %w", err)
		}
		l.Timestamp = time.Unix(0, ts).UTC()
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite store: usage logs: %w", err)
	}
	return logs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (catalog.Item, error) {
	var (
		it catalog.Item
		ts int64
	)
	err := row.Scan(
		&it.ID, &it.Name, &it.CurrentStock, &it.Unit, &it.MinStock, &it.MaxStock,
		&it.Category, &it.Location, &it.Description, &ts,
	)
	if err != nil {
		return catalog.Item{}, err
	}
	it.LastUpdated = time.Unix(0, ts).UTC()
	return it, nil
}

func isConstraint(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
