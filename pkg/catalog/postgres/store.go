package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/vocalstock/internal/catalog"
)

const uniqueViolation = "23505"

const itemColumns = `id, name, current_stock, unit, min_stock, max_stock, category, location, description, last_updated`

var _ catalog.Store = (*Store)(nil)

// Store is a PostgreSQL [catalog.Store]. Safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn, verifies the connection and runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Ping checks connectivity. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// ListItems implements catalog.Store.
func (s *Store) ListItems(ctx context.Context) ([]catalog.Item, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY lower(name), id`)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list items: %w", err)
	}
	return items, nil
}

// FindExact implements catalog.Store.
func (s *Store) FindExact(ctx context.Context, name string) (*catalog.Item, error) {
	// lower() follows the database collation; with a UTF-8 locale it folds
	// non-ASCII letters too. Under the "C" locale only ASCII is folded.
	const q = `SELECT ` + itemColumns + ` FROM inventory_items WHERE lower(name) = lower($1) ORDER BY id LIMIT 1`
	rows, err := s.pool.Query(ctx, q, name)
	if err != nil {
		return nil, fmt.Errorf("postgres store: find %q: %w", name, err)
	}
	it, err := pgx.CollectOneRow(rows, scanItem)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: find %q: %w", name, err)
	}
	return &it, nil
}

// Get implements catalog.Store.
func (s *Store) Get(ctx context.Context, id string) (*catalog.Item, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres store: get %q: %w", id, err)
	}
	it, err := pgx.CollectOneRow(rows, scanItem)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres store: get %q: %w", id, catalog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: get %q: %w", id, err)
	}
	return &it, nil
}

// SetStock implements catalog.Store.
func (s *Store) SetStock(ctx context.Context, id string, stock int) error {
	if stock < 0 {
		return fmt.Errorf("postgres store: set stock of %q: %w", id, catalog.ErrNegativeStock)
	}
	const q = `UPDATE inventory_items SET current_stock = $2, last_updated = now() WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, id, stock)
	if err != nil {
		return fmt.Errorf("postgres store: set stock of %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres store: set stock of %q: %w", id, catalog.ErrNotFound)
	}
	return nil
}

// CreateItem implements catalog.Store.
func (s *Store) CreateItem(ctx context.Context, item catalog.Item) (*catalog.Item, error) {
	if item.CurrentStock < 0 {
		return nil, fmt.Errorf("postgres store: create %q: %w", item.Name, catalog.ErrNegativeStock)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.LastUpdated.IsZero() {
		item.LastUpdated = time.Now().UTC()
	}

	const q = `
		INSERT INTO inventory_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.pool.Exec(ctx, q,
		item.ID,
		item.Name,
		item.CurrentStock,
		item.Unit,
		item.MinStock,
		item.MaxStock,
		item.Category,
		item.Location,
		item.Description,
		item.LastUpdated,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("postgres store: create %q: %w", item.ID, catalog.ErrDuplicateID)
		}
		return nil, fmt.Errorf("postgres store: create %q: %w", item.Name, err)
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
	const q = `
		INSERT INTO usage_logs (id, item_id, quantity, actor, timestamp, note)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.pool.Exec(ctx, q,
		entry.ID, entry.ItemID, entry.Quantity, entry.Actor, entry.Timestamp, entry.Note,
	); err != nil {
		return nil, fmt.Errorf("postgres store: append usage log: %w", err)
	}
	return &entry, nil
}

// UsageLogs implements catalog.Store.
func (s *Store) UsageLogs(ctx context.Context, itemID string) ([]catalog.UsageLog, error) {
	const q = `
		SELECT id, item_id, quantity, actor, timestamp, note
		FROM   usage_logs
		WHERE  $1 = '' OR item_id = $1
		ORDER  BY timestamp DESC, id`
	rows, err := s.pool.Query(ctx, q, itemID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: usage logs: %w", err)
	}
	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.UsageLog, error) {
		var l catalog.UsageLog
		err := row.Scan(&l.ID, &l.ItemID, &l.Quantity, &l.Actor, &l.Timestamp, &l.Note)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: usage logs: %w", err)
	}
	return logs, nil
}

func scanItem(row pgx.CollectableRow) (catalog.Item, error) {
	var it catalog.Item
	err := row.Scan(
		&it.ID,
		&it.Name,
		&it.CurrentStock,
		&it.Unit,
		&it.MinStock,
		&it.MaxStock,
		&it.Category,
		&it.Location,
		&it.Description,
		&it.LastUpdated,
	)
	return it, err
}
