// Package catalog owns the inventory data model and the lookups that map a
// spoken item name onto a catalog entry.
//
// The package is organised in three layers:
//
//   - [Store]: the persistence boundary. Implementations live in
//     pkg/catalog/postgres, pkg/catalog/sqlite and [MemStore].
//   - [Aliases]: the bilingual alias table that turns "mănuși" or "gloves"
//     into the canonical label "Disposable Gloves".
//   - [Resolver]: exact-then-fuzzy matching of a label against the live
//     catalog, plus [Suggester] for "did you mean" hints.
//
// Every implementation must be safe for concurrent use.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Errors
// ─────────────────────────────────────────────────────────────────────────────

var (
	// ErrNotFound is returned when an item ID does not exist.
	ErrNotFound = errors.New("catalog: item not found")

	// ErrDuplicateID is returned by CreateItem when the ID is already taken.
	ErrDuplicateID = errors.New("catalog: duplicate item id")

	// ErrNegativeStock is returned when a write would leave stock below zero.
	ErrNegativeStock = errors.New("catalog: stock must not be negative")
)

// Defaults applied to items created from a voice command.
const (
	DefaultUnit     = "units"
	DefaultMaxStock = 1_000_000
)

// Status is the derived stock level of an item.
type Status string

const (
	StatusOutOfStock Status = "out-of-stock"
	StatusLowStock   Status = "low-stock"
	StatusInStock    Status = "in-stock"
)

// ─────────────────────────────────────────────────────────────────────────────
// Types
// ─────────────────────────────────────────────────────────────────────────────

// Item is one catalog entry. CurrentStock is never negative.
type Item struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CurrentStock int       `json:"currentStock"`
	Unit         string    `json:"unit"`
	MinStock     int       `json:"minStock"`
	MaxStock     int       `json:"maxStock"`
	Category     string    `json:"category,omitempty"`
	Location     string    `json:"location,omitempty"`
	Description  string    `json:"description,omitempty"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// Status derives the stock level from CurrentStock and MinStock.
func (it Item) Status() Status {
	switch {
	case it.CurrentStock <= 0:
		return StatusOutOfStock
	case it.CurrentStock <= it.MinStock:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// UsageLog is an append-only audit record of stock consumption.
type UsageLog struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	Quantity  int       `json:"quantity"`
	Actor     string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"notes,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Store
// ─────────────────────────────────────────────────────────────────────────────

// Store is the catalog persistence boundary.
//
// Stock writes are plain sets; the store offers no compare-and-swap. Callers
// that read, check and then write race with each other (last write wins).
type Store interface {
	// ListItems returns every item ordered by name.
	ListItems(ctx context.Context) ([]Item, error)

	// FindExact returns the item whose name equals name case-insensitively,
	// or (nil, nil) when there is none.
	FindExact(ctx context.Context, name string) (*Item, error)

	// Get returns the item with the given ID or [ErrNotFound].
	Get(ctx context.Context, id string) (*Item, error)

	// SetStock sets CurrentStock to exactly stock and bumps LastUpdated.
	// Returns [ErrNotFound] for unknown IDs and [ErrNegativeStock] for
	// stock < 0.
	SetStock(ctx context.Context, id string, stock int) error

	// CreateItem inserts item. An empty ID is replaced by a fresh UUID.
	// Returns the stored item, or [ErrDuplicateID].
	CreateItem(ctx context.Context, item Item) (*Item, error)

	// AppendUsageLog stores entry. Empty ID and zero Timestamp are filled in.
	AppendUsageLog(ctx context.Context, entry UsageLog) (*UsageLog, error)

	// UsageLogs returns logs newest first. An empty itemID returns all logs.
	UsageLogs(ctx context.Context, itemID string) ([]UsageLog, error)
}
