package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStoreOption is a functional option for [MemStore].
type MemStoreOption func(*MemStore)

// WithClock overrides the time source. Default: time.Now.
func WithClock(now func() time.Time) MemStoreOption {
	return func(s *MemStore) {
		s.now = now
	}
}

// MemStore is an in-process [Store]. Data is lost on restart.
type MemStore struct {
	mu    sync.RWMutex
	items map[string]Item
	logs  []UsageLog
	now   func() time.Time
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore(opts ...MemStoreOption) *MemStore {
	s := &MemStore{
		items: make(map[string]Item),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ListItems implements Store.
func (s *MemStore) ListItems(_ context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b Item) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// FindExact implements Store.
func (s *MemStore) FindExact(_ context.Context, name string) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *Item
	for _, it := range s.items {
		if !strings.EqualFold(it.Name, name) {
			continue
		}
		// Map order is random; pick the smallest ID so repeated lookups agree.
		if found == nil || it.ID < found.ID {
			it := it
			found = &it
		}
	}
	return found, nil
}

// Get implements Store.
func (s *MemStore) Get(_ context.Context, id string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("catalog: get %q: %w", id, ErrNotFound)
	}
	return &it, nil
}

// SetStock implements Store.
func (s *MemStore) SetStock(_ context.Context, id string, stock int) error {
	if stock < 0 {
		return fmt.Errorf("catalog: set stock of %q to %d: %w", id, stock, ErrNegativeStock)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return fmt.Errorf("catalog: set stock of %q: %w", id, ErrNotFound)
	}
	it.CurrentStock = stock
	it.LastUpdated = s.now().UTC()
	s.items[id] = it
	return nil
}

// CreateItem implements Store.
func (s *MemStore) CreateItem(_ context.Context, item Item) (*Item, error) {
	if item.CurrentStock < 0 {
		return nil, fmt.Errorf("catalog: create %q: %w", item.Name, ErrNegativeStock)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.LastUpdated.IsZero() {
		item.LastUpdated = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return nil, fmt.Errorf("catalog: create %q: %w", item.ID, ErrDuplicateID)
	}
	s.items[item.ID] = item
	return &item, nil
}

// AppendUsageLog implements Store.
func (s *MemStore) AppendUsageLog(_ context.Context, entry UsageLog) (*UsageLog, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	return &entry, nil
}

// UsageLogs implements Store.
func (s *MemStore) UsageLogs(_ context.Context, itemID string) ([]UsageLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]UsageLog, 0, len(s.logs))
	for i := len(s.logs) - 1; i >= 0; i-- {
		if itemID == "" || s.logs[i].ItemID == itemID {
			out = append(out, s.logs[i])
		}
	}
	// Appends are already chronological; the stable sort only matters for
	// entries imported with explicit timestamps.
	slices.SortStableFunc(out, func(a, b UsageLog) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out, nil
}
