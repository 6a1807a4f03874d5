// Package mock provides a test double for the catalog.Store interface.
//
// Store returns the configured results and records every mutating call so
// tests can assert on exactly which writes the executor performed.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrWong99/vocalstock/internal/catalog"
)

// SetStockCall records a single invocation of SetStock.
type SetStockCall struct {
	ID    string
	Stock int
}

// Store is a mock implementation of catalog.Store.
type Store struct {
	mu sync.Mutex

	// Items is returned by ListItems and searched by FindExact and Get.
	Items []catalog.Item

	// Logs is returned by UsageLogs (unfiltered).
	Logs []catalog.UsageLog

	// Per-method errors. A non-nil value is returned instead of a result.
	ListErr      error
	FindExactErr error
	GetErr       error
	SetStockErr  error
	CreateErr    error
	AppendErr    error
	LogsErr      error

	SetStockCalls []SetStockCall
	CreateCalls   []catalog.Item
	AppendCalls   []catalog.UsageLog
}

var _ catalog.Store = (*Store)(nil)

// ListItems returns a copy of Items.
func (s *Store) ListItems(_ context.Context) ([]catalog.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]catalog.Item, len(s.Items))
	copy(out, s.Items)
	return out, nil
}

// FindExact returns the first item in Items whose name matches exactly.
func (s *Store) FindExact(_ context.Context, name string) (*catalog.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindExactErr != nil {
		return nil, s.FindExactErr
	}
	for _, it := range s.Items {
		if it.Name == name {
			return &it, nil
		}
	}
	return nil, nil
}

// Get returns the item with the given ID from Items.
func (s *Store) Get(_ context.Context, id string) (*catalog.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	for _, it := range s.Items {
		if it.ID == id {
			return &it, nil
		}
	}
	return nil, fmt.Errorf("mock: get %q: %w", id, catalog.ErrNotFound)
}

// SetStock records the call and returns SetStockErr.
func (s *Store) SetStock(_ context.Context, id string, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SetStockCalls = append(s.SetStockCalls, SetStockCall{ID: id, Stock: stock})
	return s.SetStockErr
}

// CreateItem records the call and echoes item back with ID "mock-id" when
// none was given.
func (s *Store) CreateItem(_ context.Context, item catalog.Item) (*catalog.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateCalls = append(s.CreateCalls, item)
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	if item.ID == "" {
		item.ID = "mock-id"
	}
	return &item, nil
}

// AppendUsageLog records the call and echoes entry back.
func (s *Store) AppendUsageLog(_ context.Context, entry catalog.UsageLog) (*catalog.UsageLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AppendCalls = append(s.AppendCalls, entry)
	if s.AppendErr != nil {
		return nil, s.AppendErr
	}
	return &entry, nil
}

// UsageLogs returns a copy of Logs.
func (s *Store) UsageLogs(_ context.Context, _ string) ([]catalog.UsageLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LogsErr != nil {
		return nil, s.LogsErr
	}
	out := make([]catalog.UsageLog, len(s.Logs))
	copy(out, s.Logs)
	return out, nil
}

// Mutations returns the number of recorded SetStock, CreateItem and
// AppendUsageLog calls.
func (s *Store) Mutations() (setStock, create, appendLog int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SetStockCalls), len(s.CreateCalls), len(s.AppendCalls)
}
