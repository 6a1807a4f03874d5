package resilience

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func newGroup() *FallbackGroup[string] {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	fg.AddFallback("secondary", "secondary")
	return fg
}

func TestFallbackGroup_PrimarySuccess(t *testing.T) {
	t.Parallel()

	var called []string
	err := newGroup().Execute(func(v string) error {
		called = append(called, v)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(called, []string{"primary"}) {
		t.Fatalf("called = %v, want [primary]", called)
	}
}

func TestFallbackGroup_Failover(t *testing.T) {
	t.Parallel()

	got, err := ExecuteWithResult(newGroup(), func(v string) (string, error) {
		if v == "primary" {
			return "", errTest
		}
		return "served by " + v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "served by secondary" {
		t.Fatalf("got %q", got)
	}
}

func TestFallbackGroup_AllFailWrapsLastError(t *testing.T) {
	t.Parallel()

	lastErr := errors.New("secondary down")
	err := newGroup().Execute(func(v string) error {
		if v == "secondary" {
			return lastErr
		}
		return errTest
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, lastErr) {
		t.Fatalf("err = %v, want last provider error in chain", err)
	}
}

func TestFallbackGroup_OpenPrimaryIsSkipped(t *testing.T) {
	t.Parallel()

	fg := newGroup()
	for range 2 {
		_ = fg.Execute(func(v string) error {
			if v == "primary" {
				return errTest
			}
			return nil
		})
	}

	var called []string
	if err := fg.Execute(func(v string) error {
		called = append(called, v)
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(called, []string{"secondary"}) {
		t.Fatalf("called = %v, want only secondary while primary is open", called)
	}
}

func TestFallbackGroup_NamesAndPrimary(t *testing.T) {
	t.Parallel()

	fg := newGroup()
	if !slices.Equal(fg.Names(), []string{"primary", "secondary"}) {
		t.Errorf("Names = %v", fg.Names())
	}
	if fg.Primary() != "primary" {
		t.Errorf("Primary = %q", fg.Primary())
	}
}
