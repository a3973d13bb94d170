package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreCreateConflict(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	if err := s.Create(ctx, "req-1", Record{Status: StatusProcessing}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Create(ctx, "req-1", Record{Status: StatusProcessing}); !errors.Is(err, ErrExists) {
		t.Fatalf("second Create() error = %v, want ErrExists", err)
	}
}

func TestMemoryStoreDeleteThenCreate(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	if err := s.Create(ctx, "req-1", Record{Status: StatusFailed}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Delete(ctx, "req-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Create(ctx, "req-1", Record{Status: StatusProcessing}); err != nil {
		t.Fatalf("Create() after Delete() error = %v", err)
	}

	rec, err := s.Get(ctx, "req-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Status != StatusProcessing {
		t.Errorf("Status = %v, want %v", rec.Status, StatusProcessing)
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	current := time.Now()
	s.now = func() time.Time { return current }

	if err := s.Set(ctx, "req-1", Record{Status: StatusCompleted}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := s.Get(ctx, "req-1"); err != nil {
		t.Fatalf("Get() before expiry error = %v", err)
	}

	// A write refreshes the TTL clock
	current = current.Add(30 * time.Minute)
	if err := s.Set(ctx, "req-1", Record{Status: StatusCompleted}); err != nil {
		t.Fatalf("refresh Set() error = %v", err)
	}
	current = current.Add(45 * time.Minute)
	if _, err := s.Get(ctx, "req-1"); err != nil {
		t.Fatalf("Get() after refresh error = %v", err)
	}

	current = current.Add(time.Hour)
	if _, err := s.Get(ctx, "req-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after expiry error = %v, want ErrNotFound", err)
	}

	// An expired id can be created anew
	if err := s.Create(ctx, "req-1", Record{Status: StatusProcessing}); err != nil {
		t.Fatalf("Create() after expiry error = %v", err)
	}
}
