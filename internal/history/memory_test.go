package history

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func entry(n int) Entry {
	return Entry{ID: fmt.Sprintf("id-%d", n), FileName: fmt.Sprintf("file-%d.json", n), Status: StatusSucceeded}
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestMemoryStore_NewestFirst(t *testing.T) {
	store := NewMemoryStore(5)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := store.Record(ctx, entry(i)); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}

	want := []string{"id-3", "id-2", "id-1"}
	if fmt.Sprint(ids(got)) != fmt.Sprint(want) {
		t.Errorf("Recent() = %v, want %v", ids(got), want)
	}
}

func TestMemoryStore_Bounded(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		_ = store.Record(ctx, entry(i))
	}

	got, _ := store.Recent(ctx, 0)
	want := []string{"id-7", "id-6", "id-5"}
	if fmt.Sprint(ids(got)) != fmt.Sprint(want) {
		t.Errorf("Recent() = %v, want %v", ids(got), want)
	}
}

func TestMemoryStore_Limit(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		_ = store.Record(ctx, entry(i))
	}

	got, _ := store.Recent(ctx, 2)
	want := []string{"id-4", "id-3"}
	if fmt.Sprint(ids(got)) != fmt.Sprint(want) {
		t.Errorf("Recent(2) = %v, want %v", ids(got), want)
	}
}

func TestMemoryStore_Empty(t *testing.T) {
	got, err := NewMemoryStore(0).Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Recent() on empty store returned %d entries", len(got))
	}
}

func TestMemoryStore_StampsCreatedAt(t *testing.T) {
	store := NewMemoryStore(1)
	before := time.Now().UTC()
	_ = store.Record(context.Background(), entry(1))

	got, _ := store.Recent(context.Background(), 1)
	if got[0].CreatedAt.Before(before) {
		t.Errorf("CreatedAt = %v, want >= %v", got[0].CreatedAt, before)
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore(DefaultCapacity)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Record(ctx, entry(n))
			_, _ = store.Recent(ctx, 5)
		}(i)
	}
	wg.Wait()

	got, _ := store.Recent(ctx, 0)
	if len(got) != DefaultCapacity {
		t.Errorf("len(Recent()) = %d, want %d", len(got), DefaultCapacity)
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("")
	if err != nil || !id.Valid {
		t.Errorf("parseID(\"\") = %v, %v; want generated id", id, err)
	}
	if _, err := parseID("not-a-uuid"); err == nil {
		t.Error("parseID(\"not-a-uuid\") expected error")
	}
	if _, err := parseID("6ba7b810-9dad-11d1-80b4-00c04fd430c8"); err != nil {
		t.Errorf("parseID(valid) error = %v", err)
	}
}

func TestMemoryStore_Prune(t *testing.T) {
	store := NewMemoryStore(4)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 1; i <= 6; i++ {
		e := entry(i)
		e.CreatedAt = now.Add(time.Duration(i-10) * time.Hour)
		_ = store.Record(ctx, e)
	}

	// Ring holds 3..6, created at now-7h..now-4h.
	removed, err := store.Prune(ctx, now.Add(-5*time.Hour-time.Minute))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Prune() removed %d, want 2", removed)
	}

	got, _ := store.Recent(ctx, 0)
	want := []string{"id-6", "id-5"}
	if fmt.Sprint(ids(got)) != fmt.Sprint(want) {
		t.Errorf("Recent() after prune = %v, want %v", ids(got), want)
	}

	_ = store.Record(ctx, entry(7))
	got, _ = store.Recent(ctx, 0)
	want = []string{"id-7", "id-6", "id-5"}
	if fmt.Sprint(ids(got)) != fmt.Sprint(want) {
		t.Errorf("Recent() after new record = %v, want %v", ids(got), want)
	}
}
