package watchlist

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	added, err := s.Add(ctx, " aapl ")
	if err != nil || !added {
		t.Fatalf("Add(aapl) = %v, %v", added, err)
	}
	if added, _ := s.Add(ctx, "AAPL"); added {
		t.Error("re-adding a symbol should report false")
	}
	if _, err := s.Add(ctx, "  "); !errors.Is(err, ErrInvalidSymbol) {
		t.Errorf("expected ErrInvalidSymbol, got %v", err)
	}
	s.Add(ctx, "msft")

	got, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, ",") != "SEED1,SEED2,AAPL,MSFT" {
		t.Errorf("snapshot = %v", got)
	}

	removed, err := s.Remove(ctx, "seed1")
	if err != nil || !removed {
		t.Fatalf("Remove(seed1) = %v, %v", removed, err)
	}
	if removed, _ := s.Remove(ctx, "seed1"); removed {
		t.Error("removing a missing symbol should report false")
	}
	got, _ = s.Snapshot(ctx)
	if strings.Join(got, ",") != "SEED2,AAPL,MSFT" {
		t.Errorf("snapshot after remove = %v", got)
	}
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore([]string{"seed1", "SEED2", "seed1", ""}))
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.db")
	s, err := NewSQLiteStore(context.Background(), path, []string{"seed1", "seed2"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	storeContract(t, s)
	s.Close()

	// Reopening keeps the user's edits instead of re-seeding.
	s, err = NewSQLiteStore(context.Background(), path, []string{"seed1", "seed2"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, _ := s.Snapshot(context.Background())
	if strings.Join(got, ",") != "SEED2,AAPL,MSFT" {
		t.Errorf("snapshot after reopen = %v", got)
	}
}

func TestMemoryStore_SnapshotIsACopy(t *testing.T) {
	s := NewMemoryStore([]string{"A", "B"})
	snap, _ := s.Snapshot(context.Background())
	snap[0] = "Z"
	again, _ := s.Snapshot(context.Background())
	if again[0] != "A" {
		t.Error("snapshot must not alias internal state")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Add(ctx, string(rune('A'+i%26)))
		}(i)
		go func() {
			defer wg.Done()
			s.Snapshot(ctx)
		}()
	}
	wg.Wait()
	got, _ := s.Snapshot(ctx)
	if len(got) != 26 {
		t.Errorf("expected 26 distinct symbols, got %d", len(got))
	}
}
