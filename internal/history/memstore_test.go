package history

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemStore_AppendAndRecent(t *testing.T) {
	t.Parallel()

	s := NewMemStore(10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := s.Append(ctx, Utterance{
			ID:        fmt.Sprintf("u-%d", i),
			Text:      fmt.Sprintf("utterance %d", i),
			Timestamp: time.Now(),
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Newest first.
	if got[0].ID != "u-2" || got[1].ID != "u-1" {
		t.Errorf("order = [%s, %s], want [u-2, u-1]", got[0].ID, got[1].ID)
	}
}

func TestMemStore_RecentAll(t *testing.T) {
	t.Parallel()

	s := NewMemStore(10)
	ctx := context.Background()
	_ = s.Append(ctx, Utterance{ID: "a"})
	_ = s.Append(ctx, Utterance{ID: "b"})

	got, err := s.Recent(ctx, 100)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestMemStore_CapacityDropsOldest(t *testing.T) {
	t.Parallel()

	s := NewMemStore(2)
	ctx := context.Background()
	_ = s.Append(ctx, Utterance{ID: "a"})
	_ = s.Append(ctx, Utterance{ID: "b"})
	_ = s.Append(ctx, Utterance{ID: "c"})

	got, _ := s.Recent(ctx, 10)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("order = [%s, %s], want [c, b]", got[0].ID, got[1].ID)
	}
}

func TestMemStore_UserTerms(t *testing.T) {
	t.Parallel()

	s := NewMemStore(0)
	ctx := context.Background()

	terms, err := s.UserTerms(ctx)
	if err != nil {
		t.Fatalf("UserTerms: %v", err)
	}
	if len(terms) != 0 {
		t.Errorf("initial terms = %v, want empty", terms)
	}

	want := []string{"kubernetes", "pgvector"}
	if err := s.SaveUserTerms(ctx, want); err != nil {
		t.Fatalf("SaveUserTerms: %v", err)
	}

	got, err := s.UserTerms(ctx)
	if err != nil {
		t.Fatalf("UserTerms: %v", err)
	}
	if len(got) != 2 || got[0] != "kubernetes" || got[1] != "pgvector" {
		t.Errorf("terms = %v, want %v", got, want)
	}

	// Returned slice is a copy.
	got[0] = "mutated"
	again, _ := s.UserTerms(ctx)
	if again[0] != "kubernetes" {
		t.Error("UserTerms returned a shared slice")
	}
}
