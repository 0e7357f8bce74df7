package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neighborly/go-neighborhood-api/internal/domain/listing"
)

func TestInMemoryListingRepoLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryListingRepo()

	l := &listing.Listing{
		ID:        "l1",
		CreatorID: "alice",
		Title:     "Ladder",
		Type:      listing.TypeLend,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(ctx, "l1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Title = "Step Ladder"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	// The repo hands out copies; mutating a result must not leak back.
	got.Title = "Mutated"
	fresh, _ := repo.GetByID(ctx, "l1")
	if fresh.Title != "Step Ladder" {
		t.Fatalf("aliasing detected, got %q", fresh.Title)
	}

	if err := repo.SoftDelete(ctx, "l1", time.Now().UTC()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, "l1"); !errors.Is(err, ErrListingNotFound) {
		t.Fatalf("soft-deleted listing should be hidden, got %v", err)
	}
	if err := repo.Update(ctx, l); !errors.Is(err, ErrListingNotFound) {
		t.Fatalf("update of deleted listing should fail, got %v", err)
	}
}

func TestInMemoryListingRepoOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryListingRepo()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []*listing.Listing{
		{ID: "l1", CreatorID: "alice", Title: "Old", CreatedAt: base},
		{ID: "l2", CreatorID: "alice", Title: "New", CreatedAt: base.Add(time.Hour)},
		{ID: "l3", CreatorID: "alice", Title: "Tie", CreatedAt: base},
	}
	for _, l := range items {
		if err := repo.Create(ctx, l); err != nil {
			t.Fatalf("create %s: %v", l.ID, err)
		}
	}

	got, err := repo.ListByCreator(ctx, "alice")
	if err != nil {
		t.Fatalf("list by creator: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	// Newest first, ID breaks the tie.
	if got[0].ID != "l2" || got[1].ID != "l1" || got[2].ID != "l3" {
		t.Fatalf("unexpected order %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}

	byIDs, err := repo.ListByIDs(ctx, []string{"l3", "l2", "missing"})
	if err != nil {
		t.Fatalf("list by ids: %v", err)
	}
	if len(byIDs) != 2 || byIDs[0].ID != "l2" {
		t.Fatalf("unexpected result %+v", byIDs)
	}
}
