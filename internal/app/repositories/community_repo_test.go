package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neighborly/go-neighborhood-api/internal/domain/community"
)

func TestInMemoryCommunityRepoLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryCommunityRepo()

	c := &community.Community{
		ID:          "c1",
		OwnerID:     "alice",
		Name:        "Elm Street",
		InviteToken: "tok-1",
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(ctx, "c1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Name != "Elm Street" {
		t.Fatalf("unexpected name %q", got.Name)
	}

	byToken, err := repo.GetByInviteToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if byToken.ID != "c1" {
		t.Fatalf("unexpected id %q", byToken.ID)
	}

	if _, err := repo.GetByInviteToken(ctx, ""); !errors.Is(err, ErrCommunityNotFound) {
		t.Fatalf("empty token should be not found, got %v", err)
	}

	got.Name = "Elm St."
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = repo.GetByID(ctx, "c1")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Name != "Elm St." {
		t.Fatalf("update not persisted, got %q", got.Name)
	}

	if err := repo.SoftDelete(ctx, "c1", time.Now().UTC()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, "c1"); !errors.Is(err, ErrCommunityNotFound) {
		t.Fatalf("soft-deleted community should be hidden, got %v", err)
	}
	if _, err := repo.GetByInviteToken(ctx, "tok-1"); !errors.Is(err, ErrCommunityNotFound) {
		t.Fatalf("soft-deleted token should be hidden, got %v", err)
	}
	if err := repo.SoftDelete(ctx, "c1", time.Now().UTC()); !errors.Is(err, ErrCommunityNotFound) {
		t.Fatalf("second soft delete should be not found, got %v", err)
	}
}

func TestInMemoryCommunityRepoListByIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryCommunityRepo()

	for _, c := range []*community.Community{
		{ID: "c1", Name: "Oak"},
		{ID: "c2", Name: "Elm"},
	} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("create %s: %v", c.ID, err)
		}
	}

	got, err := repo.ListByIDs(ctx, []string{"c1", "c2", "missing"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 communities, got %d", len(got))
	}
	if got[0].Name != "Elm" || got[1].Name != "Oak" {
		t.Fatalf("expected name order Elm, Oak; got %q, %q", got[0].Name, got[1].Name)
	}
}

func TestInMemoryCommunityMembershipRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryCommunityMembershipRepo()

	m := community.Membership{CommunityID: "c1", UserID: "alice", JoinedAt: time.Now().UTC()}
	if err := repo.Add(ctx, m); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := repo.Add(ctx, m); !errors.Is(err, ErrDuplicateMembership) {
		t.Fatalf("duplicate add should conflict, got %v", err)
	}

	member, err := repo.IsMember(ctx, "c1", "alice")
	if err != nil || !member {
		t.Fatalf("expected member, got member=%v err=%v", member, err)
	}
	member, err = repo.IsMember(ctx, "c1", "bob")
	if err != nil || member {
		t.Fatalf("expected non-member, got member=%v err=%v", member, err)
	}

	any, err := repo.IsMemberOfAny(ctx, []string{"c9", "c1"}, "alice")
	if err != nil || !any {
		t.Fatalf("expected membership in any, got %v err=%v", any, err)
	}
	any, err = repo.IsMemberOfAny(ctx, nil, "alice")
	if err != nil || any {
		t.Fatalf("empty id set should never match, got %v err=%v", any, err)
	}

	if err := repo.Add(ctx, community.Membership{CommunityID: "c2", UserID: "alice"}); err != nil {
		t.Fatalf("add second: %v", err)
	}
	ids, err := repo.ListCommunityIDs(ctx, "alice")
	if err != nil {
		t.Fatalf("list community ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Fatalf("unexpected ids %v", ids)
	}

	count, err := repo.CountMembers(ctx, "c1")
	if err != nil || count != 1 {
		t.Fatalf("expected count 1, got %d err=%v", count, err)
	}

	if err := repo.Remove(ctx, "c1", "alice"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	member, _ = repo.IsMember(ctx, "c1", "alice")
	if member {
		t.Fatal("membership should be gone after remove")
	}
	// Remove is idempotent.
	if err := repo.Remove(ctx, "c1", "alice"); err != nil {
		t.Fatalf("second remove: %v", err)
	}

	if err := repo.DeleteByCommunity(ctx, "c2"); err != nil {
		t.Fatalf("delete by community: %v", err)
	}
	count, _ = repo.CountMembers(ctx, "c2")
	if count != 0 {
		t.Fatalf("expected empty community, got %d members", count)
	}
}
