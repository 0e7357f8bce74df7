package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/neighborly/go-neighborhood-api/internal/domain/group"
)

func TestInMemoryGroupMembershipBulkRemovals(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryGroupMembershipRepo()

	add := func(groupID, userID string) {
		t.Helper()
		if err := repo.Add(ctx, group.Membership{GroupID: groupID, UserID: userID}); err != nil {
			t.Fatalf("add %s/%s: %v", groupID, userID, err)
		}
	}
	add("g1", "alice")
	add("g1", "bob")
	add("g2", "bob")
	add("g3", "bob")

	if err := repo.Add(ctx, group.Membership{GroupID: "g1", UserID: "bob"}); !errors.Is(err, ErrDuplicateMembership) {
		t.Fatalf("duplicate add should conflict, got %v", err)
	}

	// A community exit removes one user from that community's groups only.
	if err := repo.RemoveUserFromGroups(ctx, []string{"g1", "g2"}, "bob"); err != nil {
		t.Fatalf("remove user from groups: %v", err)
	}
	for _, tc := range []struct {
		groupID string
		want    bool
	}{
		{"g1", false},
		{"g2", false},
		{"g3", true},
	} {
		got, err := repo.IsMember(ctx, tc.groupID, "bob")
		if err != nil {
			t.Fatalf("is member %s: %v", tc.groupID, err)
		}
		if got != tc.want {
			t.Fatalf("membership %s: want %v, got %v", tc.groupID, tc.want, got)
		}
	}

	// alice was untouched.
	if got, _ := repo.IsMember(ctx, "g1", "alice"); !got {
		t.Fatal("alice's membership should survive bob's removal")
	}

	if err := repo.DeleteByGroups(ctx, []string{"g1", "g3"}); err != nil {
		t.Fatalf("delete by groups: %v", err)
	}
	if count, _ := repo.CountMembers(ctx, "g1"); count != 0 {
		t.Fatalf("g1 should be empty, got %d", count)
	}
	if count, _ := repo.CountMembers(ctx, "g3"); count != 0 {
		t.Fatalf("g3 should be empty, got %d", count)
	}

	ids, err := repo.ListGroupIDs(ctx, "bob")
	if err != nil {
		t.Fatalf("list group ids: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no memberships left for bob, got %v", ids)
	}
}
