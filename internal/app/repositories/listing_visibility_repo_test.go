package repositories

import (
	"context"
	"testing"

	"github.com/neighborly/go-neighborhood-api/internal/domain/listing"
)

func communityGrant(id, listingID, communityID string) listing.Visibility {
	return listing.Visibility{ID: id, ListingID: listingID, Type: listing.VisibilityCommunity, CommunityID: communityID}
}

func groupGrant(id, listingID, groupID string) listing.Visibility {
	return listing.Visibility{ID: id, ListingID: listingID, Type: listing.VisibilityGroup, GroupID: groupID}
}

func TestInMemoryVisibilityReplaceForListing(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryListingVisibilityRepo()

	err := repo.ReplaceForListing(ctx, "l1", []listing.Visibility{
		communityGrant("v1", "l1", "c1"),
		groupGrant("v2", "l1", "g1"),
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	grants, err := repo.ListByListing(ctx, "l1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(grants))
	}

	// Replacement is wholesale, the old set disappears.
	err = repo.ReplaceForListing(ctx, "l1", []listing.Visibility{communityGrant("v3", "l1", "c2")})
	if err != nil {
		t.Fatalf("replace again: %v", err)
	}
	grants, _ = repo.ListByListing(ctx, "l1")
	if len(grants) != 1 || grants[0].CommunityID != "c2" {
		t.Fatalf("unexpected grants after replace: %+v", grants)
	}

	// An empty set clears everything.
	if err := repo.ReplaceForListing(ctx, "l1", nil); err != nil {
		t.Fatalf("replace with empty: %v", err)
	}
	grants, _ = repo.ListByListing(ctx, "l1")
	if len(grants) != 0 {
		t.Fatalf("expected no grants, got %d", len(grants))
	}
}

func TestInMemoryVisibilityListListingIDsFor(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryListingVisibilityRepo()

	mustReplace(t, repo, "l1", communityGrant("v1", "l1", "c1"))
	mustReplace(t, repo, "l2", groupGrant("v2", "l2", "g1"))
	mustReplace(t, repo, "l3", communityGrant("v3", "l3", "c2"))

	ids, err := repo.ListListingIDsFor(ctx, []string{"c1"}, []string{"g1"})
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "l1" || ids[1] != "l2" {
		t.Fatalf("unexpected ids %v", ids)
	}

	ids, err = repo.ListListingIDsFor(ctx, nil, nil)
	if err != nil {
		t.Fatalf("list ids empty: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("no memberships should match nothing, got %v", ids)
	}
}

func TestInMemoryVisibilityCascadeDeletes(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryListingVisibilityRepo()

	// Two listings by different creators, both granted at c1 and g1.
	mustReplace(t, repo, "l1", communityGrant("v1", "l1", "c1"), groupGrant("v2", "l1", "g1"))
	mustReplace(t, repo, "l2", communityGrant("v3", "l2", "c1"), groupGrant("v4", "l2", "g1"))

	// Member exit: only the exiting member's listings lose their c1 grants.
	if err := repo.DeleteByListingsAndCommunity(ctx, []string{"l1"}, "c1"); err != nil {
		t.Fatalf("delete by listings and community: %v", err)
	}
	grants, _ := repo.ListByListing(ctx, "l1")
	if len(grants) != 1 || grants[0].Type != listing.VisibilityGroup {
		t.Fatalf("expected only the group grant to survive, got %+v", grants)
	}
	grants, _ = repo.ListByListing(ctx, "l2")
	if len(grants) != 2 {
		t.Fatalf("other creator's grants must be untouched, got %+v", grants)
	}

	if err := repo.DeleteByListingsAndGroup(ctx, []string{"l1"}, "g1"); err != nil {
		t.Fatalf("delete by listings and group: %v", err)
	}
	grants, _ = repo.ListByListing(ctx, "l1")
	if len(grants) != 0 {
		t.Fatalf("expected no grants left on l1, got %+v", grants)
	}

	// Community deletion: every c1 grant goes, regardless of creator.
	if err := repo.DeleteByCommunity(ctx, "c1"); err != nil {
		t.Fatalf("delete by community: %v", err)
	}
	grants, _ = repo.ListByListing(ctx, "l2")
	if len(grants) != 1 || grants[0].Type != listing.VisibilityGroup {
		t.Fatalf("expected only the group grant on l2, got %+v", grants)
	}

	if err := repo.DeleteByGroups(ctx, []string{"g1"}); err != nil {
		t.Fatalf("delete by groups: %v", err)
	}
	grants, _ = repo.ListByListing(ctx, "l2")
	if len(grants) != 0 {
		t.Fatalf("expected no grants on l2, got %+v", grants)
	}
}

func mustReplace(t *testing.T, repo ListingVisibilityRepository, listingID string, grants ...listing.Visibility) {
	t.Helper()
	if err := repo.ReplaceForListing(context.Background(), listingID, grants); err != nil {
		t.Fatalf("replace %s: %v", listingID, err)
	}
}
