package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/neighborly/go-neighborhood-api/internal/domain/listing"
)

// ListingVisibilityRepository persists visibility grants. Grants are replaced
// wholesale per listing; there is no per-grant update path. The delete methods
// back the membership and deletion cascades.
type ListingVisibilityRepository interface {
	ReplaceForListing(ctx context.Context, listingID string, grants []listing.Visibility) error
	ListByListing(ctx context.Context, listingID string) ([]listing.Visibility, error)
	ListListingIDsFor(ctx context.Context, communityIDs, groupIDs []string) ([]string, error)
	DeleteByListing(ctx context.Context, listingID string) error
	DeleteByListingsAndCommunity(ctx context.Context, listingIDs []string, communityID string) error
	DeleteByListingsAndGroup(ctx context.Context, listingIDs []string, groupID string) error
	DeleteByCommunity(ctx context.Context, communityID string) error
	DeleteByGroup(ctx context.Context, groupID string) error
	DeleteByGroups(ctx context.Context, groupIDs []string) error
}

type inMemoryListingVisibilityRepo struct {
	mu    sync.RWMutex
	items map[string][]listing.Visibility // listingID -> grants
}

// NewInMemoryListingVisibilityRepo returns an in-memory visibility repository implementation.
func NewInMemoryListingVisibilityRepo() ListingVisibilityRepository {
	return &inMemoryListingVisibilityRepo{items: make(map[string][]listing.Visibility)}
}

func (r *inMemoryListingVisibilityRepo) ReplaceForListing(ctx context.Context, listingID string, grants []listing.Visibility) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(grants) == 0 {
		delete(r.items, listingID)
		return nil
	}
	cp := make([]listing.Visibility, len(grants))
	copy(cp, grants)
	r.items[listingID] = cp
	return nil
}

func (r *inMemoryListingVisibilityRepo) ListByListing(ctx context.Context, listingID string) ([]listing.Visibility, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	grants := r.items[listingID]
	out := make([]listing.Visibility, len(grants))
	copy(out, grants)
	return out, nil
}

func (r *inMemoryListingVisibilityRepo) ListListingIDsFor(ctx context.Context, communityIDs, groupIDs []string) ([]string, error) {
	communities := toSet(communityIDs)
	groups := toSet(groupIDs)

	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for listingID, grants := range r.items {
		for _, g := range grants {
			matched := false
			switch g.Type {
			case listing.VisibilityCommunity:
				_, matched = communities[g.CommunityID]
			case listing.VisibilityGroup:
				_, matched = groups[g.GroupID]
			}
			if matched {
				seen[listingID] = struct{}{}
				break
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (r *inMemoryListingVisibilityRepo) DeleteByListing(ctx context.Context, listingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, listingID)
	return nil
}

func (r *inMemoryListingVisibilityRepo) DeleteByListingsAndCommunity(ctx context.Context, listingIDs []string, communityID string) error {
	targets := toSet(listingIDs)
	r.mu.Lock()
	defer r.mu.Unlock()
	for listingID := range targets {
		r.dropWhere(listingID, func(g listing.Visibility) bool {
			return g.Type == listing.VisibilityCommunity && g.CommunityID == communityID
		})
	}
	return nil
}

func (r *inMemoryListingVisibilityRepo) DeleteByListingsAndGroup(ctx context.Context, listingIDs []string, groupID string) error {
	targets := toSet(listingIDs)
	r.mu.Lock()
	defer r.mu.Unlock()
	for listingID := range targets {
		r.dropWhere(listingID, func(g listing.Visibility) bool {
			return g.Type == listing.VisibilityGroup && g.GroupID == groupID
		})
	}
	return nil
}

func (r *inMemoryListingVisibilityRepo) DeleteByCommunity(ctx context.Context, communityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for listingID := range r.items {
		r.dropWhere(listingID, func(g listing.Visibility) bool {
			return g.Type == listing.VisibilityCommunity && g.CommunityID == communityID
		})
	}
	return nil
}

func (r *inMemoryListingVisibilityRepo) DeleteByGroup(ctx context.Context, groupID string) error {
	return r.DeleteByGroups(ctx, []string{groupID})
}

func (r *inMemoryListingVisibilityRepo) DeleteByGroups(ctx context.Context, groupIDs []string) error {
	groups := toSet(groupIDs)
	r.mu.Lock()
	defer r.mu.Unlock()
	for listingID := range r.items {
		r.dropWhere(listingID, func(g listing.Visibility) bool {
			if g.Type != listing.VisibilityGroup {
				return false
			}
			_, hit := groups[g.GroupID]
			return hit
		})
	}
	return nil
}

// dropWhere removes matching grants for a listing; caller holds the lock.
func (r *inMemoryListingVisibilityRepo) dropWhere(listingID string, match func(listing.Visibility) bool) {
	grants := r.items[listingID]
	kept := grants[:0]
	for _, g := range grants {
		if !match(g) {
			kept = append(kept, g)
		}
	}
	if len(kept) == 0 {
		delete(r.items, listingID)
		return
	}
	r.items[listingID] = kept
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}
