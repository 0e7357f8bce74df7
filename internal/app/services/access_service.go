package services

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/neighborly/go-neighborhood-api/internal/app/repositories"
	"github.com/neighborly/go-neighborhood-api/internal/domain/listing"
)

var ErrListingNotFound = errors.New("listing not found")

// AccessService decides which listings a user may see. Visibility is governed
// entirely by grants plus creatorship: the creator always passes, everyone else
// needs membership in at least one granted community or group. Mutation rights
// are a separate concern handled by the owning services.
type AccessService interface {
	// CanView reports whether the user may see the listing. A missing or
	// soft-deleted listing yields ErrListingNotFound.
	CanView(ctx context.Context, userID, listingID string) (bool, error)
	// VisibleListingIDs returns every listing id the user may see: grant
	// matches for their memberships plus their own listings, deduplicated.
	VisibleListingIDs(ctx context.Context, userID string) ([]string, error)
	// VisibleGrants returns the subset of a listing's grants the viewer holds
	// membership for. The creator receives the full unfiltered set.
	VisibleGrants(ctx context.Context, userID string, l *listing.Listing) ([]listing.Visibility, error)
}

type accessService struct {
	listings    repositories.ListingRepository
	visibility  repositories.ListingVisibilityRepository
	communities repositories.CommunityMembershipRepository
	groups      repositories.GroupMembershipRepository
}

func NewAccessService(
	listings repositories.ListingRepository,
	visibility repositories.ListingVisibilityRepository,
	communities repositories.CommunityMembershipRepository,
	groups repositories.GroupMembershipRepository,
) AccessService {
	return &accessService{
		listings:    listings,
		visibility:  visibility,
		communities: communities,
		groups:      groups,
	}
}

func (s *accessService) CanView(ctx context.Context, userID, listingID string) (bool, error) {
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repositories.ErrListingNotFound) {
			return false, ErrListingNotFound
		}
		return false, err
	}
	if l.CreatorID == userID {
		return true, nil
	}

	grants, err := s.visibility.ListByListing(ctx, listingID)
	if err != nil {
		return false, err
	}
	communityIDs, groupIDs := partitionGrants(grants)
	if len(communityIDs) == 0 && len(groupIDs) == 0 {
		// No grants: private to the creator.
		return false, nil
	}

	// One membership match on either axis suffices; the checks are independent
	// so they run concurrently.
	var inCommunity, inGroup bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		inCommunity, err = s.communities.IsMemberOfAny(gctx, communityIDs, userID)
		return err
	})
	g.Go(func() error {
		var err error
		inGroup, err = s.groups.IsMemberOfAny(gctx, groupIDs, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return false, err
	}
	return inCommunity || inGroup, nil
}

func (s *accessService) VisibleListingIDs(ctx context.Context, userID string) ([]string, error) {
	var communityIDs, groupIDs []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		communityIDs, err = s.communities.ListCommunityIDs(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		groupIDs, err = s.groups.ListGroupIDs(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	granted, err := s.visibility.ListListingIDsFor(ctx, communityIDs, groupIDs)
	if err != nil {
		return nil, err
	}
	owned, err := s.listings.ListByCreator(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(granted)+len(owned))
	for _, id := range granted {
		seen[id] = struct{}{}
	}
	for _, l := range owned {
		seen[l.ID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *accessService) VisibleGrants(ctx context.Context, userID string, l *listing.Listing) ([]listing.Visibility, error) {
	grants, err := s.visibility.ListByListing(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	// The creator manages sharing and sees the complete distribution list.
	if l.CreatorID == userID {
		return grants, nil
	}

	var memberCommunities, memberGroups []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		memberCommunities, err = s.communities.ListCommunityIDs(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		memberGroups, err = s.groups.ListGroupIDs(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	communities := make(map[string]struct{}, len(memberCommunities))
	for _, id := range memberCommunities {
		communities[id] = struct{}{}
	}
	groups := make(map[string]struct{}, len(memberGroups))
	for _, id := range memberGroups {
		groups[id] = struct{}{}
	}

	// Non-creators only learn the sharing relationships they are part of.
	var filtered []listing.Visibility
	for _, grant := range grants {
		switch grant.Type {
		case listing.VisibilityCommunity:
			if _, ok := communities[grant.CommunityID]; ok {
				filtered = append(filtered, grant)
			}
		case listing.VisibilityGroup:
			if _, ok := groups[grant.GroupID]; ok {
				filtered = append(filtered, grant)
			}
		}
	}
	return filtered, nil
}

func partitionGrants(grants []listing.Visibility) (communityIDs, groupIDs []string) {
	for _, g := range grants {
		switch g.Type {
		case listing.VisibilityCommunity:
			if g.CommunityID != "" {
				communityIDs = append(communityIDs, g.CommunityID)
			}
		case listing.VisibilityGroup:
			if g.GroupID != "" {
				groupIDs = append(groupIDs, g.GroupID)
			}
		}
	}
	return communityIDs, groupIDs
}
