package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/neighborly/go-neighborhood-api/internal/app/repositories"
	"github.com/neighborly/go-neighborhood-api/internal/domain/community"
	"github.com/neighborly/go-neighborhood-api/internal/domain/group"
	"github.com/neighborly/go-neighborhood-api/internal/domain/listing"
	"github.com/neighborly/go-neighborhood-api/internal/domain/user"
)

// testEnv wires every service over the in-memory repositories, the same shape
// main assembles for the memory driver.
type testEnv struct {
	users         repositories.UserRepository
	communities   repositories.CommunityRepository
	communityMems repositories.CommunityMembershipRepository
	groups        repositories.GroupRepository
	groupMems     repositories.GroupMembershipRepository
	listings      repositories.ListingRepository
	visibility    repositories.ListingVisibilityRepository

	access       AccessService
	communitySvc CommunityService
	groupSvc     GroupService
	listingSvc   ListingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		users:         repositories.NewInMemoryUserRepo(),
		communities:   repositories.NewInMemoryCommunityRepo(),
		communityMems: repositories.NewInMemoryCommunityMembershipRepo(),
		groups:        repositories.NewInMemoryGroupRepo(),
		groupMems:     repositories.NewInMemoryGroupMembershipRepo(),
		listings:      repositories.NewInMemoryListingRepo(),
		visibility:    repositories.NewInMemoryListingVisibilityRepo(),
	}
	e.access = NewAccessService(e.listings, e.visibility, e.communityMems, e.groupMems)
	e.communitySvc = NewCommunityService(e.communities, e.communityMems, e.groups, e.groupMems, e.listings, e.visibility, nil, "http://test")
	e.groupSvc = NewGroupService(e.groups, e.groupMems, e.communities, e.communityMems, e.listings, e.visibility, nil, "http://test")
	e.listingSvc = NewListingService(e.listings, e.visibility, e.communities, e.communityMems, e.groups, e.groupMems, e.users, e.access, nil, nil, nil)
	return e
}

func (e *testEnv) addUser(t *testing.T, id, name string) {
	t.Helper()
	err := e.users.Create(context.Background(), &user.User{
		ID:   id,
		Name: name,
		Contact: user.Contact{
			Email: id + "@example.com",
			Phone: "555-0100",
		},
		APIToken:  "token-" + id,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func (e *testEnv) createCommunity(t *testing.T, ownerID, name string) *community.Community {
	t.Helper()
	c, err := e.communitySvc.Create(context.Background(), ownerID, community.CreateInput{Name: name})
	require.NoError(t, err)
	return c
}

func (e *testEnv) createGroup(t *testing.T, ownerID, communityID, name string) *group.Group {
	t.Helper()
	g, err := e.groupSvc.Create(context.Background(), ownerID, group.CreateInput{CommunityID: communityID, Name: name})
	require.NoError(t, err)
	return g
}

func (e *testEnv) joinCommunity(t *testing.T, userID, communityID string) {
	t.Helper()
	c, err := e.communities.GetByID(context.Background(), communityID)
	require.NoError(t, err)
	_, err = e.communitySvc.Join(context.Background(), userID, c.InviteToken)
	require.NoError(t, err)
}

func (e *testEnv) joinGroup(t *testing.T, userID, groupID string) {
	t.Helper()
	g, err := e.groups.GetByID(context.Background(), groupID)
	require.NoError(t, err)
	_, err = e.groupSvc.Join(context.Background(), userID, g.InviteToken)
	require.NoError(t, err)
}

func (e *testEnv) createListing(t *testing.T, creatorID string, in listing.CreateInput) *listing.Listing {
	t.Helper()
	if in.Type == "" {
		in.Type = listing.TypeLend
	}
	l, err := e.listingSvc.Create(context.Background(), creatorID, in)
	require.NoError(t, err)
	return l
}

// requireVisibility asserts CanView and membership of VisibleListingIDs agree,
// and both match want. The two read paths must never drift apart.
func (e *testEnv) requireVisibility(t *testing.T, userID, listingID string, want bool) {
	t.Helper()
	ctx := context.Background()

	ok, err := e.access.CanView(ctx, userID, listingID)
	require.NoError(t, err)
	require.Equal(t, want, ok, "CanView(%s, %s)", userID, listingID)

	ids, err := e.access.VisibleListingIDs(ctx, userID)
	require.NoError(t, err)
	listed := false
	for _, id := range ids {
		if id == listingID {
			listed = true
			break
		}
	}
	require.Equal(t, want, listed, "VisibleListingIDs(%s) contains %s", userID, listingID)
}
