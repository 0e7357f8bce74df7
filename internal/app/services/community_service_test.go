package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neighborly/go-neighborhood-api/internal/domain/community"
	"github.com/neighborly/go-neighborhood-api/internal/domain/listing"
)

func TestCreateCommunityOwnerIsMember(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	c := e.createCommunity(t, "alice", "Elm Street")

	member, err := e.communityMems.IsMember(context.Background(), c.ID, "alice")
	require.NoError(t, err)
	require.True(t, member)
	require.NotEmpty(t, c.InviteToken)
}

func TestCreateCommunityRequiresName(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	_, err := e.communitySvc.Create(context.Background(), "alice", community.CreateInput{Name: "   "})
	require.ErrorIs(t, err, ErrCommunityNameMissing)
}

func TestJoinCommunityTwiceConflicts(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c := e.createCommunity(t, "alice", "Elm Street")

	_, err := e.communitySvc.Join(context.Background(), "bob", c.InviteToken)
	require.NoError(t, err)
	_, err = e.communitySvc.Join(context.Background(), "bob", c.InviteToken)
	require.ErrorIs(t, err, ErrAlreadyMember)
}

func TestJoinWithUnknownToken(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "bob", "Bob")
	_, err := e.communitySvc.Join(context.Background(), "bob", "no-such-token")
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestRefreshInviteInvalidatesOldToken(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c := e.createCommunity(t, "alice", "Elm Street")
	oldToken := c.InviteToken

	resp, err := e.communitySvc.RefreshInvite(context.Background(), "alice", c.ID)
	require.NoError(t, err)
	require.NotEqual(t, oldToken, resp.InviteToken)

	_, err = e.communitySvc.PreviewByToken(context.Background(), oldToken)
	require.ErrorIs(t, err, ErrInviteNotFound)
	_, err = e.communitySvc.Join(context.Background(), "bob", oldToken)
	require.ErrorIs(t, err, ErrInviteNotFound)

	_, err = e.communitySvc.Join(context.Background(), "bob", resp.InviteToken)
	require.NoError(t, err)
}

func TestRefreshInviteOwnerOnly(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c := e.createCommunity(t, "alice", "Elm Street")
	e.joinCommunity(t, "bob", c.ID)

	_, err := e.communitySvc.RefreshInvite(context.Background(), "bob", c.ID)
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestGetCommunityMemberGated(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c := e.createCommunity(t, "alice", "Elm Street")

	_, err := e.communitySvc.Get(context.Background(), "bob", c.ID)
	require.ErrorIs(t, err, ErrAccessDenied)

	e.joinCommunity(t, "bob", c.ID)
	got, err := e.communitySvc.Get(context.Background(), "bob", c.ID)
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)
}

func TestOwnerCannotLeave(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	c := e.createCommunity(t, "alice", "Elm Street")

	err := e.communitySvc.Leave(context.Background(), "alice", c.ID)
	require.ErrorIs(t, err, ErrOwnerCannotLeave)

	member, err := e.communityMems.IsMember(context.Background(), c.ID, "alice")
	require.NoError(t, err)
	require.True(t, member)
}

func TestLeaveWithoutMembership(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c := e.createCommunity(t, "alice", "Elm Street")

	err := e.communitySvc.Leave(context.Background(), "bob", c.ID)
	require.ErrorIs(t, err, ErrNotMember)
}

// Leaving a community removes the member's rows in the community's groups and
// their own listing grants at that community, and nothing else.
func TestLeaveCommunityCascade(t *testing.T) {
	e := newTestEnv(t)
	for _, id := range []string{"alice", "bob"} {
		e.addUser(t, id, id)
	}
	c1 := e.createCommunity(t, "alice", "Elm Street")
	c2 := e.createCommunity(t, "alice", "Oak Avenue")
	g := e.createGroup(t, "alice", c1.ID, "Tool Shed")

	e.joinCommunity(t, "bob", c1.ID)
	e.joinGroup(t, "bob", g.ID)
	e.joinCommunity(t, "bob", c2.ID)

	l := e.createListing(t, "bob", listing.CreateInput{
		Title:        "Ladder",
		CommunityIDs: []string{c1.ID, c2.ID},
		GroupIDs:     []string{g.ID},
	})

	require.NoError(t, e.communitySvc.Leave(context.Background(), "bob", c1.ID))

	ctx := context.Background()
	member, err := e.communityMems.IsMember(ctx, c1.ID, "bob")
	require.NoError(t, err)
	require.False(t, member)

	inGroup, err := e.groupMems.IsMember(ctx, g.ID, "bob")
	require.NoError(t, err)
	require.False(t, inGroup, "group membership must fall with the community membership")

	grants, err := e.visibility.ListByListing(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1, "only the grant at the other community survives")
	require.Equal(t, c2.ID, grants[0].CommunityID)

	// Membership in c2 is untouched.
	member, err = e.communityMems.IsMember(ctx, c2.ID, "bob")
	require.NoError(t, err)
	require.True(t, member)
}

func TestRemoveMemberCascadesLikeLeave(t *testing.T) {
	e := newTestEnv(t)
	for _, id := range []string{"alice", "bob"} {
		e.addUser(t, id, id)
	}
	c := e.createCommunity(t, "alice", "Elm Street")
	g := e.createGroup(t, "alice", c.ID, "Tool Shed")
	e.joinCommunity(t, "bob", c.ID)
	e.joinGroup(t, "bob", g.ID)
	l := e.createListing(t, "bob", listing.CreateInput{Title: "Saw", CommunityIDs: []string{c.ID}})

	ctx := context.Background()

	// Only the owner may remove members.
	err := e.communitySvc.RemoveMember(ctx, "bob", c.ID, "alice")
	require.ErrorIs(t, err, ErrNotOwner)

	// The owner cannot remove themselves.
	err = e.communitySvc.RemoveMember(ctx, "alice", c.ID, "alice")
	require.ErrorIs(t, err, ErrOwnerCannotRemoveSelf)

	require.NoError(t, e.communitySvc.RemoveMember(ctx, "alice", c.ID, "bob"))

	member, err := e.communityMems.IsMember(ctx, c.ID, "bob")
	require.NoError(t, err)
	require.False(t, member)

	inGroup, err := e.groupMems.IsMember(ctx, g.ID, "bob")
	require.NoError(t, err)
	require.False(t, inGroup)

	grants, err := e.visibility.ListByListing(ctx, l.ID)
	require.NoError(t, err)
	require.Empty(t, grants)
}

// Deleting a community takes down its groups, every membership on both levels
// and every grant pointing into it; listings themselves survive.
func TestDeleteCommunityFallout(t *testing.T) {
	e := newTestEnv(t)
	for _, id := range []string{"alice", "bob"} {
		e.addUser(t, id, id)
	}
	c := e.createCommunity(t, "alice", "Elm Street")
	g := e.createGroup(t, "alice", c.ID, "Tool Shed")
	e.joinCommunity(t, "bob", c.ID)
	e.joinGroup(t, "bob", g.ID)

	l := e.createListing(t, "bob", listing.CreateInput{
		Title:        "Ladder",
		CommunityIDs: []string{c.ID},
		GroupIDs:     []string{g.ID},
	})

	ctx := context.Background()
	require.NoError(t, e.communitySvc.Delete(ctx, "alice", c.ID))

	_, err := e.communitySvc.Get(ctx, "alice", c.ID)
	require.ErrorIs(t, err, ErrCommunityNotFound)

	_, err = e.groups.GetByID(ctx, g.ID)
	require.Error(t, err)

	member, err := e.communityMems.IsMember(ctx, c.ID, "bob")
	require.NoError(t, err)
	require.False(t, member)

	grants, err := e.visibility.ListByListing(ctx, l.ID)
	require.NoError(t, err)
	require.Empty(t, grants)

	// The listing itself is untouched, now private to bob.
	e.requireVisibility(t, "bob", l.ID, true)
	e.requireVisibility(t, "alice", l.ID, false)
}

func TestDeleteCommunityOwnerOnly(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c := e.createCommunity(t, "alice", "Elm Street")
	e.joinCommunity(t, "bob", c.ID)

	err := e.communitySvc.Delete(context.Background(), "bob", c.ID)
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestPreviewByToken(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c := e.createCommunity(t, "alice", "Elm Street")
	e.joinCommunity(t, "bob", c.ID)

	preview, err := e.communitySvc.PreviewByToken(context.Background(), c.InviteToken)
	require.NoError(t, err)
	require.Equal(t, c.ID, preview.ID)
	require.Equal(t, "Elm Street", preview.Name)
	require.Equal(t, 2, preview.MemberCount)
}

func TestListMine(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c1 := e.createCommunity(t, "alice", "Elm Street")
	e.createCommunity(t, "alice", "Oak Avenue")
	e.joinCommunity(t, "bob", c1.ID)

	mine, err := e.communitySvc.ListMine(context.Background(), "bob")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, c1.ID, mine[0].ID)
}
