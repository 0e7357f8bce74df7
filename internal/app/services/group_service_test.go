package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neighborly/go-neighborhood-api/internal/domain/group"
	"github.com/neighborly/go-neighborhood-api/internal/domain/listing"
)

func TestCreateGroupRequiresCommunityMembership(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c := e.createCommunity(t, "alice", "Elm Street")

	_, err := e.groupSvc.Create(context.Background(), "bob", group.CreateInput{CommunityID: c.ID, Name: "Tool Shed"})
	require.ErrorIs(t, err, ErrAccessDenied)

	e.joinCommunity(t, "bob", c.ID)
	g, err := e.groupSvc.Create(context.Background(), "bob", group.CreateInput{CommunityID: c.ID, Name: "Tool Shed"})
	require.NoError(t, err)
	require.Equal(t, c.ID, g.CommunityID)

	member, err := e.groupMems.IsMember(context.Background(), g.ID, "bob")
	require.NoError(t, err)
	require.True(t, member)
}

// A group invite implicitly grants parent community membership.
func TestJoinGroupAutoJoinsParentCommunity(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c := e.createCommunity(t, "alice", "Elm Street")
	g := e.createGroup(t, "alice", c.ID, "Tool Shed")

	result, err := e.groupSvc.Join(context.Background(), "bob", g.InviteToken)
	require.NoError(t, err)
	require.True(t, result.JoinedCommunity)
	require.Equal(t, c.ID, result.Community.ID)

	ctx := context.Background()
	inCommunity, err := e.communityMems.IsMember(ctx, c.ID, "bob")
	require.NoError(t, err)
	require.True(t, inCommunity)
	inGroup, err := e.groupMems.IsMember(ctx, g.ID, "bob")
	require.NoError(t, err)
	require.True(t, inGroup)
}

func TestJoinGroupExistingCommunityMember(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c := e.createCommunity(t, "alice", "Elm Street")
	g := e.createGroup(t, "alice", c.ID, "Tool Shed")
	e.joinCommunity(t, "bob", c.ID)

	result, err := e.groupSvc.Join(context.Background(), "bob", g.InviteToken)
	require.NoError(t, err)
	require.False(t, result.JoinedCommunity)
}

func TestJoinGroupTwiceConflicts(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c := e.createCommunity(t, "alice", "Elm Street")
	g := e.createGroup(t, "alice", c.ID, "Tool Shed")

	_, err := e.groupSvc.Join(context.Background(), "bob", g.InviteToken)
	require.NoError(t, err)
	_, err = e.groupSvc.Join(context.Background(), "bob", g.InviteToken)
	require.ErrorIs(t, err, ErrAlreadyMember)
}

// Leaving a group never touches community membership.
func TestLeaveGroupKeepsCommunityMembership(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c := e.createCommunity(t, "alice", "Elm Street")
	g := e.createGroup(t, "alice", c.ID, "Tool Shed")
	e.joinGroup(t, "bob", g.ID)

	l := e.createListing(t, "bob", listing.CreateInput{
		Title:        "Hammer",
		CommunityIDs: []string{c.ID},
		GroupIDs:     []string{g.ID},
	})

	ctx := context.Background()
	require.NoError(t, e.groupSvc.Leave(ctx, "bob", g.ID))

	inGroup, err := e.groupMems.IsMember(ctx, g.ID, "bob")
	require.NoError(t, err)
	require.False(t, inGroup)

	inCommunity, err := e.communityMems.IsMember(ctx, c.ID, "bob")
	require.NoError(t, err)
	require.True(t, inCommunity, "community membership must survive a group leave")

	// The member's own group-directed grant goes; the community grant stays.
	grants, err := e.visibility.ListByListing(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, listing.VisibilityCommunity, grants[0].Type)
}

func TestGroupOwnerCannotLeave(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	c := e.createCommunity(t, "alice", "Elm Street")
	g := e.createGroup(t, "alice", c.ID, "Tool Shed")

	err := e.groupSvc.Leave(context.Background(), "alice", g.ID)
	require.ErrorIs(t, err, ErrOwnerCannotLeave)
}

func TestDeleteGroupFallout(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c := e.createCommunity(t, "alice", "Elm Street")
	g := e.createGroup(t, "alice", c.ID, "Tool Shed")
	e.joinGroup(t, "bob", g.ID)

	l := e.createListing(t, "bob", listing.CreateInput{Title: "Rake", GroupIDs: []string{g.ID}})

	ctx := context.Background()
	require.NoError(t, e.groupSvc.Delete(ctx, "alice", g.ID))

	_, err := e.groups.GetByID(ctx, g.ID)
	require.Error(t, err)

	inGroup, err := e.groupMems.IsMember(ctx, g.ID, "bob")
	require.NoError(t, err)
	require.False(t, inGroup)

	grants, err := e.visibility.ListByListing(ctx, l.ID)
	require.NoError(t, err)
	require.Empty(t, grants)

	// bob stays in the community.
	inCommunity, err := e.communityMems.IsMember(ctx, c.ID, "bob")
	require.NoError(t, err)
	require.True(t, inCommunity)
}

func TestGroupRefreshInviteInvalidatesOldToken(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c := e.createCommunity(t, "alice", "Elm Street")
	g := e.createGroup(t, "alice", c.ID, "Tool Shed")
	oldToken := g.InviteToken

	resp, err := e.groupSvc.RefreshInvite(context.Background(), "alice", g.ID)
	require.NoError(t, err)
	require.NotEqual(t, oldToken, resp.InviteToken)

	_, err = e.groupSvc.PreviewByToken(context.Background(), oldToken)
	require.ErrorIs(t, err, ErrInviteNotFound)
	_, err = e.groupSvc.Join(context.Background(), "bob", oldToken)
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestGroupPreviewByToken(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	c := e.createCommunity(t, "alice", "Elm Street")
	g := e.createGroup(t, "alice", c.ID, "Tool Shed")

	preview, err := e.groupSvc.PreviewByToken(context.Background(), g.InviteToken)
	require.NoError(t, err)
	require.Equal(t, g.ID, preview.ID)
	require.Equal(t, 1, preview.MemberCount)
}

func TestListGroupsByCommunityMemberGated(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "alice", "Alice")
	e.addUser(t, "bob", "Bob")
	c := e.createCommunity(t, "alice", "Elm Street")
	e.createGroup(t, "alice", c.ID, "Tool Shed")

	_, err := e.groupSvc.ListByCommunity(context.Background(), "bob", c.ID)
	require.ErrorIs(t, err, ErrAccessDenied)

	e.joinCommunity(t, "bob", c.ID)
	groups, err := e.groupSvc.ListByCommunity(context.Background(), "bob", c.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
}
