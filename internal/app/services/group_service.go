package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neighborly/go-neighborhood-api/internal/app/repositories"
	"github.com/neighborly/go-neighborhood-api/internal/domain/community"
	"github.com/neighborly/go-neighborhood-api/internal/domain/group"
	"github.com/neighborly/go-neighborhood-api/pkg/eventlog"
)

var (
	ErrGroupNotFound    = errors.New("group not found")
	ErrGroupNameMissing = errors.New("group name required")
)

// GroupService owns the group lifecycle. Groups live inside exactly one
// community; joining a group auto-joins the parent community when needed, and
// leaving a group never touches community membership.
type GroupService interface {
	Create(ctx context.Context, ownerID string, in group.CreateInput) (*group.Group, error)
	Get(ctx context.Context, userID, id string) (*group.Group, error)
	Update(ctx context.Context, userID, id string, in group.UpdateInput) (*group.Group, error)
	Delete(ctx context.Context, userID, id string) error
	ListByCommunity(ctx context.Context, userID, communityID string) ([]*group.Group, error)
	ListMembers(ctx context.Context, userID, id string) ([]group.Membership, error)

	Join(ctx context.Context, userID, token string) (group.JoinResult, error)
	Leave(ctx context.Context, userID, id string) error
	RemoveMember(ctx context.Context, ownerID, id, targetUserID string) error

	PreviewByToken(ctx context.Context, token string) (group.Preview, error)
	Invite(ctx context.Context, userID, id string) (group.InviteResponse, error)
	RefreshInvite(ctx context.Context, userID, id string) (group.InviteResponse, error)
}

type groupService struct {
	groups        repositories.GroupRepository
	memberships   repositories.GroupMembershipRepository
	communities   repositories.CommunityRepository
	communityMems repositories.CommunityMembershipRepository
	listings      repositories.ListingRepository
	visibility    repositories.ListingVisibilityRepository
	audit         *eventlog.Recorder
	baseURL       string
}

func NewGroupService(
	groups repositories.GroupRepository,
	memberships repositories.GroupMembershipRepository,
	communities repositories.CommunityRepository,
	communityMems repositories.CommunityMembershipRepository,
	listings repositories.ListingRepository,
	visibility repositories.ListingVisibilityRepository,
	audit *eventlog.Recorder,
	baseURL string,
) GroupService {
	return &groupService{
		groups:        groups,
		memberships:   memberships,
		communities:   communities,
		communityMems: communityMems,
		listings:      listings,
		visibility:    visibility,
		audit:         audit,
		baseURL:       baseURL,
	}
}

func (s *groupService) Create(ctx context.Context, ownerID string, in group.CreateInput) (*group.Group, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrGroupNameMissing
	}
	c, err := s.communities.GetByID(ctx, in.CommunityID)
	if err != nil {
		if errors.Is(err, repositories.ErrCommunityNotFound) {
			return nil, ErrCommunityNotFound
		}
		return nil, err
	}
	// Group creation requires community membership at creation time.
	member, err := s.communityMems.IsMember(ctx, c.ID, ownerID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrAccessDenied
	}

	now := time.Now().UTC()
	g := &group.Group{
		ID:          uuid.NewString(),
		CommunityID: c.ID,
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		InviteToken: newInviteToken(),
		CreatedAt:   now,
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, err
	}
	err = s.memberships.Add(ctx, group.Membership{GroupID: g.ID, UserID: ownerID, JoinedAt: now})
	if err != nil && !errors.Is(err, repositories.ErrDuplicateMembership) {
		return nil, err
	}
	s.audit.Record(ctx, eventlog.Entry{Actor: ownerID, Action: "group.create", EntityType: "group", EntityID: g.ID})
	return g, nil
}

func (s *groupService) Get(ctx context.Context, userID, id string) (*group.Group, error) {
	g, err := s.getGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	member, err := s.memberships.IsMember(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrAccessDenied
	}
	return g, nil
}

func (s *groupService) Update(ctx context.Context, userID, id string, in group.UpdateInput) (*group.Group, error) {
	g, err := s.requireOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, ErrGroupNameMissing
		}
		g.Name = name
	}
	if in.Description != nil {
		g.Description = strings.TrimSpace(*in.Description)
	}
	if err := s.groups.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Delete tombstones the group and hard-deletes its memberships and grants.
// The tombstone comes last; see the community cascade for the rationale.
func (s *groupService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.requireOwned(ctx, id, userID); err != nil {
		return err
	}
	if err := s.visibility.DeleteByGroup(ctx, id); err != nil {
		return err
	}
	if err := s.memberships.DeleteByGroup(ctx, id); err != nil {
		return err
	}
	if err := s.groups.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	s.audit.Record(ctx, eventlog.Entry{Actor: userID, Action: "group.delete", EntityType: "group", EntityID: id})
	return nil
}

func (s *groupService) ListByCommunity(ctx context.Context, userID, communityID string) ([]*group.Group, error) {
	if _, err := s.communities.GetByID(ctx, communityID); err != nil {
		if errors.Is(err, repositories.ErrCommunityNotFound) {
			return nil, ErrCommunityNotFound
		}
		return nil, err
	}
	member, err := s.communityMems.IsMember(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrAccessDenied
	}
	return s.groups.ListByCommunity(ctx, communityID)
}

func (s *groupService) ListMembers(ctx context.Context, userID, id string) ([]group.Membership, error) {
	if _, err := s.getGroup(ctx, id); err != nil {
		return nil, err
	}
	member, err := s.memberships.IsMember(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrAccessDenied
	}
	return s.memberships.ListMembers(ctx, id)
}

// Join resolves a group invite token. A group invite implicitly grants parent
// community membership: group content is only reachable through the community
// elsewhere in the access model, so the parent membership is created first.
func (s *groupService) Join(ctx context.Context, userID, token string) (group.JoinResult, error) {
	var empty group.JoinResult
	g, err := s.groups.GetByInviteToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return empty, ErrInviteNotFound
		}
		return empty, err
	}
	c, err := s.communities.GetByID(ctx, g.CommunityID)
	if err != nil {
		if errors.Is(err, repositories.ErrCommunityNotFound) {
			return empty, ErrInviteNotFound
		}
		return empty, err
	}

	already, err := s.memberships.IsMember(ctx, g.ID, userID)
	if err != nil {
		return empty, err
	}
	if already {
		return empty, ErrAlreadyMember
	}

	now := time.Now().UTC()
	joinedCommunity := false
	inCommunity, err := s.communityMems.IsMember(ctx, c.ID, userID)
	if err != nil {
		return empty, err
	}
	if !inCommunity {
		err := s.communityMems.Add(ctx, community.Membership{CommunityID: c.ID, UserID: userID, JoinedAt: now})
		if err != nil && !errors.Is(err, repositories.ErrDuplicateMembership) {
			return empty, err
		}
		joinedCommunity = err == nil
	}

	err = s.memberships.Add(ctx, group.Membership{GroupID: g.ID, UserID: userID, JoinedAt: now})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateMembership) {
			return empty, ErrAlreadyMember
		}
		return empty, err
	}
	s.audit.Record(ctx, eventlog.Entry{Actor: userID, Action: "group.join", EntityType: "group", EntityID: g.ID})

	return group.JoinResult{
		Group:           g.Projection(),
		Community:       c.Projection(),
		JoinedCommunity: joinedCommunity,
	}, nil
}

// Leave removes the group membership and the member's own grants pointing at
// this group. Community membership is left alone: one can leave a group and
// stay in the neighborhood.
func (s *groupService) Leave(ctx context.Context, userID, id string) error {
	g, err := s.getGroup(ctx, id)
	if err != nil {
		return err
	}
	if g.OwnerID == userID {
		return ErrOwnerCannotLeave
	}
	member, err := s.memberships.IsMember(ctx, id, userID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotMember
	}
	if err := s.cascadeExit(ctx, id, userID); err != nil {
		return err
	}
	s.audit.Record(ctx, eventlog.Entry{Actor: userID, Action: "group.leave", EntityType: "group", EntityID: id})
	return nil
}

func (s *groupService) RemoveMember(ctx context.Context, ownerID, id, targetUserID string) error {
	g, err := s.requireOwned(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if targetUserID == g.OwnerID {
		return ErrOwnerCannotRemoveSelf
	}
	member, err := s.memberships.IsMember(ctx, id, targetUserID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotMember
	}
	if err := s.cascadeExit(ctx, id, targetUserID); err != nil {
		return err
	}
	s.audit.Record(ctx, eventlog.Entry{
		Actor: ownerID, Action: "group.remove_member",
		EntityType: "group", EntityID: id, Detail: targetUserID,
	})
	return nil
}

func (s *groupService) PreviewByToken(ctx context.Context, token string) (group.Preview, error) {
	var empty group.Preview
	g, err := s.groups.GetByInviteToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return empty, ErrInviteNotFound
		}
		return empty, err
	}
	count, err := s.memberships.CountMembers(ctx, g.ID)
	if err != nil {
		return empty, err
	}
	return group.Preview{ID: g.ID, Name: g.Name, Description: g.Description, MemberCount: count}, nil
}

func (s *groupService) Invite(ctx context.Context, userID, id string) (group.InviteResponse, error) {
	var empty group.InviteResponse
	g, err := s.requireOwned(ctx, id, userID)
	if err != nil {
		return empty, err
	}
	return group.InviteResponse{
		InviteURL:   groupInviteURL(s.baseURL, g.InviteToken),
		InviteToken: g.InviteToken,
	}, nil
}

func (s *groupService) RefreshInvite(ctx context.Context, userID, id string) (group.InviteResponse, error) {
	var empty group.InviteResponse
	g, err := s.requireOwned(ctx, id, userID)
	if err != nil {
		return empty, err
	}
	g.InviteToken = newInviteToken()
	if err := s.groups.Update(ctx, g); err != nil {
		return empty, err
	}
	s.audit.Record(ctx, eventlog.Entry{Actor: userID, Action: "group.invite_refresh", EntityType: "group", EntityID: id})
	return group.InviteResponse{
		InviteURL:   groupInviteURL(s.baseURL, g.InviteToken),
		InviteToken: g.InviteToken,
	}, nil
}

// cascadeExit deletes the member's grants at this group, then the membership
// row last (conservative ordering, same as the community cascade).
func (s *groupService) cascadeExit(ctx context.Context, groupID, userID string) error {
	owned, err := s.listings.ListByCreator(ctx, userID)
	if err != nil {
		return err
	}
	listingIDs := make([]string, 0, len(owned))
	for _, l := range owned {
		listingIDs = append(listingIDs, l.ID)
	}
	if err := s.visibility.DeleteByListingsAndGroup(ctx, listingIDs, groupID); err != nil {
		return err
	}
	return s.memberships.Remove(ctx, groupID, userID)
}

func (s *groupService) getGroup(ctx context.Context, id string) (*group.Group, error) {
	g, err := s.groups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return g, nil
}

func (s *groupService) requireOwned(ctx context.Context, id, userID string) (*group.Group, error) {
	g, err := s.getGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(g.OwnerID, userID); err != nil {
		return nil, err
	}
	return g, nil
}
