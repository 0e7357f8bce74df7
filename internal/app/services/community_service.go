package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neighborly/go-neighborhood-api/internal/app/repositories"
	"github.com/neighborly/go-neighborhood-api/internal/domain/community"
	"github.com/neighborly/go-neighborhood-api/pkg/eventlog"
)

var (
	ErrCommunityNotFound    = errors.New("community not found")
	ErrCommunityNameMissing = errors.New("community name required")
)

// CommunityService owns the community lifecycle: CRUD, invite links, and the
// join/leave/remove cascades that keep group memberships and visibility grants
// consistent with community membership.
type CommunityService interface {
	Create(ctx context.Context, ownerID string, in community.CreateInput) (*community.Community, error)
	Get(ctx context.Context, userID, id string) (*community.Community, error)
	Update(ctx context.Context, userID, id string, in community.UpdateInput) (*community.Community, error)
	Delete(ctx context.Context, userID, id string) error
	ListMine(ctx context.Context, userID string) ([]*community.Community, error)
	ListMembers(ctx context.Context, userID, id string) ([]community.Membership, error)

	Join(ctx context.Context, userID, token string) (community.Projection, error)
	Leave(ctx context.Context, userID, id string) error
	RemoveMember(ctx context.Context, ownerID, id, targetUserID string) error

	PreviewByToken(ctx context.Context, token string) (community.Preview, error)
	Invite(ctx context.Context, userID, id string) (community.InviteResponse, error)
	RefreshInvite(ctx context.Context, userID, id string) (community.InviteResponse, error)
}

type communityService struct {
	communities repositories.CommunityRepository
	memberships repositories.CommunityMembershipRepository
	groups      repositories.GroupRepository
	groupMems   repositories.GroupMembershipRepository
	listings    repositories.ListingRepository
	visibility  repositories.ListingVisibilityRepository
	audit       *eventlog.Recorder
	baseURL     string
}

func NewCommunityService(
	communities repositories.CommunityRepository,
	memberships repositories.CommunityMembershipRepository,
	groups repositories.GroupRepository,
	groupMems repositories.GroupMembershipRepository,
	listings repositories.ListingRepository,
	visibility repositories.ListingVisibilityRepository,
	audit *eventlog.Recorder,
	baseURL string,
) CommunityService {
	return &communityService{
		communities: communities,
		memberships: memberships,
		groups:      groups,
		groupMems:   groupMems,
		listings:    listings,
		visibility:  visibility,
		audit:       audit,
		baseURL:     baseURL,
	}
}

func (s *communityService) Create(ctx context.Context, ownerID string, in community.CreateInput) (*community.Community, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrCommunityNameMissing
	}

	now := time.Now().UTC()
	c := &community.Community{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		InviteToken: newInviteToken(),
		CreatedAt:   now,
	}
	if err := s.communities.Create(ctx, c); err != nil {
		return nil, err
	}
	// The owner is a member from the first moment; every other path assumes it.
	err := s.memberships.Add(ctx, community.Membership{CommunityID: c.ID, UserID: ownerID, JoinedAt: now})
	if err != nil && !errors.Is(err, repositories.ErrDuplicateMembership) {
		return nil, err
	}
	s.audit.Record(ctx, eventlog.Entry{Actor: ownerID, Action: "community.create", EntityType: "community", EntityID: c.ID})
	return c, nil
}

func (s *communityService) Get(ctx context.Context, userID, id string) (*community.Community, error) {
	c, err := s.getCommunity(ctx, id)
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
	return c, nil
}

func (s *communityService) Update(ctx context.Context, userID, id string, in community.UpdateInput) (*community.Community, error) {
	c, err := s.requireOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, ErrCommunityNameMissing
		}
		c.Name = name
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if err := s.communities.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete tombstones the community and runs the full fallout: group
// memberships, group rows, community memberships and community-directed
// visibility grants all go. Listings are never touched, they just lose this
// sharing channel. The community tombstone is written last so a partial
// failure leaves the community intact rather than half-dismantled.
func (s *communityService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.requireOwned(ctx, id, userID); err != nil {
		return err
	}

	now := time.Now().UTC()
	groups, err := s.groups.ListByCommunity(ctx, id)
	if err != nil {
		return err
	}
	groupIDs := make([]string, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}

	if err := s.visibility.DeleteByGroups(ctx, groupIDs); err != nil {
		return err
	}
	if err := s.groupMems.DeleteByGroups(ctx, groupIDs); err != nil {
		return err
	}
	if err := s.groups.SoftDeleteByCommunity(ctx, id, now); err != nil {
		return err
	}
	if err := s.visibility.DeleteByCommunity(ctx, id); err != nil {
		return err
	}
	if err := s.memberships.DeleteByCommunity(ctx, id); err != nil {
		return err
	}
	if err := s.communities.SoftDelete(ctx, id, now); err != nil {
		return err
	}
	s.audit.Record(ctx, eventlog.Entry{Actor: userID, Action: "community.delete", EntityType: "community", EntityID: id})
	return nil
}

func (s *communityService) ListMine(ctx context.Context, userID string) ([]*community.Community, error) {
	ids, err := s.memberships.ListCommunityIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.communities.ListByIDs(ctx, ids)
}

func (s *communityService) ListMembers(ctx context.Context, userID, id string) ([]community.Membership, error) {
	if _, err := s.getCommunity(ctx, id); err != nil {
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

// Join resolves an invite token and adds the caller. A second join is a
// conflict, not a no-op: clients rely on the signal for "already joined"
// messaging.
func (s *communityService) Join(ctx context.Context, userID, token string) (community.Projection, error) {
	var empty community.Projection
	c, err := s.communities.GetByInviteToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrCommunityNotFound) {
			return empty, ErrInviteNotFound
		}
		return empty, err
	}
	err = s.memberships.Add(ctx, community.Membership{CommunityID: c.ID, UserID: userID, JoinedAt: time.Now().UTC()})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateMembership) {
			return empty, ErrAlreadyMember
		}
		return empty, err
	}
	s.audit.Record(ctx, eventlog.Entry{Actor: userID, Action: "community.join", EntityType: "community", EntityID: c.ID})
	return c.Projection(), nil
}

func (s *communityService) Leave(ctx context.Context, userID, id string) error {
	c, err := s.getCommunity(ctx, id)
	if err != nil {
		return err
	}
	if c.OwnerID == userID {
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
	s.audit.Record(ctx, eventlog.Entry{Actor: userID, Action: "community.leave", EntityType: "community", EntityID: id})
	return nil
}

func (s *communityService) RemoveMember(ctx context.Context, ownerID, id, targetUserID string) error {
	c, err := s.requireOwned(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if targetUserID == c.OwnerID {
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
		Actor: ownerID, Action: "community.remove_member",
		EntityType: "community", EntityID: id, Detail: targetUserID,
	})
	return nil
}

func (s *communityService) PreviewByToken(ctx context.Context, token string) (community.Preview, error) {
	var empty community.Preview
	c, err := s.communities.GetByInviteToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrCommunityNotFound) {
			return empty, ErrInviteNotFound
		}
		return empty, err
	}
	count, err := s.memberships.CountMembers(ctx, c.ID)
	if err != nil {
		return empty, err
	}
	return community.Preview{ID: c.ID, Name: c.Name, Description: c.Description, MemberCount: count}, nil
}

func (s *communityService) Invite(ctx context.Context, userID, id string) (community.InviteResponse, error) {
	var empty community.InviteResponse
	c, err := s.requireOwned(ctx, id, userID)
	if err != nil {
		return empty, err
	}
	return community.InviteResponse{
		InviteURL:   communityInviteURL(s.baseURL, c.InviteToken),
		InviteToken: c.InviteToken,
	}, nil
}

// RefreshInvite replaces the token in place; anyone holding the old link gets
// not-found from then on.
func (s *communityService) RefreshInvite(ctx context.Context, userID, id string) (community.InviteResponse, error) {
	var empty community.InviteResponse
	c, err := s.requireOwned(ctx, id, userID)
	if err != nil {
		return empty, err
	}
	c.InviteToken = newInviteToken()
	if err := s.communities.Update(ctx, c); err != nil {
		return empty, err
	}
	s.audit.Record(ctx, eventlog.Entry{Actor: userID, Action: "community.invite_refresh", EntityType: "community", EntityID: id})
	return community.InviteResponse{
		InviteURL:   communityInviteURL(s.baseURL, c.InviteToken),
		InviteToken: c.InviteToken,
	}, nil
}

// cascadeExit removes one user from a community plus everything hanging off
// that membership: their rows in the community's groups and their own
// listing-visibility grants pointing at the community. The membership row is
// deleted last so a crash mid-cascade leaves the user still a member (and the
// retried leave re-cleans the rest) instead of silently orphaned.
func (s *communityService) cascadeExit(ctx context.Context, communityID, userID string) error {
	groups, err := s.groups.ListByCommunity(ctx, communityID)
	if err != nil {
		return err
	}
	groupIDs := make([]string, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}
	if err := s.groupMems.RemoveUserFromGroups(ctx, groupIDs, userID); err != nil {
		return err
	}

	owned, err := s.listings.ListByCreator(ctx, userID)
	if err != nil {
		return err
	}
	listingIDs := make([]string, 0, len(owned))
	for _, l := range owned {
		listingIDs = append(listingIDs, l.ID)
	}
	if err := s.visibility.DeleteByListingsAndCommunity(ctx, listingIDs, communityID); err != nil {
		return err
	}

	return s.memberships.Remove(ctx, communityID, userID)
}

func (s *communityService) getCommunity(ctx context.Context, id string) (*community.Community, error) {
	c, err := s.communities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCommunityNotFound) {
			return nil, ErrCommunityNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *communityService) requireOwned(ctx context.Context, id, userID string) (*community.Community, error) {
	c, err := s.getCommunity(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(c.OwnerID, userID); err != nil {
		return nil, err
	}
	return c, nil
}
