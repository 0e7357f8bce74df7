package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/neighborly/go-neighborhood-api/internal/app/repositories"
	"github.com/neighborly/go-neighborhood-api/internal/domain/listing"
	"github.com/neighborly/go-neighborhood-api/internal/domain/user"
	"github.com/neighborly/go-neighborhood-api/pkg/eventlog"
	"github.com/neighborly/go-neighborhood-api/pkg/storage"
)

var (
	ErrListingTitleMissing = errors.New("listing title required")
	ErrListingTypeInvalid  = errors.New("invalid listing type")
	ErrListingAccessDenied = errors.New("listing access denied")
	ErrInvalidAudience     = errors.New("invalid audience target")
)

// PhotoInput carries one uploaded listing photo.
type PhotoInput struct {
	FileName    string
	ContentType string
	Body        io.Reader
	Size        int64
}

// ListingService owns listing CRUD. Audience changes always replace the whole
// grant set; reads go through the access engine.
type ListingService interface {
	Create(ctx context.Context, creatorID string, in listing.CreateInput) (*listing.Listing, error)
	Get(ctx context.Context, userID, id string) (*listing.Detail, error)
	List(ctx context.Context, userID string, f listing.Filter) ([]*listing.Listing, error)
	Update(ctx context.Context, userID, id string, in listing.UpdateInput) (*listing.Listing, error)
	Delete(ctx context.Context, userID, id string) error
	UploadPhoto(ctx context.Context, userID, id string, in PhotoInput) (string, error)
}

type listingService struct {
	listings      repositories.ListingRepository
	visibility    repositories.ListingVisibilityRepository
	communities   repositories.CommunityRepository
	communityMems repositories.CommunityMembershipRepository
	groups        repositories.GroupRepository
	groupMems     repositories.GroupMembershipRepository
	users         repositories.UserRepository
	access        AccessService
	store         storage.Service
	audit         *eventlog.Recorder
	log           *logrus.Entry
}

func NewListingService(
	listings repositories.ListingRepository,
	visibility repositories.ListingVisibilityRepository,
	communities repositories.CommunityRepository,
	communityMems repositories.CommunityMembershipRepository,
	groups repositories.GroupRepository,
	groupMems repositories.GroupMembershipRepository,
	users repositories.UserRepository,
	access AccessService,
	store storage.Service,
	audit *eventlog.Recorder,
	log *logrus.Entry,
) ListingService {
	return &listingService{
		listings:      listings,
		visibility:    visibility,
		communities:   communities,
		communityMems: communityMems,
		groups:        groups,
		groupMems:     groupMems,
		users:         users,
		access:        access,
		store:         store,
		audit:         audit,
		log:           log,
	}
}

func (s *listingService) Create(ctx context.Context, creatorID string, in listing.CreateInput) (*listing.Listing, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrListingTitleMissing
	}
	if !in.Type.Valid() {
		return nil, ErrListingTypeInvalid
	}

	l := &listing.Listing{
		ID:        uuid.NewString(),
		CreatorID: creatorID,
		Title:     title,
		Body:      strings.TrimSpace(in.Body),
		Type:      in.Type,
		Category:  strings.TrimSpace(in.Category),
		PriceCent: in.PriceCent,
		CreatedAt: time.Now().UTC(),
	}
	grants, err := s.buildGrants(ctx, creatorID, l.ID, in.CommunityIDs, in.GroupIDs)
	if err != nil {
		return nil, err
	}
	if err := s.listings.Create(ctx, l); err != nil {
		return nil, err
	}
	if err := s.visibility.ReplaceForListing(ctx, l.ID, grants); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, eventlog.Entry{Actor: creatorID, Action: "listing.create", EntityType: "listing", EntityID: l.ID})
	return l, nil
}

// Get returns the full detail view. A missing listing is not-found; an
// existing one the viewer has no grant for is denied, deliberately confirming
// existence (the split the clients rely on).
func (s *listingService) Get(ctx context.Context, userID, id string) (*listing.Detail, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrListingNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	ok, err := s.access.CanView(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrListingAccessDenied
	}

	grants, err := s.access.VisibleGrants(ctx, userID, l)
	if err != nil {
		return nil, err
	}
	creator, err := s.users.GetByID(ctx, l.CreatorID)
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}
	profile := user.Profile{ID: l.CreatorID}
	if creator != nil {
		profile = creator.Profile()
	}
	// Contact data is for counterparties; the creator viewing their own
	// listing gets a blank contact block.
	if userID == l.CreatorID {
		profile.Contact = user.Contact{}
	}
	return &listing.Detail{Listing: *l, Creator: profile, Grants: grants}, nil
}

// List fetches the visible set and narrows it with the caller's filters. The
// filters only ever narrow; the access decision alone defines the ceiling.
func (s *listingService) List(ctx context.Context, userID string, f listing.Filter) ([]*listing.Listing, error) {
	ids, err := s.access.VisibleListingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.listings.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if f.Type == "" && f.Category == "" && f.Query == "" {
		return items, nil
	}
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := items[:0]
	for _, l := range items {
		if f.Type != "" && l.Type != f.Type {
			continue
		}
		if f.Category != "" && !strings.EqualFold(l.Category, f.Category) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(l.Title), query) &&
			!strings.Contains(strings.ToLower(l.Body), query) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *listingService) Update(ctx context.Context, userID, id string, in listing.UpdateInput) (*listing.Listing, error) {
	l, err := s.requireOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, ErrListingTitleMissing
		}
		l.Title = title
	}
	if in.Body != nil {
		l.Body = strings.TrimSpace(*in.Body)
	}
	if in.Category != nil {
		l.Category = strings.TrimSpace(*in.Category)
	}
	if in.PriceCent != nil {
		l.PriceCent = in.PriceCent
	}

	if in.CommunityIDs != nil || in.GroupIDs != nil {
		var communityIDs, groupIDs []string
		if in.CommunityIDs != nil {
			communityIDs = *in.CommunityIDs
		}
		if in.GroupIDs != nil {
			groupIDs = *in.GroupIDs
		}
		grants, err := s.buildGrants(ctx, userID, l.ID, communityIDs, groupIDs)
		if err != nil {
			return nil, err
		}
		// Full replacement, never a diff.
		if err := s.visibility.ReplaceForListing(ctx, l.ID, grants); err != nil {
			return nil, err
		}
		s.audit.Record(ctx, eventlog.Entry{Actor: userID, Action: "listing.reshare", EntityType: "listing", EntityID: l.ID})
	}

	if err := s.listings.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Delete removes the grants first and tombstones the listing last; photos are
// cleaned up best-effort.
func (s *listingService) Delete(ctx context.Context, userID, id string) error {
	l, err := s.requireOwned(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.visibility.DeleteByListing(ctx, id); err != nil {
		return err
	}
	if s.store != nil && len(l.PhotoKeys) > 0 {
		prefix := fmt.Sprintf("listings/%s/", l.ID)
		if err := s.store.DeletePrefix(ctx, prefix); err != nil && s.log != nil {
			s.log.WithError(err).WithField("prefix", prefix).Warn("photo cleanup failed")
		}
	}
	if err := s.listings.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	s.audit.Record(ctx, eventlog.Entry{Actor: userID, Action: "listing.delete", EntityType: "listing", EntityID: id})
	return nil
}

func (s *listingService) UploadPhoto(ctx context.Context, userID, id string, in PhotoInput) (string, error) {
	l, err := s.requireOwned(ctx, id, userID)
	if err != nil {
		return "", err
	}
	if s.store == nil {
		return "", errors.New("object storage not configured")
	}
	key := fmt.Sprintf("listings/%s/%s%s", l.ID, uuid.NewString(), path.Ext(in.FileName))
	url, err := s.store.PutObject(ctx, storage.UploadInput{
		Key:         key,
		ContentType: in.ContentType,
		Body:        in.Body,
		Size:        in.Size,
	})
	if err != nil {
		return "", err
	}
	l.PhotoKeys = append(l.PhotoKeys, key)
	if err := s.listings.Update(ctx, l); err != nil {
		return "", err
	}
	return url, nil
}

// buildGrants validates the audience and materializes one grant per target.
// Targets must exist and the creator must hold membership in each: sharing
// into a community or group one does not belong to is rejected.
func (s *listingService) buildGrants(ctx context.Context, creatorID, listingID string, communityIDs, groupIDs []string) ([]listing.Visibility, error) {
	var grants []listing.Visibility
	for _, id := range dedupe(communityIDs) {
		if _, err := s.communities.GetByID(ctx, id); err != nil {
			if errors.Is(err, repositories.ErrCommunityNotFound) {
				return nil, fmt.Errorf("%w: community %s", ErrInvalidAudience, id)
			}
			return nil, err
		}
		member, err := s.communityMems.IsMember(ctx, id, creatorID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, fmt.Errorf("%w: community %s", ErrInvalidAudience, id)
		}
		grants = append(grants, listing.Visibility{
			ID:          uuid.NewString(),
			ListingID:   listingID,
			Type:        listing.VisibilityCommunity,
			CommunityID: id,
		})
	}
	for _, id := range dedupe(groupIDs) {
		if _, err := s.groups.GetByID(ctx, id); err != nil {
			if errors.Is(err, repositories.ErrGroupNotFound) {
				return nil, fmt.Errorf("%w: group %s", ErrInvalidAudience, id)
			}
			return nil, err
		}
		member, err := s.groupMems.IsMember(ctx, id, creatorID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, fmt.Errorf("%w: group %s", ErrInvalidAudience, id)
		}
		grants = append(grants, listing.Visibility{
			ID:        uuid.NewString(),
			ListingID: listingID,
			Type:      listing.VisibilityGroup,
			GroupID:   id,
		})
	}
	return grants, nil
}

func (s *listingService) requireOwned(ctx context.Context, id, userID string) (*listing.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrListingNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	if err := requireOwner(l.CreatorID, userID); err != nil {
		return nil, err
	}
	return l, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
