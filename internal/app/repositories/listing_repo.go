package repositories

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/neighborly/go-neighborhood-api/internal/domain/listing"
)

var ErrListingNotFound = errors.New("listing not found")

// ListingRepository persists listings. Lookups never return soft-deleted rows.
type ListingRepository interface {
	Create(ctx context.Context, l *listing.Listing) error
	GetByID(ctx context.Context, id string) (*listing.Listing, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*listing.Listing, error)
	ListByIDs(ctx context.Context, ids []string) ([]*listing.Listing, error)
	Update(ctx context.Context, l *listing.Listing) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type inMemoryListingRepo struct {
	mu    sync.RWMutex
	items map[string]*listing.Listing
}

// NewInMemoryListingRepo returns an in-memory listing repository implementation.
func NewInMemoryListingRepo() ListingRepository {
	return &inMemoryListingRepo{items: make(map[string]*listing.Listing)}
}

func (r *inMemoryListingRepo) Create(ctx context.Context, l *listing.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.items[l.ID] = &cp
	return nil
}

func (r *inMemoryListingRepo) GetByID(ctx context.Context, id string) (*listing.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.items[id]
	if !ok || l.DeletedAt != nil {
		return nil, ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *inMemoryListingRepo) ListByCreator(ctx context.Context, creatorID string) ([]*listing.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*listing.Listing
	for _, l := range r.items {
		if l.CreatorID == creatorID && l.DeletedAt == nil {
			cp := *l
			out = append(out, &cp)
		}
	}
	sortListings(out)
	return out, nil
}

func (r *inMemoryListingRepo) ListByIDs(ctx context.Context, ids []string) ([]*listing.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*listing.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := r.items[id]; ok && l.DeletedAt == nil {
			cp := *l
			out = append(out, &cp)
		}
	}
	sortListings(out)
	return out, nil
}

func (r *inMemoryListingRepo) Update(ctx context.Context, l *listing.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[l.ID]
	if !ok || cur.DeletedAt != nil {
		return ErrListingNotFound
	}
	cp := *l
	r.items[l.ID] = &cp
	return nil
}

func (r *inMemoryListingRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[id]
	if !ok || cur.DeletedAt != nil {
		return ErrListingNotFound
	}
	ts := at.UTC()
	cur.DeletedAt = &ts
	return nil
}

// Newest first, ID as tiebreaker so results are stable for equal timestamps.
func sortListings(items []*listing.Listing) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}
