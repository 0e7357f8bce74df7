package repositories

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/neighborly/go-neighborhood-api/internal/domain/community"
)

var (
	ErrCommunityNotFound   = errors.New("community not found")
	ErrDuplicateMembership = errors.New("membership already exists")
)

// CommunityRepository persists communities. Lookups never return soft-deleted
// rows; deletion tombstones the row and leaves history intact.
type CommunityRepository interface {
	Create(ctx context.Context, c *community.Community) error
	GetByID(ctx context.Context, id string) (*community.Community, error)
	GetByInviteToken(ctx context.Context, token string) (*community.Community, error)
	ListByIDs(ctx context.Context, ids []string) ([]*community.Community, error)
	Update(ctx context.Context, c *community.Community) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type inMemoryCommunityRepo struct {
	mu    sync.RWMutex
	items map[string]*community.Community
}

// NewInMemoryCommunityRepo returns an in-memory community repository implementation.
func NewInMemoryCommunityRepo() CommunityRepository {
	return &inMemoryCommunityRepo{items: make(map[string]*community.Community)}
}

func (r *inMemoryCommunityRepo) Create(ctx context.Context, c *community.Community) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.items[c.ID] = &cp
	return nil
}

func (r *inMemoryCommunityRepo) GetByID(ctx context.Context, id string) (*community.Community, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok || c.DeletedAt != nil {
		return nil, ErrCommunityNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *inMemoryCommunityRepo) GetByInviteToken(ctx context.Context, token string) (*community.Community, error) {
	if token == "" {
		return nil, ErrCommunityNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.items {
		if c.InviteToken == token && c.DeletedAt == nil {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrCommunityNotFound
}

func (r *inMemoryCommunityRepo) ListByIDs(ctx context.Context, ids []string) ([]*community.Community, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*community.Community, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.items[id]; ok && c.DeletedAt == nil {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *inMemoryCommunityRepo) Update(ctx context.Context, c *community.Community) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[c.ID]
	if !ok || cur.DeletedAt != nil {
		return ErrCommunityNotFound
	}
	cp := *c
	r.items[c.ID] = &cp
	return nil
}

func (r *inMemoryCommunityRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[id]
	if !ok || cur.DeletedAt != nil {
		return ErrCommunityNotFound
	}
	ts := at.UTC()
	cur.DeletedAt = &ts
	return nil
}
