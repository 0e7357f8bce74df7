package repositories

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/neighborly/go-neighborhood-api/internal/domain/group"
)

var ErrGroupNotFound = errors.New("group not found")

// GroupRepository persists groups. Lookups never return soft-deleted rows.
type GroupRepository interface {
	Create(ctx context.Context, g *group.Group) error
	GetByID(ctx context.Context, id string) (*group.Group, error)
	GetByInviteToken(ctx context.Context, token string) (*group.Group, error)
	ListByCommunity(ctx context.Context, communityID string) ([]*group.Group, error)
	ListByIDs(ctx context.Context, ids []string) ([]*group.Group, error)
	Update(ctx context.Context, g *group.Group) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	SoftDeleteByCommunity(ctx context.Context, communityID string, at time.Time) error
}

type inMemoryGroupRepo struct {
	mu    sync.RWMutex
	items map[string]*group.Group
}

// NewInMemoryGroupRepo returns an in-memory group repository implementation.
func NewInMemoryGroupRepo() GroupRepository {
	return &inMemoryGroupRepo{items: make(map[string]*group.Group)}
}

func (r *inMemoryGroupRepo) Create(ctx context.Context, g *group.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *g
	r.items[g.ID] = &cp
	return nil
}

func (r *inMemoryGroupRepo) GetByID(ctx context.Context, id string) (*group.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.items[id]
	if !ok || g.DeletedAt != nil {
		return nil, ErrGroupNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *inMemoryGroupRepo) GetByInviteToken(ctx context.Context, token string) (*group.Group, error) {
	if token == "" {
		return nil, ErrGroupNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.items {
		if g.InviteToken == token && g.DeletedAt == nil {
			cp := *g
			return &cp, nil
		}
	}
	return nil, ErrGroupNotFound
}

func (r *inMemoryGroupRepo) ListByCommunity(ctx context.Context, communityID string) ([]*group.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*group.Group
	for _, g := range r.items {
		if g.CommunityID == communityID && g.DeletedAt == nil {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *inMemoryGroupRepo) ListByIDs(ctx context.Context, ids []string) ([]*group.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*group.Group, 0, len(ids))
	for _, id := range ids {
		if g, ok := r.items[id]; ok && g.DeletedAt == nil {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *inMemoryGroupRepo) Update(ctx context.Context, g *group.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[g.ID]
	if !ok || cur.DeletedAt != nil {
		return ErrGroupNotFound
	}
	cp := *g
	r.items[g.ID] = &cp
	return nil
}

func (r *inMemoryGroupRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[id]
	if !ok || cur.DeletedAt != nil {
		return ErrGroupNotFound
	}
	ts := at.UTC()
	cur.DeletedAt = &ts
	return nil
}

func (r *inMemoryGroupRepo) SoftDeleteByCommunity(ctx context.Context, communityID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts := at.UTC()
	for _, g := range r.items {
		if g.CommunityID == communityID && g.DeletedAt == nil {
			g.DeletedAt = &ts
		}
	}
	return nil
}
