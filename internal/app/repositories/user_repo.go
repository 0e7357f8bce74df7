package repositories

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/neighborly/go-neighborhood-api/internal/domain/user"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository persists accounts. GetByAPIToken backs request authentication.
type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByAPIToken(ctx context.Context, token string) (*user.User, error)
	Update(ctx context.Context, u *user.User) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	items map[string]*user.User
}

// NewInMemoryUserRepo returns an in-memory user repository implementation.
func NewInMemoryUserRepo() UserRepository {
	return &inMemoryUserRepo{items: make(map[string]*user.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.items[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.items[id]
	if !ok || u.DeletedAt != nil {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) GetByAPIToken(ctx context.Context, token string) (*user.User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.items {
		if u.APIToken == token && u.DeletedAt == nil {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *inMemoryUserRepo) Update(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[u.ID]
	if !ok || cur.DeletedAt != nil {
		return ErrUserNotFound
	}
	cp := *u
	r.items[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[id]
	if !ok || cur.DeletedAt != nil {
		return ErrUserNotFound
	}
	ts := at.UTC()
	cur.DeletedAt = &ts
	return nil
}
