package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/neighborly/go-neighborhood-api/internal/domain/community"
)

// CommunityMembershipRepository persists the (communityId, userId) relation.
// Add must fail with ErrDuplicateMembership on an existing pair, never insert a
// second row.
type CommunityMembershipRepository interface {
	Add(ctx context.Context, m community.Membership) error
	Remove(ctx context.Context, communityID, userID string) error
	IsMember(ctx context.Context, communityID, userID string) (bool, error)
	IsMemberOfAny(ctx context.Context, communityIDs []string, userID string) (bool, error)
	ListCommunityIDs(ctx context.Context, userID string) ([]string, error)
	ListMembers(ctx context.Context, communityID string) ([]community.Membership, error)
	CountMembers(ctx context.Context, communityID string) (int, error)
	DeleteByCommunity(ctx context.Context, communityID string) error
}

type inMemoryCommunityMembershipRepo struct {
	mu    sync.RWMutex
	items map[string]map[string]time.Time // communityID -> userID -> joinedAt
}

// NewInMemoryCommunityMembershipRepo returns an in-memory membership repository implementation.
func NewInMemoryCommunityMembershipRepo() CommunityMembershipRepository {
	return &inMemoryCommunityMembershipRepo{items: make(map[string]map[string]time.Time)}
}

func (r *inMemoryCommunityMembershipRepo) Add(ctx context.Context, m community.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket, ok := r.items[m.CommunityID]
	if !ok {
		bucket = make(map[string]time.Time)
		r.items[m.CommunityID] = bucket
	}
	if _, exists := bucket[m.UserID]; exists {
		return ErrDuplicateMembership
	}
	joined := m.JoinedAt
	if joined.IsZero() {
		joined = time.Now().UTC()
	}
	bucket[m.UserID] = joined
	return nil
}

func (r *inMemoryCommunityMembershipRepo) Remove(ctx context.Context, communityID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bucket, ok := r.items[communityID]; ok {
		delete(bucket, userID)
	}
	return nil
}

func (r *inMemoryCommunityMembershipRepo) IsMember(ctx context.Context, communityID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket, ok := r.items[communityID]
	if !ok {
		return false, nil
	}
	_, member := bucket[userID]
	return member, nil
}

func (r *inMemoryCommunityMembershipRepo) IsMemberOfAny(ctx context.Context, communityIDs []string, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range communityIDs {
		if bucket, ok := r.items[id]; ok {
			if _, member := bucket[userID]; member {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *inMemoryCommunityMembershipRepo) ListCommunityIDs(ctx context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for communityID, bucket := range r.items {
		if _, member := bucket[userID]; member {
			out = append(out, communityID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *inMemoryCommunityMembershipRepo) ListMembers(ctx context.Context, communityID string) ([]community.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.items[communityID]
	out := make([]community.Membership, 0, len(bucket))
	for userID, joined := range bucket {
		out = append(out, community.Membership{CommunityID: communityID, UserID: userID, JoinedAt: joined})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (r *inMemoryCommunityMembershipRepo) CountMembers(ctx context.Context, communityID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items[communityID]), nil
}

func (r *inMemoryCommunityMembershipRepo) DeleteByCommunity(ctx context.Context, communityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, communityID)
	return nil
}
