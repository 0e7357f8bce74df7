package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/neighborly/go-neighborhood-api/internal/domain/group"
)

// GroupMembershipRepository persists the (groupId, userId) relation. The bulk
// removal methods exist for the lifecycle cascades: removing one user from all
// groups of a community, and wiping whole groups when a parent is deleted.
type GroupMembershipRepository interface {
	Add(ctx context.Context, m group.Membership) error
	Remove(ctx context.Context, groupID, userID string) error
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	IsMemberOfAny(ctx context.Context, groupIDs []string, userID string) (bool, error)
	ListGroupIDs(ctx context.Context, userID string) ([]string, error)
	ListMembers(ctx context.Context, groupID string) ([]group.Membership, error)
	CountMembers(ctx context.Context, groupID string) (int, error)
	RemoveUserFromGroups(ctx context.Context, groupIDs []string, userID string) error
	DeleteByGroup(ctx context.Context, groupID string) error
	DeleteByGroups(ctx context.Context, groupIDs []string) error
}

type inMemoryGroupMembershipRepo struct {
	mu    sync.RWMutex
	items map[string]map[string]time.Time // groupID -> userID -> joinedAt
}

// NewInMemoryGroupMembershipRepo returns an in-memory membership repository implementation.
func NewInMemoryGroupMembershipRepo() GroupMembershipRepository {
	return &inMemoryGroupMembershipRepo{items: make(map[string]map[string]time.Time)}
}

func (r *inMemoryGroupMembershipRepo) Add(ctx context.Context, m group.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket, ok := r.items[m.GroupID]
	if !ok {
		bucket = make(map[string]time.Time)
		r.items[m.GroupID] = bucket
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

func (r *inMemoryGroupMembershipRepo) Remove(ctx context.Context, groupID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bucket, ok := r.items[groupID]; ok {
		delete(bucket, userID)
	}
	return nil
}

func (r *inMemoryGroupMembershipRepo) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket, ok := r.items[groupID]
	if !ok {
		return false, nil
	}
	_, member := bucket[userID]
	return member, nil
}

func (r *inMemoryGroupMembershipRepo) IsMemberOfAny(ctx context.Context, groupIDs []string, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range groupIDs {
		if bucket, ok := r.items[id]; ok {
			if _, member := bucket[userID]; member {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *inMemoryGroupMembershipRepo) ListGroupIDs(ctx context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for groupID, bucket := range r.items {
		if _, member := bucket[userID]; member {
			out = append(out, groupID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *inMemoryGroupMembershipRepo) ListMembers(ctx context.Context, groupID string) ([]group.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.items[groupID]
	out := make([]group.Membership, 0, len(bucket))
	for userID, joined := range bucket {
		out = append(out, group.Membership{GroupID: groupID, UserID: userID, JoinedAt: joined})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (r *inMemoryGroupMembershipRepo) CountMembers(ctx context.Context, groupID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items[groupID]), nil
}

func (r *inMemoryGroupMembershipRepo) RemoveUserFromGroups(ctx context.Context, groupIDs []string, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range groupIDs {
		if bucket, ok := r.items[id]; ok {
			delete(bucket, userID)
		}
	}
	return nil
}

func (r *inMemoryGroupMembershipRepo) DeleteByGroup(ctx context.Context, groupID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, groupID)
	return nil
}

func (r *inMemoryGroupMembershipRepo) DeleteByGroups(ctx context.Context, groupIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range groupIDs {
		delete(r.items, id)
	}
	return nil
}
