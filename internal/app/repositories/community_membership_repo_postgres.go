package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/neighborly/go-neighborhood-api/internal/domain/community"
)

type postgresCommunityMembershipRepo struct {
	db *sql.DB
}

// NewPostgresCommunityMembershipRepo builds a membership repository backed by PostgreSQL.
func NewPostgresCommunityMembershipRepo(db *sql.DB) (CommunityMembershipRepository, error) {
	repo := &postgresCommunityMembershipRepo{db: db}
	if err := repo.ensureSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *postgresCommunityMembershipRepo) ensureSchema() error {
	const createTable = `
        CREATE TABLE IF NOT EXISTS community_memberships (
            community_id TEXT NOT NULL,
            user_id TEXT NOT NULL,
            joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (community_id, user_id)
        )`
	if _, err := r.db.Exec(createTable); err != nil {
		return err
	}
	if _, err := r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_community_memberships_user ON community_memberships (user_id)`); err != nil {
		return err
	}
	return nil
}

func (r *postgresCommunityMembershipRepo) Add(ctx context.Context, m community.Membership) error {
	joined := m.JoinedAt
	if joined.IsZero() {
		joined = time.Now().UTC()
	}
	const query = `
        INSERT INTO community_memberships (community_id, user_id, joined_at)
        VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, m.CommunityID, m.UserID, joined.UTC())
	if isUniqueViolation(err) {
		return ErrDuplicateMembership
	}
	return err
}

func (r *postgresCommunityMembershipRepo) Remove(ctx context.Context, communityID, userID string) error {
	const query = `DELETE FROM community_memberships WHERE community_id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, communityID, userID)
	return err
}

func (r *postgresCommunityMembershipRepo) IsMember(ctx context.Context, communityID, userID string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM community_memberships WHERE community_id = $1 AND user_id = $2
        )`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, communityID, userID).Scan(&exists)
	return exists, err
}

func (r *postgresCommunityMembershipRepo) IsMemberOfAny(ctx context.Context, communityIDs []string, userID string) (bool, error) {
	if len(communityIDs) == 0 {
		return false, nil
	}
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM community_memberships WHERE community_id = ANY($1) AND user_id = $2
        )`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, pq.Array(communityIDs), userID).Scan(&exists)
	return exists, err
}

func (r *postgresCommunityMembershipRepo) ListCommunityIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `
        SELECT community_id FROM community_memberships
        WHERE user_id = $1
        ORDER BY community_id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *postgresCommunityMembershipRepo) ListMembers(ctx context.Context, communityID string) ([]community.Membership, error) {
	const query = `
        SELECT community_id, user_id, joined_at FROM community_memberships
        WHERE community_id = $1
        ORDER BY joined_at, user_id`
	rows, err := r.db.QueryContext(ctx, query, communityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []community.Membership
	for rows.Next() {
		var m community.Membership
		if err := rows.Scan(&m.CommunityID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *postgresCommunityMembershipRepo) CountMembers(ctx context.Context, communityID string) (int, error) {
	const query = `SELECT COUNT(*) FROM community_memberships WHERE community_id = $1`
	var count int
	err := r.db.QueryRowContext(ctx, query, communityID).Scan(&count)
	return count, err
}

func (r *postgresCommunityMembershipRepo) DeleteByCommunity(ctx context.Context, communityID string) error {
	const query = `DELETE FROM community_memberships WHERE community_id = $1`
	_, err := r.db.ExecContext(ctx, query, communityID)
	return err
}
