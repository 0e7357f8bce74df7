package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/neighborly/go-neighborhood-api/internal/domain/group"
)

type postgresGroupMembershipRepo struct {
	db *sql.DB
}

// NewPostgresGroupMembershipRepo builds a membership repository backed by PostgreSQL.
func NewPostgresGroupMembershipRepo(db *sql.DB) (GroupMembershipRepository, error) {
	repo := &postgresGroupMembershipRepo{db: db}
	if err := repo.ensureSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *postgresGroupMembershipRepo) ensureSchema() error {
	const createTable = `
        CREATE TABLE IF NOT EXISTS group_memberships (
            group_id TEXT NOT NULL,
            user_id TEXT NOT NULL,
            joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (group_id, user_id)
        )`
	if _, err := r.db.Exec(createTable); err != nil {
		return err
	}
	if _, err := r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_group_memberships_user ON group_memberships (user_id)`); err != nil {
		return err
	}
	return nil
}

func (r *postgresGroupMembershipRepo) Add(ctx context.Context, m group.Membership) error {
	joined := m.JoinedAt
	if joined.IsZero() {
		joined = time.Now().UTC()
	}
	const query = `
        INSERT INTO group_memberships (group_id, user_id, joined_at)
        VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, m.GroupID, m.UserID, joined.UTC())
	if isUniqueViolation(err) {
		return ErrDuplicateMembership
	}
	return err
}

func (r *postgresGroupMembershipRepo) Remove(ctx context.Context, groupID, userID string) error {
	const query = `DELETE FROM group_memberships WHERE group_id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, groupID, userID)
	return err
}

func (r *postgresGroupMembershipRepo) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM group_memberships WHERE group_id = $1 AND user_id = $2
        )`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, groupID, userID).Scan(&exists)
	return exists, err
}

func (r *postgresGroupMembershipRepo) IsMemberOfAny(ctx context.Context, groupIDs []string, userID string) (bool, error) {
	if len(groupIDs) == 0 {
		return false, nil
	}
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM group_memberships WHERE group_id = ANY($1) AND user_id = $2
        )`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, pq.Array(groupIDs), userID).Scan(&exists)
	return exists, err
}

func (r *postgresGroupMembershipRepo) ListGroupIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `
        SELECT group_id FROM group_memberships
        WHERE user_id = $1
        ORDER BY group_id`
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

func (r *postgresGroupMembershipRepo) ListMembers(ctx context.Context, groupID string) ([]group.Membership, error) {
	const query = `
        SELECT group_id, user_id, joined_at FROM group_memberships
        WHERE group_id = $1
        ORDER BY joined_at, user_id`
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []group.Membership
	for rows.Next() {
		var m group.Membership
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *postgresGroupMembershipRepo) CountMembers(ctx context.Context, groupID string) (int, error) {
	const query = `SELECT COUNT(*) FROM group_memberships WHERE group_id = $1`
	var count int
	err := r.db.QueryRowContext(ctx, query, groupID).Scan(&count)
	return count, err
}

func (r *postgresGroupMembershipRepo) RemoveUserFromGroups(ctx context.Context, groupIDs []string, userID string) error {
	if len(groupIDs) == 0 {
		return nil
	}
	const query = `DELETE FROM group_memberships WHERE group_id = ANY($1) AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, pq.Array(groupIDs), userID)
	return err
}

func (r *postgresGroupMembershipRepo) DeleteByGroup(ctx context.Context, groupID string) error {
	const query = `DELETE FROM group_memberships WHERE group_id = $1`
	_, err := r.db.ExecContext(ctx, query, groupID)
	return err
}

func (r *postgresGroupMembershipRepo) DeleteByGroups(ctx context.Context, groupIDs []string) error {
	if len(groupIDs) == 0 {
		return nil
	}
	const query = `DELETE FROM group_memberships WHERE group_id = ANY($1)`
	_, err := r.db.ExecContext(ctx, query, pq.Array(groupIDs))
	return err
}
