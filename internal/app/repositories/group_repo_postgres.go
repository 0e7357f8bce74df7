package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/neighborly/go-neighborhood-api/internal/domain/group"
)

type postgresGroupRepo struct {
	db *sql.DB
}

// NewPostgresGroupRepo builds a group repository backed by PostgreSQL.
func NewPostgresGroupRepo(db *sql.DB) (GroupRepository, error) {
	repo := &postgresGroupRepo{db: db}
	if err := repo.ensureSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *postgresGroupRepo) ensureSchema() error {
	const createTable = `
        CREATE TABLE IF NOT EXISTS groups (
            id TEXT PRIMARY KEY,
            community_id TEXT NOT NULL,
            owner_id TEXT NOT NULL,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            invite_token TEXT NOT NULL UNIQUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            deleted_at TIMESTAMPTZ NULL
        )`
	if _, err := r.db.Exec(createTable); err != nil {
		return err
	}
	if _, err := r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_groups_community ON groups (community_id)`); err != nil {
		return err
	}
	return nil
}

const groupColumns = `id, community_id, owner_id, name, description, invite_token, created_at`

func (r *postgresGroupRepo) Create(ctx context.Context, g *group.Group) error {
	const query = `
        INSERT INTO groups (id, community_id, owner_id, name, description, invite_token, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query, g.ID, g.CommunityID, g.OwnerID, g.Name, g.Description, g.InviteToken, g.CreatedAt.UTC())
	return err
}

func (r *postgresGroupRepo) GetByID(ctx context.Context, id string) (*group.Group, error) {
	const query = `
        SELECT ` + groupColumns + ` FROM groups
        WHERE id = $1 AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresGroupRepo) GetByInviteToken(ctx context.Context, token string) (*group.Group, error) {
	if token == "" {
		return nil, ErrGroupNotFound
	}
	const query = `
        SELECT ` + groupColumns + ` FROM groups
        WHERE invite_token = $1 AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRowContext(ctx, query, token))
}

func (r *postgresGroupRepo) ListByCommunity(ctx context.Context, communityID string) ([]*group.Group, error) {
	const query = `
        SELECT ` + groupColumns + ` FROM groups
        WHERE community_id = $1 AND deleted_at IS NULL
        ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, query, communityID)
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func (r *postgresGroupRepo) ListByIDs(ctx context.Context, ids []string) ([]*group.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `
        SELECT ` + groupColumns + ` FROM groups
        WHERE id = ANY($1) AND deleted_at IS NULL
        ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func (r *postgresGroupRepo) Update(ctx context.Context, g *group.Group) error {
	const query = `
        UPDATE groups
        SET name = $2, description = $3, invite_token = $4
        WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, g.ID, g.Name, g.Description, g.InviteToken)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrGroupNotFound)
}

func (r *postgresGroupRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE groups SET deleted_at = $2
        WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, at.UTC())
	if err != nil {
		return err
	}
	return requireAffected(res, ErrGroupNotFound)
}

func (r *postgresGroupRepo) SoftDeleteByCommunity(ctx context.Context, communityID string, at time.Time) error {
	const query = `
        UPDATE groups SET deleted_at = $2
        WHERE community_id = $1 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, communityID, at.UTC())
	return err
}

func (r *postgresGroupRepo) scanOne(row *sql.Row) (*group.Group, error) {
	var g group.Group
	err := row.Scan(&g.ID, &g.CommunityID, &g.OwnerID, &g.Name, &g.Description, &g.InviteToken, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *postgresGroupRepo) scanAll(rows *sql.Rows) ([]*group.Group, error) {
	defer rows.Close()
	var out []*group.Group
	for rows.Next() {
		var g group.Group
		if err := rows.Scan(&g.ID, &g.CommunityID, &g.OwnerID, &g.Name, &g.Description, &g.InviteToken, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}
