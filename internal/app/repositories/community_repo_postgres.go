package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/neighborly/go-neighborhood-api/internal/domain/community"
)

type postgresCommunityRepo struct {
	db *sql.DB
}

// NewPostgresCommunityRepo builds a community repository backed by PostgreSQL.
func NewPostgresCommunityRepo(db *sql.DB) (CommunityRepository, error) {
	repo := &postgresCommunityRepo{db: db}
	if err := repo.ensureSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *postgresCommunityRepo) ensureSchema() error {
	const createTable = `
        CREATE TABLE IF NOT EXISTS communities (
            id TEXT PRIMARY KEY,
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
	if _, err := r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_communities_owner ON communities (owner_id)`); err != nil {
		return err
	}
	return nil
}

func (r *postgresCommunityRepo) Create(ctx context.Context, c *community.Community) error {
	const query = `
        INSERT INTO communities (id, owner_id, name, description, invite_token, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.OwnerID, c.Name, c.Description, c.InviteToken, c.CreatedAt.UTC())
	return err
}

func (r *postgresCommunityRepo) GetByID(ctx context.Context, id string) (*community.Community, error) {
	const query = `
        SELECT id, owner_id, name, description, invite_token, created_at
        FROM communities
        WHERE id = $1 AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresCommunityRepo) GetByInviteToken(ctx context.Context, token string) (*community.Community, error) {
	if token == "" {
		return nil, ErrCommunityNotFound
	}
	const query = `
        SELECT id, owner_id, name, description, invite_token, created_at
        FROM communities
        WHERE invite_token = $1 AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRowContext(ctx, query, token))
}

func (r *postgresCommunityRepo) ListByIDs(ctx context.Context, ids []string) ([]*community.Community, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `
        SELECT id, owner_id, name, description, invite_token, created_at
        FROM communities
        WHERE id = ANY($1) AND deleted_at IS NULL
        ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*community.Community
	for rows.Next() {
		var c community.Community
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.InviteToken, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *postgresCommunityRepo) Update(ctx context.Context, c *community.Community) error {
	const query = `
        UPDATE communities
        SET name = $2, description = $3, invite_token = $4
        WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Description, c.InviteToken)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrCommunityNotFound)
}

func (r *postgresCommunityRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE communities SET deleted_at = $2
        WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, at.UTC())
	if err != nil {
		return err
	}
	return requireAffected(res, ErrCommunityNotFound)
}

func (r *postgresCommunityRepo) scanOne(row *sql.Row) (*community.Community, error) {
	var c community.Community
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.InviteToken, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCommunityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func requireAffected(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint error.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
