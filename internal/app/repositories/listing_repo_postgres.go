package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/neighborly/go-neighborhood-api/internal/domain/listing"
)

type postgresListingRepo struct {
	db *sql.DB
}

// NewPostgresListingRepo builds a listing repository backed by PostgreSQL.
func NewPostgresListingRepo(db *sql.DB) (ListingRepository, error) {
	repo := &postgresListingRepo{db: db}
	if err := repo.ensureSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *postgresListingRepo) ensureSchema() error {
	const createTable = `
        CREATE TABLE IF NOT EXISTS listings (
            id TEXT PRIMARY KEY,
            creator_id TEXT NOT NULL,
            title TEXT NOT NULL,
            body TEXT NOT NULL DEFAULT '',
            type TEXT NOT NULL,
            category TEXT NOT NULL DEFAULT '',
            price_cent BIGINT NULL,
            photo_keys TEXT[] NOT NULL DEFAULT '{}',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            deleted_at TIMESTAMPTZ NULL
        )`
	if _, err := r.db.Exec(createTable); err != nil {
		return err
	}
	if _, err := r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_listings_creator ON listings (creator_id)`); err != nil {
		return err
	}
	return nil
}

const listingColumns = `id, creator_id, title, body, type, category, price_cent, photo_keys, created_at`

func (r *postgresListingRepo) Create(ctx context.Context, l *listing.Listing) error {
	const query = `
        INSERT INTO listings (id, creator_id, title, body, type, category, price_cent, photo_keys, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.CreatorID, l.Title, l.Body, string(l.Type), l.Category,
		nullInt64(l.PriceCent), pq.Array(l.PhotoKeys), l.CreatedAt.UTC())
	return err
}

func (r *postgresListingRepo) GetByID(ctx context.Context, id string) (*listing.Listing, error) {
	const query = `
        SELECT ` + listingColumns + ` FROM listings
        WHERE id = $1 AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresListingRepo) ListByCreator(ctx context.Context, creatorID string) ([]*listing.Listing, error) {
	const query = `
        SELECT ` + listingColumns + ` FROM listings
        WHERE creator_id = $1 AND deleted_at IS NULL
        ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, creatorID)
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func (r *postgresListingRepo) ListByIDs(ctx context.Context, ids []string) ([]*listing.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `
        SELECT ` + listingColumns + ` FROM listings
        WHERE id = ANY($1) AND deleted_at IS NULL
        ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func (r *postgresListingRepo) Update(ctx context.Context, l *listing.Listing) error {
	const query = `
        UPDATE listings
        SET title = $2, body = $3, category = $4, price_cent = $5, photo_keys = $6
        WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query,
		l.ID, l.Title, l.Body, l.Category, nullInt64(l.PriceCent), pq.Array(l.PhotoKeys))
	if err != nil {
		return err
	}
	return requireAffected(res, ErrListingNotFound)
}

func (r *postgresListingRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE listings SET deleted_at = $2
        WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, at.UTC())
	if err != nil {
		return err
	}
	return requireAffected(res, ErrListingNotFound)
}

func (r *postgresListingRepo) scanOne(row *sql.Row) (*listing.Listing, error) {
	var (
		l     listing.Listing
		typ   string
		price sql.NullInt64
		keys  pq.StringArray
	)
	err := row.Scan(&l.ID, &l.CreatorID, &l.Title, &l.Body, &typ, &l.Category, &price, &keys, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	l.Type = listing.Type(typ)
	if price.Valid {
		v := price.Int64
		l.PriceCent = &v
	}
	l.PhotoKeys = []string(keys)
	return &l, nil
}

func (r *postgresListingRepo) scanAll(rows *sql.Rows) ([]*listing.Listing, error) {
	defer rows.Close()
	var out []*listing.Listing
	for rows.Next() {
		var (
			l     listing.Listing
			typ   string
			price sql.NullInt64
			keys  pq.StringArray
		)
		if err := rows.Scan(&l.ID, &l.CreatorID, &l.Title, &l.Body, &typ, &l.Category, &price, &keys, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Type = listing.Type(typ)
		if price.Valid {
			v := price.Int64
			l.PriceCent = &v
		}
		l.PhotoKeys = []string(keys)
		out = append(out, &l)
	}
	return out, rows.Err()
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
