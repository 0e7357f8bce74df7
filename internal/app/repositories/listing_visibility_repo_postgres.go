package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/neighborly/go-neighborhood-api/internal/domain/listing"
)

type postgresListingVisibilityRepo struct {
	db *sql.DB
}

// NewPostgresListingVisibilityRepo builds a visibility repository backed by PostgreSQL.
func NewPostgresListingVisibilityRepo(db *sql.DB) (ListingVisibilityRepository, error) {
	repo := &postgresListingVisibilityRepo{db: db}
	if err := repo.ensureSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *postgresListingVisibilityRepo) ensureSchema() error {
	const createTable = `
        CREATE TABLE IF NOT EXISTS listing_visibilities (
            id TEXT PRIMARY KEY,
            listing_id TEXT NOT NULL,
            visibility_type TEXT NOT NULL,
            community_id TEXT NULL,
            group_id TEXT NULL,
            CHECK (
                (visibility_type = 'COMMUNITY' AND community_id IS NOT NULL AND group_id IS NULL) OR
                (visibility_type = 'GROUP' AND group_id IS NOT NULL AND community_id IS NULL)
            )
        )`
	if _, err := r.db.Exec(createTable); err != nil {
		return err
	}
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_listing_visibilities_listing ON listing_visibilities (listing_id)`,
		`CREATE INDEX IF NOT EXISTS idx_listing_visibilities_community ON listing_visibilities (community_id)`,
		`CREATE INDEX IF NOT EXISTS idx_listing_visibilities_group ON listing_visibilities (group_id)`,
	} {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceForListing swaps the whole grant set inside one transaction so readers
// never observe a half-replaced audience.
func (r *postgresListingVisibilityRepo) ReplaceForListing(ctx context.Context, listingID string, grants []listing.Visibility) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM listing_visibilities WHERE listing_id = $1`, listingID); err != nil {
		return err
	}
	const insert = `
        INSERT INTO listing_visibilities (id, listing_id, visibility_type, community_id, group_id)
        VALUES ($1, $2, $3, $4, $5)`
	for _, g := range grants {
		if _, err := tx.ExecContext(ctx, insert,
			g.ID, listingID, string(g.Type), nullString(g.CommunityID), nullString(g.GroupID)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *postgresListingVisibilityRepo) ListByListing(ctx context.Context, listingID string) ([]listing.Visibility, error) {
	const query = `
        SELECT id, listing_id, visibility_type, community_id, group_id
        FROM listing_visibilities
        WHERE listing_id = $1
        ORDER BY visibility_type, community_id, group_id`
	rows, err := r.db.QueryContext(ctx, query, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []listing.Visibility
	for rows.Next() {
		var (
			g           listing.Visibility
			typ         string
			communityID sql.NullString
			groupID     sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.ListingID, &typ, &communityID, &groupID); err != nil {
			return nil, err
		}
		g.Type = listing.VisibilityType(typ)
		g.CommunityID = communityID.String
		g.GroupID = groupID.String
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *postgresListingVisibilityRepo) ListListingIDsFor(ctx context.Context, communityIDs, groupIDs []string) ([]string, error) {
	if len(communityIDs) == 0 && len(groupIDs) == 0 {
		return nil, nil
	}
	const query = `
        SELECT DISTINCT listing_id FROM listing_visibilities
        WHERE (visibility_type = 'COMMUNITY' AND community_id = ANY($1))
           OR (visibility_type = 'GROUP' AND group_id = ANY($2))
        ORDER BY listing_id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(communityIDs), pq.Array(groupIDs))
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

func (r *postgresListingVisibilityRepo) DeleteByListing(ctx context.Context, listingID string) error {
	const query = `DELETE FROM listing_visibilities WHERE listing_id = $1`
	_, err := r.db.ExecContext(ctx, query, listingID)
	return err
}

func (r *postgresListingVisibilityRepo) DeleteByListingsAndCommunity(ctx context.Context, listingIDs []string, communityID string) error {
	if len(listingIDs) == 0 {
		return nil
	}
	const query = `
        DELETE FROM listing_visibilities
        WHERE listing_id = ANY($1) AND visibility_type = 'COMMUNITY' AND community_id = $2`
	_, err := r.db.ExecContext(ctx, query, pq.Array(listingIDs), communityID)
	return err
}

func (r *postgresListingVisibilityRepo) DeleteByListingsAndGroup(ctx context.Context, listingIDs []string, groupID string) error {
	if len(listingIDs) == 0 {
		return nil
	}
	const query = `
        DELETE FROM listing_visibilities
        WHERE listing_id = ANY($1) AND visibility_type = 'GROUP' AND group_id = $2`
	_, err := r.db.ExecContext(ctx, query, pq.Array(listingIDs), groupID)
	return err
}

func (r *postgresListingVisibilityRepo) DeleteByCommunity(ctx context.Context, communityID string) error {
	const query = `
        DELETE FROM listing_visibilities
        WHERE visibility_type = 'COMMUNITY' AND community_id = $1`
	_, err := r.db.ExecContext(ctx, query, communityID)
	return err
}

func (r *postgresListingVisibilityRepo) DeleteByGroup(ctx context.Context, groupID string) error {
	const query = `
        DELETE FROM listing_visibilities
        WHERE visibility_type = 'GROUP' AND group_id = $1`
	_, err := r.db.ExecContext(ctx, query, groupID)
	return err
}

func (r *postgresListingVisibilityRepo) DeleteByGroups(ctx context.Context, groupIDs []string) error {
	if len(groupIDs) == 0 {
		return nil
	}
	const query = `
        DELETE FROM listing_visibilities
        WHERE visibility_type = 'GROUP' AND group_id = ANY($1)`
	_, err := r.db.ExecContext(ctx, query, pq.Array(groupIDs))
	return err
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
