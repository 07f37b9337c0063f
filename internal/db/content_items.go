package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/latex-resume-agent/internal/types"
)

const contentItemColumns = `id, owner_id, title, description, tags, highlights, url, start_date, end_date`

// CreateContentItem stores a content item for ownerID and returns its ID
func (db *DB) CreateContentItem(ctx context.Context, ownerID uuid.UUID, item *types.ContentItem) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO content_items (owner_id, title, description, tags, highlights, url, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		ownerID, item.Title, item.Description, nonNil(item.Tags), nonNil(item.Highlights),
		item.URL, item.StartDate, item.EndDate,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create content item: %w", err)
	}
	return id, nil
}

// GetContentItem retrieves one content item by ID. Returns nil, nil when it does not exist.
func (db *DB) GetContentItem(ctx context.Context, id uuid.UUID) (*types.ContentItem, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+contentItemColumns+` FROM content_items WHERE id = $1`, id)
	item, err := scanContentItem(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}
	return item, nil
}

// ListContentItems returns every content item owned by ownerID, oldest first
func (db *DB) ListContentItems(ctx context.Context, ownerID uuid.UUID) ([]types.ContentItem, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+contentItemColumns+` FROM content_items
		 WHERE owner_id = $1
		 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list content items: %w", err)
	}
	defer rows.Close()

	items := []types.ContentItem{}
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list content items: %w", err)
	}
	return items, nil
}

// DeleteContentItem removes a content item
func (db *DB) DeleteContentItem(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM content_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete content item: %w", err)
	}
	return nil
}

func scanContentItem(row pgx.Row) (*types.ContentItem, error) {
	var (
		item    types.ContentItem
		id      uuid.UUID
		ownerID uuid.UUID
	)
	err := row.Scan(&id, &ownerID, &item.Title, &item.Description, &item.Tags, &item.Highlights,
		&item.URL, &item.StartDate, &item.EndDate)
	if err != nil {
		return nil, err
	}
	item.ID = id.String()
	item.OwnerID = ownerID.String()
	return &item, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
