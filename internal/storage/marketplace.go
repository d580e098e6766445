package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wastetrace/wastetrace/internal/model"
)

const itemColumns = `id, seller_id, name, description, category, price_in_credits, stock, created_at, updated_at`

func scanItem(row pgx.Row) (model.MarketplaceItem, error) {
	var it model.MarketplaceItem
	err := row.Scan(&it.ID, &it.SellerID, &it.Name, &it.Description, &it.Category,
		&it.Price, &it.Stock, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

// CreateItem lists a new marketplace product.
func (db *DB) CreateItem(ctx context.Context, it model.MarketplaceItem) (model.MarketplaceItem, error) {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	now := time.Now().UTC()
	it.CreatedAt = now
	it.UpdatedAt = now

	_, err := db.pool.Exec(ctx,
		`INSERT INTO marketplace_items (id, seller_id, name, description, category, price_in_credits, stock, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		it.ID, it.SellerID, it.Name, it.Description, string(it.Category), it.Price, it.Stock, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return model.MarketplaceItem{}, fmt.Errorf("storage: create item: %w", err)
	}
	return it, nil
}

// GetItem retrieves a listing by ID.
func (db *DB) GetItem(ctx context.Context, id uuid.UUID) (model.MarketplaceItem, error) {
	it, err := scanItem(db.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM marketplace_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.MarketplaceItem{}, ErrNotFound
		}
		return model.MarketplaceItem{}, fmt.Errorf("storage: get item: %w", err)
	}
	return it, nil
}

// ListItems returns in-stock listings, newest first. An empty category
// matches everything.
func (db *DB) ListItems(ctx context.Context, category model.ItemCategory) ([]model.MarketplaceItem, error) {
	query := `SELECT ` + itemColumns + ` FROM marketplace_items WHERE stock > 0`
	args := []any{}
	if category != "" {
		query += ` AND category = $1`
		args = append(args, string(category))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list items: %w", err)
	}
	defer rows.Close()

	items := []model.MarketplaceItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
