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

const plantColumns = `id, owner_id, name, address, lat, lng, capacity_tons,
	utilization, total_waste_received, total_credits_issued, total_revenue, created_at, updated_at`

func scanPlant(row pgx.Row) (model.Plant, error) {
	var p model.Plant
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Address, &p.Lat, &p.Lng, &p.CapacityTons,
		&p.Utilization, &p.TotalWasteReceived, &p.TotalCreditsIssued, &p.TotalRevenue,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// CreatePlant inserts a new plant.
func (db *DB) CreatePlant(ctx context.Context, p model.Plant) (model.Plant, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.CapacityTons <= 0 {
		p.CapacityTons = model.DefaultPlantCapacityTons
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO plants (id, owner_id, name, address, lat, lng, capacity_tons,
		 utilization, total_waste_received, total_credits_issued, total_revenue, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.OwnerID, p.Name, p.Address, p.Lat, p.Lng, p.CapacityTons,
		p.Utilization, p.TotalWasteReceived, p.TotalCreditsIssued, p.TotalRevenue,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return model.Plant{}, fmt.Errorf("storage: create plant: %w", err)
	}
	return p, nil
}

// GetPlant retrieves a plant by ID.
func (db *DB) GetPlant(ctx context.Context, id uuid.UUID) (model.Plant, error) {
	p, err := scanPlant(db.pool.QueryRow(ctx,
		`SELECT `+plantColumns+` FROM plants WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Plant{}, ErrNotFound
		}
		return model.Plant{}, fmt.Errorf("storage: get plant: %w", err)
	}
	return p, nil
}

// UpdatePlant applies the non-nil fields of req to a plant owned by ownerID.
// Accumulator fields (utilization, totals) are not editable through this path.
func (db *DB) UpdatePlant(ctx context.Context, id, ownerID uuid.UUID, req model.UpdatePlantRequest) (model.Plant, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.Plant{}, fmt.Errorf("storage: begin update plant tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, err := scanPlant(tx.QueryRow(ctx,
		`SELECT `+plantColumns+` FROM plants WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Plant{}, ErrNotFound
		}
		return model.Plant{}, fmt.Errorf("storage: lock plant: %w", err)
	}
	if p.OwnerID != ownerID {
		return model.Plant{}, ErrNotOwner
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Address != nil {
		p.Address = *req.Address
	}
	if req.Lat != nil {
		p.Lat = *req.Lat
	}
	if req.Lng != nil {
		p.Lng = *req.Lng
	}
	if req.Capacity != nil && *req.Capacity > 0 {
		p.CapacityTons = *req.Capacity
	}
	p.UpdatedAt = time.Now().UTC()

	if _, err := tx.Exec(ctx,
		`UPDATE plants SET name = $1, address = $2, lat = $3, lng = $4,
		 capacity_tons = $5, updated_at = $6 WHERE id = $7`,
		p.Name, p.Address, p.Lat, p.Lng, p.CapacityTons, p.UpdatedAt, p.ID,
	); err != nil {
		return model.Plant{}, fmt.Errorf("storage: update plant: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Plant{}, fmt.Errorf("storage: commit update plant: %w", err)
	}
	return p, nil
}

// ListPlantsByOwner returns all plants owned by a recycler, newest first.
func (db *DB) ListPlantsByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Plant, error) {
	return db.queryPlants(ctx,
		`SELECT `+plantColumns+` FROM plants WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
}

// ListPlants returns all plants, newest first. Generators use this to pick a
// destination when requesting a pickup.
func (db *DB) ListPlants(ctx context.Context) ([]model.Plant, error) {
	return db.queryPlants(ctx,
		`SELECT `+plantColumns+` FROM plants ORDER BY created_at DESC`)
}

func (db *DB) queryPlants(ctx context.Context, query string, args ...any) ([]model.Plant, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: query plants: %w", err)
	}
	defer rows.Close()

	plants := []model.Plant{}
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan plant: %w", err)
		}
		plants = append(plants, p)
	}
	return plants, rows.Err()
}
