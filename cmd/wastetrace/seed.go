package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wastetrace/wastetrace/internal/auth"
	"github.com/wastetrace/wastetrace/internal/model"
	"github.com/wastetrace/wastetrace/internal/storage"
)

// seedDemoData populates a fresh database with one generator, one recycler,
// a plant, and a few marketplace listings so the API can be exercised
// immediately. Runs only when the users table is empty.
func seedDemoData(ctx context.Context, db *storage.DB, logger *slog.Logger) error {
	count, err := db.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info("demo seed: skipped, users already exist", "count", count)
		return nil
	}

	hash, err := auth.HashPassword("demo-password")
	if err != nil {
		return err
	}

	generator, err := db.CreateUser(ctx, model.User{
		Name:         "Arjun Constructions",
		Email:        "generator@wastetrace.dev",
		PasswordHash: hash,
		Role:         model.RoleGenerator,
	})
	if err != nil {
		return fmt.Errorf("seed generator: %w", err)
	}

	recycler, err := db.CreateUser(ctx, model.User{
		Name:         "GreenCycle Recyclers",
		Email:        "recycler@wastetrace.dev",
		PasswordHash: hash,
		Role:         model.RoleRecycler,
	})
	if err != nil {
		return fmt.Errorf("seed recycler: %w", err)
	}

	plant, err := db.CreatePlant(ctx, model.Plant{
		OwnerID:      recycler.ID,
		Name:         "GreenCycle Plant 1",
		Address:      "Peenya Industrial Area, Bengaluru",
		Lat:          13.0280,
		Lng:          77.5190,
		CapacityTons: 120,
	})
	if err != nil {
		return fmt.Errorf("seed plant: %w", err)
	}

	items := []model.MarketplaceItem{
		{SellerID: recycler.ID, Name: "Recycled Aggregate 20mm", Description: "Crushed RCC aggregate, graded 20mm", Category: model.ItemAggregates, Price: 15, Stock: 500},
		{SellerID: recycler.ID, Name: "Eco Paver Block", Description: "Interlocking paver from recycled brick mix", Category: model.ItemPavers, Price: 8, Stock: 1200},
		{SellerID: recycler.ID, Name: "Manufactured Sand", Description: "M-sand from processed demolition waste", Category: model.ItemSand, Price: 12, Stock: 800},
	}
	for _, it := range items {
		if _, err := db.CreateItem(ctx, it); err != nil {
			return fmt.Errorf("seed item %q: %w", it.Name, err)
		}
	}

	logger.Info("demo seed: complete",
		"generator", generator.Email,
		"recycler", recycler.Email,
		"plant", plant.Name,
		"items", len(items),
	)
	return nil
}
