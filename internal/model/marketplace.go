package model

import (
	"time"

	"github.com/google/uuid"
)

// ItemCategory classifies a marketplace listing.
type ItemCategory string

const (
	ItemAggregates ItemCategory = "Aggregates"
	ItemPavers     ItemCategory = "Pavers"
	ItemSand       ItemCategory = "Sand"
	ItemBricks     ItemCategory = "Bricks"
	ItemOther      ItemCategory = "Other"
)

// ValidItemCategory reports whether c is a known listing category.
func ValidItemCategory(c ItemCategory) bool {
	switch c {
	case ItemAggregates, ItemPavers, ItemSand, ItemBricks, ItemOther:
		return true
	}
	return false
}

// MarketplaceItem is a recycled product redeemable for Green Credits.
// Redemption debits the buyer's wallet and decrements stock atomically.
type MarketplaceItem struct {
	ID          uuid.UUID    `json:"id"`
	SellerID    uuid.UUID    `json:"seller_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    ItemCategory `json:"category"`
	Price       float64      `json:"price_in_credits"`
	Stock       int          `json:"stock"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
