package model

import (
	"time"

	"github.com/google/uuid"
)

// Plant is a recycling facility owned by exactly one recycler.
//
// Utilization rises with each completed intake's actual weight as a fraction
// of daily capacity, capped at 100. Cumulative totals are purely additive.
type Plant struct {
	ID                 uuid.UUID `json:"id"`
	OwnerID            uuid.UUID `json:"owner_id"`
	Name               string    `json:"name"`
	Address            string    `json:"address"`
	Lat                float64   `json:"lat"`
	Lng                float64   `json:"lng"`
	CapacityTons       float64   `json:"capacity_tons"` // per day
	Utilization        float64   `json:"utilization"`   // percent, 0-100
	TotalWasteReceived float64   `json:"total_waste_received"`
	TotalCreditsIssued float64   `json:"total_credits_issued"`
	TotalRevenue       float64   `json:"total_revenue"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DefaultPlantCapacityTons applies when a plant is registered without one.
const DefaultPlantCapacityTons = 100.0
