package model

import (
	"time"

	"github.com/google/uuid"
)

// WasteCategory is the declared classification of a load of C&D waste.
type WasteCategory string

const (
	WasteRCC                 WasteCategory = "RCC"
	WasteBrickMix            WasteCategory = "Brick Mix"
	WasteMixed               WasteCategory = "Mixed Waste"
	WasteHeavilyContaminated WasteCategory = "Heavily Contaminated"
)

// WasteCategories lists the known categories in declaration order.
var WasteCategories = []WasteCategory{
	WasteRCC, WasteBrickMix, WasteMixed, WasteHeavilyContaminated,
}

// ValidWasteCategory reports whether c is a member of the category enumeration.
func ValidWasteCategory(c WasteCategory) bool {
	for _, known := range WasteCategories {
		if c == known {
			return true
		}
	}
	return false
}

// IntakeStatus is the lifecycle state of a waste intake.
type IntakeStatus string

const (
	StatusPending     IntakeStatus = "Pending"
	StatusAssigned    IntakeStatus = "Assigned"
	StatusEnRoute     IntakeStatus = "En Route"
	StatusPicked      IntakeStatus = "Picked"
	StatusDelivered   IntakeStatus = "Delivered"
	StatusQCCompleted IntakeStatus = "QC Completed"
)

// statusRank orders the lifecycle. QC Completed is terminal.
var statusRank = map[IntakeStatus]int{
	StatusPending:     0,
	StatusAssigned:    1,
	StatusEnRoute:     2,
	StatusPicked:      3,
	StatusDelivered:   4,
	StatusQCCompleted: 5,
}

// ValidStatus reports whether s is a member of the status enumeration.
func ValidStatus(s IntakeStatus) bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether an intake may move from one status to a
// target via the generic status-advance path. Forward jumps are allowed
// (a recycler may mark a load Delivered without recording En Route), backward
// moves are not, the terminal state admits no transitions, and QC Completed is
// reachable only through the QC submission path, never through this one.
func CanTransition(from, to IntakeStatus) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	if from == StatusQCCompleted || to == StatusQCCompleted {
		return false
	}
	return toRank > fromRank
}

// WasteIntake is one waste pickup-to-recycling lifecycle instance.
//
// EstimatedCredits is advisory, fixed at creation. ActualWeight,
// Contamination, and the three factors are populated exactly once at the QC
// transition and immutable thereafter; IssuedCredits is non-zero only in the
// QC Completed state.
type WasteIntake struct {
	ID               uuid.UUID     `json:"id"`
	GeneratorID      uuid.UUID     `json:"generator_id"`
	RecyclerID       uuid.UUID     `json:"recycler_id"`
	PlantID          uuid.UUID     `json:"plant_id"`
	Category         WasteCategory `json:"waste_category"`
	Quantity         float64       `json:"quantity"` // declared tons
	ActualWeight     *float64      `json:"actual_weight,omitempty"`
	Contamination    *float64      `json:"contamination,omitempty"` // percent
	DistanceKm       float64       `json:"distance_km"`
	EstimatedCredits float64       `json:"estimated_credits"`
	IssuedCredits    float64       `json:"issued_credits"`
	Status           IntakeStatus  `json:"status"`
	QCNotes          string        `json:"qc_notes,omitempty"`
	PurityFactor     *float64      `json:"purity_factor,omitempty"`
	Recovery         *float64      `json:"recovery_efficiency,omitempty"`
	Logistics        *float64      `json:"logistics_multiplier,omitempty"`
	SiteLat          float64       `json:"site_lat"`
	SiteLng          float64       `json:"site_lng"`
	QRCode           string        `json:"qr_code,omitempty"` // data URL, set at creation
	PickupTime       *time.Time    `json:"pickup_time,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}
