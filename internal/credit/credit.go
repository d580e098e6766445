// Package credit implements the Green Credit calculation engine.
//
// A completed quality check is converted into an issued credit amount:
//
//	GC = Q × P × R × L
//
// where Q is the inspected weight in tons, P the purity factor derived from
// contamination, R the recovery efficiency of the waste category, and L the
// logistics multiplier derived from haul distance. All functions are pure and
// deterministic; the engine holds no state.
package credit

import (
	"errors"
	"fmt"
	"math"

	"github.com/wastetrace/wastetrace/internal/model"
)

var (
	// ErrQuantityRange is returned when the inspected weight is not positive.
	ErrQuantityRange = errors.New("credit: quantity must be greater than zero")
	// ErrContaminationRange is returned when contamination is outside [0,100].
	// Out-of-range input is a caller error, never silently clamped: a clamped
	// value would issue miscalculated credits.
	ErrContaminationRange = errors.New("credit: contamination must be between 0 and 100")
)

const (
	// DefaultRecoveryEfficiency applies to waste categories outside the known
	// table. Kept as a named default rather than an error for compatibility
	// with historical intake records.
	DefaultRecoveryEfficiency = 0.5

	// DefaultDistanceKm is assumed when an intake has no recorded distance.
	DefaultDistanceKm = 15.0

	// EstimatePurity and EstimateLogistics are the assumed factors for the
	// pre-QC credit preview, when contamination and distance are unknown.
	EstimatePurity    = 0.8
	EstimateLogistics = 1.0
)

// recoveryTable maps waste categories to recovery efficiency.
var recoveryTable = map[model.WasteCategory]float64{
	model.WasteRCC:                 0.9,
	model.WasteBrickMix:            0.7,
	model.WasteMixed:               0.5,
	model.WasteHeavilyContaminated: 0.3,
}

// Result is the outcome of a credit computation: the issued amount and the
// factors that produced it. Factors are persisted on the intake record at QC.
type Result struct {
	GC        float64 `json:"gc"`
	Quantity  float64 `json:"quantity"`
	Purity    float64 `json:"purity_factor"`
	Recovery  float64 `json:"recovery_efficiency"`
	Logistics float64 `json:"logistics_multiplier"`
	Breakdown string  `json:"breakdown"`
}

// PurityFactor maps a contamination percentage to the purity factor tier.
// The caller must have validated contamination to [0,100].
func PurityFactor(contamination float64) float64 {
	switch {
	case contamination <= 5:
		return 1.0
	case contamination <= 15:
		return 0.8
	case contamination <= 30:
		return 0.6
	default:
		return 0.3
	}
}

// RecoveryEfficiency returns the recovery efficiency for a waste category.
// Unknown categories fall back to DefaultRecoveryEfficiency.
func RecoveryEfficiency(category model.WasteCategory) float64 {
	if r, ok := recoveryTable[category]; ok {
		return r
	}
	return DefaultRecoveryEfficiency
}

// LogisticsMultiplier maps a haul distance in kilometers to the logistics tier.
// Short hauls (<10 km) are rewarded, long hauls (>25 km) penalized.
func LogisticsMultiplier(distanceKm float64) float64 {
	switch {
	case distanceKm < 10:
		return 1.2
	case distanceKm <= 25:
		return 1.0
	default:
		return 0.8
	}
}

// Compute calculates the issued Green Credit amount for a quality check.
// quantity is the inspected actual weight in tons and must be positive;
// contamination must be within [0,100].
func Compute(quantity, contamination float64, category model.WasteCategory, distanceKm float64) (Result, error) {
	if quantity <= 0 {
		return Result{}, ErrQuantityRange
	}
	if contamination < 0 || contamination > 100 {
		return Result{}, ErrContaminationRange
	}

	p := PurityFactor(contamination)
	r := RecoveryEfficiency(category)
	l := LogisticsMultiplier(distanceKm)
	gc := Round2(quantity * p * r * l)

	return Result{
		GC:        gc,
		Quantity:  quantity,
		Purity:    p,
		Recovery:  r,
		Logistics: l,
		Breakdown: fmt.Sprintf("GC = %g × %g × %g × %g = %g", quantity, p, r, l, gc),
	}, nil
}

// Estimate returns the advisory pre-QC credit preview using the assumed
// purity and logistics defaults. The result is persisted once at intake
// creation and never used as the issued value.
func Estimate(quantity float64, category model.WasteCategory) (float64, error) {
	if quantity <= 0 {
		return 0, ErrQuantityRange
	}
	return Round2(quantity * EstimatePurity * RecoveryEfficiency(category) * EstimateLogistics), nil
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
