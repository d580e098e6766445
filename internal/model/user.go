// Package model defines the core domain types for Waste-Trace.
//
// Types correspond directly to database tables and API payloads. Strong
// typing (UUIDs, time.Time, enums) is used throughout; derived values such as
// the segregation grade are computed at read time and never persisted.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserRole is the account type, fixed at registration.
type UserRole string

const (
	// RoleGenerator is a construction-site account that produces waste and earns credits.
	RoleGenerator UserRole = "generator"
	// RoleRecycler is an account that owns plants, receives waste, and performs QC.
	RoleRecycler UserRole = "recycler"
)

// ValidRole reports whether r is a member of the role enumeration.
func ValidRole(r UserRole) bool {
	return r == RoleGenerator || r == RoleRecycler
}

// User is an account holding a Green Credit wallet.
//
// WalletBalance never goes negative; it is mutated only inside storage
// transactions that also append a WalletTransaction. The lifetime aggregates
// are monotonically non-decreasing and generator-only.
type User struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	Role              UserRole  `json:"role"`
	WalletBalance     float64   `json:"wallet_balance"`
	TotalEarned       float64   `json:"total_credits_earned"`
	TotalWasteSent    float64   `json:"total_waste_sent"`
	CO2Saved          float64   `json:"co2_saved"`
	SegregationScores []float64 `json:"segregation_scores"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SegregationGrade derives the letter grade from the user's purity-score
// history. Pure projection, computed on read: avg > 0.9 → A, avg ≥ 0.7 → B,
// otherwise C. An empty history grades as "N/A".
func (u User) SegregationGrade() string {
	return GradeForScores(u.SegregationScores)
}

// GradeForScores implements the segregation grade rule for a score history.
func GradeForScores(scores []float64) string {
	if len(scores) == 0 {
		return "N/A"
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	avg := sum / float64(len(scores))
	switch {
	case avg > 0.9:
		return "A"
	case avg >= 0.7:
		return "B"
	default:
		return "C"
	}
}

// ValidateEmail performs the minimal structural check the API enforces.
// Deliverability is not our problem; shape is.
func ValidateEmail(email string) error {
	if len(email) < 3 || len(email) > 254 {
		return fmt.Errorf("email must be 3-254 characters")
	}
	at := -1
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			if at >= 0 {
				return fmt.Errorf("email contains multiple @ signs")
			}
			at = i
		}
	}
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("email must contain a local part and a domain")
	}
	return nil
}
