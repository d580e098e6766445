package model

import (
	"time"

	"github.com/google/uuid"
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrCodeOutOfStock          = "OUT_OF_STOCK"
	ErrCodeSelfTransfer        = "SELF_TRANSFER"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeRateLimited         = "RATE_LIMITED"
)

// RegisterRequest is the request body for POST /auth/register.
type RegisterRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Role     UserRole `json:"role"`
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the response for register and login.
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserSummary `json:"user"`
}

// UserSummary is the public subset of a user returned by auth endpoints.
type UserSummary struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          UserRole  `json:"role"`
	WalletBalance float64   `json:"wallet_balance"`
}

// Summary projects a User to its public subset.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		WalletBalance: u.WalletBalance,
	}
}

// CreateIntakeRequest is the request body for POST /v1/waste.
type CreateIntakeRequest struct {
	Category   WasteCategory `json:"waste_category"`
	Quantity   float64       `json:"quantity"`
	PlantID    uuid.UUID     `json:"plant_id"`
	SiteLat    *float64      `json:"site_lat,omitempty"`
	SiteLng    *float64      `json:"site_lng,omitempty"`
	PickupTime *time.Time    `json:"pickup_time,omitempty"`
}

// AdvanceStatusRequest is the request body for PATCH /v1/waste/{id}/status.
type AdvanceStatusRequest struct {
	Status IntakeStatus `json:"status"`
}

// SubmitQCRequest is the request body for POST /v1/waste/{id}/qc.
// Category optionally reclassifies the load; empty keeps the declared one.
type SubmitQCRequest struct {
	ActualWeight  float64       `json:"actual_weight"`
	Contamination float64       `json:"contamination"`
	Category      WasteCategory `json:"waste_category,omitempty"`
	Notes         string        `json:"notes,omitempty"`
}

// QCResponse is the response for POST /v1/waste/{id}/qc.
type QCResponse struct {
	Intake       WasteIntake `json:"intake"`
	CreditResult any         `json:"credit_result"`
}

// BalanceResponse is the response for GET /v1/wallet/balance.
type BalanceResponse struct {
	Balance     float64 `json:"balance"`
	TotalEarned float64 `json:"total_earned"`
}

// TransferRequest is the request body for POST /v1/wallet/transfer.
// Exactly one of ToEmail or ToUserID identifies the recipient.
type TransferRequest struct {
	ToEmail  string     `json:"to_email,omitempty"`
	ToUserID *uuid.UUID `json:"to_user_id,omitempty"`
	Amount   float64    `json:"amount"`
}

// SellRequest is the request body for POST /v1/wallet/sell.
type SellRequest struct {
	Amount float64 `json:"amount"`
}

// SellResponse is the response for POST /v1/wallet/sell.
type SellResponse struct {
	Sold       float64 `json:"sold"`
	Value      float64 `json:"value"` // currency units at the fixed rate
	NewBalance float64 `json:"new_balance"`
}

// WalletMutationResponse is the response for transfer and redeem.
type WalletMutationResponse struct {
	NewBalance float64 `json:"new_balance"`
}

// CreatePlantRequest is the request body for POST /v1/plants.
type CreatePlantRequest struct {
	Name     string   `json:"name"`
	Address  string   `json:"address,omitempty"`
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Capacity *float64 `json:"capacity_tons,omitempty"`
}

// UpdatePlantRequest is the request body for PUT /v1/plants/{id}.
// Nil fields are left unchanged.
type UpdatePlantRequest struct {
	Name     *string  `json:"name,omitempty"`
	Address  *string  `json:"address,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	Capacity *float64 `json:"capacity_tons,omitempty"`
}

// CreateItemRequest is the request body for POST /v1/marketplace.
type CreateItemRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Category    ItemCategory `json:"category"`
	Price       float64      `json:"price_in_credits"`
	Stock       int          `json:"stock"`
}

// LeaderboardEntry is one row of the generator leaderboard, ranked by
// lifetime credits earned. The grade is derived at read time.
type LeaderboardEntry struct {
	Rank             int     `json:"rank"`
	Name             string  `json:"name"`
	TotalEarned      float64 `json:"total_credits_earned"`
	TotalWasteSent   float64 `json:"total_waste_sent"`
	CO2Saved         float64 `json:"co2_saved"`
	SegregationGrade string  `json:"segregation_grade"`
}

// GeneratorStats is the response for GET /v1/waste/stats.
type GeneratorStats struct {
	TotalRequests      int     `json:"total_requests"`
	WasteSentThisMonth float64 `json:"waste_sent_this_month"`
	CreditsAvailable   float64 `json:"credits_available"`
	TotalEarned        float64 `json:"total_credits_earned"`
	TotalWasteSent     float64 `json:"total_waste_sent"`
	CO2Saved           float64 `json:"co2_saved"`
	SegregationGrade   string  `json:"segregation_grade"`
}

// RecyclerStats is the response for GET /v1/waste/recycler-stats.
type RecyclerStats struct {
	TotalWasteReceived  float64 `json:"total_waste_received"`
	WasteReceivedToday  float64 `json:"waste_received_today"`
	CapacityUtilization float64 `json:"capacity_utilization"` // mean across plants
	CreditsIssued       float64 `json:"credits_issued"`
	TotalRevenue        float64 `json:"total_revenue"`
	TotalRequests       int     `json:"total_requests"`
	CompletedRequests   int     `json:"completed_requests"`
	PendingRequests     int     `json:"pending_requests"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Postgres string `json:"postgres"`
	Broker   string `json:"broker,omitempty"`
	Uptime   int64  `json:"uptime_seconds"`
}
