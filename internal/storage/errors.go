package storage

import "errors"

// Sentinel errors returned by storage operations. Handlers map these to the
// API error codes; services wrap them with operation context via %w.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrEmailTaken is returned when registration reuses an existing email.
	ErrEmailTaken = errors.New("storage: email already registered")
	// ErrNotOwner is returned when the acting user does not own the resource.
	ErrNotOwner = errors.New("storage: actor does not own resource")
	// ErrInvalidTransition is returned for a disallowed status change.
	ErrInvalidTransition = errors.New("storage: invalid status transition")
	// ErrAlreadyCompleted is returned when QC is submitted on a terminal intake.
	ErrAlreadyCompleted = errors.New("storage: intake already QC completed")
	// ErrInsufficientBalance is returned when a debit exceeds the wallet balance.
	ErrInsufficientBalance = errors.New("storage: insufficient balance")
	// ErrOutOfStock is returned when redeeming an item with zero stock.
	ErrOutOfStock = errors.New("storage: item out of stock")
	// ErrSelfTransfer is returned when a transfer target equals its source.
	ErrSelfTransfer = errors.New("storage: cannot transfer to self")
	// ErrConflict is returned when a transaction keeps losing serialization or
	// deadlock races after the retry budget is spent. Clients should retry.
	ErrConflict = errors.New("storage: transaction conflict")
)
