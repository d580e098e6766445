package model

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind distinguishes ledger entries that raise the balance from
// those that lower it. Amounts are stored as positive magnitudes.
type TransactionKind string

const (
	TxCredit TransactionKind = "credit"
	TxDebit  TransactionKind = "debit"
)

// ReferenceKind tags the entity that originated a ledger entry.
type ReferenceKind string

const (
	RefWasteCredit ReferenceKind = "waste_credit"
	RefMarketplace ReferenceKind = "marketplace"
	RefTransfer    ReferenceKind = "transfer"
	RefSell        ReferenceKind = "sell"
)

// WalletTransaction is an immutable ledger entry. Once created it is never
// mutated or deleted; for every user, credits minus debits must equal the
// current wallet balance at all times.
type WalletTransaction struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Amount      float64         `json:"amount"` // positive magnitude
	Kind        TransactionKind `json:"kind"`
	Description string          `json:"description"`
	ReferenceID *uuid.UUID      `json:"reference_id,omitempty"`
	Reference   ReferenceKind   `json:"reference_kind"`
	CreatedAt   time.Time       `json:"created_at"`
}
