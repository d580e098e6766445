// Package wallet provides the business logic for the Green Credit wallet:
// balance reads, the transaction ledger, peer transfers, selling credits at
// the fixed rate, and marketplace redemptions.
package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/wastetrace/wastetrace/internal/credit"
	"github.com/wastetrace/wastetrace/internal/model"
	"github.com/wastetrace/wastetrace/internal/storage"
	"github.com/wastetrace/wastetrace/internal/telemetry"
)

// CreditSellRate is the fixed exchange rate: currency units per Green Credit.
const CreditSellRate = 50.0

// Service encapsulates wallet business logic shared by the HTTP handlers.
type Service struct {
	db     *storage.DB
	logger *slog.Logger

	creditsSold metric.Float64Counter
}

// New creates a wallet Service.
func New(db *storage.DB, logger *slog.Logger) *Service {
	meter := telemetry.Meter("wastetrace/wallet")
	sold, _ := meter.Float64Counter("wastetrace.credits.sold",
		metric.WithDescription("Green Credits sold at the fixed rate"),
	)
	return &Service{db: db, logger: logger, creditsSold: sold}
}

// Balance returns the user's current balance and lifetime earnings.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (model.BalanceResponse, error) {
	u, err := s.db.GetUser(ctx, userID)
	if err != nil {
		return model.BalanceResponse{}, err
	}
	return model.BalanceResponse{
		Balance:     u.WalletBalance,
		TotalEarned: u.TotalEarned,
	}, nil
}

// Transactions returns the user's ledger, newest first.
func (s *Service) Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]model.WalletTransaction, error) {
	return s.db.ListTransactions(ctx, userID, limit)
}

// Transfer moves credits from the caller to the recipient named by email or
// ID. Returns the caller's balance after the transfer.
func (s *Service) Transfer(ctx context.Context, fromID uuid.UUID, req model.TransferRequest) (float64, error) {
	if req.Amount <= 0 {
		return 0, model.Invalidf("amount must be positive")
	}

	var toID uuid.UUID
	switch {
	case req.ToUserID != nil:
		toID = *req.ToUserID
	case req.ToEmail != "":
		recipient, err := s.db.GetUserByEmail(ctx, req.ToEmail)
		if err != nil {
			return 0, err
		}
		toID = recipient.ID
	default:
		return 0, model.Invalidf("to_email or to_user_id is required")
	}

	balance, err := s.db.Transfer(ctx, fromID, toID, req.Amount, "")
	if err != nil {
		return 0, err
	}
	s.logger.Info("credits transferred", "from", fromID, "to", toID, "amount", req.Amount)
	return balance, nil
}

// Sell exchanges credits for currency at the fixed rate. The debit and its
// ledger entry commit together; the payout itself settles off-platform.
func (s *Service) Sell(ctx context.Context, userID uuid.UUID, amount float64) (model.SellResponse, error) {
	if amount <= 0 {
		return model.SellResponse{}, model.Invalidf("amount must be positive")
	}

	value := credit.Round2(amount * CreditSellRate)
	balance, err := s.db.Debit(ctx, userID, amount,
		fmt.Sprintf("Sold %.2f GC at rate %.0f", amount, CreditSellRate),
		model.RefSell, nil)
	if err != nil {
		return model.SellResponse{}, err
	}

	s.creditsSold.Add(ctx, amount)
	return model.SellResponse{
		Sold:       amount,
		Value:      value,
		NewBalance: balance,
	}, nil
}

// Redeem buys one unit of a marketplace item with credits.
func (s *Service) Redeem(ctx context.Context, userID, itemID uuid.UUID) (model.MarketplaceItem, float64, error) {
	item, balance, err := s.db.RedeemItem(ctx, userID, itemID)
	if err != nil {
		return model.MarketplaceItem{}, 0, err
	}
	s.logger.Info("item redeemed", "user", userID, "item", itemID, "price", item.Price)
	return item, balance, nil
}
