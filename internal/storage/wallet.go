package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wastetrace/wastetrace/internal/model"
)

const transactionColumns = `id, user_id, amount, kind, description, reference_id, reference_kind, created_at`

func scanTransaction(row pgx.Row) (model.WalletTransaction, error) {
	var t model.WalletTransaction
	err := row.Scan(&t.ID, &t.UserID, &t.Amount, &t.Kind, &t.Description,
		&t.ReferenceID, &t.Reference, &t.CreatedAt)
	return t, err
}

func insertTransactionTx(ctx context.Context, tx pgx.Tx, t model.WalletTransaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO wallet_transactions (id, user_id, amount, kind, description, reference_id, reference_kind, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.UserID, t.Amount, string(t.Kind), t.Description, t.ReferenceID, string(t.Reference), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: insert transaction: %w", err)
	}
	return nil
}

// debitTx lowers a user's balance inside tx, refusing when it would go
// negative. The conditional update makes the overdraw check and the mutation
// a single atomic statement.
func debitTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount float64, now time.Time) error {
	tag, err := tx.Exec(ctx,
		`UPDATE users SET wallet_balance = wallet_balance - $1, updated_at = $2
		 WHERE id = $3 AND wallet_balance >= $1`,
		amount, now, userID,
	)
	if err != nil {
		return fmt.Errorf("storage: debit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return fmt.Errorf("storage: debit existence check: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrInsufficientBalance
	}
	return nil
}

func creditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount float64, now time.Time) error {
	tag, err := tx.Exec(ctx,
		`UPDATE users SET wallet_balance = wallet_balance + $1, updated_at = $2 WHERE id = $3`,
		amount, now, userID,
	)
	if err != nil {
		return fmt.Errorf("storage: credit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBalance returns a user's current wallet balance.
func (db *DB) GetBalance(ctx context.Context, userID uuid.UUID) (float64, error) {
	var balance float64
	err := db.pool.QueryRow(ctx,
		`SELECT wallet_balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("storage: get balance: %w", err)
	}
	return balance, nil
}

// ListTransactions returns a user's ledger entries, newest first.
func (db *DB) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]model.WalletTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM wallet_transactions
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list transactions: %w", err)
	}
	defer rows.Close()

	txs := []model.WalletTransaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// Debit lowers a user's balance and appends the matching ledger entry in one
// transaction, retrying transient conflicts. Returns the balance after the
// debit.
func (db *DB) Debit(ctx context.Context, userID uuid.UUID, amount float64, description string, ref model.ReferenceKind, refID *uuid.UUID) (float64, error) {
	var balance float64
	err := withTxRetry(ctx, func() error {
		var err error
		balance, err = db.debitOnce(ctx, userID, amount, description, ref, refID)
		return err
	})
	return balance, err
}

func (db *DB) debitOnce(ctx context.Context, userID uuid.UUID, amount float64, description string, ref model.ReferenceKind, refID *uuid.UUID) (float64, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("storage: begin debit tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	if err := debitTx(ctx, tx, userID, amount, now); err != nil {
		return 0, err
	}
	if err := insertTransactionTx(ctx, tx, model.WalletTransaction{
		UserID:      userID,
		Amount:      amount,
		Kind:        model.TxDebit,
		Description: description,
		ReferenceID: refID,
		Reference:   ref,
		CreatedAt:   now,
	}); err != nil {
		return 0, err
	}

	var balance float64
	if err := tx.QueryRow(ctx,
		`SELECT wallet_balance FROM users WHERE id = $1`, userID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("storage: read balance: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("storage: commit debit: %w", err)
	}
	return balance, nil
}

// Transfer moves credits between two users: one debit, one credit, and a
// ledger entry on each side, all in a single transaction. Users are locked in
// ID order so concurrent opposing transfers cannot deadlock; residual
// serialization conflicts are retried.
func (db *DB) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount float64, note string) (float64, error) {
	if fromID == toID {
		return 0, ErrSelfTransfer
	}

	var balance float64
	err := withTxRetry(ctx, func() error {
		var err error
		balance, err = db.transferOnce(ctx, fromID, toID, amount, note)
		return err
	})
	return balance, err
}

func (db *DB) transferOnce(ctx context.Context, fromID, toID uuid.UUID, amount float64, note string) (float64, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("storage: begin transfer tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx,
		`SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		[]uuid.UUID{fromID, toID})
	if err != nil {
		return 0, fmt.Errorf("storage: lock transfer parties: %w", err)
	}
	locked := 0
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("storage: scan locked user: %w", err)
		}
		locked++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("storage: lock transfer parties: %w", err)
	}
	if locked != 2 {
		return 0, ErrNotFound
	}

	now := time.Now().UTC()
	if err := debitTx(ctx, tx, fromID, amount, now); err != nil {
		return 0, err
	}
	if err := creditTx(ctx, tx, toID, amount, now); err != nil {
		return 0, err
	}

	desc := note
	if desc == "" {
		desc = "Credit transfer"
	}
	if err := insertTransactionTx(ctx, tx, model.WalletTransaction{
		UserID:      fromID,
		Amount:      amount,
		Kind:        model.TxDebit,
		Description: desc,
		ReferenceID: &toID,
		Reference:   model.RefTransfer,
		CreatedAt:   now,
	}); err != nil {
		return 0, err
	}
	if err := insertTransactionTx(ctx, tx, model.WalletTransaction{
		UserID:      toID,
		Amount:      amount,
		Kind:        model.TxCredit,
		Description: desc,
		ReferenceID: &fromID,
		Reference:   model.RefTransfer,
		CreatedAt:   now,
	}); err != nil {
		return 0, err
	}

	var balance float64
	if err := tx.QueryRow(ctx,
		`SELECT wallet_balance FROM users WHERE id = $1`, fromID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("storage: read balance: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("storage: commit transfer: %w", err)
	}
	return balance, nil
}

// RedeemItem exchanges credits for one unit of a marketplace item. The stock
// decrement and the debit are both conditional updates in the same
// transaction, so neither stock nor balance can go negative under races.
// Transient conflicts are retried.
func (db *DB) RedeemItem(ctx context.Context, userID, itemID uuid.UUID) (model.MarketplaceItem, float64, error) {
	var (
		item    model.MarketplaceItem
		balance float64
	)
	err := withTxRetry(ctx, func() error {
		var err error
		item, balance, err = db.redeemItemOnce(ctx, userID, itemID)
		return err
	})
	return item, balance, err
}

func (db *DB) redeemItemOnce(ctx context.Context, userID, itemID uuid.UUID) (model.MarketplaceItem, float64, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.MarketplaceItem{}, 0, fmt.Errorf("storage: begin redeem tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	item, err := scanItem(tx.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM marketplace_items WHERE id = $1 FOR UPDATE`, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.MarketplaceItem{}, 0, ErrNotFound
		}
		return model.MarketplaceItem{}, 0, fmt.Errorf("storage: lock item: %w", err)
	}
	if item.Stock <= 0 {
		return model.MarketplaceItem{}, 0, ErrOutOfStock
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx,
		`UPDATE marketplace_items SET stock = stock - 1, updated_at = $1 WHERE id = $2`,
		now, item.ID,
	); err != nil {
		return model.MarketplaceItem{}, 0, fmt.Errorf("storage: decrement stock: %w", err)
	}
	item.Stock--
	item.UpdatedAt = now

	price := item.Price
	if err := debitTx(ctx, tx, userID, price, now); err != nil {
		return model.MarketplaceItem{}, 0, err
	}
	if err := insertTransactionTx(ctx, tx, model.WalletTransaction{
		UserID:      userID,
		Amount:      price,
		Kind:        model.TxDebit,
		Description: "Redeemed: " + item.Name,
		ReferenceID: &item.ID,
		Reference:   model.RefMarketplace,
		CreatedAt:   now,
	}); err != nil {
		return model.MarketplaceItem{}, 0, err
	}

	var balance float64
	if err := tx.QueryRow(ctx,
		`SELECT wallet_balance FROM users WHERE id = $1`, userID).Scan(&balance); err != nil {
		return model.MarketplaceItem{}, 0, fmt.Errorf("storage: read balance: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.MarketplaceItem{}, 0, fmt.Errorf("storage: commit redeem: %w", err)
	}
	return item, balance, nil
}
