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

const intakeColumns = `id, generator_id, recycler_id, plant_id, category, quantity,
	actual_weight, contamination, distance_km, estimated_credits, issued_credits,
	status, qc_notes, purity_factor, recovery_efficiency, logistics_multiplier,
	site_lat, site_lng, qr_code, pickup_time, created_at, updated_at`

func scanIntake(row pgx.Row) (model.WasteIntake, error) {
	var in model.WasteIntake
	err := row.Scan(
		&in.ID, &in.GeneratorID, &in.RecyclerID, &in.PlantID, &in.Category, &in.Quantity,
		&in.ActualWeight, &in.Contamination, &in.DistanceKm, &in.EstimatedCredits, &in.IssuedCredits,
		&in.Status, &in.QCNotes, &in.PurityFactor, &in.Recovery, &in.Logistics,
		&in.SiteLat, &in.SiteLng, &in.QRCode, &in.PickupTime, &in.CreatedAt, &in.UpdatedAt,
	)
	return in, err
}

// CreateIntake inserts a new waste intake in the Pending state.
func (db *DB) CreateIntake(ctx context.Context, in model.WasteIntake) (model.WasteIntake, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	now := time.Now().UTC()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	in.UpdatedAt = now
	if in.Status == "" {
		in.Status = model.StatusPending
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO waste_intakes (id, generator_id, recycler_id, plant_id, category, quantity,
		 actual_weight, contamination, distance_km, estimated_credits, issued_credits,
		 status, qc_notes, purity_factor, recovery_efficiency, logistics_multiplier,
		 site_lat, site_lng, qr_code, pickup_time, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		 $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		in.ID, in.GeneratorID, in.RecyclerID, in.PlantID, string(in.Category), in.Quantity,
		in.ActualWeight, in.Contamination, in.DistanceKm, in.EstimatedCredits, in.IssuedCredits,
		string(in.Status), in.QCNotes, in.PurityFactor, in.Recovery, in.Logistics,
		in.SiteLat, in.SiteLng, in.QRCode, in.PickupTime, in.CreatedAt, in.UpdatedAt,
	)
	if err != nil {
		return model.WasteIntake{}, fmt.Errorf("storage: create intake: %w", err)
	}
	return in, nil
}

// GetIntake retrieves an intake by ID.
func (db *DB) GetIntake(ctx context.Context, id uuid.UUID) (model.WasteIntake, error) {
	in, err := scanIntake(db.pool.QueryRow(ctx,
		`SELECT `+intakeColumns+` FROM waste_intakes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.WasteIntake{}, ErrNotFound
		}
		return model.WasteIntake{}, fmt.Errorf("storage: get intake: %w", err)
	}
	return in, nil
}

// ListIntakesByGenerator returns a generator's intakes, newest first.
func (db *DB) ListIntakesByGenerator(ctx context.Context, generatorID uuid.UUID) ([]model.WasteIntake, error) {
	return db.queryIntakes(ctx,
		`SELECT `+intakeColumns+` FROM waste_intakes WHERE generator_id = $1 ORDER BY created_at DESC`,
		generatorID)
}

// ListIntakesByRecycler returns the intakes assigned to a recycler, newest first.
func (db *DB) ListIntakesByRecycler(ctx context.Context, recyclerID uuid.UUID) ([]model.WasteIntake, error) {
	return db.queryIntakes(ctx,
		`SELECT `+intakeColumns+` FROM waste_intakes WHERE recycler_id = $1 ORDER BY created_at DESC`,
		recyclerID)
}

func (db *DB) queryIntakes(ctx context.Context, query string, args ...any) ([]model.WasteIntake, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: query intakes: %w", err)
	}
	defer rows.Close()

	intakes := []model.WasteIntake{}
	for rows.Next() {
		in, err := scanIntake(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan intake: %w", err)
		}
		intakes = append(intakes, in)
	}
	return intakes, rows.Err()
}

// AdvanceIntakeStatus moves an intake to target under the transition rules.
// The row is locked for the duration of the check so concurrent advances
// serialize. Only the assigned recycler may advance an intake.
func (db *DB) AdvanceIntakeStatus(ctx context.Context, id, actorID uuid.UUID, target model.IntakeStatus) (model.WasteIntake, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.WasteIntake{}, fmt.Errorf("storage: begin advance tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	in, err := scanIntake(tx.QueryRow(ctx,
		`SELECT `+intakeColumns+` FROM waste_intakes WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.WasteIntake{}, ErrNotFound
		}
		return model.WasteIntake{}, fmt.Errorf("storage: lock intake: %w", err)
	}
	if in.RecyclerID != actorID {
		return model.WasteIntake{}, ErrNotOwner
	}
	if in.Status == model.StatusQCCompleted {
		return model.WasteIntake{}, ErrAlreadyCompleted
	}
	if !model.CanTransition(in.Status, target) {
		return model.WasteIntake{}, ErrInvalidTransition
	}

	in.Status = target
	in.UpdatedAt = time.Now().UTC()
	if _, err := tx.Exec(ctx,
		`UPDATE waste_intakes SET status = $1, updated_at = $2 WHERE id = $3`,
		string(in.Status), in.UpdatedAt, in.ID,
	); err != nil {
		return model.WasteIntake{}, fmt.Errorf("storage: advance intake: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.WasteIntake{}, fmt.Errorf("storage: commit advance: %w", err)
	}
	return in, nil
}

// QCCompletion carries the pre-computed effects of a quality check into the
// terminal transaction. The credit engine computes; storage applies.
type QCCompletion struct {
	IntakeID      uuid.UUID
	ActorID       uuid.UUID
	ActualWeight  float64
	Contamination float64
	Category      model.WasteCategory
	Notes         string
	IssuedCredits float64
	Purity        float64
	Recovery      float64
	Logistics     float64
	CO2Delta      float64
	Description   string
}

// CompleteQC applies the four-step QC effect as one transaction: finalize the
// intake record, credit the generator's wallet and lifetime aggregates, append
// the ledger entry, and accumulate the plant's rolling statistics. Any failed
// step rolls the whole thing back: credits are never issued without the
// intake reaching the terminal state, and vice versa. Transient conflicts
// (the generator row is contended by concurrent wallet traffic) are retried.
func (db *DB) CompleteQC(ctx context.Context, c QCCompletion) (model.WasteIntake, error) {
	var in model.WasteIntake
	err := withTxRetry(ctx, func() error {
		var err error
		in, err = db.completeQCOnce(ctx, c)
		return err
	})
	return in, err
}

func (db *DB) completeQCOnce(ctx context.Context, c QCCompletion) (model.WasteIntake, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.WasteIntake{}, fmt.Errorf("storage: begin qc tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	in, err := scanIntake(tx.QueryRow(ctx,
		`SELECT `+intakeColumns+` FROM waste_intakes WHERE id = $1 FOR UPDATE`, c.IntakeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.WasteIntake{}, ErrNotFound
		}
		return model.WasteIntake{}, fmt.Errorf("storage: lock intake: %w", err)
	}
	if in.RecyclerID != c.ActorID {
		return model.WasteIntake{}, ErrNotOwner
	}
	if in.Status == model.StatusQCCompleted {
		return model.WasteIntake{}, ErrAlreadyCompleted
	}

	now := time.Now().UTC()
	in.ActualWeight = &c.ActualWeight
	in.Contamination = &c.Contamination
	in.Category = c.Category
	in.IssuedCredits = c.IssuedCredits
	in.PurityFactor = &c.Purity
	in.Recovery = &c.Recovery
	in.Logistics = &c.Logistics
	in.Status = model.StatusQCCompleted
	in.QCNotes = c.Notes
	in.UpdatedAt = now

	if _, err := tx.Exec(ctx,
		`UPDATE waste_intakes SET actual_weight = $1, contamination = $2, category = $3,
		 issued_credits = $4, purity_factor = $5, recovery_efficiency = $6,
		 logistics_multiplier = $7, status = $8, qc_notes = $9, updated_at = $10
		 WHERE id = $11`,
		c.ActualWeight, c.Contamination, string(c.Category),
		c.IssuedCredits, c.Purity, c.Recovery,
		c.Logistics, string(model.StatusQCCompleted), c.Notes, now, in.ID,
	); err != nil {
		return model.WasteIntake{}, fmt.Errorf("storage: finalize intake: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET wallet_balance = wallet_balance + $1,
		 total_earned = total_earned + $1,
		 total_waste_sent = total_waste_sent + $2,
		 co2_saved = co2_saved + $3,
		 segregation_scores = array_append(segregation_scores, $4),
		 updated_at = $5
		 WHERE id = $6`,
		c.IssuedCredits, c.ActualWeight, c.CO2Delta, c.Purity, now, in.GeneratorID,
	); err != nil {
		return model.WasteIntake{}, fmt.Errorf("storage: credit generator: %w", err)
	}

	// The ledger records movements only. A tiny contaminated load can round
	// to zero credits; the intake still finalizes and the aggregates still
	// advance, but no zero-amount entry is written.
	if c.IssuedCredits > 0 {
		if err := insertTransactionTx(ctx, tx, model.WalletTransaction{
			UserID:      in.GeneratorID,
			Amount:      c.IssuedCredits,
			Kind:        model.TxCredit,
			Description: c.Description,
			ReferenceID: &in.ID,
			Reference:   model.RefWasteCredit,
			CreatedAt:   now,
		}); err != nil {
			return model.WasteIntake{}, err
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE plants SET total_waste_received = total_waste_received + $1,
		 total_credits_issued = total_credits_issued + $2,
		 utilization = LEAST(100, utilization + ($1 / capacity_tons) * 100),
		 updated_at = $3
		 WHERE id = $4`,
		c.ActualWeight, c.IssuedCredits, now, in.PlantID,
	); err != nil {
		return model.WasteIntake{}, fmt.Errorf("storage: accumulate plant: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.WasteIntake{}, fmt.Errorf("storage: commit qc: %w", err)
	}
	return in, nil
}

// GeneratorIntakeStats returns the request count and the waste tonnage sent
// since the start of the current month (actual weight once inspected,
// declared quantity before).
func (db *DB) GeneratorIntakeStats(ctx context.Context, generatorID uuid.UUID) (total int, wasteThisMonth float64, err error) {
	err = db.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		 COALESCE(SUM(COALESCE(actual_weight, quantity)) FILTER (WHERE created_at >= date_trunc('month', now())), 0)
		 FROM waste_intakes WHERE generator_id = $1`,
		generatorID,
	).Scan(&total, &wasteThisMonth)
	if err != nil {
		return 0, 0, fmt.Errorf("storage: generator intake stats: %w", err)
	}
	return total, wasteThisMonth, nil
}

// RecyclerIntakeStats returns request counts and today's received tonnage for
// the intakes assigned to a recycler.
func (db *DB) RecyclerIntakeStats(ctx context.Context, recyclerID uuid.UUID) (total, completed int, receivedToday float64, err error) {
	err = db.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		 COUNT(*) FILTER (WHERE status = $2),
		 COALESCE(SUM(COALESCE(actual_weight, quantity)) FILTER (WHERE created_at >= date_trunc('day', now())), 0)
		 FROM waste_intakes WHERE recycler_id = $1`,
		recyclerID, string(model.StatusQCCompleted),
	).Scan(&total, &completed, &receivedToday)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("storage: recycler intake stats: %w", err)
	}
	return total, completed, receivedToday, nil
}

// PlantAggregates sums the rolling statistics across a recycler's plants.
// Utilization is the mean over plants (0 when the recycler has none).
func (db *DB) PlantAggregates(ctx context.Context, ownerID uuid.UUID) (received, creditsIssued, revenue, meanUtilization float64, err error) {
	err = db.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_waste_received), 0),
		 COALESCE(SUM(total_credits_issued), 0),
		 COALESCE(SUM(total_revenue), 0),
		 COALESCE(AVG(utilization), 0)
		 FROM plants WHERE owner_id = $1`,
		ownerID,
	).Scan(&received, &creditsIssued, &revenue, &meanUtilization)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("storage: plant aggregates: %w", err)
	}
	return received, creditsIssued, revenue, meanUtilization, nil
}
