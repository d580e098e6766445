// Package stats aggregates dashboard figures for generators and recyclers.
package stats

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wastetrace/wastetrace/internal/model"
	"github.com/wastetrace/wastetrace/internal/storage"
)

// Service computes read-only dashboard aggregates.
type Service struct {
	db *storage.DB
}

// New creates a stats Service.
func New(db *storage.DB) *Service {
	return &Service{db: db}
}

// Generator assembles the generator dashboard: lifetime aggregates from the
// user row plus intake counts. The two queries run concurrently.
func (s *Service) Generator(ctx context.Context, userID uuid.UUID) (model.GeneratorStats, error) {
	var (
		user           model.User
		totalRequests  int
		wasteThisMonth float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.db.GetUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		totalRequests, wasteThisMonth, err = s.db.GeneratorIntakeStats(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.GeneratorStats{}, err
	}

	return model.GeneratorStats{
		TotalRequests:      totalRequests,
		WasteSentThisMonth: wasteThisMonth,
		CreditsAvailable:   user.WalletBalance,
		TotalEarned:        user.TotalEarned,
		TotalWasteSent:     user.TotalWasteSent,
		CO2Saved:           user.CO2Saved,
		SegregationGrade:   user.SegregationGrade(),
	}, nil
}

// Recycler assembles the recycler dashboard: plant accumulators plus intake
// counts across the recycler's assigned loads.
func (s *Service) Recycler(ctx context.Context, userID uuid.UUID) (model.RecyclerStats, error) {
	var (
		received, creditsIssued, revenue, utilization float64
		total, completed                              int
		receivedToday                                 float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		received, creditsIssued, revenue, utilization, err = s.db.PlantAggregates(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		total, completed, receivedToday, err = s.db.RecyclerIntakeStats(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.RecyclerStats{}, err
	}

	return model.RecyclerStats{
		TotalWasteReceived:  received,
		WasteReceivedToday:  receivedToday,
		CapacityUtilization: utilization,
		CreditsIssued:       creditsIssued,
		TotalRevenue:        revenue,
		TotalRequests:       total,
		CompletedRequests:   completed,
		PendingRequests:     total - completed,
	}, nil
}
