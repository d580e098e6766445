// Package intake provides the business logic for the waste intake lifecycle:
// creation with credit estimation, status advancement, and the terminal
// quality check that issues Green Credits.
package intake

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.opentelemetry.io/otel/metric"

	"github.com/wastetrace/wastetrace/internal/credit"
	"github.com/wastetrace/wastetrace/internal/geo"
	"github.com/wastetrace/wastetrace/internal/model"
	"github.com/wastetrace/wastetrace/internal/storage"
	"github.com/wastetrace/wastetrace/internal/telemetry"
)

// CO2PerTon is the CO2 tonnage avoided per ton of waste diverted from landfill.
const CO2PerTon = 0.5

// Service encapsulates intake business logic shared by the HTTP handlers.
type Service struct {
	db      *storage.DB
	logger  *slog.Logger
	baseURL string

	intakesCreated metric.Int64Counter
	creditsIssued  metric.Float64Counter
}

// New creates an intake Service. baseURL is embedded in pickup QR codes so
// scanning one opens the intake's tracking page.
func New(db *storage.DB, logger *slog.Logger, baseURL string) *Service {
	meter := telemetry.Meter("wastetrace/intake")
	created, _ := meter.Int64Counter("wastetrace.intakes.created",
		metric.WithDescription("Waste intakes created"),
	)
	issued, _ := meter.Float64Counter("wastetrace.credits.issued",
		metric.WithDescription("Green Credits issued through QC"),
	)
	return &Service{
		db:             db,
		logger:         logger,
		baseURL:        baseURL,
		intakesCreated: created,
		creditsIssued:  issued,
	}
}

// Create registers a new waste intake for a generator. The pickup distance is
// derived from the site and plant coordinates when the site is known,
// otherwise the default is assumed. The credit estimate is advisory and never
// reconciled with the QC result.
func (s *Service) Create(ctx context.Context, generatorID uuid.UUID, req model.CreateIntakeRequest) (model.WasteIntake, error) {
	if !model.ValidWasteCategory(req.Category) {
		return model.WasteIntake{}, model.Invalidf("unknown waste category: %q", req.Category)
	}
	if req.Quantity <= 0 {
		return model.WasteIntake{}, model.Invalidf("quantity must be positive")
	}
	if req.PlantID == uuid.Nil {
		return model.WasteIntake{}, model.Invalidf("plant_id is required")
	}

	plant, err := s.db.GetPlant(ctx, req.PlantID)
	if err != nil {
		return model.WasteIntake{}, err
	}

	distance := credit.DefaultDistanceKm
	var siteLat, siteLng float64
	if req.SiteLat != nil && req.SiteLng != nil {
		siteLat, siteLng = *req.SiteLat, *req.SiteLng
		distance = geo.HaversineKm(siteLat, siteLng, plant.Lat, plant.Lng)
	}

	estimate, err := credit.Estimate(req.Quantity, req.Category)
	if err != nil {
		return model.WasteIntake{}, model.Invalidf("%v", err)
	}

	in := model.WasteIntake{
		ID:               uuid.New(),
		GeneratorID:      generatorID,
		RecyclerID:       plant.OwnerID,
		PlantID:          plant.ID,
		Category:         req.Category,
		Quantity:         req.Quantity,
		DistanceKm:       distance,
		EstimatedCredits: estimate,
		Status:           model.StatusPending,
		SiteLat:          siteLat,
		SiteLng:          siteLng,
		PickupTime:       req.PickupTime,
	}
	in.QRCode = s.qrDataURL(in.ID)

	created, err := s.db.CreateIntake(ctx, in)
	if err != nil {
		return model.WasteIntake{}, err
	}

	s.intakesCreated.Add(ctx, 1)
	s.publishEvent(ctx, "intake.created", created)
	return created, nil
}

// Get returns an intake visible to the caller: its generator or its recycler.
func (s *Service) Get(ctx context.Context, id, callerID uuid.UUID) (model.WasteIntake, error) {
	in, err := s.db.GetIntake(ctx, id)
	if err != nil {
		return model.WasteIntake{}, err
	}
	if in.GeneratorID != callerID && in.RecyclerID != callerID {
		return model.WasteIntake{}, storage.ErrNotOwner
	}
	return in, nil
}

// ListForGenerator returns a generator's intakes, newest first.
func (s *Service) ListForGenerator(ctx context.Context, generatorID uuid.UUID) ([]model.WasteIntake, error) {
	return s.db.ListIntakesByGenerator(ctx, generatorID)
}

// ListForRecycler returns the intakes assigned to a recycler, newest first.
func (s *Service) ListForRecycler(ctx context.Context, recyclerID uuid.UUID) ([]model.WasteIntake, error) {
	return s.db.ListIntakesByRecycler(ctx, recyclerID)
}

// AdvanceStatus moves an intake forward through its lifecycle on behalf of
// the assigned recycler.
func (s *Service) AdvanceStatus(ctx context.Context, id, actorID uuid.UUID, target model.IntakeStatus) (model.WasteIntake, error) {
	if !model.ValidStatus(target) {
		return model.WasteIntake{}, model.Invalidf("unknown status: %q", target)
	}
	if target == model.StatusQCCompleted {
		return model.WasteIntake{}, model.Invalidf("QC Completed is set by QC submission, not status advance")
	}

	in, err := s.db.AdvanceIntakeStatus(ctx, id, actorID, target)
	if err != nil {
		return model.WasteIntake{}, err
	}
	s.publishEvent(ctx, "intake.status", in)
	return in, nil
}

// SubmitQC finalizes an intake: the recycler records the weighbridge result,
// the engine scores it, and the generator is credited atomically.
func (s *Service) SubmitQC(ctx context.Context, id, actorID uuid.UUID, req model.SubmitQCRequest) (model.WasteIntake, credit.Result, error) {
	if req.ActualWeight <= 0 {
		return model.WasteIntake{}, credit.Result{}, model.Invalidf("actual_weight must be positive")
	}
	if req.Contamination < 0 || req.Contamination > 100 {
		return model.WasteIntake{}, credit.Result{}, model.Invalidf("contamination must be between 0 and 100")
	}
	if req.Category != "" && !model.ValidWasteCategory(req.Category) {
		return model.WasteIntake{}, credit.Result{}, model.Invalidf("unknown waste category: %q", req.Category)
	}

	// Distance is immutable after creation, so reading it outside the QC
	// transaction is safe. The status check happens inside, under the row lock.
	in, err := s.db.GetIntake(ctx, id)
	if err != nil {
		return model.WasteIntake{}, credit.Result{}, err
	}

	category := in.Category
	if req.Category != "" {
		category = req.Category
	}
	distance := in.DistanceKm
	if distance <= 0 {
		distance = credit.DefaultDistanceKm
	}

	result, err := credit.Compute(req.ActualWeight, req.Contamination, category, distance)
	if err != nil {
		return model.WasteIntake{}, credit.Result{}, model.Invalidf("%v", err)
	}

	completed, err := s.db.CompleteQC(ctx, storage.QCCompletion{
		IntakeID:      id,
		ActorID:       actorID,
		ActualWeight:  req.ActualWeight,
		Contamination: req.Contamination,
		Category:      category,
		Notes:         req.Notes,
		IssuedCredits: result.GC,
		Purity:        result.Purity,
		Recovery:      result.Recovery,
		Logistics:     result.Logistics,
		CO2Delta:      credit.Round2(req.ActualWeight * CO2PerTon),
		Description:   fmt.Sprintf("Green Credits for %.2ft %s", req.ActualWeight, category),
	})
	if err != nil {
		return model.WasteIntake{}, credit.Result{}, err
	}

	s.creditsIssued.Add(ctx, result.GC)
	s.logger.Info("qc completed",
		"intake_id", id,
		"credits", result.GC,
		"category", string(category),
	)
	s.publishEvent(ctx, "intake.qc_completed", completed)
	return completed, result, nil
}

// qrDataURL renders the intake's tracking URL as a PNG QR code packed into a
// data URL, so clients can show it without another round trip.
func (s *Service) qrDataURL(id uuid.UUID) string {
	png, err := qrcode.Encode(s.baseURL+"/v1/waste/"+id.String(), qrcode.Medium, 256)
	if err != nil {
		s.logger.Warn("qr code generation failed", "intake_id", id, "error", err)
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// intakeEvent is the payload published on the intakes channel.
type intakeEvent struct {
	Kind        string             `json:"kind"`
	IntakeID    uuid.UUID          `json:"intake_id"`
	GeneratorID uuid.UUID          `json:"generator_id"`
	RecyclerID  uuid.UUID          `json:"recycler_id"`
	Status      model.IntakeStatus `json:"status"`
	Credits     float64            `json:"credits,omitempty"`
	At          time.Time          `json:"at"`
}

// publishEvent notifies live subscribers of a lifecycle change. Failure is
// logged and swallowed: events are best-effort, the write already committed.
func (s *Service) publishEvent(ctx context.Context, kind string, in model.WasteIntake) {
	if !s.db.HasNotifyConn() {
		return
	}
	payload, err := json.Marshal(intakeEvent{
		Kind:        kind,
		IntakeID:    in.ID,
		GeneratorID: in.GeneratorID,
		RecyclerID:  in.RecyclerID,
		Status:      in.Status,
		Credits:     in.IssuedCredits,
		At:          time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := s.db.Notify(ctx, storage.ChannelIntakes, string(payload)); err != nil {
		s.logger.Warn("intake event publish failed", "kind", kind, "error", err)
	}
}
