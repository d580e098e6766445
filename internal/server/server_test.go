package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastetrace/wastetrace/internal/auth"
	"github.com/wastetrace/wastetrace/internal/model"
	"github.com/wastetrace/wastetrace/internal/server"
	"github.com/wastetrace/wastetrace/internal/service/intake"
	"github.com/wastetrace/wastetrace/internal/service/stats"
	"github.com/wastetrace/wastetrace/internal/service/wallet"
	"github.com/wastetrace/wastetrace/internal/storage"
	"github.com/wastetrace/wastetrace/internal/testutil"
)

var (
	testSrv *httptest.Server
	testDB  *storage.DB
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	tc := testutil.MustStartPostgres()
	logger := testutil.TestLogger()

	var err error
	testDB, err = tc.NewTestDB(ctx, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up test database: %v\n", err)
		tc.Terminate()
		os.Exit(1)
	}

	jwtMgr, err := auth.NewJWTManager("", "", 24*time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create jwt manager: %v\n", err)
		os.Exit(1)
	}

	srv := server.New(server.ServerConfig{
		DB:                  testDB,
		JWTMgr:              jwtMgr,
		IntakeSvc:           intake.New(testDB, logger, "http://localhost:8080"),
		WalletSvc:           wallet.New(testDB, logger),
		StatsSvc:            stats.New(testDB),
		Logger:              logger,
		ReadTimeout:         30 * time.Second,
		WriteTimeout:        30 * time.Second,
		Version:             "test",
		MaxRequestBodyBytes: 1 << 20,
	})

	testSrv = httptest.NewServer(srv.Handler())

	code := m.Run()

	testSrv.Close()
	testDB.Close(ctx)
	tc.Terminate()
	os.Exit(code)
}

// doJSON sends a JSON request with an optional bearer token and returns the
// status code and raw body.
func doJSON(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, testSrv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

// decodeData unmarshals the data field of the standard response envelope.
func decodeData(t *testing.T, raw []byte, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

// errorCode extracts the error code from the standard error envelope.
func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	var envelope struct {
		Error model.ErrorDetail `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	return envelope.Error.Code
}

// registerUser creates an account with a unique email and returns its token
// and summary.
func registerUser(t *testing.T, role model.UserRole) (string, model.UserSummary) {
	t.Helper()
	status, raw := doJSON(t, http.MethodPost, "/auth/register", "", model.RegisterRequest{
		Name:     "Test " + string(role),
		Email:    fmt.Sprintf("%s-%s@example.com", role, uuid.NewString()),
		Password: "demo-password",
		Role:     role,
	})
	require.Equal(t, http.StatusCreated, status, "register: %s", raw)
	var resp model.AuthResponse
	decodeData(t, raw, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User
}

// createPlant registers a plant through the API for the given recycler token.
func createPlant(t *testing.T, recyclerToken string) model.Plant {
	t.Helper()
	capacity := 500.0
	status, raw := doJSON(t, http.MethodPost, "/v1/plants", recyclerToken, model.CreatePlantRequest{
		Name:     "Plant " + uuid.NewString()[:8],
		Address:  "Peenya Industrial Area",
		Lat:      13.0280,
		Lng:      77.5190,
		Capacity: &capacity,
	})
	require.Equal(t, http.StatusCreated, status, "create plant: %s", raw)
	var p model.Plant
	decodeData(t, raw, &p)
	return p
}

// issueCredits pushes one intake through the whole lifecycle so the generator
// ends up with 36.00 GC issued through QC.
func issueCredits(t *testing.T, generatorToken, recyclerToken string) model.WasteIntake {
	t.Helper()
	plant := createPlant(t, recyclerToken)

	status, raw := doJSON(t, http.MethodPost, "/v1/waste", generatorToken, model.CreateIntakeRequest{
		Category: model.WasteRCC,
		Quantity: 50,
		PlantID:  plant.ID,
	})
	require.Equal(t, http.StatusCreated, status, "create intake: %s", raw)
	var in model.WasteIntake
	decodeData(t, raw, &in)

	status, raw = doJSON(t, http.MethodPost, "/v1/waste/"+in.ID.String()+"/qc", recyclerToken, model.SubmitQCRequest{
		ActualWeight:  50,
		Contamination: 8,
	})
	require.Equal(t, http.StatusOK, status, "submit qc: %s", raw)
	var qc model.QCResponse
	decodeData(t, raw, &qc)
	return qc.Intake
}

func TestHealth(t *testing.T) {
	status, raw := doJSON(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)

	var health model.HealthResponse
	decodeData(t, raw, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "ok", health.Postgres)
}

func TestRegisterValidation(t *testing.T) {
	cases := []struct {
		name string
		req  model.RegisterRequest
	}{
		{"missing name", model.RegisterRequest{Email: "a@b.com", Password: "demo-password", Role: model.RoleGenerator}},
		{"bad email", model.RegisterRequest{Name: "A", Email: "not-an-email", Password: "demo-password", Role: model.RoleGenerator}},
		{"short password", model.RegisterRequest{Name: "A", Email: "a@b.com", Password: "short", Role: model.RoleGenerator}},
		{"bad role", model.RegisterRequest{Name: "A", Email: "a@b.com", Password: "demo-password", Role: "admin"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, raw := doJSON(t, http.MethodPost, "/auth/register", "", tc.req)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, model.ErrCodeInvalidInput, errorCode(t, raw))
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	_, user := registerUser(t, model.RoleGenerator)

	status, raw := doJSON(t, http.MethodPost, "/auth/register", "", model.RegisterRequest{
		Name:     "Copycat",
		Email:    user.Email,
		Password: "demo-password",
		Role:     model.RoleGenerator,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, model.ErrCodeConflict, errorCode(t, raw))
}

func TestLogin(t *testing.T) {
	_, user := registerUser(t, model.RoleGenerator)

	status, raw := doJSON(t, http.MethodPost, "/auth/login", "", model.LoginRequest{
		Email:    user.Email,
		Password: "demo-password",
	})
	require.Equal(t, http.StatusOK, status)
	var resp model.AuthResponse
	decodeData(t, raw, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID, resp.User.ID)

	// Wrong password and unknown email produce the same generic error.
	status, raw = doJSON(t, http.MethodPost, "/auth/login", "", model.LoginRequest{
		Email:    user.Email,
		Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, model.ErrCodeUnauthorized, errorCode(t, raw))

	status, _ = doJSON(t, http.MethodPost, "/auth/login", "", model.LoginRequest{
		Email:    "ghost@example.com",
		Password: "demo-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProfile(t *testing.T) {
	token, user := registerUser(t, model.RoleRecycler)

	status, raw := doJSON(t, http.MethodGet, "/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	var profile model.User
	decodeData(t, raw, &profile)
	assert.Equal(t, user.ID, profile.ID)
	assert.Equal(t, model.RoleRecycler, profile.Role)

	// The password hash must never leak.
	assert.NotContains(t, string(raw), "password")
}

func TestAuthRequired(t *testing.T) {
	status, raw := doJSON(t, http.MethodGet, "/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, model.ErrCodeUnauthorized, errorCode(t, raw))

	status, _ = doJSON(t, http.MethodGet, "/v1/wallet/balance", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRoleEnforcement(t *testing.T) {
	genToken, _ := registerUser(t, model.RoleGenerator)
	recToken, _ := registerUser(t, model.RoleRecycler)

	// Only recyclers register plants.
	status, raw := doJSON(t, http.MethodPost, "/v1/plants", genToken, model.CreatePlantRequest{Name: "x"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, model.ErrCodeForbidden, errorCode(t, raw))

	// Only generators create intakes.
	status, _ = doJSON(t, http.MethodPost, "/v1/waste", recToken, model.CreateIntakeRequest{})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, http.MethodGet, "/v1/waste/my", recToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestPlantLifecycle(t *testing.T) {
	recToken, recycler := registerUser(t, model.RoleRecycler)
	genToken, _ := registerUser(t, model.RoleGenerator)

	// Capacity defaults when omitted.
	status, raw := doJSON(t, http.MethodPost, "/v1/plants", recToken, model.CreatePlantRequest{
		Name: "Default Capacity Plant",
		Lat:  13.0,
		Lng:  77.5,
	})
	require.Equal(t, http.StatusCreated, status, "create plant: %s", raw)
	var p model.Plant
	decodeData(t, raw, &p)
	assert.Equal(t, recycler.ID, p.OwnerID)
	assert.InDelta(t, model.DefaultPlantCapacityTons, p.CapacityTons, 1e-9)

	// Owner listing.
	status, raw = doJSON(t, http.MethodGet, "/v1/plants/my", recToken, nil)
	require.Equal(t, http.StatusOK, status)
	var mine []model.Plant
	decodeData(t, raw, &mine)
	assert.Len(t, mine, 1)

	// Update.
	name := "Renamed"
	status, raw = doJSON(t, http.MethodPut, "/v1/plants/"+p.ID.String(), recToken, model.UpdatePlantRequest{Name: &name})
	require.Equal(t, http.StatusOK, status)
	var updated model.Plant
	decodeData(t, raw, &updated)
	assert.Equal(t, "Renamed", updated.Name)

	// Another recycler cannot update it.
	otherToken, _ := registerUser(t, model.RoleRecycler)
	status, raw = doJSON(t, http.MethodPut, "/v1/plants/"+p.ID.String(), otherToken, model.UpdatePlantRequest{Name: &name})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, model.ErrCodeForbidden, errorCode(t, raw))

	// Generators see the public directory.
	status, raw = doJSON(t, http.MethodGet, "/v1/plants", genToken, nil)
	require.Equal(t, http.StatusOK, status)
	var all []model.Plant
	decodeData(t, raw, &all)
	assert.NotEmpty(t, all)

	// Bad coordinates rejected.
	status, _ = doJSON(t, http.MethodPost, "/v1/plants", recToken, model.CreatePlantRequest{
		Name: "Nowhere",
		Lat:  91,
		Lng:  0,
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestIntakeLifecycle(t *testing.T) {
	genToken, _ := registerUser(t, model.RoleGenerator)
	recToken, recycler := registerUser(t, model.RoleRecycler)
	plant := createPlant(t, recToken)

	// Create: 50t of RCC previews at 50 x 0.8 x 0.9 x 1.0 = 36.00 GC.
	status, raw := doJSON(t, http.MethodPost, "/v1/waste", genToken, model.CreateIntakeRequest{
		Category: model.WasteRCC,
		Quantity: 50,
		PlantID:  plant.ID,
	})
	require.Equal(t, http.StatusCreated, status, "create intake: %s", raw)
	var in model.WasteIntake
	decodeData(t, raw, &in)
	assert.Equal(t, model.StatusPending, in.Status)
	assert.Equal(t, recycler.ID, in.RecyclerID)
	assert.InDelta(t, 36.00, in.EstimatedCredits, 1e-9)
	assert.True(t, strings.HasPrefix(in.QRCode, "data:image/png;base64,"), "QR code should be a PNG data URL")

	// Visible to both parties.
	status, _ = doJSON(t, http.MethodGet, "/v1/waste/"+in.ID.String(), genToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, http.MethodGet, "/v1/waste/"+in.ID.String(), recToken, nil)
	assert.Equal(t, http.StatusOK, status)

	// Third parties are shut out.
	strangerToken, _ := registerUser(t, model.RoleGenerator)
	status, raw = doJSON(t, http.MethodGet, "/v1/waste/"+in.ID.String(), strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, model.ErrCodeForbidden, errorCode(t, raw))

	// Listings.
	status, raw = doJSON(t, http.MethodGet, "/v1/waste/my", genToken, nil)
	require.Equal(t, http.StatusOK, status)
	var mine []model.WasteIntake
	decodeData(t, raw, &mine)
	assert.Len(t, mine, 1)

	status, raw = doJSON(t, http.MethodGet, "/v1/waste/incoming", recToken, nil)
	require.Equal(t, http.StatusOK, status)
	var incoming []model.WasteIntake
	decodeData(t, raw, &incoming)
	assert.Len(t, incoming, 1)

	// Advance forward, skipping states.
	status, raw = doJSON(t, http.MethodPatch, "/v1/waste/"+in.ID.String()+"/status", recToken, model.AdvanceStatusRequest{
		Status: model.StatusDelivered,
	})
	require.Equal(t, http.StatusOK, status, "advance: %s", raw)
	var advanced model.WasteIntake
	decodeData(t, raw, &advanced)
	assert.Equal(t, model.StatusDelivered, advanced.Status)

	// Backward is a conflict.
	status, raw = doJSON(t, http.MethodPatch, "/v1/waste/"+in.ID.String()+"/status", recToken, model.AdvanceStatusRequest{
		Status: model.StatusPicked,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, model.ErrCodeConflict, errorCode(t, raw))

	// QC Completed is not reachable through the status endpoint.
	status, _ = doJSON(t, http.MethodPatch, "/v1/waste/"+in.ID.String()+"/status", recToken, model.AdvanceStatusRequest{
		Status: model.StatusQCCompleted,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// QC: default 15 km distance keeps logistics at 1.0, so 50t at 8%
	// contamination issues exactly the estimate.
	status, raw = doJSON(t, http.MethodPost, "/v1/waste/"+in.ID.String()+"/qc", recToken, model.SubmitQCRequest{
		ActualWeight:  50,
		Contamination: 8,
		Notes:         "clean load",
	})
	require.Equal(t, http.StatusOK, status, "qc: %s", raw)
	var qc model.QCResponse
	decodeData(t, raw, &qc)
	assert.Equal(t, model.StatusQCCompleted, qc.Intake.Status)
	assert.InDelta(t, 36.00, qc.Intake.IssuedCredits, 1e-9)

	// Double QC must not double-credit.
	status, raw = doJSON(t, http.MethodPost, "/v1/waste/"+in.ID.String()+"/qc", recToken, model.SubmitQCRequest{
		ActualWeight:  50,
		Contamination: 8,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, model.ErrCodeConflict, errorCode(t, raw))

	// The generator's wallet reflects the issue.
	status, raw = doJSON(t, http.MethodGet, "/v1/wallet/balance", genToken, nil)
	require.Equal(t, http.StatusOK, status)
	var balance model.BalanceResponse
	decodeData(t, raw, &balance)
	assert.InDelta(t, 36.00, balance.Balance, 1e-9)
	assert.InDelta(t, 36.00, balance.TotalEarned, 1e-9)
}

func TestIntakeBadInput(t *testing.T) {
	genToken, _ := registerUser(t, model.RoleGenerator)

	status, raw := doJSON(t, http.MethodPost, "/v1/waste", genToken, model.CreateIntakeRequest{
		Category: "Plutonium",
		Quantity: 5,
		PlantID:  uuid.New(),
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, model.ErrCodeInvalidInput, errorCode(t, raw))

	status, raw = doJSON(t, http.MethodPost, "/v1/waste", genToken, model.CreateIntakeRequest{
		Category: model.WasteRCC,
		Quantity: 5,
		PlantID:  uuid.New(),
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, model.ErrCodeNotFound, errorCode(t, raw))

	status, _ = doJSON(t, http.MethodGet, "/v1/waste/not-a-uuid", genToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, http.MethodGet, "/v1/waste/"+uuid.NewString(), genToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestZeroCreditQC(t *testing.T) {
	genToken, _ := registerUser(t, model.RoleGenerator)
	recToken, _ := registerUser(t, model.RoleRecycler)
	plant := createPlant(t, recToken)

	status, raw := doJSON(t, http.MethodPost, "/v1/waste", genToken, model.CreateIntakeRequest{
		Category: model.WasteRCC,
		Quantity: 0.05,
		PlantID:  plant.ID,
	})
	require.Equal(t, http.StatusCreated, status, "create intake: %s", raw)
	var in model.WasteIntake
	decodeData(t, raw, &in)

	// 0.05t at 40% contamination, regraded to Heavily Contaminated: the
	// credit rounds to zero. QC must still complete the intake cleanly.
	status, raw = doJSON(t, http.MethodPost, "/v1/waste/"+in.ID.String()+"/qc", recToken, model.SubmitQCRequest{
		ActualWeight:  0.05,
		Contamination: 40,
		Category:      model.WasteHeavilyContaminated,
	})
	require.Equal(t, http.StatusOK, status, "zero-credit qc: %s", raw)
	var qc model.QCResponse
	decodeData(t, raw, &qc)
	assert.Equal(t, model.StatusQCCompleted, qc.Intake.Status)
	assert.Zero(t, qc.Intake.IssuedCredits)

	// No balance movement and no ledger entry for a zero issue.
	status, raw = doJSON(t, http.MethodGet, "/v1/wallet/balance", genToken, nil)
	require.Equal(t, http.StatusOK, status)
	var balance model.BalanceResponse
	decodeData(t, raw, &balance)
	assert.Zero(t, balance.Balance)

	status, raw = doJSON(t, http.MethodGet, "/v1/wallet/transactions", genToken, nil)
	require.Equal(t, http.StatusOK, status)
	var txs []model.WalletTransaction
	decodeData(t, raw, &txs)
	assert.Empty(t, txs)
}

func TestWalletFlow(t *testing.T) {
	genToken, _ := registerUser(t, model.RoleGenerator)
	recToken, recycler := registerUser(t, model.RoleRecycler)
	issueCredits(t, genToken, recToken) // 36.00 GC

	// Sell 10 GC at the fixed 1:50 rate.
	status, raw := doJSON(t, http.MethodPost, "/v1/wallet/sell", genToken, model.SellRequest{Amount: 10})
	require.Equal(t, http.StatusOK, status, "sell: %s", raw)
	var sold model.SellResponse
	decodeData(t, raw, &sold)
	assert.InDelta(t, 10, sold.Sold, 1e-9)
	assert.InDelta(t, 500, sold.Value, 1e-9)
	assert.InDelta(t, 26.00, sold.NewBalance, 1e-9)

	// Transfer to the recycler by email.
	status, raw = doJSON(t, http.MethodPost, "/v1/wallet/transfer", genToken, model.TransferRequest{
		ToEmail: recycler.Email,
		Amount:  6,
	})
	require.Equal(t, http.StatusOK, status, "transfer: %s", raw)
	var mutation model.WalletMutationResponse
	decodeData(t, raw, &mutation)
	assert.InDelta(t, 20.00, mutation.NewBalance, 1e-9)

	status, raw = doJSON(t, http.MethodGet, "/v1/wallet/balance", recToken, nil)
	require.Equal(t, http.StatusOK, status)
	var recBalance model.BalanceResponse
	decodeData(t, raw, &recBalance)
	assert.InDelta(t, 6.00, recBalance.Balance, 1e-9)

	// Overdraw is a conflict, not a 500.
	status, raw = doJSON(t, http.MethodPost, "/v1/wallet/sell", genToken, model.SellRequest{Amount: 1000})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, model.ErrCodeInsufficientBalance, errorCode(t, raw))

	// Ledger lists newest first and covers every mutation.
	status, raw = doJSON(t, http.MethodGet, "/v1/wallet/transactions", genToken, nil)
	require.Equal(t, http.StatusOK, status)
	var txs []model.WalletTransaction
	decodeData(t, raw, &txs)
	require.Len(t, txs, 3) // credit, sell debit, transfer debit
	assert.Equal(t, model.RefTransfer, txs[0].Reference)
	assert.Equal(t, model.RefSell, txs[1].Reference)
	assert.Equal(t, model.RefWasteCredit, txs[2].Reference)
}

func TestTransferRejections(t *testing.T) {
	genToken, generator := registerUser(t, model.RoleGenerator)
	recToken, _ := registerUser(t, model.RoleRecycler)
	issueCredits(t, genToken, recToken)

	// Self transfer.
	toSelf := generator.ID
	status, raw := doJSON(t, http.MethodPost, "/v1/wallet/transfer", genToken, model.TransferRequest{
		ToUserID: &toSelf,
		Amount:   5,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, model.ErrCodeSelfTransfer, errorCode(t, raw))

	// No recipient.
	status, _ = doJSON(t, http.MethodPost, "/v1/wallet/transfer", genToken, model.TransferRequest{Amount: 5})
	assert.Equal(t, http.StatusBadRequest, status)

	// Unknown recipient.
	status, _ = doJSON(t, http.MethodPost, "/v1/wallet/transfer", genToken, model.TransferRequest{
		ToEmail: "ghost@example.com",
		Amount:  5,
	})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMarketplaceFlow(t *testing.T) {
	genToken, _ := registerUser(t, model.RoleGenerator)
	recToken, _ := registerUser(t, model.RoleRecycler)
	issueCredits(t, genToken, recToken) // 36.00 GC

	status, raw := doJSON(t, http.MethodPost, "/v1/marketplace", recToken, model.CreateItemRequest{
		Name:     "Recycled Aggregate 20mm",
		Category: model.ItemAggregates,
		Price:    15,
		Stock:    1,
	})
	require.Equal(t, http.StatusCreated, status, "create item: %s", raw)
	var item model.MarketplaceItem
	decodeData(t, raw, &item)

	// Listing with and without a category filter.
	status, raw = doJSON(t, http.MethodGet, "/v1/marketplace?category=Aggregates", genToken, nil)
	require.Equal(t, http.StatusOK, status)
	var items []model.MarketplaceItem
	decodeData(t, raw, &items)
	assert.NotEmpty(t, items)

	status, _ = doJSON(t, http.MethodGet, "/v1/marketplace?category=Vibranium", genToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// Redeem.
	status, raw = doJSON(t, http.MethodPost, "/v1/marketplace/"+item.ID.String()+"/redeem", genToken, nil)
	require.Equal(t, http.StatusOK, status, "redeem: %s", raw)
	var redeemed struct {
		Item       model.MarketplaceItem `json:"item"`
		NewBalance float64               `json:"new_balance"`
	}
	decodeData(t, raw, &redeemed)
	assert.Equal(t, 0, redeemed.Item.Stock)
	assert.InDelta(t, 21.00, redeemed.NewBalance, 1e-9)

	// Second redemption hits empty stock.
	status, raw = doJSON(t, http.MethodPost, "/v1/marketplace/"+item.ID.String()+"/redeem", genToken, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, model.ErrCodeOutOfStock, errorCode(t, raw))

	// Listing validation.
	status, _ = doJSON(t, http.MethodPost, "/v1/marketplace", recToken, model.CreateItemRequest{
		Name:     "Free Bricks",
		Category: model.ItemBricks,
		Price:    0,
		Stock:    10,
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStatsEndpoints(t *testing.T) {
	genToken, _ := registerUser(t, model.RoleGenerator)
	recToken, _ := registerUser(t, model.RoleRecycler)
	issueCredits(t, genToken, recToken)

	status, raw := doJSON(t, http.MethodGet, "/v1/waste/stats", genToken, nil)
	require.Equal(t, http.StatusOK, status, "generator stats: %s", raw)
	var gs model.GeneratorStats
	decodeData(t, raw, &gs)
	assert.Equal(t, 1, gs.TotalRequests)
	assert.InDelta(t, 50, gs.WasteSentThisMonth, 1e-9)
	assert.InDelta(t, 36.00, gs.CreditsAvailable, 1e-9)
	assert.InDelta(t, 36.00, gs.TotalEarned, 1e-9)
	assert.InDelta(t, 25.00, gs.CO2Saved, 1e-9)
	assert.Equal(t, "B", gs.SegregationGrade)

	status, raw = doJSON(t, http.MethodGet, "/v1/waste/recycler-stats", recToken, nil)
	require.Equal(t, http.StatusOK, status, "recycler stats: %s", raw)
	var rs model.RecyclerStats
	decodeData(t, raw, &rs)
	assert.Equal(t, 1, rs.TotalRequests)
	assert.Equal(t, 1, rs.CompletedRequests)
	assert.Equal(t, 0, rs.PendingRequests)
	assert.InDelta(t, 50, rs.TotalWasteReceived, 1e-9)
	assert.InDelta(t, 36.00, rs.CreditsIssued, 1e-9)
	assert.InDelta(t, 10, rs.CapacityUtilization, 1e-9) // 50t of a 500t plant
}

func TestLeaderboardEndpoint(t *testing.T) {
	genToken, generator := registerUser(t, model.RoleGenerator)
	recToken, _ := registerUser(t, model.RoleRecycler)
	issueCredits(t, genToken, recToken)

	status, raw := doJSON(t, http.MethodGet, "/v1/leaderboard?limit=1000", genToken, nil)
	require.Equal(t, http.StatusOK, status)
	var entries []model.LeaderboardEntry
	decodeData(t, raw, &entries)
	require.NotEmpty(t, entries)

	found := false
	for _, e := range entries {
		if e.Name == generator.Name && e.TotalEarned == 36.00 {
			found = true
			assert.Equal(t, "B", e.SegregationGrade)
		}
	}
	assert.True(t, found, "generator should appear on the leaderboard")
}

func TestSubscribeWithoutBroker(t *testing.T) {
	token, _ := registerUser(t, model.RoleGenerator)
	status, _ := doJSON(t, http.MethodGet, "/v1/subscribe", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestUnknownFieldsRejected(t *testing.T) {
	status, raw := doJSON(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name":     "A",
		"email":    "a@b.com",
		"password": "demo-password",
		"role":     "generator",
		"is_admin": true,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, model.ErrCodeInvalidInput, errorCode(t, raw))
}

func TestRequestIDPropagation(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, testSrv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "trace-me-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var envelope struct {
		Meta model.ResponseMeta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Equal(t, "trace-me-123", envelope.Meta.RequestID)

	// Security headers come back on every response.
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}
