package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	distsvc "sukuk-backend/internal/application/distribution"
	reconsvc "sukuk-backend/internal/application/reconcile"
	"sukuk-backend/internal/domain"
	"sukuk-backend/internal/infrastructure/database"
	"sukuk-backend/internal/ledger"
	"sukuk-backend/internal/middleware"
	"sukuk-backend/internal/notifications"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	ownerAddr    = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	investorAddr = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type fakeGateway struct {
	partitions map[string]map[string]int64
	issued     int
	transfers  int
}

func (f *fakeGateway) CreatePartition(ctx context.Context, name string) (ledger.Outcome, string, error) {
	if _, ok := f.partitions[name]; ok {
		return ledger.OutcomeAlreadyExists, "", nil
	}
	f.partitions[name] = map[string]int64{}
	return ledger.OutcomeCreated, "0xpartition", nil
}

func (f *fakeGateway) Issue(ctx context.Context, partition, to string, amount int64) (string, error) {
	f.issued++
	f.partitions[partition][to] += amount
	return fmt.Sprintf("0xissue%d", f.issued), nil
}

func (f *fakeGateway) OperatorTransfer(ctx context.Context, partition, from, to string, amount int64) (string, error) {
	f.transfers++
	f.partitions[partition][from] -= amount
	f.partitions[partition][to] += amount
	return fmt.Sprintf("0xtransfer%d", f.transfers), nil
}

func (f *fakeGateway) BalanceOf(ctx context.Context, partition, address string) (int64, error) {
	return f.partitions[partition][address], nil
}

func (f *fakeGateway) AddToWhitelist(ctx context.Context, address string) (string, error) {
	return "0xwhitelist", nil
}

func (f *fakeGateway) ListPartitions(ctx context.Context) ([]string, error) {
	return nil, nil
}

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	owner    domain.User
	investor domain.User
	prop     domain.Property
}

// sessionAs fakes the session middleware for one logged-in user.
func sessionAs(user *domain.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals("user", map[string]interface{}{
				"user_id":  user.UserID.String(),
				"fullname": user.Fullname,
				"role":     user.Role,
			})
		}
		return c.Next()
	}
}

func setup(t *testing.T, as func() *domain.User) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	env := &testEnv{db: db}
	env.owner = domain.User{Fullname: "Owner", Email: "owner@example.com", Role: domain.RoleOwner}
	env.investor = domain.User{Fullname: "Investor", Email: "investor@example.com", Role: domain.RoleInvestor}
	require.NoError(t, db.Create(&env.owner).Error)
	require.NoError(t, db.Create(&env.investor).Error)

	env.prop = domain.Property{OwnerID: env.owner.UserID, Title: "Harbour Lofts", Valuation: 50000}
	require.NoError(t, db.Create(&env.prop).Error)
	require.NoError(t, db.Create(&domain.Sukuk{
		PropertyID:  env.prop.PropertyID,
		TotalTokens: 1000,
		TokenPrice:  50,
		Status:      domain.SukukStatusDraft,
	}).Error)
	require.NoError(t, db.Create(&domain.Wallet{UserID: env.owner.UserID, Address: ownerAddr, IsPrimary: true}).Error)
	require.NoError(t, db.Create(&domain.Wallet{UserID: env.investor.UserID, Address: investorAddr, IsPrimary: true}).Error)

	gw := &fakeGateway{partitions: map[string]map[string]int64{}}
	notifier := &notifications.Notifier{}
	h := &Handlers{
		Reconcile:    &reconsvc.Service{DB: db, Gateway: gw, Notifier: notifier},
		Distribution: &distsvc.Service{DB: db, Notifier: notifier},
	}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		return sessionAs(as())(c)
	})
	grp := app.Group("/api/v1/assets", middleware.RequireAuth())
	grp.Post("/:id/tokenize", h.Tokenize)
	grp.Post("/:id/issue", h.Issue)
	grp.Post("/:id/transfer", h.Transfer)
	grp.Post("/:id/distribute", h.Distribute)
	grp.Get("/:id/balance/:wallet", h.Balance)
	env.app = app
	return env
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestTokenizeEndpoint(t *testing.T) {
	var env *testEnv
	env = setup(t, func() *domain.User { return &env.owner })

	status, out := postJSON(t, env.app, "/api/v1/assets/"+env.prop.PropertyID.String()+"/tokenize", nil)
	assert.Equal(t, 200, status)
	data, _ := out["data"].(map[string]interface{})
	require.NotNil(t, data)
	assert.NotEmpty(t, data["tx_ref"])

	// Second tokenize is rejected with a 400.
	status, out = postJSON(t, env.app, "/api/v1/assets/"+env.prop.PropertyID.String()+"/tokenize", nil)
	assert.Equal(t, 400, status)
	assert.Contains(t, fmt.Sprint(out["message"]), "already tokenized")
}

func TestTokenizeEndpoint_RequiresLogin(t *testing.T) {
	env := setup(t, func() *domain.User { return nil })
	status, _ := postJSON(t, env.app, "/api/v1/assets/"+env.prop.PropertyID.String()+"/tokenize", nil)
	assert.Equal(t, 401, status)
}

func TestTokenizeEndpoint_InvalidUUID(t *testing.T) {
	var env *testEnv
	env = setup(t, func() *domain.User { return &env.owner })
	status, _ := postJSON(t, env.app, "/api/v1/assets/not-a-uuid/tokenize", nil)
	assert.Equal(t, 400, status)
}

func TestIssueEndpoint(t *testing.T) {
	var env *testEnv
	env = setup(t, func() *domain.User { return &env.owner })
	base := "/api/v1/assets/" + env.prop.PropertyID.String()

	status, _ := postJSON(t, env.app, base+"/tokenize", nil)
	require.Equal(t, 200, status)

	status, out := postJSON(t, env.app, base+"/issue", fiber.Map{"wallet": investorAddr, "amount": 100})
	assert.Equal(t, 200, status)
	data, _ := out["data"].(map[string]interface{})
	require.NotNil(t, data)
	assert.Equal(t, float64(5000), data["amount"])

	var inv domain.Investment
	require.NoError(t, env.db.Where("investor_id = ?", env.investor.UserID).First(&inv).Error)
	assert.Equal(t, int64(100), inv.TokensOwned)
}

func TestIssueEndpoint_MissingFields(t *testing.T) {
	var env *testEnv
	env = setup(t, func() *domain.User { return &env.owner })
	status, out := postJSON(t, env.app, "/api/v1/assets/"+env.prop.PropertyID.String()+"/issue", fiber.Map{"amount": 100})
	assert.Equal(t, 400, status)
	assert.Contains(t, fmt.Sprint(out["message"]), "Missing required fields")
}

func TestIssueEndpoint_InsufficientSupplyIs400(t *testing.T) {
	var env *testEnv
	env = setup(t, func() *domain.User { return &env.owner })
	base := "/api/v1/assets/" + env.prop.PropertyID.String()

	status, _ := postJSON(t, env.app, base+"/tokenize", nil)
	require.Equal(t, 200, status)

	status, out := postJSON(t, env.app, base+"/issue", fiber.Map{"wallet": investorAddr, "amount": 2000})
	assert.Equal(t, 400, status)
	assert.Contains(t, fmt.Sprint(out["message"]), "tokens available")
}

func TestBalanceEndpoint(t *testing.T) {
	var env *testEnv
	env = setup(t, func() *domain.User { return &env.owner })
	base := "/api/v1/assets/" + env.prop.PropertyID.String()

	status, _ := postJSON(t, env.app, base+"/tokenize", nil)
	require.Equal(t, 200, status)

	req := httptest.NewRequest("GET", base+"/balance/"+ownerAddr, nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	data, _ := out["data"].(map[string]interface{})
	require.NotNil(t, data)
	assert.Equal(t, float64(1000), data["balance"])
}

func TestDistributeEndpoint(t *testing.T) {
	var env *testEnv
	env = setup(t, func() *domain.User { return &env.owner })
	base := "/api/v1/assets/" + env.prop.PropertyID.String()

	status, _ := postJSON(t, env.app, base+"/tokenize", nil)
	require.Equal(t, 200, status)
	status, _ = postJSON(t, env.app, base+"/issue", fiber.Map{"wallet": investorAddr, "amount": 400})
	require.Equal(t, 200, status)

	status, out := postJSON(t, env.app, base+"/distribute", fiber.Map{
		"amount":       1000,
		"period_start": "2026-01-01",
		"period_end":   "2026-03-31",
	})
	assert.Equal(t, 200, status)
	data, _ := out["data"].(map[string]interface{})
	require.NotNil(t, data)
	payouts, _ := data["payouts"].([]interface{})
	assert.Len(t, payouts, 2)

	var rows []domain.ProfitDistribution
	require.NoError(t, env.db.Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, r := range rows {
		require.NotNil(t, r.PeriodStart)
		require.NotNil(t, r.PeriodEnd)
	}
}

func TestIdempotencyKeyHeaderDedupes(t *testing.T) {
	var env *testEnv
	env = setup(t, func() *domain.User { return &env.owner })
	base := "/api/v1/assets/" + env.prop.PropertyID.String()

	status, _ := postJSON(t, env.app, base+"/tokenize", nil)
	require.Equal(t, 200, status)

	issue := func() map[string]interface{} {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(fiber.Map{"wallet": investorAddr, "amount": 100}))
		req := httptest.NewRequest("POST", base+"/issue", &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "order-42")
		resp, err := env.app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, 200, resp.StatusCode)
		var out map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	first := issue()
	second := issue()
	firstData := first["data"].(map[string]interface{})
	secondData := second["data"].(map[string]interface{})
	assert.Equal(t, firstData["tx_ref"], secondData["tx_ref"])
	assert.Equal(t, true, secondData["replayed"])

	var inv domain.Investment
	require.NoError(t, env.db.Where("investor_id = ?", env.investor.UserID).First(&inv).Error)
	assert.Equal(t, int64(100), inv.TokensOwned, "replayed request must not double-credit")
}
