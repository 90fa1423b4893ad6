package assets

import (
	"time"

	distsvc "sukuk-backend/internal/application/distribution"
	reconsvc "sukuk-backend/internal/application/reconcile"
	"sukuk-backend/internal/middleware"
	"sukuk-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Reconcile    *reconsvc.Service
	Distribution *distsvc.Service
}

func callerID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(middleware.GetUserID(c))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Tokenize POST /api/v1/assets/:id/tokenize — mints the sukuk's supply into
// the owner's primary wallet and activates the offering.
func (h *Handlers) Tokenize(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for property id", 400, nil)
	}
	caller, ok := callerID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	result, err := h.Reconcile.TokenizeAsset(c.Context(), propertyID, caller)
	if err != nil {
		return err
	}
	return response.Success(c, "Asset tokenized successfully", result, nil)
}

// Issue POST /api/v1/assets/:id/issue — primary sale from owner inventory.
func (h *Handlers) Issue(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for property id", 400, nil)
	}
	var body struct {
		Wallet string `json:"wallet"`
		Amount int64  `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil || body.Wallet == "" || body.Amount == 0 {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	caller, ok := callerID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	result, err := h.Reconcile.IssueTokens(c.Context(), propertyID, body.Wallet, body.Amount, caller, c.Get("Idempotency-Key"))
	if err != nil {
		return err
	}
	return response.Success(c, "Tokens issued successfully", result, nil)
}

// Transfer POST /api/v1/assets/:id/transfer — secondary market transfer from
// the caller's primary wallet.
func (h *Handlers) Transfer(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for property id", 400, nil)
	}
	var body struct {
		Wallet string `json:"wallet"`
		Amount int64  `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil || body.Wallet == "" || body.Amount == 0 {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	caller, ok := callerID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	result, err := h.Reconcile.TransferTokens(c.Context(), propertyID, body.Wallet, body.Amount, caller, c.Get("Idempotency-Key"))
	if err != nil {
		return err
	}
	return response.Success(c, "Tokens transferred successfully", result, nil)
}

// Distribute POST /api/v1/assets/:id/distribute — pro-rata profit or rent
// payout to current holders.
func (h *Handlers) Distribute(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for property id", 400, nil)
	}
	var body struct {
		Amount      float64 `json:"amount"`
		PeriodStart *string `json:"period_start"`
		PeriodEnd   *string `json:"period_end"`
	}
	if err := c.BodyParser(&body); err != nil || body.Amount == 0 {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	caller, ok := callerID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	start, err := parseDate(body.PeriodStart)
	if err != nil {
		return response.Error(c, "Invalid period_start date", 400, nil)
	}
	end, err := parseDate(body.PeriodEnd)
	if err != nil {
		return response.Error(c, "Invalid period_end date", 400, nil)
	}

	result, err := h.Distribution.Distribute(c.Context(), propertyID, body.Amount, start, end, caller)
	if err != nil {
		return err
	}
	return response.Success(c, "Profit distributed successfully", result, nil)
}

// Balance GET /api/v1/assets/:id/balance/:wallet — confirmed on-chain
// partition balance.
func (h *Handlers) Balance(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for property id", 400, nil)
	}
	balance, err := h.Reconcile.GetBalance(c.Context(), propertyID, c.Params("wallet"))
	if err != nil {
		return err
	}
	return response.Success(c, "Balance fetched", fiber.Map{"balance": balance}, nil)
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
