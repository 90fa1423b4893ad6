package pricing

import (
	pricesvc "sukuk-backend/internal/application/pricing"
	"sukuk-backend/internal/middleware"
	"sukuk-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *pricesvc.Service
}

// Request POST /api/v1/assets/:id/price-update — owner proposes a new
// valuation and token price.
func (h *Handlers) Request(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for property id", 400, nil)
	}
	var body struct {
		Valuation  float64 `json:"valuation"`
		TokenPrice float64 `json:"token_price"`
	}
	if err := c.BodyParser(&body); err != nil || body.Valuation == 0 || body.TokenPrice == 0 {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	caller, err := uuid.Parse(middleware.GetUserID(c))
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	req, err := h.Service.Request(c.Context(), propertyID, body.Valuation, body.TokenPrice, caller)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Price update requested", req, nil)
}

// Review PATCH /api/v1/price-updates/:id/review — regulator decides a
// pending request.
func (h *Handlers) Review(c *fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for request id", 400, nil)
	}
	var body struct {
		Approve bool   `json:"approve"`
		Reason  string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	caller, err := uuid.Parse(middleware.GetUserID(c))
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	req, err := h.Service.Review(c.Context(), requestID, body.Approve, body.Reason, caller)
	if err != nil {
		return err
	}
	return response.Success(c, "Price update reviewed", req, nil)
}
