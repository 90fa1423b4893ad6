package tokens

import (
	reconsvc "sukuk-backend/internal/application/reconcile"
	"sukuk-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Reconcile *reconsvc.Service
}

// Whitelist POST /api/v1/tokens/whitelist — regulator-gated permission for a
// wallet to hold and trade tokens.
func (h *Handlers) Whitelist(c *fiber.Ctx) error {
	var body struct {
		Wallet string `json:"wallet"`
	}
	if err := c.BodyParser(&body); err != nil || body.Wallet == "" {
		return response.Error(c, "Missing required fields", 400, nil)
	}

	txRef, err := h.Reconcile.Whitelist(c.Context(), body.Wallet)
	if err != nil {
		return err
	}
	return response.Success(c, "Wallet whitelisted", fiber.Map{"tx_ref": txRef}, nil)
}

// Partitions GET /api/v1/tokens/partitions — all partitions on the contract.
func (h *Handlers) Partitions(c *fiber.Ctx) error {
	names, err := h.Reconcile.GetPartitions(c.Context())
	if err != nil {
		return err
	}
	return response.Success(c, "Partitions fetched", fiber.Map{"partitions": names}, nil)
}
