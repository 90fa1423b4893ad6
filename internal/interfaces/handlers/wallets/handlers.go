package wallets

import (
	walletsvc "sukuk-backend/internal/application/wallets"
	"sukuk-backend/internal/middleware"
	"sukuk-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *walletsvc.Service
}

func caller(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(middleware.GetUserID(c))
}

// Connect POST /api/v1/wallets/connect
func (h *Handlers) Connect(c *fiber.Ctx) error {
	var body struct {
		Address string `json:"address"`
	}
	if err := c.BodyParser(&body); err != nil || body.Address == "" {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	userID, err := caller(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	wallet, err := h.Service.Connect(c.Context(), userID, body.Address)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Wallet connected", wallet, nil)
}

// Disconnect DELETE /api/v1/wallets/:address
func (h *Handlers) Disconnect(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	if err := h.Service.Disconnect(c.Context(), userID, c.Params("address")); err != nil {
		return err
	}
	return response.Success(c, "Wallet disconnected", nil, nil)
}

// SetPrimary PATCH /api/v1/wallets/:address/primary
func (h *Handlers) SetPrimary(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	if err := h.Service.SetPrimary(c.Context(), userID, c.Params("address")); err != nil {
		return err
	}
	return response.Success(c, "Primary wallet updated", nil, nil)
}

// List GET /api/v1/wallets
func (h *Handlers) List(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	wallets, err := h.Service.List(c.Context(), userID)
	if err != nil {
		return err
	}
	return response.Success(c, "Wallets fetched", wallets, nil)
}
