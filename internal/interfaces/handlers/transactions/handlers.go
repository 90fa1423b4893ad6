package transactions

import (
	txsvc "sukuk-backend/internal/application/transactions"
	"sukuk-backend/internal/middleware"
	"sukuk-backend/internal/notifications"
	"sukuk-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Handlers struct {
	Service *txsvc.Service
	DB      *gorm.DB
}

// List GET /api/v1/transactions — the caller's transaction history.
func (h *Handlers) List(c *fiber.Ctx) error {
	userID, err := uuid.Parse(middleware.GetUserID(c))
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	txs, err := h.Service.ListForUser(c.Context(), userID)
	if err != nil {
		return err
	}
	return response.Success(c, "Transactions fetched", txs, nil)
}

// Notifications GET /api/v1/notifications — the caller's notifications.
func (h *Handlers) Notifications(c *fiber.Ctx) error {
	userID, err := uuid.Parse(middleware.GetUserID(c))
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	notes, err := notifications.ListForUser(c.Context(), h.DB, userID)
	if err != nil {
		return err
	}
	return response.Success(c, "Notifications fetched", notes, nil)
}
