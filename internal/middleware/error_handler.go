package middleware

import (
	"errors"

	"sukuk-backend/internal/pkg/apperrors"
	"sukuk-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the global error handler. Application errors map to their
// HTTP status; consistency errors additionally expose the chain reference so
// an operator can reconcile manually. Everything else is a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var ae *apperrors.Error
	if errors.As(err, &ae) {
		details := map[string]interface{}{}
		if ae.Kind == apperrors.KindConsistency && ae.TxRef != "" {
			details["tx_ref"] = ae.TxRef
		}
		return response.Error(c, ae.Message, apperrors.StatusCode(ae), details)
	}
	if e, ok := err.(*fiber.Error); ok {
		return response.Error(c, e.Message, e.Code, nil)
	}
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
