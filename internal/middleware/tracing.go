package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const traceIDHeader = "X-Trace-Id"
const traceIDLocal = "trace_id"

// Tracing tags every request with a trace id, reusing the caller's when the
// header is already set so chain-operation failures can be correlated across
// services.
func Tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(traceIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Locals(traceIDLocal, id)
		c.Set(traceIDHeader, id)
		return c.Next()
	}
}

// GetTraceID returns the request's trace id, empty if tracing is not
// installed.
func GetTraceID(c *fiber.Ctx) string {
	id, _ := c.Locals(traceIDLocal).(string)
	return id
}
