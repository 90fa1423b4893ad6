package health

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Handlers struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

// JSON GET /health/json — liveness of the process and its dependencies.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	status := "ok"
	deps := fiber.Map{}

	if h.DB != nil {
		sqlDB, err := h.DB.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			status = "degraded"
			deps["database"] = err.Error()
		} else {
			deps["database"] = "ok"
		}
	}
	if h.Rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.Rdb.Ping(ctx).Err(); err != nil {
			status = "degraded"
			deps["redis"] = err.Error()
		} else {
			deps["redis"] = "ok"
		}
	}

	return c.JSON(fiber.Map{
		"status":       status,
		"dependencies": deps,
		"time":         time.Now().UTC().Format(time.RFC3339),
	})
}
