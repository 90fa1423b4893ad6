package auth

import (
	"context"
	"errors"

	"sukuk-backend/internal/domain"
	"sukuk-backend/internal/middleware"
	"sukuk-backend/internal/pkg/response"
	"sukuk-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Handlers struct {
	DB     *gorm.DB
	Rdb    *redis.Client
	Config middleware.SessionConfig
}

// Login POST /api/v1/auth/login — seeds a session for a known user. Identity
// verification (KYC/MFA) happens upstream; this layer only resolves the
// account and establishes the session.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&body); err != nil || body.Email == "" {
		return response.Error(c, "Email is required", 400, nil)
	}
	if !validation.IsValidEmail(body.Email) {
		return response.Error(c, "Invalid Email", 400, nil)
	}
	if h.DB == nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}

	var user domain.User
	if err := h.DB.WithContext(c.Context()).Where("email = ?", body.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.Error(c, "Invalid Email", 401, nil)
		}
		return err
	}

	sid := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   user.UserID.String(),
		Fullname: user.Fullname,
		Email:    user.Email,
		Role:     user.Role,
	})
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sid
	c.Cookie(&cookie)

	return response.Success(c, "Logged in", fiber.Map{
		"user_id":  user.UserID,
		"fullname": user.Fullname,
		"role":     user.Role,
	}, nil)
}

// Me GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return response.Unauthorized(c, "Not authenticated")
	}
	return response.Success(c, "Session user", user, nil)
}

// Logout DELETE /api/v1/auth/logout
func (h *Handlers) Logout(c *fiber.Ctx) error {
	if sid := middleware.GetSessionID(c); sid != "" && h.Rdb != nil {
		h.Rdb.Del(context.Background(), middleware.SessionRedisPrefix+sid)
	}
	middleware.DestroySession(c)
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.MaxAge = -1
	c.Cookie(&cookie)
	return response.Success(c, "Logged out", nil, nil)
}
