package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intake-service/internal/api/dto"
	"github.com/spec-kit/intake-service/internal/auth"
	"github.com/spec-kit/intake-service/internal/service"
	apperrors "github.com/spec-kit/intake-service/pkg/util"
)

// AuthHandler exposes signup, login and profile endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Signup handles POST /signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}

	user, token, _, err := h.auth.Signup(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "User signed up successfully",
		"result":  user.Public(),
		"auth":    token,
	})
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("please enter email and password", nil)
	}

	user, token, _, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"user": user.Public(),
		"auth": token,
	})
}

// Profile handles GET /profile. The auth middleware has already verified the
// token; the decoded payload is echoed back.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewForbidden("invalid token")
	}
	return c.JSON(fiber.Map{"authData": claims})
}
