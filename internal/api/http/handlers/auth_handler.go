package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketshield/citation-intake/internal/auth"
	apperrors "github.com/ticketshield/citation-intake/pkg/util"
)

// AuthHandler issues admin tokens.
type AuthHandler struct {
	tokens       *auth.TokenManager
	passwordHash string
}

// NewAuthHandler returns a new handler instance.
func NewAuthHandler(tokens *auth.TokenManager, passwordHash string) *AuthHandler {
	return &AuthHandler{tokens: tokens, passwordHash: passwordHash}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login exchanges the admin password for a bearer token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if h.passwordHash == "" {
		return apperrors.NewUnauthorized("admin login is not configured")
	}
	if err := auth.ComparePassword(h.passwordHash, req.Password); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := h.tokens.GenerateToken()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{
		"accessToken": token,
		"expiresAt":   expiresAt,
	})
}
