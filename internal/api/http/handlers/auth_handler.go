package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chatdesk-admin/internal/api/dto"
	"github.com/spec-kit/chatdesk-admin/internal/auth"
	"github.com/spec-kit/chatdesk-admin/internal/service"
	apperrors "github.com/spec-kit/chatdesk-admin/pkg/util/errorutil"
)

// AuthHandler exposes login and identity endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Authenticate(c.UserContext(), req.Login, req.Password)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      service.NewAccountView(result.Account),
	})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	me, err := h.authService.Me(claims)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, me)
}
