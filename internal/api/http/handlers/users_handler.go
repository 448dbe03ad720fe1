package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/workorder-service/internal/api/dto"
	"github.com/fieldops/workorder-service/internal/auth"
	"github.com/fieldops/workorder-service/internal/service"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

// UsersHandler serves account and session endpoints.
type UsersHandler struct {
	authService *service.AuthService
	queries     *service.QueryService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, queries *service.QueryService) *UsersHandler {
	return &UsersHandler{authService: authService, queries: queries}
}

// Register POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.authService.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.UserFromDomain(user)})
}

// Login POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	session, err := h.authService.Login(c.UserContext(), req.Email, req.Password, clientIP(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      dto.UserFromDomain(session.User),
	}})
}

// Logout POST /auth/logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	if err := h.authService.Logout(c.UserContext(), actor, clientIP(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "logged_out"}})
}

// Me GET /auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": dto.UserFromDomain(principal.User)})
}

// UpdateProfile PATCH /auth/me.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.authService.UpdateProfile(c.UserContext(), actor, service.UpdateProfileInput{
		Name:  req.Name,
		Phone: req.Phone,
	}, clientIP(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UserFromDomain(user)})
}

// ChangePassword POST /auth/password/change.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.authService.ChangePassword(c.UserContext(), actor, req.CurrentPassword, req.NewPassword, clientIP(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password_changed"}})
}

// SetTwoFactor POST /auth/two-factor.
func (h *UsersHandler) SetTwoFactor(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)

	var req dto.TwoFactorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.authService.SetTwoFactor(c.UserContext(), actor, req.Enabled, clientIP(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UserFromDomain(user)})
}

// ListContractors GET /users/contractors. Admin only.
func (h *UsersHandler) ListContractors(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	contractors, err := h.queries.Contractors(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UsersFromDomain(contractors)})
}

// AdminUpdateUser PATCH /users/:id. Admin only.
func (h *UsersHandler) AdminUpdateUser(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)

	var req dto.AdminUpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.authService.AdminUpdateUser(c.UserContext(), actor, c.Params("id"), service.AdminUpdateUserInput{
		Role:   req.Role,
		Active: req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UserFromDomain(user)})
}
