package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chatdesk-admin/internal/api/dto"
	"github.com/spec-kit/chatdesk-admin/internal/domain"
	"github.com/spec-kit/chatdesk-admin/internal/service"
)

// AccountsHandler exposes CRUD for one account role; /admins and /agents
// each get their own instance.
type AccountsHandler struct {
	role     domain.Role
	accounts *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts *service.AccountService, role domain.Role) *AccountsHandler {
	return &AccountsHandler{role: role, accounts: accounts}
}

// List handles GET /api/{admins,agents}.
func (h *AccountsHandler) List(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return err
	}
	page, err := h.accounts.List(c.UserContext(), h.role, params)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, listResponse(page, service.NewAccountView))
}

// Get handles GET /api/{admins,agents}/:id.
func (h *AccountsHandler) Get(c *fiber.Ctx) error {
	account, err := h.accounts.Get(c.UserContext(), h.role, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, service.NewAccountView(account))
}

// Create handles POST /api/{admins,agents}.
func (h *AccountsHandler) Create(c *fiber.Ctx) error {
	var req dto.AccountCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	account, err := h.accounts.Create(c.UserContext(), h.role, actorID(c), service.AccountCreateInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Active:   req.IsActive,
		TeamID:   req.TeamID,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, service.NewAccountView(account))
}

// Update handles PUT /api/{admins,agents}/:id.
func (h *AccountsHandler) Update(c *fiber.Ctx) error {
	var req dto.AccountUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	account, err := h.accounts.Update(c.UserContext(), h.role, actorID(c), c.Params("id"), service.AccountUpdateInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Active:   req.IsActive,
		TeamID:   optionalID(req.TeamID),
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, service.NewAccountView(account))
}

// Delete handles DELETE /api/{admins,agents}/:id.
func (h *AccountsHandler) Delete(c *fiber.Ctx) error {
	if err := h.accounts.Delete(c.UserContext(), h.role, actorID(c), c.Params("id")); err != nil {
		return err
	}
	return data(c, http.StatusOK, fiber.Map{"deleted": true})
}

// BulkDelete handles POST /api/{admins,agents}/bulk-delete.
func (h *AccountsHandler) BulkDelete(c *fiber.Ctx) error {
	var req dto.BulkDeleteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.accounts.BulkDelete(c.UserContext(), h.role, actorID(c), req.IDs)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, bulkDeleteResponse(result))
}
