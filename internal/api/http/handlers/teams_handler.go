package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chatdesk-admin/internal/api/dto"
	"github.com/spec-kit/chatdesk-admin/internal/service"
)

// TeamsHandler exposes team endpoints.
type TeamsHandler struct {
	teams *service.TeamService
}

// NewTeamsHandler constructs handler.
func NewTeamsHandler(teams *service.TeamService) *TeamsHandler {
	return &TeamsHandler{teams: teams}
}

// List handles GET /api/teams.
func (h *TeamsHandler) List(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return err
	}
	page, err := h.teams.List(c.UserContext(), params)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, listResponse(page, identity[service.TeamView]))
}

// Get handles GET /api/teams/:id.
func (h *TeamsHandler) Get(c *fiber.Ctx) error {
	team, err := h.teams.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, team)
}

// Create handles POST /api/teams.
func (h *TeamsHandler) Create(c *fiber.Ctx) error {
	var req dto.TeamCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	team, err := h.teams.Create(c.UserContext(), actorID(c), service.TeamCreateInput{
		Name:           req.Name,
		SessionTimeout: req.SessionTimeout,
		FinishMessage:  req.FinishMessage,
		NoAgentMessage: req.NoAgentMessage,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, team)
}

// Update handles PUT /api/teams/:id.
func (h *TeamsHandler) Update(c *fiber.Ctx) error {
	var req dto.TeamUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	team, err := h.teams.Update(c.UserContext(), actorID(c), c.Params("id"), service.TeamUpdateInput{
		Name:           req.Name,
		SessionTimeout: req.SessionTimeout,
		FinishMessage:  req.FinishMessage,
		NoAgentMessage: req.NoAgentMessage,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, team)
}

// Delete handles DELETE /api/teams/:id.
func (h *TeamsHandler) Delete(c *fiber.Ctx) error {
	if err := h.teams.Delete(c.UserContext(), actorID(c), c.Params("id")); err != nil {
		return err
	}
	return data(c, http.StatusOK, fiber.Map{"deleted": true})
}

// BulkDelete handles POST /api/teams/bulk-delete.
func (h *TeamsHandler) BulkDelete(c *fiber.Ctx) error {
	var req dto.BulkDeleteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.teams.BulkDelete(c.UserContext(), actorID(c), req.IDs)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, bulkDeleteResponse(result))
}
