package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chatdesk-admin/internal/api/dto"
	"github.com/spec-kit/chatdesk-admin/internal/service"
)

// FlowsHandler exposes flow endpoints including duplicate and export/import.
type FlowsHandler struct {
	flows *service.FlowService
}

// NewFlowsHandler constructs handler.
func NewFlowsHandler(flows *service.FlowService) *FlowsHandler {
	return &FlowsHandler{flows: flows}
}

// List handles GET /api/flows.
func (h *FlowsHandler) List(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return err
	}
	page, err := h.flows.List(c.UserContext(), params)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, listResponse(page, identity[service.FlowView]))
}

// Get handles GET /api/flows/:id.
func (h *FlowsHandler) Get(c *fiber.Ctx) error {
	flow, err := h.flows.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, flow)
}

// Create handles POST /api/flows.
func (h *FlowsHandler) Create(c *fiber.Ctx) error {
	var req dto.FlowRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	flow, err := h.flows.Create(c.UserContext(), actorID(c), flowInput(req))
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, flow)
}

// Update handles PUT /api/flows/:id.
func (h *FlowsHandler) Update(c *fiber.Ctx) error {
	var req dto.FlowUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	flow, err := h.flows.Update(c.UserContext(), actorID(c), c.Params("id"), service.FlowUpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, flow)
}

// Delete handles DELETE /api/flows/:id.
func (h *FlowsHandler) Delete(c *fiber.Ctx) error {
	if err := h.flows.Delete(c.UserContext(), actorID(c), c.Params("id")); err != nil {
		return err
	}
	return data(c, http.StatusOK, fiber.Map{"deleted": true})
}

// BulkDelete handles POST /api/flows/bulk-delete.
func (h *FlowsHandler) BulkDelete(c *fiber.Ctx) error {
	var req dto.BulkDeleteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.flows.BulkDelete(c.UserContext(), actorID(c), req.IDs)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, bulkDeleteResponse(result))
}

// Duplicate handles POST /api/flows/:id/duplicate.
func (h *FlowsHandler) Duplicate(c *fiber.Ctx) error {
	flow, err := h.flows.Duplicate(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, flow)
}

// Export handles GET /api/flows/:id/export.
func (h *FlowsHandler) Export(c *fiber.Ctx) error {
	export, err := h.flows.Export(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, export)
}

// Import handles POST /api/flows/import.
func (h *FlowsHandler) Import(c *fiber.Ctx) error {
	var req dto.FlowRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	flow, err := h.flows.Import(c.UserContext(), actorID(c), flowInput(req))
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, flow)
}

func flowInput(req dto.FlowRequest) service.FlowInput {
	return service.FlowInput{
		Name:        req.Name,
		Description: req.Description,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
	}
}
