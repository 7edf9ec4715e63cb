package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chatdesk-admin/internal/api/dto"
	"github.com/spec-kit/chatdesk-admin/internal/domain"
	"github.com/spec-kit/chatdesk-admin/internal/service"
)

// ChannelsHandler exposes channel endpoints and the public widget lookup.
type ChannelsHandler struct {
	channels *service.ChannelService
}

// NewChannelsHandler constructs handler.
func NewChannelsHandler(channels *service.ChannelService) *ChannelsHandler {
	return &ChannelsHandler{channels: channels}
}

// List handles GET /api/channels.
func (h *ChannelsHandler) List(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return err
	}
	page, err := h.channels.List(c.UserContext(), params)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, listResponse(page, identity[domain.Channel]))
}

// Get handles GET /api/channels/:id.
func (h *ChannelsHandler) Get(c *fiber.Ctx) error {
	channel, err := h.channels.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, channel)
}

// Create handles POST /api/channels.
func (h *ChannelsHandler) Create(c *fiber.Ctx) error {
	var req dto.ChannelCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	channel, err := h.channels.Create(c.UserContext(), actorID(c), service.ChannelCreateInput{
		Name:   req.Name,
		Type:   domain.ChannelType(req.Type),
		Active: req.IsActive,
		FlowID: req.FlowID,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, channel)
}

// Update handles PUT /api/channels/:id.
func (h *ChannelsHandler) Update(c *fiber.Ctx) error {
	var req dto.ChannelUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input := service.ChannelUpdateInput{
		Name:   req.Name,
		Active: req.IsActive,
		FlowID: optionalID(req.FlowID),
	}
	if req.Type != nil {
		channelType := domain.ChannelType(*req.Type)
		input.Type = &channelType
	}
	channel, err := h.channels.Update(c.UserContext(), actorID(c), c.Params("id"), input)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, channel)
}

// ToggleActive handles PATCH /api/channels/:id/toggle-active.
func (h *ChannelsHandler) ToggleActive(c *fiber.Ctx) error {
	channel, err := h.channels.ToggleActive(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, channel)
}

// Delete handles DELETE /api/channels/:id.
func (h *ChannelsHandler) Delete(c *fiber.Ctx) error {
	if err := h.channels.Delete(c.UserContext(), actorID(c), c.Params("id")); err != nil {
		return err
	}
	return data(c, http.StatusOK, fiber.Map{"deleted": true})
}

// BulkDelete handles POST /api/channels/bulk-delete.
func (h *ChannelsHandler) BulkDelete(c *fiber.Ctx) error {
	var req dto.BulkDeleteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.channels.BulkDelete(c.UserContext(), actorID(c), req.IDs)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, bulkDeleteResponse(result))
}

// PublicInfo handles GET /api/public/channels/:id without a token.
func (h *ChannelsHandler) PublicInfo(c *fiber.Ctx) error {
	info, err := h.channels.PublicInfo(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, info)
}
