package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk-admin/internal/domain"
	"github.com/spec-kit/chatdesk-admin/internal/events"
	"github.com/spec-kit/chatdesk-admin/internal/repository"
	apperrors "github.com/spec-kit/chatdesk-admin/pkg/util/errorutil"
)

// ChannelCreateInput describes a new channel.
type ChannelCreateInput struct {
	Name   string
	Type   domain.ChannelType
	Active *bool
	FlowID *string
}

// ChannelUpdateInput is a partial update; nil fields are left unchanged.
type ChannelUpdateInput struct {
	Name   *string
	Type   *domain.ChannelType
	Active *bool
	FlowID OptionalID
}

// PublicChannel is what an anonymous chat widget may learn about a channel.
type PublicChannel struct {
	ID   string             `json:"id"`
	Name string             `json:"name"`
	Type domain.ChannelType `json:"type"`
}

// ChannelService manages inbound channels. The denormalized flow name
// follows the flow reference on every write.
type ChannelService struct {
	channels  *resource[domain.Channel]
	flows     *resource[domain.Flow]
	publicURL string
	now       func() time.Time
}

// ChannelDependencies bundles requirements for the channel service.
type ChannelDependencies struct {
	Collections repository.Collections
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	// PublicURL prefixes generated chat links.
	PublicURL string
}

// NewChannelService constructs the service.
func NewChannelService(deps ChannelDependencies) *ChannelService {
	return &ChannelService{
		channels: newResource(resourceConfig[domain.Channel]{
			kind:         "Channel",
			eventKind:    events.ResourceChannel,
			coll:         deps.Collections.Channels,
			searchFields: []string{repository.FieldName, repository.FieldType},
			dispatcher:   deps.Dispatcher,
			logger:       deps.Logger,
		}),
		flows:     newFlowLookup(deps.Collections.Flows),
		publicURL: strings.TrimRight(deps.PublicURL, "/"),
		now:       time.Now,
	}
}

// List returns one page of channels.
func (s *ChannelService) List(ctx context.Context, params ListParams) (*Page[domain.Channel], error) {
	return s.channels.list(ctx, params)
}

// Get returns one channel.
func (s *ChannelService) Get(ctx context.Context, id string) (*domain.Channel, error) {
	return s.channels.get(ctx, id)
}

// Create stores a new channel, resolving its flow name and chat link.
func (s *ChannelService) Create(ctx context.Context, actorID string, input ChannelCreateInput) (*domain.Channel, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if !input.Type.Valid() {
		return nil, invalidChannelType(input.Type)
	}

	channel := &domain.Channel{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      input.Type,
		Status:    statusFor(input.Type),
		Active:    true,
		FlowName:  domain.DefaultFlowName,
		CreatedAt: s.now().UTC(),
	}
	if input.Active != nil {
		channel.Active = *input.Active
	}
	if input.FlowID != nil && *input.FlowID != "" {
		flow, err := s.resolveFlow(ctx, *input.FlowID)
		if err != nil {
			return nil, err
		}
		channel.FlowID = &flow.ID
		channel.FlowName = flow.Name
	}
	channel.ChatLink = s.chatLink(channel.ID, channel.Type)

	if err := s.channels.create(ctx, channel, actorID); err != nil {
		return nil, err
	}
	return channel, nil
}

// Update applies a partial update. Changing the flow reference refreshes
// the flow name; changing the type refreshes status and chat link.
func (s *ChannelService) Update(ctx context.Context, actorID, id string, input ChannelUpdateInput) (*domain.Channel, error) {
	changes := repository.Changes{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
		}
		changes[repository.FieldName] = name
	}
	if input.Type != nil {
		if !input.Type.Valid() {
			return nil, invalidChannelType(*input.Type)
		}
		changes[repository.FieldType] = *input.Type
		changes["status"] = statusFor(*input.Type)
		changes["chat_link"] = s.chatLink(id, *input.Type)
	}
	if input.Active != nil {
		changes[repository.FieldActive] = *input.Active
	}
	if input.FlowID.Set {
		if input.FlowID.Value == nil || *input.FlowID.Value == "" {
			changes[repository.FieldFlowID] = nil
			changes[repository.FieldFlowName] = domain.DefaultFlowName
		} else {
			flow, err := s.resolveFlow(ctx, *input.FlowID.Value)
			if err != nil {
				return nil, err
			}
			changes[repository.FieldFlowID] = flow.ID
			changes[repository.FieldFlowName] = flow.Name
		}
	}
	return s.channels.update(ctx, id, changes, actorID)
}

// ToggleActive flips the active flag.
func (s *ChannelService) ToggleActive(ctx context.Context, actorID, id string) (*domain.Channel, error) {
	channel, err := s.channels.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.channels.update(ctx, id, repository.Changes{repository.FieldActive: !channel.Active}, actorID)
}

// Delete removes a channel.
func (s *ChannelService) Delete(ctx context.Context, actorID, id string) error {
	return s.channels.delete(ctx, id, actorID)
}

// BulkDelete removes channels with a single store call.
func (s *ChannelService) BulkDelete(ctx context.Context, actorID string, ids []string) (*BulkDeleteResult, error) {
	return s.channels.bulkDelete(ctx, ids, actorID)
}

// PublicInfo describes an active site channel to anonymous callers.
// Anything else is reported as not found.
func (s *ChannelService) PublicInfo(ctx context.Context, id string) (*PublicChannel, error) {
	channel, err := s.channels.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !channel.Active || channel.Type != domain.ChannelTypeSite {
		return nil, apperrors.NewNotFound("Channel", map[string]any{"id": id})
	}
	return &PublicChannel{ID: channel.ID, Name: channel.Name, Type: channel.Type}, nil
}

func (s *ChannelService) resolveFlow(ctx context.Context, flowID string) (*domain.Flow, error) {
	flow, err := s.flows.get(ctx, flowID)
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		return nil, apperrors.NewValidationError("flow does not exist", map[string]any{"field": "flow_id", "flow_id": flowID})
	}
	return flow, err
}

func (s *ChannelService) chatLink(id string, channelType domain.ChannelType) *string {
	if channelType != domain.ChannelTypeSite {
		return nil
	}
	link := s.publicURL + "/chat/" + id
	return &link
}

func statusFor(channelType domain.ChannelType) domain.ChannelStatus {
	if channelType == domain.ChannelTypeSite {
		return domain.ChannelStatusConnected
	}
	return domain.ChannelStatusDisconnected
}

func invalidChannelType(t domain.ChannelType) error {
	return apperrors.NewValidationError("unsupported channel type", map[string]any{"field": "type", "type": t})
}
