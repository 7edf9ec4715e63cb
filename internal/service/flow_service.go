package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk-admin/internal/domain"
	"github.com/spec-kit/chatdesk-admin/internal/events"
	"github.com/spec-kit/chatdesk-admin/internal/repository"
	apperrors "github.com/spec-kit/chatdesk-admin/pkg/util/errorutil"
)

// FlowInput describes a new flow.
type FlowInput struct {
	Name        string
	Description string
	Nodes       []domain.GraphElement
	Edges       []domain.GraphElement
}

// FlowUpdateInput is a partial update; nil fields are left unchanged.
type FlowUpdateInput struct {
	Name        *string
	Description *string
	Nodes       *[]domain.GraphElement
	Edges       *[]domain.GraphElement
}

// FlowExport is the portable form of a flow.
type FlowExport struct {
	Name       string                `json:"name"`
	Nodes      []domain.GraphElement `json:"nodes"`
	Edges      []domain.GraphElement `json:"edges"`
	ExportedAt time.Time             `json:"exportedAt"`
}

// FlowView is a flow plus the channel that references it, if any.
type FlowView struct {
	domain.Flow
	InUse       bool    `json:"in_use"`
	ChannelID   *string `json:"channel_id,omitempty"`
	ChannelName *string `json:"channel_name,omitempty"`
}

// FlowService manages conversation flows. A flow referenced by a channel
// cannot be deleted.
type FlowService struct {
	flows    *resource[domain.Flow]
	channels repository.Collection[domain.Channel]
	logger   *zap.Logger
	now      func() time.Time
}

// FlowDependencies bundles requirements for the flow service.
type FlowDependencies struct {
	Collections repository.Collections
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewFlowService constructs the service.
func NewFlowService(deps FlowDependencies) *FlowService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FlowService{channels: deps.Collections.Channels, logger: logger, now: time.Now}
	s.flows = newResource(resourceConfig[domain.Flow]{
		kind:         "Flow",
		eventKind:    events.ResourceFlow,
		coll:         deps.Collections.Flows,
		searchFields: []string{repository.FieldName},
		beforeDelete: s.ensureUnreferenced,
		itemwiseBulk: true,
		dispatcher:   deps.Dispatcher,
		logger:       logger,
	})
	return s
}

// newFlowLookup is a read-only flow resource used for reference checks.
func newFlowLookup(flows repository.Collection[domain.Flow]) *resource[domain.Flow] {
	return newResource(resourceConfig[domain.Flow]{kind: "Flow", coll: flows})
}

func (s *FlowService) ensureUnreferenced(ctx context.Context, flow *domain.Flow, _ string) error {
	channel, err := s.referencingChannel(ctx, flow.ID)
	if err != nil {
		return err
	}
	if channel != nil {
		return apperrors.NewResourceInUse(
			fmt.Sprintf("flow %q is used by channel %q", flow.Name, channel.Name),
			map[string]any{"channel_id": channel.ID, "channel_name": channel.Name})
	}
	return nil
}

func (s *FlowService) referencingChannel(ctx context.Context, flowID string) (*domain.Channel, error) {
	channel, err := s.channels.FindOne(ctx, repository.Where(repository.Eq(repository.FieldFlowID, flowID)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find channel for flow %s: %w", flowID, err)
	}
	return channel, nil
}

// List returns one page of flows with their usage.
func (s *FlowService) List(ctx context.Context, params ListParams) (*Page[FlowView], error) {
	page, err := s.flows.list(ctx, params)
	if err != nil {
		return nil, err
	}
	views := make([]FlowView, 0, len(page.Items))
	for i := range page.Items {
		view, err := s.view(ctx, &page.Items[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return &Page[FlowView]{Items: views, Total: page.Total, Page: page.Page, PerPage: page.PerPage}, nil
}

// Get returns one flow with its usage.
func (s *FlowService) Get(ctx context.Context, id string) (*FlowView, error) {
	flow, err := s.flows.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, flow)
}

// Create stores a new flow. Nodes and edges are kept as given.
func (s *FlowService) Create(ctx context.Context, actorID string, input FlowInput) (*FlowView, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	now := s.now().UTC()
	flow := &domain.Flow{
		ID:          uuid.NewString(),
		Name:        name,
		Description: input.Description,
		Nodes:       graphOrEmpty(input.Nodes),
		Edges:       graphOrEmpty(input.Edges),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.flows.create(ctx, flow, actorID); err != nil {
		return nil, err
	}
	return &FlowView{Flow: *flow}, nil
}

// Update applies a partial update. A rename is copied onto every channel
// that references the flow.
func (s *FlowService) Update(ctx context.Context, actorID, id string, input FlowUpdateInput) (*FlowView, error) {
	changes := repository.Changes{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
		}
		changes[repository.FieldName] = name
	}
	if input.Description != nil {
		changes["description"] = *input.Description
	}
	if input.Nodes != nil {
		changes["nodes"] = graphOrEmpty(*input.Nodes)
	}
	if input.Edges != nil {
		changes["edges"] = graphOrEmpty(*input.Edges)
	}
	if len(changes) > 0 {
		changes[repository.FieldUpdatedAt] = s.now().UTC()
	}

	flow, err := s.flows.update(ctx, id, changes, actorID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		if err := s.propagateName(ctx, flow); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, flow)
}

func (s *FlowService) propagateName(ctx context.Context, flow *domain.Flow) error {
	channels, err := s.channels.Find(ctx, repository.Where(repository.Eq(repository.FieldFlowID, flow.ID)), repository.NewestFirst(0, 0))
	if err != nil {
		return fmt.Errorf("find channels for flow %s: %w", flow.ID, err)
	}
	for _, channel := range channels {
		if channel.FlowName == flow.Name {
			continue
		}
		if err := s.channels.Update(ctx, channel.ID, repository.Changes{repository.FieldFlowName: flow.Name}); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("rename flow on channel %s: %w", channel.ID, err)
		}
	}
	return nil
}

// Delete removes a flow no channel references.
func (s *FlowService) Delete(ctx context.Context, actorID, id string) error {
	return s.flows.delete(ctx, id, actorID)
}

// BulkDelete removes flows one by one, skipping referenced ones.
func (s *FlowService) BulkDelete(ctx context.Context, actorID string, ids []string) (*BulkDeleteResult, error) {
	return s.flows.bulkDelete(ctx, ids, actorID)
}

// Duplicate copies a flow under a new id and a "(copy)" name.
func (s *FlowService) Duplicate(ctx context.Context, actorID, id string) (*FlowView, error) {
	source, err := s.flows.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, actorID, FlowInput{
		Name:        source.Name + " (copy)",
		Description: source.Description,
		Nodes:       source.Nodes,
		Edges:       source.Edges,
	})
}

// Export returns the portable form of a flow.
func (s *FlowService) Export(ctx context.Context, id string) (*FlowExport, error) {
	flow, err := s.flows.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &FlowExport{
		Name:       flow.Name,
		Nodes:      graphOrEmpty(flow.Nodes),
		Edges:      graphOrEmpty(flow.Edges),
		ExportedAt: s.now().UTC(),
	}, nil
}

// Import stores an exported flow. It always gets a new id.
func (s *FlowService) Import(ctx context.Context, actorID string, input FlowInput) (*FlowView, error) {
	return s.Create(ctx, actorID, input)
}

func (s *FlowService) view(ctx context.Context, flow *domain.Flow) (*FlowView, error) {
	view := &FlowView{Flow: *flow}
	channel, err := s.referencingChannel(ctx, flow.ID)
	if err != nil {
		return nil, err
	}
	if channel != nil {
		view.InUse = true
		view.ChannelID = &channel.ID
		view.ChannelName = &channel.Name
	}
	return view, nil
}

func graphOrEmpty(elements []domain.GraphElement) []domain.GraphElement {
	if elements == nil {
		return []domain.GraphElement{}
	}
	return elements
}
