package service

import (
	"context"
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

// Default team messages.
const (
	DefaultFinishMessage  = "Thank you for contacting us. This conversation has been closed."
	DefaultNoAgentMessage = "All of our agents are busy right now. Please wait, someone will be with you shortly."
)

// TeamCreateInput describes a new team.
type TeamCreateInput struct {
	Name           string
	SessionTimeout *int
	FinishMessage  *string
	NoAgentMessage *string
}

// TeamUpdateInput is a partial update; nil fields are left unchanged.
type TeamUpdateInput struct {
	Name           *string
	SessionTimeout *int
	FinishMessage  *string
	NoAgentMessage *string
}

// TeamView is a team with its derived agent count.
type TeamView struct {
	domain.Team
	AgentCount int64 `json:"agent_count"`
}

// TeamService manages teams. A team with agents cannot be deleted.
type TeamService struct {
	teams    *resource[domain.Team]
	accounts repository.Collection[domain.Account]
	now      func() time.Time
}

// TeamDependencies bundles requirements for the team service.
type TeamDependencies struct {
	Collections repository.Collections
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewTeamService constructs the service.
func NewTeamService(deps TeamDependencies) *TeamService {
	s := &TeamService{accounts: deps.Collections.Accounts, now: time.Now}
	s.teams = newResource(resourceConfig[domain.Team]{
		kind:         "Team",
		eventKind:    events.ResourceTeam,
		coll:         deps.Collections.Teams,
		searchFields: []string{repository.FieldName},
		unique: []uniqueField[domain.Team]{
			{field: repository.FieldName, value: func(t *domain.Team) string { return t.Name }},
		},
		beforeDelete: s.ensureNoAgents,
		itemwiseBulk: true,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
	})
	return s
}

// newTeamLookup is a read-only team resource used for reference checks.
func newTeamLookup(teams repository.Collection[domain.Team]) *resource[domain.Team] {
	return newResource(resourceConfig[domain.Team]{kind: "Team", coll: teams})
}

func (s *TeamService) ensureNoAgents(ctx context.Context, team *domain.Team, _ string) error {
	count, err := countAgentsInTeam(ctx, s.accounts, team.ID)
	if err != nil {
		return fmt.Errorf("count team agents: %w", err)
	}
	if count > 0 {
		return apperrors.NewResourceInUse(
			fmt.Sprintf("team %q has %d assigned agent(s)", team.Name, count),
			map[string]any{"agent_count": count})
	}
	return nil
}

// List returns one page of teams with agent counts.
func (s *TeamService) List(ctx context.Context, params ListParams) (*Page[TeamView], error) {
	page, err := s.teams.list(ctx, params)
	if err != nil {
		return nil, err
	}
	views := make([]TeamView, 0, len(page.Items))
	for i := range page.Items {
		view, err := s.view(ctx, &page.Items[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return &Page[TeamView]{Items: views, Total: page.Total, Page: page.Page, PerPage: page.PerPage}, nil
}

// Get returns one team with its agent count.
func (s *TeamService) Get(ctx context.Context, id string) (*TeamView, error) {
	team, err := s.teams.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, team)
}

// Create validates and stores a new team.
func (s *TeamService) Create(ctx context.Context, actorID string, input TeamCreateInput) (*TeamView, error) {
	now := s.now().UTC()
	team := &domain.Team{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(input.Name),
		SessionTimeout: domain.DefaultSessionTimeout,
		FinishMessage:  DefaultFinishMessage,
		NoAgentMessage: DefaultNoAgentMessage,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if team.Name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if input.SessionTimeout != nil {
		if err := validateSessionTimeout(*input.SessionTimeout); err != nil {
			return nil, err
		}
		team.SessionTimeout = *input.SessionTimeout
	}
	if input.FinishMessage != nil {
		team.FinishMessage = *input.FinishMessage
	}
	if input.NoAgentMessage != nil {
		team.NoAgentMessage = *input.NoAgentMessage
	}

	if err := s.teams.create(ctx, team, actorID); err != nil {
		return nil, err
	}
	return &TeamView{Team: *team}, nil
}

// Update applies a partial update.
func (s *TeamService) Update(ctx context.Context, actorID, id string, input TeamUpdateInput) (*TeamView, error) {
	changes := repository.Changes{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
		}
		changes[repository.FieldName] = name
	}
	if input.SessionTimeout != nil {
		if err := validateSessionTimeout(*input.SessionTimeout); err != nil {
			return nil, err
		}
		changes["session_timeout"] = *input.SessionTimeout
	}
	if input.FinishMessage != nil {
		changes["finish_message"] = *input.FinishMessage
	}
	if input.NoAgentMessage != nil {
		changes["no_agent_message"] = *input.NoAgentMessage
	}
	if len(changes) > 0 {
		changes[repository.FieldUpdatedAt] = s.now().UTC()
	}

	team, err := s.teams.update(ctx, id, changes, actorID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, team)
}

// Delete removes a team that has no agents.
func (s *TeamService) Delete(ctx context.Context, actorID, id string) error {
	return s.teams.delete(ctx, id, actorID)
}

// BulkDelete removes teams one by one, skipping those with agents.
func (s *TeamService) BulkDelete(ctx context.Context, actorID string, ids []string) (*BulkDeleteResult, error) {
	return s.teams.bulkDelete(ctx, ids, actorID)
}

func (s *TeamService) view(ctx context.Context, team *domain.Team) (*TeamView, error) {
	count, err := countAgentsInTeam(ctx, s.accounts, team.ID)
	if err != nil {
		return nil, fmt.Errorf("count team agents: %w", err)
	}
	return &TeamView{Team: *team, AgentCount: count}, nil
}

func validateSessionTimeout(seconds int) error {
	if seconds < domain.MinSessionTimeout || seconds > domain.MaxSessionTimeout {
		return apperrors.NewValidationError(
			fmt.Sprintf("session_timeout must be between %d and %d seconds", domain.MinSessionTimeout, domain.MaxSessionTimeout),
			map[string]any{"field": "session_timeout"})
	}
	return nil
}
