package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk-admin/internal/auth"
	"github.com/spec-kit/chatdesk-admin/internal/config"
	"github.com/spec-kit/chatdesk-admin/internal/domain"
	"github.com/spec-kit/chatdesk-admin/internal/events"
	"github.com/spec-kit/chatdesk-admin/internal/repository"
	apperrors "github.com/spec-kit/chatdesk-admin/pkg/util/errorutil"
)

// AccountCreateInput describes a new admin or agent.
type AccountCreateInput struct {
	Name     string
	Username string
	Email    string
	Password string
	Active   *bool
	// TeamID is honoured for agents only.
	TeamID *string
}

// AccountUpdateInput is a partial update; nil fields are left unchanged.
type AccountUpdateInput struct {
	Name     *string
	Username *string
	Email    *string
	Password *string
	Active   *bool
	TeamID   OptionalID
}

// AccountView is an account without its password hash.
type AccountView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Active    bool        `json:"is_active"`
	TeamID    *string     `json:"team_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewAccountView strips secrets from an account.
func NewAccountView(a *domain.Account) AccountView {
	return AccountView{
		ID:        a.ID,
		Name:      a.Name,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
		Active:    a.Active,
		TeamID:    a.TeamID,
		CreatedAt: a.CreatedAt,
	}
}

// AccountService manages administrators and agents. Both roles share one
// collection, so usernames and emails are unique across roles.
type AccountService struct {
	admins *resource[domain.Account]
	agents *resource[domain.Account]
	teams  *resource[domain.Team]
	hasher *auth.PasswordHasher
	logger *zap.Logger
	now    func() time.Time
}

// AccountDependencies bundles requirements for the account service.
type AccountDependencies struct {
	Collections repository.Collections
	Hasher      *auth.PasswordHasher
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAccountService constructs the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	unique := []uniqueField[domain.Account]{
		{field: repository.FieldUsername, value: func(a *domain.Account) string { return a.Username }},
		{field: repository.FieldEmail, value: func(a *domain.Account) string { return a.Email }},
	}
	view := func(a *domain.Account) interface{} { return NewAccountView(a) }
	search := []string{repository.FieldName, repository.FieldUsername, repository.FieldEmail}

	s := &AccountService{hasher: deps.Hasher, logger: logger, now: time.Now}
	s.admins = newResource(resourceConfig[domain.Account]{
		kind:         "Admin",
		eventKind:    events.ResourceAccount,
		coll:         deps.Collections.Accounts,
		scope:        repository.Where(repository.Eq(repository.FieldRole, string(domain.RoleAdmin))),
		searchFields: search,
		unique:       unique,
		beforeDelete: denySelfDelete,
		itemwiseBulk: true,
		eventView:    view,
		dispatcher:   deps.Dispatcher,
		logger:       logger,
	})
	s.agents = newResource(resourceConfig[domain.Account]{
		kind:         "Agent",
		eventKind:    events.ResourceAccount,
		coll:         deps.Collections.Accounts,
		scope:        repository.Where(repository.Eq(repository.FieldRole, string(domain.RoleAgent))),
		searchFields: search,
		unique:       unique,
		eventView:    view,
		dispatcher:   deps.Dispatcher,
		logger:       logger,
	})
	s.teams = newTeamLookup(deps.Collections.Teams)
	return s
}

func denySelfDelete(_ context.Context, a *domain.Account, actorID string) error {
	if a.ID == actorID {
		return apperrors.NewSelfModificationDenied("you cannot delete your own account")
	}
	return nil
}

func (s *AccountService) resourceFor(role domain.Role) (*resource[domain.Account], error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	if role == domain.RoleAdmin {
		return s.admins, nil
	}
	return s.agents, nil
}

// List returns one page of accounts with the given role.
func (s *AccountService) List(ctx context.Context, role domain.Role, params ListParams) (*Page[domain.Account], error) {
	r, err := s.resourceFor(role)
	if err != nil {
		return nil, err
	}
	return r.list(ctx, params)
}

// Get returns one account with the given role.
func (s *AccountService) Get(ctx context.Context, role domain.Role, id string) (*domain.Account, error) {
	r, err := s.resourceFor(role)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, id)
}

// Create validates and stores a new account.
func (s *AccountService) Create(ctx context.Context, role domain.Role, actorID string, input AccountCreateInput) (*domain.Account, error) {
	r, err := s.resourceFor(role)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		Username:  strings.TrimSpace(input.Username),
		Email:     strings.TrimSpace(input.Email),
		Role:      role,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	if input.Active != nil {
		account.Active = *input.Active
	}
	if err := validateAccount(account.Name, account.Username, account.Email); err != nil {
		return nil, err
	}
	if input.Password == "" {
		return nil, apperrors.NewValidationError("password is required", map[string]any{"field": "password"})
	}

	if role == domain.RoleAgent && input.TeamID != nil && *input.TeamID != "" {
		if err := s.requireTeam(ctx, *input.TeamID); err != nil {
			return nil, err
		}
		teamID := *input.TeamID
		account.TeamID = &teamID
	}

	hash, err := s.hasher.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account.PasswordHash = hash

	if err := r.create(ctx, account, actorID); err != nil {
		return nil, err
	}
	return account, nil
}

// Update applies a partial update. An admin may not deactivate themself.
func (s *AccountService) Update(ctx context.Context, role domain.Role, actorID, id string, input AccountUpdateInput) (*domain.Account, error) {
	r, err := s.resourceFor(role)
	if err != nil {
		return nil, err
	}
	if role == domain.RoleAdmin && id == actorID && input.Active != nil && !*input.Active {
		return nil, apperrors.NewSelfModificationDenied("you cannot deactivate your own account")
	}

	changes := repository.Changes{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
		}
		changes[repository.FieldName] = name
	}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, apperrors.NewValidationError("username is required", map[string]any{"field": "username"})
		}
		changes[repository.FieldUsername] = username
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		changes[repository.FieldEmail] = email
	}
	if input.Active != nil {
		changes[repository.FieldActive] = *input.Active
	}
	if input.Password != nil {
		if *input.Password == "" {
			return nil, apperrors.NewValidationError("password cannot be empty", map[string]any{"field": "password"})
		}
		hash, err := s.hasher.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		changes["password_hash"] = hash
	}
	if role == domain.RoleAgent && input.TeamID.Set {
		if input.TeamID.Value == nil || *input.TeamID.Value == "" {
			changes[repository.FieldTeamID] = nil
		} else {
			if err := s.requireTeam(ctx, *input.TeamID.Value); err != nil {
				return nil, err
			}
			changes[repository.FieldTeamID] = *input.TeamID.Value
		}
	}

	return r.update(ctx, id, changes, actorID)
}

// Delete removes an account. An admin may not delete themself.
func (s *AccountService) Delete(ctx context.Context, role domain.Role, actorID, id string) error {
	r, err := s.resourceFor(role)
	if err != nil {
		return err
	}
	return r.delete(ctx, id, actorID)
}

// BulkDelete removes several accounts of one role. The caller's own id is
// dropped from an admin batch without being reported.
func (s *AccountService) BulkDelete(ctx context.Context, role domain.Role, actorID string, ids []string) (*BulkDeleteResult, error) {
	r, err := s.resourceFor(role)
	if err != nil {
		return nil, err
	}
	if role == domain.RoleAdmin {
		filtered := make([]string, 0, len(ids))
		for _, id := range ids {
			if strings.TrimSpace(id) != actorID {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
	}
	return r.bulkDelete(ctx, ids, actorID)
}

// EnsureSeedAdmin creates the configured administrator when no admin
// exists. It reports whether an account was created.
func (s *AccountService) EnsureSeedAdmin(ctx context.Context, seed config.SeedConfig) (*domain.Account, bool, error) {
	count, err := s.admins.coll.Count(ctx, s.admins.scope)
	if err != nil {
		return nil, false, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return nil, false, nil
	}
	if seed.Password == "" {
		return nil, false, apperrors.NewValidationError("seed admin password is not configured", map[string]any{"field": "SEED_ADMIN_PASSWORD"})
	}

	account, err := s.Create(ctx, domain.RoleAdmin, "", AccountCreateInput{
		Name:     seed.Name,
		Username: seed.Username,
		Email:    seed.Email,
		Password: seed.Password,
	})
	if err != nil {
		return nil, false, err
	}
	s.logger.Info("seed admin created", zap.String("account_id", account.ID), zap.String("username", account.Username))
	return account, true, nil
}

func (s *AccountService) requireTeam(ctx context.Context, teamID string) error {
	ok, err := s.teams.exists(ctx, teamID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewValidationError("team does not exist", map[string]any{"field": "team_id", "team_id": teamID})
	}
	return nil
}

func countAgentsInTeam(ctx context.Context, accounts repository.Collection[domain.Account], teamID string) (int64, error) {
	return accounts.Count(ctx, repository.Where(
		repository.Eq(repository.FieldRole, string(domain.RoleAgent)),
		repository.Eq(repository.FieldTeamID, teamID),
	))
}

func validateAccount(name, username, email string) error {
	if name == "" {
		return apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if username == "" {
		return apperrors.NewValidationError("username is required", map[string]any{"field": "username"})
	}
	return validateEmail(email)
}

func validateEmail(email string) error {
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return apperrors.NewValidationError("email is invalid", map[string]any{"field": "email"})
	}
	return nil
}
