package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/chatdesk-admin/internal/config"
	"github.com/spec-kit/chatdesk-admin/internal/domain"
	"github.com/spec-kit/chatdesk-admin/internal/events"
	"github.com/spec-kit/chatdesk-admin/internal/repository"
	apperrors "github.com/spec-kit/chatdesk-admin/pkg/util/errorutil"
)

func TestAccountCreate_UniqueAcrossRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createAccount(t, domain.RoleAdmin, "alice", nil)

	tests := []struct {
		name  string
		role  domain.Role
		input AccountCreateInput
		field string
	}{
		{
			name:  "agent reuses admin username",
			role:  domain.RoleAgent,
			input: AccountCreateInput{Name: "A", Username: "alice", Email: "other@example.com", Password: "pw"},
			field: "username",
		},
		{
			name:  "agent reuses admin email",
			role:  domain.RoleAgent,
			input: AccountCreateInput{Name: "A", Username: "other", Email: "alice@example.com", Password: "pw"},
			field: "email",
		},
		{
			name:  "admin reuses admin username",
			role:  domain.RoleAdmin,
			input: AccountCreateInput{Name: "A", Username: "alice", Email: "x@example.com", Password: "pw"},
			field: "username",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.accounts.Create(ctx, tt.role, "", tt.input)
			domainErr := requireCode(t, err, apperrors.CodeDuplicateValue)
			assert.Equal(t, tt.field, domainErr.Details["field"])
			assert.Equal(t, 400, domainErr.HTTPStatus)
		})
	}
}

// racingAccounts hides existing documents from the uniqueness pre-check so
// the store's own unique index has to catch the conflict.
type racingAccounts struct {
	repository.Collection[domain.Account]
}

func (r racingAccounts) Count(context.Context, repository.Filter) (int64, error) {
	return 0, nil
}

func TestAccountCreate_StoreConflictBecomesDuplicateValue(t *testing.T) {
	colls := repository.NewMemoryCollections()
	colls.Accounts = racingAccounts{Collection: colls.Accounts}
	env := newTestEnv(t)
	svc := NewAccountService(AccountDependencies{Collections: colls, Hasher: env.accounts.hasher})
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.RoleAgent, "", AccountCreateInput{Name: "A", Username: "dup", Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.RoleAgent, "", AccountCreateInput{Name: "B", Username: "dup", Email: "b@example.com", Password: "pw"})
	domainErr := requireCode(t, err, apperrors.CodeDuplicateValue)
	assert.Equal(t, "username", domainErr.Details["field"])
}

func TestAccountCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.accounts.Create(ctx, domain.RoleAgent, "", AccountCreateInput{Name: "A", Username: "a", Email: "not-an-email", Password: "pw"})
	requireCode(t, err, apperrors.CodeValidationFailed)

	_, err = env.accounts.Create(ctx, domain.RoleAgent, "", AccountCreateInput{Name: "A", Username: "a", Email: "a@example.com"})
	requireCode(t, err, apperrors.CodeValidationFailed)

	_, err = env.accounts.Create(ctx, domain.RoleAgent, "", AccountCreateInput{Name: "A", Username: "a", Email: "a@example.com", Password: "pw", TeamID: strPtr("missing")})
	domainErr := requireCode(t, err, apperrors.CodeValidationFailed)
	assert.Equal(t, "team_id", domainErr.Details["field"])

	_, err = env.accounts.Create(ctx, domain.Role("root"), "", AccountCreateInput{Name: "A", Username: "a", Email: "a@example.com", Password: "pw"})
	requireCode(t, err, apperrors.CodeValidationFailed)
}

func TestAccountCreate_DefaultsAndHashing(t *testing.T) {
	env := newTestEnv(t)
	team := env.createTeam(t, "Support")
	agent := env.createAccount(t, domain.RoleAgent, "agent1", &team.ID)

	assert.True(t, agent.Active)
	assert.Equal(t, domain.RoleAgent, agent.Role)
	require.NotNil(t, agent.TeamID)
	assert.Equal(t, team.ID, *agent.TeamID)
	assert.NotEqual(t, testPassword, agent.PasswordHash)
	assert.True(t, env.accounts.hasher.ComparePassword(agent.PasswordHash, testPassword))

	admin := env.createAccount(t, domain.RoleAdmin, "admin2", &team.ID)
	assert.Nil(t, admin.TeamID, "admins never carry a team")
}

func TestAccountGet_ScopedByRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agent := env.createAccount(t, domain.RoleAgent, "agent1", nil)

	got, err := env.accounts.Get(ctx, domain.RoleAgent, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, agent.Username, got.Username)

	again, err := env.accounts.Get(ctx, domain.RoleAgent, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	_, err = env.accounts.Get(ctx, domain.RoleAdmin, agent.ID)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestAccountUpdate_PartialAndUnique(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createAccount(t, domain.RoleAdmin, "alice", nil)
	bob := env.createAccount(t, domain.RoleAgent, "bob", nil)

	updated, err := env.accounts.Update(ctx, domain.RoleAgent, "", bob.ID, AccountUpdateInput{Name: strPtr("Robert")})
	require.NoError(t, err)
	assert.Equal(t, "Robert", updated.Name)
	assert.Equal(t, "bob", updated.Username)
	assert.Equal(t, "bob@example.com", updated.Email)

	_, err = env.accounts.Update(ctx, domain.RoleAgent, "", bob.ID, AccountUpdateInput{Email: strPtr("alice@example.com")})
	domainErr := requireCode(t, err, apperrors.CodeDuplicateValue)
	assert.Equal(t, "email", domainErr.Details["field"])

	_, err = env.accounts.Update(ctx, domain.RoleAgent, "", bob.ID, AccountUpdateInput{Username: strPtr("bob")})
	assert.NoError(t, err, "keeping its own username is not a conflict")

	_, err = env.accounts.Update(ctx, domain.RoleAgent, "", "missing", AccountUpdateInput{Name: strPtr("x")})
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestAccountUpdate_PasswordAndTeam(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	team := env.createTeam(t, "Support")
	agent := env.createAccount(t, domain.RoleAgent, "agent1", nil)

	updated, err := env.accounts.Update(ctx, domain.RoleAgent, "", agent.ID, AccountUpdateInput{
		Password: strPtr("new-secret"),
		TeamID:   OptionalID{Set: true, Value: &team.ID},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.TeamID)
	assert.Equal(t, team.ID, *updated.TeamID)

	_, err = env.auth.Authenticate(ctx, "agent1", "new-secret")
	require.NoError(t, err)

	updated, err = env.accounts.Update(ctx, domain.RoleAgent, "", agent.ID, AccountUpdateInput{TeamID: OptionalID{Set: true}})
	require.NoError(t, err)
	assert.Nil(t, updated.TeamID)

	_, err = env.accounts.Update(ctx, domain.RoleAgent, "", agent.ID, AccountUpdateInput{TeamID: OptionalID{Set: true, Value: strPtr("missing")}})
	requireCode(t, err, apperrors.CodeValidationFailed)
}

func TestAdminSelfProtection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	me := env.seedAdmin(t)

	_, err := env.accounts.Update(ctx, domain.RoleAdmin, me.ID, me.ID, AccountUpdateInput{Active: boolPtr(false)})
	requireCode(t, err, apperrors.CodeSelfModificationDenied)

	err = env.accounts.Delete(ctx, domain.RoleAdmin, me.ID, me.ID)
	requireCode(t, err, apperrors.CodeSelfModificationDenied)

	renamed, err := env.accounts.Update(ctx, domain.RoleAdmin, me.ID, me.ID, AccountUpdateInput{Name: strPtr("X")})
	require.NoError(t, err)
	assert.Equal(t, "X", renamed.Name)

	_, err = env.accounts.Update(ctx, domain.RoleAdmin, me.ID, me.ID, AccountUpdateInput{Active: boolPtr(true)})
	assert.NoError(t, err)

	other := env.createAccount(t, domain.RoleAdmin, "other", nil)
	_, err = env.accounts.Update(ctx, domain.RoleAdmin, me.ID, other.ID, AccountUpdateInput{Active: boolPtr(false)})
	require.NoError(t, err)
	require.NoError(t, env.accounts.Delete(ctx, domain.RoleAdmin, me.ID, other.ID))
}

func TestAdminBulkDelete_DropsCallerSilently(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	me := env.seedAdmin(t)
	a := env.createAccount(t, domain.RoleAdmin, "a", nil)
	b := env.createAccount(t, domain.RoleAdmin, "b", nil)
	agent := env.createAccount(t, domain.RoleAgent, "agent", nil)

	result, err := env.accounts.BulkDelete(ctx, domain.RoleAdmin, me.ID, []string{a.ID, me.ID, b.ID, a.ID, agent.ID, "ghost"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.DeletedCount)
	assert.Equal(t, []SkippedItem{
		{ID: agent.ID, Reason: "not found"},
		{ID: "ghost", Reason: "not found"},
	}, result.Skipped)

	_, err = env.accounts.Get(ctx, domain.RoleAdmin, me.ID)
	assert.NoError(t, err)
	_, err = env.accounts.Get(ctx, domain.RoleAgent, agent.ID)
	assert.NoError(t, err, "admin bulk delete never touches agents")
}

func TestAgentBulkDelete_ScopedToAgents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedAdmin(t)
	a1 := env.createAccount(t, domain.RoleAgent, "a1", nil)
	a2 := env.createAccount(t, domain.RoleAgent, "a2", nil)

	result, err := env.accounts.BulkDelete(ctx, domain.RoleAgent, admin.ID, []string{a1.ID, a2.ID, admin.ID, "ghost"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.DeletedCount)
	assert.NotNil(t, result.Skipped)
	assert.Empty(t, result.Skipped)

	_, err = env.accounts.Get(ctx, domain.RoleAdmin, admin.ID)
	assert.NoError(t, err)
	assert.Contains(t, env.events.types(), events.EventAccountBulkDeleted)
}

func TestAccountList_PaginationAndSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, name := range []string{"anna", "ben", "carla", "dave", "erin"} {
		env.createAccount(t, domain.RoleAgent, name, nil)
	}
	env.createAccount(t, domain.RoleAdmin, "boss", nil)

	page, err := env.accounts.List(ctx, domain.RoleAgent, ListParams{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "erin", page.Items[0].Username, "newest first")
	assert.Equal(t, "dave", page.Items[1].Username)

	last, err := env.accounts.List(ctx, domain.RoleAgent, ListParams{Page: 3, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.Equal(t, "anna", last.Items[0].Username)

	empty, err := env.accounts.List(ctx, domain.RoleAgent, ListParams{Page: 9, PerPage: 2})
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
	assert.EqualValues(t, 5, empty.Total)

	search, err := env.accounts.List(ctx, domain.RoleAgent, ListParams{Page: 1, PerPage: 10, Search: "AR"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, search.Total)
	assert.Equal(t, "carla", search.Items[0].Username)

	repeat, err := env.accounts.List(ctx, domain.RoleAgent, ListParams{Page: 1, PerPage: 10, Search: "AR"})
	require.NoError(t, err)
	assert.Equal(t, search, repeat)

	_, err = env.accounts.List(ctx, domain.RoleAgent, ListParams{Page: 0, PerPage: 10})
	requireCode(t, err, apperrors.CodeValidationFailed)
	_, err = env.accounts.List(ctx, domain.RoleAgent, ListParams{Page: 1, PerPage: 101})
	requireCode(t, err, apperrors.CodeValidationFailed)
	require.NotPanics(t, func() {
		_, err = env.accounts.List(ctx, domain.RoleAgent, ListParams{Page: math.MaxInt64/MaxPerPage + 2, PerPage: MaxPerPage})
	})
	requireCode(t, err, apperrors.CodeValidationFailed)
}

func TestEnsureSeedAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seed := config.SeedConfig{Name: "Root", Username: "root", Email: "root@example.com", Password: "pw"}

	admin, created, err := env.accounts.EnsureSeedAdmin(ctx, seed)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	_, created, err = env.accounts.EnsureSeedAdmin(ctx, seed)
	require.NoError(t, err)
	assert.False(t, created)

	total, err := env.colls.Accounts.Count(ctx, repository.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	fresh := newTestEnv(t)
	_, _, err = fresh.accounts.EnsureSeedAdmin(ctx, config.SeedConfig{Username: "root", Email: "root@example.com"})
	requireCode(t, err, apperrors.CodeValidationFailed)
}

func TestAccountEvents_HidePasswordHash(t *testing.T) {
	env := newTestEnv(t)
	env.createAccount(t, domain.RoleAgent, "agent1", nil)

	require.NotEmpty(t, env.events.events)
	created := env.events.events[len(env.events.events)-1]
	assert.Equal(t, events.EventAccountCreated, created.Type)
	view, ok := created.Payload.(AccountView)
	require.True(t, ok)
	assert.Equal(t, "agent1", view.Username)
}
