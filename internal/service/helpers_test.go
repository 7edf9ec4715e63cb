package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/chatdesk-admin/internal/auth"
	"github.com/spec-kit/chatdesk-admin/internal/config"
	"github.com/spec-kit/chatdesk-admin/internal/domain"
	"github.com/spec-kit/chatdesk-admin/internal/events"
	"github.com/spec-kit/chatdesk-admin/internal/repository"
	apperrors "github.com/spec-kit/chatdesk-admin/pkg/util/errorutil"
)

const testPassword = "correct-horse"

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) record(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	colls    repository.Collections
	auth     *AuthService
	accounts *AccountService
	teams    *TeamService
	flows    *FlowService
	channels *ChannelService
	events   *eventLog
	clock    *fakeClock
}

// fakeClock hands out strictly increasing times so creation order is stable.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	colls := repository.NewMemoryCollections()
	dispatcher := events.NewInMemoryDispatcher()
	log := &eventLog{}
	events.SubscribeAll(dispatcher, log.record)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}

	env := &testEnv{
		colls: colls,
		auth: NewAuthService(AuthDependencies{
			Accounts: colls.Accounts,
			Hasher:   hasher,
			Tokens:   auth.NewTokenManager("test-secret", "chatdesk-admin", 60),
		}),
		accounts: NewAccountService(AccountDependencies{Collections: colls, Hasher: hasher, Dispatcher: dispatcher}),
		teams:    NewTeamService(TeamDependencies{Collections: colls, Dispatcher: dispatcher}),
		flows:    NewFlowService(FlowDependencies{Collections: colls, Dispatcher: dispatcher}),
		channels: NewChannelService(ChannelDependencies{Collections: colls, Dispatcher: dispatcher, PublicURL: "https://chat.example.com/"}),
		events:   log,
		clock:    clock,
	}
	env.accounts.now = clock.Now
	env.teams.now = clock.Now
	env.flows.now = clock.Now
	env.channels.now = clock.Now
	return env
}

func (e *testEnv) seedAdmin(t *testing.T) *domain.Account {
	t.Helper()
	admin, created, err := e.accounts.EnsureSeedAdmin(context.Background(), config.SeedConfig{
		Name:     "Root",
		Username: "admin",
		Email:    "admin@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	require.True(t, created)
	return admin
}

func (e *testEnv) createAccount(t *testing.T, role domain.Role, username string, teamID *string) *domain.Account {
	t.Helper()
	account, err := e.accounts.Create(context.Background(), role, "", AccountCreateInput{
		Name:     "User " + username,
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
		TeamID:   teamID,
	})
	require.NoError(t, err)
	return account
}

func (e *testEnv) createTeam(t *testing.T, name string) *TeamView {
	t.Helper()
	team, err := e.teams.Create(context.Background(), "", TeamCreateInput{Name: name})
	require.NoError(t, err)
	return team
}

func (e *testEnv) createFlow(t *testing.T, name string) *FlowView {
	t.Helper()
	flow, err := e.flows.Create(context.Background(), "", FlowInput{
		Name:  name,
		Nodes: []domain.GraphElement{{"id": "start", "type": "message", "data": map[string]any{"text": "hi"}}},
		Edges: []domain.GraphElement{{"id": "e1", "source": "start", "target": "end"}},
	})
	require.NoError(t, err)
	return flow
}

func requireCode(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, code, domainErr.Code, "error: %v", err)
	return domainErr
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int { return &i }
