package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/chatdesk-admin/internal/domain"
	apperrors "github.com/spec-kit/chatdesk-admin/pkg/util/errorutil"
)

func TestAuthenticate_ByUsernameOrEmail(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedAdmin(t)
	ctx := context.Background()

	for _, login := range []string{"admin", "admin@example.com", "  admin  "} {
		result, err := env.auth.Authenticate(ctx, login, testPassword)
		require.NoError(t, err, login)
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, admin.ID, result.Account.ID)

		claims, err := env.auth.Authorize(ctx, result.Token, domain.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, admin.ID, claims.SubjectID())
		assert.Equal(t, "admin", claims.Username)
		assert.Equal(t, domain.RoleAdmin, claims.Role)
	}
}

func TestAuthenticate_Failures(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	ctx := context.Background()

	_, err := env.auth.Authenticate(ctx, "nobody", testPassword)
	requireCode(t, err, apperrors.CodeInvalidCredentials)

	_, err = env.auth.Authenticate(ctx, "admin", "wrong")
	requireCode(t, err, apperrors.CodeInvalidCredentials)

	_, err = env.auth.Authenticate(ctx, "", "")
	requireCode(t, err, apperrors.CodeInvalidCredentials)

	agent := env.createAccount(t, domain.RoleAgent, "sleepy", nil)
	_, err = env.accounts.Update(ctx, domain.RoleAgent, "", agent.ID, AccountUpdateInput{Active: boolPtr(false)})
	require.NoError(t, err)

	_, err = env.auth.Authenticate(ctx, "sleepy", testPassword)
	domainErr := requireCode(t, err, apperrors.CodeAccountDisabled)
	assert.Equal(t, 401, domainErr.HTTPStatus)
}

func TestAuthorize(t *testing.T) {
	env := newTestEnv(t)
	env.createAccount(t, domain.RoleAgent, "agent1", nil)
	ctx := context.Background()

	result, err := env.auth.Authenticate(ctx, "agent1", testPassword)
	require.NoError(t, err)

	claims, err := env.auth.Authorize(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, claims.Role)

	_, err = env.auth.Authorize(ctx, result.Token, domain.RoleAdmin)
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = env.auth.Authorize(ctx, "garbage")
	requireCode(t, err, apperrors.CodeUnauthenticated)

	_, err = env.auth.Authorize(ctx, "")
	requireCode(t, err, apperrors.CodeUnauthenticated)

	me, err := env.auth.Me(claims)
	require.NoError(t, err)
	assert.Equal(t, "agent1", me.Username)
	assert.Equal(t, "agent1@example.com", me.Email)

	_, err = env.auth.Me(nil)
	requireCode(t, err, apperrors.CodeUnauthenticated)
}

func TestAuthorize_ClaimsOutliveDeactivation(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createAccount(t, domain.RoleAgent, "agent1", nil)
	ctx := context.Background()

	result, err := env.auth.Authenticate(ctx, "agent1", testPassword)
	require.NoError(t, err)

	_, err = env.accounts.Update(ctx, domain.RoleAgent, "", agent.ID, AccountUpdateInput{Active: boolPtr(false)})
	require.NoError(t, err)

	_, err = env.auth.Authorize(ctx, result.Token)
	assert.NoError(t, err, "tokens stay valid until they expire")
}
