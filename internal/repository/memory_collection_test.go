package repository

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/chatdesk-admin/internal/domain"
)

func newAccount(id, username, email string, role domain.Role, created time.Time) *domain.Account {
	return &domain.Account{
		ID:        id,
		Name:      "Name " + id,
		Username:  username,
		Email:     email,
		Role:      role,
		Active:    true,
		CreatedAt: created,
	}
}

func TestMemoryCollection_InsertEnforcesUniqueFields(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryCollection[domain.Account](AccountsCollection, FieldUsername, FieldEmail)
	now := time.Now()

	require.NoError(t, coll.Insert(ctx, newAccount("a1", "alice", "alice@example.com", domain.RoleAdmin, now)))

	err := coll.Insert(ctx, newAccount("a2", "alice", "other@example.com", domain.RoleAgent, now))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateKey))
	var dup *DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, FieldUsername, dup.Field)

	err = coll.Insert(ctx, newAccount("a3", "bob", "alice@example.com", domain.RoleAgent, now))
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, FieldEmail, dup.Field)

	err = coll.Insert(ctx, newAccount("a1", "carol", "carol@example.com", domain.RoleAgent, now))
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, FieldID, dup.Field)
}

func TestMemoryCollection_UpdateMergesAndRechecksUniqueness(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryCollection[domain.Account](AccountsCollection, FieldUsername, FieldEmail)
	now := time.Now()
	require.NoError(t, coll.Insert(ctx, newAccount("a1", "alice", "alice@example.com", domain.RoleAdmin, now)))
	require.NoError(t, coll.Insert(ctx, newAccount("a2", "bob", "bob@example.com", domain.RoleAgent, now)))

	require.NoError(t, coll.Update(ctx, "a2", Changes{FieldName: "Bobby", FieldActive: false}))
	got, err := coll.FindOne(ctx, Where(Eq(FieldID, "a2")))
	require.NoError(t, err)
	assert.Equal(t, "Bobby", got.Name)
	assert.False(t, got.Active)
	assert.Equal(t, "bob", got.Username)

	err = coll.Update(ctx, "a2", Changes{FieldUsername: "alice"})
	assert.True(t, errors.Is(err, ErrDuplicateKey))

	require.NoError(t, coll.Update(ctx, "a2", Changes{FieldUsername: "bob"}), "own value is not a conflict")

	assert.ErrorIs(t, coll.Update(ctx, "missing", Changes{FieldName: "x"}), ErrNotFound)
}

func TestMemoryCollection_ReturnedDocumentsAreCopies(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryCollection[domain.Account](AccountsCollection)
	doc := newAccount("a1", "alice", "alice@example.com", domain.RoleAdmin, time.Now())
	require.NoError(t, coll.Insert(ctx, doc))

	doc.Name = "changed after insert"
	got, err := coll.FindOne(ctx, Where(Eq(FieldID, "a1")))
	require.NoError(t, err)
	assert.Equal(t, "Name a1", got.Name)

	got.Name = "changed after read"
	again, err := coll.FindOne(ctx, Where(Eq(FieldID, "a1")))
	require.NoError(t, err)
	assert.Equal(t, "Name a1", again.Name)
}

func TestMemoryCollection_FindFiltersSortsAndPages(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryCollection[domain.Account](AccountsCollection)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, coll.Insert(ctx, newAccount("a1", "alice", "alice@example.com", domain.RoleAgent, base)))
	require.NoError(t, coll.Insert(ctx, newAccount("a2", "bob", "bob@corp.io", domain.RoleAgent, base.Add(time.Minute))))
	require.NoError(t, coll.Insert(ctx, newAccount("a3", "carol", "carol@example.com", domain.RoleAgent, base.Add(2*time.Minute))))
	require.NoError(t, coll.Insert(ctx, newAccount("a4", "dave", "dave@example.com", domain.RoleAdmin, base.Add(3*time.Minute))))

	agents := Where(Eq(FieldRole, string(domain.RoleAgent)))

	all, err := coll.Find(ctx, agents, NewestFirst(0, 0))
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a3", "a2", "a1"}, ids(all))

	page, err := coll.Find(ctx, agents, NewestFirst(1, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, ids(page))

	beyond, err := coll.Find(ctx, agents, NewestFirst(10, 5))
	require.NoError(t, err)
	assert.Empty(t, beyond)

	negative, err := coll.Find(ctx, agents, NewestFirst(-5, 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"a3", "a2"}, ids(negative))

	huge, err := coll.Find(ctx, agents, NewestFirst(math.MaxInt64, math.MaxInt64))
	require.NoError(t, err)
	assert.Empty(t, huge)

	search := agents.Merge(SearchFilter("EXAMPLE", FieldName, FieldUsername, FieldEmail))
	found, err := coll.Find(ctx, search, NewestFirst(0, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"a3", "a1"}, ids(found))

	total, err := coll.Count(ctx, search)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestMemoryCollection_EqualTimestampsBreakTiesByID(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryCollection[domain.Account](AccountsCollection)
	now := time.Now()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, coll.Insert(ctx, newAccount(id, "user-"+id, id+"@example.com", domain.RoleAgent, now)))
	}

	first, err := coll.Find(ctx, Filter{}, NewestFirst(0, 0))
	require.NoError(t, err)
	second, err := coll.Find(ctx, Filter{}, NewestFirst(0, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(first))
	assert.Equal(t, first, second)
}

func TestMemoryCollection_ConditionSemantics(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryCollection[domain.Account](AccountsCollection)
	team := "team-1"
	withTeam := newAccount("a1", "alice", "alice@example.com", domain.RoleAgent, time.Now())
	withTeam.TeamID = &team
	require.NoError(t, coll.Insert(ctx, withTeam))
	require.NoError(t, coll.Insert(ctx, newAccount("a2", "bob", "bob@example.com", domain.RoleAgent, time.Now())))

	tests := []struct {
		name   string
		filter Filter
		want   int64
	}{
		{name: "eq on nullable field", filter: Where(Eq(FieldTeamID, team)), want: 1},
		{name: "ne matches missing values", filter: Where(Ne(FieldTeamID, team)), want: 1},
		{name: "in", filter: Where(In(FieldID, "a1", "a2", "zzz")), want: 2},
		{name: "empty in", filter: Where(In(FieldID)), want: 0},
		{name: "login or email", filter: Filter{}.Or(Eq(FieldUsername, "bob@example.com"), Eq(FieldEmail, "bob@example.com")), want: 1},
		{name: "empty search", filter: SearchFilter("", FieldName), want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coll.Count(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryCollection_Delete(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryCollection[domain.Account](AccountsCollection)
	now := time.Now()
	require.NoError(t, coll.Insert(ctx, newAccount("a1", "alice", "alice@example.com", domain.RoleAdmin, now)))
	require.NoError(t, coll.Insert(ctx, newAccount("a2", "bob", "bob@example.com", domain.RoleAgent, now)))
	require.NoError(t, coll.Insert(ctx, newAccount("a3", "carol", "carol@example.com", domain.RoleAgent, now)))

	assert.ErrorIs(t, coll.DeleteOne(ctx, "missing"), ErrNotFound)
	require.NoError(t, coll.DeleteOne(ctx, "a3"))

	deleted, err := coll.DeleteMany(ctx, Where(Eq(FieldRole, string(domain.RoleAgent)), In(FieldID, "a1", "a2")))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = coll.FindOne(ctx, Where(Eq(FieldID, "a1")))
	assert.NoError(t, err, "admin survives an agent-scoped delete")
}

func ids(accounts []domain.Account) []string {
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.ID)
	}
	return out
}
