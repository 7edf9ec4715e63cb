package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/spec-kit/chatdesk-admin/internal/domain"
)

// Collection names, shared by every backend.
const (
	AccountsCollection = "accounts"
	ChannelsCollection = "channels"
	FlowsCollection    = "flows"
	TeamsCollection    = "teams"
)

var (
	accountUniqueFields = []string{FieldUsername, FieldEmail}
	teamUniqueFields    = []string{FieldName}
)

// Collections bundles one collection per resource type.
type Collections struct {
	Accounts Collection[domain.Account]
	Channels Collection[domain.Channel]
	Flows    Collection[domain.Flow]
	Teams    Collection[domain.Team]
}

// NewPostgresCollections binds every resource to its JSONB table. The unique
// indexes come from migrations/.
func NewPostgresCollections(pool *pgxpool.Pool, timeout time.Duration) Collections {
	return Collections{
		Accounts: NewPostgresCollection[domain.Account](pool, AccountsCollection, timeout),
		Channels: NewPostgresCollection[domain.Channel](pool, ChannelsCollection, timeout),
		Flows:    NewPostgresCollection[domain.Flow](pool, FlowsCollection, timeout),
		Teams:    NewPostgresCollection[domain.Team](pool, TeamsCollection, timeout),
	}
}

// NewMongoCollections binds every resource to a MongoDB collection and
// creates its indexes.
func NewMongoCollections(ctx context.Context, db *mongo.Database, timeout time.Duration) (Collections, error) {
	indexes := map[string][]string{
		AccountsCollection: accountUniqueFields,
		ChannelsCollection: nil,
		FlowsCollection:    nil,
		TeamsCollection:    teamUniqueFields,
	}
	for name, unique := range indexes {
		if err := EnsureIndexes(ctx, db, name, unique...); err != nil {
			return Collections{}, err
		}
	}
	return Collections{
		Accounts: NewMongoCollection[domain.Account](db, AccountsCollection, timeout, accountUniqueFields...),
		Channels: NewMongoCollection[domain.Channel](db, ChannelsCollection, timeout),
		Flows:    NewMongoCollection[domain.Flow](db, FlowsCollection, timeout),
		Teams:    NewMongoCollection[domain.Team](db, TeamsCollection, timeout, teamUniqueFields...),
	}, nil
}

// NewMemoryCollections returns empty in-process collections.
func NewMemoryCollections() Collections {
	return Collections{
		Accounts: NewMemoryCollection[domain.Account](AccountsCollection, accountUniqueFields...),
		Channels: NewMemoryCollection[domain.Channel](ChannelsCollection),
		Flows:    NewMemoryCollection[domain.Flow](FlowsCollection),
		Teams:    NewMemoryCollection[domain.Team](TeamsCollection, teamUniqueFields...),
	}
}
