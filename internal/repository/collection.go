package repository

import (
	"context"
	"time"
)

// Document is implemented by every stored entity.
type Document interface {
	DocumentID() string
	CreatedTime() time.Time
}

// Collection is a store-neutral document collection. Implementations own
// persistence only; no business rules run here.
type Collection[T Document] interface {
	FindOne(ctx context.Context, filter Filter) (*T, error)
	Find(ctx context.Context, filter Filter, opts FindOptions) ([]T, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Insert(ctx context.Context, doc *T) error
	Update(ctx context.Context, id string, changes Changes) error
	DeleteOne(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
}

// Changes maps stored field names to their new values for a partial update.
type Changes map[string]any

// FindOptions controls paging and ordering for Find.
type FindOptions struct {
	Skip       int64
	Limit      int64
	SortBy     string
	Descending bool
}

// NewestFirst orders by creation time, most recent first.
func NewestFirst(skip, limit int64) FindOptions {
	return FindOptions{Skip: skip, Limit: limit, SortBy: FieldCreatedAt, Descending: true}
}

// Stored field names shared by the services and the backends.
const (
	FieldID        = "id"
	FieldName      = "name"
	FieldUsername  = "username"
	FieldEmail     = "email"
	FieldRole      = "role"
	FieldActive    = "is_active"
	FieldTeamID    = "team_id"
	FieldType      = "type"
	FieldFlowID    = "flow_id"
	FieldFlowName  = "flow_name"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
