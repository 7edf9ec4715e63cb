package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk-admin/internal/events"
	"github.com/spec-kit/chatdesk-admin/internal/repository"
	apperrors "github.com/spec-kit/chatdesk-admin/pkg/util/errorutil"
)

// Paging limits for list operations.
const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// ListParams selects one page of a resource listing.
type ListParams struct {
	Page    int
	PerPage int
	Search  string
}

// Page is one page of results. Total counts every match, not just Items.
type Page[T any] struct {
	Items   []T
	Total   int64
	Page    int
	PerPage int
}

// SkippedItem explains why a bulk delete left an id in place.
type SkippedItem struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkDeleteResult reports partial success of a bulk delete.
type BulkDeleteResult struct {
	DeletedCount int64
	Skipped      []SkippedItem
}

// OptionalID is a nullable reference in a partial update. Set reports that
// the field was present; a nil Value clears the reference.
type OptionalID struct {
	Set   bool
	Value *string
}

// uniqueField names a field that must be unique across the whole
// collection, plus how to read it from a new document.
type uniqueField[T any] struct {
	field string
	value func(*T) string
}

// deleteGuard vetoes a delete. A returned DomainError becomes the skip
// reason during item-by-item bulk deletes.
type deleteGuard[T any] func(ctx context.Context, doc *T, actorID string) error

type resourceConfig[T repository.Document] struct {
	kind         string
	eventKind    string
	coll         repository.Collection[T]
	scope        repository.Filter
	searchFields []string
	unique       []uniqueField[T]
	beforeDelete deleteGuard[T]
	itemwiseBulk bool
	// eventView shapes documents carried in change events; defaults to the document.
	eventView    func(*T) interface{}
	dispatcher   events.Dispatcher
	logger       *zap.Logger
}

// resource runs the CRUD rules shared by every administered resource.
// Store calls are issued one after another without a transaction; unique
// indexes in the store catch what the pre-checks miss.
type resource[T repository.Document] struct {
	resourceConfig[T]
}

func newResource[T repository.Document](cfg resourceConfig[T]) *resource[T] {
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return &resource[T]{resourceConfig: cfg}
}

func (r *resource[T]) list(ctx context.Context, params ListParams) (*Page[T], error) {
	if params.Page < 1 {
		return nil, apperrors.NewValidationError("page must be at least 1", map[string]any{"page": params.Page})
	}
	if params.PerPage < 1 || params.PerPage > MaxPerPage {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("per_page must be between 1 and %d", MaxPerPage),
			map[string]any{"per_page": params.PerPage})
	}
	if int64(params.Page-1) > math.MaxInt64/int64(params.PerPage) {
		return nil, apperrors.NewValidationError("page is out of range", map[string]any{"page": params.Page})
	}

	filter := r.scope.Merge(repository.SearchFilter(strings.TrimSpace(params.Search), r.searchFields...))
	total, err := r.coll.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", r.kind, err)
	}

	skip := int64(params.Page-1) * int64(params.PerPage)
	items, err := r.coll.Find(ctx, filter, repository.NewestFirst(skip, int64(params.PerPage)))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.kind, err)
	}
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, Total: total, Page: params.Page, PerPage: params.PerPage}, nil
}

// get returns NotFound for ids outside the resource scope, so an agent id
// is never visible through the admin resource.
func (r *resource[T]) get(ctx context.Context, id string) (*T, error) {
	doc, err := r.coll.FindOne(ctx, r.scope.And(repository.Eq(repository.FieldID, id)))
	if err != nil {
		return nil, r.storeError(err, id)
	}
	return doc, nil
}

func (r *resource[T]) exists(ctx context.Context, id string) (bool, error) {
	_, err := r.get(ctx, id)
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *resource[T]) create(ctx context.Context, doc *T, actorID string) error {
	values := make(map[string]string, len(r.unique))
	for _, u := range r.unique {
		values[u.field] = u.value(doc)
	}
	if err := r.checkUnique(ctx, values, ""); err != nil {
		return err
	}

	id := (*doc).DocumentID()
	if err := r.coll.Insert(ctx, doc); err != nil {
		return r.storeError(err, id)
	}
	r.publish(ctx, events.ActionCreated, id, actorID, r.view(doc))
	return nil
}

// update applies only the given changes. Unique values are re-checked
// against every other document.
func (r *resource[T]) update(ctx context.Context, id string, changes repository.Changes, actorID string) (*T, error) {
	current, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return current, nil
	}

	values := make(map[string]string)
	for _, u := range r.unique {
		if v, ok := changes[u.field].(string); ok {
			values[u.field] = v
		}
	}
	if err := r.checkUnique(ctx, values, id); err != nil {
		return nil, err
	}

	if err := r.coll.Update(ctx, id, changes); err != nil {
		return nil, r.storeError(err, id)
	}
	updated, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, events.ActionUpdated, id, actorID, r.view(updated))
	return updated, nil
}

func (r *resource[T]) delete(ctx context.Context, id, actorID string) error {
	doc, err := r.get(ctx, id)
	if err != nil {
		return err
	}
	if r.beforeDelete != nil {
		if err := r.beforeDelete(ctx, doc, actorID); err != nil {
			return err
		}
	}
	if err := r.coll.DeleteOne(ctx, id); err != nil {
		return r.storeError(err, id)
	}
	r.publish(ctx, events.ActionDeleted, id, actorID, nil)
	return nil
}

// bulkDelete removes ids within the resource scope. Resources without
// delete guards use a single scoped delete-many; the rest are evaluated
// one id at a time in input order and report what they skipped.
func (r *resource[T]) bulkDelete(ctx context.Context, ids []string, actorID string) (*BulkDeleteResult, error) {
	ids = dedupeIDs(ids)
	result := &BulkDeleteResult{Skipped: []SkippedItem{}}
	if len(ids) == 0 {
		return result, nil
	}

	if !r.itemwiseBulk {
		deleted, err := r.coll.DeleteMany(ctx, r.scope.And(repository.In(repository.FieldID, ids...)))
		if err != nil {
			return nil, fmt.Errorf("bulk delete %s: %w", r.kind, err)
		}
		result.DeletedCount = deleted
	} else {
		for _, id := range ids {
			reason, err := r.deleteOne(ctx, id, actorID)
			if err != nil {
				return nil, err
			}
			if reason != "" {
				result.Skipped = append(result.Skipped, SkippedItem{ID: id, Reason: reason})
				continue
			}
			result.DeletedCount++
		}
	}

	if result.DeletedCount > 0 {
		r.publish(ctx, events.ActionBulkDeleted, "", actorID, events.BulkDeletedPayload{
			RequestedIDs: ids,
			DeletedCount: result.DeletedCount,
			SkippedIDs:   skippedIDs(result.Skipped),
		})
	}
	return result, nil
}

// deleteOne returns a skip reason for business-rule failures and an error
// only for store failures.
func (r *resource[T]) deleteOne(ctx context.Context, id, actorID string) (string, error) {
	err := r.delete(ctx, id, actorID)
	if err == nil {
		return "", nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) && domainErr.HTTPStatus < 500 {
		if domainErr.Code == apperrors.CodeNotFound {
			return "not found", nil
		}
		return domainErr.Message, nil
	}
	return "", err
}

func (r *resource[T]) checkUnique(ctx context.Context, values map[string]string, excludeID string) error {
	for _, u := range r.unique {
		value, ok := values[u.field]
		if !ok || value == "" {
			continue
		}
		filter := repository.Where(repository.Eq(u.field, value))
		if excludeID != "" {
			filter = filter.And(repository.Ne(repository.FieldID, excludeID))
		}
		count, err := r.coll.Count(ctx, filter)
		if err != nil {
			return fmt.Errorf("check %s %s: %w", r.kind, u.field, err)
		}
		if count > 0 {
			return apperrors.NewDuplicateValue(r.kind, u.field)
		}
	}
	return nil
}

// storeError maps repository sentinels onto the error taxonomy.
func (r *resource[T]) storeError(err error, id string) error {
	var dup *repository.DuplicateKeyError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(r.kind, map[string]any{"id": id})
	case errors.As(err, &dup):
		field := dup.Field
		if field == "" {
			field = "value"
		}
		return apperrors.NewDuplicateValue(r.kind, field)
	}
	return fmt.Errorf("%s %s: %w", r.kind, id, err)
}

func (r *resource[T]) view(doc *T) interface{} {
	if r.eventView == nil {
		return doc
	}
	return r.eventView(doc)
}

func (r *resource[T]) publish(ctx context.Context, action, resourceID, actorID string, payload interface{}) {
	if r.dispatcher == nil {
		return
	}
	event := events.NewEvent(events.TypeOf(r.eventKind, action), resourceID, actorID, payload)
	if err := r.dispatcher.Publish(ctx, event); err != nil {
		r.logger.Warn("publish event failed",
			zap.String("event_type", string(event.Type)),
			zap.String("resource_id", resourceID),
			zap.Error(err))
	}
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func skippedIDs(skipped []SkippedItem) []string {
	if len(skipped) == 0 {
		return nil
	}
	out := make([]string, 0, len(skipped))
	for _, s := range skipped {
		out = append(out, s.ID)
	}
	return out
}
