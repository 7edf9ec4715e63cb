package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryCollection is an in-process Collection used for local development
// and tests. Documents are kept as JSON so readers never share state with
// the stored copy, and unique fields are enforced the way a unique index
// would enforce them.
type MemoryCollection[T Document] struct {
	mu     sync.RWMutex
	name   string
	unique []string
	docs   map[string]*memoryDoc
}

type memoryDoc struct {
	raw     []byte
	fields  map[string]any
	created time.Time
}

// NewMemoryCollection creates an empty collection with the given unique fields.
func NewMemoryCollection[T Document](name string, uniqueFields ...string) *MemoryCollection[T] {
	return &MemoryCollection[T]{
		name:   name,
		unique: uniqueFields,
		docs:   make(map[string]*memoryDoc),
	}
}

func (m *MemoryCollection[T]) FindOne(ctx context.Context, filter Filter) (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := m.matching(filter)
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	sortDocs(matches, NewestFirst(0, 0))
	return decode[T](matches[0].raw)
}

func (m *MemoryCollection[T]) Find(ctx context.Context, filter Filter, opts FindOptions) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := m.matching(filter)
	sortDocs(matches, opts)

	start, end := 0, len(matches)
	if opts.Skip > 0 {
		start = int(min(opts.Skip, int64(end)))
	}
	if opts.Limit > 0 && opts.Limit < int64(end-start) {
		end = start + int(opts.Limit)
	}

	result := make([]T, 0, end-start)
	for _, doc := range matches[start:end] {
		item, err := decode[T](doc.raw)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	return result, nil
}

func (m *MemoryCollection[T]) Count(ctx context.Context, filter Filter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.matching(filter))), nil
}

func (m *MemoryCollection[T]) Insert(ctx context.Context, doc *T) error {
	stored, err := encode(*doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := (*doc).DocumentID()
	if _, exists := m.docs[id]; exists {
		return &DuplicateKeyError{Collection: m.name, Field: FieldID}
	}
	if err := m.checkUnique(id, stored.fields); err != nil {
		return err
	}
	m.docs[id] = stored
	return nil
}

func (m *MemoryCollection[T]) Update(ctx context.Context, id string, changes Changes) error {
	patch, err := normalize(changes)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}

	merged := make(map[string]any, len(current.fields)+len(patch))
	for k, v := range current.fields {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	updated, err := decode[T](raw)
	if err != nil {
		return fmt.Errorf("%s: apply update: %w", m.name, err)
	}
	stored, err := encode(*updated)
	if err != nil {
		return err
	}
	if err := m.checkUnique(id, stored.fields); err != nil {
		return err
	}
	m.docs[id] = stored
	return nil
}

func (m *MemoryCollection[T]) DeleteOne(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *MemoryCollection[T]) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, doc := range m.docs {
		if matches(doc.fields, filter) {
			delete(m.docs, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryCollection[T]) matching(filter Filter) []*memoryDoc {
	result := make([]*memoryDoc, 0, len(m.docs))
	for _, doc := range m.docs {
		if matches(doc.fields, filter) {
			result = append(result, doc)
		}
	}
	return result
}

// checkUnique must be called with the write lock held.
func (m *MemoryCollection[T]) checkUnique(id string, fields map[string]any) error {
	for _, field := range m.unique {
		value, ok := fieldString(fields, field)
		if !ok {
			continue
		}
		for otherID, other := range m.docs {
			if otherID == id {
				continue
			}
			if otherValue, ok := fieldString(other.fields, field); ok && otherValue == value {
				return &DuplicateKeyError{Collection: m.name, Field: field}
			}
		}
	}
	return nil
}

func encode[T Document](doc T) (*memoryDoc, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return &memoryDoc{raw: raw, fields: fields, created: doc.CreatedTime()}, nil
}

func decode[T Document](raw []byte) (*T, error) {
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func normalize(changes Changes) (map[string]any, error) {
	raw, err := json.Marshal(changes)
	if err != nil {
		return nil, err
	}
	patch := map[string]any{}
	if err := json.Unmarshal(raw, &patch); err != nil {
		return nil, err
	}
	return patch, nil
}

func matches(fields map[string]any, filter Filter) bool {
	for _, cond := range filter.All {
		if !matchCondition(fields, cond) {
			return false
		}
	}
	if len(filter.Any) == 0 {
		return true
	}
	for _, cond := range filter.Any {
		if matchCondition(fields, cond) {
			return true
		}
	}
	return false
}

func matchCondition(fields map[string]any, cond Condition) bool {
	value, present := fieldString(fields, cond.Field)
	switch cond.Op {
	case OpEq:
		return present && value == cond.value()
	case OpNe:
		return !present || value != cond.value()
	case OpIn:
		if !present {
			return false
		}
		for _, candidate := range cond.Values {
			if value == candidate {
				return true
			}
		}
		return false
	case OpContains:
		return present && strings.Contains(strings.ToLower(value), strings.ToLower(cond.value()))
	}
	return false
}

func fieldString(fields map[string]any, name string) (string, bool) {
	value, ok := fields[name]
	if !ok || value == nil {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return fmt.Sprint(v), true
	}
}

func sortDocs(docs []*memoryDoc, opts FindOptions) {
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = FieldCreatedAt
	}
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		var cmp int
		if sortBy == FieldCreatedAt {
			cmp = a.created.Compare(b.created)
		} else {
			av, _ := fieldString(a.fields, sortBy)
			bv, _ := fieldString(b.fields, sortBy)
			cmp = strings.Compare(av, bv)
		}
		if cmp != 0 {
			if opts.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		ai, _ := fieldString(a.fields, FieldID)
		bi, _ := fieldString(b.fields, FieldID)
		return ai < bi
	})
}
