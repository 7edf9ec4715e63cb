package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoCollection stores documents natively. The document id lives in the
// "id" field; Mongo's own _id is left to the driver.
type mongoCollection[T Document] struct {
	coll    *mongo.Collection
	unique  []string
	timeout time.Duration
}

// NewMongoCollection returns a MongoDB-backed implementation. uniqueFields
// must match the indexes created by EnsureIndexes.
func NewMongoCollection[T Document](db *mongo.Database, name string, timeout time.Duration, uniqueFields ...string) Collection[T] {
	return &mongoCollection[T]{coll: db.Collection(name), unique: uniqueFields, timeout: timeout}
}

// EnsureIndexes creates the id index and one unique index per field.
func EnsureIndexes(ctx context.Context, db *mongo.Database, name string, uniqueFields ...string) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: FieldID, Value: 1}}, Options: options.Index().SetName(uniqueIndexName(FieldID)).SetUnique(true)},
		{Keys: bson.D{{Key: FieldCreatedAt, Value: -1}}, Options: options.Index().SetName("created_at_desc")},
	}
	for _, field := range uniqueFields {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetName(uniqueIndexName(field)).SetUnique(true),
		})
	}
	_, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	return err
}

func uniqueIndexName(field string) string {
	return field + "_unique"
}

func (c *mongoCollection[T]) FindOne(ctx context.Context, filter Filter) (*T, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	opts := options.FindOne().SetSort(mongoSort(NewestFirst(0, 0)))
	var item T
	if err := c.coll.FindOne(ctx, mongoFilter(filter), opts).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (c *mongoCollection[T]) Find(ctx context.Context, filter Filter, opts FindOptions) ([]T, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	findOpts := options.Find().SetSort(mongoSort(opts))
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}

	cursor, err := c.coll.Find(ctx, mongoFilter(filter), findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []T
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *mongoCollection[T]) Count(ctx context.Context, filter Filter) (int64, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()
	return c.coll.CountDocuments(ctx, mongoFilter(filter))
}

func (c *mongoCollection[T]) Insert(ctx context.Context, doc *T) error {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.coll.InsertOne(ctx, doc)
	return c.translate(err)
}

func (c *mongoCollection[T]) Update(ctx context.Context, id string, changes Changes) error {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	set := bson.M{}
	for field, value := range changes {
		set[field] = value
	}
	res, err := c.coll.UpdateOne(ctx, bson.M{FieldID: id}, bson.M{"$set": set})
	if err != nil {
		return c.translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection[T]) DeleteOne(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.coll.DeleteOne(ctx, bson.M{FieldID: id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection[T]) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.coll.DeleteMany(ctx, mongoFilter(filter))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *mongoCollection[T]) translate(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}
	return &DuplicateKeyError{
		Collection: c.coll.Name(),
		Field:      duplicateField(err.Error(), append([]string{FieldID}, c.unique...)),
		Err:        err,
	}
}

// duplicateField finds which unique index is named in a duplicate-key
// message. The longest match wins so "email_unique" is not shadowed by a
// shorter index name it contains.
func duplicateField(message string, fields []string) string {
	best := ""
	for _, field := range fields {
		if strings.Contains(message, uniqueIndexName(field)) && len(field) > len(best) {
			best = field
		}
	}
	return best
}

func mongoSort(opts FindOptions) bson.D {
	field := opts.SortBy
	if field == "" {
		field = FieldCreatedAt
	}
	direction := 1
	if opts.Descending {
		direction = -1
	}
	return bson.D{{Key: field, Value: direction}, {Key: FieldID, Value: 1}}
}

func mongoFilter(filter Filter) bson.M {
	clauses := make(bson.A, 0, len(filter.All)+1)
	for _, cond := range filter.All {
		clauses = append(clauses, mongoCondition(cond))
	}
	if len(filter.Any) > 0 {
		ors := make(bson.A, 0, len(filter.Any))
		for _, cond := range filter.Any {
			ors = append(ors, mongoCondition(cond))
		}
		clauses = append(clauses, bson.M{"$or": ors})
	}
	switch len(clauses) {
	case 0:
		return bson.M{}
	case 1:
		return clauses[0].(bson.M)
	}
	return bson.M{"$and": clauses}
}

func mongoCondition(cond Condition) bson.M {
	switch cond.Op {
	case OpNe:
		return bson.M{cond.Field: bson.M{"$ne": cond.value()}}
	case OpIn:
		values := cond.Values
		if values == nil {
			values = []string{}
		}
		return bson.M{cond.Field: bson.M{"$in": values}}
	case OpContains:
		return bson.M{cond.Field: bson.M{"$regex": regexp.QuoteMeta(cond.value()), "$options": "i"}}
	default:
		return bson.M{cond.Field: cond.value()}
	}
}
