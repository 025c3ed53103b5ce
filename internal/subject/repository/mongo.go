package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/subject"
)

var nameCollation = &options.Collation{Locale: "en", Strength: 2}

// MongoRepo stores subjects in their own collection with a unique slug.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetCollation(nameCollation)},
	})
	return err
}

type record struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Slug      string             `bson:"slug"`
	Desc      string             `bson:"desc,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (r record) toSubject() *subject.Subject {
	return &subject.Subject{
		ID:        r.ID.Hex(),
		Name:      r.Name,
		Slug:      r.Slug,
		Desc:      r.Desc,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (m *MongoRepo) List(ctx context.Context) ([]subject.Subject, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "slug", Value: 1}}).
		SetCollation(nameCollation)
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find subjects: %w", err)
	}
	defer cur.Close(ctx)

	out := []subject.Subject{}
	for cur.Next(ctx) {
		var rec record
		if err := cur.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode subject: %w", err)
		}
		out = append(out, *rec.toSubject())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return out, nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*subject.Subject, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var rec record
	if err := m.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return rec.toSubject(), nil
}

func (m *MongoRepo) Create(ctx context.Context, s *subject.Subject) (*subject.Subject, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := record{ID: primitive.NewObjectID(), Name: s.Name, Slug: s.Slug, Desc: s.Desc, CreatedAt: now, UpdatedAt: now}
	if _, err := m.col.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert subject: %w", err)
	}
	return rec.toSubject(), nil
}

func (m *MongoRepo) Update(ctx context.Context, id string, s *subject.Subject) (*subject.Subject, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	update := bson.M{"$set": bson.M{
		"name":      s.Name,
		"slug":      s.Slug,
		"desc":      s.Desc,
		"updatedAt": time.Now().UTC().Truncate(time.Millisecond),
	}}
	var rec record
	err = m.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&rec)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, ErrDuplicate
	case err != nil:
		return nil, fmt.Errorf("update subject: %w", err)
	}
	return rec.toSubject(), nil
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
