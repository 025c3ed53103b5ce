package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/document"
)

// MongoRepo implements a MongoDB-backed repository for documents.
// Records are keyed by ObjectID; the hex form is the public id.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

// subjectCollation orders subjects case-insensitively, matching MemoryRepo.
var subjectCollation = &options.Collation{Locale: "en", Strength: 2}

// EnsureIndexes creates the listing indexes. Safe to call repeatedly.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{
			Keys:    bson.D{{Key: "subject", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetCollation(subjectCollation),
		},
		{Keys: bson.D{{Key: "ownerId", Value: 1}}},
	})
	return err
}

type record struct {
	ID          primitive.ObjectID `bson:"_id"`
	Subject     string             `bson:"subject"`
	FileName    string             `bson:"fileName"`
	ContentType string             `bson:"contentType"`
	FileSize    int64              `bson:"fileSize"`
	FileData    []byte             `bson:"fileData,omitempty"`
	FileKey     string             `bson:"fileKey,omitempty"`
	FileURL     string             `bson:"fileUrl,omitempty"`
	PageCount   *int               `bson:"pageCount,omitempty"`
	OwnerID     string             `bson:"ownerId"`
	CreatedAt   time.Time          `bson:"createdAt"`
	DeletedAt   *time.Time         `bson:"deletedAt,omitempty"`
}

func toRecord(d *document.Document) record {
	return record{
		Subject:     d.Subject,
		FileName:    d.FileName,
		ContentType: d.ContentType,
		FileSize:    d.FileSize,
		FileData:    d.Payload.Data,
		FileKey:     d.Payload.Key,
		FileURL:     d.Payload.URL,
		PageCount:   d.PageCount,
		OwnerID:     d.OwnerID,
	}
}

func (r record) toDocument() *document.Document {
	return &document.Document{
		ID:          r.ID.Hex(),
		Subject:     r.Subject,
		FileName:    r.FileName,
		ContentType: r.ContentType,
		FileSize:    r.FileSize,
		Payload:     document.Payload{Data: r.FileData, Key: r.FileKey, URL: r.FileURL},
		PageCount:   r.PageCount,
		OwnerID:     r.OwnerID,
		CreatedAt:   r.CreatedAt,
		DeletedAt:   r.DeletedAt,
	}
}

func (m *MongoRepo) Create(ctx context.Context, doc *document.Document) (*document.Document, error) {
	rec := toRecord(doc)
	rec.ID = primitive.NewObjectID()
	// Mongo stores milliseconds; truncate so the returned value matches a later read.
	rec.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := m.col.InsertOne(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return rec.toDocument(), nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var rec record
	err = m.col.FindOne(ctx, bson.M{"_id": oid, "deletedAt": nil}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return rec.toDocument(), nil
}

func listFilter(q document.ListQuery) bson.M {
	filter := bson.M{"deletedAt": nil}
	if q.Subject != "" {
		filter["subject"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(q.Subject) + "$", Options: "i"}
	}
	if q.Q != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q.Q), Options: "i"}
		filter["$or"] = bson.A{bson.M{"subject": re}, bson.M{"fileName": re}}
	}
	return filter
}

func listSort(order string) bson.D {
	switch order {
	case document.SortOldest:
		return bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}
	case document.SortSubjectAsc:
		return bson.D{{Key: "subject", Value: 1}, {Key: "createdAt", Value: -1}}
	case document.SortSubjectDesc:
		return bson.D{{Key: "subject", Value: -1}, {Key: "createdAt", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	}
}

// findOptions expects a normalized query.
func findOptions(q document.ListQuery) *options.FindOptions {
	return options.Find().
		SetProjection(bson.M{"fileData": 0}).
		SetSort(listSort(q.Sort)).
		SetCollation(subjectCollation).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.PageSize))
}

func (m *MongoRepo) List(ctx context.Context, q document.ListQuery) (document.ListResult, error) {
	q = q.Normalize(12)
	filter := listFilter(q)

	total, err := m.col.CountDocuments(ctx, filter)
	if err != nil {
		return document.ListResult{}, fmt.Errorf("count documents: %w", err)
	}

	cur, err := m.col.Find(ctx, filter, findOptions(q))
	if err != nil {
		return document.ListResult{}, fmt.Errorf("find documents: %w", err)
	}
	defer cur.Close(ctx)

	out := document.ListResult{Items: []document.Summary{}, Total: total}
	for cur.Next(ctx) {
		var rec record
		if err := cur.Decode(&rec); err != nil {
			return document.ListResult{}, fmt.Errorf("decode document: %w", err)
		}
		s := rec.toDocument().Summarize()
		// fileData is projected out, so derive the representation from the key.
		s.Inline = rec.FileKey == ""
		out.Items = append(out.Items, s)
	}
	if err := cur.Err(); err != nil {
		return document.ListResult{}, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (m *MongoRepo) MarkDeleted(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": oid, "deletedAt": nil}, bson.M{"$set": bson.M{"deletedAt": at.UTC()}})
	if err != nil {
		return fmt.Errorf("tombstone document: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
