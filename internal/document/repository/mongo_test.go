package repository

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/document"
)

func recordDoc(id primitive.ObjectID, subject, key string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "subject", Value: subject},
		{Key: "fileName", Value: "exam.pdf"},
		{Key: "contentType", Value: document.ContentTypePDF},
		{Key: "fileSize", Value: int64(1024)},
		{Key: "fileKey", Value: key},
		{Key: "fileUrl", Value: "/uploads/" + key},
		{Key: "pageCount", Value: int32(6)},
		{Key: "ownerId", Value: "admin-1"},
		{Key: "createdAt", Value: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
	}
}

func TestMongoRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create assigns id and createdAt", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		d, err := repo.Create(context.Background(), newDoc("Physics", "p.pdf"))
		require.NoError(mt, err)
		_, err = primitive.ObjectIDFromHex(d.ID)
		require.NoError(mt, err)
		require.False(mt, d.CreatedAt.IsZero())
		require.Equal(mt, "papers/p.pdf", d.Payload.Key)
	})

	mt.Run("create surfaces write errors", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))

		_, err := repo.Create(context.Background(), newDoc("Physics", "p.pdf"))
		require.Error(mt, err)
	})

	mt.Run("get decodes record", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		id := primitive.NewObjectID()
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, recordDoc(id, "Biology", "papers/1-b.pdf")))

		d, err := repo.Get(context.Background(), id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), d.ID)
		assert.Equal(mt, "Biology", d.Subject)
		assert.Equal(mt, int64(1024), d.FileSize)
		require.NotNil(mt, d.PageCount)
		assert.Equal(mt, 6, *d.PageCount)
		assert.NoError(mt, d.Payload.Validate())
	})

	mt.Run("get missing and malformed ids", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.Get(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, ErrNotFound)

		_, err = repo.Get(context.Background(), "not-an-object-id")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("list returns summaries and total", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(14)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				recordDoc(primitive.NewObjectID(), "Math", "papers/2-m.pdf"),
				recordDoc(primitive.NewObjectID(), "Chemistry", "papers/1-c.pdf"),
			),
		)

		res, err := repo.List(context.Background(), document.ListQuery{Q: "a.b", Page: 2})
		require.NoError(mt, err)
		assert.EqualValues(mt, 14, res.Total)
		require.Len(mt, res.Items, 2)
		assert.Equal(mt, "Math", res.Items[0].Subject)
		assert.Equal(mt, "/uploads/papers/2-m.pdf", res.Items[0].URL)
		assert.False(mt, res.Items[0].Inline)
	})

	mt.Run("list sends collation and a non-negative skip", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		res, err := repo.List(context.Background(), document.ListQuery{Sort: document.SortSubjectAsc, Page: math.MaxInt})
		require.NoError(mt, err)
		assert.Empty(mt, res.Items)

		find := mt.GetStartedEvent()
		for find != nil && find.CommandName != "find" {
			find = mt.GetStartedEvent()
		}
		require.NotNil(mt, find)
		assert.Equal(mt, "en", find.Command.Lookup("collation", "locale").StringValue())
		assert.EqualValues(mt, 2, find.Command.Lookup("collation", "strength").AsInt64())
		assert.Positive(mt, find.Command.Lookup("skip").AsInt64())
	})

	mt.Run("mark deleted and delete", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		id := primitive.NewObjectID().Hex()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		require.NoError(mt, repo.MarkDeleted(context.Background(), id, time.Now()))
		assert.ErrorIs(mt, repo.MarkDeleted(context.Background(), id, time.Now()), ErrNotFound)
		require.NoError(mt, repo.Delete(context.Background(), id))
		assert.ErrorIs(mt, repo.Delete(context.Background(), id), ErrNotFound)
	})
}

func TestListFilter(t *testing.T) {
	f := listFilter(document.ListQuery{Subject: "Physics (II)", Q: "a+b"})
	subj, ok := f["subject"].(primitive.Regex)
	require.True(t, ok)
	assert.Equal(t, `^Physics \(II\)$`, subj.Pattern)
	assert.Equal(t, "i", subj.Options)
	or, ok := f["$or"].(bson.A)
	require.True(t, ok)
	assert.Len(t, or, 2)
	assert.Contains(t, f, "deletedAt")
}

func TestFindOptions(t *testing.T) {
	opts := findOptions(document.ListQuery{Sort: document.SortSubjectDesc, Page: 3}.Normalize(12))
	require.NotNil(t, opts.Collation)
	assert.Equal(t, "en", opts.Collation.Locale)
	assert.Equal(t, 2, opts.Collation.Strength)
	assert.EqualValues(t, 24, *opts.Skip)
	assert.EqualValues(t, 12, *opts.Limit)
}
