package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/subject"
)

func subjectDoc(id primitive.ObjectID, name, slug string) bson.D {
	at := time.Date(2025, 9, 1, 7, 0, 0, 0, time.UTC)
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "slug", Value: slug},
		{Key: "createdAt", Value: at},
		{Key: "updatedAt", Value: at},
	}
}

func TestSubjectMongoRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("list sorts by name with collation", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			subjectDoc(primitive.NewObjectID(), "biology", "biology"),
			subjectDoc(primitive.NewObjectID(), "Physics", "physics"),
		))

		list, err := repo.List(context.Background())
		require.NoError(mt, err)
		require.Len(mt, list, 2)
		assert.Equal(mt, "biology", list[0].Name)

		find := mt.GetStartedEvent()
		require.NotNil(mt, find)
		assert.Equal(mt, "find", find.CommandName)
		assert.Equal(mt, "en", find.Command.Lookup("collation", "locale").StringValue())
	})

	mt.Run("create maps duplicate slug", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
		)

		s, err := repo.Create(context.Background(), &subject.Subject{Name: "Physics", Slug: "physics"})
		require.NoError(mt, err)
		_, err = primitive.ObjectIDFromHex(s.ID)
		require.NoError(mt, err)

		_, err = repo.Create(context.Background(), &subject.Subject{Name: "Physics", Slug: "physics"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("update returns the new document", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: subjectDoc(id, "Biology", "bio")}},
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11000, Message: "duplicate key"}),
		)

		s, err := repo.Update(context.Background(), id.Hex(), &subject.Subject{Name: "Biology", Slug: "bio"})
		require.NoError(mt, err)
		assert.Equal(mt, "bio", s.Slug)

		_, err = repo.Update(context.Background(), id.Hex(), &subject.Subject{Name: "Biology", Slug: "bio"})
		assert.ErrorIs(mt, err, ErrNotFound)

		_, err = repo.Update(context.Background(), id.Hex(), &subject.Subject{Name: "Biology", Slug: "physics"})
		assert.ErrorIs(mt, err, ErrDuplicate)

		_, err = repo.Update(context.Background(), "nope", &subject.Subject{})
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := NewMongoRepo(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)
		id := primitive.NewObjectID().Hex()
		require.NoError(mt, repo.Delete(context.Background(), id))
		assert.ErrorIs(mt, repo.Delete(context.Background(), id), ErrNotFound)
	})
}
