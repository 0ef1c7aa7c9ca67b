package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func setupMongo(t *testing.T) *MongoPostRepository {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	db := client.Database("minisocial_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	repo := NewMongoPostRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

func TestMongoPostRepository_CRUD(t *testing.T) {
	repo := setupMongo(t)
	ctx := context.Background()

	first := &models.Post{AuthorID: 1, Content: "first #go"}
	require.NoError(t, repo.CreatePost(ctx, first))
	time.Sleep(5 * time.Millisecond)
	second := &models.Post{AuthorID: 2, Content: "second"}
	require.NoError(t, repo.CreatePost(ctx, second))

	all, err := repo.GetAllPosts(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	count, err := repo.CountByAuthorID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	first.Content = "edited"
	require.NoError(t, repo.UpdatePost(ctx, first.ID.Hex(), first))
	got, err := repo.GetPostByID(ctx, first.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)

	byIDs, err := repo.GetPostsByIDs(ctx, []string{first.ID.Hex(), "bogus"})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)

	require.NoError(t, repo.DeletePost(ctx, first.ID.Hex()))
	_, err = repo.GetPostByID(ctx, first.ID.Hex())
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, repo.DeletePost(ctx, first.ID.Hex()), models.ErrNotFound)
}

func TestMongoPostRepository_MalformedID(t *testing.T) {
	repo := &MongoPostRepository{}
	_, err := repo.GetPostByID(context.Background(), "not-an-object-id")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
