package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	postA = "65f000000000000000000001"
	postB = "65f000000000000000000002"
)

func TestLikeRepository_ToggleLike(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresLikeRepository(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")

	liked, err := repo.ToggleLike(ctx, postA, alice.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	count, err := repo.GetLikesCountByPostID(ctx, postA)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	liked, err = repo.ToggleLike(ctx, postA, alice.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	has, err := repo.HasUserLikedPost(ctx, postA, alice.ID)
	require.NoError(t, err)
	assert.False(t, has)

	count, err = repo.GetLikesCountByPostID(ctx, postA)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLikeRepository_CountsAndLikedIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresLikeRepository(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	for _, l := range []struct {
		post string
		user uint
	}{{postA, alice.ID}, {postA, bob.ID}, {postB, bob.ID}} {
		_, err := repo.ToggleLike(ctx, l.post, l.user)
		require.NoError(t, err)
	}

	counts, err := repo.GetLikesCountByPostIDs(ctx, []string{postA, postB, "65f000000000000000000003"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{postA: 2, postB: 1}, counts)

	ids, err := repo.GetLikedPostIDs(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{postA, postB}, ids)

	ids, err = repo.GetLikedPostIDs(ctx, 404)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
