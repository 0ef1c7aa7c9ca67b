package handlers

import (
	"context"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/anonto42/minisocial/internal/repositories"
	log "github.com/sirupsen/logrus"
)

// postAssembler joins post documents with their authors and derived counters.
type postAssembler struct {
	users    repositories.UserRepository
	likes    repositories.LikeRepository
	comments repositories.CommentRepository
}

// assemble keeps the input order. Posts whose author no longer exists are dropped.
func (a *postAssembler) assemble(ctx context.Context, posts []models.Post) ([]models.FeedPost, error) {
	out := make([]models.FeedPost, 0, len(posts))
	if len(posts) == 0 {
		return out, nil
	}

	postIDs := make([]string, len(posts))
	authorSet := make(map[uint]struct{})
	for i, p := range posts {
		postIDs[i] = p.ID.Hex()
		authorSet[p.AuthorID] = struct{}{}
	}
	authorIDs := make([]uint, 0, len(authorSet))
	for id := range authorSet {
		authorIDs = append(authorIDs, id)
	}

	authors, err := a.users.GetUsersByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	likeCounts, err := a.likes.GetLikesCountByPostIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	commentCounts, err := a.comments.GetCommentsCountByPostIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}

	for i, p := range posts {
		author, ok := authors[p.AuthorID]
		if !ok {
			log.WithField("post_id", postIDs[i]).Debug("skipping post without author")
			continue
		}
		out = append(out, models.FeedPost{
			ID:            postIDs[i],
			AuthorID:      p.AuthorID,
			Author:        author.ToCompact(),
			Content:       p.Content,
			MediaURL:      p.MediaURL,
			MediaType:     p.MediaType,
			CreatedAt:     p.CreatedAt,
			LikesCount:    likeCounts[postIDs[i]],
			CommentsCount: commentCounts[postIDs[i]],
		})
	}
	return out, nil
}

func (a *postAssembler) assembleOne(ctx context.Context, post *models.Post) (*models.FeedPost, error) {
	out, err := a.assemble(ctx, []models.Post{*post})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, models.NewNotFoundError("post", post.ID.Hex())
	}
	return &out[0], nil
}
