package services

import (
	"context"

	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/repositories"
	"github.com/anonto42/nano-midea/socialape/pkg/logger"
)

// CounterService owns likeCount and commentCount. Counters only move through the store's
// atomic increment, never by writing back a value read earlier.
type CounterService struct {
	posts repositories.PostRepository
	likes repositories.LikeRepository
	log   *logger.Logger
}

func NewCounterService(posts repositories.PostRepository, likes repositories.LikeRepository, log *logger.Logger) *CounterService {
	return &CounterService{posts: posts, likes: likes, log: log}
}

// Like records handle's like on postID and returns the post with its new like count.
// The uniqueness check and the insert are two round trips, so two simultaneous likes by the
// same user can both pass the check.
func (s *CounterService) Like(ctx context.Context, postID, handle string) (*models.Post, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	_, err = s.likes.GetLike(ctx, postID, handle)
	switch {
	case err == nil:
		return nil, models.NewConflictError("post already liked")
	case !models.IsNotFound(err):
		return nil, err
	}

	like := &models.Like{PostID: postID, AuthorHandle: handle}
	if err := s.likes.CreateLike(ctx, like); err != nil {
		return nil, err
	}
	count, err := s.posts.IncrementLikesCount(ctx, postID, 1)
	if err != nil {
		if models.IsNotFound(err) {
			// Deleted after the existence check; the cascade may not see this like.
			if delErr := s.likes.DeleteLike(ctx, like.ID); delErr != nil {
				s.log.Error("failed to remove like on deleted post", "post", postID, "like", like.ID, "error", delErr)
			}
		}
		return nil, err
	}
	post.LikeCount = count
	s.log.Debug("post liked", "post", postID, "handle", handle, "likeCount", count)
	return post, nil
}

// Unlike removes handle's like on postID and returns the post with its new like count.
func (s *CounterService) Unlike(ctx context.Context, postID, handle string) (*models.Post, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	like, err := s.likes.GetLike(ctx, postID, handle)
	if models.IsNotFound(err) {
		return nil, models.NewConflictError("post not liked")
	}
	if err != nil {
		return nil, err
	}

	if err := s.likes.DeleteLike(ctx, like.ID); err != nil {
		return nil, err
	}
	count, err := s.posts.IncrementLikesCount(ctx, postID, -1)
	if err != nil {
		return nil, err
	}
	post.LikeCount = count
	s.log.Debug("post unliked", "post", postID, "handle", handle, "likeCount", count)
	return post, nil
}

func (s *CounterService) IncrementCommentCount(ctx context.Context, postID string) (int64, error) {
	return s.posts.IncrementCommentsCount(ctx, postID, 1)
}

func (s *CounterService) DecrementCommentCount(ctx context.Context, postID string) (int64, error) {
	return s.posts.IncrementCommentsCount(ctx, postID, -1)
}
