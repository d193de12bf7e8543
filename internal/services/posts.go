package services

import (
	"context"

	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/repositories"
	"github.com/anonto42/nano-midea/socialape/pkg/logger"
)

// DefaultPostLimit caps feed reads when the caller gives no limit.
const DefaultPostLimit = 50

// PostService handles post and comment writes. Dependents of a deleted post are cleaned
// up by the cascade reaction, not here.
type PostService struct {
	posts    repositories.PostRepository
	comments repositories.CommentRepository
	users    repositories.UserRepository
	counters *CounterService
	log      *logger.Logger
}

func NewPostService(
	posts repositories.PostRepository,
	comments repositories.CommentRepository,
	users repositories.UserRepository,
	counters *CounterService,
	log *logger.Logger,
) *PostService {
	return &PostService{posts: posts, comments: comments, users: users, counters: counters, log: log}
}

// CreatePost stores a post by author with a snapshot of the author's current image.
func (s *PostService) CreatePost(ctx context.Context, author, body string) (*models.Post, error) {
	user, err := s.users.GetUserByHandle(ctx, author)
	if err != nil {
		return nil, err
	}
	post := &models.Post{
		Body:           body,
		AuthorHandle:   user.Handle,
		AuthorImageURL: user.ImageURL,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// GetPost returns a post with its comments, newest first.
func (s *PostService) GetPost(ctx context.Context, id string) (*models.PostWithComments, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.GetCommentsByPostID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.PostWithComments{Post: post, Comments: comments}, nil
}

// ListPosts returns the newest posts.
func (s *PostService) ListPosts(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > DefaultPostLimit {
		limit = DefaultPostLimit
	}
	return s.posts.GetAllPosts(ctx, limit)
}

// DeletePost removes a post owned by requester.
func (s *PostService) DeletePost(ctx context.Context, id, requester string) error {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorHandle != requester {
		return models.NewForbiddenError("you are not authorized to delete this post")
	}
	return s.posts.DeletePost(ctx, id)
}

// CreateComment adds a comment to an existing post and bumps its comment count.
func (s *PostService) CreateComment(ctx context.Context, postID, author, body string) (*models.Comment, error) {
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByHandle(ctx, author)
	if err != nil {
		return nil, err
	}
	comment := &models.Comment{
		PostID:         postID,
		AuthorHandle:   user.Handle,
		AuthorImageURL: user.ImageURL,
		Body:           body,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	if _, err := s.counters.IncrementCommentCount(ctx, postID); err != nil {
		if models.IsNotFound(err) {
			// The post was deleted after the existence check. Its cascade may already have
			// run, so the comment is removed here.
			s.log.Info("post deleted while commenting", "post", postID, "comment", comment.ID)
			if delErr := s.comments.DeleteComment(ctx, comment.ID); delErr != nil {
				s.log.Error("failed to remove comment on deleted post", "post", postID, "comment", comment.ID, "error", delErr)
			}
		}
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a comment owned by requester and lowers the comment count.
func (s *PostService) DeleteComment(ctx context.Context, commentID, requester string) error {
	comment, err := s.comments.GetCommentByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorHandle != requester {
		return models.NewForbiddenError("you are not authorized to delete this comment")
	}
	if err := s.comments.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	if _, err := s.counters.DecrementCommentCount(ctx, comment.PostID); err != nil && !models.IsNotFound(err) {
		return err
	}
	return nil
}
