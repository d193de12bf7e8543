package services

import (
	"context"
	"strings"

	"github.com/anonto42/nano-midea/socialape/internal/models"
	"github.com/anonto42/nano-midea/socialape/internal/repositories"
	"github.com/anonto42/nano-midea/socialape/internal/store"
	"github.com/anonto42/nano-midea/socialape/pkg/logger"
)

// OwnNotificationLimit is how many notifications GetAuthenticatedUser returns.
const OwnNotificationLimit = 10

// UserService reads profiles and applies profile edits. Changing the image URL raises a
// user update that the propagation reaction copies onto the user's posts.
type UserService struct {
	users         repositories.UserRepository
	posts         repositories.PostRepository
	likes         repositories.LikeRepository
	notifications repositories.NotificationRepository
	log           *logger.Logger
}

func NewUserService(
	users repositories.UserRepository,
	posts repositories.PostRepository,
	likes repositories.LikeRepository,
	notifications repositories.NotificationRepository,
	log *logger.Logger,
) *UserService {
	return &UserService{users: users, posts: posts, likes: likes, notifications: notifications, log: log}
}

// GetUserDetails returns a public profile with the user's posts, newest first.
func (s *UserService) GetUserDetails(ctx context.Context, handle string) (*models.UserDetails, error) {
	user, err := s.users.GetUserByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.GetPostsByAuthor(ctx, handle)
	if err != nil {
		return nil, err
	}
	return &models.UserDetails{User: user, Posts: posts}, nil
}

// GetAuthenticatedUser returns the caller's credentials, likes and latest notifications.
func (s *UserService) GetAuthenticatedUser(ctx context.Context, handle string) (*models.AuthenticatedUser, error) {
	user, err := s.users.GetUserByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	likes, err := s.likes.GetLikesByAuthor(ctx, handle)
	if err != nil {
		return nil, err
	}
	notifications, err := s.notifications.GetByRecipient(ctx, handle, OwnNotificationLimit, "")
	if err != nil {
		return nil, err
	}
	return &models.AuthenticatedUser{Credentials: user, Likes: likes, Notifications: notifications}, nil
}

// AddUserDetails stores the non-empty profile fields of req.
func (s *UserService) AddUserDetails(ctx context.Context, handle string, req models.UpdateUserDetailsRequest) error {
	return s.users.UpdateUser(ctx, handle, reduceUserDetails(req))
}

// UpdateImageURL points the profile image at an uploaded file.
func (s *UserService) UpdateImageURL(ctx context.Context, handle, imageURL string) error {
	if err := s.users.UpdateUser(ctx, handle, store.Document{models.FieldImageURL: imageURL}); err != nil {
		return err
	}
	s.log.Info("profile image updated", "handle", handle)
	return nil
}

func reduceUserDetails(req models.UpdateUserDetailsRequest) store.Document {
	fields := store.Document{}
	if bio := strings.TrimSpace(req.Bio); bio != "" {
		fields[models.FieldBio] = bio
	}
	if website := strings.TrimSpace(req.Website); website != "" {
		if !strings.HasPrefix(website, "http") {
			website = "http://" + website
		}
		fields[models.FieldWebsite] = website
	}
	if location := strings.TrimSpace(req.Location); location != "" {
		fields[models.FieldLocation] = location
	}
	return fields
}
