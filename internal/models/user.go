package models

import (
	"github.com/anonto42/nano-midea/socialape/internal/store"
	"github.com/golang-jwt/jwt/v4"
)

// User document fields
const (
	FieldHandle   = "handle"
	FieldEmail    = "email"
	FieldImageURL = "imageUrl"
	FieldBio      = "bio"
	FieldWebsite  = "website"
	FieldLocation = "location"
	FieldUserID   = "userId"
)

// User is stored under its handle, which is the immutable identity used as a foreign key.
// UserID is the auth provider uid.
type User struct {
	Handle    string `json:"handle"`
	Email     string `json:"email"`
	ImageURL  string `json:"imageUrl"`
	Bio       string `json:"bio,omitempty"`
	Website   string `json:"website,omitempty"`
	Location  string `json:"location,omitempty"`
	CreatedAt string `json:"createdAt"`
	UserID    string `json:"userId,omitempty"`
}

func (u *User) Document() store.Document {
	return store.Document{
		FieldHandle:    u.Handle,
		FieldEmail:     u.Email,
		FieldImageURL:  u.ImageURL,
		FieldBio:       u.Bio,
		FieldWebsite:   u.Website,
		FieldLocation:  u.Location,
		FieldCreatedAt: u.CreatedAt,
		FieldUserID:    u.UserID,
	}
}

func UserFromDocument(d store.Document) *User {
	return &User{
		Handle:    d.String(FieldHandle),
		Email:     d.String(FieldEmail),
		ImageURL:  d.String(FieldImageURL),
		Bio:       d.String(FieldBio),
		Website:   d.String(FieldWebsite),
		Location:  d.String(FieldLocation),
		CreatedAt: d.String(FieldCreatedAt),
		UserID:    d.String(FieldUserID),
	}
}

// UserDetails is a public profile with the user's posts
type UserDetails struct {
	User  *User  `json:"user"`
	Posts []Post `json:"posts"`
}

// AuthenticatedUser is what the signed-in user sees about themselves
type AuthenticatedUser struct {
	Credentials   *User          `json:"credentials"`
	Likes         []Like         `json:"likes"`
	Notifications []Notification `json:"notifications"`
}

// UpdateUserDetailsRequest carries the optional profile fields
type UpdateUserDetailsRequest struct {
	Bio      string `json:"bio,omitempty" validate:"omitempty,max=300"`
	Website  string `json:"website,omitempty" validate:"omitempty,max=200"`
	Location string `json:"location,omitempty" validate:"omitempty,max=100"`
}

// UpdateImageRequest sets the profile image to an already uploaded URL
type UpdateImageRequest struct {
	ImageURL string `json:"imageUrl" validate:"required,url"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	Handle string `json:"handle"`
	jwt.RegisteredClaims
}
