package database

import (
	"context"
	"errors"

	"pulse/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// NotFoundError names the entity that was missing. It matches ErrNotFound
// under errors.Is.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(entity string) error { return &NotFoundError{Entity: entity} }

const (
	EntityUser    = "User"
	EntityProfile = "User profile"
	EntityPost    = "Post"
)

// EntityOf returns the entity named by a not-found error, or "" for any other
// error.
func EntityOf(err error) string {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Entity
	}
	return ""
}

// PostQuery selects one page of posts, newest first.
type PostQuery struct {
	Offset int
	Limit  int
	// AuthorID restricts the page to one user's posts when non-zero.
	AuthorID uint
}

// PostUpdate is the full-row overwrite applied by UpdatePost. ImageURL is left
// untouched when nil.
type PostUpdate struct {
	Description string
	ImageURL    *string
}

// Store is the persistence boundary. Reads of posts return them with User
// (and the user's Profile), Comments (with User) and Likes (with User) loaded.
type Store interface {
	// CreateUser inserts the user together with its profile (user.Profile,
	// or an empty one). Duplicate email or username yields ErrConflict.
	CreateUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	LinkGoogleAccount(ctx context.Context, userID uint, googleID string) error

	ProfileByUserID(ctx context.Context, userID uint) (*models.UserProfile, error)
	UpsertProfile(ctx context.Context, profile *models.UserProfile) error

	CreatePost(ctx context.Context, post *models.Post) error
	PostByID(ctx context.Context, id uint) (*models.Post, error)
	ListPosts(ctx context.Context, q PostQuery) ([]models.Post, int64, error)
	UpdatePost(ctx context.Context, id uint, upd PostUpdate) (*models.Post, error)
	DeletePost(ctx context.Context, id uint) error

	// AddLike records userID liking postID. created is false when the like
	// already existed.
	AddLike(ctx context.Context, postID, userID uint) (created bool, err error)
	CountLikes(ctx context.Context, postID uint) (int64, error)

	AddComment(ctx context.Context, comment *models.Comment) error

	// SavePushSubscription upserts by endpoint. An endpoint belongs to one
	// browser, so saving it for another user moves it to that user and the
	// previous owner stops receiving pushes on that browser.
	SavePushSubscription(ctx context.Context, sub *models.PushSubscription) error
	PushSubscriptions(ctx context.Context, userID uint) ([]models.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
