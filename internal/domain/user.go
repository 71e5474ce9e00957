package domain

import (
	"context"
	"errors"
	"time"
)

// StatusActive is the default estado for users and events.
const StatusActive = "ACTIVO"

// Sentinel errors for user operations.
var (
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("no user is logged in")
)

// User represents a registered user.
// Password holds whatever the configured PasswordHasher produced; with no
// hasher it is the plaintext password.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Password     string    `json:"-"`
	Name         string    `json:"name"`
	ProfileImage *string   `json:"profile_image,omitempty"`
	Bio          *string   `json:"bio,omitempty"`
	Sports       []string  `json:"sports"`
	RegisteredAt time.Time `json:"registered_at"`
	Status       string    `json:"status"`
}

// NewUser returns an active User with no profile data and no favorite sports.
func NewUser(id, email, password, name string, registeredAt time.Time) *User {
	return &User{
		ID:           id,
		Email:        email,
		Password:     password,
		Name:         name,
		Sports:       []string{},
		RegisteredAt: registeredAt,
		Status:       StatusActive,
	}
}

// FavoriteSport is a row of deportes_favoritos.
type FavoriteSport struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	Sport   string    `json:"sport"`
	AddedAt time.Time `json:"added_at"`
}

// PasswordHasher hashes and verifies passwords. Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	GetByCredentials(ctx context.Context, email, password string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Upsert(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// FavoriteSportRepository defines the interface for favorite sport storage
type FavoriteSportRepository interface {
	ListByUser(ctx context.Context, userID string) ([]*FavoriteSport, error)
	Upsert(ctx context.Context, sport *FavoriteSport) error
	Delete(ctx context.Context, id string) error
}
