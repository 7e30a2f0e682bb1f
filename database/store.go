package database

import (
	"context"
	"errors"

	"github.com/princinho/sahoauth/models"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrDuplicate  = errors.New("duplicate username or email")
	ErrStaleToken = errors.New("refresh token no longer current")
)

// UserStore persists user records. Every driver must make SwapRefreshToken
// an atomic compare-and-set on the single record.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	// FindByUsernameOrEmail matches either key; empty keys are ignored.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	// SetRefreshToken overwrites the stored refresh token. An empty token
	// clears it.
	SetRefreshToken(ctx context.Context, id, token string) error
	// SwapRefreshToken replaces the stored refresh token with next only if it
	// still equals expected. It returns ErrStaleToken otherwise.
	SwapRefreshToken(ctx context.Context, id, expected, next string) error
	Close(ctx context.Context) error
}
