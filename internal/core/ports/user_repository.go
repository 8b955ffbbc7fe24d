package ports

import (
	"context"

	"github.com/poklin/poklin/internal/core/domain"
)

// UserReader is the read side of the user store used by protected pages.
type UserReader interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// UserRepository defines persistence for user records.
// Implementations enforce email uniqueness and return domain.ErrDuplicateEmail
// on conflict and domain.ErrUserNotFound when no record matches.
type UserRepository interface {
	UserReader
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
