package ports

import (
	"context"
	"time"

	"github.com/poklin/poklin/internal/core/domain"
)

// RegisterInput carries the fields accepted by registration.
type RegisterInput struct {
	Name     string `validate:"required,min=1,max=100"`
	Age      int    `validate:"required,gte=13,lte=120"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=72"`
}

// Registrar creates new credential accounts.
type Registrar interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
}

// PasswordHasher hashes and verifies stored credentials.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify returns false (and no error) on mismatch. Malformed digests
	// yield domain.ErrDigestDecode.
	Verify(plaintext, digest string) (bool, error)
}

// SessionManager mints and reads signed session tokens.
type SessionManager interface {
	Issue(identity domain.Identity) (string, *domain.Claims, error)
	Read(token string) (*domain.Claims, error)
	NeedsRenewal(claims *domain.Claims) bool
	MaxAge() time.Duration
}
