package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/poklin/poklin/internal/core/domain"
)

// BcryptHasher implements ports.PasswordHasher. The salt and cost are
// embedded in every digest.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher with the given work factor.
// A cost outside bcrypt's accepted range falls back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify compares plaintext with digest. bcrypt only reads the first 72
// bytes, so a longer plaintext is a mismatch even when its prefix matches.
// The comparison still runs so the cost is the same either way.
func (h *BcryptHasher) Verify(plaintext, digest string) (bool, error) {
	overlong := len(plaintext) > maxPasswordBytes
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	switch {
	case err == nil:
		return !overlong, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", domain.ErrDigestDecode, err)
	}
}
