package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/poklin/poklin/internal/core/domain"
	"github.com/poklin/poklin/internal/core/ports"
	"github.com/poklin/poklin/internal/pkg/config"
)

// CredentialsProviderID identifies the email/password provider.
const CredentialsProviderID = "credentials"

// dummyPassword is hashed once so that lookups for unknown accounts pay the
// same bcrypt cost as a real comparison.
const dummyPassword = "poklin-timing-equalizer"

// CredentialAuthenticator validates email/password pairs against the user
// store. It implements ports.CredentialsProvider.
type CredentialAuthenticator struct {
	users  ports.UserReader
	hasher ports.PasswordHasher
	log    zerolog.Logger

	dummyOnce   sync.Once
	dummyDigest string
}

func NewCredentialAuthenticator(cfg *config.AuthConfig, users ports.UserReader, hasher ports.PasswordHasher, log zerolog.Logger) *CredentialAuthenticator {
	if hasher == nil {
		hasher = NewBcryptHasher(cfg.BcryptCost)
	}
	return &CredentialAuthenticator{users: users, hasher: hasher, log: log}
}

func (a *CredentialAuthenticator) ID() string { return CredentialsProviderID }

func (a *CredentialAuthenticator) Type() ports.ProviderType { return ports.ProviderCredentials }

// Authenticate returns the identity for a valid email/password pair.
// Unknown emails, OAuth-only accounts and wrong passwords all yield
// domain.ErrInvalidCredentials.
func (a *CredentialAuthenticator) Authenticate(ctx context.Context, email, password string) (*domain.Identity, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			a.equalizeTiming(password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if !user.HasPassword() {
		a.equalizeTiming(password)
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := a.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		a.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password digest is unreadable")
		return nil, domain.ErrInvalidCredentials
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	identity := user.Identity()
	return &identity, nil
}

func (a *CredentialAuthenticator) equalizeTiming(password string) {
	a.dummyOnce.Do(func() {
		digest, err := a.hasher.Hash(dummyPassword)
		if err != nil {
			a.log.Warn().Err(err).Msg("failed to prepare dummy digest")
			return
		}
		a.dummyDigest = digest
	})
	if a.dummyDigest == "" {
		return
	}
	_, _ = a.hasher.Verify(password, a.dummyDigest)
}
