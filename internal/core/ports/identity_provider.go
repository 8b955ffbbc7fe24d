package ports

import (
	"context"

	"github.com/poklin/poklin/internal/core/domain"
)

type ProviderType string

const (
	ProviderCredentials ProviderType = "credentials"
	ProviderOAuth       ProviderType = "oauth"
)

// IdentityProvider is anything that can turn a user interaction into a
// domain.Identity. The session layer does not care which variant produced it.
type IdentityProvider interface {
	ID() string
	Type() ProviderType
}

// CredentialsProvider authenticates email/password pairs.
type CredentialsProvider interface {
	IdentityProvider
	Authenticate(ctx context.Context, email, password string) (*domain.Identity, error)
}

// ExternalOAuthProvider delegates authentication to a third party through a
// redirect/callback round trip.
type ExternalOAuthProvider interface {
	IdentityProvider
	// Begin returns the URL the browser must be redirected to and the state
	// the callback has to present.
	Begin(ctx context.Context) (authURL, state string, err error)
	// Complete finishes the callback leg and returns the local identity.
	Complete(ctx context.Context, state, code string) (*domain.Identity, error)
}

// OAuthStateStore keeps short-lived state/PKCE verifier pairs between the
// two legs of an OAuth round trip.
type OAuthStateStore interface {
	Save(ctx context.Context, state, verifier string) error
	// Consume returns and deletes the verifier. Missing or expired state
	// yields domain.ErrOAuthState.
	Consume(ctx context.Context, state string) (string, error)
}
