package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/poklin/poklin/internal/core/domain"
	"github.com/poklin/poklin/internal/core/ports"
)

// countingHasher records calls so tests can observe timing equalisation.
type countingHasher struct {
	inner    ports.PasswordHasher
	verifies int
}

func (h *countingHasher) Hash(p string) (string, error) { return h.inner.Hash(p) }

func (h *countingHasher) Verify(p, d string) (bool, error) {
	h.verifies++
	return h.inner.Verify(p, d)
}

func registerAlice(t *testing.T, repo *stubUserRepo) {
	t.Helper()
	svc := NewRegistrationService(testAuthConfig(), repo, nil, zerolog.Nop())
	if _, err := svc.Register(context.Background(), aliceInput()); err != nil {
		t.Fatalf("register failed: %v", err)
	}
}

func TestCredentialAuthenticator_Success(t *testing.T) {
	repo := newStubUserRepo()
	registerAlice(t, repo)
	auth := NewCredentialAuthenticator(testAuthConfig(), repo, nil, zerolog.Nop())

	identity, err := auth.Authenticate(context.Background(), "alice@example.com", "Secret123!")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if identity.Email != "alice@example.com" || identity.Name != "Alice" || identity.ID == "" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestCredentialAuthenticator_FailuresAreIndistinguishable(t *testing.T) {
	repo := newStubUserRepo()
	registerAlice(t, repo)
	repo.users["oauth@example.com"] = &domain.User{ID: "99", Email: "oauth@example.com", Name: "OAuth"}
	auth := NewCredentialAuthenticator(testAuthConfig(), repo, nil, zerolog.Nop())

	cases := map[string][2]string{
		"wrong password": {"alice@example.com", "wrong"},
		"unknown email":  {"ghost@example.com", "Secret123!"},
		"oauth only":     {"oauth@example.com", "anything"},
		"empty email":    {"", "Secret123!"},
		"empty password": {"alice@example.com", ""},
		"case mismatch":  {"ALICE@example.com", "Secret123!"},
	}

	for name, creds := range cases {
		t.Run(name, func(t *testing.T) {
			identity, err := auth.Authenticate(context.Background(), creds[0], creds[1])
			if err != domain.ErrInvalidCredentials {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
			if identity != nil {
				t.Fatalf("no identity expected on failure")
			}
		})
	}
}

func TestCredentialAuthenticator_UnknownEmailStillVerifies(t *testing.T) {
	repo := newStubUserRepo()
	hasher := &countingHasher{inner: NewBcryptHasher(testAuthConfig().BcryptCost)}
	auth := NewCredentialAuthenticator(testAuthConfig(), repo, hasher, zerolog.Nop())

	_, _ = auth.Authenticate(context.Background(), "ghost@example.com", "whatever1")
	_, _ = auth.Authenticate(context.Background(), "ghost2@example.com", "whatever2")
	if hasher.verifies != 2 {
		t.Fatalf("expected a dummy comparison per unknown email, got %d", hasher.verifies)
	}
}

func TestCredentialAuthenticator_MalformedDigest(t *testing.T) {
	repo := newStubUserRepo()
	repo.users["broken@example.com"] = &domain.User{ID: "7", Email: "broken@example.com", PasswordHash: "not-bcrypt"}
	auth := NewCredentialAuthenticator(testAuthConfig(), repo, nil, zerolog.Nop())

	if _, err := auth.Authenticate(context.Background(), "broken@example.com", "whatever"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCredentialAuthenticator_StoreFailure(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = errStoreDown
	auth := NewCredentialAuthenticator(testAuthConfig(), repo, nil, zerolog.Nop())

	_, err := auth.Authenticate(context.Background(), "alice@example.com", "Secret123!")
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestCredentialAuthenticator_IsCredentialsProvider(t *testing.T) {
	var p ports.CredentialsProvider = NewCredentialAuthenticator(testAuthConfig(), newStubUserRepo(), nil, zerolog.Nop())
	if p.ID() != CredentialsProviderID || p.Type() != ports.ProviderCredentials {
		t.Fatalf("unexpected provider descriptor: %s %s", p.ID(), p.Type())
	}
}

func TestCredentialAuthenticator_RejectsPasswordExtendingStoredOne(t *testing.T) {
	repo := newStubUserRepo()
	in := aliceInput()
	in.Password = strings.Repeat("a", 72)
	if _, err := NewRegistrationService(testAuthConfig(), repo, nil, zerolog.Nop()).Register(context.Background(), in); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	hasher := &countingHasher{inner: NewBcryptHasher(testAuthConfig().BcryptCost)}
	auth := NewCredentialAuthenticator(testAuthConfig(), repo, hasher, zerolog.Nop())

	_, err := auth.Authenticate(context.Background(), in.Email, in.Password+"ATTACKER")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if hasher.verifies != 1 {
		t.Fatalf("expected one bcrypt comparison, got %d", hasher.verifies)
	}

	if _, err := auth.Authenticate(context.Background(), in.Email, in.Password); err != nil {
		t.Fatalf("exact password must still authenticate: %v", err)
	}
}
