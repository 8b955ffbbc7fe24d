// Package oauth implements external identity providers on top of
// golang.org/x/oauth2. Callers only see ports.ExternalOAuthProvider.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/poklin/poklin/internal/core/domain"
	"github.com/poklin/poklin/internal/core/ports"
	"github.com/poklin/poklin/internal/pkg/config"
)

// GoogleProviderID is the path segment used in /auth/oauth/:provider routes.
const GoogleProviderID = "google"

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Endpoints overrides the provider URLs. Zero fields keep Google's defaults.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// GoogleProvider runs the authorization-code flow with PKCE and maps the
// resulting profile onto a local user. Accounts created here have no password.
type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	states      ports.OAuthStateStore
	users       ports.UserRepository
	log         zerolog.Logger
	now         func() time.Time
}

var _ ports.ExternalOAuthProvider = (*GoogleProvider)(nil)

func NewGoogleProvider(cfg *config.GoogleConfig, states ports.OAuthStateStore, users ports.UserRepository, log zerolog.Logger, endpoints Endpoints) *GoogleProvider {
	endpoint := google.Endpoint
	if endpoints.AuthURL != "" {
		endpoint.AuthURL = endpoints.AuthURL
	}
	if endpoints.TokenURL != "" {
		endpoint.TokenURL = endpoints.TokenURL
	}
	userInfoURL := googleUserInfoURL
	if endpoints.UserInfoURL != "" {
		userInfoURL = endpoints.UserInfoURL
	}

	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: userInfoURL,
		states:      states,
		users:       users,
		log:         log,
		now:         time.Now,
	}
}

func (p *GoogleProvider) ID() string { return GoogleProviderID }

func (p *GoogleProvider) Type() ports.ProviderType { return ports.ProviderOAuth }

// Begin stores a fresh state/verifier pair and returns the consent URL
// together with the state.
func (p *GoogleProvider) Begin(ctx context.Context) (string, string, error) {
	state := oauth2.GenerateVerifier()
	verifier := oauth2.GenerateVerifier()

	if err := p.states.Save(ctx, state, verifier); err != nil {
		return "", "", fmt.Errorf("google: %w", err)
	}
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier)), state, nil
}

// Complete exchanges the code, reads the profile and returns the identity of
// the matching local user, creating one on first sign-in.
func (p *GoogleProvider) Complete(ctx context.Context, state, code string) (*domain.Identity, error) {
	verifier, err := p.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, fmt.Errorf("google: %w: missing code", domain.ErrOAuthProfile)
	}

	token, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("google: exchange code: %w", err)
	}

	profile, err := p.fetchProfile(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := p.ensureUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	identity := user.Identity()
	return &identity, nil
}

type googleProfile struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (p *GoogleProvider) fetchProfile(ctx context.Context, token *oauth2.Token) (*googleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("google: build profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("google: fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google: %w: userinfo status %d", domain.ErrOAuthProfile, resp.StatusCode)
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("google: %w: %v", domain.ErrOAuthProfile, err)
	}
	if profile.Email == "" || !profile.EmailVerified {
		return nil, fmt.Errorf("google: %w: email missing or unverified", domain.ErrOAuthProfile)
	}
	return &profile, nil
}

// ensureUser never attaches a Google sign-in to a password account.
func (p *GoogleProvider) ensureUser(ctx context.Context, profile *googleProfile) (*domain.User, error) {
	existing, err := p.users.FindByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		return linkable(existing)
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("google: lookup user: %w", err)
	}

	now := p.now().UTC()
	created, err := p.users.Create(ctx, &domain.User{
		Name:      displayName(profile),
		Email:     profile.Email,
		Image:     profile.Picture,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Is(err, domain.ErrDuplicateEmail) {
		// Lost a race with a concurrent first sign-in.
		existing, err = p.users.FindByEmail(ctx, profile.Email)
		if err != nil {
			return nil, fmt.Errorf("google: lookup user: %w", err)
		}
		return linkable(existing)
	}
	if err != nil {
		return nil, fmt.Errorf("google: create user: %w", err)
	}

	p.log.Info().Str("user_id", created.ID).Str("provider", GoogleProviderID).Msg("user created from oauth profile")
	return created, nil
}

func linkable(user *domain.User) (*domain.User, error) {
	if user.HasPassword() {
		return nil, domain.ErrOAuthAccountNotLinked
	}
	return user, nil
}

func displayName(profile *googleProfile) string {
	if name := strings.TrimSpace(profile.Name); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(profile.Email, "@"); ok && local != "" {
		return local
	}
	return profile.Email
}
