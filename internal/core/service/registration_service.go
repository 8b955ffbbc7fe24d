package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/poklin/poklin/internal/core/domain"
	"github.com/poklin/poklin/internal/core/ports"
	"github.com/poklin/poklin/internal/pkg/config"
	"github.com/poklin/poklin/internal/pkg/validation"
)

const maxPasswordBytes = 72

// RegistrationService creates credential accounts.
type RegistrationService struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	validate *validator.Validate
	log      zerolog.Logger
	now      func() time.Time
}

func NewRegistrationService(cfg *config.AuthConfig, users ports.UserRepository, hasher ports.PasswordHasher, log zerolog.Logger) *RegistrationService {
	if hasher == nil {
		hasher = NewBcryptHasher(cfg.BcryptCost)
	}
	return &RegistrationService{
		users:    users,
		hasher:   hasher,
		validate: validation.New(),
		log:      log,
		now:      time.Now,
	}
}

// Register validates the input, rejects known emails and stores a new user.
// Nothing is written unless every check passes.
func (s *RegistrationService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}
	// bcrypt only accepts 72 bytes; the tag above counts runes.
	if len(in.Password) > maxPasswordBytes {
		return nil, &domain.ValidationError{Message: "password must be at most 72 bytes"}
	}

	_, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, domain.ErrDuplicateEmail
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("register: lookup email: %w", err)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Name:         in.Name,
		Age:          in.Age,
		Email:        in.Email,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("register: create user: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Msg("user registered")
	return created.Sanitized(), nil
}
