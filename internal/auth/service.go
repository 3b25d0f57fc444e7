package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gamevault/gamevault-backend/internal/users"
	pkgauth "github.com/gamevault/gamevault-backend/pkg/auth"
	"github.com/gamevault/gamevault-backend/pkg/config"
	"github.com/gamevault/gamevault-backend/pkg/db/models"
	pkgerrors "github.com/gamevault/gamevault-backend/pkg/errors"
	"github.com/gamevault/gamevault-backend/pkg/logger"
	"github.com/gamevault/gamevault-backend/pkg/security"
)

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Service handles credential login and token issuance.
type Service struct {
	users userStore
	jwt   config.JWTConfig
	logg  *logger.Logger
}

// NewService builds the auth service.
func NewService(userRepo userStore, jwt config.JWTConfig, logg *logger.Logger) (*Service, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &Service{users: userRepo, jwt: jwt, logg: logg}, nil
}

// LoginResult carries the minted token and the authenticated user.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *users.UserDTO
}

// Login verifies the credentials and mints an access token. Unknown emails
// and bad passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	match, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !match {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	now := time.Now().UTC()
	token, err := pkgauth.MintAccessToken(s.jwt, now, pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "update last login failed")
	}

	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   now.Add(time.Duration(s.jwt.ExpirationMinutes) * time.Minute),
		User:        users.FromModel(user),
	}, nil
}
