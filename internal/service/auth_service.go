package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"agro-herders-service/internal/auth"
	"agro-herders-service/internal/domain/agro"
	"agro-herders-service/internal/metrics"
	"agro-herders-service/internal/repository"
	"agro-herders-service/internal/utils"
)

const (
	RoleOfficer = "officer"
	RoleAdmin   = "admin"

	minPasswordLength = 8
)

var errBadCredentials = fmt.Errorf("%w: Invalid email or password", ErrUnauthorized)

type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        agro.User `json:"user"`
}

type AuthService struct {
	users       UserStore
	tokens      *auth.TokenManager
	revocations auth.RevocationStore
	log         zerolog.Logger
	metrics     *metrics.Metrics
}

func NewAuthService(
	users UserStore,
	tokens *auth.TokenManager,
	revocations auth.RevocationStore,
	log zerolog.Logger,
	m *metrics.Metrics,
) *AuthService {
	if revocations == nil {
		revocations = auth.NewMemoryRevocationStore()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &AuthService{
		users:       users,
		tokens:      tokens,
		revocations: revocations,
		log:         log.With().Str("component", "auth").Logger(),
		metrics:     m,
	}
}

// Login checks the officer's password and issues a bearer token. Unknown
// emails and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalid("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.metrics.RecordLogin("rejected")
		s.log.Info().Msg("login rejected: unknown email")
		return nil, errBadCredentials
	case err != nil:
		s.metrics.RecordLogin("error")
		return nil, storeError(err, "user")
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		s.metrics.RecordLogin("rejected")
		s.log.Info().Str("user_id", user.ID).Msg("login rejected: wrong password")
		return nil, errBadCredentials
	}

	token, _, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		s.metrics.RecordLogin("error")
		return nil, err
	}

	s.metrics.RecordLogin("success")
	s.log.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("officer logged in")
	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user.ToDomain(),
	}, nil
}

// Authenticate validates a bearer token and rejects revoked ones.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: could not validate credentials", ErrUnauthorized)
	}
	if claims.ID != "" {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: revocation store: %v", ErrDependency, err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: token has been revoked", ErrUnauthorized)
		}
	}
	return claims, nil
}

func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return fmt.Errorf("%w: token cannot be revoked", ErrUnauthorized)
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("%w: revocation store: %v", ErrDependency, err)
	}
	s.log.Info().Str("user_id", claims.Subject).Msg("officer logged out")
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*agro.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return nil, storeError(err, "user")
	}
	return user, nil
}

// CreateUser provisions an officer or admin account.
func (s *AuthService) CreateUser(ctx context.Context, email, password, fullName, role string) (*agro.User, error) {
	email = utils.NormalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = RoleOfficer
	}

	switch {
	case email == "" || !strings.Contains(email, "@"):
		return nil, invalid("a valid email is required")
	case len(password) < minPasswordLength:
		return nil, invalid("password must be at least %d characters", minPasswordLength)
	case fullName == "":
		return nil, invalid("full_name is required")
	case role != RoleOfficer && role != RoleAdmin:
		return nil, invalid("role must be %q or %q", RoleOfficer, RoleAdmin)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	row := &repository.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         role,
	}
	if err := s.users.Create(ctx, row); err != nil {
		return nil, storeError(err, "user "+email)
	}

	s.log.Info().Str("user_id", row.ID).Str("role", role).Msg("user created")
	user := row.ToDomain()
	return &user, nil
}
