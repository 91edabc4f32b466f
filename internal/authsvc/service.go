// Package authsvc orchestrates the login/refresh/logout/register flows on
// top of the token primitives and a pair of service contracts. It holds no
// per-request state; every endpoint is an independent transaction.
package authsvc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andyeko/apisentinel/internal/contract"
	"github.com/andyeko/apisentinel/internal/token"
)

const defaultRefreshTTL = 7 * 24 * time.Hour

var (
	// ErrUnauthorized deliberately carries one message for every credential
	// failure so callers cannot probe which factor was wrong.
	ErrUnauthorized = errors.New("invalid email or password")
	// ErrEmailTaken signals a duplicate registration.
	ErrEmailTaken = errors.New("email is already registered")
)

// Service wires the token module to a UserDirectory and RefreshTokenStore.
// Both contracts are shared with other request paths and never owned
// exclusively.
type Service struct {
	users  contract.UserDirectory
	tokens contract.RefreshTokenStore
	cfg    token.Config

	refreshTTL    time.Duration
	adminEmail    string
	adminPassword string
	now           func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithDefaultAdmin enables the bootstrap credentials used only while the
// user store is empty.
func WithDefaultAdmin(email, password string) Option {
	return func(s *Service) {
		s.adminEmail = strings.TrimSpace(email)
		s.adminPassword = password
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the auth orchestrator.
func NewService(users contract.UserDirectory, tokens contract.RefreshTokenStore, cfg token.Config, opts ...Option) *Service {
	s := &Service{
		users:      users,
		tokens:     tokens,
		cfg:        cfg,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is the result of a successful login, refresh or registration.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	User         contract.UserInfo
}

// Login authenticates credentials and issues a token pair. While the user
// store is empty and bootstrap credentials are configured, an exact match
// against them yields a virtual SuperAdmin that is never persisted; the
// moment any real user exists that path is dead.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrUnauthorized
	}

	if s.adminEmail != "" && s.adminPassword != "" {
		count, err := s.users.Count(ctx)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			if email == strings.ToLower(s.adminEmail) && password == s.adminPassword {
				return s.issue(ctx, s.virtualAdmin(), false)
			}
			return nil, ErrUnauthorized
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, contract.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" || !token.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrUnauthorized
	}
	return s.issue(ctx, user, true)
}

// Refresh exchanges a refresh token for a new pair, rotating the stored
// row in place so the presented token is invalid immediately afterwards.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	hash := token.HashRefreshToken(refreshToken, s.cfg)
	info, err := s.tokens.FindByHash(ctx, hash)
	if errors.Is(err, contract.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if info.ExpiresAt.Before(s.now()) {
		// Lazy expiry cleanup; the row is useless either way.
		_ = s.tokens.Delete(ctx, info.ID)
		return nil, ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, info.UserID)
	if errors.Is(err, contract.ErrNotFound) {
		// Owner gone means the token is effectively revoked.
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	access, err := token.GenerateAccessToken(user, s.cfg)
	if err != nil {
		return nil, err
	}
	next, err := token.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Update(ctx, info.ID, token.HashRefreshToken(next, s.cfg), s.now().Add(s.refreshTTL)); err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  access,
		RefreshToken: next,
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
		User:         user.Public(),
	}, nil
}

// ValidationResult is the answer of Validate; invalid tokens are a result,
// not an error.
type ValidationResult struct {
	Valid     bool
	UserID    string
	Email     string
	ExpiresAt int64
}

// Validate verifies an access token. It never fails: an invalid token
// produces Valid=false.
func (s *Service) Validate(accessToken string) ValidationResult {
	claims, err := token.ValidateAccessToken(accessToken, s.cfg)
	if err != nil {
		return ValidationResult{}
	}
	return ValidationResult{
		Valid:     true,
		UserID:    claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Unix(),
	}
}

// Logout deletes the refresh token row. Absence is not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.DeleteByHash(ctx, token.HashRefreshToken(refreshToken, s.cfg))
}

// Register creates a user with the lowest-privilege role and no
// organisation, then behaves like a successful login.
func (s *Service) Register(ctx context.Context, email, name, password string) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	hash, err := token.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Create(ctx, email, name, hash, nil, contract.RoleUser)
	if errors.Is(err, contract.ErrAlreadyExists) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user, true)
}

func (s *Service) issue(ctx context.Context, user *contract.User, persist bool) (*Session, error) {
	access, err := token.GenerateAccessToken(user, s.cfg)
	if err != nil {
		return nil, err
	}
	refresh, err := token.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	if persist {
		hash := token.HashRefreshToken(refresh, s.cfg)
		if _, err := s.tokens.Create(ctx, user.ID, user.OrganisationID, hash, s.now().Add(s.refreshTTL)); err != nil {
			return nil, err
		}
	}
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
		User:         user.Public(),
	}, nil
}

// virtualAdmin synthesizes the bootstrap SuperAdmin. The reserved nil id
// marks it as never persisted; no refresh token row is stored for it.
func (s *Service) virtualAdmin() *contract.User {
	now := s.now().UTC()
	return &contract.User{
		ID:        uuid.Nil,
		Email:     strings.ToLower(s.adminEmail),
		Name:      "Default Admin",
		Role:      contract.RoleSuperAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
