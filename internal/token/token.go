// Package token owns every cryptographic operation in the system: access
// token signing and verification, refresh token generation and hashing,
// and password hashing. It performs no I/O.
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/andyeko/apisentinel/internal/contract"
)

// ErrInvalidToken indicates the access token failed validation: bad
// signature, wrong issuer, malformed input or elapsed expiry.
var ErrInvalidToken = errors.New("token: invalid token")

const refreshTokenBytes = 32

// Config carries the signing parameters. It is built once at startup and
// threaded explicitly through constructors; request paths only read it.
type Config struct {
	Secret    string
	Issuer    string
	AccessTTL time.Duration
}

// Claims is the self-contained payload of an access token. No server-side
// session state is needed to validate it.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	OrgID string `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs an HS256 JWT for the user with
// exp = now + cfg.AccessTTL.
func GenerateAccessToken(user *contract.User, cfg Config) (string, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return "", errors.New("token: signing secret is not configured")
	}
	now := time.Now().UTC()
	claims := Claims{
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTTL)),
		},
	}
	if user.OrganisationID != nil {
		claims.OrgID = user.OrganisationID.String()
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken verifies signature, issuer and expiry. It returns
// ErrInvalidToken on any failure and never panics on malformed input.
func ValidateAccessToken(raw string, cfg Config) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != cfg.Issuer {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateRefreshToken returns a fresh opaque secret: 32 bytes from the
// system CSPRNG, hex encoded. The plaintext is handed to the client once
// and never persisted.
func GenerateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashRefreshToken derives the deterministic storage key for a refresh
// token. Keyed with the signing secret so a leaked table cannot be matched
// against precomputed digests of candidate tokens.
func HashRefreshToken(raw string, cfg Config) string {
	mac := hmac.New(sha256.New, []byte(cfg.Secret))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
