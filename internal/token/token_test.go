package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/andyeko/apisentinel/internal/contract"
)

func testConfig() Config {
	return Config{
		Secret:    "unit-test-secret",
		Issuer:    "apisentinel-test",
		AccessTTL: 5 * time.Minute,
	}
}

func testUser() *contract.User {
	org := uuid.New()
	return &contract.User{
		ID:             uuid.New(),
		OrganisationID: &org,
		Email:          "jane@example.com",
		Name:           "Jane",
		Role:           contract.RoleAdmin,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	user := testUser()

	raw, err := GenerateAccessToken(user, cfg)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := ValidateAccessToken(raw, cfg)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.Subject != user.ID.String() {
		t.Errorf("subject = %q, want %q", claims.Subject, user.ID)
	}
	if claims.Email != user.Email {
		t.Errorf("email = %q, want %q", claims.Email, user.Email)
	}
	if claims.Name != user.Name {
		t.Errorf("name = %q, want %q", claims.Name, user.Name)
	}
	if claims.Role != string(contract.RoleAdmin) {
		t.Errorf("role = %q, want %q", claims.Role, contract.RoleAdmin)
	}
	if claims.OrgID != user.OrganisationID.String() {
		t.Errorf("org_id = %q, want %q", claims.OrgID, user.OrganisationID)
	}
	if exp := claims.ExpiresAt.Time; time.Until(exp) <= 0 {
		t.Errorf("expected future expiry, got %v", exp)
	}
}

func TestAccessTokenWithoutOrganisation(t *testing.T) {
	cfg := testConfig()
	user := testUser()
	user.OrganisationID = nil

	raw, err := GenerateAccessToken(user, cfg)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	claims, err := ValidateAccessToken(raw, cfg)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.OrgID != "" {
		t.Errorf("org_id = %q, want empty", claims.OrgID)
	}
}

func TestValidateAccessTokenFailures(t *testing.T) {
	cfg := testConfig()
	user := testUser()
	raw, err := GenerateAccessToken(user, cfg)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	tests := []struct {
		name string
		raw  string
		cfg  Config
	}{
		{"empty input", "", cfg},
		{"garbage input", "not.a.jwt", cfg},
		{"truncated token", raw[:len(raw)/2], cfg},
		{"wrong secret", raw, Config{Secret: "other", Issuer: cfg.Issuer, AccessTTL: cfg.AccessTTL}},
		{"wrong issuer", raw, Config{Secret: cfg.Secret, Issuer: "someone-else", AccessTTL: cfg.AccessTTL}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateAccessToken(tt.raw, tt.cfg); err != ErrInvalidToken {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestValidateAccessTokenExpired(t *testing.T) {
	cfg := testConfig()
	user := testUser()

	// Sign a token whose expiry already elapsed.
	now := time.Now().UTC().Add(-time.Hour)
	claims := Claims{
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := ValidateAccessToken(raw, cfg); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestValidateAccessTokenRejectsAlgorithmConfusion(t *testing.T) {
	cfg := testConfig()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "someone",
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ValidateAccessToken(raw, cfg); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for alg=none, got %v", err)
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	a, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	b, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	if len(a) != refreshTokenBytes*2 {
		t.Errorf("length = %d, want %d hex chars", len(a), refreshTokenBytes*2)
	}
	if a == b {
		t.Error("two refresh tokens must not collide")
	}
	if strings.ToLower(a) != a {
		t.Error("expected lowercase hex encoding")
	}
}

func TestHashRefreshToken(t *testing.T) {
	cfg := testConfig()
	h1 := HashRefreshToken("some-token", cfg)
	h2 := HashRefreshToken("some-token", cfg)
	if h1 != h2 {
		t.Error("hash must be deterministic for the same secret")
	}
	if h1 == HashRefreshToken("other-token", cfg) {
		t.Error("different tokens must hash differently")
	}
	otherKey := Config{Secret: "another-secret", Issuer: cfg.Issuer, AccessTTL: cfg.AccessTTL}
	if h1 == HashRefreshToken("some-token", otherKey) {
		t.Error("hash must depend on the signing secret")
	}
}
