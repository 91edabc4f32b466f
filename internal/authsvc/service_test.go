package authsvc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/andyeko/apisentinel/internal/contract"
	"github.com/andyeko/apisentinel/internal/token"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*contract.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*contract.User)}
}

func (f *fakeUsers) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*contract.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, contract.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByID(ctx context.Context, id uuid.UUID) (*contract.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, contract.ErrNotFound
}

func (f *fakeUsers) Create(ctx context.Context, email, name, passwordHash string, orgID *uuid.UUID, role contract.Role) (*contract.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[email]; ok {
		return nil, contract.ErrAlreadyExists
	}
	now := time.Now().UTC()
	u := &contract.User{
		ID:             uuid.New(),
		OrganisationID: orgID,
		Email:          email,
		Name:           name,
		PasswordHash:   passwordHash,
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.users[email] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return contract.ErrNotFound
}

func (f *fakeUsers) remove(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, email)
}

type tokenRow struct {
	userID    uuid.UUID
	orgID     *uuid.UUID
	hash      string
	expiresAt time.Time
}

type fakeTokens struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*tokenRow
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{rows: make(map[uuid.UUID]*tokenRow)}
}

func (f *fakeTokens) Create(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID, tokenHash string, expiresAt time.Time) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.rows[id] = &tokenRow{userID: userID, orgID: orgID, hash: tokenHash, expiresAt: expiresAt}
	return id, nil
}

func (f *fakeTokens) FindByHash(ctx context.Context, tokenHash string) (*contract.RefreshTokenInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, row := range f.rows {
		if row.hash == tokenHash {
			return &contract.RefreshTokenInfo{
				ID:             id,
				UserID:         row.userID,
				OrganisationID: row.orgID,
				ExpiresAt:      row.expiresAt,
			}, nil
		}
	}
	return nil, contract.ErrNotFound
}

func (f *fakeTokens) Update(ctx context.Context, id uuid.UUID, newHash string, newExpiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return contract.ErrNotFound
	}
	row.hash = newHash
	row.expiresAt = newExpiresAt
	return nil
}

func (f *fakeTokens) DeleteByHash(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, row := range f.rows {
		if row.hash == tokenHash {
			delete(f.rows, id)
			return nil
		}
	}
	return nil
}

func (f *fakeTokens) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeTokens) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

var (
	_ contract.UserDirectory     = (*fakeUsers)(nil)
	_ contract.RefreshTokenStore = (*fakeTokens)(nil)
)

func testTokenConfig() token.Config {
	return token.Config{Secret: "service-test-secret", Issuer: "apisentinel-test", AccessTTL: 5 * time.Minute}
}

func newTestService(opts ...Option) (*Service, *fakeUsers, *fakeTokens) {
	users := newFakeUsers()
	tokens := newFakeTokens()
	return NewService(users, tokens, testTokenConfig(), opts...), users, tokens
}

func TestLoginBootstrapAdmin(t *testing.T) {
	svc, _, tokens := newTestService(WithDefaultAdmin("root@example.com", "bootstrap-pass"))
	ctx := context.Background()

	session, err := svc.Login(ctx, "Root@Example.com", "bootstrap-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.User.Role != contract.RoleSuperAdmin {
		t.Errorf("role = %q, want %q", session.User.Role, contract.RoleSuperAdmin)
	}
	if session.User.ID != uuid.Nil {
		t.Errorf("bootstrap admin must use the reserved nil id, got %v", session.User.ID)
	}
	if tokens.count() != 0 {
		t.Error("bootstrap session must not persist a refresh token")
	}
	if session.RefreshToken == "" || session.AccessToken == "" {
		t.Error("expected a full token pair")
	}

	claims, err := token.ValidateAccessToken(session.AccessToken, testTokenConfig())
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.Role != string(contract.RoleSuperAdmin) {
		t.Errorf("claims role = %q", claims.Role)
	}
}

func TestLoginBootstrapDisabledOnceUsersExist(t *testing.T) {
	svc, _, _ := newTestService(WithDefaultAdmin("root@example.com", "bootstrap-pass"))
	ctx := context.Background()

	if _, err := svc.Register(ctx, "first@example.com", "First", "a real password"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Login(ctx, "root@example.com", "bootstrap-pass"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized once a real user exists, got %v", err)
	}
}

func TestLoginBootstrapWrongPassword(t *testing.T) {
	svc, _, _ := newTestService(WithDefaultAdmin("root@example.com", "bootstrap-pass"))
	if _, err := svc.Login(context.Background(), "root@example.com", "guess"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLoginUniformFailure(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "jane@example.com", "Jane", "right password"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	unknownErr := func() error {
		_, err := svc.Login(ctx, "nobody@example.com", "whatever")
		return err
	}()
	wrongPassErr := func() error {
		_, err := svc.Login(ctx, "jane@example.com", "wrong password")
		return err
	}()

	if !errors.Is(unknownErr, ErrUnauthorized) || !errors.Is(wrongPassErr, ErrUnauthorized) {
		t.Fatalf("both failures must be ErrUnauthorized, got %v and %v", unknownErr, wrongPassErr)
	}
	if unknownErr.Error() != wrongPassErr.Error() {
		t.Error("failure messages must not reveal which credential was wrong")
	}
}

func TestLoginEmptyCredentials(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Login(context.Background(), "", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	svc, _, tokens := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "jane@example.com", "Jane", "right password"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	session, err := svc.Login(ctx, "JANE@example.com", "right password")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.User.Email != "jane@example.com" {
		t.Errorf("email = %q", session.User.Email)
	}
	if session.ExpiresIn != int64((5 * time.Minute).Seconds()) {
		t.Errorf("expires_in = %d", session.ExpiresIn)
	}
	// One row from registration, one from login.
	if tokens.count() != 2 {
		t.Errorf("refresh token rows = %d, want 2", tokens.count())
	}
}

func TestRefreshRotatesInPlace(t *testing.T) {
	svc, _, tokens := newTestService()
	ctx := context.Background()
	session, err := svc.Register(ctx, "jane@example.com", "Jane", "password!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	next, err := svc.Refresh(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == session.RefreshToken {
		t.Fatal("refresh must issue a new refresh token")
	}
	if tokens.count() != 1 {
		t.Fatalf("rotation must reuse the row, have %d rows", tokens.count())
	}

	if _, err := svc.Refresh(ctx, session.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("presented token must be dead after rotation, got %v", err)
	}
	if _, err := svc.Refresh(ctx, next.RefreshToken); err != nil {
		t.Fatalf("rotated token must work: %v", err)
	}
}

func TestRefreshExpiredDeletesRow(t *testing.T) {
	current := time.Now().UTC()
	svc, _, tokens := newTestService(
		WithRefreshTTL(time.Hour),
		WithClock(func() time.Time { return current }),
	)
	ctx := context.Background()
	session, err := svc.Register(ctx, "jane@example.com", "Jane", "password!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	current = current.Add(2 * time.Hour)
	if _, err := svc.Refresh(ctx, session.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired token, got %v", err)
	}
	if tokens.count() != 0 {
		t.Error("expired row must be deleted on discovery")
	}
}

func TestRefreshUnknownToken(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Refresh(context.Background(), "never issued"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRefreshOrphanedToken(t *testing.T) {
	svc, users, _ := newTestService()
	ctx := context.Background()
	session, err := svc.Register(ctx, "jane@example.com", "Jane", "password!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	users.remove("jane@example.com")
	if _, err := svc.Refresh(ctx, session.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for orphaned token, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	svc, _, tokens := newTestService()
	ctx := context.Background()
	session, err := svc.Register(ctx, "jane@example.com", "Jane", "password!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.Logout(ctx, session.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if tokens.count() != 0 {
		t.Error("logout must delete the refresh token row")
	}
	if _, err := svc.Refresh(ctx, session.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("token must be dead after logout, got %v", err)
	}
	// Repeating the logout is harmless.
	if err := svc.Logout(ctx, session.RefreshToken); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
}

func TestRegister(t *testing.T) {
	svc, users, _ := newTestService()
	ctx := context.Background()

	session, err := svc.Register(ctx, "New@Example.com", "New", "a password")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if session.User.Role != contract.RoleUser {
		t.Errorf("role = %q, want %q", session.User.Role, contract.RoleUser)
	}
	if session.User.Email != "new@example.com" {
		t.Errorf("email = %q, want normalized lowercase", session.User.Email)
	}
	if session.User.OrganisationID != nil {
		t.Error("self-registered users carry no organisation")
	}

	stored, err := users.FindByEmail(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "a password" {
		t.Error("password must be stored hashed")
	}
	if !token.VerifyPassword("a password", stored.PasswordHash) {
		t.Error("stored hash must verify against the original password")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "jane@example.com", "Jane", "password!"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "jane@example.com", "Other", "different!"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	svc, _, _ := newTestService()
	session, err := svc.Register(context.Background(), "jane@example.com", "Jane", "password!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	result := svc.Validate(session.AccessToken)
	if !result.Valid {
		t.Fatal("freshly issued token must validate")
	}
	if result.UserID != session.User.ID.String() {
		t.Errorf("user_id = %q, want %q", result.UserID, session.User.ID)
	}
	if result.Email != "jane@example.com" {
		t.Errorf("email = %q", result.Email)
	}
	if result.ExpiresAt <= time.Now().Unix() {
		t.Errorf("expires_at = %d, want future", result.ExpiresAt)
	}

	if got := svc.Validate("garbage"); got.Valid {
		t.Error("garbage token must not validate")
	}
	if got := svc.Validate(""); got.Valid {
		t.Error("empty token must not validate")
	}
}
