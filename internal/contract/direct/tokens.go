package direct

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/andyeko/apisentinel/internal/contract"
)

// RefreshTokenStore persists refresh token hashes. All mutations are
// single statements so concurrent refresh attempts on the same row cannot
// interleave a read-then-write.
type RefreshTokenStore struct {
	db *sql.DB
}

var _ contract.RefreshTokenStore = (*RefreshTokenStore)(nil)

func NewRefreshTokenStore(db *sql.DB) *RefreshTokenStore {
	return &RefreshTokenStore{db: db}
}

func (s *RefreshTokenStore) Create(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID, tokenHash string, expiresAt time.Time) (uuid.UUID, error) {
	id := uuid.New()
	if _, err := s.db.ExecContext(ctx, `
		insert into refresh_tokens (id, user_id, organisation_id, token_hash, expires_at)
		values ($1, $2, $3, $4, $5)`,
		id, userID, nullUUID(orgID), tokenHash, expiresAt.UTC()); err != nil {
		return uuid.Nil, contract.Internalf("create refresh token: %v", err)
	}
	return id, nil
}

func (s *RefreshTokenStore) FindByHash(ctx context.Context, tokenHash string) (*contract.RefreshTokenInfo, error) {
	var (
		info contract.RefreshTokenInfo
		org  uuid.NullUUID
	)
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, organisation_id, expires_at
		from refresh_tokens where token_hash = $1`, tokenHash).
		Scan(&info.ID, &info.UserID, &org, &info.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contract.ErrNotFound
	}
	if err != nil {
		return nil, contract.Internalf("find refresh token: %v", err)
	}
	if org.Valid {
		info.OrganisationID = &org.UUID
	}
	return &info, nil
}

func (s *RefreshTokenStore) Update(ctx context.Context, id uuid.UUID, newHash string, newExpiresAt time.Time) error {
	if _, err := s.db.ExecContext(ctx, `
		update refresh_tokens
		set token_hash = $1, expires_at = $2, updated_at = now()
		where id = $3`,
		newHash, newExpiresAt.UTC(), id); err != nil {
		return contract.Internalf("rotate refresh token: %v", err)
	}
	return nil
}

func (s *RefreshTokenStore) DeleteByHash(ctx context.Context, tokenHash string) error {
	if _, err := s.db.ExecContext(ctx,
		`delete from refresh_tokens where token_hash = $1`, tokenHash); err != nil {
		return contract.Internalf("delete refresh token: %v", err)
	}
	return nil
}

func (s *RefreshTokenStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx,
		`delete from refresh_tokens where id = $1`, id); err != nil {
		return contract.Internalf("delete refresh token: %v", err)
	}
	return nil
}
