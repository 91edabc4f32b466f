package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/andyeko/apisentinel/internal/contract"
)

// RefreshTokenStore manages refresh tokens on a peer admin service.
type RefreshTokenStore struct {
	client *Client
}

var _ contract.RefreshTokenStore = (*RefreshTokenStore)(nil)

func NewRefreshTokenStore(client *Client) *RefreshTokenStore {
	return &RefreshTokenStore{client: client}
}

func (s *RefreshTokenStore) Create(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID, tokenHash string, expiresAt time.Time) (uuid.UUID, error) {
	req := struct {
		UserID         uuid.UUID  `json:"user_id"`
		OrganisationID *uuid.UUID `json:"organisation_id,omitempty"`
		TokenHash      string     `json:"token_hash"`
		ExpiresAt      time.Time  `json:"expires_at"`
	}{userID, orgID, tokenHash, expiresAt}

	var out struct {
		ID uuid.UUID `json:"id"`
	}
	if err := s.client.doJSON(ctx, http.MethodPost, "/internal/refresh-tokens", req, &out); err != nil {
		return uuid.Nil, err
	}
	return out.ID, nil
}

func (s *RefreshTokenStore) FindByHash(ctx context.Context, tokenHash string) (*contract.RefreshTokenInfo, error) {
	var info contract.RefreshTokenInfo
	path := "/internal/refresh-tokens/by-hash/" + url.PathEscape(tokenHash)
	if err := s.client.doJSON(ctx, http.MethodGet, path, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *RefreshTokenStore) Update(ctx context.Context, id uuid.UUID, newHash string, newExpiresAt time.Time) error {
	req := struct {
		TokenHash string    `json:"token_hash"`
		ExpiresAt time.Time `json:"expires_at"`
	}{newHash, newExpiresAt}
	path := fmt.Sprintf("/internal/refresh-tokens/%s", id)
	return s.client.doJSON(ctx, http.MethodPut, path, req, nil)
}

func (s *RefreshTokenStore) DeleteByHash(ctx context.Context, tokenHash string) error {
	path := "/internal/refresh-tokens/by-hash/" + url.PathEscape(tokenHash)
	err := s.client.doJSON(ctx, http.MethodDelete, path, nil, nil)
	if errors.Is(err, contract.ErrNotFound) {
		// Deleting an absent token is not an error.
		return nil
	}
	return err
}

func (s *RefreshTokenStore) Delete(ctx context.Context, id uuid.UUID) error {
	path := fmt.Sprintf("/internal/refresh-tokens/%s", id)
	err := s.client.doJSON(ctx, http.MethodDelete, path, nil, nil)
	if errors.Is(err, contract.ErrNotFound) {
		return nil
	}
	return err
}
