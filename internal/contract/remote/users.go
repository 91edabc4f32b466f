package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/andyeko/apisentinel/internal/contract"
)

// UserDirectory resolves user operations against a peer admin service.
type UserDirectory struct {
	client *Client
}

var _ contract.UserDirectory = (*UserDirectory)(nil)

func NewUserDirectory(client *Client) *UserDirectory {
	return &UserDirectory{client: client}
}

func (d *UserDirectory) Count(ctx context.Context) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	if err := d.client.doJSON(ctx, http.MethodGet, "/internal/users/count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*contract.User, error) {
	var user contract.User
	path := "/internal/users/by-email/" + url.PathEscape(email)
	if err := d.client.doJSON(ctx, http.MethodGet, path, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *UserDirectory) FindByID(ctx context.Context, id uuid.UUID) (*contract.User, error) {
	var user contract.User
	path := fmt.Sprintf("/internal/users/%s", id)
	if err := d.client.doJSON(ctx, http.MethodGet, path, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *UserDirectory) Create(ctx context.Context, email, name, passwordHash string, orgID *uuid.UUID, role contract.Role) (*contract.User, error) {
	req := struct {
		Email          string        `json:"email"`
		Name           string        `json:"name"`
		PasswordHash   string        `json:"password_hash"`
		OrganisationID *uuid.UUID    `json:"organisation_id,omitempty"`
		Role           contract.Role `json:"role"`
	}{email, name, passwordHash, orgID, role}

	var user contract.User
	err := d.client.doJSON(ctx, http.MethodPost, "/internal/users", req, &user)
	if err != nil {
		// A 404 from user creation is not an absence signal; the route
		// itself is missing on the peer.
		if errors.Is(err, contract.ErrNotFound) {
			return nil, contract.Internalf("create user: unexpected 404")
		}
		return nil, err
	}
	return &user, nil
}

func (d *UserDirectory) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	req := struct {
		PasswordHash string `json:"password_hash"`
	}{passwordHash}
	path := fmt.Sprintf("/internal/users/%s/password", id)
	return d.client.doJSON(ctx, http.MethodPut, path, req, nil)
}
