// Package admin exposes the service-to-service surface consumed by the
// remote contract implementations. These routes mirror the contract
// operations one to one and must never be externally routable: the gateway
// does not publish them, and standalone deployments bind them on an
// internal listener.
package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/andyeko/apisentinel/internal/contract"
	"github.com/andyeko/apisentinel/internal/httpx"
	"github.com/andyeko/apisentinel/internal/obs"
)

// API serves the internal surface on top of a contract pair; in practice
// always the direct implementations, since this process owns the storage.
type API struct {
	users  contract.UserDirectory
	tokens contract.RefreshTokenStore
}

func New(users contract.UserDirectory, tokens contract.RefreshTokenStore) *API {
	return &API{users: users, tokens: tokens}
}

// Routes registers the internal endpoints.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /internal/users/count", a.handleUserCount)
	mux.HandleFunc("GET /internal/users/by-email/{email}", a.handleUserByEmail)
	mux.HandleFunc("GET /internal/users/{id}", a.handleUserByID)
	mux.HandleFunc("POST /internal/users", a.handleCreateUser)
	mux.HandleFunc("PUT /internal/users/{id}/password", a.handleUpdatePassword)
	mux.HandleFunc("POST /internal/refresh-tokens", a.handleCreateToken)
	mux.HandleFunc("GET /internal/refresh-tokens/by-hash/{hash}", a.handleTokenByHash)
	mux.HandleFunc("DELETE /internal/refresh-tokens/by-hash/{hash}", a.handleDeleteTokenByHash)
	mux.HandleFunc("PUT /internal/refresh-tokens/{id}", a.handleUpdateToken)
	mux.HandleFunc("DELETE /internal/refresh-tokens/{id}", a.handleDeleteToken)
	return mux
}

func (a *API) handleUserCount(w http.ResponseWriter, r *http.Request) {
	count, err := a.users.Count(r.Context())
	if err != nil {
		writeContractError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (a *API) handleUserByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := a.users.FindByEmail(r.Context(), r.PathValue("email"))
	if err != nil {
		writeContractError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := a.users.FindByID(r.Context(), id)
	if err != nil {
		writeContractError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

type createUserRequest struct {
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	PasswordHash   string     `json:"password_hash"`
	OrganisationID *uuid.UUID `json:"organisation_id,omitempty"`
	Role           string     `json:"role"`
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Name == "" {
		httpx.WriteError(w, r, http.StatusBadRequest, "email and name are required")
		return
	}
	user, err := a.users.Create(r.Context(), req.Email, req.Name, req.PasswordHash,
		req.OrganisationID, contract.ParseRole(req.Role))
	if err != nil {
		writeContractError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, user)
}

type updatePasswordRequest struct {
	PasswordHash string `json:"password_hash"`
}

func (a *API) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	var req updatePasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.users.UpdatePassword(r.Context(), id, req.PasswordHash); err != nil {
		writeContractError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createTokenRequest struct {
	UserID         uuid.UUID  `json:"user_id"`
	OrganisationID *uuid.UUID `json:"organisation_id,omitempty"`
	TokenHash      string     `json:"token_hash"`
	ExpiresAt      time.Time  `json:"expires_at"`
}

func (a *API) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id, err := a.tokens.Create(r.Context(), req.UserID, req.OrganisationID, req.TokenHash, req.ExpiresAt)
	if err != nil {
		writeContractError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]uuid.UUID{"id": id})
}

func (a *API) handleTokenByHash(w http.ResponseWriter, r *http.Request) {
	info, err := a.tokens.FindByHash(r.Context(), r.PathValue("hash"))
	if err != nil {
		writeContractError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, info)
}

func (a *API) handleDeleteTokenByHash(w http.ResponseWriter, r *http.Request) {
	if err := a.tokens.DeleteByHash(r.Context(), r.PathValue("hash")); err != nil {
		writeContractError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateTokenRequest struct {
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) handleUpdateToken(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid token id")
		return
	}
	var req updateTokenRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.tokens.Update(r.Context(), id, req.TokenHash, req.ExpiresAt); err != nil {
		writeContractError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid token id")
		return
	}
	if err := a.tokens.Delete(r.Context(), id); err != nil {
		writeContractError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeContractError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, contract.ErrNotFound):
		httpx.WriteError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, contract.ErrAlreadyExists):
		httpx.WriteError(w, r, http.StatusConflict, "already exists")
	default:
		obs.Logger().Error("internal api failure", "error", err.Error(), "path", r.URL.Path)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
