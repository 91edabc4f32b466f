package authsvc

import (
	"errors"
	"net/http"
	"strings"

	"github.com/andyeko/apisentinel/internal/audit"
	"github.com/andyeko/apisentinel/internal/contract"
	"github.com/andyeko/apisentinel/internal/httpx"
	"github.com/andyeko/apisentinel/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type sessionResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	TokenType    string            `json:"token_type"`
	ExpiresIn    int64             `json:"expires_in"`
	User         contract.UserInfo `json:"user"`
}

type validateResponse struct {
	Valid     bool   `json:"valid"`
	UserID    string `json:"user_id,omitempty"`
	Email     string `json:"email,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// Routes returns the auth endpoints relative to the mount prefix. The
// gateway nests this under its configured auth base path; cmd/authd serves
// it standalone under /auth.
func (s *Service) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/refresh", s.handleRefresh)
	mux.HandleFunc("/validate", s.handleValidate)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/register", s.handleRegister)
	return mux
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": session.User.ID.String(),
	})
	httpx.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *Service) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		httpx.WriteError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	session, err := s.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"user_id": session.User.ID.String(),
	})
	httpx.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

// handleValidate always answers 200: validity is the result, not an error
// state.
func (s *Service) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w, r, http.MethodGet)
		return
	}
	raw := bearerToken(r.Header.Get("Authorization"))
	result := s.Validate(raw)
	httpx.WriteJSON(w, http.StatusOK, validateResponse{
		Valid:     result.Valid,
		UserID:    result.UserID,
		Email:     result.Email,
		ExpiresAt: result.ExpiresAt,
	})
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req logoutRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Logout(r.Context(), req.RefreshToken); err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Name) == "" || req.Password == "" {
		httpx.WriteError(w, r, http.StatusBadRequest, "email, name and password are required")
		return
	}

	session, err := s.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id": session.User.ID.String(),
	})
	httpx.WriteJSON(w, http.StatusCreated, toSessionResponse(session))
}

// writeAuthError translates service and contract errors to HTTP statuses.
// Backend detail is logged but never surfaced to the client.
func (s *Service) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		httpx.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, ErrEmailTaken):
		httpx.WriteError(w, r, http.StatusBadRequest, ErrEmailTaken.Error())
	case errors.Is(err, contract.ErrConnection):
		obs.Logger().Error("auth backend unreachable", "error", err.Error(), "path", r.URL.Path)
		httpx.WriteError(w, r, http.StatusBadGateway, "auth backend unavailable")
	default:
		obs.Logger().Error("auth request failed", "error", err.Error(), "path", r.URL.Path)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func toSessionResponse(s *Session) sessionResponse {
	return sessionResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.ExpiresIn,
		User:         s.User,
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
