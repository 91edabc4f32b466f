package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/andyeko/apisentinel/internal/httpx"
	"github.com/andyeko/apisentinel/internal/ids"
	"github.com/andyeko/apisentinel/internal/obs"
	"github.com/andyeko/apisentinel/internal/token"
)

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestID assigns a request identifier and stores it in the context so
// error envelopes and audit entries can echo it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := ids.NewRequestID()
		w.Header().Set("X-Request-Id", rid)
		next.ServeHTTP(w, r.WithContext(httpx.WithRequestID(r.Context(), rid)))
	})
}

// Logging records method, path, status and latency for every request. It
// never rejects.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		obs.Logger().Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.code,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", httpx.RequestIDFromContext(r.Context()),
		)
	})
}

// Authenticate decodes the bearer token with the same secret and issuer the
// token module signs with, and injects the identity headers downstream.
// Paths under authPrefix bypass authentication entirely so login and
// register stay reachable. Without a valid bearer token, a non-empty
// x-api-key header is accepted as a weaker mode; failing both, the chain
// short-circuits with 401.
func Authenticate(cfg token.Config, authPrefix, apiKey string, next http.Handler) http.Handler {
	authPrefix = strings.TrimRight(authPrefix, "/")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authPrefix != "" && (r.URL.Path == authPrefix || strings.HasPrefix(r.URL.Path, authPrefix+"/")) {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if raw := bearerToken(r.Header.Get("Authorization")); raw != "" {
			if claims, err := token.ValidateAccessToken(raw, cfg); err == nil {
				identityFromClaims(claims).apply(r.Header)
				next.ServeHTTP(w, r)
				return
			}
		}

		// API-key fallback: a non-empty key is enough, and when a static
		// key is configured it must match.
		if key := r.Header.Get(HeaderAPIKey); key != "" && (apiKey == "" || key == apiKey) {
			r.Header.Set(HeaderAuthMarker, "api-key")
			next.ServeHTTP(w, r)
			return
		}

		httpx.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
	})
}

// InjectGatewayHeader stamps the gateway identity on every request that
// reached dispatch.
func InjectGatewayHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Set(HeaderGateway, gatewayName)
		next.ServeHTTP(w, r)
	})
}

var publicPaths = []string{
	"/healthz",
	"/metrics",
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
