package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/l5yth/potato-mesh/internal/crypto"
	"github.com/l5yth/potato-mesh/internal/metrics"
)

// LegacyTokenHeader carries the homeserver token for callers that cannot set
// an Authorization header.
const LegacyTokenHeader = "X-Access-Token"

// AuthMiddleware checks the homeserver token on appservice callbacks.
type AuthMiddleware struct {
	token  string
	logger zerolog.Logger
}

// NewAuthMiddleware creates a new auth middleware for the given hs_token.
func NewAuthMiddleware(hsToken string, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		token:  hsToken,
		logger: logger,
	}
}

// RequireToken rejects requests whose token is missing or wrong with 401 {}.
func (m *AuthMiddleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided, source := ExtractToken(r)
		if provided == "" {
			metrics.AuthFailures.WithLabelValues("missing").Inc()
			m.logger.Warn().Str("path", r.URL.Path).Msg("rejected request without token")
			emptyJSON(w, http.StatusUnauthorized)
			return
		}
		if !crypto.TokenEquals(provided, m.token) {
			metrics.AuthFailures.WithLabelValues("mismatch").Inc()
			m.logger.Warn().Str("path", r.URL.Path).Str("source", source).Msg("rejected request with invalid token")
			emptyJSON(w, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractToken returns the first token found, checking the Authorization
// bearer header, then the legacy header, then the access_token query
// parameter. The second value names the source.
func ExtractToken(r *http.Request) (string, string) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				return token, "bearer"
			}
		}
	}
	if token := strings.TrimSpace(r.Header.Get(LegacyTokenHeader)); token != "" {
		return token, "header"
	}
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token, "query"
	}
	return "", ""
}

func emptyJSON(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte("{}"))
}
