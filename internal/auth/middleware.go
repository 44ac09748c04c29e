package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/stocklane-erp/stocklane/internal/platform/httpx"
	"github.com/stocklane-erp/stocklane/internal/shared"
)

// Middleware verifies bearer tokens and attaches the identity to the request
// context. Verification is a pure signature check; no database access.
type Middleware struct {
	Verifier *Verifier
	Logger   *slog.Logger
}

// Authenticate rejects requests without a valid bearer token. The response is
// the same generic 401 whether the header is missing, the signature is wrong
// or the token expired.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httpx.Unauthorized(w)
			return
		}
		identity, err := m.Verifier.Verify(token)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("token verification failed",
					slog.String("path", r.URL.Path),
					slog.Any("error", err))
			}
			httpx.Unauthorized(w)
			return
		}
		ctx := shared.ContextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
