package middleware

import (
	"context"
	"net/http"

	"github.com/druid-matt/ossinsight/internal/auth/account"
	"github.com/druid-matt/ossinsight/internal/logger"
	"github.com/druid-matt/ossinsight/internal/session"
)

// unexported, collision-proof context key
type claimsContextKeyType struct{}

var claimsKey = claimsContextKeyType{}

// ClaimsFromContext extracts the verified session claims from context.
func ClaimsFromContext(ctx context.Context) (*session.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*session.Claims)
	return claims, ok
}

// ProfileFromContext extracts the authenticated user profile from context.
func ProfileFromContext(ctx context.Context) (account.UserProfile, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return account.UserProfile{}, false
	}
	return claims.UserProfile, true
}

type AuthMiddleware struct {
	verifier   *session.Issuer
	cookieName string
}

func NewAuthMiddleware(verifier *session.Issuer, cookieName string) *AuthMiddleware {
	if cookieName == "" {
		cookieName = session.DefaultCookieName
	}
	return &AuthMiddleware{
		verifier:   verifier,
		cookieName: cookieName,
	}
}

// RequireAuth rejects requests without a valid session credential.
// Missing cookie, malformed token, bad signature and expiry all surface
// as the same 401; the underlying cause is logged, never returned.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(a.cookieName)
		if err != nil || cookie.Value == "" {
			unauthorized(w, r, "missing session cookie")
			return
		}

		claims, err := a.verifier.Verify(cookie.Value)
		if err != nil {
			logger.Warn("session verification failed", map[string]any{
				"error": err.Error(),
				"path":  r.URL.Path,
			})
			unauthorized(w, r, "invalid session")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	logger.Warn("request rejected", map[string]any{
		"reason": reason,
		"path":   r.URL.Path,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized"}`))
}
