package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/healthfin/healthfin/internal/access"
	"github.com/healthfin/healthfin/internal/platform/httpx"
)

// SessionLoader resolves a session ID to an identity.
type SessionLoader interface {
	Load(ctx context.Context, id string) (access.UserContext, error)
}

// Authenticator turns bearer tokens or session cookies into a UserContext.
type Authenticator struct {
	verifier   *TokenVerifier
	sessions   SessionLoader
	cookieName string
	logger     *slog.Logger
}

// NewAuthenticator wires an Authenticator. Either source may be nil.
func NewAuthenticator(verifier *TokenVerifier, sessions SessionLoader, cookieName string, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{verifier: verifier, sessions: sessions, cookieName: cookieName, logger: logger}
}

// Middleware rejects requests without a valid identity with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.authenticate(r)
		if err != nil {
			a.logger.Debug("authentication failed", slog.String("path", r.URL.Path), slog.Any("error", err))
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(access.ContextWithUser(r.Context(), user)))
	})
}

func (a *Authenticator) authenticate(r *http.Request) (access.UserContext, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || a.verifier == nil {
			return access.UserContext{}, ErrInvalidToken
		}
		return a.verifier.Verify(strings.TrimSpace(token))
	}
	if a.sessions != nil && a.cookieName != "" {
		cookie, err := r.Cookie(a.cookieName)
		if err == nil && cookie.Value != "" {
			user, err := a.sessions.Load(r.Context(), cookie.Value)
			if err != nil && !errors.Is(err, ErrSessionNotFound) {
				a.logger.Error("load session", slog.Any("error", err))
			}
			return user, err
		}
	}
	return access.UserContext{}, ErrSessionNotFound
}
