package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/animechat/server/internal/apperr"
	"github.com/animechat/server/internal/auth"
	"github.com/animechat/server/internal/models"
	"github.com/animechat/server/internal/respond"
)

// TokenVerifier is satisfied by *auth.TokenService.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// UserLookup is satisfied by *database.UserStore.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type userKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the user attached by the AuthGate.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey{}).(*models.User)
	return u, ok && u != nil
}

// AuthGate resolves the bearer token on each request to a user.
type AuthGate struct {
	tokens TokenVerifier
	users  UserLookup
	logger *logrus.Logger

	// AllowQueryToken also accepts ?token= for websocket upgrades, where
	// browsers cannot set the Authorization header.
	AllowQueryToken bool
}

// NewAuthGate builds a gate that checks headers only.
func NewAuthGate(tokens TokenVerifier, users UserLookup, logger *logrus.Logger) *AuthGate {
	return &AuthGate{tokens: tokens, users: users, logger: logger}
}

// WithQueryToken returns a copy of g that also accepts ?token=.
func (g *AuthGate) WithQueryToken() *AuthGate {
	cp := *g
	cp.AllowQueryToken = true
	return &cp
}

var errInvalidToken = apperr.New(apperr.Unauthenticated, "invalid token")

// Authenticate returns the user the request's token belongs to. A stale
// token for a deleted user is reported exactly like a bad token.
func (g *AuthGate) Authenticate(r *http.Request) (*models.User, error) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok && g.AllowQueryToken {
		token = r.URL.Query().Get("token")
		ok = token != ""
	}
	if !ok {
		return nil, apperr.New(apperr.Unauthenticated, "missing bearer token")
	}

	id, err := g.tokens.Verify(token)
	switch {
	case errors.Is(err, auth.ErrMissingSecret):
		return nil, apperr.Wrap(apperr.ServerMisconfigured, "server misconfigured", err)
	case err != nil:
		return nil, errInvalidToken
	}

	u, err := g.users.GetByID(r.Context(), id)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, errInvalidToken
		}
		return nil, err
	}
	return u, nil
}

// Handler rejects unauthenticated requests and stores the user in the
// request context for the next handler.
func (g *AuthGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := g.Authenticate(r)
		if err != nil {
			respond.Error(w, r, g.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
