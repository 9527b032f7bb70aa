package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
)

type authContextKey string

type authInfo struct {
	UserID  string
	IsAdmin bool
}

func (a authInfo) identity() domain.Identity {
	return domain.Identity{UserID: a.UserID, IsAdmin: a.IsAdmin}
}

const contextKeyAuth authContextKey = "music-auth-info"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request has a valid token before invoking the handler.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// requireAdmin runs after requireAuth and rejects non admin callers.
func (r *Router) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		info, ok := authInfoFromContext(req.Context())
		if !ok || !info.IsAdmin {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, req)
	}
}

// ensureAuth validates the Authorization or x-auth-token header and enriches the context.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, authInfo, bool) {
	token, err := requestToken(req)
	if err != nil {
		r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication required")
		return req.Context(), authInfo{}, false
	}
	identity, err := r.auth.Authorize(req.Context(), token)
	if err != nil {
		r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return req.Context(), authInfo{}, false
	}
	info := authInfo{UserID: identity.UserID, IsAdmin: identity.IsAdmin}
	ctx := context.WithValue(req.Context(), contextKeyAuth, info)
	return ctx, info, true
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	return info, ok
}

func requestToken(req *http.Request) (string, error) {
	if header := req.Header.Get("Authorization"); strings.TrimSpace(header) != "" {
		return bearerToken(header)
	}
	if token := strings.TrimSpace(req.Header.Get("x-auth-token")); token != "" {
		return token, nil
	}
	// EventSource cannot set headers.
	if token := strings.TrimSpace(req.URL.Query().Get("token")); token != "" && strings.HasPrefix(req.URL.Path, "/api/v1/events") {
		return token, nil
	}
	return "", errors.New("missing authorization header")
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
