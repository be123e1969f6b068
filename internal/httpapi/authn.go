package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"assetdesk.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// TokenVerifier resolves a bearer token to its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// publicPaths never require a token, even when authentication is mandatory.
var publicPaths = map[string]string{
	"/api/users/login": http.MethodPost,
}

// withAuth attaches the token subject to the request context. A token that is
// present but invalid is always rejected; a missing one only when required.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get(authHeader)
		if strings.TrimSpace(header) == "" {
			if a.authRequired && !isPublic(r) {
				unauthorized(w, r, "missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(header)
		if err != nil {
			unauthorized(w, r, err.Error())
			return
		}
		if a.tokens == nil {
			unauthorized(w, r, "token authentication is not configured")
			return
		}
		subject, err := a.tokens.Verify(token)
		if err != nil {
			unauthorized(w, r, "invalid token")
			return
		}

		ctx := auth.ContextWithSubject(r.Context(), subject)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="assetdesk"`)
	writeError(w, r, http.StatusUnauthorized, codeUnauthorized, msg)
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublic(r *http.Request) bool {
	method, ok := publicPaths[strings.TrimRight(r.URL.Path, "/")]
	return ok && method == r.Method
}
