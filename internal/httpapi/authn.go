package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"redconnect.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// requireAccount authenticates the request and checks the caller's role
// against the allowed set. An empty set admits any authenticated
// account. On failure it writes the error response and returns ok=false;
// on success it returns the request with the account attached to its
// context.
func (a *API) requireAccount(w http.ResponseWriter, r *http.Request, roles ...auth.Role) (*auth.Account, *http.Request, bool) {
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return nil, r, false
	}
	acc, err := a.auth.RequireAnyRole(r.Context(), token, roles...)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrForbidden):
			writeError(w, r, http.StatusForbidden, "insufficient privileges")
		case errors.Is(err, auth.ErrUnauthenticated):
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, r, http.StatusUnauthorized, "could not validate credentials")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return nil, r, false
	}
	return acc, r.WithContext(auth.ContextWithAccount(r.Context(), acc)), true
}
