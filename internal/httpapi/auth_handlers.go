package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"redconnect.org/internal/audit"
	"redconnect.org/internal/auth"
	"redconnect.org/internal/profile"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	UserID      string    `json:"user_id"`
	Role        auth.Role `json:"role"`
}

func (a *API) handleAuth(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/auth/")
	switch path {
	case "donor/register":
		a.postOnly(w, r, a.registerDonor)
	case "organizer/register":
		a.postOnly(w, r, a.registerOrganizer)
	case "donor/login":
		a.postOnly(w, r, func(w http.ResponseWriter, r *http.Request) {
			a.login(w, r, auth.RoleDonor)
		})
	case "organizer/login":
		a.postOnly(w, r, func(w http.ResponseWriter, r *http.Request) {
			a.login(w, r, auth.RoleOrganizer)
		})
	case "login":
		a.postOnly(w, r, a.loginAny)
	case "me":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.currentAccount(w, r)
	case "logout":
		a.postOnly(w, r, a.logout)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) postOnly(w http.ResponseWriter, r *http.Request, h http.HandlerFunc) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	h(w, r)
}

func (a *API) registerDonor(w http.ResponseWriter, r *http.Request) {
	var req profile.RegisterDonorInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	acc, _, err := a.profiles.RegisterDonor(r.Context(), req)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	a.issueToken(w, r, acc, http.StatusCreated, "auth.donor.register")
}

func (a *API) registerOrganizer(w http.ResponseWriter, r *http.Request) {
	var req profile.RegisterOrganizerInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	acc, _, err := a.profiles.RegisterOrganizer(r.Context(), req)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	a.issueToken(w, r, acc, http.StatusCreated, "auth.organizer.register")
}

func (a *API) issueToken(w http.ResponseWriter, r *http.Request, acc *auth.Account, code int, event string) {
	token, _, err := a.auth.Tokens().Issue(acc)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	a.audit(auth.ContextWithAccount(r.Context(), acc), event, map[string]any{
		"email": acc.Email,
		"role":  string(acc.Role),
	})
	writeJSON(w, code, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		UserID:      acc.ID,
		Role:        acc.Role,
	})
}

func (a *API) login(w http.ResponseWriter, r *http.Request, role auth.Role) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := a.auth.Login(r.Context(), req.Email, req.Password, role)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	a.writeSession(w, r, sess, "auth.login")
}

func (a *API) loginAny(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := a.auth.LoginAny(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	a.writeSession(w, r, sess, "auth.login")
}

func (a *API) writeSession(w http.ResponseWriter, r *http.Request, sess auth.Session, event string) {
	a.audit(auth.ContextWithAccount(r.Context(), sess.Account), event, map[string]any{
		"role": string(sess.Account.Role),
	})
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: sess.Token,
		TokenType:   "bearer",
		UserID:      sess.Account.ID,
		Role:        sess.Account.Role,
	})
}

func (a *API) currentAccount(w http.ResponseWriter, r *http.Request) {
	acc, _, ok := a.requireAccount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    acc.ID,
		"email":      acc.Email,
		"role":       acc.Role,
		"is_active":  acc.Active,
		"created_at": acc.CreatedAt,
	})
}

// logout is stateless: tokens are not tracked server-side, the client
// simply discards its copy. It succeeds for any caller, with or
// without a token, so clients can always clear their session.
func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if token, err := extractBearerToken(r.Header.Get(authHeader)); err == nil {
		if acc, err := a.auth.Resolve(ctx, token); err == nil {
			ctx = auth.ContextWithAccount(ctx, acc)
		}
	}
	a.audit(ctx, "auth.logout", nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Successfully logged out",
	})
}

// audit records a best-effort audit entry; logging failures never fail
// the request.
func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	_ = audit.LogEvent(ctx, event, fields)
}

func handleAccountError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, r, http.StatusUnauthorized, "Incorrect email or password")
	case errors.Is(err, auth.ErrAccountInactive):
		writeError(w, r, http.StatusBadRequest, "Account is inactive")
	case errors.Is(err, auth.ErrAmbiguousAccount):
		writeError(w, r, http.StatusBadRequest,
			"Multiple accounts found with this email. Please use /api/auth/donor/login or /api/auth/organizer/login")
	case errors.Is(err, auth.ErrDuplicateEmail):
		msg := "Email already registered"
		if i := strings.Index(err.Error(), " as "); i >= 0 {
			msg += err.Error()[i:]
		}
		writeError(w, r, http.StatusBadRequest, msg)
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, profile.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, profile.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
