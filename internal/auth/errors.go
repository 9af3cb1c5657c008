package auth

import "errors"

var (
	// ErrInvalidCredentials covers wrong email/password pairs at login. The
	// message deliberately does not say which half was wrong.
	ErrInvalidCredentials = errors.New("auth: incorrect email or password")

	// ErrDuplicateEmail is returned when a registration email already exists
	// under any role.
	ErrDuplicateEmail = errors.New("auth: email already registered")

	// ErrAmbiguousAccount is returned by the role-agnostic login path when
	// the same email exists under more than one role.
	ErrAmbiguousAccount = errors.New("auth: multiple accounts share this email")

	// ErrAccountInactive is returned when credentials check out but the
	// account has been deactivated.
	ErrAccountInactive = errors.New("auth: account is inactive")

	// ErrUnauthenticated is returned when a bearer token is missing, invalid,
	// expired, or refers to a deleted or inactive account.
	ErrUnauthenticated = errors.New("auth: unauthenticated")

	// ErrForbidden is returned when an authenticated account lacks the
	// required role or fails an ownership check.
	ErrForbidden = errors.New("auth: forbidden")

	ErrNotFound     = errors.New("auth: not found")
	ErrInvalidInput = errors.New("auth: invalid input")
)
