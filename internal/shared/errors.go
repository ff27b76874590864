package shared

import "errors"

var (
	// ErrInvalidCredentials indicates the backend refused the login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when the session or the form carries no token.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when the submitted token does not verify.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
