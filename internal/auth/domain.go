package auth

import "time"

// Credentials is the login form submitted by the user.
type Credentials struct {
	Username string `validate:"required,max=255"`
	Password string `validate:"required"`
}

// Principal is the upstream identity bound to a session after login.
type Principal struct {
	UserID   string
	Username string
	Cookie   string
	Language string
	LoggedAt time.Time
}
