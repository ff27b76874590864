package shared

import "context"

const (
	// LanguageSessionKey stores the language picked by the user.
	LanguageSessionKey = "lang"
	// UpstreamSessionKey stores the backend session cookie obtained at login.
	UpstreamSessionKey = "upstream_session"
)

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
