package domain

// AuthEvent identifies a transition on the remote auth state stream.
type AuthEvent string

const (
	// InitialSession fires once per subscription with whatever session the
	// client currently holds (possibly nil).
	InitialSession AuthEvent = "INITIAL_SESSION"
	SignedIn       AuthEvent = "SIGNED_IN"
	SignedOut      AuthEvent = "SIGNED_OUT"
	TokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	UserUpdated    AuthEvent = "USER_UPDATED"
)
