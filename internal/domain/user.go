package domain

import (
	"strings"
	"time"
)

// AuthIdentity is the authenticated principal as known to the remote auth
// service. It is immutable for the lifetime of a session.
type AuthIdentity struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"user_metadata,omitempty"`
}

// Session is the credential bundle issued by the remote service. The client
// caches it for UI purposes only; the remote service stays the source of
// truth.
type Session struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *AuthIdentity `json:"user"`
}

// Identity returns the session's identity, or nil for a nil session.
func (s *Session) Identity() *AuthIdentity {
	if s == nil {
		return nil
	}
	return s.User
}

// Profile is the application-defined user row, separate from the auth
// identity. It may be absent even when a session exists (not yet
// provisioned, or the fetch failed).
type Profile struct {
	ID                        string     `json:"id"`
	Username                  string     `json:"username"`
	Mobile                    *string    `json:"mobile"`
	Timezone                  *string    `json:"timezone"`
	CurrentStreak             int        `json:"current_streak"`
	LastStreakUpdated         *time.Time `json:"last_streak_updated"`
	EmailNotificationsEnabled bool       `json:"email_notifications_enabled"`
	UpdatedAt                 time.Time  `json:"updated_at"`
}

// ProfileUpdate carries the mutable profile fields for a partial update.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Username                  *string `json:"username,omitempty"`
	Mobile                    *string `json:"mobile,omitempty"`
	Timezone                  *string `json:"timezone,omitempty"`
	CurrentStreak             *int    `json:"current_streak,omitempty"`
	LastStreakUpdated         *string `json:"last_streak_updated,omitempty"`
	EmailNotificationsEnabled *bool   `json:"email_notifications_enabled,omitempty"`
}

// DisplayUser is the merged, UI-facing view of identity + profile.
type DisplayUser struct {
	ID                        string     `json:"id"`
	Email                     string     `json:"email"`
	Username                  string     `json:"username"`
	Mobile                    *string    `json:"mobile"`
	Timezone                  *string    `json:"timezone"`
	CurrentStreak             int        `json:"current_streak"`
	LastStreakUpdated         *time.Time `json:"last_streak_updated"`
	EmailNotificationsEnabled bool       `json:"email_notifications_enabled"`
}

// MergeProfile builds a DisplayUser from an identity and its profile row.
// Profile values win on overlapping fields.
func MergeProfile(identity *AuthIdentity, profile *Profile) *DisplayUser {
	if identity == nil {
		return nil
	}
	if profile == nil {
		return FallbackUser(identity)
	}
	username := profile.Username
	if username == "" {
		username = defaultUsername(identity.Email)
	}
	return &DisplayUser{
		ID:                        identity.ID,
		Email:                     identity.Email,
		Username:                  username,
		Mobile:                    profile.Mobile,
		Timezone:                  profile.Timezone,
		CurrentStreak:             profile.CurrentStreak,
		LastStreakUpdated:         profile.LastStreakUpdated,
		EmailNotificationsEnabled: profile.EmailNotificationsEnabled,
	}
}

// FallbackUser builds a DisplayUser from the identity alone, with the
// documented defaults. Used whenever the profile row is absent or
// unreadable, so a valid session never renders as "no user".
func FallbackUser(identity *AuthIdentity) *DisplayUser {
	if identity == nil {
		return nil
	}
	return &DisplayUser{
		ID:                        identity.ID,
		Email:                     identity.Email,
		Username:                  defaultUsername(identity.Email),
		CurrentStreak:             0,
		EmailNotificationsEnabled: true,
	}
}

func defaultUsername(email string) string {
	if local, _, found := strings.Cut(email, "@"); found && local != "" {
		return local
	}
	return "New User"
}
