package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackUserDefaults(t *testing.T) {
	user := FallbackUser(&AuthIdentity{ID: "u1", Email: "jane@x.com"})
	require.NotNil(t, user)
	assert.Equal(t, "jane", user.Username)
	assert.Equal(t, 0, user.CurrentStreak)
	assert.True(t, user.EmailNotificationsEnabled)
	assert.Nil(t, user.Mobile)
	assert.Nil(t, user.Timezone)
}

func TestFallbackUserWithoutUsableEmail(t *testing.T) {
	user := FallbackUser(&AuthIdentity{ID: "u1", Email: "not-an-address"})
	require.NotNil(t, user)
	assert.Equal(t, "New User", user.Username)

	user = FallbackUser(&AuthIdentity{ID: "u1", Email: "@host.com"})
	assert.Equal(t, "New User", user.Username)
}

func TestFallbackUserNilIdentity(t *testing.T) {
	assert.Nil(t, FallbackUser(nil))
}

func TestMergeProfilePrefersProfileValues(t *testing.T) {
	tz := "Europe/Berlin"
	user := MergeProfile(
		&AuthIdentity{ID: "u1", Email: "alice@x.com"},
		&Profile{ID: "u1", Username: "Alice", Timezone: &tz, CurrentStreak: 5, EmailNotificationsEnabled: false},
	)
	require.NotNil(t, user)
	assert.Equal(t, "Alice", user.Username)
	assert.Equal(t, "alice@x.com", user.Email)
	assert.Equal(t, 5, user.CurrentStreak)
	assert.False(t, user.EmailNotificationsEnabled)
	require.NotNil(t, user.Timezone)
	assert.Equal(t, tz, *user.Timezone)
}

func TestMergeProfileEmptyUsernameFallsBack(t *testing.T) {
	user := MergeProfile(
		&AuthIdentity{ID: "u1", Email: "alice@x.com"},
		&Profile{ID: "u1"},
	)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
}

func TestMergeProfileNilProfile(t *testing.T) {
	user := MergeProfile(&AuthIdentity{ID: "u1", Email: "alice@x.com"}, nil)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.EmailNotificationsEnabled)
}

func TestSessionIdentityNilSafe(t *testing.T) {
	var s *Session
	assert.Nil(t, s.Identity())

	s = &Session{}
	assert.Nil(t, s.Identity())
}

func TestPriorityValid(t *testing.T) {
	assert.True(t, PriorityLow.Valid())
	assert.True(t, PriorityMedium.Valid())
	assert.True(t, PriorityHigh.Valid())
	assert.False(t, Priority("urgent").Valid())
	assert.False(t, Priority("").Valid())
}
