package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/doease/doease/internal/domain"
	"go.uber.org/zap"
)

// GetProfile fetches the profile row keyed by the auth identity id. A
// missing row is reported as ErrNotFound so callers can fall back to
// defaults instead of treating it as an outage.
func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	path := "/rest/v1/profiles?id=eq." + url.QueryEscape(userID) + "&select=*"
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.pgrst.object+json")

	var profile domain.Profile
	if err := c.do(req, &profile); err != nil {
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}
	return &profile, nil
}

// UpdateProfile applies a partial update to the caller's profile row and
// returns the updated row. The session is refreshed afterwards so identity
// metadata downstream of the profile stays current; a refresh failure is
// logged, not surfaced, since the write already succeeded.
func (c *Client) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	type profilePatch struct {
		domain.ProfileUpdate
		UpdatedAt string `json:"updated_at"`
	}

	path := "/rest/v1/profiles?id=eq." + url.QueryEscape(userID) + "&select=*"
	req, err := c.newRequest(ctx, http.MethodPatch, path, profilePatch{
		ProfileUpdate: update,
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	req.Header.Set("Prefer", "return=representation")

	var profile domain.Profile
	if err := c.do(req, &profile); err != nil {
		return nil, fmt.Errorf("profile update failed: %w", err)
	}

	if _, err := c.refreshSession(ctx); err != nil && err != ErrNoSession {
		c.logger.Warn("session refresh after profile update failed", zap.Error(err))
	}

	return &profile, nil
}
