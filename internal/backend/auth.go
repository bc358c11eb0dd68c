package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/doease/doease/internal/domain"
	"go.uber.org/zap"
)

type signUpRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

type passwordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshGrantRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SignUp creates an account. Username, mobile and timezone ride along as
// identity metadata; the remote provisioning trigger materializes the
// profile row from them.
func (c *Client) SignUp(ctx context.Context, params SignUpParams) (*domain.Session, error) {
	data := map[string]any{
		"username": params.Username,
	}
	if params.Mobile != nil {
		data["mobile"] = *params.Mobile
	}
	if params.Timezone != nil {
		data["timezone"] = *params.Timezone
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/auth/v1/signup", signUpRequest{
		Email:    params.Email,
		Password: params.Password,
		Data:     data,
	})
	if err != nil {
		return nil, err
	}

	var session domain.Session
	if err := c.do(req, &session); err != nil {
		return nil, fmt.Errorf("sign-up failed: %w", err)
	}

	// Deployments requiring email confirmation return an identity without
	// tokens; only a real session is adopted.
	if session.AccessToken == "" {
		return nil, nil
	}

	c.adoptSession(&session)
	c.emit(domain.SignedIn, &session)
	return &session, nil
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", passwordGrantRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	var session domain.Session
	if err := c.do(req, &session); err != nil {
		return nil, fmt.Errorf("sign-in failed: %w", err)
	}

	c.adoptSession(&session)
	c.emit(domain.SignedIn, &session)
	return &session, nil
}

// SignOut revokes the session remotely and always clears the local copy,
// even when revocation fails; the SIGNED_OUT event fires either way.
func (c *Client) SignOut(ctx context.Context) error {
	session := c.currentSession()

	var revokeErr error
	if session != nil {
		req, err := c.newRequest(ctx, http.MethodPost, "/auth/v1/logout", nil)
		if err != nil {
			revokeErr = err
		} else if err := c.do(req, nil); err != nil {
			revokeErr = fmt.Errorf("sign-out request failed: %w", err)
		}
	}

	c.setSession(nil)
	c.emit(domain.SignedOut, nil)

	if revokeErr != nil {
		c.logger.Warn("remote sign-out failed, local session cleared anyway", zap.Error(revokeErr))
	}
	return revokeErr
}

// GetSession returns the held session, refreshing it first when it is at or
// past expiry. A nil session with nil error means signed-out.
func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	session := c.currentSession()
	if session == nil {
		return nil, nil
	}

	if time.Now().Unix() < session.ExpiresAt {
		return session, nil
	}

	if session.RefreshToken == "" {
		c.setSession(nil)
		return nil, nil
	}

	refreshed, err := c.refreshSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("session refresh failed: %w", err)
	}
	return refreshed, nil
}

// GetIdentity asks the remote service who the session belongs to.
func (c *Client) GetIdentity(ctx context.Context) (*domain.AuthIdentity, error) {
	if c.currentSession() == nil {
		return nil, nil
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}

	var identity domain.AuthIdentity
	if err := c.do(req, &identity); err != nil {
		return nil, fmt.Errorf("identity lookup failed: %w", err)
	}
	return &identity, nil
}

// refreshSession exchanges the refresh token for a new session.
func (c *Client) refreshSession(ctx context.Context) (*domain.Session, error) {
	session := c.currentSession()
	if session == nil || session.RefreshToken == "" {
		return nil, ErrNoSession
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", refreshGrantRequest{
		RefreshToken: session.RefreshToken,
	})
	if err != nil {
		return nil, err
	}

	var refreshed domain.Session
	if err := c.do(req, &refreshed); err != nil {
		return nil, err
	}

	c.adoptSession(&refreshed)
	return &refreshed, nil
}

// adoptSession fills derivable fields from the access token before storing
// the session. Some endpoints omit expires_at or the embedded identity.
func (c *Client) adoptSession(session *domain.Session) {
	claims, err := decodeAccessToken(session.AccessToken)
	if err != nil {
		c.logger.Warn("could not decode access token claims", zap.Error(err))
	} else {
		if session.ExpiresAt == 0 {
			session.ExpiresAt = claims.Exp
		}
		if session.User == nil {
			session.User = &domain.AuthIdentity{ID: claims.Subject, Email: claims.Email}
		}
	}
	if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Unix() + session.ExpiresIn
	}
	c.setSession(session)
}
