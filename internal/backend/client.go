// Package backend implements the data-access facade over the hosted
// account/data service: credential auth, session retrieval and refresh, an
// auth-event stream, and row-level access to the profiles and tasks tables.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/doease/doease/internal/config"
	"github.com/doease/doease/internal/domain"
	"go.uber.org/zap"
)

// refreshMargin is how far before token expiry the automatic refresh runs.
const refreshMargin = 60 * time.Second

// Client is the concrete facade. It holds at most one session, persists it
// through the SessionStore, and fans auth-state transitions out to
// subscribers.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	logger  *zap.Logger
	store   SessionStore

	mu           sync.Mutex
	session      *domain.Session
	refreshTimer *time.Timer
	closed       bool

	subMu       sync.Mutex
	subscribers map[int]EventHandler
	nextSubID   int
}

var _ API = (*Client)(nil)

// New builds a Client from validated backend settings. The store may be nil,
// in which case sessions are held in memory only.
func New(cfg config.BackendConfig, store SessionStore, logger *zap.Logger) (*Client, error) {
	if cfgErr := cfg.Validate(); cfgErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, cfgErr.Reason)
	}
	if store == nil {
		store = NewMemorySessionStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.URL, "/"),
		anonKey:     cfg.AnonKey,
		http:        &http.Client{Timeout: cfg.RequestTimeout.Duration},
		logger:      logger,
		store:       store,
		subscribers: make(map[int]EventHandler),
	}

	restored, err := store.Load()
	if err != nil {
		logger.Warn("failed to restore persisted session", zap.Error(err))
	} else if restored != nil {
		c.session = restored
		c.scheduleRefreshLocked()
	}

	return c, nil
}

// Close stops the refresh timer and drops all subscribers. In-flight
// requests are left to their own contexts.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
	c.mu.Unlock()

	c.subMu.Lock()
	c.subscribers = make(map[int]EventHandler)
	c.subMu.Unlock()
}

// SubscribeAuthEvents registers handler and returns its disposer. The
// handler receives INITIAL_SESSION asynchronously with the session held at
// registration time.
func (c *Client) SubscribeAuthEvents(handler EventHandler) func() {
	c.subMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = handler
	c.subMu.Unlock()

	initial := c.currentSession()
	go handler(domain.InitialSession, initial)

	return func() {
		c.subMu.Lock()
		delete(c.subscribers, id)
		c.subMu.Unlock()
	}
}

// emit delivers an event to all current subscribers.
func (c *Client) emit(event domain.AuthEvent, session *domain.Session) {
	c.subMu.Lock()
	handlers := make([]EventHandler, 0, len(c.subscribers))
	for _, h := range c.subscribers {
		handlers = append(handlers, h)
	}
	c.subMu.Unlock()

	for _, h := range handlers {
		h(event, session)
	}
}

func (c *Client) currentSession() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// setSession swaps the held session, persists it, and reschedules the
// automatic refresh. Passing nil clears everything.
func (c *Client) setSession(session *domain.Session) {
	c.mu.Lock()
	c.session = session
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
	if session != nil {
		c.scheduleRefreshLocked()
	}
	c.mu.Unlock()

	if err := c.store.Save(session); err != nil {
		c.logger.Warn("failed to persist session", zap.Error(err))
	}
}

// scheduleRefreshLocked arms the refresh timer from the session's expiry.
// Caller holds c.mu.
func (c *Client) scheduleRefreshLocked() {
	if c.closed || c.session == nil || c.session.RefreshToken == "" {
		return
	}
	expiresAt := time.Unix(c.session.ExpiresAt, 0)
	wait := time.Until(expiresAt) - refreshMargin
	if wait < 0 {
		wait = 0
	}
	c.refreshTimer = time.AfterFunc(wait, c.autoRefresh)
}

func (c *Client) autoRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), c.http.Timeout)
	defer cancel()

	session, err := c.refreshSession(ctx)
	if err != nil {
		c.logger.Warn("automatic token refresh failed", zap.Error(err))
		return
	}
	c.emit(domain.TokenRefreshed, session)
}

// newRequest builds a request with the service api key and, when a session
// is held, its bearer token.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("apikey", c.anonKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token := c.anonKey
	if s := c.currentSession(); s != nil && s.AccessToken != "" {
		token = s.AccessToken
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return req, nil
}

// do executes req and decodes a 2xx response body into out when non-nil.
// Error responses are normalized to the sentinel errors where they carry a
// recognizable shape.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	apiErr := &apiError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(data, apiErr)

	switch {
	case apiErr.Code == pgrstNoRows:
		return ErrNotFound
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Error())
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Error())
	default:
		return apiErr
	}
}

// HealthCheck pings the remote auth service.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/v1/health", nil)
	if err != nil {
		return err
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("backend health check failed: %w", err)
	}
	return nil
}
