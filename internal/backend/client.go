// Package backend provides the persistence client for the hosted backend:
// email/password authentication plus CRUD over the portfolio and
// price_alerts collections, row-scoped to the signed-in user.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/manumarlats408/stocks/internal/errors"
	"github.com/manumarlats408/stocks/internal/models"
)

// Client talks to the backend's auth and REST endpoints. It is constructed
// explicitly and passed by reference from the composition root; there is no
// process-wide singleton.
type Client struct {
	baseURL     string
	anonKey     string
	client      *http.Client
	sessionPath string
	logger      zerolog.Logger

	mu        sync.RWMutex
	session   *session
	listeners []func(*models.User)
}

// session is the persisted auth state.
type session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time   `json:"expires_at"`
	User         models.User `json:"user"`
}

// New creates a new backend client. Missing or placeholder endpoint/key
// fails with a ConfigError, distinguished from per-operation failures so the
// CLI can show setup guidance instead of a transient error.
// Any previously saved session is loaded from disk.
func New(baseURL, anonKey, sessionPath string, logger zerolog.Logger) (*Client, error) {
	if baseURL == "" || baseURL == "your_supabase_url_here" {
		return nil, apperrors.NewConfigError("backend", "backend URL is not configured; set SUPABASE_URL")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, apperrors.NewConfigError("backend", "backend URL is not a valid URL")
	}
	if anonKey == "" || anonKey == "your_supabase_anon_key_here" {
		return nil, apperrors.NewConfigError("backend", "backend anon key is not configured; set SUPABASE_ANON_KEY")
	}

	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		anonKey:     anonKey,
		client:      &http.Client{Timeout: 30 * time.Second},
		sessionPath: sessionPath,
		logger:      logger,
	}
	_ = c.loadSession()
	return c, nil
}

// OnAuthChange registers a callback invoked after every sign-in (with the
// new user) and sign-out (with nil). Callers use it to reload user-scoped
// data so state from a previous session never leaks into the next.
func (c *Client) OnAuthChange(fn func(*models.User)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Client) notifyAuthChange(user *models.User) {
	c.mu.RLock()
	listeners := make([]func(*models.User), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn(user)
	}
}

// CurrentUser returns the signed-in user, or ErrNotAuthenticated.
func (c *Client) CurrentUser() (*models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil, apperrors.ErrNotAuthenticated
	}
	user := c.session.User
	return &user, nil
}

// IsAuthenticated reports whether a session is present.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil
}

// authResponse is the auth endpoint's token payload.
type authResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	User         models.User `json:"user"`
}

// SignIn authenticates with email and password and stores the session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	body, err := c.authPost(ctx, "/auth/v1/token?grant_type=password", email, password)
	if err != nil {
		return nil, err
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewPersistenceError("sign-in", "decoding auth response", err)
	}
	if resp.AccessToken == "" {
		return nil, apperrors.NewPersistenceError("sign-in", "auth response carried no access token", nil)
	}

	c.setSession(&session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		User:         resp.User,
	})
	c.logger.Info().Str("email", resp.User.Email).Msg("signed in")
	user := resp.User
	c.notifyAuthChange(&user)
	return &user, nil
}

// SignUp registers a new account. Depending on the project's email
// confirmation setting the response may or may not carry a session; when it
// does, the user is signed in immediately.
func (c *Client) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	body, err := c.authPost(ctx, "/auth/v1/signup", email, password)
	if err != nil {
		return nil, err
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewPersistenceError("sign-up", "decoding auth response", err)
	}

	if resp.AccessToken != "" {
		c.setSession(&session{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
			User:         resp.User,
		})
		user := resp.User
		c.notifyAuthChange(&user)
		return &user, nil
	}

	// No session: the project requires email confirmation first.
	var pending struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &pending); err == nil && pending.Email != "" {
		return &models.User{ID: pending.ID, Email: pending.Email}, nil
	}
	user := resp.User
	return &user, nil
}

// SignOut invalidates the session remotely and clears local state. Local
// state is cleared even when the remote call fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.RLock()
	sess := c.session
	c.mu.RUnlock()

	if sess != nil {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
		if err == nil {
			req.Header.Set("apikey", c.anonKey)
			req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
			if resp, err := c.client.Do(req); err != nil {
				c.logger.Warn().Err(err).Msg("remote sign-out failed, clearing local session anyway")
			} else {
				resp.Body.Close()
			}
		}
	}

	c.clearSession()
	c.logger.Info().Msg("signed out")
	c.notifyAuthChange(nil)
	return nil
}

func (c *Client) authPost(ctx context.Context, path, email, password string) ([]byte, error) {
	payload, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewPersistenceError("auth", "building request", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewPersistenceError("auth", "backend unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewPersistenceError("auth", "reading response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewPersistenceError("auth", errorMessage(body, resp.Status), nil)
	}
	return body, nil
}

func (c *Client) setSession(s *session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	if err := c.saveSession(s); err != nil {
		c.logger.Warn().Err(err).Msg("failed to persist session")
	}
}

func (c *Client) clearSession() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	if c.sessionPath != "" {
		_ = os.Remove(c.sessionPath)
	}
}

func (c *Client) saveSession(s *session) error {
	if c.sessionPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.sessionPath), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.sessionPath, data, 0600)
}

func (c *Client) loadSession() error {
	if c.sessionPath == "" {
		return nil
	}
	data, err := os.ReadFile(c.sessionPath)
	if err != nil {
		return err
	}
	var s session
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s.AccessToken == "" || (!s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)) {
		return apperrors.ErrSessionExpired
	}
	c.mu.Lock()
	c.session = &s
	c.mu.Unlock()
	return nil
}

// errorMessage extracts a human-readable message from a backend error
// payload, falling back to the HTTP status line.
func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, m := range []string{payload.Message, payload.Msg, payload.ErrorDescription, payload.Error} {
			if m != "" {
				return m
			}
		}
	}
	return fmt.Sprintf("unexpected status %s", fallback)
}
