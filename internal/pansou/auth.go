package pansou

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	loginPath  = "/api/auth/login"
	verifyPath = "/api/auth/verify"

	authTimeout = 10 * time.Second
)

// CredentialManager owns the single process-wide bearer token for the
// search service. A token has no stored expiry; it is considered valid only
// while the remote verify endpoint says so, so every use goes through
// GetValidToken.
type CredentialManager struct {
	client   *resty.Client
	username string
	password string
	log      logrus.FieldLogger

	mu    sync.RWMutex
	token string
}

// NewCredentialManager derives the auth endpoints from the configured
// search URL (scheme and host kept, path replaced) and prepares a client
// for them.
func NewCredentialManager(searchURL, username, password string, logger logrus.FieldLogger) (*CredentialManager, error) {
	u, err := url.Parse(searchURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("search url %q must include scheme and host", searchURL)
	}

	cli := resty.New().
		SetBaseURL(u.Scheme + "://" + u.Host).
		SetTimeout(authTimeout)

	return &CredentialManager{
		client:   cli,
		username: username,
		password: password,
		log:      logger.WithField("component", "credentials"),
	}, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

func (m *CredentialManager) cachedToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *CredentialManager) storeToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// GetValidToken returns a token known to currently pass server-side
// verification, logging in if there is no cached token or the cached one no
// longer verifies. Concurrent callers may each trigger a login; the extra
// round trip is harmless because storeToken is atomic and every issued
// token has been verified.
func (m *CredentialManager) GetValidToken(ctx context.Context) (string, error) {
	token := m.cachedToken()
	if token == "" {
		m.log.Debug("No cached token, logging in")
		return m.Login(ctx)
	}

	if m.Verify(ctx, token) {
		return token, nil
	}

	m.log.Info("Cached token no longer valid, logging in again")
	return m.Login(ctx)
}

// Login posts the configured credentials, re-verifies the freshly issued
// token before caching it, and returns it. Some servers issue tokens their
// own verify endpoint rejects; those are treated as login failures.
func (m *CredentialManager) Login(ctx context.Context) (string, error) {
	var body loginResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(loginRequest{Username: m.username, Password: m.password}).
		SetResult(&body).
		Post(loginPath)
	if err != nil {
		m.log.WithError(err).Error("Login request failed")
		return "", &AuthError{Reason: "login request", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		m.log.WithField("status", resp.StatusCode()).Error("Login rejected")
		return "", &AuthError{Reason: fmt.Sprintf("login returned status %d", resp.StatusCode())}
	}
	if body.Token == "" {
		m.log.Error("Login response carried no token field")
		return "", &AuthError{Reason: "login response missing token"}
	}

	if !m.Verify(ctx, body.Token) {
		m.log.Error("Freshly issued token failed verification")
		return "", &AuthError{Reason: "issued token failed verification"}
	}

	m.storeToken(body.Token)
	m.log.Info("Token obtained and verified")
	return body.Token, nil
}

// Verify probes the verify endpoint for a token. It is a pure boolean
// check; transport and parse failures count as not valid.
func (m *CredentialManager) Verify(ctx context.Context, token string) bool {
	var body verifyResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetResult(&body).
		Post(verifyPath)
	if err != nil {
		m.log.WithError(err).Warn("Token verification request failed")
		return false
	}
	if resp.StatusCode() != http.StatusOK {
		m.log.WithField("status", resp.StatusCode()).Warn("Token verification rejected")
		return false
	}
	return body.Valid
}
