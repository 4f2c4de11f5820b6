// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"advisor-engine/internal/common/errors"
)

// Session is the outcome of resolving a bearer token. An unauthenticated
// session is a normal result and selects the local-only reply path.
type Session struct {
	Authenticated bool   `json:"authenticated"`
	Subject       string `json:"subject,omitempty"`
	Email         string `json:"email,omitempty"`
}

// Verifier resolves caller credentials into a Session.
type Verifier interface {
	Verify(ctx context.Context, bearer string) (Session, error)
}

// KeycloakClient checks tokens against the realm's userinfo endpoint.
type KeycloakClient struct {
	baseURL    string
	realm      string
	httpClient *http.Client
	cacheTTL   time.Duration

	mu    sync.Mutex
	cache map[string]cachedSession
}

type cachedSession struct {
	session Session
	expiry  time.Time
}

type userInfo struct {
	Sub               string `json:"sub"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
}

func NewKeycloakClient(baseURL, realm string, timeout time.Duration) *KeycloakClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KeycloakClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		realm:      realm,
		httpClient: &http.Client{Timeout: timeout},
		cacheTTL:   time.Minute,
		cache:      make(map[string]cachedSession),
	}
}

// Verify returns an authenticated session for a token Keycloak accepts.
// A rejected token yields an unauthenticated session and nil error; only
// transport or decoding problems return AUTH_CHECK_FAILED.
func (k *KeycloakClient) Verify(ctx context.Context, bearer string) (Session, error) {
	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(bearer), "Bearer "))
	if token == "" {
		return Session{}, nil
	}

	if s, ok := k.cached(token); ok {
		return s, nil
	}

	infoURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/userinfo", k.baseURL, k.realm)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, infoURL, nil)
	if err != nil {
		return Session{}, errors.NewAuthCheckFailedError(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return Session{}, errors.NewAuthCheckFailedError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Session{}, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Session{}, errors.NewAuthCheckFailedError(
			fmt.Errorf("userinfo returned status %d: %s", resp.StatusCode, string(body)))
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Session{}, errors.NewAuthCheckFailedError(fmt.Errorf("decode userinfo: %w", err))
	}
	if info.Sub == "" {
		return Session{}, nil
	}

	s := Session{Authenticated: true, Subject: info.Sub, Email: info.Email}
	k.store(token, s)
	return s, nil
}

func (k *KeycloakClient) cached(token string) (Session, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	c, ok := k.cache[token]
	if !ok {
		return Session{}, false
	}
	if time.Now().After(c.expiry) {
		delete(k.cache, token)
		return Session{}, false
	}
	return c.session, true
}

func (k *KeycloakClient) store(token string, s Session) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cache[token] = cachedSession{session: s, expiry: time.Now().Add(k.cacheTTL)}
}

// StaticVerifier treats any non-empty bearer as authenticated. Used when
// Keycloak is disabled so the remote path stays reachable in development.
type StaticVerifier struct{}

func (StaticVerifier) Verify(_ context.Context, bearer string) (Session, error) {
	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(bearer), "Bearer "))
	if token == "" {
		return Session{}, nil
	}
	return Session{Authenticated: true, Subject: "anonymous"}, nil
}
