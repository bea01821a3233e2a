package vald

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expiryMargin is subtracted from the token lifetime so a token is never
// used right at its expiry boundary mid-batch.
const expiryMargin = 60 * time.Second

const defaultTokenLifetime = 2 * time.Hour

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenSource issues OAuth2 client-credentials tokens for the VALD API and
// caches them in-process until shortly before expiry.
type TokenSource struct {
	authURL      string
	clientID     string
	clientSecret string
	doer         HTTPDoer

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	now func() time.Time
}

// NewTokenSource returns a token source for the given credentials.
func NewTokenSource(authURL, clientID, clientSecret string, doer HTTPDoer) *TokenSource {
	return &TokenSource{
		authURL:      authURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		doer:         doer,
		now:          time.Now,
	}
}

// Token returns a valid access token, refreshing when the cached one is
// missing or within the expiry margin.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && t.now().Before(t.expiresAt) {
		return t.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {t.clientID},
		"client_secret": {t.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.doer.Do(req)
	if err != nil {
		return "", fmt.Errorf("vald: token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("vald: token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vald: auth failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("vald: decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("vald: auth response carried no access token")
	}

	t.token = tr.AccessToken
	t.expiresAt = t.expiry(tr)
	return t.token, nil
}

// expiry prefers the exp claim inside the token itself over the advertised
// expires_in, since the claim is what the API will actually enforce.
func (t *TokenSource) expiry(tr tokenResponse) time.Time {
	if exp, ok := jwtExpiry(tr.AccessToken); ok {
		return exp.Add(-expiryMargin)
	}
	lifetime := defaultTokenLifetime
	if tr.ExpiresIn > 0 {
		lifetime = time.Duration(tr.ExpiresIn) * time.Second
	}
	return t.now().Add(lifetime - expiryMargin)
}

func jwtExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
