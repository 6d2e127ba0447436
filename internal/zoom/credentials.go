// Package zoom talks to the Zoom server-to-server OAuth and meetings APIs and
// signs Meeting SDK join tokens.
package zoom

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"liveacademy/internal/config"
	"liveacademy/internal/logging"
	"liveacademy/internal/metrics"
)

const (
	// A cached token is never handed out this close to its expiry
	tokenExpiryMargin = 5 * time.Second
	// Used when the token response omits expires_in
	defaultTokenLifetime = 3600 * time.Second
)

// TokenCache holds the process-wide OAuth access token
// TECHNICAL DISCOVERY: concurrent callers during a refresh share one request
// through singleflight instead of all hitting the token endpoint
type TokenCache struct {
	clientID     string
	clientSecret string
	accountID    string
	tokenURL     string
	client       *http.Client
	timeout      time.Duration

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time

	group singleflight.Group
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// NewTokenCache creates an empty cache for the configured account
func NewTokenCache(cfg *config.ZoomConfig, client *http.Client) *TokenCache {
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &TokenCache{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		accountID:    cfg.AccountID,
		tokenURL:     cfg.TokenURL,
		client:       client,
		timeout:      cfg.RequestTimeout,
		now:          time.Now,
	}
}

// SetClock replaces the time source
func (c *TokenCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// GetAccessToken returns the cached token or fetches a new one
func (c *TokenCache) GetAccessToken(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" || c.accountID == "" {
		metrics.ZoomTokenRefreshes.WithLabelValues("missing_config").Inc()
		return "", ErrMissingCredentials
	}

	if token, ok := c.cached(); ok {
		return token, nil
	}

	// the shared refresh outlives any single caller; a caller that gives up
	// only stops waiting
	ch := c.group.DoChan("token", func() (interface{}, error) {
		// another caller may have refreshed while we waited
		if token, ok := c.cached(); ok {
			return token, nil
		}
		refreshCtx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			refreshCtx, cancel = context.WithTimeout(refreshCtx, c.timeout)
			defer cancel()
		}
		return c.refresh(refreshCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.expiresAt.After(c.now().Add(tokenExpiryMargin)) {
		return c.token, true
	}
	return "", false
}

func (c *TokenCache) refresh(ctx context.Context) (string, error) {
	start := time.Now()
	defer metrics.ObserveZoomRequest("token", start)

	q := url.Values{}
	q.Set("grant_type", "account_credentials")
	q.Set("account_id", c.accountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ZoomTokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.ZoomTokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: reading response: %v", ErrTokenRequest, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ZoomTokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: status %d: %s", ErrTokenRequest, resp.StatusCode, providerMessage(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		metrics.ZoomTokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: decoding response: %v", ErrTokenRequest, err)
	}
	if tr.AccessToken == "" {
		metrics.ZoomTokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: response carried no access_token", ErrTokenRequest)
	}

	lifetime := defaultTokenLifetime
	if tr.ExpiresIn > 0 {
		lifetime = time.Duration(tr.ExpiresIn) * time.Second
	}

	c.mu.Lock()
	c.token = tr.AccessToken
	c.expiresAt = c.now().Add(lifetime)
	c.mu.Unlock()

	metrics.ZoomTokenRefreshes.WithLabelValues("success").Inc()
	logging.Info().Dur("expires_in", lifetime).Msg("obtained zoom oauth token")
	return tr.AccessToken, nil
}

// providerMessage extracts Zoom's {"code","message"} error text when present
func providerMessage(body []byte) string {
	var e struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Reason != "" {
			return e.Reason
		}
	}
	if len(body) > 256 {
		body = body[:256]
	}
	return string(body)
}
