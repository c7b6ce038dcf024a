package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Token is a short-lived bearer credential for the remote store.
type Token struct {
	Value     string
	ExpiresIn time.Duration
}

// TokenProvider supplies bearer credentials for remote calls.
type TokenProvider interface {
	Token(ctx context.Context) (Token, error)
}

// ClientCredentialsConfig carries OAuth2 client-credentials settings.
type ClientCredentialsConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
}

// ClientCredentialsProvider fetches tokens via the OAuth2 client-credentials
// grant on every call. Wrap it in a CachedTokenProvider to avoid a token
// round-trip per logical operation.
type ClientCredentialsProvider struct {
	cfg  ClientCredentialsConfig
	http *http.Client
}

// NewClientCredentialsProvider builds a provider against the given endpoint.
func NewClientCredentialsProvider(cfg ClientCredentialsConfig, httpClient *http.Client) *ClientCredentialsProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &ClientCredentialsProvider{cfg: cfg, http: httpClient}
}

// Token requests a fresh access token.
func (p *ClientCredentialsProvider) Token(ctx context.Context) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("scope", p.cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return Token{}, &RemoteError{Message: fmt.Sprintf("token request failed: %v", err)}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, &RemoteError{Message: fmt.Sprintf("read token response: %v", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return Token{}, &RemoteError{
			Message:    "token endpoint rejected request",
			StatusCode: resp.StatusCode,
			Details:    string(body),
		}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Token{}, fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return Token{}, &RemoteError{Message: "token response missing access_token"}
	}
	return Token{Value: payload.AccessToken, ExpiresIn: time.Duration(payload.ExpiresIn) * time.Second}, nil
}

const tokenCacheKey = "drive:access_token"

// tokenExpirySlack keeps cached tokens from expiring mid-operation.
const tokenExpirySlack = time.Minute

// CachedTokenProvider caches access tokens in Redis. Cache failures degrade
// to a direct fetch so the drive keeps working when Redis is down.
type CachedTokenProvider struct {
	inner  TokenProvider
	cache  *redis.Client
	logger *zap.Logger
}

// NewCachedTokenProvider decorates inner with a Redis-backed cache.
func NewCachedTokenProvider(inner TokenProvider, cache *redis.Client, logger *zap.Logger) *CachedTokenProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedTokenProvider{inner: inner, cache: cache, logger: logger}
}

// Token returns a cached token when present, otherwise fetches and caches.
func (p *CachedTokenProvider) Token(ctx context.Context) (Token, error) {
	if p.cache != nil {
		cached, err := p.cache.Get(ctx, tokenCacheKey).Result()
		if err == nil && cached != "" {
			return Token{Value: cached}, nil
		}
		if err != nil && err != redis.Nil {
			p.logger.Warn("token cache lookup failed", zap.Error(err))
		}
	}

	token, err := p.inner.Token(ctx)
	if err != nil {
		return Token{}, err
	}

	ttl := token.ExpiresIn - tokenExpirySlack
	if p.cache != nil && ttl > 0 {
		if err := p.cache.Set(ctx, tokenCacheKey, token.Value, ttl).Err(); err != nil {
			p.logger.Warn("token cache write failed", zap.Error(err))
		}
	}
	return token, nil
}
