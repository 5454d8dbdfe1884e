package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidToken        = errors.New("invalid identity token")
	ErrUnauthorizedDomain  = errors.New("token was issued for another client")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Claims is the part of a verified identity the service uses
type Claims struct {
	Subject  string
	Email    string
	Name     string
	Picture  string
	Audience string
}

// Verifier checks an identity-provider ID token
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Claims, error)
}

// TokenInfoVerifier validates ID tokens against the provider's tokeninfo endpoint
type TokenInfoVerifier struct {
	client   *http.Client
	endpoint string
	clientID string
}

type tokenInfo struct {
	Audience string `json:"aud"`
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Picture  string `json:"picture"`
	Error    string `json:"error_description"`
}

// NewTokenInfoVerifier creates a verifier. Requests are retried up to retryMax
// times on connection errors and 5xx responses.
func NewTokenInfoVerifier(endpoint, clientID string, retryMax int, timeout time.Duration) *TokenInfoVerifier {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledZerolog{log.Logger})

	client := retryClient.StandardClient()
	client.Timeout = timeout

	return &TokenInfoVerifier{
		client:   client,
		endpoint: endpoint,
		clientID: clientID,
	}
}

// Verify validates idToken and returns its claims
func (v *TokenInfoVerifier) Verify(ctx context.Context, idToken string) (*Claims, error) {
	if idToken == "" {
		return nil, ErrInvalidToken
	}

	// The token stays out of the URL: retryablehttp logs it and transport errors embed it.
	form := url.Values{"id_token": {idToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build tokeninfo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("%w: failed to decode tokeninfo: %w", ErrProviderUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d %s", ErrInvalidToken, resp.StatusCode, info.Error)
	}

	if info.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if v.clientID != "" && info.Audience != v.clientID {
		return nil, ErrUnauthorizedDomain
	}

	return &Claims{
		Subject:  info.Subject,
		Email:    info.Email,
		Name:     info.Name,
		Picture:  info.Picture,
		Audience: info.Audience,
	}, nil
}

// leveledZerolog adapts zerolog to retryablehttp's LeveledLogger
type leveledZerolog struct {
	inner zerolog.Logger
}

func (l leveledZerolog) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledZerolog) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warn().Fields(keysAndValues).Msg(msg)
}

func (l leveledZerolog) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Info().Fields(keysAndValues).Msg(msg)
}

// retries are logged at debug by retryablehttp
func (l leveledZerolog) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debug().Fields(keysAndValues).Msg(msg)
}
