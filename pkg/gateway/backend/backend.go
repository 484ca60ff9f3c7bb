// Package backend issues upstream credentials for live sessions.
//
// In managed mode the desktop client trades its account access token for a
// short-lived upstream token at the backend. In direct mode the configured API
// key is used as-is.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vango-go/vai-copilot/pkg/core"
	"github.com/vango-go/vai-copilot/pkg/core/live"
)

// SessionPath is the backend route that issues live session tokens.
const SessionPath = "/v1/live/session"

const maxErrorBody = 4 << 10

// HTTPTokenProvider fetches session tokens from the backend.
type HTTPTokenProvider struct {
	BaseURL    string
	HTTPClient *http.Client
	// MaxRetries bounds retries after the first attempt.
	MaxRetries int
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
	Logger          *slog.Logger
}

// NewHTTPTokenProvider builds a provider for baseURL.
func NewHTTPTokenProvider(baseURL string, timeout time.Duration, maxRetries int, logger *slog.Logger) *HTTPTokenProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPTokenProvider{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		HTTPClient:      &http.Client{Timeout: timeout},
		MaxRetries:      maxRetries,
		InitialInterval: 250 * time.Millisecond,
		Logger:          logger,
	}
}

type sessionRequest struct {
	Client string `json:"client"`
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("backend returned %d", e.status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.status, e.body)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// FetchBackendSession implements live.TokenProvider. Network failures, 429 and
// 5xx responses are retried with exponential backoff; every other failure is
// returned as an authentication error.
func (p *HTTPTokenProvider) FetchBackendSession(ctx context.Context, creds live.Credentials) (live.BackendSession, error) {
	if strings.TrimSpace(creds.AccessToken) == "" {
		return live.BackendSession{}, core.NewAuthenticationError("access token is required", nil)
	}

	policy := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		policy.InitialInterval = p.InitialInterval
	}
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx)

	var out live.BackendSession
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		sess, err := p.fetchOnce(ctx, creds)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && !retryable(se.status) {
				return backoff.Permanent(err)
			}
			p.Logger.Warn("backend session fetch failed", "attempt", attempt, "err", err)
			return err
		}
		out = sess
		return nil
	}, b)
	if err != nil {
		return live.BackendSession{}, core.NewAuthenticationError(err.Error(), err)
	}
	return out, nil
}

func (p *HTTPTokenProvider) fetchOnce(ctx context.Context, creds live.Credentials) (live.BackendSession, error) {
	body, err := json.Marshal(sessionRequest{Client: "vai-copilot"})
	if err != nil {
		return live.BackendSession{}, backoff.Permanent(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+SessionPath, bytes.NewReader(body))
	if err != nil {
		return live.BackendSession{}, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return live.BackendSession{}, fmt.Errorf("request backend session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return live.BackendSession{}, &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(raw))}
	}

	var sess live.BackendSession
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return live.BackendSession{}, backoff.Permanent(fmt.Errorf("decode backend session: %w", err))
	}
	if sess.Token == "" {
		return live.BackendSession{}, backoff.Permanent(errors.New("backend session has no token"))
	}
	return sess, nil
}

// StaticTokenProvider uses Credentials.APIKey as the upstream token.
type StaticTokenProvider struct{}

func NewStaticTokenProvider() StaticTokenProvider { return StaticTokenProvider{} }

func (StaticTokenProvider) FetchBackendSession(_ context.Context, creds live.Credentials) (live.BackendSession, error) {
	key := strings.TrimSpace(creds.APIKey)
	if key == "" {
		return live.BackendSession{}, core.NewAuthenticationError("api key is required", nil)
	}
	return live.BackendSession{Token: key}, nil
}

// FromConfig picks the HTTP provider when baseURL is set, the static one
// otherwise.
func FromConfig(baseURL string, timeout time.Duration, maxRetries int, logger *slog.Logger) live.TokenProvider {
	if strings.TrimSpace(baseURL) == "" {
		return NewStaticTokenProvider()
	}
	return NewHTTPTokenProvider(baseURL, timeout, maxRetries, logger)
}
