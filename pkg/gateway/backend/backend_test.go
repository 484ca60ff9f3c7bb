package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-go/vai-copilot/pkg/core"
	"github.com/vango-go/vai-copilot/pkg/core/live"
)

func newTestProvider(url string, retries int) *HTTPTokenProvider {
	p := NewHTTPTokenProvider(url, 2*time.Second, retries, nil)
	p.InitialInterval = time.Millisecond
	return p
}

func TestHTTPTokenProvider_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, SessionPath, r.URL.Path)
		assert.Equal(t, "Bearer acct-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "ephemeral", "sessionId": "s-1"})
	}))
	defer srv.Close()

	sess, err := newTestProvider(srv.URL+"/", 0).FetchBackendSession(context.Background(), live.Credentials{AccessToken: "acct-token"})
	require.NoError(t, err)
	assert.Equal(t, live.BackendSession{Token: "ephemeral", SessionID: "s-1"}, sess)
}

func TestHTTPTokenProvider_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		switch n {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "t", "sessionId": "s"})
		}
	}))
	defer srv.Close()

	sess, err := newTestProvider(srv.URL, 3).FetchBackendSession(context.Background(), live.Credentials{AccessToken: "a"})
	require.NoError(t, err)
	assert.Equal(t, "t", sess.Token)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPTokenProvider_UnauthorizedIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL, 5).FetchBackendSession(context.Background(), live.Credentials{AccessToken: "a"})
	require.Error(t, err)
	assert.True(t, core.IsType(err, core.ErrAuthentication))
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPTokenProvider_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL, 2).FetchBackendSession(context.Background(), live.Credentials{AccessToken: "a"})
	require.Error(t, err)
	assert.True(t, core.IsType(err, core.ErrAuthentication))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPTokenProvider_EmptyTokenInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sessionId":"s"}`))
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL, 3).FetchBackendSession(context.Background(), live.Credentials{AccessToken: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no token")
}

func TestHTTPTokenProvider_RequiresAccessToken(t *testing.T) {
	_, err := newTestProvider("http://127.0.0.1:1", 0).FetchBackendSession(context.Background(), live.Credentials{APIKey: "k"})
	require.Error(t, err)
	assert.True(t, core.IsType(err, core.ErrAuthentication))
}

func TestStaticTokenProvider(t *testing.T) {
	sess, err := NewStaticTokenProvider().FetchBackendSession(context.Background(), live.Credentials{APIKey: " key "})
	require.NoError(t, err)
	assert.Equal(t, "key", sess.Token)

	_, err = NewStaticTokenProvider().FetchBackendSession(context.Background(), live.Credentials{})
	assert.True(t, core.IsType(err, core.ErrAuthentication))
}

func TestFromConfig(t *testing.T) {
	assert.IsType(t, StaticTokenProvider{}, FromConfig("", time.Second, 1, nil))
	assert.IsType(t, &HTTPTokenProvider{}, FromConfig("https://api.example.com", time.Second, 1, nil))
}
