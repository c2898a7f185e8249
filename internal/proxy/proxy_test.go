package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a trivial in-memory kvstore.Store for tests.
type memStore struct {
	tokens map[string]string
}

func newMemStore() *memStore { return &memStore{tokens: make(map[string]string)} }

func (m *memStore) Get(ctx context.Context, id string) (string, bool, error) {
	v, ok := m.tokens[id]
	return v, ok, nil
}
func (m *memStore) Put(ctx context.Context, id, token string, ttl time.Duration) error {
	m.tokens[id] = token
	return nil
}
func (m *memStore) Close() error { return nil }

func TestGraphProxyMissingProxyIDReturns401(t *testing.T) {
	store := newMemStore()
	_, handler := New(Options{Store: store})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/graph/me", nil)
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, unknownRequestBody, rec.Body.String())
}

func TestGraphProxyUnknownProxyIDReturns401(t *testing.T) {
	store := newMemStore()
	_, handler := New(Options{Store: store})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/graph/me", nil)
	req.Header.Set("X-Proxy-ID", "nonexistent")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, invalidProxyIDBody, rec.Body.String())
}

func TestGraphProxyForwardsWithBoundToken(t *testing.T) {
	var gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	store := newMemStore()
	require.NoError(t, store.Put(context.Background(), "proxy-123", "real-token", time.Minute))

	_, handler := New(Options{Store: store, HTTPClient: upstream.Client(), GraphBaseURL: upstream.URL})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/graph/me", nil)
	req.Header.Set("X-Proxy-ID", "proxy-123")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bearer real-token", gotAuth)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestGitHubProxyWithoutTokenOmitsAuthorization(t *testing.T) {
	var gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	_, handler := New(Options{Store: newMemStore(), HTTPClient: upstream.Client(), GitHubBaseURL: upstream.URL})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/github/user", nil)
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, gotAuth)
}

func TestGitHubProxyWithTokenSetsAuthorization(t *testing.T) {
	var gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	_, handler := New(Options{Store: newMemStore(), HTTPClient: upstream.Client(), GitHubToken: "ghp_test", GitHubBaseURL: upstream.URL})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/github/user", nil)
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "token ghp_test", gotAuth)
}
