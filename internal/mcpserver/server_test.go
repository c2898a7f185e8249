package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandboxd/sandboxd/internal/driver"
	"github.com/sandboxd/sandboxd/internal/sandbox"
	"github.com/sandboxd/sandboxd/internal/tools"
)

// nullDriver answers every call successfully without touching a real
// container runtime, enough to exercise the HTTP surface wiring.
type nullDriver struct{}

func (nullDriver) ImageEnsure(ctx context.Context, ref string) error { return nil }
func (nullDriver) Create(ctx context.Context, spec driver.Spec) (*driver.Handle, error) {
	return &driver.Handle{ID: "c1", ShortID: "c1"}, nil
}
func (nullDriver) Exec(ctx context.Context, h *driver.Handle, argv []string, workdir string, timeout time.Duration) (driver.ExecResult, error) {
	return driver.ExecResult{ExitCode: 0}, nil
}
func (nullDriver) ArchiveGet(ctx context.Context, h *driver.Handle, path string) (io.ReadCloser, error) {
	return nil, driver.ErrNotFound
}
func (nullDriver) ArchivePut(ctx context.Context, h *driver.Handle, parentDir string, tarStream io.Reader) error {
	return nil
}
func (nullDriver) Remove(ctx context.Context, h *driver.Handle, force bool) error { return nil }
func (nullDriver) Healthy(ctx context.Context) error                             { return nil }
func (nullDriver) Close() error                                                  { return nil }

func testServer(t *testing.T) *Server {
	t.Helper()
	pool := sandbox.New(nullDriver{}, sandbox.Options{Image: "test:latest", Size: 1, DefaultTimeout: time.Second, MaxOutputSize: 1000})
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(func() { pool.Shutdown(context.Background()) })

	return New(tools.Deps{Pool: pool, HTTPClient: http.DefaultClient, GraphBaseURL: "https://graph.microsoft.com/v1.0", GitHubBaseURL: "https://api.github.com"}, "", "http://localhost:8000/mcp")
}

func TestAuthRejectsMissingBearerToken(t *testing.T) {
	pool := sandbox.New(nullDriver{}, sandbox.Options{Image: "test:latest", Size: 1, DefaultTimeout: time.Second, MaxOutputSize: 1000})
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(func() { pool.Shutdown(context.Background()) })

	s := New(tools.Deps{Pool: pool, HTTPClient: http.DefaultClient}, "secret-key", "http://localhost:8000/mcp")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpointReportsOK(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "http://localhost:8000/mcp", body["mcp_url"])
}

func TestToolsEndpointListsFullSurface(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Tools []struct {
			Name        string                 `json:"name"`
			Description string                 `json:"description"`
			InputSchema map[string]interface{} `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	found := make(map[string]bool)
	for _, tool := range body.Tools {
		found[tool.Name] = true
		if tool.Name == "execute_code" {
			assert.NotEmpty(t, tool.Description)
			assert.NotEmpty(t, tool.InputSchema)
		}
	}
	assert.True(t, found["execute_code"])
	assert.True(t, found["sandbox_read_file"])
}
