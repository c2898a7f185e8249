// Package integration exercises the sandbox pool and MCP tool surface
// end-to-end against a real Docker daemon. Tests no-op (without failing)
// when Docker is unreachable, matching local/CI environments without a
// container runtime available.
package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sandboxd/sandboxd/internal/driver"
	"github.com/sandboxd/sandboxd/internal/mcpserver"
	"github.com/sandboxd/sandboxd/internal/sandbox"
	"github.com/sandboxd/sandboxd/internal/tools"
)

var testServer *httptest.Server

func TestMain(m *testing.M) {
	drv, err := driver.NewDocker()
	if err != nil {
		fmt.Printf("docker unavailable, skipping integration tests: %v\n", err)
		os.Exit(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = drv.Healthy(ctx)
	cancel()
	if err != nil {
		fmt.Printf("docker unreachable, skipping integration tests: %v\n", err)
		os.Exit(0)
	}

	pool := sandbox.New(drv, sandbox.Options{
		Image:          "python:3.11-slim",
		Size:           1,
		MemoryBytes:    256 << 20,
		NanoCPUs:       1e9,
		DefaultTimeout: 15 * time.Second,
		MaxOutputSize:  1 << 20,
	})

	startCtx, startCancel := context.WithTimeout(context.Background(), 60*time.Second)
	err = pool.Start(startCtx)
	startCancel()
	if err != nil {
		fmt.Printf("failed to start sandbox pool: %v\n", err)
		os.Exit(1)
	}

	mcp := mcpserver.New(tools.Deps{
		Pool:           pool,
		HTTPClient:     http.DefaultClient,
		GraphBaseURL:   "https://graph.microsoft.com/v1.0",
		GitHubBaseURL:  "https://api.github.com",
		RequestTimeout: 15 * time.Second,
	}, "", "http://test/mcp")

	testServer = httptest.NewServer(mcp.Handler())

	code := m.Run()

	testServer.Close()
	pool.Shutdown(context.Background())
	drv.Close()
	os.Exit(code)
}
