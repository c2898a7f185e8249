package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sandboxd/sandboxd/internal/config"
	"github.com/sandboxd/sandboxd/internal/driver"
	"github.com/sandboxd/sandboxd/internal/kvstore"
	"github.com/sandboxd/sandboxd/internal/mcpserver"
	"github.com/sandboxd/sandboxd/internal/proxy"
	"github.com/sandboxd/sandboxd/internal/sandbox"
	"github.com/sandboxd/sandboxd/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sandbox pool, MCP tool surface, and credential proxy",
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func runServer() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	}()

	drv, err := driver.NewDocker()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize container driver")
	}

	healthCtx, healthCancel := context.WithTimeout(ctx, 5*time.Second)
	err = drv.Healthy(healthCtx)
	healthCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("container runtime health check failed")
	}

	pool := sandbox.New(drv, sandbox.Options{
		Image:          cfg.SandboxImage,
		Size:           cfg.PoolSize,
		MemoryBytes:    parseMemoryLimit(cfg.ContainerMemory),
		NanoCPUs:       int64(cfg.ContainerCPULimit * 1e9),
		DefaultTimeout: cfg.ExecTimeout,
		MaxOutputSize:  cfg.MaxOutputSize,
	})
	if err := pool.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start sandbox pool")
	}
	defer pool.Shutdown(context.Background())

	store, err := kvstore.NewRedisStore(ctx, kvstore.RedisOptions{
		Addr:     cfg.RedisHost + ":" + strconv.Itoa(cfg.RedisPort),
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to kv store")
	}
	defer store.Close()

	addr := cfg.MCPHost + ":" + strconv.Itoa(cfg.MCPPort)
	mcpURL := "http://" + addr + "/mcp"

	deps := tools.Deps{
		Pool:           pool,
		HTTPClient:     &http.Client{Timeout: cfg.ProxyUpstreamTimeout},
		GraphBaseURL:   "https://graph.microsoft.com/v1.0",
		GitHubBaseURL:  "https://api.github.com",
		GitHubToken:    cfg.GithubToken,
		RequestTimeout: cfg.ProxyUpstreamTimeout,
	}
	mcp := mcpserver.New(deps, cfg.APIKey, mcpURL)

	_, proxyHandler := proxy.New(proxy.Options{
		Store:           store,
		HTTPClient:      &http.Client{Timeout: cfg.ProxyUpstreamTimeout},
		GitHubToken:     cfg.GithubToken,
		UpstreamTimeout: cfg.ProxyUpstreamTimeout,
	})

	mux := http.NewServeMux()
	mux.Handle("/", mcp.Handler())
	mux.Handle("/graph/", proxyHandler)
	mux.Handle("/github/", proxyHandler)

	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("sandboxd listening")
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server forced to shut down")
		}
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}
}

// parseMemoryLimit converts a Docker-style memory string ("256m", "1g")
// into bytes. A string with no suffix is a plain byte count; an
// unrecognized suffix or an unparsable number yields 0.
func parseMemoryLimit(s string) int64 {
	if s == "" {
		return 0
	}
	s = strings.TrimSpace(s)
	unit := int64(1)
	numPart := s
	switch s[len(s)-1] {
	case 'k', 'K':
		unit = 1 << 10
		numPart = s[:len(s)-1]
	case 'm', 'M':
		unit = 1 << 20
		numPart = s[:len(s)-1]
	case 'g', 'G':
		unit = 1 << 30
		numPart = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0
	}
	return n * unit
}
