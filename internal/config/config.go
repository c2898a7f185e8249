// Package config loads the service's environment-driven settings.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every environment-tunable knob for the sandbox service.
type Config struct {
	SandboxImage        string
	PoolSize            int
	ExecTimeout         time.Duration
	MaxOutputSize       int
	MCPHost             string
	MCPPort             int
	ContainerMemory     string
	ContainerCPULimit   float64

	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisUsername string
	RedisPassword string

	GithubToken        string
	ProxyUpstreamTimeout time.Duration

	APIKey string
}

// Load reads Config from the process environment, applying the same
// defaults as the system this service replaces.
func Load() Config {
	return Config{
		SandboxImage:      getEnv("SANDBOX_IMAGE", "python:3.12-slim"),
		PoolSize:          getEnvInt("POOL_SIZE", 2),
		ExecTimeout:       time.Duration(getEnvInt("EXEC_TIMEOUT", 30)) * time.Second,
		MaxOutputSize:     getEnvInt("MAX_OUTPUT_SIZE", 50000),
		MCPHost:           getEnv("MCP_HOST", "0.0.0.0"),
		MCPPort:           getEnvInt("MCP_PORT", 8000),
		ContainerMemory:   getEnv("CONTAINER_MEMORY_LIMIT", "256m"),
		ContainerCPULimit: getEnvFloat("CONTAINER_CPU_LIMIT", 1.0),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		GithubToken:          getEnv("GITHUB_TOKEN", ""),
		ProxyUpstreamTimeout: time.Duration(getEnvInt("PROXY_UPSTREAM_TIMEOUT", 30)) * time.Second,

		APIKey: getEnv("SANDBOXD_API_KEY", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
