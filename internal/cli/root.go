// Package cli implements the sandboxd command-line entry points: the
// server itself (serve) and thin clients against a running server: the
// MCP tool surface (exec, fs), the /tools listing (list), and the
// /mcp/session websocket (repl).
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	jsonLog bool
	apiBase string
)

// RootCmd is the base command when sandboxd is called without a subcommand.
var RootCmd = &cobra.Command{
	Use:   "sandboxd",
	Short: "Sandboxed code execution service for LLM agents",
	Long: `sandboxd runs untrusted, LLM-generated code in pooled, pre-warmed
Docker containers and exposes it as an MCP tool surface, alongside
authenticated proxy access to Microsoft Graph and GitHub.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

		if !jsonLog {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		}

		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	},
}

// Execute runs the root command, exiting the process on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	RootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "Output logs in JSON format")
	RootCmd.PersistentFlags().StringVar(&apiBase, "server", envOr("SANDBOXD_SERVER", "http://localhost:8000"), "Base URL of a running sandboxd server")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
