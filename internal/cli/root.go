// Package cli provides the command-line interface for memproxy.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	configPath string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "memproxy",
	Short: "Stateful conversational-memory proxy for OpenAI-compatible backends",
	Long: `memproxy sits in front of an OpenAI-compatible chat completion backend and
gives stateless clients a conversation memory.

Each chat turn is stored per session; the backend receives the most recent
messages of the session as context. Sessions older than the retention age are
deleted on a schedule.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $MEMPROXY_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
