// Velux binding for Gray Logic.
//
// veluxbinding keeps a set of items bound to a Velux KLF-200 gateway fresh:
// a refresh timer polls each item at its own cadence, item commands are
// validated and forwarded to the gateway adapter over MQTT, and the bridge
// settings can be changed at runtime (MQTT, HTTP API or SIGHUP).
//
// Usage:
//
//	veluxbinding [run]              start the service (default)
//	veluxbinding validate           load and check the configuration
//	veluxbinding items [--import]   list (or import) bound items
//	veluxbinding token              mint an API access token
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
}

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand creates the root command. Without a subcommand it runs
// the service.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "veluxbinding",
		Short:         "Velux KLF-200 binding for Gray Logic",
		Long:          "Keeps items bound to a Velux KLF-200 gateway refreshed and forwards item commands to the gateway adapter over MQTT.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts.ConfigPath)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", getConfigPath(),
		"path to config.yaml (env GRAYLOGIC_CONFIG)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newValidateCommand(opts))
	cmd.AddCommand(newItemsCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))

	return cmd
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
