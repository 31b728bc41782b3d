package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-velux/internal/bridges/velux"
	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/config"
)

// newValidateCommand creates the validate command.
func newValidateCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration without starting the service",
		Long: `Load the configuration file, apply environment overrides and run every
check the service runs at startup, including parsing velux.settings the
way the binding does. Prints the resulting bridge configuration with the
password masked.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd.Context(), rootOpts.ConfigPath, cmd.OutOrStdout())
		},
	}
}

func runValidate(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// A throwaway binding with no items parses the settings exactly as
	// the service would.
	binding, err := velux.NewBinding(velux.Options{
		Handler: velux.BridgeHandlerFunc(func(context.Context, velux.Request) {}),
	})
	if err != nil {
		return err
	}
	applyErr := binding.Apply(ctx, cfg.Velux.Settings)

	fmt.Fprintf(out, "config:     %s\n", configPath)
	fmt.Fprintf(out, "site:       %s\n", cfg.Site.ID)
	fmt.Fprintf(out, "velux:      enabled=%t items_file=%s\n", cfg.Velux.Enabled, cfg.Velux.ItemsFile)
	fmt.Fprintf(out, "settings:   %s\n", binding.Configuration())

	if unknown := unknownKeys(cfg.Velux.Settings); len(unknown) > 0 {
		fmt.Fprintf(out, "ignored:    %v\n", unknown)
	}

	if applyErr != nil {
		var cfgErr *velux.ConfigError
		if errors.As(applyErr, &cfgErr) {
			return fmt.Errorf("velux.settings.%s: %w", cfgErr.Key, cfgErr)
		}
		return applyErr
	}

	fmt.Fprintln(out, "configuration OK")
	return nil
}

// unknownKeys lists settings keys the binding does not recognise.
func unknownKeys(settings map[string]string) []string {
	known := make(map[string]bool)
	for _, k := range velux.Keys() {
		known[k] = true
	}
	var out []string
	for k := range settings {
		if !known[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
