package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-velux/internal/auth"
	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/config"
)

// tokenOptions holds flags for the token command.
type tokenOptions struct {
	Subject string
	Role    string
	TTL     time.Duration
}

// newTokenCommand creates the token command.
func newTokenCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API access token",
		Long: `Sign a bearer token for the HTTP API with security.jwt.secret.

Roles: user (read, commands, refresh), admin and owner (also change the
bridge configuration).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runToken(rootOpts, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Subject, "subject", "", "token subject, e.g. the client name (required)")
	cmd.Flags().StringVar(&opts.Role, "role", string(auth.RoleUser), "role: user, admin or owner")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", auth.DefaultTokenTTL, "token lifetime")
	//nolint:errcheck // flag is defined above
	cmd.MarkFlagRequired("subject")

	return cmd
}

func runToken(rootOpts *rootOptions, opts *tokenOptions, out io.Writer) error {
	cfg, err := config.Load(rootOpts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Security.JWT.Secret == "" {
		return fmt.Errorf("security.jwt.secret is not set")
	}

	token, err := auth.GenerateAccessToken(opts.Subject, auth.Role(opts.Role), cfg.Security.JWT.Secret, opts.TTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}
