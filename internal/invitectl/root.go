// Package invitectl implements the operator CLI for the invite service.
package invitectl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/propinvite/pkg/invitesdk"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the service refused the request
	ExitCommandError = 2 // bad flags, arguments or local setup
)

var ValidFormats = []string{"text", "json"}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server  string
	Token   string
	Format  string
	Timeout time.Duration
}

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode extracts the exit code from an error returned by Execute.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "invitectl",
		Short: "Operate the property invite service",
		Long: `invitectl talks to a running invite service.

It issues and revokes invites, steers the staged rollout of the new invite
flow and mints development access tokens.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Server, "server", "s", envOr("INVITECTL_SERVER", "http://localhost:8080"), "invite service base URL (env INVITECTL_SERVER)")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("INVITECTL_TOKEN"), "bearer access token (env INVITECTL_TOKEN)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")

	cmd.AddCommand(NewRolloutCommand(opts))
	cmd.AddCommand(NewInviteCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

func (o *RootOptions) client() *invitesdk.Client {
	c := invitesdk.NewClient(o.Server)
	c.HTTPClient.Timeout = o.Timeout
	if o.Token != "" {
		c = c.WithToken(o.Token)
	}
	return c
}

func (o *RootOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.Timeout)
}

func (o *RootOptions) printer(cmd *cobra.Command) *Printer {
	return &Printer{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// apiError marks a service failure so main exits with ExitFailure.
func apiError(action string, err error) error {
	var sdkErr *invitesdk.Error
	if errors.As(err, &sdkErr) {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("%s: %w", action, err)}
	}
	return &ExitError{Code: ExitCommandError, Err: fmt.Errorf("%s: %w", action, err)}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
