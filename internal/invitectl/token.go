package invitectl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/propinvite/pkg/jwtx"
)

type mintedToken struct {
	AccessToken string    `json:"access_token"`
	Subject     string    `json:"subject"`
	Scopes      []string  `json:"scopes"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Development access tokens",
	}
	cmd.AddCommand(newTokenMintCommand(rootOpts))
	return cmd
}

func newTokenMintCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		subject    string
		email      string
		unverified bool
		scopes     []string
		ttl        time.Duration
		issuer     string
		secret     string
	)

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Sign an HS256 access token with the service secret",
		Long: `Mint an access token the invite service accepts, signed with the shared
HS256 secret. Intended for local development and smoke tests; production
tokens come from the auth backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return &ExitError{Code: ExitCommandError, Err: errors.New("a signing secret is required (--secret or INVITES_JWT_SECRET)")}
			}
			if subject == "" {
				return &ExitError{Code: ExitCommandError, Err: errors.New("--subject is required")}
			}
			if email == "" {
				email = subject + "@example.com"
			}

			signer, err := jwtx.NewHS256Signer([]byte(secret))
			if err != nil {
				return &ExitError{Code: ExitCommandError, Err: err}
			}
			now := time.Now()
			claims := jwtx.NewClaims(subject, issuer, email, !unverified, scopes, ttl, now)
			tok, err := signer.Sign(claims)
			if err != nil {
				return &ExitError{Code: ExitCommandError, Err: fmt.Errorf("sign token: %w", err)}
			}

			out := mintedToken{AccessToken: tok, Subject: subject, Scopes: scopes, ExpiresAt: now.Add(ttl).UTC()}
			return rootOpts.printer(cmd).Print(out, func(w io.Writer) { fmt.Fprintln(w, tok) })
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "account id (sub claim)")
	cmd.Flags().StringVar(&email, "email", "", "email claim (default <subject>@example.com)")
	cmd.Flags().BoolVar(&unverified, "unverified", false, "mark the email as unverified")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "scopes to grant, repeatable (e.g. invites:write,rollout:write)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().StringVar(&issuer, "issuer", os.Getenv("INVITES_JWT_ISSUER"), "iss claim (env INVITES_JWT_ISSUER)")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("INVITES_JWT_SECRET"), "HS256 signing secret (env INVITES_JWT_SECRET)")

	return cmd
}
