package invitectl

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/propinvite/pkg/invitesdk"
)

func NewInviteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Issue, list, revoke and preview invites",
	}

	cmd.AddCommand(newInviteIssueCommand(rootOpts))
	cmd.AddCommand(newInviteListCommand(rootOpts))
	cmd.AddCommand(newInviteRevokeCommand(rootOpts))
	cmd.AddCommand(newInviteValidateCommand(rootOpts))

	return cmd
}

func newInviteIssueCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		ttl     time.Duration
		maxUses int
		email   string
	)

	cmd := &cobra.Command{
		Use:   "issue <property-id>",
		Short: "Issue an invite for a property you own",
		Long: `Issue an invite. The raw token is printed once and cannot be recovered
afterwards; only its fingerprint is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl < 0 || ttl%time.Second != 0 {
				return &ExitError{Code: ExitCommandError, Err: fmt.Errorf("ttl must be a whole number of seconds, got %s", ttl)}
			}

			ctx, cancel := rootOpts.context(cmd)
			defer cancel()

			res, err := rootOpts.client().Issue(ctx, invitesdk.IssueRequest{
				PropertyID:    args[0],
				TTLSeconds:    int(ttl / time.Second),
				MaxUses:       maxUses,
				IntendedEmail: email,
			})
			if err != nil {
				return apiError("issue invite", err)
			}
			return rootOpts.printer(cmd).Print(res, func(w io.Writer) {
				fmt.Fprintf(w, "invite:   %s\ntoken:    %s\nexpires:  %s\nmax uses: %d\n",
					res.InviteID, res.Token, res.ExpiresAt.Format(time.RFC3339), res.MaxUses)
			})
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "invite lifetime (service default when 0)")
	cmd.Flags().IntVar(&maxUses, "max-uses", 0, "number of redemptions (service default when 0)")
	cmd.Flags().StringVar(&email, "email", "", "bind the invite to this recipient email")

	return cmd
}

func newInviteListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <property-id>",
		Short: "List the invites of a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := rootOpts.context(cmd)
			defer cancel()

			invites, err := rootOpts.client().ListInvites(ctx, args[0])
			if err != nil {
				return apiError("list invites", err)
			}
			return rootOpts.printer(cmd).Print(invites, func(w io.Writer) {
				rows := make([][]any, 0, len(invites))
				for _, inv := range invites {
					rows = append(rows, []any{
						inv.ID,
						inv.Status,
						fmt.Sprintf("%d/%d", inv.UseCount, inv.MaxUses),
						inv.Bound,
						inv.ExpiresAt.Format(time.RFC3339),
					})
				}
				Table(w, []any{"ID", "STATUS", "USES", "BOUND", "EXPIRES"}, rows)
			})
		},
	}
}

func newInviteRevokeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <invite-id>",
		Short: "Revoke an invite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := rootOpts.context(cmd)
			defer cancel()

			if err := rootOpts.client().Revoke(ctx, args[0]); err != nil {
				return apiError("revoke invite", err)
			}
			return rootOpts.printer(cmd).Print(invitesdk.OKResponse{OK: true}, func(w io.Writer) {
				fmt.Fprintf(w, "revoked %s\n", args[0])
			})
		},
	}
}

func newInviteValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <token>",
		Short: "Preview the property behind a raw token without redeeming it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := rootOpts.context(cmd)
			defer cancel()

			preview, err := rootOpts.client().Validate(ctx, args[0])
			if err != nil {
				return apiError("validate invite", err)
			}
			return rootOpts.printer(cmd).Print(preview, func(w io.Writer) {
				fmt.Fprintf(w, "property: %s (%s)\naddress:  %s\nissuer:   %s\n",
					preview.Name, preview.PropertyID, preview.AddressSummary, preview.IssuerName)
			})
		},
	}
}
