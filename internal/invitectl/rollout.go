package invitectl

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/propinvite/pkg/invitesdk"
)

const defaultFeature = "property_invites_v2"

func NewRolloutCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollout",
		Short: "Inspect and steer the staged rollout",
	}

	cmd.AddCommand(newRolloutGetCommand(rootOpts))
	cmd.AddCommand(newRolloutSetCommand(rootOpts))
	cmd.AddCommand(newRolloutEvaluateCommand(rootOpts))

	return cmd
}

func newRolloutGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get [feature]",
		Short: "Show the current percent and recent changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := rootOpts.context(cmd)
			defer cancel()

			res, err := rootOpts.client().GetRollout(ctx, featureArg(args))
			if err != nil {
				return apiError("get rollout", err)
			}
			return rootOpts.printer(cmd).Print(res, func(w io.Writer) { printRollout(w, res) })
		},
	}
}

func newRolloutSetCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		feature string
		reason  string
	)

	cmd := &cobra.Command{
		Use:   "set <percent>",
		Short: "Override the rollout percent",
		Long: `Set the rollout percent manually. The change is audited with the caller
as actor; 0 sends every caller to the legacy flow.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			percent, err := strconv.Atoi(args[0])
			if err != nil || percent < 0 || percent > 100 {
				return &ExitError{Code: ExitCommandError, Err: fmt.Errorf("percent must be an integer in 0..100, got %q", args[0])}
			}

			ctx, cancel := rootOpts.context(cmd)
			defer cancel()

			res, err := rootOpts.client().SetRollout(ctx, feature, percent, reason)
			if err != nil {
				return apiError("set rollout", err)
			}
			return rootOpts.printer(cmd).Print(res, func(w io.Writer) { printRollout(w, res) })
		},
	}

	cmd.Flags().StringVarP(&feature, "feature", "f", defaultFeature, "feature flag name")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "reason recorded in the audit trail")

	return cmd
}

func newRolloutEvaluateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate [feature]",
		Short: "Show funnel metrics and the decision the monitor would take",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := rootOpts.context(cmd)
			defer cancel()

			res, err := rootOpts.client().EvaluateRollout(ctx, featureArg(args))
			if err != nil {
				return apiError("evaluate rollout", err)
			}
			return rootOpts.printer(cmd).Print(res, func(w io.Writer) { printEvaluation(w, res) })
		},
	}
}

func featureArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultFeature
}

func printRollout(w io.Writer, res invitesdk.RolloutResponse) {
	fmt.Fprintf(w, "feature: %s\npercent: %d\n", res.Feature, res.Percent)
	if !res.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "updated: %s by %s\n", res.UpdatedAt.Format(time.RFC3339), res.UpdatedBy)
	}
	if len(res.History) == 0 {
		return
	}

	fmt.Fprintln(w)
	rows := make([][]any, 0, len(res.History))
	for _, c := range res.History {
		source := "manual"
		if c.Automatic {
			source = "auto"
		}
		rows = append(rows, []any{
			c.CreatedAt.Format(time.RFC3339),
			fmt.Sprintf("%d -> %d", c.FromPercent, c.ToPercent),
			source,
			c.Actor,
			c.Reason,
		})
	}
	Table(w, []any{"WHEN", "CHANGE", "SOURCE", "ACTOR", "REASON"}, rows)
}

func printEvaluation(w io.Writer, res invitesdk.EvaluationResponse) {
	f := res.Funnel
	fmt.Fprintf(w, "feature: %s (%s)\n", res.Feature, res.Mode)
	fmt.Fprintf(w, "decision: %s %d -> %d\n", res.Action, res.FromPercent, res.ToPercent)
	if res.Reason != "" {
		fmt.Fprintf(w, "reason: %s\n", res.Reason)
	}
	fmt.Fprintln(w)
	Table(w, []any{"METRIC", "VALUE"}, [][]any{
		{"views", f.Views},
		{"validate ok/fail", fmt.Sprintf("%d/%d", f.ValidateSuccess, f.ValidateFail)},
		{"accept ok/fail", fmt.Sprintf("%d/%d", f.AcceptSuccess, f.AcceptFail)},
		{"accept repeat", f.AcceptRepeat},
		{"conversion", fmt.Sprintf("%.3f", f.Conversion)},
		{"error rate", fmt.Sprintf("%.3f", f.ErrorRate)},
		{"latency p50/p95/p99", fmt.Sprintf("%.0f/%.0f/%.0f ms", f.LatencyP50Ms, f.LatencyP95Ms, f.LatencyP99Ms)},
	})
}
