package invitectl

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
)

func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report service readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := rootOpts.context(cmd)
			defer cancel()

			res, err := rootOpts.client().Readyz(ctx)
			if err != nil {
				return apiError("readiness", err)
			}
			return rootOpts.printer(cmd).Print(res, func(w io.Writer) {
				fmt.Fprintf(w, "status:  %s\nversion: %s\nuptime:  %s\n", res.Status, res.Version, res.Uptime)
				names := make([]string, 0, len(res.Checks))
				for name := range res.Checks {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(w, "  %s: %s\n", name, res.Checks[name])
				}
			})
		},
	}
}
