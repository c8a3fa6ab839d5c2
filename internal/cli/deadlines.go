package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"contract_workflow_backend/internal/bootstrap"
	"contract_workflow_backend/internal/deadlines"

	"github.com/spf13/cobra"
)

// NewDeadlinesCommand groups the deadline subcommands.
func NewDeadlinesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deadlines",
		Short: "Inspect tracked signing deadlines",
	}
	cmd.AddCommand(newDeadlinesListCommand(rootOpts))
	return cmd
}

func newDeadlinesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every tracked deadline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withComponents(cmd.Context(), func(c *bootstrap.Components) error {
				records, listErr := c.Deadlines.List(cmd.Context())
				if records == nil {
					records = []deadlines.Record{}
				}
				if err := rootOpts.emit(cmd.OutOrStdout(), records, func(w io.Writer) error {
					return writeDeadlineTable(w, records)
				}); err != nil {
					return err
				}
				return listErr
			})
		},
	}
}

func writeDeadlineTable(w io.Writer, records []deadlines.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROPERTY\tAPPOINTMENT\tREMINDER\tPURCHASERS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.PropertyAddress, r.AppointmentDatetime, r.ReminderDatetime, r.PurchaserNames(", "))
	}
	return tw.Flush()
}
