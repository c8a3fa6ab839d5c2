package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"contract_workflow_backend/internal/bootstrap"
	"contract_workflow_backend/internal/deadlines"
	"contract_workflow_backend/internal/scheduler"

	"github.com/spf13/cobra"
)

type sweepOptions struct {
	date    string
	enqueue bool
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &sweepOptions{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the SLA sweep now",
		Long: `Alert on every tracked deadline whose reminder falls on the given day
and stop tracking it. Without --date the current day in the target
timezone is used. With --enqueue the sweep is queued for the scheduler
worker instead of running here.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withComponents(cmd.Context(), func(c *bootstrap.Components) error {
				if opts.enqueue {
					return enqueueSweep(cmd, c, opts.date)
				}
				return runSweep(cmd, rootOpts, c, opts.date)
			})
		},
	}

	cmd.Flags().StringVar(&opts.date, "date", "", "sweep date as dd-mm-yyyy")
	cmd.Flags().BoolVar(&opts.enqueue, "enqueue", false, "queue the sweep for the scheduler worker")

	return cmd
}

func runSweep(cmd *cobra.Command, rootOpts *RootOptions, c *bootstrap.Components, date string) error {
	today := time.Now().In(c.Location)
	if date != "" {
		t, err := time.ParseInLocation(scheduler.DateLayout, date, c.Location)
		if err != nil {
			return fmt.Errorf("--date must be dd-mm-yyyy: %w", err)
		}
		today = t
	}

	res, sweepErr := c.Sweeper.Sweep(cmd.Context(), today)
	if errors.Is(sweepErr, deadlines.ErrSweepInProgress) {
		return sweepErr
	}
	if err := rootOpts.emit(cmd.OutOrStdout(), res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "sweep %s: checked %d, alerted %d, deleted %d\n", res.Date, res.Checked, res.Alerted, res.Deleted)
		return err
	}); err != nil {
		return err
	}
	return sweepErr
}

func enqueueSweep(cmd *cobra.Command, c *bootstrap.Components, date string) error {
	if date != "" {
		if _, err := time.Parse(scheduler.DateLayout, date); err != nil {
			return fmt.Errorf("--date must be dd-mm-yyyy: %w", err)
		}
	}
	client, err := scheduler.NewClient(c.Config)
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := client.EnqueueSweep(cmd.Context(), date)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "sweep queued as %s\n", id)
	return err
}
