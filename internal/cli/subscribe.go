package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"contract_workflow_backend/internal/bootstrap"
	"contract_workflow_backend/platform/httpkit"

	"github.com/spf13/cobra"
)

// NewSubscribeCommand creates the mailbox subscription command.
func NewSubscribeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe",
		Short: "Create the inbox change subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withComponents(cmd.Context(), func(c *bootstrap.Components) error {
				url := c.Config.GetSubscriptionNotificationURL()
				if url == "" {
					return errors.New("SUBSCRIPTION_NOTIFICATION_URL is not configured")
				}
				sub, err := c.Graph.CreateSubscription(cmd.Context(), url, c.Config.GetSubscriptionClientState())
				if err != nil {
					return err
				}
				return rootOpts.emit(cmd.OutOrStdout(), sub, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "subscription %s expires %s\n", sub.ID, sub.ExpirationDateTime.Format(time.RFC3339))
					return err
				})
			})
		},
	}
}

type tokenOptions struct {
	subject string
	scopes  []string
	ttl     time.Duration
}

// NewTokenCommand issues a service token for the internal API.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a service token for the internal API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withComponents(cmd.Context(), func(c *bootstrap.Components) error {
				token, err := httpkit.IssueServiceToken(c.Config.GetInternalAPISecret(), opts.subject, opts.scopes, opts.ttl)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&opts.subject, "subject", "contractctl", "token subject")
	cmd.Flags().StringSliceVar(&opts.scopes, "scope", []string{"mail:process", "mail:send", "mail:subscribe"}, "granted scopes")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
