// Package cli implements contractctl, the operator command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"contract_workflow_backend/internal/bootstrap"

	"github.com/spf13/cobra"
)

// Loader builds the components a command works on.
type Loader func(ctx context.Context) (*bootstrap.Components, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"
	load   Loader
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the contractctl root command.
func NewRootCommand(load Loader) *cobra.Command {
	opts := &RootOptions{load: load}

	cmd := &cobra.Command{
		Use:           "contractctl",
		Short:         "Operate the contract workflow",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewDeadlinesCommand(opts))
	cmd.AddCommand(NewSubscribeCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// withComponents loads components for the duration of fn.
func (o *RootOptions) withComponents(ctx context.Context, fn func(*bootstrap.Components) error) error {
	comps, err := o.load(ctx)
	if err != nil {
		return err
	}
	defer comps.Close()
	return fn(comps)
}

// emit writes v as JSON, or calls text for the text format.
func (o *RootOptions) emit(w io.Writer, v any, text func(io.Writer) error) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}
