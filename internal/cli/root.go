package cli

import (
	"context"
	"fmt"

	"outreach_tracker/internal/bootstrap"

	"github.com/spf13/cobra"
)

// RuntimeFactory opens the runtime on first use so commands that need no store stay cheap.
type RuntimeFactory func(ctx context.Context) (*bootstrap.Runtime, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"

	open    RuntimeFactory
	runtime *bootstrap.Runtime
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Runtime returns the shared runtime, opening it once.
func (o *RootOptions) Runtime(ctx context.Context) (*bootstrap.Runtime, error) {
	if o.runtime != nil {
		return o.runtime, nil
	}
	if o.open == nil {
		return nil, fmt.Errorf("no store configured")
	}
	rt, err := o.open(ctx)
	if err != nil {
		return nil, err
	}
	o.runtime = rt
	return rt, nil
}

// NewRootCommand creates the outreachctl command tree.
func NewRootCommand(open RuntimeFactory) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "outreachctl",
		Short: "Administer the outreach follow-up tracker",
		Long:  "Inspect boards and entitlements, manage tenants and preview follow-up schedules.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.runtime == nil || opts.runtime.Close == nil {
				return nil
			}
			rt := opts.runtime
			opts.runtime = nil
			return rt.Close()
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))
	cmd.AddCommand(NewBoardCommand(opts))
	cmd.AddCommand(NewEntitlementCommand(opts))
	cmd.AddCommand(NewTenantCommand(opts))
	cmd.AddCommand(NewDigestCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
