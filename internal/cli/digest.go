package cli

import (
	"fmt"

	"outreach_tracker/internal/app"

	"github.com/spf13/cobra"
)

func NewDigestCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Inspect or send daily digests",
	}
	cmd.AddCommand(newDigestPreviewCommand(opts))
	cmd.AddCommand(newDigestSendCommand(opts))
	return cmd
}

func newDigestPreviewCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <tenant-id>",
		Short: "Print today's digest for a tenant without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := parseID("tenant id", args[0])
			if err != nil {
				return err
			}
			rt, err := opts.Runtime(cmd.Context())
			if err != nil {
				return err
			}
			t, err := rt.Services.Settings.GetTenant(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			d, err := rt.Services.Digests.DigestFor(cmd.Context(), t)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), d)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), app.RenderDigest(d))
			return err
		},
	}
}

func newDigestSendCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send",
		Short: "Send today's digest to every linked tenant now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.Runtime(cmd.Context())
			if err != nil {
				return err
			}
			return rt.Services.Digests.SendDailyDigests(cmd.Context())
		},
	}
}
