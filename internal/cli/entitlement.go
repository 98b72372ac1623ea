package cli

import (
	"fmt"
	"io"
	"time"

	"outreach_tracker/internal/app"

	"github.com/spf13/cobra"
)

func NewEntitlementCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "entitlement <tenant-id>",
		Short: "Show a tenant's effective tier, grace period and quota usage",
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
			if _, err := rt.Services.Settings.GetTenant(cmd.Context(), tenantID); err != nil {
				return err
			}
			sum, err := rt.Services.Entitlements.Summary(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), sum)
			}
			return printSummary(cmd.OutOrStdout(), sum)
		},
	}
}

func printSummary(w io.Writer, sum *app.Summary) error {
	fmt.Fprintf(w, "tier:      %s (stored %s, %s)\n", sum.EffectiveTier, sum.StoredTier, sum.Status)
	if sum.ExpiresAt != nil {
		fmt.Fprintf(w, "expires:   %s\n", sum.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if sum.InGracePeriod {
		fmt.Fprintf(w, "grace:     %d day(s) left, ends %s\n", sum.GraceDaysLeft, sum.GraceEndsAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintln(w)

	rows := make([]string, 0, len(sum.Usage))
	for _, u := range sum.Usage {
		limit := "unlimited"
		if !u.Unlimited {
			limit = fmt.Sprintf("%d", u.Ceiling)
		}
		over := ""
		if u.OverQuota {
			over = "over quota"
		}
		rows = append(rows, fmt.Sprintf("%s\t%d\t%s\t%s", u.Kind, u.Count, limit, over))
	}
	return table(w, "RESOURCE\tUSED\tLIMIT\t", rows)
}
