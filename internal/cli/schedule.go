package cli

import (
	"fmt"
	"time"

	"outreach_tracker/internal/domain/outreach"
	"outreach_tracker/internal/infra/config"

	"github.com/spf13/cobra"
)

type schedulePreview struct {
	Anchor  string   `json:"anchor_date"`
	Offsets []int    `json:"offsets"`
	Dates   []string `json:"dates"`
}

func NewScheduleCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Work with follow-up schedules",
	}
	cmd.AddCommand(newSchedulePreviewCommand(opts))
	return cmd
}

func newSchedulePreviewCommand(opts *RootOptions) *cobra.Command {
	var (
		anchorRaw  string
		offsetsRaw string
		tenantRaw  string
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the follow-up dates a cadence produces for an anchor date",
		Example: `  outreachctl schedule preview --anchor 2024-01-01 --offsets 3,7,14
  outreachctl schedule preview --anchor 2024-01-01 --tenant <tenant-id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			anchor, err := time.Parse(time.DateOnly, anchorRaw)
			if err != nil {
				return fmt.Errorf("invalid --anchor %q: expected YYYY-MM-DD", anchorRaw)
			}

			var offsets []int
			switch {
			case offsetsRaw != "":
				if offsets, err = config.ParseOffsets(offsetsRaw); err != nil {
					return fmt.Errorf("invalid --offsets: %w", err)
				}
			case tenantRaw != "":
				tenantID, err := parseID("tenant id", tenantRaw)
				if err != nil {
					return err
				}
				rt, err := opts.Runtime(cmd.Context())
				if err != nil {
					return err
				}
				c, err := rt.Services.Settings.Cadence(cmd.Context(), tenantID)
				if err != nil {
					return err
				}
				offsets = c.Offsets
			default:
				offsets = outreach.DefaultOffsets
			}

			preview := schedulePreview{Anchor: anchor.Format(time.DateOnly), Offsets: offsets}
			for _, d := range outreach.BuildSchedule(anchor, offsets) {
				preview.Dates = append(preview.Dates, d.Format(time.DateOnly))
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), preview)
			}
			rows := make([]string, 0, len(preview.Dates))
			for i, d := range preview.Dates {
				rows = append(rows, fmt.Sprintf("%d\t+%d\t%s", i+1, offsets[i], d))
			}
			return table(cmd.OutOrStdout(), "#\tOFFSET\tDATE", rows)
		},
	}
	cmd.Flags().StringVar(&anchorRaw, "anchor", "", "first contact date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&offsetsRaw, "offsets", "", "comma separated day offsets, e.g. 3,7,14")
	cmd.Flags().StringVar(&tenantRaw, "tenant", "", "use this tenant's cadence")
	_ = cmd.MarkFlagRequired("anchor")
	return cmd
}
