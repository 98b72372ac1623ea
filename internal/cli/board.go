package cli

import (
	"fmt"
	"io"
	"time"

	"outreach_tracker/internal/domain/outreach"

	"github.com/spf13/cobra"
)

type boardRow struct {
	RecordID  string `json:"record_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Anchor    string `json:"anchor_date"`
	Next      string `json:"next_follow_up,omitempty"`
	Sequence  int    `json:"next_sequence,omitempty"`
	Attention bool   `json:"action_required"`
}

func boardRows(entries []outreach.Entry, attention bool) []boardRow {
	rows := make([]boardRow, 0, len(entries))
	for _, e := range entries {
		r := boardRow{
			RecordID:  e.Record.ID.String(),
			Title:     e.Record.Title,
			Status:    string(e.Record.Status),
			Anchor:    e.Record.AnchorDate.Format(time.DateOnly),
			Attention: attention,
		}
		if e.Next != nil {
			r.Next = e.Next.ScheduledDate.Format(time.DateOnly)
			r.Sequence = e.Next.Sequence
		}
		rows = append(rows, r)
	}
	return rows
}

func NewBoardCommand(opts *RootOptions) *cobra.Command {
	var sortRaw string
	cmd := &cobra.Command{
		Use:   "board <tenant-id>",
		Short: "List a tenant's outreach records in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := parseID("tenant id", args[0])
			if err != nil {
				return err
			}
			mode, err := outreach.ParseSortMode(sortRaw)
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
			b, err := rt.Services.Outreach.Board(cmd.Context(), tenantID, mode)
			if err != nil {
				return err
			}

			var rows []boardRow
			if mode == outreach.SortNextFollowUp {
				rows = append(boardRows(b.ActionRequired, true), boardRows(b.Upcoming, false)...)
			} else {
				rows = boardRows(b.Items, false)
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			return printBoard(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVar(&sortRaw, "sort", "next", "ordering: next|newest|oldest")
	return cmd
}

func printBoard(w io.Writer, rows []boardRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no outreach records")
		return err
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		mark := ""
		if r.Attention {
			mark = "!"
		}
		next := "-"
		if r.Next != "" {
			next = fmt.Sprintf("#%d %s", r.Sequence, r.Next)
		}
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s\t%s\t%s", mark, r.Title, outreach.Status(r.Status).Label(), r.Anchor, next))
	}
	return table(w, "\tTITLE\tSTATUS\tANCHOR\tNEXT", lines)
}
