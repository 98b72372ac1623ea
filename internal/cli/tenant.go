package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"outreach_tracker/internal/app"
	"outreach_tracker/internal/domain/tenant"

	"github.com/spf13/cobra"
)

type tenantView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func newTenantView(t *tenant.Tenant) tenantView {
	v := tenantView{ID: t.ID.String(), Name: t.Name, CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339)}
	if t.TelegramChatID.Valid {
		chat := t.TelegramChatID.Int64
		v.TelegramChatID = &chat
	}
	return v
}

func NewTenantCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}
	cmd.AddCommand(newTenantCreateCommand(opts))
	cmd.AddCommand(newTenantListCommand(opts))
	cmd.AddCommand(newTenantLinkCommand(opts))
	return cmd
}

func newTenantCreateCommand(opts *RootOptions) *cobra.Command {
	var chatID int64
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a tenant with the default cadence and a free plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.Runtime(cmd.Context())
			if err != nil {
				return err
			}
			var chat *int64
			if cmd.Flags().Changed("chat") {
				chat = &chatID
			}
			t, err := rt.Services.Settings.CreateTenant(cmd.Context(), args[0], chat)
			if err != nil {
				return err
			}
			return printTenants(cmd.OutOrStdout(), opts.Format, t)
		},
	}
	cmd.Flags().Int64Var(&chatID, "chat", 0, "Telegram chat that receives the daily digest")
	return cmd
}

func newTenantListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.Runtime(cmd.Context())
			if err != nil {
				return err
			}
			tenants, err := rt.Services.Settings.ListTenants(cmd.Context())
			if err != nil {
				return err
			}
			return printTenants(cmd.OutOrStdout(), opts.Format, tenants...)
		},
	}
}

func newTenantLinkCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "link <tenant-id> <chat-id>",
		Short: "Send a tenant's daily digest to a Telegram chat",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := parseID("tenant id", args[0])
			if err != nil {
				return err
			}
			chatID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat id %q: %w", args[1], err)
			}
			rt, err := opts.Runtime(cmd.Context())
			if err != nil {
				return err
			}
			t, err := rt.Services.Settings.LinkTelegram(cmd.Context(), tenantID, chatID)
			if errors.Is(err, app.ErrTelegramAlreadyLinked) {
				fmt.Fprintf(cmd.ErrOrStderr(), "chat %d is already linked to %s\n", chatID, t.Name)
				return nil
			}
			if err != nil {
				return err
			}
			return printTenants(cmd.OutOrStdout(), opts.Format, t)
		},
	}
}

func printTenants(w io.Writer, format string, tenants ...*tenant.Tenant) error {
	views := make([]tenantView, 0, len(tenants))
	for _, t := range tenants {
		views = append(views, newTenantView(t))
	}
	if format == "json" {
		if len(views) == 1 {
			return writeJSON(w, views[0])
		}
		return writeJSON(w, views)
	}
	rows := make([]string, 0, len(views))
	for _, v := range views {
		chat := "-"
		if v.TelegramChatID != nil {
			chat = strconv.FormatInt(*v.TelegramChatID, 10)
		}
		rows = append(rows, fmt.Sprintf("%s\t%s\t%s", v.ID, v.Name, chat))
	}
	return table(w, "ID\tNAME\tCHAT", rows)
}
