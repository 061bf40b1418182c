package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/cmsnotifs/internal/notifier"
)

var markReadCmd = &cobra.Command{
	Use:   "mark-read",
	Short: "Mark all notifications as read",
	Long: `Mark every notification as read on the Moodle site and exit.

The unread list is fetched first so the request can carry the recipient id
and newest creation time, as selected in the [mark_read] settings.`,
	Args: cobra.NoArgs,
	RunE: runMarkRead,
}

func init() {
	rootCmd.AddCommand(markReadCmd)
}

func runMarkRead(cmd *cobra.Command, args []string) error {
	cfg, err := requireConnection()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), settings.Poll.RequestTimeout.Duration())
	defer cancel()

	client := newClient()
	set, err := client.Fetch(ctx, cfg)
	if err != nil {
		return err
	}
	if !set.HasUnread() {
		fmt.Fprintln(cmd.OutOrStdout(), "No unread notifications")
		return nil
	}

	req := notifier.MarkReadRequest(set, settings)
	if err := client.MarkAllRead(ctx, cfg, req); err != nil {
		return fmt.Errorf("could not mark notifications as read: %w", err)
	}

	logger.Info("marked all notifications as read", "useridto", req.UserID)
	fmt.Fprintf(cmd.OutOrStdout(), "Marked %d notification(s) as read\n", set.UnreadCount)
	return nil
}
