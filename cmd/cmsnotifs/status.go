package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/cmsnotifs/internal/model"
)

// maxTooltipLines caps the subjects listed in the tooltip.
const maxTooltipLines = 10

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Fetch once and output the unread count in Waybar's custom module JSON
format. Errors are reported as the "error" class rather than a failing exit
status so the bar keeps polling.

  "custom/cms": {
    "exec": "cmsnotifs status",
    "interval": 300,
    "return-type": "json",
    "on-click": "cmsnotifs check --format dmenu | rofi -dmenu"
  }

Classes: unread, empty, error.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	var set *model.NotificationSet

	cfg, err := requireConnection()
	if err == nil {
		ctx, cancel := context.WithTimeout(cmd.Context(), settings.Poll.RequestTimeout.Duration())
		defer cancel()
		set, err = newClient().Fetch(ctx, cfg)
	}
	if err != nil {
		logger.Error("status check failed", "error", err)
	}

	return json.NewEncoder(cmd.OutOrStdout()).Encode(buildStatus(set, err))
}

// buildStatus creates a WaybarStatus from a fetch result.
func buildStatus(set *model.NotificationSet, err error) WaybarStatus {
	if err != nil {
		return WaybarStatus{Alt: "error", Class: "error", Tooltip: err.Error()}
	}
	if !set.HasUnread() {
		return WaybarStatus{Alt: "empty", Class: "empty", Tooltip: "No unread notifications"}
	}

	lines := []string{fmt.Sprintf("%d unread", set.UnreadCount)}
	for i, n := range set.Notifications {
		if i == maxTooltipLines {
			lines = append(lines, fmt.Sprintf("... and %d more", len(set.Notifications)-maxTooltipLines))
			break
		}
		lines = append(lines, "• "+n.Subject)
	}

	return WaybarStatus{
		Text:       strconv.Itoa(set.UnreadCount),
		Alt:        "unread",
		Tooltip:    strings.Join(lines, "\n"),
		Class:      "unread",
		Percentage: min(set.UnreadCount, 100),
	}
}
