package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var pruneOpts struct {
	keep   int
	dryRun bool
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Trim the history of already-alerted notifications",
	Long: `Trim the seen-notification history used to avoid repeating desktop
alerts. The most recently seen ids are kept.

The history prunes itself when it grows large, so this is rarely needed.

Examples:
  # Keep only the 100 most recently seen ids
  cmsnotifs prune --keep 100

  # Forget everything (every unread notification alerts again)
  cmsnotifs prune --keep 0

  # Preview
  cmsnotifs prune --keep 100 --dry-run`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().IntVar(&pruneOpts.keep, "keep", 0,
		"Keep only the N most recently seen ids")
	pruneCmd.Flags().BoolVar(&pruneOpts.dryRun, "dry-run", false,
		"Show what would be removed without removing it")
}

func runPrune(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("keep") {
		return errors.New("specify --keep")
	}
	if pruneOpts.keep < 0 {
		return errors.New("--keep must not be negative")
	}

	seen, err := openSeen()
	if err != nil {
		return fmt.Errorf("failed to open seen history: %w", err)
	}
	defer seen.Close()

	out := cmd.OutOrStdout()
	excess := seen.Count() - pruneOpts.keep
	if excess <= 0 {
		fmt.Fprintf(out, "Nothing to remove (%d id(s) in history)\n", seen.Count())
		return nil
	}

	if pruneOpts.dryRun {
		fmt.Fprintf(out, "Would remove %d of %d id(s)\n", excess, seen.Count())
		return nil
	}

	removed, err := seen.Prune(pruneOpts.keep)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %d id(s)\n", removed)
	return nil
}
