package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/cmsnotifs/internal/adapter/output"
	"github.com/jmylchreest/cmsnotifs/internal/config"
	"github.com/jmylchreest/cmsnotifs/internal/core"
	"github.com/jmylchreest/cmsnotifs/internal/model"
)

var checkOpts struct {
	// Filter options
	since  string
	search string
	filter string
	limit  int

	// Sort options
	sortBy    string
	sortOrder string

	// Output options
	format   string
	field    string
	template string
}

var checkCmd = &cobra.Command{
	Use:   "check [index|#id]",
	Short: "Fetch unread notifications once and print them",
	Long: `Fetch the unread notifications once and print them, without opening
any view.

With an index (1-based, after filtering and sorting) or a Moodle id (#123),
prints only that notification.

Examples:
  # Everything unread
  cmsnotifs check

  # Quiz notifications from the last day, newest first
  cmsnotifs check --filter "subject~quiz" --since 1d

  # Pick one with rofi and open its link
  cmsnotifs check --field link "$(cmsnotifs check --format dmenu | rofi -dmenu)" | xargs xdg-open

  # Machine-readable
  cmsnotifs check --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkOpts.since, "since", "",
		"Only notifications from the last duration (e.g., 12h, 7d, 1w)")
	checkCmd.Flags().StringVarP(&checkOpts.search, "search", "s", "",
		"Search in subject and text")
	checkCmd.Flags().StringVar(&checkOpts.filter, "filter", "",
		"Filter expression (e.g., \"subject~quiz,created>1d\")")
	checkCmd.Flags().IntVarP(&checkOpts.limit, "limit", "n", 0,
		"Maximum number of notifications to show (0=unlimited)")

	checkCmd.Flags().StringVar(&checkOpts.sortBy, "sort", "created",
		"Sort by field (created, id, subject)")
	checkCmd.Flags().StringVar(&checkOpts.sortOrder, "order", "desc",
		"Sort order (asc, desc)")

	checkCmd.Flags().StringVarP(&checkOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml, dmenu, ids)")
	checkCmd.Flags().StringVar(&checkOpts.field, "field", "",
		"Print a single field (id, subject, text, link, created, user, all)")
	checkCmd.Flags().StringVar(&checkOpts.template, "template", "",
		"Go template for each notification (plain and dmenu formats)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := requireConnection()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), settings.Poll.RequestTimeout.Duration())
	defer cancel()

	set, err := newClient().Fetch(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Debug("fetched notifications", "unread", set.UnreadCount, "listed", len(set.Notifications))

	req := checkRequest{
		since:     checkOpts.since,
		search:    checkOpts.search,
		filter:    checkOpts.filter,
		limit:     checkOpts.limit,
		sortBy:    checkOpts.sortBy,
		sortOrder: checkOpts.sortOrder,
		format:    checkOpts.format,
		field:     checkOpts.field,
		template:  checkOpts.template,
		baseURL:   cfg.MoodleLocation,
	}
	if len(args) > 0 {
		req.selector = args[0]
	}
	return writeCheck(cmd.OutOrStdout(), set.Notifications, req)
}

// requireConnection returns the stored connection, refusing to run against
// a freshly regenerated default.
func requireConnection() (config.Config, error) {
	connections, err := newConnectionStore()
	if err != nil {
		return config.Config{}, err
	}
	cfg, regenerated, err := connections.Retrieve()
	if err != nil {
		return config.Config{}, err
	}
	if regenerated || cfg.Token == "" {
		return config.Config{}, errors.New("no web service token configured; run \"cmsnotifs --settings\" first")
	}
	return cfg, nil
}

type checkRequest struct {
	since, search, filter string
	limit                 int
	sortBy, sortOrder     string
	format, field         string
	template              string
	baseURL               string
	selector              string
}

// writeCheck filters, sorts and prints ns.
func writeCheck(w io.Writer, ns []model.Notification, req checkRequest) error {
	format, err := output.ParseFormat(req.format)
	if err != nil {
		return err
	}

	ns, err = narrow(ns, req)
	if err != nil {
		return err
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = req.template
	opts.BaseURL = req.baseURL
	formatter := output.NewFormatter(format, opts)

	if req.selector != "" {
		n := core.Lookup(ns, req.selector)
		if n == nil {
			return fmt.Errorf("no notification matches %q", req.selector)
		}
		if req.field != "" {
			_, err := fmt.Fprintln(w, output.FormatField(n, req.field, req.baseURL))
			return err
		}
		if single, ok := formatter.(output.SingleFormatter); ok {
			return single.FormatSingle(w, n)
		}
		return formatter.Format(w, []model.Notification{*n})
	}

	if req.field != "" {
		for i := range ns {
			if _, err := fmt.Fprintln(w, output.FormatField(&ns[i], req.field, req.baseURL)); err != nil {
				return err
			}
		}
		return nil
	}

	if len(ns) == 0 && format == output.FormatPlain {
		_, err := fmt.Fprintln(w, "No unread notifications")
		return err
	}
	return formatter.Format(w, ns)
}

func narrow(ns []model.Notification, req checkRequest) ([]model.Notification, error) {
	// Work on a copy; sorting is in place.
	ns = append([]model.Notification(nil), ns...)

	since, err := core.ParseDuration(req.since)
	if err != nil {
		return nil, err
	}

	if req.filter != "" {
		expr, err := core.ParseFilter(req.filter)
		if err != nil {
			return nil, err
		}
		ns = core.FilterWithExpr(ns, expr)
	}
	ns = core.Search(ns, req.search)

	core.Sort(ns, core.SortOptions{
		Field: core.ParseSortField(req.sortBy),
		Order: core.ParseSortOrder(req.sortOrder),
	})

	// Limit applies after sorting so it keeps the top of the list.
	return core.Filter(ns, core.FilterOptions{Since: since, Limit: req.limit}), nil
}
