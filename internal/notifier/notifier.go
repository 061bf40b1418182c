// Package notifier runs the poll loop: fetch unread CMS notifications, show
// them, act on what the user clicks, sleep, repeat.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/cmsnotifs/internal/config"
	"github.com/jmylchreest/cmsnotifs/internal/display"
	"github.com/jmylchreest/cmsnotifs/internal/model"
	"github.com/jmylchreest/cmsnotifs/internal/moodle"
	"github.com/jmylchreest/cmsnotifs/internal/present"
)

// ConfigStore reads and writes the connection settings.
type ConfigStore interface {
	Retrieve() (config.Config, bool, error)
	Save(cfg config.Config) error
}

// Fetcher talks to the Moodle web service.
type Fetcher interface {
	Fetch(ctx context.Context, cfg config.Config) (*model.NotificationSet, error)
	MarkAllRead(ctx context.Context, cfg config.Config, req moodle.MarkReadRequest) error
}

// Renderer builds the views.
type Renderer interface {
	Notifications(set *model.NotificationSet, cfg config.Config) (present.View, error)
	Error(message string) (present.View, error)
	Settings(cfg config.Config) (present.View, error)
}

// Alerter raises desktop alerts for new notifications. It reports whether
// the alert went out; a suppressed alert leaves the notifications unseen.
type Alerter interface {
	Unread(fresh []model.Notification) (bool, error)
}

// SeenStore remembers which notifications were already alerted.
type SeenStore interface {
	Unseen(ns []model.Notification) []model.Notification
	Mark(ids []int64, now time.Time) error
}

// Options wires a Notifier. Store, Fetcher, Presenter and Surface are
// required.
type Options struct {
	Store     ConfigStore
	Fetcher   Fetcher
	Presenter Renderer
	Surface   display.Surface
	Opener    display.Opener // default display.Browser

	// Optional desktop alerting. Without Seen every fetch alerts.
	Alerter Alerter
	Seen    SeenStore

	Settings *config.Settings // default config.DefaultSettings()
	// SilentErrors logs failures without showing the error view. It is
	// combined with Settings.Errors.Silent.
	SilentErrors bool

	// Refresh wakes the loop early, e.g. when the config files change.
	Refresh <-chan struct{}

	Clock  Clock // default RealClock()
	Logger *slog.Logger
}

// Notifier is the poll loop. Its methods must be called from one goroutine.
type Notifier struct {
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	state State

	// What the open list view shows; used by mark-as-read.
	cfg     config.Config
	current *model.NotificationSet
}

// New validates opts and creates a Notifier.
func New(opts Options) (*Notifier, error) {
	if opts.Store == nil || opts.Fetcher == nil || opts.Presenter == nil || opts.Surface == nil {
		return nil, errors.New("notifier: store, fetcher, presenter and surface are required")
	}
	if opts.Opener == nil {
		opts.Opener = display.Browser
	}
	if opts.Settings == nil {
		opts.Settings = config.DefaultSettings()
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Notifier{
		opts:   opts,
		logger: opts.Logger,
		state:  StateIdle,
	}, nil
}

// State returns the current state.
func (n *Notifier) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Notifier) setState(s State) {
	n.mu.Lock()
	prev := n.state
	n.state = s
	n.mu.Unlock()
	if prev != s {
		n.logger.Debug("state changed", "from", prev, "to", s)
	}
}

// Run ticks until ctx is cancelled or a fatal error occurs. Fetch and
// display-command failures are not fatal; config I/O and display surface
// failures are.
func (n *Notifier) Run(ctx context.Context) error {
	defer n.setState(StateIdle)
	for {
		if err := n.Tick(ctx); err != nil {
			return err
		}
		if err := n.sleep(ctx); err != nil {
			return err
		}
	}
}

// Tick performs one fetch and, when there is something to show, blocks
// until the view is closed.
func (n *Notifier) Tick(ctx context.Context) error {
	n.setState(StateFetching)

	cfg, regenerated, err := n.opts.Store.Retrieve()
	if err != nil {
		return err
	}
	if regenerated {
		n.logger.Info("no usable connection settings, opening setup")
		if cfg, err = n.Setup(ctx); err != nil {
			return err
		}
	}

	set, err := n.fetch(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return n.showError(ctx, err)
	}

	if !set.HasUnread() {
		n.logger.Info("0 unread notifications")
		return nil
	}
	n.logger.Info("unread notifications", "count", set.UnreadCount, "listed", len(set.Notifications))

	n.alertNew(set)

	view, err := n.opts.Presenter.Notifications(set, cfg)
	if err != nil {
		return fmt.Errorf("rendering notifications: %w", err)
	}

	n.cfg = cfg
	n.current = set
	n.setState(StateDisplaying)
	return n.show(ctx, view)
}

func (n *Notifier) fetch(ctx context.Context, cfg config.Config) (*model.NotificationSet, error) {
	ctx, cancel := context.WithTimeout(ctx, n.opts.Settings.Poll.RequestTimeout.Duration())
	defer cancel()
	return n.opts.Fetcher.Fetch(ctx, cfg)
}

// showError logs err and, unless errors are silent, shows the error view.
func (n *Notifier) showError(ctx context.Context, err error) error {
	n.logger.Error("failed to fetch notifications", "error", err)
	if n.opts.SilentErrors || n.opts.Settings.Errors.Silent {
		return nil
	}

	view, rerr := n.opts.Presenter.Error(describe(err))
	if rerr != nil {
		return fmt.Errorf("rendering error view: %w", rerr)
	}
	n.setState(StateErrorDisplay)
	return n.show(ctx, view)
}

func (n *Notifier) show(ctx context.Context, view present.View) error {
	err := n.opts.Surface.Show(ctx, view, func(cmd present.Command) error {
		return n.Dispatch(ctx, cmd)
	})
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// alertNew raises a desktop alert for unread notifications not alerted
// before. Failures are logged only.
func (n *Notifier) alertNew(set *model.NotificationSet) {
	if n.opts.Alerter == nil {
		return
	}

	fresh := set.Unread()
	if n.opts.Seen != nil {
		fresh = n.opts.Seen.Unseen(fresh)
	}
	if len(fresh) == 0 {
		return
	}

	sent, err := n.opts.Alerter.Unread(fresh)
	if err != nil {
		n.logger.Warn("desktop alert failed", "error", err)
	}
	if !sent {
		n.logger.Debug("desktop alert suppressed", "count", len(fresh))
		return
	}
	if n.opts.Seen != nil {
		ids := make([]int64, len(fresh))
		for i, f := range fresh {
			ids[i] = f.ID
		}
		if err := n.opts.Seen.Mark(ids, n.opts.Clock.Now()); err != nil {
			n.logger.Warn("failed to record seen notifications", "error", err)
		}
	}
}

// sleep waits out the poll interval, returning early on a refresh signal.
func (n *Notifier) sleep(ctx context.Context) error {
	n.setState(StateSleeping)

	// Changes made while a view was open (our own saves included) are
	// already reflected by the tick that just ended.
	n.drainRefresh()

	interval := n.opts.Settings.Poll.Interval.Duration()
	n.logger.Debug("sleeping", "interval", interval)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-n.opts.Clock.After(interval):
	case <-n.opts.Refresh:
		n.logger.Info("configuration changed, refreshing")
	}
	return nil
}

func (n *Notifier) drainRefresh() {
	if n.opts.Refresh == nil {
		return
	}
	for {
		select {
		case <-n.opts.Refresh:
		default:
			return
		}
	}
}

// Dispatch carries out a command from an open view. A returned error is
// shown in the view; display.ErrCloseView closes it.
func (n *Notifier) Dispatch(ctx context.Context, cmd present.Command) error {
	switch c := cmd.(type) {
	case present.OpenURL:
		if err := n.opts.Opener.Open(c.URL); err != nil {
			n.logger.Warn("failed to open url", "url", c.URL, "error", err)
			return err
		}
		return nil

	case present.OpenSettings:
		cfg, err := n.Setup(ctx)
		if err != nil {
			return err
		}
		n.cfg = cfg
		return nil

	case present.MarkRead:
		return n.markRead(ctx)

	case present.Close, present.Unload:
		return display.ErrCloseView

	default:
		n.logger.Warn("ignoring command", "command", cmd.Name())
		return nil
	}
}

// MarkReadRequest builds the mark-all-read parameters for set as selected
// by settings.
func MarkReadRequest(set *model.NotificationSet, settings *config.Settings) moodle.MarkReadRequest {
	req := moodle.MarkReadRequest{}
	if settings.MarkRead.SendUserID {
		req.UserID = set.RecipientID()
	}
	if settings.MarkRead.SendTimeCreatedTo {
		req.TimeCreatedTo = set.LatestCreated()
	}
	return req
}

func (n *Notifier) markRead(ctx context.Context) error {
	req := MarkReadRequest(n.current, n.opts.Settings)

	ctx, cancel := context.WithTimeout(ctx, n.opts.Settings.Poll.RequestTimeout.Duration())
	defer cancel()

	if err := n.opts.Fetcher.MarkAllRead(ctx, n.cfg, req); err != nil {
		n.logger.Error("failed to mark notifications as read", "error", err)
		return fmt.Errorf("could not mark notifications as read: %s", describe(err))
	}
	n.logger.Info("marked all notifications as read", "useridto", req.UserID)
	return nil
}

// Setup shows the settings view prefilled with the stored connection and
// blocks until it is closed. A submitted form is normalized and saved. It
// returns the connection in effect afterwards.
func (n *Notifier) Setup(ctx context.Context) (config.Config, error) {
	cfg, _, err := n.opts.Store.Retrieve()
	if err != nil {
		return cfg, err
	}

	view, err := n.opts.Presenter.Settings(cfg)
	if err != nil {
		return cfg, fmt.Errorf("rendering settings view: %w", err)
	}

	err = n.opts.Surface.Show(ctx, view, func(cmd present.Command) error {
		switch c := cmd.(type) {
		case present.SaveConfig:
			next := config.Normalize(c.Config)
			if err := n.opts.Store.Save(next); err != nil {
				n.logger.Error("failed to save connection settings", "error", err)
				return err
			}
			cfg = next
			n.logger.Info("saved connection settings", "moodle_location", next.MoodleLocation)
			return display.ErrCloseView
		case present.OpenURL:
			return n.Dispatch(ctx, c)
		case present.Close, present.Unload:
			return display.ErrCloseView
		default:
			return nil
		}
	})
	if err != nil && ctx.Err() != nil {
		return cfg, ctx.Err()
	}
	return cfg, err
}

// describe turns a fetch error into the message shown to the user.
func describe(err error) string {
	var apiErr *moodle.APIError
	if errors.As(err, &apiErr) {
		if moodle.IsInvalidToken(err) {
			return "Moodle rejected the authentication token: " + apiErr.Message
		}
		return "Moodle returned an error: " + apiErr.Message
	}
	return err.Error()
}
