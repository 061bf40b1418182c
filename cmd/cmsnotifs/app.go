package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/cmsnotifs/internal/config"
	"github.com/jmylchreest/cmsnotifs/internal/desktop"
	"github.com/jmylchreest/cmsnotifs/internal/display"
	"github.com/jmylchreest/cmsnotifs/internal/moodle"
	"github.com/jmylchreest/cmsnotifs/internal/notifier"
	"github.com/jmylchreest/cmsnotifs/internal/present"
	"github.com/jmylchreest/cmsnotifs/internal/store"
	"github.com/jmylchreest/cmsnotifs/internal/tui"
)

type appOptions struct {
	silentErrors bool
	terminal     bool
	watch        bool // refresh when the connection file changes
	alerts       bool // desktop bubbles and sound
}

// app holds the wired components of the poll loop.
type app struct {
	notifier *notifier.Notifier

	web     *display.Web
	watcher *config.Watcher
	seen    *store.Seen
	player  *desktop.Player
}

func newConnectionStore() (*config.Store, error) {
	return config.NewStore(globalOpts.connectionFile)
}

func newClient() *moodle.Client {
	client := moodle.NewClient(settings.Poll.RequestTimeout.Duration(), logger)
	client.SetUserAgent("cmsnotifs/" + version)
	return client
}

func newApp(opts appOptions) (*app, error) {
	a := &app{}

	connections, err := newConnectionStore()
	if err != nil {
		return nil, err
	}

	presenter, err := present.New(present.Options{
		Theme:     settings.Display.Theme,
		ThemesDir: config.ThemesDir(),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	surface, err := a.newSurface(opts.terminal)
	if err != nil {
		return nil, err
	}

	nopts := notifier.Options{
		Store:        connections,
		Fetcher:      newClient(),
		Presenter:    presenter,
		Surface:      surface,
		Settings:     settings,
		SilentErrors: opts.silentErrors,
		Logger:       logger,
	}

	if opts.alerts && settings.Desktop.Notify {
		nopts.Alerter, nopts.Seen = a.newAlerting()
	}

	if opts.watch {
		a.watcher, err = config.NewWatcher(logger, connections.Path())
		if err == nil {
			err = a.watcher.Start()
		}
		if err != nil {
			logger.Warn("connection file changes will apply on the next poll", "error", err)
			a.watcher = nil
		} else {
			nopts.Refresh = a.watcher.Changes()
		}
	}

	a.notifier, err = notifier.New(nopts)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) newSurface(forceTerminal bool) (display.Surface, error) {
	if forceTerminal || config.DisplayMode(settings.Display.Mode) == config.DisplayModeTerminal {
		return tui.NewTerminal(tui.Options{Logger: logger}), nil
	}

	a.web = display.NewWeb(display.WebOptions{
		Listen:      settings.Display.Listen,
		OpenBrowser: settings.Display.OpenBrowser,
		Logger:      logger,
	})
	if err := a.web.Start(); err != nil {
		return nil, fmt.Errorf("starting web display: %w", err)
	}
	logger.Info("web display ready", "url", "http://"+a.web.Addr()+"/")
	return a.web, nil
}

// newAlerting builds the desktop alerter and its seen-id history. A history
// that cannot be opened degrades to memory only.
func (a *app) newAlerting() (notifier.Alerter, notifier.SeenStore) {
	a.player = desktop.NewPlayer(logger)
	a.player.SetVolumePercent(settings.Desktop.Volume)

	alerter := desktop.NewAlerter(desktop.AlerterOptions{
		Notifier: desktop.DefaultNotifier(logger),
		Sounder:  a.player,
		Sound:    settings.SoundPath(),
		Logger:   logger,
	})

	seen, err := openSeen()
	if err != nil {
		logger.Warn("seen history unavailable, alerts may repeat after restart", "error", err)
		seen, _ = store.NewSeen(nil, logger)
	}
	a.seen = seen
	return alerter, seen
}

func openSeen() (*store.Seen, error) {
	persistence, err := store.NewJSONLPersistence(config.SeenPath())
	if err != nil {
		return nil, err
	}
	seen, err := store.NewSeen(persistence, logger)
	if err != nil {
		_ = persistence.Close()
		return nil, err
	}
	return seen, nil
}

// Close stops background components.
func (a *app) Close() {
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			logger.Warn("error stopping watcher", "error", err)
		}
	}
	if a.web != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.web.Stop(ctx); err != nil {
			logger.Warn("error stopping web display", "error", err)
		}
	}
	if a.seen != nil {
		if err := a.seen.Close(); err != nil {
			logger.Warn("error closing seen history", "error", err)
		}
	}
	if a.player != nil {
		a.player.Close()
	}
}
