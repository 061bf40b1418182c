package desktop

import (
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/jmylchreest/cmsnotifs/internal/model"
)

// maxListed is how many subjects a summary alert lists before eliding.
const maxListed = 5

// plainText strips the HTML Moodle puts in detail text.
var plainText = bluemonday.StrictPolicy()

// AlerterOptions configures an Alerter.
type AlerterOptions struct {
	Notifier Notifier // nil disables bubbles
	Sounder  Sounder  // nil disables sound
	Sound    string   // sound file played with each alert; empty disables
	Logger   *slog.Logger

	// MinInterval suppresses a repeat of the same key within this window.
	MinInterval time.Duration
	// Now is replaced in tests.
	Now func() time.Time
}

// Alerter raises desktop alerts for new CMS notifications, with per-key
// rate limiting.
type Alerter struct {
	mu     sync.Mutex
	opts   AlerterOptions
	logger *slog.Logger

	lastNotifyTime map[string]time.Time
}

// NewAlerter creates an Alerter.
func NewAlerter(opts AlerterOptions) *Alerter {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MinInterval == 0 {
		opts.MinInterval = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Alerter{
		opts:           opts,
		logger:         opts.Logger,
		lastNotifyTime: make(map[string]time.Time),
	}
}

// Alert sends a, unless the same key was sent within MinInterval. It
// reports whether the alert went out.
func (a *Alerter) Alert(alert Alert) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.opts.Now()
	if last, ok := a.lastNotifyTime[alert.Key]; ok && now.Sub(last) < a.opts.MinInterval {
		a.logger.Debug("desktop alert rate-limited", "key", alert.Key, "summary", alert.Summary)
		return false, nil
	}
	a.lastNotifyTime[alert.Key] = now

	var errs []string
	if a.opts.Notifier != nil {
		if err := a.opts.Notifier.Notify(alert); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if a.opts.Sounder != nil && a.opts.Sound != "" {
		if err := a.opts.Sounder.Play(a.opts.Sound); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return true, fmt.Errorf("desktop alert: %s", strings.Join(errs, "; "))
	}
	return true, nil
}

// Unread alerts for newly seen notifications and reports whether the alert
// went out. Nothing happens for an empty slice.
func (a *Alerter) Unread(fresh []model.Notification) (bool, error) {
	if len(fresh) == 0 {
		return false, nil
	}
	return a.Alert(UnreadAlert(fresh))
}

// UnreadAlert builds the alert for a batch of new notifications: the
// notification itself when there is one, otherwise a count and the first
// few subjects.
func UnreadAlert(fresh []model.Notification) Alert {
	if len(fresh) == 1 {
		n := fresh[0]
		return Alert{
			Key:     "unread",
			Summary: n.Subject,
			Body:    n.Created() + "\n" + bubbleText(n.Detail()),
		}
	}

	var body strings.Builder
	for i, n := range fresh {
		if i == maxListed {
			fmt.Fprintf(&body, "and %d more", len(fresh)-maxListed)
			break
		}
		body.WriteString("• " + n.Subject + "\n")
	}
	return Alert{
		Key:     "unread",
		Summary: fmt.Sprintf("%d new CMS notifications", len(fresh)),
		Body:    strings.TrimRight(body.String(), "\n"),
	}
}

func bubbleText(detail string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(detail)))
}
