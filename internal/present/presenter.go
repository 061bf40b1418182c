// Package present renders notification, error and settings views and parses
// the commands a display surface sends back.
package present

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/jmylchreest/cmsnotifs/internal/config"
	"github.com/jmylchreest/cmsnotifs/internal/model"
	"github.com/jmylchreest/cmsnotifs/internal/theme"
)

//go:embed templates/*.html
var templatesFS embed.FS

// User-facing hints.
const (
	ErrorHint    = "Errors can happen if you provided an invalid authentication token, or if Moodle is unreachable."
	SettingsHint = "You can generate authentication token by visiting CMS > Preferences > User Account > Security Keys. Use the 'Moodle mobile web service' token."
)

// Kind identifies which view a View holds.
type Kind string

const (
	KindNotifications Kind = "notifications"
	KindError         Kind = "error"
	KindSettings      Kind = "settings"
)

// Item is one rendered notification.
type Item struct {
	ID         int64
	Subject    string
	Created    string
	Detail     string
	DetailHTML template.HTML
	Link       string
}

// View is a rendered page plus the data it was built from, so surfaces that
// do not show HTML can draw it themselves.
type View struct {
	Kind    Kind
	Title   string
	HTML    string
	Heading string
	Items   []Item
	BaseURL string
	Message string
	Hint    string
	Config  config.Config
}

// pageData is what the templates see.
type pageData struct {
	View
	CSS template.CSS
}

// Options configures a Presenter.
type Options struct {
	Theme     string // theme name, default "default"
	ThemesDir string // user theme overrides; empty disables
	Logger    *slog.Logger
}

// Presenter renders views.
type Presenter struct {
	pages     map[Kind]*template.Template
	themeName string
	themesDir string
	logger    *slog.Logger
}

// New parses the embedded templates.
func New(opts Options) (*Presenter, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Presenter{
		pages:     make(map[Kind]*template.Template),
		themeName: opts.Theme,
		themesDir: opts.ThemesDir,
		logger:    logger,
	}
	for _, kind := range []Kind{KindNotifications, KindError, KindSettings} {
		tmpl, err := template.ParseFS(templatesFS, "templates/shell.html", "templates/"+string(kind)+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", kind, err)
		}
		p.pages[kind] = tmpl
	}
	return p, nil
}

// Notifications renders the unread list. Callers skip this when the set has
// no unread notifications.
func (p *Presenter) Notifications(set *model.NotificationSet, cfg config.Config) (View, error) {
	v := View{
		Kind:    KindNotifications,
		Title:   "CMS notifications",
		Heading: fmt.Sprintf("%d unread notifications", set.UnreadCount),
		BaseURL: cfg.MoodleLocation,
		Items:   make([]Item, 0, len(set.Notifications)),
	}
	for i := range set.Notifications {
		n := &set.Notifications[i]
		item := Item{
			ID:      n.ID,
			Subject: n.Subject,
			Created: n.Created(),
			Detail:  n.Detail(),
			Link:    n.Link(cfg.MoodleLocation),
		}
		if n.HasDetail() {
			item.DetailHTML = renderDetail(item.Detail)
		} else {
			item.DetailHTML = template.HTML("<p>" + template.HTMLEscapeString(item.Detail) + "</p>")
		}
		v.Items = append(v.Items, item)
	}
	return p.render(v)
}

// Error renders a single message with a settings action.
func (p *Presenter) Error(message string) (View, error) {
	return p.render(View{
		Kind:    KindError,
		Title:   "CMS notifications: error",
		Heading: "Error",
		Message: message,
		Hint:    ErrorHint,
	})
}

// Settings renders the connection form prefilled with cfg.
func (p *Presenter) Settings(cfg config.Config) (View, error) {
	return p.render(View{
		Kind:    KindSettings,
		Title:   "CMS notifications: settings",
		Heading: "Settings",
		Hint:    SettingsHint,
		Config:  cfg,
	})
}

func (p *Presenter) render(v View) (View, error) {
	th := theme.Load(p.themeName, p.themesDir, p.logger)

	var buf bytes.Buffer
	data := pageData{View: v, CSS: template.CSS(th.CSS)}
	if err := p.pages[v.Kind].ExecuteTemplate(&buf, "shell", data); err != nil {
		return View{}, fmt.Errorf("rendering %s view: %w", v.Kind, err)
	}
	v.HTML = buf.String()
	return v, nil
}
