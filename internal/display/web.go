package display

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/jmylchreest/cmsnotifs/internal/present"
)

const (
	maxMessageSize = 64 << 10
	invokeTimeout  = 5 * time.Second
)

const goneHTML = `<!DOCTYPE html><html><head><meta charset="utf-8"><title>CMS notifications</title></head>` +
	`<body><p>This view is no longer active. You can close this tab.</p></body></html>`

// WebOptions configures a Web surface.
type WebOptions struct {
	Listen      string // default 127.0.0.1:0
	OpenBrowser bool   // open each new top-level view in the browser
	Opener      Opener // default Browser
	Logger      *slog.Logger

	// Invoke rate limit across all views.
	RateLimit rate.Limit
	Burst     int
}

// webPage is one open view.
type webPage struct {
	token string
	html  string
}

type invocation struct {
	token   string
	message string
	reply   chan invokeReply
}

type invokeReply struct {
	Location string `json:"location,omitempty"`
	Closed   bool   `json:"closed,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Web serves views on a loopback HTTP server. Each Show gets a fresh token;
// only the top-most view's token is accepted, older ones get 410 Gone.
type Web struct {
	opts    WebOptions
	logger  *slog.Logger
	limiter *rate.Limiter
	engine  *gin.Engine

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	stack    []*webPage

	invokeCh chan invocation

	// pending is the reply owed to the browser for the command being
	// handled. closingAll is set when the page unloaded and every open view
	// must return. Only the goroutine running Show touches either.
	pending    chan invokeReply
	closingAll bool
}

// NewWeb creates a web surface. Call Start before Show.
func NewWeb(opts WebOptions) *Web {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Listen == "" {
		opts.Listen = "127.0.0.1:0"
	}
	if opts.Opener == nil {
		opts.Opener = Browser
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = rate.Every(time.Second / 10)
	}
	if opts.Burst == 0 {
		opts.Burst = 20
	}

	w := &Web{
		opts:     opts,
		logger:   opts.Logger,
		limiter:  rate.NewLimiter(opts.RateLimit, opts.Burst),
		invokeCh: make(chan invocation),
	}
	w.engine = w.routes()
	return w
}

func (w *Web) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(w.requestLogger())

	r.GET("/", w.handleIndex)
	r.GET("/v/:token/", w.handlePage)
	r.POST("/v/:token/invoke", w.handleInvoke)
	return r
}

// Handler exposes the HTTP handler, mainly for tests.
func (w *Web) Handler() http.Handler {
	return w.engine
}

// Start listens on the configured address and serves in the background.
func (w *Web) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", w.opts.Listen)
	if err != nil {
		return &Error{Surface: "web", Err: err}
	}
	w.listener = ln
	w.server = &http.Server{
		Handler:           w.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.logger.Error("web display server stopped", "error", err)
		}
	}(w.server)

	w.logger.Debug("web display listening", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the server down.
func (w *Web) Stop(ctx context.Context) error {
	w.mu.Lock()
	srv := w.server
	w.server = nil
	w.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Addr returns the listening address, or "" before Start.
func (w *Web) Addr() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.listener == nil {
		return ""
	}
	return w.listener.Addr().String()
}

// Show implements Surface.
func (w *Web) Show(ctx context.Context, view present.View, handle Handler) error {
	if w.Addr() == "" {
		return &Error{Surface: "web", Err: errors.New("server not started")}
	}
	if w.closingAll {
		// A parent is unwinding after the tab closed; nothing would show this.
		return nil
	}

	token, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return &Error{Surface: "web", Err: err}
	}
	tok := token.String()
	loc := pagePath(tok)

	w.mu.Lock()
	w.stack = append(w.stack, &webPage{token: tok, html: view.HTML})
	depth := len(w.stack)
	w.mu.Unlock()

	defer w.pop()

	switch {
	case w.pending != nil:
		// A command on the parent view opened this one; send the browser here.
		w.reply(invokeReply{Location: loc})
	case depth == 1:
		w.present(loc, view.Kind)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case inv := <-w.invokeCh:
			if inv.token != tok {
				inv.reply <- invokeReply{Error: "view is no longer active"}
				continue
			}

			cmd, err := present.ParseCommand(inv.message)
			if err != nil {
				w.logger.Warn("ignoring command", "message", truncate(inv.message, 80), "error", err)
				inv.reply <- invokeReply{Location: loc}
				continue
			}

			w.pending = inv.reply
			switch cmd.(type) {
			case present.Close:
				return nil
			case present.Unload:
				w.closingAll = true
				return nil
			}

			err = handle(cmd)
			if errors.Is(err, ErrCloseView) || w.closingAll {
				return nil
			}
			if err != nil {
				w.logger.Warn("command failed", "command", cmd.Name(), "error", err)
				w.reply(invokeReply{Location: loc, Error: err.Error()})
				continue
			}
			w.reply(invokeReply{Location: loc})
		}
	}
}

// reply answers the pending invocation, if any.
func (w *Web) reply(r invokeReply) {
	if w.pending != nil {
		w.pending <- r
		w.pending = nil
	}
}

func (w *Web) pop() {
	w.mu.Lock()
	w.stack = w.stack[:len(w.stack)-1]
	empty := len(w.stack) == 0
	w.mu.Unlock()

	// The parent's loop answers for nested views; the last view answers itself.
	if empty {
		w.reply(invokeReply{Closed: true})
		w.closingAll = false
	}
}

func (w *Web) present(loc string, kind present.Kind) {
	full := "http://" + w.Addr() + loc
	if !w.opts.OpenBrowser {
		w.logger.Info("view ready", "kind", kind, "url", full)
		return
	}
	if err := w.opts.Opener.Open(full); err != nil {
		w.logger.Warn("failed to open browser", "url", full, "error", err)
	}
}

// active returns the top-most page.
func (w *Web) active() *webPage {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.stack) == 0 {
		return nil
	}
	return w.stack[len(w.stack)-1]
}

func (w *Web) handleIndex(c *gin.Context) {
	if page := w.active(); page != nil {
		c.Redirect(http.StatusFound, pagePath(page.token))
		return
	}
	c.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte(goneHTML))
}

func (w *Web) handlePage(c *gin.Context) {
	page := w.active()
	if page == nil || page.token != c.Param("token") {
		c.Data(http.StatusGone, "text/html; charset=utf-8", []byte(goneHTML))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page.html))
}

func (w *Web) handleInvoke(c *gin.Context) {
	if !w.limiter.Allow() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}
	if origin := c.GetHeader("Origin"); origin != "" && origin != "http://"+c.Request.Host {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "cross-origin request"})
		return
	}

	token := c.Param("token")
	if page := w.active(); page == nil || page.token != token {
		c.AbortWithStatusJSON(http.StatusGone, gin.H{"error": "view is no longer active"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMessageSize))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	inv := invocation{token: token, message: string(body), reply: make(chan invokeReply, 1)}
	select {
	case w.invokeCh <- inv:
	case <-time.After(invokeTimeout):
		c.AbortWithStatusJSON(http.StatusGone, gin.H{"error": "view is no longer active"})
		return
	case <-c.Request.Context().Done():
		return
	}

	select {
	case r := <-inv.reply:
		status := http.StatusOK
		if r.Location == "" && !r.Closed && r.Error != "" {
			status = http.StatusGone
		}
		c.JSON(status, r)
	case <-c.Request.Context().Done():
	}
}

func (w *Web) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		w.logger.Debug("web request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func pagePath(token string) string {
	return "/v/" + token + "/"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
