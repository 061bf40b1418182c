// Package moodle talks to the Moodle REST web service.
package moodle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/cmsnotifs/internal/config"
	"github.com/jmylchreest/cmsnotifs/internal/model"
)

// Endpoint templates. The first '@' is replaced by the token.
const (
	FetchEndpoint    = "/webservice/rest/server.php?wsfunction=message_popup_get_popup_notifications&moodlewsrestformat=json&wstoken=@&limit=100&offset=0&useridto=0"
	MarkReadEndpoint = "/webservice/rest/server.php?wsfunction=core_message_mark_all_notifications_as_read&moodlewsrestformat=json&wstoken=@"
)

// DefaultTimeout applies when NewClient is given a non-positive timeout.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response is read.
const maxBodySize = 8 << 20

// Tokenize substitutes token for the first '@' in template and prefixes base.
func Tokenize(template, base, token string) string {
	return base + strings.Replace(template, "@", token, 1)
}

// MarkReadRequest carries the optional mark-all-read parameters.
// Zero values are omitted from the request.
type MarkReadRequest struct {
	UserID        int64
	TimeCreatedTo int64
}

// Client fetches notifications and marks them read.
// A single GET per call, no retries.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
}

// NewClient creates a client whose requests time out after timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		userAgent:  "cmsnotifs",
	}
}

// SetUserAgent overrides the User-Agent header.
func (c *Client) SetUserAgent(ua string) {
	c.userAgent = ua
}

// Fetch retrieves the current user's popup notifications.
func (c *Client) Fetch(ctx context.Context, cfg config.Config) (*model.NotificationSet, error) {
	endpoint := Tokenize(FetchEndpoint, cfg.MoodleLocation, cfg.Token)

	c.logger.Debug("fetching notifications", "url", redact(endpoint))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	set, err := DecodeNotifications(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched notifications", "count", len(set.Notifications), "unread", set.UnreadCount)
	return set, nil
}

// MarkAllRead asks the server to mark every notification read.
// The server's response is logged; no local state is updated.
func (c *Client) MarkAllRead(ctx context.Context, cfg config.Config, req MarkReadRequest) error {
	endpoint := Tokenize(MarkReadEndpoint, cfg.MoodleLocation, cfg.Token)
	if req.UserID != 0 {
		endpoint += "&useridto=" + strconv.FormatInt(req.UserID, 10)
	}
	if req.TimeCreatedTo != 0 {
		endpoint += "&timecreatedto=" + strconv.FormatInt(req.TimeCreatedTo, 10)
	}

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}

	c.logger.Debug("mark as read server response", "body", string(body))
	return checkException(body)
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{URL: redact(endpoint), Err: unwrapURLError(err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: redact(endpoint), Err: unwrapURLError(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{URL: redact(endpoint), Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			URL:        redact(endpoint),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return body, nil
}

// unwrapURLError drops the *url.Error wrapper, whose message repeats the
// request URL including the token.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

// redact hides the wstoken query value.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if q.Has("wstoken") {
		q.Set("wstoken", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
