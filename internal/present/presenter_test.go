package present

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/cmsnotifs/internal/config"
	"github.com/jmylchreest/cmsnotifs/internal/model"
)

var testConfig = config.Config{MoodleLocation: "https://cms.example", Token: "tok"}

func newTestPresenter(t *testing.T) *Presenter {
	t.Helper()
	p, err := New(Options{})
	require.NoError(t, err)
	return p
}

func TestPresenter_NotificationsSampleBody(t *testing.T) {
	p := newTestPresenter(t)
	set := &model.NotificationSet{
		Notifications: []model.Notification{{ID: 1, Subject: "Test", UserIDTo: 7, TimeCreatedPretty: "now"}},
		UnreadCount:   1,
	}

	v, err := p.Notifications(set, testConfig)
	require.NoError(t, err)

	assert.Equal(t, KindNotifications, v.Kind)
	assert.Equal(t, 1, strings.Count(v.HTML, "<li"))
	assert.Contains(t, v.HTML, "Test")
	assert.Contains(t, v.HTML, "now")
	assert.Contains(t, v.HTML, "1 unread notifications")

	require.Len(t, v.Items, 1)
	item := v.Items[0]
	assert.Equal(t, "Test", item.Subject)
	assert.Equal(t, "now", item.Created)
	assert.Equal(t, model.DefaultDetail, item.Detail)
	assert.Equal(t, "https://cms.example", item.Link, "missing contexturl falls back to the base URL")
}

func TestPresenter_NotificationsButtons(t *testing.T) {
	p := newTestPresenter(t)
	set := &model.NotificationSet{
		Notifications: []model.Notification{{
			ID: 2, Subject: "Quiz", UserIDTo: 7, TimeCreatedPretty: "1 hour ago",
			ContextURL: model.StringPtr("https://cms.example/mod/quiz/view.php?id=9"),
			Text:       model.StringPtr("Opens **tomorrow**"),
		}},
		UnreadCount: 3,
	}

	v, err := p.Notifications(set, testConfig)
	require.NoError(t, err)

	for _, want := range []string{
		"3 unread notifications",
		"Mark as read",
		"Open CMS",
		"Settings",
		"sendMessage('mark_read', '')",
		"sendMessage('settings', '')",
		"<strong>tomorrow</strong>",
		"mod/quiz/view.php?id=9",
		"function sendMessage(command, data)",
		"--cms-bg",
	} {
		assert.Contains(t, v.HTML, want)
	}
}

func TestPresenter_NotificationsEscapesUserData(t *testing.T) {
	p := newTestPresenter(t)
	set := &model.NotificationSet{
		Notifications: []model.Notification{{
			ID: 3, Subject: "<script>alert(1)</script>", UserIDTo: 7, TimeCreatedPretty: "now",
			Text:       model.StringPtr("<img src=x onerror=alert(1)>"),
			ContextURL: model.StringPtr("javascript:alert(1)');alert('x"),
		}},
		UnreadCount: 1,
	}

	v, err := p.Notifications(set, testConfig)
	require.NoError(t, err)

	assert.NotContains(t, v.HTML, "<script>alert(1)</script>")
	assert.Contains(t, v.HTML, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, v.HTML, "<img src=x")
	assert.NotContains(t, v.HTML, "onerror")
	assert.NotContains(t, v.HTML, "');alert('x")
}

func TestPresenter_NotificationsKeepsHTMLDetail(t *testing.T) {
	p := newTestPresenter(t)
	set := &model.NotificationSet{
		Notifications: []model.Notification{{
			ID: 4, Subject: "Lab 3", UserIDTo: 7, TimeCreatedPretty: "now",
			Text: model.StringPtr(`<p>Your submission for Lab 3 has been graded.</p>` +
				`<p><a href="https://cms.example/mod/assign/view.php?id=5">View feedback</a></p>` +
				`<script>alert(1)</script>`),
		}},
		UnreadCount: 1,
	}

	v, err := p.Notifications(set, testConfig)
	require.NoError(t, err)

	require.Len(t, v.Items, 1)
	detail := string(v.Items[0].DetailHTML)
	assert.Contains(t, detail, "<p>Your submission for Lab 3 has been graded.</p>")
	assert.Contains(t, detail, `href="https://cms.example/mod/assign/view.php?id=5"`)
	assert.NotContains(t, detail, "raw HTML omitted")
	assert.NotContains(t, detail, "<script")

	assert.Contains(t, v.HTML, "Lab 3 has been graded")
	assert.NotContains(t, v.HTML, "alert(1)")
}

func TestPresenter_Error(t *testing.T) {
	p := newTestPresenter(t)

	v, err := p.Error("request to https://cms.example failed: HTTP 503")
	require.NoError(t, err)

	assert.Equal(t, KindError, v.Kind)
	assert.Contains(t, v.HTML, "<h1 class=\"cms-heading\">Error</h1>")
	assert.Contains(t, v.HTML, "<pre>request to https://cms.example failed: HTTP 503</pre>")
	assert.Contains(t, v.HTML, "sendMessage('settings', '')")
	assert.Contains(t, v.HTML, ErrorHint)
	assert.NotContains(t, v.HTML, "mark_read")
}

func TestPresenter_Settings(t *testing.T) {
	p := newTestPresenter(t)

	v, err := p.Settings(testConfig)
	require.NoError(t, err)

	assert.Equal(t, KindSettings, v.Kind)
	assert.Equal(t, testConfig, v.Config)
	assert.Contains(t, v.HTML, `value="https://cms.example"`)
	assert.Contains(t, v.HTML, `type="password"`)
	assert.Contains(t, v.HTML, `sendMessage("config"`)
	assert.Contains(t, v.HTML, "Security Keys")
}

func TestPresenter_UserTheme(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mine.css"), []byte("body { color: #abcdef; }"), 0644))

	p, err := New(Options{Theme: "mine", ThemesDir: dir})
	require.NoError(t, err)

	v, err := p.Error("boom")
	require.NoError(t, err)
	assert.Contains(t, v.HTML, "#abcdef")
}
