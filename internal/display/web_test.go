package display

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/cmsnotifs/internal/config"
	"github.com/jmylchreest/cmsnotifs/internal/present"
)

type webHarness struct {
	web    *Web
	opened chan string
}

func newWebHarness(t *testing.T) *webHarness {
	t.Helper()
	h := &webHarness{opened: make(chan string, 4)}
	h.web = NewWeb(WebOptions{
		Listen:      "127.0.0.1:0",
		OpenBrowser: true,
		Opener: OpenerFunc(func(rawURL string) error {
			h.opened <- rawURL
			return nil
		}),
	})
	require.NoError(t, h.web.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.web.Stop(ctx)
	})
	return h
}

func (h *webHarness) waitOpened(t *testing.T) string {
	t.Helper()
	select {
	case raw := <-h.opened:
		u, err := url.Parse(raw)
		require.NoError(t, err)
		return u.Path
	case <-time.After(5 * time.Second):
		t.Fatal("view was not opened")
		return ""
	}
}

func (h *webHarness) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := http.Get("http://" + h.web.Addr() + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (h *webHarness) invoke(t *testing.T, path, msg string) (int, invokeReply) {
	t.Helper()
	resp, err := http.Post("http://"+h.web.Addr()+path+"invoke", "text/plain", strings.NewReader(msg))
	require.NoError(t, err)
	defer resp.Body.Close()

	var r invokeReply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
	return resp.StatusCode, r
}

func showAsync(ctx context.Context, w *Web, view present.View, handle Handler) <-chan error {
	done := make(chan error, 1)
	go func() { done <- w.Show(ctx, view, handle) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Show did not return")
		return nil
	}
}

func TestWeb_ShowServesAndDispatches(t *testing.T) {
	h := newWebHarness(t)

	var got []present.Command
	done := showAsync(context.Background(), h.web, present.View{Kind: present.KindNotifications, HTML: "<p>hello</p>"},
		func(cmd present.Command) error {
			got = append(got, cmd)
			return nil
		})

	path := h.waitOpened(t)
	status, body := h.get(t, path)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "<p>hello</p>", body)

	status, r := h.invoke(t, path, "url https://cms.example/mod/forum")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, path, r.Location)

	status, r = h.invoke(t, path, "reboot now")
	assert.Equal(t, http.StatusOK, status, "unknown commands are ignored")
	assert.Equal(t, path, r.Location)

	status, r = h.invoke(t, path, "mark_read ")
	assert.Equal(t, http.StatusOK, status)

	status, r = h.invoke(t, path, "close ")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, r.Closed)

	require.NoError(t, waitDone(t, done))
	assert.Equal(t, []present.Command{present.OpenURL{URL: "https://cms.example/mod/forum"}, present.MarkRead{}}, got)

	status, _ = h.get(t, path)
	assert.Equal(t, http.StatusGone, status)
}

func TestWeb_NestedViewGatesStaleToken(t *testing.T) {
	h := newWebHarness(t)
	ctx := context.Background()

	saved := make(chan config.Config, 1)
	nestedHandle := func(cmd present.Command) error {
		if sc, ok := cmd.(present.SaveConfig); ok {
			saved <- sc.Config
			return ErrCloseView
		}
		return nil
	}

	done := showAsync(ctx, h.web, present.View{HTML: "parent"}, func(cmd present.Command) error {
		if _, ok := cmd.(present.OpenSettings); ok {
			return h.web.Show(ctx, present.View{Kind: present.KindSettings, HTML: "settings"}, nestedHandle)
		}
		return nil
	})

	parent := h.waitOpened(t)

	status, r := h.invoke(t, parent, "settings ")
	require.Equal(t, http.StatusOK, status)
	nested := r.Location
	require.NotEmpty(t, nested)
	assert.NotEqual(t, parent, nested)

	status, _ = h.get(t, parent)
	assert.Equal(t, http.StatusGone, status, "only the top-most view is served")
	status, body := h.get(t, nested)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "settings", body)

	status, _ = h.invoke(t, parent, "mark_read ")
	assert.Equal(t, http.StatusGone, status)

	status, r = h.invoke(t, nested, `config {"moodle_location":"https://cms.example","token":"t"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, parent, r.Location, "closing the nested view returns to the parent")
	assert.Equal(t, config.Config{MoodleLocation: "https://cms.example", Token: "t"}, <-saved)

	status, _ = h.get(t, parent)
	assert.Equal(t, http.StatusOK, status)

	_, r = h.invoke(t, parent, "close ")
	assert.True(t, r.Closed)
	require.NoError(t, waitDone(t, done))
}

func TestWeb_UnloadFromNestedViewClosesEveryView(t *testing.T) {
	h := newWebHarness(t)
	ctx := context.Background()

	nestedDone := make(chan error, 1)
	done := showAsync(ctx, h.web, present.View{HTML: "parent"}, func(cmd present.Command) error {
		if _, ok := cmd.(present.OpenSettings); ok {
			err := h.web.Show(ctx, present.View{Kind: present.KindSettings, HTML: "settings"},
				func(present.Command) error { return nil })
			nestedDone <- err
			return err
		}
		return nil
	})

	parent := h.waitOpened(t)
	_, r := h.invoke(t, parent, "settings ")
	nested := r.Location
	require.NotEmpty(t, nested)

	status, r := h.invoke(t, nested, "unload ")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, r.Closed)
	assert.Empty(t, r.Location)

	require.NoError(t, <-nestedDone)
	require.NoError(t, waitDone(t, done), "the parent view returns once its tab is gone")

	status, _ = h.get(t, parent)
	assert.Equal(t, http.StatusGone, status)
	status, _ = h.get(t, nested)
	assert.Equal(t, http.StatusGone, status)

	// The next view opens normally.
	ctx2, cancel := context.WithCancel(ctx)
	defer cancel()
	next := showAsync(ctx2, h.web, present.View{HTML: "next"}, func(present.Command) error { return nil })
	path := h.waitOpened(t)
	status, body := h.get(t, path)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "next", body)

	_, r = h.invoke(t, path, "unload ")
	assert.True(t, r.Closed)
	require.NoError(t, waitDone(t, next))
}

func TestWeb_HandlerErrorKeepsViewOpen(t *testing.T) {
	h := newWebHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := showAsync(ctx, h.web, present.View{HTML: "x"}, func(cmd present.Command) error {
		return errors.New("server unreachable")
	})
	path := h.waitOpened(t)

	status, r := h.invoke(t, path, "mark_read ")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, path, r.Location)
	assert.Equal(t, "server unreachable", r.Error)

	cancel()
	assert.ErrorIs(t, waitDone(t, done), context.Canceled)
}

func TestWeb_RejectsCrossOrigin(t *testing.T) {
	h := newWebHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := showAsync(ctx, h.web, present.View{HTML: "x"}, func(present.Command) error { return nil })
	path := h.waitOpened(t)

	req, err := http.NewRequest(http.MethodPost, "http://"+h.web.Addr()+path+"invoke", strings.NewReader("mark_read "))
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	cancel()
	<-done
}

func TestWeb_ShowBeforeStart(t *testing.T) {
	w := NewWeb(WebOptions{})
	err := w.Show(context.Background(), present.View{}, func(present.Command) error { return nil })
	require.Error(t, err)
	assert.True(t, IsError(err))
}

func TestWeb_IndexRedirectsToActiveView(t *testing.T) {
	h := newWebHarness(t)

	status, _ := h.get(t, "/")
	assert.Equal(t, http.StatusNotFound, status)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := showAsync(ctx, h.web, present.View{HTML: "active"}, func(present.Command) error { return nil })
	h.waitOpened(t)

	status, body := h.get(t, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "active", body)

	cancel()
	<-done
}
