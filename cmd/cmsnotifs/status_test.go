package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/cmsnotifs/internal/model"
)

func TestBuildStatus(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		s := buildStatus(nil, errors.New("request failed: HTTP 503"))
		assert.Equal(t, "error", s.Class)
		assert.Empty(t, s.Text)
		assert.Equal(t, "request failed: HTTP 503", s.Tooltip)
	})

	t.Run("empty", func(t *testing.T) {
		s := buildStatus(&model.NotificationSet{}, nil)
		assert.Equal(t, WaybarStatus{Alt: "empty", Class: "empty", Tooltip: "No unread notifications"}, s)
	})

	t.Run("unread", func(t *testing.T) {
		s := buildStatus(&model.NotificationSet{Notifications: checkFixture(), UnreadCount: 3}, nil)
		assert.Equal(t, "3", s.Text)
		assert.Equal(t, "unread", s.Class)
		assert.Equal(t, 3, s.Percentage)
		assert.Equal(t, "3 unread\n• Old forum post\n• Quiz opens\n• Grade released", s.Tooltip)
	})

	t.Run("long tooltip", func(t *testing.T) {
		ns := make([]model.Notification, 12)
		for i := range ns {
			ns[i] = model.Notification{ID: int64(i + 1), Subject: "n"}
		}
		s := buildStatus(&model.NotificationSet{Notifications: ns, UnreadCount: 150}, nil)
		assert.Equal(t, 100, s.Percentage)
		lines := strings.Split(s.Tooltip, "\n")
		assert.Len(t, lines, 12)
		assert.Equal(t, "... and 2 more", lines[11])
	})
}
