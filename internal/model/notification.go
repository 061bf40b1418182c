// Package model defines the core data structures for cmsnotifs.
package model

import (
	"errors"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultDetail is shown when a notification carries no detail text.
const DefaultDetail = "Open to view more details"

// NotificationSet is the result of one popup-notifications fetch.
// It is produced fresh for every fetch and never mutated afterwards.
type NotificationSet struct {
	Notifications []Notification `json:"notifications" yaml:"notifications"`
	UnreadCount   int            `json:"unreadcount" yaml:"unreadcount"`
}

// Notification is a single Moodle popup notification.
type Notification struct {
	ID                int64   `json:"id" yaml:"id"`
	Subject           string  `json:"subject" yaml:"subject"`
	Text              *string `json:"text,omitempty" yaml:"text,omitempty"`
	ContextURL        *string `json:"contexturl,omitempty" yaml:"contexturl,omitempty"`
	UserIDTo          int64   `json:"useridto" yaml:"useridto"`
	TimeCreatedPretty string  `json:"timecreatedpretty" yaml:"timecreatedpretty"`

	// TimeCreated is the unix creation time. Older servers omit it.
	TimeCreated int64 `json:"timecreated,omitempty" yaml:"timecreated,omitempty"`

	// Read is set for notifications the user already read. The popup list
	// includes them alongside unread ones.
	Read bool `json:"read,omitempty" yaml:"read,omitempty"`
}

// Validation errors.
var (
	ErrNegativeUnread = errors.New("unreadcount cannot be negative")
	ErrEmptyID        = errors.New("notification id cannot be zero")
)

// Validate checks the invariants the rest of the program relies on.
func (s *NotificationSet) Validate() error {
	if s.UnreadCount < 0 {
		return ErrNegativeUnread
	}
	for i := range s.Notifications {
		if s.Notifications[i].ID == 0 {
			return ErrEmptyID
		}
	}
	return nil
}

// HasUnread reports whether the server says anything is unread.
func (s *NotificationSet) HasUnread() bool {
	return s != nil && s.UnreadCount > 0
}

// RecipientID returns the useridto of the first notification, or 0 when the
// set is empty. Mark-as-read uses it to address the current user.
func (s *NotificationSet) RecipientID() int64 {
	if s == nil || len(s.Notifications) == 0 {
		return 0
	}
	return s.Notifications[0].UserIDTo
}

// LatestCreated returns the newest timecreated in the set (0 if unknown).
func (s *NotificationSet) LatestCreated() int64 {
	if s == nil {
		return 0
	}
	var latest int64
	for _, n := range s.Notifications {
		if n.TimeCreated > latest {
			latest = n.TimeCreated
		}
	}
	return latest
}

// Unread returns the notifications not yet read, in order.
func (s *NotificationSet) Unread() []Notification {
	if s == nil {
		return nil
	}
	var unread []Notification
	for _, n := range s.Notifications {
		if !n.Read {
			unread = append(unread, n)
		}
	}
	return unread
}

// IDs returns the notification ids in order.
func (s *NotificationSet) IDs() []int64 {
	if s == nil {
		return nil
	}
	ids := make([]int64, len(s.Notifications))
	for i, n := range s.Notifications {
		ids[i] = n.ID
	}
	return ids
}

// Link returns the notification's context URL, or fallback when it has none.
func (n *Notification) Link(fallback string) string {
	if n.ContextURL != nil && *n.ContextURL != "" {
		return *n.ContextURL
	}
	return fallback
}

// Detail returns the detail text or DefaultDetail.
func (n *Notification) Detail() string {
	if n.Text != nil && *n.Text != "" {
		return *n.Text
	}
	return DefaultDetail
}

// HasDetail reports whether the server sent detail text.
func (n *Notification) HasDetail() bool {
	return n.Text != nil && *n.Text != ""
}

// Created returns the server's display string for the creation time.
// When the server sent none, a relative time is derived from TimeCreated.
func (n *Notification) Created() string {
	if n.TimeCreatedPretty != "" {
		return n.TimeCreatedPretty
	}
	if n.TimeCreated > 0 {
		return humanize.Time(n.CreatedAt())
	}
	return ""
}

// CreatedAt returns TimeCreated as a time.Time.
func (n *Notification) CreatedAt() time.Time {
	return time.Unix(n.TimeCreated, 0)
}

// StringPtr is a convenience for building optional fields.
func StringPtr(s string) *string {
	return &s
}
