package moodle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmylchreest/cmsnotifs/internal/model"
)

// Wire shapes use pointers so absent keys can be told apart from zero values.
type wireSet struct {
	Notifications *[]wireNotification `json:"notifications"`
	UnreadCount   *int                `json:"unreadcount"`
}

type wireNotification struct {
	ID                *int64  `json:"id"`
	Subject           *string `json:"subject"`
	Text              *string `json:"text"`
	ContextURL        *string `json:"contexturl"`
	UserIDTo          *int64  `json:"useridto"`
	TimeCreatedPretty *string `json:"timecreatedpretty"`
	TimeCreated       *int64  `json:"timecreated"`
	Read              *bool   `json:"read"`
}

// checkException returns an APIError when body is a Moodle exception payload.
func checkException(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var apiErr APIError
	if err := json.Unmarshal(trimmed, &apiErr); err != nil {
		return nil
	}
	if apiErr.Exception == "" && apiErr.ErrorCode == "" {
		return nil
	}
	return &apiErr
}

// DecodeNotifications parses a popup-notifications response body.
func DecodeNotifications(body []byte) (*model.NotificationSet, error) {
	if err := checkException(body); err != nil {
		return nil, err
	}

	var wire wireSet
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if wire.Notifications == nil {
		return nil, &DecodeError{Err: errors.New("missing notifications")}
	}
	if wire.UnreadCount == nil {
		return nil, &DecodeError{Err: errors.New("missing unreadcount")}
	}
	if *wire.UnreadCount < 0 {
		return nil, &DecodeError{Err: fmt.Errorf("negative unreadcount %d", *wire.UnreadCount)}
	}

	set := &model.NotificationSet{
		Notifications: make([]model.Notification, 0, len(*wire.Notifications)),
		UnreadCount:   *wire.UnreadCount,
	}
	for i, w := range *wire.Notifications {
		n, err := w.toModel()
		if err != nil {
			return nil, &DecodeError{Err: fmt.Errorf("notification %d: %w", i, err)}
		}
		set.Notifications = append(set.Notifications, n)
	}
	return set, nil
}

func (w wireNotification) toModel() (model.Notification, error) {
	switch {
	case w.ID == nil:
		return model.Notification{}, errors.New("missing id")
	case w.Subject == nil:
		return model.Notification{}, errors.New("missing subject")
	case w.UserIDTo == nil:
		return model.Notification{}, errors.New("missing useridto")
	case w.TimeCreatedPretty == nil:
		return model.Notification{}, errors.New("missing timecreatedpretty")
	}

	n := model.Notification{
		ID:                *w.ID,
		Subject:           *w.Subject,
		Text:              w.Text,
		ContextURL:        w.ContextURL,
		UserIDTo:          *w.UserIDTo,
		TimeCreatedPretty: *w.TimeCreatedPretty,
	}
	if w.TimeCreated != nil {
		n.TimeCreated = *w.TimeCreated
	}
	if w.Read != nil {
		n.Read = *w.Read
	}
	return n, nil
}
