package entities

import (
	"strconv"
	"time"
)

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
	NotificationSuccess NotificationType = "success"
)

type Notification struct {
	ID      string
	Type    NotificationType
	Title   string
	Message string
	Date    time.Time
	Read    bool
}

// NewNotification stamps the id from the creation timestamp. Ids are only
// used for dismissal of the currently rendered list, so collisions between
// notifications created in the same nanosecond are tolerated.
func NewNotification(typ NotificationType, title, message string, now time.Time) Notification {
	return Notification{
		ID:      strconv.FormatInt(now.UnixNano(), 10),
		Type:    typ,
		Title:   title,
		Message: message,
		Date:    now,
	}
}
