// Package notify derives user-visible notifications from detected state
// transitions. Appending is pure: callers pass the current list and get a
// new one back, with the dedupe rule chosen per call site.
package notify

import (
	"strings"
	"time"

	"github.com/mobihelp/sync-service/internal/entities"
)

// Deduper reports whether candidate is a duplicate of something already in
// the list and must not be appended.
type Deduper func(existing []entities.Notification, candidate entities.Notification) bool

// Append returns the list with candidate added, unless isDup suppresses it.
// The input slice is never mutated in place.
func Append(current []entities.Notification, candidate entities.Notification, isDup Deduper) []entities.Notification {
	if isDup != nil && isDup(current, candidate) {
		return current
	}
	out := make([]entities.Notification, 0, len(current)+1)
	out = append(out, current...)
	return append(out, candidate)
}

// ExactMessage suppresses a candidate whose message text already appears
// verbatim in the list. Used for order rejection notices.
func ExactMessage(existing []entities.Notification, candidate entities.Notification) bool {
	for _, n := range existing {
		if n.Message == candidate.Message {
			return true
		}
	}
	return false
}

// TitleAndPrefixWithin suppresses a candidate when the list already holds a
// notification with the same title and a message sharing prefix, created no
// longer than window before the candidate. Used for subscription-cancel
// notices, where repeated reconciliation ticks would otherwise spam the
// list until the correction is durably saved.
func TitleAndPrefixWithin(prefix string, window time.Duration) Deduper {
	return func(existing []entities.Notification, candidate entities.Notification) bool {
		for _, n := range existing {
			if n.Title != candidate.Title {
				continue
			}
			if !strings.HasPrefix(n.Message, prefix) {
				continue
			}
			if candidate.Date.Sub(n.Date) <= window {
				return true
			}
		}
		return false
	}
}

// Dismiss removes the notification with the given id, if present.
func Dismiss(current []entities.Notification, id string) []entities.Notification {
	out := make([]entities.Notification, 0, len(current))
	for _, n := range current {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}
