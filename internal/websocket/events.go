package websocket

import (
	"log/slog"

	"github.com/golfclapp/backoffice/internal/pricing"
)

// EventBroadcaster turns panel events into messages for a session's clients.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// SnapshotReplaced announces that a session's snapshot was swapped.
func (b *EventBroadcaster) SnapshotReplaced(sessionID, courseID string, rangeCount int, generation uint64) {
	b.send(sessionID, NewMessage(TypeSnapshotReplaced, SnapshotReplacedPayload{
		CourseID:   courseID,
		RangeCount: rangeCount,
		Generation: generation,
	}))
}

// PriceRangeSaved announces a created or updated range.
func (b *EventBroadcaster) PriceRangeSaved(sessionID string, r pricing.PriceRange) {
	b.send(sessionID, NewMessage(TypePriceRangeSaved, PriceRangeSavedPayload{Range: r}))
}

// PriceRangesDeleted announces deleted ranges.
func (b *EventBroadcaster) PriceRangesDeleted(sessionID, courseID string, ids []string) {
	b.send(sessionID, NewMessage(TypePriceRangesDeleted, PriceRangesDeletedPayload{CourseID: courseID, IDs: ids}))
}

// Notify sends a notification to a session's clients.
func (b *EventBroadcaster) Notify(sessionID, level, title, message string) {
	b.send(sessionID, NewMessage(TypeNotification, NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}))
}

// NotifyAll sends a notification to every connected client.
func (b *EventBroadcaster) NotifyAll(level, title, message string) {
	b.send("", NewMessage(TypeNotification, NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}))
}

func (b *EventBroadcaster) send(sessionID string, msg Message) {
	data, err := msg.JSON()
	if err != nil {
		slog.Error("encoding websocket message", "type", msg.Type, "error", err)
		return
	}
	if sessionID == "" {
		b.hub.Broadcast(data)
		return
	}
	b.hub.SendTo(sessionID, data)
}
