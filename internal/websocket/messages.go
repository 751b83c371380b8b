package websocket

import (
	"encoding/json"
	"time"

	"github.com/golfclapp/backoffice/internal/pricing"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeSnapshotReplaced   MessageType = "snapshot.replaced"
	TypePriceRangeSaved    MessageType = "price_range.saved"
	TypePriceRangesDeleted MessageType = "price_range.deleted"
	TypeNotification       MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotReplacedPayload is the payload for snapshot.replaced events.
type SnapshotReplacedPayload struct {
	CourseID   string `json:"course_id"`
	RangeCount int    `json:"range_count"`
	Generation uint64 `json:"generation"`
}

// PriceRangeSavedPayload is the payload for price_range.saved events.
type PriceRangeSavedPayload struct {
	Range pricing.PriceRange `json:"range"`
}

// PriceRangesDeletedPayload is the payload for price_range.deleted events.
type PriceRangesDeletedPayload struct {
	CourseID string   `json:"course_id"`
	IDs      []string `json:"ids"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}

// clientMessage is a command sent by the browser.
type clientMessage struct {
	Type MessageType `json:"type"`
}

// Reply answers one message received from a client.
func Reply(data []byte) Message {
	var in clientMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return NewMessage(TypeError, ErrorPayload{Code: "invalid_message", Message: "message is not valid JSON"})
	}

	switch in.Type {
	case TypePing:
		return NewMessage(TypePong, nil)
	default:
		return NewMessage(TypeError, ErrorPayload{
			Code:         "unknown_type",
			Message:      "unsupported message type",
			OriginalType: string(in.Type),
		})
	}
}
