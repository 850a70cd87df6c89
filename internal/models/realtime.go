package models

import "time"

// DeliveryPayload is the wire shape of a chat message for both live push and
// queued delivery.
type DeliveryPayload struct {
	Text       string    `json:"text"`
	SenderName string    `json:"senderName"`
	SenderID   string    `json:"senderId"`
	ChatViewID string    `json:"chatViewId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewDeliveryPayload builds the payload for a persisted message.
func NewDeliveryPayload(msg *Message, senderName string) DeliveryPayload {
	return DeliveryPayload{
		Text:       msg.Text,
		SenderName: senderName,
		SenderID:   msg.SenderID,
		ChatViewID: msg.ChatViewID,
		CreatedAt:  msg.CreatedAt.UTC(),
	}
}

// Frame types exchanged over the websocket.
const (
	FrameSend               = "send"
	FrameSubscribe          = "subscribe"
	FrameMessage            = "message"
	FrameSystemNotification = "system_notification"
	FrameError              = "error"
)

// InboundFrame is what a client writes to the websocket.
type InboundFrame struct {
	Type        string    `json:"type"`
	ChatViewID  string    `json:"chatViewId,omitempty"`
	Text        string    `json:"text,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
	Destination string    `json:"destination,omitempty"`
}

// OutboundFrame is what the server writes to the websocket.
type OutboundFrame struct {
	Type        string `json:"type"`
	Destination string `json:"destination"`
	Payload     any    `json:"payload"`
}

// SystemNotification is pushed on the notification destination.
type SystemNotification struct {
	Kind       string    `json:"kind"`
	ChatViewID string    `json:"chatViewId"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

const NotificationMembershipAdded = "membership_added"
