package models

import "time"

// Realtime event names pushed to connected clients.
const (
	EventMessage            = "message"
	EventConversationUpdate = "conversation-update"
	EventReadReceipt        = "read-receipt"
	EventConnectionUpdate   = "connection-update"
)

// Connection-update types.
const (
	ConnectionEventIncoming = "incoming"
	ConnectionEventAccepted = "accepted"
	ConnectionEventDeclined = "declined"
	ConnectionEventCanceled = "canceled"
	ConnectionEventRemoved  = "removed"
)

// RealtimeEnvelope is the wire frame for every server→client push.
type RealtimeEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// MessageEvent carries a newly created message to a conversation room.
type MessageEvent struct {
	ConversationID int     `json:"conversation_id"`
	Message        Message `json:"message"`
}

// ReadReceiptEvent tells the conversation room how many messages a
// participant just marked read.
type ReadReceiptEvent struct {
	ConversationID int `json:"conversation_id"`
	UserID         int `json:"user_id"`
	ReadCount      int `json:"read_count"`
}

// ConnectionUpdateEvent is pushed to user rooms on spark lifecycle
// changes.
type ConnectionUpdateEvent struct {
	Type         string       `json:"type"`
	ConnectionID int          `json:"connection_id"`
	FromUser     UserSnapshot `json:"from_user"`
	ToUser       UserSnapshot `json:"to_user"`
	At           time.Time    `json:"at"`
}
