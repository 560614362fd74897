package ws

import "spark-service/internal/models"

// Client→server actions accepted over the realtime channel.
const (
	ActionJoinConversation  = "join-conversation"
	ActionLeaveConversation = "leave-conversation"
	ActionSendMessage       = "send-message"
)

// ClientAction is an inbound frame from a connected client.
type ClientAction struct {
	Action         string `json:"action"`
	Ref            string `json:"ref,omitempty"`
	ConversationID int    `json:"conversation_id,omitempty"`
	Body           string `json:"body,omitempty"`
}

// Ack answers an inbound action. Failures are named strings the client
// can render inline; the socket itself stays open.
type Ack struct {
	Event   string          `json:"event"`
	Ref     string          `json:"ref,omitempty"`
	Action  string          `json:"action"`
	OK      bool            `json:"ok"`
	Error   string          `json:"error,omitempty"`
	Message *models.Message `json:"message,omitempty"`
}
