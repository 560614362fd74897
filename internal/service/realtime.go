package service

// Broadcaster is the fan-out capability the services depend on. The
// websocket hub implements it; environments without a live gateway
// inject NoopBroadcaster. Fan-out is an enhancement, never a
// transactional requirement, so neither method returns an error.
type Broadcaster interface {
	EmitToUsers(userIDs []int, event string, data any)
	EmitToConversation(conversationID int, event string, data any)
}

// NoopBroadcaster drops every emit.
type NoopBroadcaster struct{}

func (NoopBroadcaster) EmitToUsers(userIDs []int, event string, data any) {}

func (NoopBroadcaster) EmitToConversation(conversationID int, event string, data any) {}
