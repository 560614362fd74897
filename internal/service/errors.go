package service

import "errors"

// Sentinel errors returned by the services. Handlers and the realtime
// gateway map these to HTTP statuses / ack failure strings; anything
// not in this list is an internal error.
var (
	// validation
	ErrSelfConnection   = errors.New("cannot send a spark to yourself")
	ErrSelfConversation = errors.New("cannot start a conversation with yourself")
	ErrEmptyMessage     = errors.New("message body is empty")
	ErrMessageTooLong   = errors.New("message body is too long")

	// not found
	ErrTargetNotFound     = errors.New("user not found")
	ErrConnectionNotFound = errors.New("connection not found")
	// Deliberately also covers non-participant access so a
	// conversation's existence never leaks to outsiders.
	ErrConversationNotFound = errors.New("conversation not found")

	// authorization
	ErrNotRecipient   = errors.New("only the request recipient can respond")
	ErrNotRequester   = errors.New("only the request sender can cancel")
	ErrNotParticipant = errors.New("not a participant of this connection")
	ErrNotConnected   = errors.New("user is not in your circle")

	// conflict: action illegal for the entity's current status
	ErrConnectionConflict = errors.New("action not allowed in the connection's current state")
)
