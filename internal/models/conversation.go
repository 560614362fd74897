package models

import (
	"database/sql"
	"time"
)

// Conversation is a direct channel between exactly two users, created
// lazily on first message intent between accepted peers. One row per
// unordered pair, same pair-key scheme as connections.
type Conversation struct {
	ID                  int            `db:"id" json:"id"`
	PairKey             string         `db:"pair_key" json:"-"`
	IsDirect            bool           `db:"is_direct" json:"is_direct"`
	User1ID             int            `db:"user1_id" json:"user1_id"`
	User1Handle         string         `db:"user1_handle" json:"user1_handle"`
	User1Name           string         `db:"user1_name" json:"user1_name"`
	User1Avatar         string         `db:"user1_avatar" json:"user1_avatar"`
	User2ID             int            `db:"user2_id" json:"user2_id"`
	User2Handle         string         `db:"user2_handle" json:"user2_handle"`
	User2Name           string         `db:"user2_name" json:"user2_name"`
	User2Avatar         string         `db:"user2_avatar" json:"user2_avatar"`
	LastMessageText     sql.NullString `db:"last_message_text" json:"-"`
	LastMessageAt       sql.NullTime   `db:"last_message_at" json:"-"`
	LastMessageSenderID sql.NullInt64  `db:"last_message_sender_id" json:"-"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
}

// Involves reports whether the user is a participant.
func (c Conversation) Involves(userID int) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// PeerOf returns the other participant's snapshot.
func (c Conversation) PeerOf(userID int) UserSnapshot {
	if c.User1ID == userID {
		return UserSnapshot{ID: c.User2ID, Handle: c.User2Handle, DisplayName: c.User2Name, AvatarURL: c.User2Avatar}
	}
	return UserSnapshot{ID: c.User1ID, Handle: c.User1Handle, DisplayName: c.User1Name, AvatarURL: c.User1Avatar}
}

// ParticipantIDs returns both participant ids.
func (c Conversation) ParticipantIDs() []int {
	return []int{c.User1ID, c.User2ID}
}

// ConversationSummary is the API-facing view for conversation lists.
type ConversationSummary struct {
	ID                  int          `json:"id"`
	Peer                UserSnapshot `json:"peer"`
	LastMessageText     string       `json:"last_message_text,omitempty"`
	LastMessageAt       *time.Time   `json:"last_message_at,omitempty"`
	LastMessageSenderID int          `json:"last_message_sender_id,omitempty"`
	UnreadCount         int          `json:"unread_count"`
	CreatedAt           time.Time    `json:"created_at"`
}

// Summarize builds the caller-relative summary for a conversation.
func (c Conversation) Summarize(userID int, unread int) ConversationSummary {
	s := ConversationSummary{
		ID:          c.ID,
		Peer:        c.PeerOf(userID),
		UnreadCount: unread,
		CreatedAt:   c.CreatedAt,
	}
	if c.LastMessageText.Valid {
		s.LastMessageText = c.LastMessageText.String
	}
	if c.LastMessageAt.Valid {
		t := c.LastMessageAt.Time
		s.LastMessageAt = &t
	}
	if c.LastMessageSenderID.Valid {
		s.LastMessageSenderID = int(c.LastMessageSenderID.Int64)
	}
	return s
}
