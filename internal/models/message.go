package models

import (
	"time"

	"github.com/lib/pq"
)

// Message is an immutable chat line. The only mutation ever applied is
// appending reader ids to ReadBy; the sender is a reader from the
// start.
type Message struct {
	ID             int           `db:"id" json:"id"`
	ConversationID int           `db:"conversation_id" json:"conversation_id"`
	SenderID       int           `db:"sender_id" json:"sender_id"`
	SenderHandle   string        `db:"sender_handle" json:"sender_handle"`
	SenderName     string        `db:"sender_name" json:"sender_name"`
	SenderAvatar   string        `db:"sender_avatar" json:"sender_avatar"`
	Body           string        `db:"body" json:"body"`
	ReadBy         pq.Int64Array `db:"read_by" json:"read_by"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// ReadByUser reports whether the user is in the reader set.
func (m Message) ReadByUser(userID int) bool {
	for _, id := range m.ReadBy {
		if int(id) == userID {
			return true
		}
	}
	return false
}
