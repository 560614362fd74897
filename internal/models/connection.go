package models

import (
	"database/sql"
	"fmt"
	"time"
)

// Connection statuses. A connection starts as a directed pending
// request and becomes symmetric once accepted. Declined rows are kept
// so a later re-request resurrects the same pair-keyed row.
const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
	ConnectionDeclined = "declined"
)

// Connection states as reported to API callers.
const (
	StatePendingOutgoing = "pending_outgoing"
	StatePendingIncoming = "pending_incoming"
	StateConnected       = "connected"
	StateDeclined        = "declined"
	StateNone            = "none"
)

// Connection is the single source of truth for "who may message whom".
// Exactly one row exists per unordered user pair, enforced by the
// UNIQUE pair_key.
type Connection struct {
	ID              int          `db:"id" json:"id"`
	PairKey         string       `db:"pair_key" json:"-"`
	RequesterID     int          `db:"requester_id" json:"requester_id"`
	RequesterHandle string       `db:"requester_handle" json:"requester_handle"`
	RequesterName   string       `db:"requester_name" json:"requester_name"`
	RequesterAvatar string       `db:"requester_avatar" json:"requester_avatar"`
	RecipientID     int          `db:"recipient_id" json:"recipient_id"`
	RecipientHandle string       `db:"recipient_handle" json:"recipient_handle"`
	RecipientName   string       `db:"recipient_name" json:"recipient_name"`
	RecipientAvatar string       `db:"recipient_avatar" json:"recipient_avatar"`
	Status          string       `db:"status" json:"status"`
	RespondedAt     sql.NullTime `db:"responded_at" json:"-"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
}

// PairKey builds the order-independent key for a two-user relationship.
func PairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// Involves reports whether the user is either side of the connection.
func (c Connection) Involves(userID int) bool {
	return c.RequesterID == userID || c.RecipientID == userID
}

// PeerOf returns the other participant's id.
func (c Connection) PeerOf(userID int) int {
	if c.RequesterID == userID {
		return c.RecipientID
	}
	return c.RequesterID
}

// Requester returns the requester side as a snapshot.
func (c Connection) Requester() UserSnapshot {
	return UserSnapshot{ID: c.RequesterID, Handle: c.RequesterHandle, DisplayName: c.RequesterName, AvatarURL: c.RequesterAvatar}
}

// Recipient returns the recipient side as a snapshot.
func (c Connection) Recipient() UserSnapshot {
	return UserSnapshot{ID: c.RecipientID, Handle: c.RecipientHandle, DisplayName: c.RecipientName, AvatarURL: c.RecipientAvatar}
}

// StateFor maps the stored status to the caller-relative state string.
func (c Connection) StateFor(userID int) string {
	switch c.Status {
	case ConnectionAccepted:
		return StateConnected
	case ConnectionDeclined:
		return StateDeclined
	case ConnectionPending:
		if c.RequesterID == userID {
			return StatePendingOutgoing
		}
		return StatePendingIncoming
	}
	return StateNone
}
