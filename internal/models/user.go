package models

import "time"

// User is a portfolio owner. Only the identity fields the social core
// needs live here; profile content is owned elsewhere.
type User struct {
	ID          int       `db:"id" json:"id"`
	Handle      string    `db:"handle" json:"handle"`
	DisplayName string    `db:"display_name" json:"display_name"`
	AvatarURL   string    `db:"avatar_url" json:"avatar_url"`
	Email       string    `db:"email" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// UserSnapshot is a point-in-time identity copy denormalized onto
// connections, conversations and messages. It is refreshed on the next
// mutating action, not kept live.
type UserSnapshot struct {
	ID          int    `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Snapshot copies the identity fields of a user.
func (u User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:          u.ID,
		Handle:      u.Handle,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}
