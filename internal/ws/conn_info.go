package ws

import "time"

// ConnInfo describes one live realtime connection. The identity
// fields are the canonical user record resolved at handshake time,
// never raw token claims or headers.
type ConnInfo struct {
	ConnID      string
	UserID      int
	Handle      string
	DisplayName string
	AvatarURL   string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
