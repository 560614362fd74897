package service

import (
	"context"
	"errors"
	"time"

	"spark-service/internal/models"
	"spark-service/internal/repositories"
)

// ConnectionService owns the spark state machine. It is the single
// source of truth for who may message whom; the conversation service
// consults it before creating anything.
type ConnectionService struct {
	connections repositories.ConnectionRepository
	users       repositories.UserRepository
	broadcaster Broadcaster
	notifier    Notifier
}

// NewConnectionService builds a ConnectionService.
func NewConnectionService(connections repositories.ConnectionRepository, users repositories.UserRepository, broadcaster Broadcaster, notifier Notifier) *ConnectionService {
	return &ConnectionService{
		connections: connections,
		users:       users,
		broadcaster: broadcaster,
		notifier:    notifier,
	}
}

// Request sends (or re-sends) a spark from the actor to the target.
// Exactly one connection row exists per pair, so the outcome depends
// on what that row currently says:
//   - no row: create a pending request
//   - pending, actor is requester: idempotent no-op
//   - pending, actor is recipient: mutual request, auto-accept
//   - accepted: idempotent no-op
//   - declined: resurrect the row as a fresh pending request with
//     swapped snapshots
//
// Returns the connection and the actor-relative state string.
func (s *ConnectionService) Request(ctx context.Context, actor models.UserSnapshot, targetID int) (models.Connection, string, error) {
	if targetID == actor.ID {
		return models.Connection{}, "", ErrSelfConnection
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.Connection{}, "", ErrTargetNotFound
		}
		return models.Connection{}, "", err
	}

	pairKey := models.PairKey(actor.ID, target.ID)

	// Two passes: a lost pair-key race on insert, resurrect or accept
	// means another call just created or transitioned the row, so we
	// re-read once and branch on what it left behind.
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := s.connections.GetByPairKey(ctx, pairKey)
		if errors.Is(err, repositories.ErrConnectionNotFound) {
			conn, created, err := s.connections.CreatePending(ctx, actor, target.Snapshot())
			if err != nil {
				return models.Connection{}, "", err
			}
			if !created {
				continue
			}
			s.fanOut(models.ConnectionEventIncoming, conn, target.ID)
			s.notifier.ConnectionRequested(ctx, target.Snapshot(), actor)
			return conn, models.StatePendingOutgoing, nil
		}
		if err != nil {
			return models.Connection{}, "", err
		}

		switch existing.Status {
		case models.ConnectionPending:
			if existing.RequesterID == actor.ID {
				return existing, models.StatePendingOutgoing, nil
			}
			// The target already sparked the actor: mutual intent,
			// accept on their behalf.
			conn, err := s.accept(ctx, existing, actor)
			if errors.Is(err, repositories.ErrConnectionNotFound) {
				continue
			}
			if err != nil {
				return models.Connection{}, "", err
			}
			return conn, models.StateConnected, nil

		case models.ConnectionAccepted:
			return existing, models.StateConnected, nil

		case models.ConnectionDeclined:
			conn, err := s.connections.Resurrect(ctx, existing.ID, actor, target.Snapshot())
			if errors.Is(err, repositories.ErrConnectionNotFound) {
				continue
			}
			if err != nil {
				return models.Connection{}, "", err
			}
			s.fanOut(models.ConnectionEventIncoming, conn, target.ID)
			s.notifier.ConnectionRequested(ctx, target.Snapshot(), actor)
			return conn, models.StatePendingOutgoing, nil
		}
	}

	return models.Connection{}, "", ErrConnectionConflict
}

// Accept lets the recipient of a pending request accept it.
func (s *ConnectionService) Accept(ctx context.Context, actor models.UserSnapshot, connectionID int) (models.Connection, error) {
	conn, err := s.getConnection(ctx, connectionID)
	if err != nil {
		return models.Connection{}, err
	}
	if conn.RecipientID != actor.ID {
		if !conn.Involves(actor.ID) {
			return models.Connection{}, ErrNotParticipant
		}
		return models.Connection{}, ErrNotRecipient
	}
	if conn.Status != models.ConnectionPending {
		return models.Connection{}, ErrConnectionConflict
	}

	accepted, err := s.accept(ctx, conn, actor)
	if errors.Is(err, repositories.ErrConnectionNotFound) {
		return models.Connection{}, ErrConnectionConflict
	}
	return accepted, err
}

// accept transitions a pending row to accepted with refreshed
// snapshots on both sides, then notifies both participants. The actor
// is always the recipient side of the pending row.
func (s *ConnectionService) accept(ctx context.Context, conn models.Connection, actor models.UserSnapshot) (models.Connection, error) {
	requester := conn.Requester()
	if current, err := s.users.GetByID(ctx, conn.RequesterID); err == nil {
		requester = current.Snapshot()
	}

	accepted, err := s.connections.Accept(ctx, conn.ID, requester, actor)
	if err != nil {
		return models.Connection{}, err
	}

	s.fanOut(models.ConnectionEventAccepted, accepted, accepted.RequesterID, accepted.RecipientID)
	s.notifier.ConnectionAccepted(ctx, accepted.Requester(), accepted.Recipient())
	return accepted, nil
}

// Decline lets the recipient of a pending request decline it. Only the
// original requester is notified.
func (s *ConnectionService) Decline(ctx context.Context, actor models.UserSnapshot, connectionID int) (models.Connection, error) {
	conn, err := s.getConnection(ctx, connectionID)
	if err != nil {
		return models.Connection{}, err
	}
	if conn.RecipientID != actor.ID {
		if !conn.Involves(actor.ID) {
			return models.Connection{}, ErrNotParticipant
		}
		return models.Connection{}, ErrNotRecipient
	}
	if conn.Status != models.ConnectionPending {
		return models.Connection{}, ErrConnectionConflict
	}

	declined, err := s.connections.Decline(ctx, connectionID)
	if errors.Is(err, repositories.ErrConnectionNotFound) {
		return models.Connection{}, ErrConnectionConflict
	}
	if err != nil {
		return models.Connection{}, err
	}

	s.fanOut(models.ConnectionEventDeclined, declined, declined.RequesterID)
	return declined, nil
}

// Cancel lets the requester withdraw a still-pending request. The row
// is hard-deleted: an unsent request has no history worth keeping,
// unlike a declined one.
func (s *ConnectionService) Cancel(ctx context.Context, actor models.UserSnapshot, connectionID int) error {
	conn, err := s.getConnection(ctx, connectionID)
	if err != nil {
		return err
	}
	if conn.RequesterID != actor.ID {
		if !conn.Involves(actor.ID) {
			return ErrNotParticipant
		}
		return ErrNotRequester
	}
	if conn.Status != models.ConnectionPending {
		return ErrConnectionConflict
	}

	if err := s.connections.Delete(ctx, connectionID); err != nil {
		if errors.Is(err, repositories.ErrConnectionNotFound) {
			return ErrConnectionConflict
		}
		return err
	}

	s.fanOut(models.ConnectionEventCanceled, conn, conn.RecipientID)
	return nil
}

// Remove lets either participant dissolve an accepted connection. The
// row transitions to declined rather than being deleted so a future
// re-request resurrects it.
func (s *ConnectionService) Remove(ctx context.Context, actor models.UserSnapshot, connectionID int) (models.Connection, error) {
	conn, err := s.getConnection(ctx, connectionID)
	if err != nil {
		return models.Connection{}, err
	}
	if !conn.Involves(actor.ID) {
		return models.Connection{}, ErrNotParticipant
	}
	if conn.Status != models.ConnectionAccepted {
		return models.Connection{}, ErrConnectionConflict
	}

	removed, err := s.connections.Remove(ctx, connectionID)
	if errors.Is(err, repositories.ErrConnectionNotFound) {
		return models.Connection{}, ErrConnectionConflict
	}
	if err != nil {
		return models.Connection{}, err
	}

	s.fanOut(models.ConnectionEventRemoved, removed, removed.RequesterID, removed.RecipientID)
	return removed, nil
}

// ConnectionView is the caller-relative shape used in listings.
type ConnectionView struct {
	ConnectionID int                 `json:"connection_id"`
	Peer         models.UserSnapshot `json:"peer"`
	State        string              `json:"state"`
	CreatedAt    time.Time           `json:"created_at"`
	RespondedAt  *time.Time          `json:"responded_at,omitempty"`
}

// ConnectionList groups the user's connections the way clients render
// them.
type ConnectionList struct {
	CodeCircles    []ConnectionView `json:"code_circles"`
	IncomingSparks []ConnectionView `json:"incoming_sparks"`
	OutgoingSparks []ConnectionView `json:"outgoing_sparks"`
}

// List returns the user's circle plus pending sparks in both
// directions.
func (s *ConnectionService) List(ctx context.Context, userID int) (ConnectionList, error) {
	conns, err := s.connections.ListForUser(ctx, userID)
	if err != nil {
		return ConnectionList{}, err
	}

	list := ConnectionList{
		CodeCircles:    []ConnectionView{},
		IncomingSparks: []ConnectionView{},
		OutgoingSparks: []ConnectionView{},
	}
	for _, conn := range conns {
		peer := conn.Requester()
		if conn.RequesterID == userID {
			peer = conn.Recipient()
		}
		view := ConnectionView{
			ConnectionID: conn.ID,
			Peer:         peer,
			State:        conn.StateFor(userID),
			CreatedAt:    conn.CreatedAt,
		}
		if conn.RespondedAt.Valid {
			t := conn.RespondedAt.Time
			view.RespondedAt = &t
		}
		switch view.State {
		case models.StateConnected:
			list.CodeCircles = append(list.CodeCircles, view)
		case models.StatePendingIncoming:
			list.IncomingSparks = append(list.IncomingSparks, view)
		case models.StatePendingOutgoing:
			list.OutgoingSparks = append(list.OutgoingSparks, view)
		}
	}
	return list, nil
}

func (s *ConnectionService) getConnection(ctx context.Context, connectionID int) (models.Connection, error) {
	conn, err := s.connections.GetByID(ctx, connectionID)
	if errors.Is(err, repositories.ErrConnectionNotFound) {
		return models.Connection{}, ErrConnectionNotFound
	}
	return conn, err
}

func (s *ConnectionService) fanOut(eventType string, conn models.Connection, userIDs ...int) {
	s.broadcaster.EmitToUsers(userIDs, models.EventConnectionUpdate, models.ConnectionUpdateEvent{
		Type:         eventType,
		ConnectionID: conn.ID,
		FromUser:     conn.Requester(),
		ToUser:       conn.Recipient(),
		At:           time.Now().UTC(),
	})
}
