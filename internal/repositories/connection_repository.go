package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"spark-service/internal/models"
)

var ErrConnectionNotFound = errors.New("connection not found")

// ConnectionRepository abstracts spark persistence. Status-changing
// updates carry the expected current status in their WHERE clause so a
// lost race surfaces as ErrConnectionNotFound instead of clobbering a
// concurrent transition.
type ConnectionRepository interface {
	GetByID(ctx context.Context, connectionID int) (models.Connection, error)
	GetByPairKey(ctx context.Context, pairKey string) (models.Connection, error)
	CreatePending(ctx context.Context, requester, recipient models.UserSnapshot) (models.Connection, bool, error)
	Resurrect(ctx context.Context, connectionID int, requester, recipient models.UserSnapshot) (models.Connection, error)
	Accept(ctx context.Context, connectionID int, requester, recipient models.UserSnapshot) (models.Connection, error)
	Decline(ctx context.Context, connectionID int) (models.Connection, error)
	Remove(ctx context.Context, connectionID int) (models.Connection, error)
	Delete(ctx context.Context, connectionID int) error
	ListForUser(ctx context.Context, userID int) ([]models.Connection, error)
}

// ConnectionRepo is a sqlx implementation of ConnectionRepository.
type ConnectionRepo struct {
	db *sqlx.DB
}

// NewConnectionRepo constructs a ConnectionRepo.
func NewConnectionRepo(db *sqlx.DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

const connectionColumns = `id, pair_key, requester_id, requester_handle, requester_name, requester_avatar,
        recipient_id, recipient_handle, recipient_name, recipient_avatar, status, responded_at, created_at`

// GetByID fetches a connection by id.
func (r *ConnectionRepo) GetByID(ctx context.Context, connectionID int) (models.Connection, error) {
	var conn models.Connection
	err := r.db.GetContext(ctx, &conn, `SELECT `+connectionColumns+` FROM connections WHERE id=$1`, connectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Connection{}, ErrConnectionNotFound
	}
	return conn, err
}

// GetByPairKey fetches the single connection for an unordered pair.
func (r *ConnectionRepo) GetByPairKey(ctx context.Context, pairKey string) (models.Connection, error) {
	var conn models.Connection
	err := r.db.GetContext(ctx, &conn, `SELECT `+connectionColumns+` FROM connections WHERE pair_key=$1`, pairKey)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Connection{}, ErrConnectionNotFound
	}
	return conn, err
}

// CreatePending inserts a pending connection for the pair. The second
// return value is false when another request won the pair-key race, in
// which case the caller should refetch and branch on the existing row.
func (r *ConnectionRepo) CreatePending(ctx context.Context, requester, recipient models.UserSnapshot) (models.Connection, bool, error) {
	pairKey := models.PairKey(requester.ID, recipient.ID)
	var conn models.Connection
	err := r.db.QueryRowxContext(ctx, `INSERT INTO connections
        (pair_key, requester_id, requester_handle, requester_name, requester_avatar,
         recipient_id, recipient_handle, recipient_name, recipient_avatar, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending')
        ON CONFLICT (pair_key) DO NOTHING
        RETURNING `+connectionColumns,
		pairKey, requester.ID, requester.Handle, requester.DisplayName, requester.AvatarURL,
		recipient.ID, recipient.Handle, recipient.DisplayName, recipient.AvatarURL).StructScan(&conn)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Connection{}, false, nil
	}
	if err != nil {
		return models.Connection{}, false, err
	}
	return conn, true, nil
}

// Resurrect turns a declined connection back into a pending request
// with fresh, possibly swapped, requester/recipient snapshots. The row
// and its id are reused.
func (r *ConnectionRepo) Resurrect(ctx context.Context, connectionID int, requester, recipient models.UserSnapshot) (models.Connection, error) {
	var conn models.Connection
	err := r.db.QueryRowxContext(ctx, `UPDATE connections SET
        requester_id=$2, requester_handle=$3, requester_name=$4, requester_avatar=$5,
        recipient_id=$6, recipient_handle=$7, recipient_name=$8, recipient_avatar=$9,
        status='pending', responded_at=NULL
        WHERE id=$1 AND status='declined'
        RETURNING `+connectionColumns,
		connectionID, requester.ID, requester.Handle, requester.DisplayName, requester.AvatarURL,
		recipient.ID, recipient.Handle, recipient.DisplayName, recipient.AvatarURL).StructScan(&conn)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Connection{}, ErrConnectionNotFound
	}
	return conn, err
}

// Accept marks a pending connection accepted, refreshing both identity
// snapshots to their current values.
func (r *ConnectionRepo) Accept(ctx context.Context, connectionID int, requester, recipient models.UserSnapshot) (models.Connection, error) {
	var conn models.Connection
	err := r.db.QueryRowxContext(ctx, `UPDATE connections SET
        requester_handle=$2, requester_name=$3, requester_avatar=$4,
        recipient_handle=$5, recipient_name=$6, recipient_avatar=$7,
        status='accepted', responded_at=NOW()
        WHERE id=$1 AND status='pending'
        RETURNING `+connectionColumns,
		connectionID, requester.Handle, requester.DisplayName, requester.AvatarURL,
		recipient.Handle, recipient.DisplayName, recipient.AvatarURL).StructScan(&conn)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Connection{}, ErrConnectionNotFound
	}
	return conn, err
}

// Decline marks a pending connection declined.
func (r *ConnectionRepo) Decline(ctx context.Context, connectionID int) (models.Connection, error) {
	var conn models.Connection
	err := r.db.QueryRowxContext(ctx, `UPDATE connections SET status='declined', responded_at=NOW()
        WHERE id=$1 AND status='pending' RETURNING `+connectionColumns, connectionID).StructScan(&conn)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Connection{}, ErrConnectionNotFound
	}
	return conn, err
}

// Remove soft-transitions an accepted connection to declined so future
// re-requests follow the resurrection path.
func (r *ConnectionRepo) Remove(ctx context.Context, connectionID int) (models.Connection, error) {
	var conn models.Connection
	err := r.db.QueryRowxContext(ctx, `UPDATE connections SET status='declined', responded_at=NOW()
        WHERE id=$1 AND status='accepted' RETURNING `+connectionColumns, connectionID).StructScan(&conn)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Connection{}, ErrConnectionNotFound
	}
	return conn, err
}

// Delete hard-deletes a still-pending connection. Canceled requests do
// not need to persist, unlike declined ones.
func (r *ConnectionRepo) Delete(ctx context.Context, connectionID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM connections WHERE id=$1 AND status='pending'`, connectionID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

// ListForUser returns every pending or accepted connection the user is
// part of, newest first.
func (r *ConnectionRepo) ListForUser(ctx context.Context, userID int) ([]models.Connection, error) {
	var conns []models.Connection
	err := r.db.SelectContext(ctx, &conns, `SELECT `+connectionColumns+` FROM connections
        WHERE (requester_id=$1 OR recipient_id=$1) AND status IN ('pending','accepted')
        ORDER BY created_at DESC`, userID)
	return conns, err
}
