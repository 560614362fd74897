package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"spark-service/internal/models"
)

// MessageRepository abstracts message persistence and read-state
// bookkeeping.
type MessageRepository interface {
	Create(ctx context.Context, conversationID int, sender models.UserSnapshot, body string) (models.Message, error)
	ListPage(ctx context.Context, conversationID int, limit int, before *time.Time) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID int, userID int) (int, error)
	UnreadCounts(ctx context.Context, userID int, conversationIDs []int) (map[int]int, error)
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, sender_handle, sender_name, sender_avatar, body, read_by, created_at`

// Create stores a message with the sender pre-marked as a reader.
func (r *MessageRepo) Create(ctx context.Context, conversationID int, sender models.UserSnapshot, body string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages
        (conversation_id, sender_id, sender_handle, sender_name, sender_avatar, body, read_by)
        VALUES ($1, $2, $3, $4, $5, $6, ARRAY[$2::int])
        RETURNING `+messageColumns,
		conversationID, sender.ID, sender.Handle, sender.DisplayName, sender.AvatarURL, body).StructScan(&msg)
	return msg, err
}

// ListPage returns up to limit messages newest first, optionally only
// those created strictly before the cursor. The strict bound keeps
// pages from overlapping under concurrent inserts.
func (r *MessageRepo) ListPage(ctx context.Context, conversationID int, limit int, before *time.Time) ([]models.Message, error) {
	var msgs []models.Message
	if before != nil {
		err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
            WHERE conversation_id=$1 AND created_at < $2
            ORDER BY created_at DESC LIMIT $3`, conversationID, *before, limit)
		return msgs, err
	}
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE conversation_id=$1
        ORDER BY created_at DESC LIMIT $2`, conversationID, limit)
	return msgs, err
}

// MarkRead adds the user to the reader set of every message in the
// conversation authored by someone else and not yet read by them.
// Returns the number of messages mutated; zero when nothing was
// unread, which makes the operation idempotent.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationID int, userID int) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages
        SET read_by = array_append(read_by, $2)
        WHERE conversation_id=$1 AND sender_id<>$2 AND NOT ($2 = ANY(read_by))`, conversationID, userID)
	if err != nil {
		return 0, err
	}
	count, err := res.RowsAffected()
	return int(count), err
}

// UnreadCounts aggregates, per conversation, how many messages the
// user has not read. Conversations with nothing unread are absent from
// the result map.
func (r *MessageRepo) UnreadCounts(ctx context.Context, userID int, conversationIDs []int) (map[int]int, error) {
	counts := make(map[int]int, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return counts, nil
	}

	rows, err := r.db.QueryxContext(ctx, `SELECT conversation_id, COUNT(*) AS unread FROM messages
        WHERE conversation_id = ANY($1) AND sender_id<>$2 AND NOT ($2 = ANY(read_by))
        GROUP BY conversation_id`, pq.Array(conversationIDs), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var conversationID, unread int
		if err := rows.Scan(&conversationID, &unread); err != nil {
			return nil, err
		}
		counts[conversationID] = unread
	}
	return counts, rows.Err()
}
