package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"spark-service/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	CreateOrGet(ctx context.Context, a, b models.UserSnapshot) (models.Conversation, error)
	GetByID(ctx context.Context, conversationID int) (models.Conversation, error)
	ListForUser(ctx context.Context, userID int) ([]models.Conversation, error)
	UpdateLastMessage(ctx context.Context, conversationID int, text string, at time.Time, senderID int) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `id, pair_key, is_direct, user1_id, user1_handle, user1_name, user1_avatar,
        user2_id, user2_handle, user2_name, user2_avatar,
        last_message_text, last_message_at, last_message_sender_id, created_at`

// CreateOrGet creates the conversation for the pair if it does not
// already exist. Participant slots are stored in id order so the
// pair-key uniqueness and the slot layout always agree; a lost insert
// race falls through to the fetch.
func (r *ConversationRepo) CreateOrGet(ctx context.Context, a, b models.UserSnapshot) (models.Conversation, error) {
	if a.ID > b.ID {
		a, b = b, a
	}
	pairKey := models.PairKey(a.ID, b.ID)

	var conv models.Conversation
	err := r.db.QueryRowxContext(ctx, `INSERT INTO conversations
        (pair_key, user1_id, user1_handle, user1_name, user1_avatar,
         user2_id, user2_handle, user2_name, user2_avatar)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (pair_key) DO NOTHING
        RETURNING `+conversationColumns,
		pairKey, a.ID, a.Handle, a.DisplayName, a.AvatarURL,
		b.ID, b.Handle, b.DisplayName, b.AvatarURL).StructScan(&conv)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	err = r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE pair_key=$1`, pairKey)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// GetByID fetches a conversation by id.
func (r *ConversationRepo) GetByID(ctx context.Context, conversationID int) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListForUser returns the user's conversations, most recently active
// first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs, `SELECT `+conversationColumns+` FROM conversations
        WHERE user1_id=$1 OR user2_id=$1
        ORDER BY last_message_at DESC NULLS LAST, created_at DESC`, userID)
	return convs, err
}

// UpdateLastMessage refreshes the denormalized preview fields.
func (r *ConversationRepo) UpdateLastMessage(ctx context.Context, conversationID int, text string, at time.Time, senderID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE conversations
        SET last_message_text=$2, last_message_at=$3, last_message_sender_id=$4
        WHERE id=$1`, conversationID, text, at, senderID)
	return err
}
