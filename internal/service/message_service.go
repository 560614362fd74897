package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"spark-service/internal/models"
	"spark-service/internal/repositories"
)

// Message validation and paging bounds.
const (
	MaxMessageRunes = 2000
	DefaultPageSize = 50
	MaxPageSize     = 80
)

// MessageService owns conversations, messages and read state. Both
// the REST handlers and the realtime gateway call into it, so the two
// paths share one authorization and persistence implementation.
type MessageService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	connections   repositories.ConnectionRepository
	users         repositories.UserRepository
	broadcaster   Broadcaster
}

// NewMessageService builds a MessageService.
func NewMessageService(conversations repositories.ConversationRepository, messages repositories.MessageRepository, connections repositories.ConnectionRepository, users repositories.UserRepository, broadcaster Broadcaster) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		connections:   connections,
		users:         users,
		broadcaster:   broadcaster,
	}
}

// EnsureConversation returns the conversation between the actor and
// the target, creating it when missing. Creation is gated on an
// accepted connection; an existing conversation is not destroyed if
// the connection is later removed, but this path stays closed.
func (s *MessageService) EnsureConversation(ctx context.Context, actor models.UserSnapshot, targetID int) (models.Conversation, error) {
	if targetID == actor.ID {
		return models.Conversation{}, ErrSelfConversation
	}

	conn, err := s.connections.GetByPairKey(ctx, models.PairKey(actor.ID, targetID))
	if errors.Is(err, repositories.ErrConnectionNotFound) {
		return models.Conversation{}, ErrNotConnected
	}
	if err != nil {
		return models.Conversation{}, err
	}
	if conn.Status != models.ConnectionAccepted {
		return models.Conversation{}, ErrNotConnected
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.Conversation{}, ErrTargetNotFound
		}
		return models.Conversation{}, err
	}

	return s.conversations.CreateOrGet(ctx, actor, target.Snapshot())
}

// ConversationForUser loads a conversation the user participates in.
// A missing conversation and a non-participant access return the same
// error so outsiders cannot probe for existence.
func (s *MessageService) ConversationForUser(ctx context.Context, conversationID, userID int) (models.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		return models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, err
	}
	if !conv.Involves(userID) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, nil
}

// ListMessages returns one page of a conversation's history in
// chronological order. The page is fetched newest-first and reversed;
// the before cursor is a strict upper bound so consecutive pages never
// overlap, even while new messages arrive.
func (s *MessageService) ListMessages(ctx context.Context, conversationID, userID int, limit int, before *time.Time) ([]models.Message, error) {
	if _, err := s.ConversationForUser(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	msgs, err := s.messages.ListPage(ctx, conversationID, limit, before)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// Send validates and persists a message, refreshes the conversation
// preview, and fans out to the conversation room plus both user rooms.
func (s *MessageService) Send(ctx context.Context, conversationID int, actor models.UserSnapshot, body string) (models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return models.Message{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > MaxMessageRunes {
		return models.Message{}, ErrMessageTooLong
	}

	conv, err := s.ConversationForUser(ctx, conversationID, actor.ID)
	if err != nil {
		return models.Message{}, err
	}

	msg, err := s.messages.Create(ctx, conv.ID, actor, body)
	if err != nil {
		return models.Message{}, err
	}

	// Preview denormalization is best-effort; the message itself is
	// already committed and the list endpoint re-derives from it.
	if err := s.conversations.UpdateLastMessage(ctx, conv.ID, msg.Body, msg.CreatedAt, actor.ID); err != nil {
		log.Printf("update conversation preview failed: conversation=%d err=%v", conv.ID, err)
	}
	conv.LastMessageText = sql.NullString{String: msg.Body, Valid: true}
	conv.LastMessageAt = sql.NullTime{Time: msg.CreatedAt, Valid: true}
	conv.LastMessageSenderID = sql.NullInt64{Int64: int64(actor.ID), Valid: true}

	s.broadcaster.EmitToConversation(conv.ID, models.EventMessage, models.MessageEvent{
		ConversationID: conv.ID,
		Message:        msg,
	})
	for _, participantID := range conv.ParticipantIDs() {
		unread := 0
		if participantID != actor.ID {
			counts, err := s.messages.UnreadCounts(ctx, participantID, []int{conv.ID})
			if err != nil {
				log.Printf("unread count for fan-out failed: conversation=%d user=%d err=%v", conv.ID, participantID, err)
			} else {
				unread = counts[conv.ID]
			}
		}
		s.broadcaster.EmitToUsers([]int{participantID}, models.EventConversationUpdate, conv.Summarize(participantID, unread))
	}

	return msg, nil
}

// MarkRead adds the actor to the reader set of everything unread in
// the conversation and reports how many messages that touched. A
// second call with nothing unread is a zero-count no-op.
func (s *MessageService) MarkRead(ctx context.Context, conversationID, userID int) (int, error) {
	conv, err := s.ConversationForUser(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}

	count, err := s.messages.MarkRead(ctx, conv.ID, userID)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		s.broadcaster.EmitToConversation(conv.ID, models.EventReadReceipt, models.ReadReceiptEvent{
			ConversationID: conv.ID,
			UserID:         userID,
			ReadCount:      count,
		})
	}
	return count, nil
}

// UnreadCounts aggregates unread totals per conversation for list
// decoration.
func (s *MessageService) UnreadCounts(ctx context.Context, userID int, conversationIDs []int) (map[int]int, error) {
	return s.messages.UnreadCounts(ctx, userID, conversationIDs)
}

// ListConversations returns the user's conversations as summaries
// decorated with unread counts.
func (s *MessageService) ListConversations(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	convs, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(convs))
	for _, conv := range convs {
		ids = append(ids, conv.ID)
	}
	counts, err := s.messages.UnreadCounts(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, conv.Summarize(userID, counts[conv.ID]))
	}
	return summaries, nil
}
