package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"spark-service/internal/models"
	"spark-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

type ConnectionRepositoryMock struct {
	mock.Mock
}

func (m *ConnectionRepositoryMock) GetByID(ctx context.Context, connectionID int) (models.Connection, error) {
	args := m.Called(ctx, connectionID)
	var conn models.Connection
	if val := args.Get(0); val != nil {
		conn = val.(models.Connection)
	}
	return conn, args.Error(1)
}

func (m *ConnectionRepositoryMock) GetByPairKey(ctx context.Context, pairKey string) (models.Connection, error) {
	args := m.Called(ctx, pairKey)
	var conn models.Connection
	if val := args.Get(0); val != nil {
		conn = val.(models.Connection)
	}
	return conn, args.Error(1)
}

func (m *ConnectionRepositoryMock) CreatePending(ctx context.Context, requester, recipient models.UserSnapshot) (models.Connection, bool, error) {
	args := m.Called(ctx, requester, recipient)
	var conn models.Connection
	if val := args.Get(0); val != nil {
		conn = val.(models.Connection)
	}
	return conn, args.Bool(1), args.Error(2)
}

func (m *ConnectionRepositoryMock) Resurrect(ctx context.Context, connectionID int, requester, recipient models.UserSnapshot) (models.Connection, error) {
	args := m.Called(ctx, connectionID, requester, recipient)
	var conn models.Connection
	if val := args.Get(0); val != nil {
		conn = val.(models.Connection)
	}
	return conn, args.Error(1)
}

func (m *ConnectionRepositoryMock) Accept(ctx context.Context, connectionID int, requester, recipient models.UserSnapshot) (models.Connection, error) {
	args := m.Called(ctx, connectionID, requester, recipient)
	var conn models.Connection
	if val := args.Get(0); val != nil {
		conn = val.(models.Connection)
	}
	return conn, args.Error(1)
}

func (m *ConnectionRepositoryMock) Decline(ctx context.Context, connectionID int) (models.Connection, error) {
	args := m.Called(ctx, connectionID)
	var conn models.Connection
	if val := args.Get(0); val != nil {
		conn = val.(models.Connection)
	}
	return conn, args.Error(1)
}

func (m *ConnectionRepositoryMock) Remove(ctx context.Context, connectionID int) (models.Connection, error) {
	args := m.Called(ctx, connectionID)
	var conn models.Connection
	if val := args.Get(0); val != nil {
		conn = val.(models.Connection)
	}
	return conn, args.Error(1)
}

func (m *ConnectionRepositoryMock) Delete(ctx context.Context, connectionID int) error {
	args := m.Called(ctx, connectionID)
	return args.Error(0)
}

func (m *ConnectionRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.Connection, error) {
	args := m.Called(ctx, userID)
	var conns []models.Connection
	if val := args.Get(0); val != nil {
		conns = val.([]models.Connection)
	}
	return conns, args.Error(1)
}

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) CreateOrGet(ctx context.Context, a, b models.UserSnapshot) (models.Conversation, error) {
	args := m.Called(ctx, a, b)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) GetByID(ctx context.Context, conversationID int) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var convs []models.Conversation
	if val := args.Get(0); val != nil {
		convs = val.([]models.Conversation)
	}
	return convs, args.Error(1)
}

func (m *ConversationRepositoryMock) UpdateLastMessage(ctx context.Context, conversationID int, text string, at time.Time, senderID int) error {
	args := m.Called(ctx, conversationID, text, at, senderID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, conversationID int, sender models.UserSnapshot, body string) (models.Message, error) {
	args := m.Called(ctx, conversationID, sender, body)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListPage(ctx context.Context, conversationID int, limit int, before *time.Time) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, limit, before)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, conversationID int, userID int) (int, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) UnreadCounts(ctx context.Context, userID int, conversationIDs []int) (map[int]int, error) {
	args := m.Called(ctx, userID, conversationIDs)
	var counts map[int]int
	if val := args.Get(0); val != nil {
		counts = val.(map[int]int)
	}
	return counts, args.Error(1)
}

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) EmitToUsers(userIDs []int, event string, data any) {
	m.Called(userIDs, event, data)
}

func (m *BroadcasterMock) EmitToConversation(conversationID int, event string, data any) {
	m.Called(conversationID, event, data)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) ConnectionRequested(ctx context.Context, recipient, requester models.UserSnapshot) {
	m.Called(ctx, recipient, requester)
}

func (m *NotifierMock) ConnectionAccepted(ctx context.Context, requester, recipient models.UserSnapshot) {
	m.Called(ctx, requester, recipient)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.ConnectionRepository = (*ConnectionRepositoryMock)(nil)
var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
