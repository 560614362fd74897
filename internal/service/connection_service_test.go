package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spark-service/internal/mocks"
	"spark-service/internal/models"
	"spark-service/internal/repositories"
)

func newConnectionFixture() (*ConnectionService, *mocks.ConnectionRepositoryMock, *mocks.UserRepositoryMock, *mocks.BroadcasterMock, *mocks.NotifierMock) {
	connRepo := new(mocks.ConnectionRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	broadcaster := new(mocks.BroadcasterMock)
	notifier := new(mocks.NotifierMock)
	svc := NewConnectionService(connRepo, userRepo, broadcaster, notifier)
	return svc, connRepo, userRepo, broadcaster, notifier
}

func snapshot(id int, handle string) models.UserSnapshot {
	return models.UserSnapshot{ID: id, Handle: handle, DisplayName: handle}
}

func userFor(s models.UserSnapshot) models.User {
	return models.User{ID: s.ID, Handle: s.Handle, DisplayName: s.DisplayName, AvatarURL: s.AvatarURL}
}

func pendingBetween(id int, requester, recipient models.UserSnapshot) models.Connection {
	return models.Connection{
		ID:              id,
		PairKey:         models.PairKey(requester.ID, recipient.ID),
		RequesterID:     requester.ID,
		RequesterHandle: requester.Handle,
		RequesterName:   requester.DisplayName,
		RecipientID:     recipient.ID,
		RecipientHandle: recipient.Handle,
		RecipientName:   recipient.DisplayName,
		Status:          models.ConnectionPending,
	}
}

func TestRequestToSelfRejected(t *testing.T) {
	svc, _, _, _, _ := newConnectionFixture()

	_, _, err := svc.Request(context.Background(), snapshot(1, "ada"), 1)
	require.ErrorIs(t, err, ErrSelfConnection)
}

func TestRequestTargetNotFound(t *testing.T) {
	svc, _, userRepo, _, _ := newConnectionFixture()

	userRepo.On("GetByID", mock.Anything, 9).Return(nil, repositories.ErrUserNotFound).Once()

	_, _, err := svc.Request(context.Background(), snapshot(1, "ada"), 9)
	require.ErrorIs(t, err, ErrTargetNotFound)
	userRepo.AssertExpectations(t)
}

func TestRequestCreatesPending(t *testing.T) {
	svc, connRepo, userRepo, broadcaster, notifier := newConnectionFixture()
	ada, grace := snapshot(1, "ada"), snapshot(2, "grace")
	created := pendingBetween(10, ada, grace)

	userRepo.On("GetByID", mock.Anything, 2).Return(userFor(grace), nil).Once()
	connRepo.On("GetByPairKey", mock.Anything, "1:2").Return(nil, repositories.ErrConnectionNotFound).Once()
	connRepo.On("CreatePending", mock.Anything, ada, grace).Return(created, true, nil).Once()
	broadcaster.On("EmitToUsers", []int{2}, models.EventConnectionUpdate, mock.Anything).Once()
	notifier.On("ConnectionRequested", mock.Anything, grace, ada).Once()

	conn, state, err := svc.Request(context.Background(), ada, 2)
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingOutgoing, state)
	assert.Equal(t, 10, conn.ID)

	connRepo.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestRequestIdempotentWhilePending(t *testing.T) {
	svc, connRepo, userRepo, _, _ := newConnectionFixture()
	ada, grace := snapshot(1, "ada"), snapshot(2, "grace")

	userRepo.On("GetByID", mock.Anything, 2).Return(userFor(grace), nil).Once()
	connRepo.On("GetByPairKey", mock.Anything, "1:2").Return(pendingBetween(10, ada, grace), nil).Once()

	conn, state, err := svc.Request(context.Background(), ada, 2)
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingOutgoing, state)
	assert.Equal(t, 10, conn.ID)
	connRepo.AssertExpectations(t)
}

func TestRequestMutualPendingAutoAccepts(t *testing.T) {
	svc, connRepo, userRepo, broadcaster, notifier := newConnectionFixture()
	ada, grace := snapshot(1, "ada"), snapshot(2, "grace")
	existing := pendingBetween(10, grace, ada)
	accepted := existing
	accepted.Status = models.ConnectionAccepted

	userRepo.On("GetByID", mock.Anything, 2).Return(userFor(grace), nil).Twice()
	connRepo.On("GetByPairKey", mock.Anything, "1:2").Return(existing, nil).Once()
	connRepo.On("Accept", mock.Anything, 10, grace, ada).Return(accepted, nil).Once()
	broadcaster.On("EmitToUsers", []int{2, 1}, models.EventConnectionUpdate, mock.Anything).Once()
	notifier.On("ConnectionAccepted", mock.Anything, grace, ada).Once()

	conn, state, err := svc.Request(context.Background(), ada, 2)
	require.NoError(t, err)
	assert.Equal(t, models.StateConnected, state)
	assert.Equal(t, models.ConnectionAccepted, conn.Status)

	connRepo.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestRequestAlreadyConnectedIsNoop(t *testing.T) {
	svc, connRepo, userRepo, _, _ := newConnectionFixture()
	ada, grace := snapshot(1, "ada"), snapshot(2, "grace")
	accepted := pendingBetween(10, ada, grace)
	accepted.Status = models.ConnectionAccepted

	userRepo.On("GetByID", mock.Anything, 2).Return(userFor(grace), nil).Once()
	connRepo.On("GetByPairKey", mock.Anything, "1:2").Return(accepted, nil).Once()

	_, state, err := svc.Request(context.Background(), ada, 2)
	require.NoError(t, err)
	assert.Equal(t, models.StateConnected, state)
	connRepo.AssertExpectations(t)
}

func TestRequestResurrectsDeclinedRow(t *testing.T) {
	svc, connRepo, userRepo, broadcaster, notifier := newConnectionFixture()
	ada, grace := snapshot(1, "ada"), snapshot(2, "grace")
	declined := pendingBetween(10, grace, ada)
	declined.Status = models.ConnectionDeclined
	revived := pendingBetween(10, ada, grace)

	userRepo.On("GetByID", mock.Anything, 2).Return(userFor(grace), nil).Once()
	connRepo.On("GetByPairKey", mock.Anything, "1:2").Return(declined, nil).Once()
	connRepo.On("Resurrect", mock.Anything, 10, ada, grace).Return(revived, nil).Once()
	broadcaster.On("EmitToUsers", []int{2}, models.EventConnectionUpdate, mock.Anything).Once()
	notifier.On("ConnectionRequested", mock.Anything, grace, ada).Once()

	conn, state, err := svc.Request(context.Background(), ada, 2)
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingOutgoing, state)
	assert.Equal(t, 10, conn.ID, "re-request keeps the pair's row id")
	assert.Equal(t, 1, conn.RequesterID, "direction follows the new requester")

	connRepo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestRequestLostInsertRaceRereads(t *testing.T) {
	svc, connRepo, userRepo, _, _ := newConnectionFixture()
	ada, grace := snapshot(1, "ada"), snapshot(2, "grace")
	// A concurrent mutual request wins the insert; the re-read sees the
	// peer's pending row, which this call then auto-accepts.
	peerRow := pendingBetween(10, grace, ada)
	accepted := peerRow
	accepted.Status = models.ConnectionAccepted

	userRepo.On("GetByID", mock.Anything, 2).Return(userFor(grace), nil)
	connRepo.On("GetByPairKey", mock.Anything, "1:2").Return(nil, repositories.ErrConnectionNotFound).Once()
	connRepo.On("CreatePending", mock.Anything, ada, grace).Return(nil, false, nil).Once()
	connRepo.On("GetByPairKey", mock.Anything, "1:2").Return(peerRow, nil).Once()
	connRepo.On("Accept", mock.Anything, 10, grace, ada).Return(accepted, nil).Once()

	svc.broadcaster = NoopBroadcaster{}
	svc.notifier = NoopNotifier{}

	_, state, err := svc.Request(context.Background(), ada, 2)
	require.NoError(t, err)
	assert.Equal(t, models.StateConnected, state)
	connRepo.AssertExpectations(t)
}

func TestAcceptOnlyRecipient(t *testing.T) {
	svc, connRepo, _, _, _ := newConnectionFixture()
	ada, grace := snapshot(1, "ada"), snapshot(2, "grace")

	connRepo.On("GetByID", mock.Anything, 10).Return(pendingBetween(10, ada, grace), nil)

	_, err := svc.Accept(context.Background(), ada, 10)
	require.ErrorIs(t, err, ErrNotRecipient)

	_, err = svc.Accept(context.Background(), snapshot(3, "linus"), 10)
	require.ErrorIs(t, err, ErrNotParticipant)
}

func TestAcceptSuccess(t *testing.T) {
	svc, connRepo, userRepo, broadcaster, notifier := newConnectionFixture()
	ada, grace := snapshot(1, "ada"), snapshot(2, "grace")
	pending := pendingBetween(10, ada, grace)
	accepted := pending
	accepted.Status = models.ConnectionAccepted

	connRepo.On("GetByID", mock.Anything, 10).Return(pending, nil).Once()
	userRepo.On("GetByID", mock.Anything, 1).Return(userFor(ada), nil).Once()
	connRepo.On("Accept", mock.Anything, 10, ada, grace).Return(accepted, nil).Once()
	broadcaster.On("EmitToUsers", []int{1, 2}, models.EventConnectionUpdate, mock.Anything).Once()
	notifier.On("ConnectionAccepted", mock.Anything, ada, grace).Once()

	conn, err := svc.Accept(context.Background(), grace, 10)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionAccepted, conn.Status)

	connRepo.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestAcceptNonPendingConflicts(t *testing.T) {
	svc, connRepo, _, _, _ := newConnectionFixture()
	ada, grace := snapshot(1, "ada"), snapshot(2, "grace")
	accepted := pendingBetween(10, ada, grace)
	accepted.Status = models.ConnectionAccepted

	connRepo.On("GetByID", mock.Anything, 10).Return(accepted, nil).Once()

	_, err := svc.Accept(context.Background(), grace, 10)
	require.ErrorIs(t, err, ErrConnectionConflict)
}

func TestDeclineNotifiesRequesterOnly(t *testing.T) {
	svc, connRepo, _, broadcaster, _ := newConnectionFixture()
	ada, grace := snapshot(1, "ada"), snapshot(2, "grace")
	pending := pendingBetween(10, ada, grace)
	declined := pending
	declined.Status = models.ConnectionDeclined

	connRepo.On("GetByID", mock.Anything, 10).Return(pending, nil).Once()
	connRepo.On("Decline", mock.Anything, 10).Return(declined, nil).Once()
	broadcaster.On("EmitToUsers", []int{1}, models.EventConnectionUpdate, mock.Anything).Once()

	conn, err := svc.Decline(context.Background(), grace, 10)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionDeclined, conn.Status)

	connRepo.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestCancelOnlyRequesterWhilePending(t *testing.T) {
	svc, connRepo, _, broadcaster, _ := newConnectionFixture()
	ada, grace := snapshot(1, "ada"), snapshot(2, "grace")
	pending := pendingBetween(10, ada, grace)

	connRepo.On("GetByID", mock.Anything, 10).Return(pending, nil)
	connRepo.On("Delete", mock.Anything, 10).Return(nil).Once()
	broadcaster.On("EmitToUsers", []int{2}, models.EventConnectionUpdate, mock.Anything).Once()

	require.ErrorIs(t, svc.Cancel(context.Background(), grace, 10), ErrNotRequester)
	require.NoError(t, svc.Cancel(context.Background(), ada, 10))

	connRepo.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestCancelAcceptedConflicts(t *testing.T) {
	svc, connRepo, _, _, _ := newConnectionFixture()
	ada, grace := snapshot(1, "ada"), snapshot(2, "grace")
	accepted := pendingBetween(10, ada, grace)
	accepted.Status = models.ConnectionAccepted

	connRepo.On("GetByID", mock.Anything, 10).Return(accepted, nil).Once()

	require.ErrorIs(t, svc.Cancel(context.Background(), ada, 10), ErrConnectionConflict)
}

func TestRemoveByEitherParticipant(t *testing.T) {
	svc, connRepo, _, broadcaster, _ := newConnectionFixture()
	ada, grace := snapshot(1, "ada"), snapshot(2, "grace")
	accepted := pendingBetween(10, ada, grace)
	accepted.Status = models.ConnectionAccepted
	removed := accepted
	removed.Status = models.ConnectionDeclined

	connRepo.On("GetByID", mock.Anything, 10).Return(accepted, nil).Once()
	connRepo.On("Remove", mock.Anything, 10).Return(removed, nil).Once()
	broadcaster.On("EmitToUsers", []int{1, 2}, models.EventConnectionUpdate, mock.Anything).Once()

	conn, err := svc.Remove(context.Background(), grace, 10)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionDeclined, conn.Status)

	connRepo.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestRemoveUnknownConnection(t *testing.T) {
	svc, connRepo, _, _, _ := newConnectionFixture()

	connRepo.On("GetByID", mock.Anything, 99).Return(nil, repositories.ErrConnectionNotFound).Once()

	_, err := svc.Remove(context.Background(), snapshot(1, "ada"), 99)
	require.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestListGroupsByState(t *testing.T) {
	svc, connRepo, _, _, _ := newConnectionFixture()
	ada, grace, linus := snapshot(1, "ada"), snapshot(2, "grace"), snapshot(3, "linus")

	circle := pendingBetween(10, grace, ada)
	circle.Status = models.ConnectionAccepted
	incoming := pendingBetween(11, linus, ada)
	outgoing := pendingBetween(12, ada, snapshot(4, "marg"))

	connRepo.On("ListForUser", mock.Anything, 1).Return([]models.Connection{circle, incoming, outgoing}, nil).Once()

	list, err := svc.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list.CodeCircles, 1)
	require.Len(t, list.IncomingSparks, 1)
	require.Len(t, list.OutgoingSparks, 1)
	assert.Equal(t, 2, list.CodeCircles[0].Peer.ID)
	assert.Equal(t, 3, list.IncomingSparks[0].Peer.ID)
	assert.Equal(t, 4, list.OutgoingSparks[0].Peer.ID)
}
