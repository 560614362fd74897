package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spark-service/internal/models"
)

func messageRows(msgs ...models.Message) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "conversation_id", "sender_id", "sender_handle", "sender_name", "sender_avatar", "body", "read_by", "created_at",
	})
	for _, m := range msgs {
		rows.AddRow(m.ID, m.ConversationID, m.SenderID, m.SenderHandle, m.SenderName, m.SenderAvatar, m.Body, "{1}", m.CreatedAt)
	}
	return rows
}

func TestCreateSeedsSenderAsReader(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)
	ada := models.UserSnapshot{ID: 1, Handle: "ada"}

	created := models.Message{ID: 100, ConversationID: 5, SenderID: 1, SenderHandle: "ada", Body: "hey", CreatedAt: time.Now()}
	mock.ExpectQuery(`INSERT INTO messages[\s\S]+ARRAY\[\$2::int\]`).
		WithArgs(5, 1, "ada", "", "", "hey").
		WillReturnRows(messageRows(created))

	msg, err := repo.Create(context.Background(), 5, ada, "hey")
	require.NoError(t, err)
	assert.Equal(t, 100, msg.ID)
	assert.True(t, msg.ReadByUser(1), "sender starts in the reader set")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPageCursorBoundsQuery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)
	cursor := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// With a cursor the page is bounded by a strict created_at upper
	// bound; without one it is just the newest page.
	mock.ExpectQuery(`AND created_at < \$2\s+ORDER BY created_at DESC LIMIT \$3`).
		WithArgs(5, cursor, 20).
		WillReturnRows(messageRows(models.Message{ID: 2, ConversationID: 5, CreatedAt: cursor.Add(-time.Minute)}))
	mock.ExpectQuery(`WHERE conversation_id=\$1\s+ORDER BY created_at DESC LIMIT \$2`).
		WithArgs(5, 50).
		WillReturnRows(messageRows())

	msgs, err := repo.ListPage(context.Background(), 5, 20, &cursor)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, 2, msgs[0].ID)

	msgs, err = repo.ListPage(context.Background(), 5, 50, nil)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadCountsOnlyMutatedRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	query := `SET read_by = array_append\(read_by, \$2\)\s+WHERE conversation_id=\$1 AND sender_id<>\$2 AND NOT \(\$2 = ANY\(read_by\)\)`
	mock.ExpectExec(query).WithArgs(5, 2).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(query).WithArgs(5, 2).WillReturnResult(sqlmock.NewResult(0, 0))

	count, err := repo.MarkRead(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Nothing left unread: the same call reports zero.
	count, err = repo.MarkRead(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Zero(t, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnreadCountsAggregation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery(`GROUP BY conversation_id`).
		WithArgs(pq.Array([]int{5, 6}), 1).
		WillReturnRows(sqlmock.NewRows([]string{"conversation_id", "unread"}).AddRow(5, 4))

	counts, err := repo.UnreadCounts(context.Background(), 1, []int{5, 6})
	require.NoError(t, err)
	assert.Equal(t, 4, counts[5])
	_, ok := counts[6]
	assert.False(t, ok, "fully read conversations are absent")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnreadCountsEmptyInputSkipsQuery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	counts, err := repo.UnreadCounts(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Empty(t, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}
