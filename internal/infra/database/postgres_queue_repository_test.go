package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtual_persona_bot/internal/domain/queue"
)

func newQueueRepoMock(t *testing.T) (*PostgresQueueRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresQueueRepository(db), mock
}

func queueItemRows(id, prompt string, status queue.Status) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "prompt", "category", "subcategory", "priority", "status",
		"assigned_persona_id", "source", "post_id", "error_message",
		"created_at", "processed_at",
	}).AddRow(id, prompt, "photography", nil, 5, string(status), "p1", "import", nil, nil, time.Now(), nil)
}

func TestClaimMatchingReturnsAssignedItem(t *testing.T) {
	repo, mock := newQueueRepoMock(t)

	mock.ExpectQuery(`UPDATE prompt_queue`).
		WithArgs("p1", "photography").
		WillReturnRows(queueItemRows("q1", "A misty forest", queue.StatusAssigned))

	item, err := repo.ClaimMatchingForCategory(context.Background(), "photography", "p1")
	require.NoError(t, err)
	assert.Equal(t, "q1", item.ID)
	assert.Equal(t, queue.StatusAssigned, item.Status)
	assert.Equal(t, "p1", item.AssignedPersonaID.String)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimMatchingEmptyQueue(t *testing.T) {
	repo, mock := newQueueRepoMock(t)

	mock.ExpectQuery(`UPDATE prompt_queue`).
		WithArgs("p1", "photography").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.ClaimMatchingForCategory(context.Background(), "photography", "p1")
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkProcessingRequiresAssignedState(t *testing.T) {
	repo, mock := newQueueRepoMock(t)

	// The status guard matches no rows when the item was never claimed.
	mock.ExpectExec(`UPDATE prompt_queue SET status = 'processing'`).
		WithArgs("q1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkProcessing(context.Background(), "q1")
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCompletedLinksPost(t *testing.T) {
	repo, mock := newQueueRepoMock(t)

	mock.ExpectExec(`UPDATE prompt_queue`).
		WithArgs("post-1", "q1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkCompleted(context.Background(), "q1", "post-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueStatsGroupsByStatus(t *testing.T) {
	repo, mock := newQueueRepoMock(t)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("pending", 4).
		AddRow("completed", 10).
		AddRow("failed", 1)
	mock.ExpectQuery(`SELECT status, COUNT`).WillReturnRows(rows)

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Pending)
	assert.Equal(t, 10, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 15, stats.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteFailedBefore(t *testing.T) {
	repo, mock := newQueueRepoMock(t)
	cutoff := time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM prompt_queue`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteFailedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
