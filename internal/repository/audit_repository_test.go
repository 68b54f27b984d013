package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/clinpath/logbook-api/internal/models"
)

func TestAuditRepositoryListByLogbook(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "logbook_id", "seq", "actor_id", "action", "from_status", "to_status", "description", "diff_snapshot", "created_at",
	}).
		AddRow("a-1", "lb-1", int64(1), "trainee-1", "SUBMIT", "DRAFT", "SUBMITTED", "logbook submitted for review", []byte(`{}`), now).
		AddRow("a-2", "lb-1", int64(2), "super-1", "CLAIM_REVIEW", "SUBMITTED", "UNDER_REVIEW", "review claimed", []byte(`{}`), now).
		AddRow("a-3", "lb-1", int64(3), nil, "LOCK", "APPROVED", "LOCKED", "logbook locked", []byte(`{}`), now)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY seq ASC")).
		WithArgs("lb-1").
		WillReturnRows(rows)

	entries, err := repo.ListByLogbook(context.Background(), "lb-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, int64(1), entries[0].Seq)
	require.Equal(t, models.ActionSubmit, entries[0].Action)
	require.Equal(t, int64(3), entries[2].Seq)
	require.Nil(t, entries[2].ActorID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAuditEntryAssignsSeq(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	actor := "super-1"
	entry := &models.AuditEntry{
		LogbookID:   "lb-1",
		ActorID:     &actor,
		Action:      models.ActionApprove,
		Description: "logbook approved",
	}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO logbook_audit")).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(12)))

	require.NoError(t, insertAuditEntry(context.Background(), db, entry))
	require.Equal(t, int64(12), entry.Seq)
	require.NotEmpty(t, entry.ID)
	require.False(t, entry.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
