package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/clinpath/logbook-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func logbookRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "trainee_id", "week_start", "status", "section_totals", "review_comments", "reviewer_id",
		"submitted_at", "reviewed_at", "approved_at", "locked_at", "version", "created_at", "updated_at",
	})
}

func TestLogbookRepositoryEnsureDraft(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLogbookRepository(db)
	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO logbooks")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, trainee_id, week_start")).
		WithArgs("trainee-1", weekStart).
		WillReturnRows(logbookRows().
			AddRow("lb-1", "trainee-1", weekStart, "DRAFT", []byte(`{}`), nil, nil,
				nil, nil, nil, nil, 1, time.Now(), time.Now()))

	logbook, err := repo.EnsureDraft(context.Background(), "trainee-1", weekStart)
	require.NoError(t, err)
	require.Equal(t, "lb-1", logbook.ID)
	require.Equal(t, models.StatusDraft, logbook.Status)
	require.Equal(t, 1, logbook.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogbookRepositoryEnsureDraftExisting(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLogbookRepository(db)
	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// ON CONFLICT DO NOTHING: no row inserted, existing draft returned.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO logbooks")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, trainee_id, week_start")).
		WithArgs("trainee-1", weekStart).
		WillReturnRows(logbookRows().
			AddRow("lb-existing", "trainee-1", weekStart, "SUBMITTED", []byte(`{}`), nil, nil,
				time.Now(), nil, nil, nil, 2, time.Now(), time.Now()))

	logbook, err := repo.EnsureDraft(context.Background(), "trainee-1", weekStart)
	require.NoError(t, err)
	require.Equal(t, "lb-existing", logbook.ID)
	require.Equal(t, models.StatusSubmitted, logbook.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogbookRepositoryTransitionCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLogbookRepository(db)
	now := time.Now().UTC()
	from := models.StatusDraft
	to := models.StatusSubmitted
	actor := "trainee-1"
	totals := models.SectionTotals{SectionA: models.SectionHours{WeeklyHours: 3, EntryCount: 2}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE logbooks SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO logbook_audit")).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(7)))
	mock.ExpectCommit()

	err := repo.Transition(context.Background(), TransitionParams{
		ID:              "lb-1",
		ExpectedVersion: 1,
		Status:          to,
		SubmittedAt:     &now,
		SectionTotals:   &totals,
		Audit: models.AuditEntry{
			ActorID:     &actor,
			Action:      models.ActionSubmit,
			FromStatus:  &from,
			ToStatus:    &to,
			Description: "logbook submitted for review",
		},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogbookRepositoryTransitionVersionConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLogbookRepository(db)

	// Stale version: zero rows updated, the whole transaction rolls back
	// and no audit entry is written.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE logbooks SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), TransitionParams{
		ID:              "lb-1",
		ExpectedVersion: 1,
		Status:          models.StatusApproved,
		Audit:           models.AuditEntry{Action: models.ActionApprove},
	})
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogbookRepositoryTransitionRollsBackOnAuditFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLogbookRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE logbooks SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO logbook_audit")).
		WillReturnError(errors.New("serial exhausted"))
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), TransitionParams{
		ID:              "lb-1",
		ExpectedVersion: 3,
		Status:          models.StatusLocked,
		Audit:           models.AuditEntry{Action: models.ActionLock},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogbookRepositoryListSupervisorScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLogbookRepository(db)
	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT trainee_id FROM supervisor_assignments WHERE supervisor_id = $1")).
		WithArgs("super-1", "SUBMITTED").
		WillReturnRows(logbookRows().
			AddRow("lb-1", "trainee-1", weekStart, "SUBMITTED", []byte(`{}`), nil, nil,
				time.Now(), nil, nil, nil, 2, time.Now(), time.Now()))

	list, err := repo.List(context.Background(), models.LogbookFilter{
		SupervisorID: "super-1",
		Status:       []models.LogbookStatus{models.StatusSubmitted},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "lb-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
