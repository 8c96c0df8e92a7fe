package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/scolaria/scolaria-api/internal/models"
)

func sessionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "class_id", "subject_id", "teacher_id", "room_id", "weekday", "start_time", "end_time", "status", "academic_year", "created_at", "updated_at"})
}

func TestSessionRepositoryListActiveByRoom(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	rows := sessionRows().
		AddRow("sess-1", "c1", nil, "teach-1", "room-1", 1, "08:00", "09:00", "ACTIVE", "2024-2025", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE room_id = $1 AND status = $2 ORDER BY weekday, start_time")).
		WithArgs("room-1", string(models.SessionActive)).
		WillReturnRows(rows)

	sessions, err := repo.ListActiveByRoom(context.Background(), "room-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, 1, sessions[0].Weekday)
	require.True(t, sessions[0].Active())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sessionRows())

	_, err := repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	session := &models.Session{
		ClassID:      "c1",
		TeacherID:    "teach-1",
		RoomID:       "room-1",
		Weekday:      1,
		StartTime:    "08:00",
		EndTime:      "09:00",
		Status:       models.SessionActive,
		AcademicYear: "2024-2025",
	}
	require.NoError(t, repo.Create(context.Background(), session))
	require.NotEmpty(t, session.ID)
	require.False(t, session.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositorySetStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET status = $1")).
		WithArgs(string(models.SessionInactive), sqlmock.AnyArg(), "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetStatus(context.Background(), "sess-1", models.SessionInactive))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryHardDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE id = $1")).
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.HardDelete(context.Background(), "sess-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET class_id")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	session := &models.Session{
		ID:        "sess-1",
		ClassID:   "c1",
		TeacherID: "teach-1",
		RoomID:    "room-2",
		Weekday:   2,
		StartTime: "10:00",
		EndTime:   "11:00",
	}
	require.NoError(t, repo.Update(context.Background(), session))
	require.False(t, session.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
