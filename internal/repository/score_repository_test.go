package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/scolaria/scolaria-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func scoreRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "assignment_id", "subject_id", "term_id", "kind", "value", "absent", "recorded_on", "comment", "academic_year", "created_at", "updated_at"})
}

func TestScoreRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScoreRepository(db)
	rows := scoreRows().
		AddRow("sc-1", "s1", "a-math", "sub-math", "t1", "Devoir", 14.0, false, time.Now(), nil, "2024-2025", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("AND student_id = $1 AND term_id = $2")).
		WithArgs("s1", "t1").
		WillReturnRows(rows)

	scores, err := repo.List(context.Background(), models.ScoreFilter{StudentID: "s1", TermID: "t1"})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	require.Equal(t, "sc-1", scores[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryListByClassAndTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScoreRepository(db)
	rows := scoreRows().
		AddRow("sc-1", "s1", nil, "sub-math", "t1", "Devoir", 12.0, false, time.Now(), nil, "2024-2025", time.Now(), time.Now()).
		AddRow("sc-2", "s2", "a-math", "sub-math", "t1", "Devoir", 16.0, false, time.Now(), nil, "2024-2025", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("JOIN students st ON st.id = sc.student_id")).
		WithArgs("c1", "t1").
		WillReturnRows(rows)

	scores, err := repo.ListByClassAndTerm(context.Background(), "c1", "t1")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	require.Nil(t, scores[0].AssignmentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryUpsertAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScoreRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scores")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	score := &models.ScoreRecord{
		StudentID:  "s1",
		SubjectID:  "sub-math",
		TermID:     "t1",
		Kind:       "Devoir",
		Value:      14,
		RecordedOn: time.Now(),
	}
	require.NoError(t, repo.Upsert(context.Background(), score))
	require.NotEmpty(t, score.ID)
	require.False(t, score.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryBulkUpsertCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScoreRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scores")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scores")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	scores := []models.ScoreRecord{
		{StudentID: "s1", SubjectID: "sub-math", TermID: "t1", Value: 14, RecordedOn: time.Now()},
		{StudentID: "s2", SubjectID: "sub-math", TermID: "t1", Value: 16, RecordedOn: time.Now()},
	}
	require.NoError(t, repo.BulkUpsert(context.Background(), scores))
	require.NotEmpty(t, scores[0].ID)
	require.NotEmpty(t, scores[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryBulkUpsertRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScoreRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scores")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scores")).WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	scores := []models.ScoreRecord{
		{StudentID: "s1", SubjectID: "sub-math", TermID: "t1", Value: 14, RecordedOn: time.Now()},
		{StudentID: "s2", SubjectID: "sub-math", TermID: "t1", Value: 16, RecordedOn: time.Now()},
	}
	require.Error(t, repo.BulkUpsert(context.Background(), scores))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryBulkUpsertEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScoreRepository(db)
	require.NoError(t, repo.BulkUpsert(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
