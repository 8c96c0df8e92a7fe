package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scolaria/scolaria-api/internal/models"
	appErrors "github.com/scolaria/scolaria-api/pkg/errors"
)

type stubStudentRepo struct {
	students map[string]models.Student
}

func (s *stubStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

func (s *stubStudentRepo) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	var result []models.Student
	for _, student := range s.students {
		if student.ClassID != nil && *student.ClassID == classID {
			result = append(result, student)
		}
	}
	return result, nil
}

type stubTermRepo struct {
	terms map[string]models.Term
}

func (s *stubTermRepo) FindByID(ctx context.Context, id string) (*models.Term, error) {
	term, ok := s.terms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &term, nil
}

type stubScoreRepo struct {
	records []models.ScoreRecord
	classOf map[string]string
}

func (s *stubScoreRepo) ListByStudentAndTerm(ctx context.Context, studentID, termID string) ([]models.ScoreRecord, error) {
	var result []models.ScoreRecord
	for _, rec := range s.records {
		if rec.StudentID == studentID && rec.TermID == termID {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (s *stubScoreRepo) ListByClassAndTerm(ctx context.Context, classID, termID string) ([]models.ScoreRecord, error) {
	var result []models.ScoreRecord
	for _, rec := range s.records {
		if s.classOf[rec.StudentID] == classID && rec.TermID == termID {
			result = append(result, rec)
		}
	}
	return result, nil
}

type stubAssignmentRepo struct {
	assignments []models.ClassSubjectAssignment
}

func (s *stubAssignmentRepo) FindByID(ctx context.Context, id string) (*models.ClassSubjectAssignment, error) {
	for _, a := range s.assignments {
		if a.ID == id {
			found := a
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubAssignmentRepo) ListByClass(ctx context.Context, classID string) ([]models.ClassSubjectAssignment, error) {
	var result []models.ClassSubjectAssignment
	for _, a := range s.assignments {
		if a.ClassID == classID {
			result = append(result, a)
		}
	}
	return result, nil
}

type stubClassRepo struct {
	classes map[string]models.Class
}

func (s *stubClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := s.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &class, nil
}

func strPtr(v string) *string { return &v }

func newAverageFixture() (*stubStudentRepo, *stubTermRepo, *stubScoreRepo, *stubAssignmentRepo) {
	students := &stubStudentRepo{students: map[string]models.Student{
		"s1": {ID: "s1", FirstName: "Awa", LastName: "Diop", RegistrationNo: "R-001", ClassID: strPtr("c1")},
	}}
	terms := &stubTermRepo{terms: map[string]models.Term{
		"t1": {ID: "t1", Name: "Trimestre 1", AcademicYear: "2024-2025", Position: 1},
	}}
	assignments := &stubAssignmentRepo{assignments: []models.ClassSubjectAssignment{
		{ID: "a-math", ClassID: "c1", SubjectID: "sub-math", SubjectName: "Mathematiques", Coefficient: 3},
		{ID: "a-sport", ClassID: "c1", SubjectID: "sub-sport", SubjectName: "Sport", Coefficient: 2},
	}}
	scores := &stubScoreRepo{
		classOf: map[string]string{"s1": "c1"},
		records: []models.ScoreRecord{
			{ID: "r1", StudentID: "s1", AssignmentID: strPtr("a-math"), SubjectID: "sub-math", TermID: "t1", Kind: "Devoir", Value: 14},
			{ID: "r2", StudentID: "s1", AssignmentID: strPtr("a-math"), SubjectID: "sub-math", TermID: "t1", Kind: "Composition", Value: 16},
			{ID: "r3", StudentID: "s1", AssignmentID: strPtr("a-sport"), SubjectID: "sub-sport", TermID: "t1", Kind: "Devoir", Value: 10, Absent: true},
		},
	}
	return students, terms, scores, assignments
}

func TestComputeStudentTermWeightedAverage(t *testing.T) {
	students, terms, scores, assignments := newAverageFixture()
	svc := NewAverageService(students, terms, scores, assignments, nil)

	result, err := svc.ComputeStudentTerm(context.Background(), "s1", "t1")
	require.NoError(t, err)
	require.Len(t, result.Subjects, 2)

	math := result.Subjects[0]
	assert.Equal(t, "Mathematiques", math.SubjectName)
	assert.Equal(t, 15.0, math.Average)
	assert.Equal(t, 3, math.Coefficient)

	// All records absent: the subject stays listed with an average of 0.
	sport := result.Subjects[1]
	assert.Equal(t, "Sport", sport.SubjectName)
	assert.Equal(t, 0.0, sport.Average)

	// (15*3 + 0*2) / 5
	assert.Equal(t, 9.0, result.OverallAverage)
}

func TestComputeStudentTermClassAverages(t *testing.T) {
	students, terms, scores, assignments := newAverageFixture()
	svc := NewAverageService(students, terms, scores, assignments, nil)

	result, err := svc.ComputeStudentTerm(context.Background(), "s1", "t1")
	require.NoError(t, err)

	math := result.Subjects[0]
	require.NotNil(t, math.ClassAverage)
	assert.Equal(t, 15.0, *math.ClassAverage)

	// The only sport record is absent, so no class mean exists for it.
	sport := result.Subjects[1]
	assert.Nil(t, sport.ClassAverage)
}

func TestComputeStudentTermOrderIndependent(t *testing.T) {
	students, terms, scores, assignments := newAverageFixture()
	svc := NewAverageService(students, terms, scores, assignments, nil)

	first, err := svc.ComputeStudentTerm(context.Background(), "s1", "t1")
	require.NoError(t, err)

	scores.records[0], scores.records[2] = scores.records[2], scores.records[0]
	second, err := svc.ComputeStudentTerm(context.Background(), "s1", "t1")
	require.NoError(t, err)

	assert.Equal(t, first.Subjects, second.Subjects)
	assert.Equal(t, first.OverallAverage, second.OverallAverage)
}

func TestComputeStudentTermRounding(t *testing.T) {
	students, terms, scores, assignments := newAverageFixture()
	scores.records = []models.ScoreRecord{
		{StudentID: "s1", AssignmentID: strPtr("a-math"), SubjectID: "sub-math", TermID: "t1", Value: 11},
		{StudentID: "s1", AssignmentID: strPtr("a-math"), SubjectID: "sub-math", TermID: "t1", Value: 12},
		{StudentID: "s1", AssignmentID: strPtr("a-math"), SubjectID: "sub-math", TermID: "t1", Value: 12},
	}
	svc := NewAverageService(students, terms, scores, assignments, nil)

	result, err := svc.ComputeStudentTerm(context.Background(), "s1", "t1")
	require.NoError(t, err)
	require.Len(t, result.Subjects, 1)
	// 35/3 = 11.666... rounds half-up to 11.67
	assert.Equal(t, 11.67, result.Subjects[0].Average)
}

func TestComputeStudentTermLegacySubjectOnlyRecord(t *testing.T) {
	students, terms, scores, assignments := newAverageFixture()
	scores.records = []models.ScoreRecord{
		{StudentID: "s1", SubjectID: "sub-math", TermID: "t1", Value: 18},
		{StudentID: "s1", SubjectID: "sub-unknown", TermID: "t1", Value: 5},
	}
	svc := NewAverageService(students, terms, scores, assignments, nil)

	result, err := svc.ComputeStudentTerm(context.Background(), "s1", "t1")
	require.NoError(t, err)

	// The subject-only record resolves through the class assignment; the
	// unresolvable one is skipped entirely.
	require.Len(t, result.Subjects, 1)
	assert.Equal(t, "sub-math", result.Subjects[0].SubjectID)
	assert.Equal(t, 18.0, result.Subjects[0].Average)
	assert.Equal(t, 18.0, result.OverallAverage)
}

func TestComputeStudentTermNoScores(t *testing.T) {
	students, terms, scores, assignments := newAverageFixture()
	scores.records = nil
	svc := NewAverageService(students, terms, scores, assignments, nil)

	result, err := svc.ComputeStudentTerm(context.Background(), "s1", "t1")
	require.NoError(t, err)
	assert.Empty(t, result.Subjects)
	assert.Equal(t, 0.0, result.OverallAverage)
}

func TestComputeStudentTermUnknownStudent(t *testing.T) {
	students, terms, scores, assignments := newAverageFixture()
	svc := NewAverageService(students, terms, scores, assignments, nil)

	_, err := svc.ComputeStudentTerm(context.Background(), "missing", "t1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestOverallAverageSkipsZeroCoefficient(t *testing.T) {
	subjects := []models.SubjectAverage{
		{SubjectID: "a", Average: 10, Coefficient: 2},
		{SubjectID: "b", Average: 20, Coefficient: 0},
	}
	assert.Equal(t, 10.0, overallAverage(subjects))
	assert.Equal(t, 0.0, overallAverage(nil))
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 11.67, roundHalfUp(11.666666))
	assert.Equal(t, 12.5, roundHalfUp(12.5))
	assert.Equal(t, 15.13, roundHalfUp(15.125))
	assert.Equal(t, 15.12, roundHalfUp(15.1249))
}
