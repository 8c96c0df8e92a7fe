package service

import (
	"context"
	"database/sql"
	"sort"

	"go.uber.org/zap"

	"github.com/scolaria/scolaria-api/internal/models"
	appErrors "github.com/scolaria/scolaria-api/pkg/errors"
)

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// RankService orders all students of a class by overall average for a term.
// Ranks are dense and ties share a rank: averages 15, 15, 12 rank as 1, 1, 2.
type RankService struct {
	classes     classReader
	students    studentReader
	terms       termReader
	scores      scoreReader
	assignments assignmentReader
	logger      *zap.Logger
}

// NewRankService constructs RankService.
func NewRankService(classes classReader, students studentReader, terms termReader, scores scoreReader, assignments assignmentReader, logger *zap.Logger) *RankService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankService{classes: classes, students: students, terms: terms, scores: scores, assignments: assignments, logger: logger}
}

// RankClass computes the overall average of every enrolled student and
// returns the rows ordered best-first. Students with no score data are
// included with an average of 0 and participate in the ranking.
func (s *RankService) RankClass(ctx context.Context, classID, termID string) ([]models.ClassRankRow, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if _, err := s.terms.FindByID(ctx, termID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	students, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class students")
	}
	if len(students) == 0 {
		return []models.ClassRankRow{}, nil
	}

	resolve, err := newAssignmentResolver(ctx, s.assignments, &classID, s.logger)
	if err != nil {
		return nil, err
	}

	records, err := s.scores.ListByClassAndTerm(ctx, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class scores")
	}
	byStudent := make(map[string][]models.ScoreRecord, len(students))
	for _, rec := range records {
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}

	rows := make([]models.ClassRankRow, 0, len(students))
	for _, student := range students {
		subjects := subjectAverages(byStudent[student.ID], resolve)
		rows = append(rows, models.ClassRankRow{
			StudentID:      student.ID,
			StudentName:    student.FullName(),
			OverallAverage: overallAverage(subjects),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].OverallAverage != rows[j].OverallAverage {
			return rows[i].OverallAverage > rows[j].OverallAverage
		}
		return rows[i].StudentName < rows[j].StudentName
	})

	rank := 1
	for i := range rows {
		if i > 0 && rows[i].OverallAverage < rows[i-1].OverallAverage {
			rank++
		}
		rows[i].Rank = rank
	}

	return rows, nil
}
