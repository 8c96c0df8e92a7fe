package service

import (
	"context"
	"database/sql"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/scolaria/scolaria-api/internal/models"
	appErrors "github.com/scolaria/scolaria-api/pkg/errors"
)

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
}

type termReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type scoreReader interface {
	ListByStudentAndTerm(ctx context.Context, studentID, termID string) ([]models.ScoreRecord, error)
	ListByClassAndTerm(ctx context.Context, classID, termID string) ([]models.ScoreRecord, error)
}

type assignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassSubjectAssignment, error)
	ListByClass(ctx context.Context, classID string) ([]models.ClassSubjectAssignment, error)
}

// AverageService computes per-subject and weighted overall averages for one
// student in one term. Pure read/compute, no side effects.
type AverageService struct {
	students    studentReader
	terms       termReader
	scores      scoreReader
	assignments assignmentReader
	logger      *zap.Logger
}

// NewAverageService constructs AverageService.
func NewAverageService(students studentReader, terms termReader, scores scoreReader, assignments assignmentReader, logger *zap.Logger) *AverageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AverageService{students: students, terms: terms, scores: scores, assignments: assignments, logger: logger}
}

// ComputeStudentTerm returns the subject averages (with class-wide means for
// comparison) and the coefficient-weighted overall average of a student for a
// term. A student with no scored subjects yields an empty subject list and an
// overall average of 0.
func (s *AverageService) ComputeStudentTerm(ctx context.Context, studentID, termID string) (*models.TermAverages, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.terms.FindByID(ctx, termID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	records, err := s.scores.ListByStudentAndTerm(ctx, studentID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
	}

	resolve, err := newAssignmentResolver(ctx, s.assignments, student.ClassID, s.logger)
	if err != nil {
		return nil, err
	}

	subjects := subjectAverages(records, resolve)

	if student.ClassID != nil && len(subjects) > 0 {
		classRecords, err := s.scores.ListByClassAndTerm(ctx, *student.ClassID, termID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class scores")
		}
		means := classSubjectMeans(classRecords, resolve)
		for i := range subjects {
			if mean, ok := means[subjects[i].SubjectID]; ok {
				m := mean
				subjects[i].ClassAverage = &m
			}
		}
	}

	return &models.TermAverages{
		StudentID:      studentID,
		TermID:         termID,
		Subjects:       subjects,
		OverallAverage: overallAverage(subjects),
	}, nil
}

// newAssignmentResolver builds an assignmentResolver seeded with the
// assignments of the given class. Records referencing assignments outside the
// class (students moved mid-year) fall back to a direct lookup; legacy
// subject-only records resolve to the assignment active for the class. Both
// the aggregator and the rank engine resolve through this so an overall
// average never differs between a card and the class ranking.
func newAssignmentResolver(ctx context.Context, assignments assignmentReader, classID *string, logger *zap.Logger) (assignmentResolver, error) {
	byID := make(map[string]models.ClassSubjectAssignment)
	bySubject := make(map[string]models.ClassSubjectAssignment)
	if classID != nil {
		classAssignments, err := assignments.ListByClass(ctx, *classID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class subjects")
		}
		for _, a := range classAssignments {
			byID[a.ID] = a
			bySubject[a.SubjectID] = a
		}
	}
	return func(rec models.ScoreRecord) (models.ClassSubjectAssignment, bool) {
		if rec.AssignmentID != nil {
			if a, ok := byID[*rec.AssignmentID]; ok {
				return a, true
			}
			a, err := assignments.FindByID(ctx, *rec.AssignmentID)
			if err != nil {
				if err != sql.ErrNoRows && logger != nil {
					logger.Warn("assignment lookup failed", zap.String("assignment_id", *rec.AssignmentID), zap.Error(err))
				}
				return models.ClassSubjectAssignment{}, false
			}
			byID[a.ID] = *a
			return *a, true
		}
		if rec.SubjectID != "" {
			a, ok := bySubject[rec.SubjectID]
			return a, ok
		}
		return models.ClassSubjectAssignment{}, false
	}, nil
}

// assignmentResolver maps a score record to the assignment that carries its
// coefficient. Records it cannot resolve are dead legacy data and are skipped.
type assignmentResolver func(rec models.ScoreRecord) (models.ClassSubjectAssignment, bool)

type subjectBucket struct {
	assignment models.ClassSubjectAssignment
	present    []float64
	total      int
}

// subjectAverages groups records by subject and computes the mean of the
// non-absent values per subject, rounded half-up to 2 decimals. A subject
// whose records are all absent keeps an average of 0 and stays in the list.
func subjectAverages(records []models.ScoreRecord, resolve assignmentResolver) []models.SubjectAverage {
	buckets := make(map[string]*subjectBucket)
	for _, rec := range records {
		assignment, ok := resolve(rec)
		if !ok {
			continue
		}
		bucket, ok := buckets[assignment.SubjectID]
		if !ok {
			bucket = &subjectBucket{assignment: assignment}
			buckets[assignment.SubjectID] = bucket
		}
		bucket.total++
		if !rec.Absent {
			bucket.present = append(bucket.present, rec.Value)
		}
	}

	subjects := make([]models.SubjectAverage, 0, len(buckets))
	for subjectID, bucket := range buckets {
		average := 0.0
		if len(bucket.present) > 0 {
			sum := 0.0
			for _, v := range bucket.present {
				sum += v
			}
			average = roundHalfUp(sum / float64(len(bucket.present)))
		}
		subjects = append(subjects, models.SubjectAverage{
			SubjectID:   subjectID,
			SubjectName: bucket.assignment.SubjectName,
			Coefficient: bucket.assignment.Coefficient,
			Average:     average,
		})
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].SubjectName != subjects[j].SubjectName {
			return subjects[i].SubjectName < subjects[j].SubjectName
		}
		return subjects[i].SubjectID < subjects[j].SubjectID
	})
	return subjects
}

// overallAverage computes the coefficient-weighted mean of the subject
// averages. Zero-coefficient subjects are excluded from the denominator; a
// total weight of 0 yields 0, never a division error.
func overallAverage(subjects []models.SubjectAverage) float64 {
	weighted := 0.0
	totalWeight := 0
	for _, sub := range subjects {
		if sub.Coefficient <= 0 {
			continue
		}
		weighted += sub.Average * float64(sub.Coefficient)
		totalWeight += sub.Coefficient
	}
	if totalWeight == 0 {
		return 0
	}
	return roundHalfUp(weighted / float64(totalWeight))
}

// classSubjectMeans computes the unweighted mean of all non-absent values
// per subject across a whole class, for comparative display.
func classSubjectMeans(records []models.ScoreRecord, resolve assignmentResolver) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range records {
		if rec.Absent {
			continue
		}
		assignment, ok := resolve(rec)
		if !ok {
			continue
		}
		sums[assignment.SubjectID] += rec.Value
		counts[assignment.SubjectID]++
	}
	means := make(map[string]float64, len(sums))
	for subjectID, sum := range sums {
		means[subjectID] = roundHalfUp(sum / float64(counts[subjectID]))
	}
	return means
}

// roundHalfUp rounds to 2 decimal places with ties away from zero upward,
// matching how report-card averages are published.
func roundHalfUp(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
