package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/scolaria/scolaria-api/internal/models"
	appErrors "github.com/scolaria/scolaria-api/pkg/errors"
)

type scoreStore interface {
	List(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreRecord, error)
	Upsert(ctx context.Context, score *models.ScoreRecord) error
	BulkUpsert(ctx context.Context, scores []models.ScoreRecord) error
}

// ScoreEntryRequest is a single score payload. Either AssignmentID or
// SubjectID must be set; subject-only payloads are resolved to the assignment
// active for the student's current class.
type ScoreEntryRequest struct {
	StudentID    string     `json:"student_id" validate:"required"`
	AssignmentID string     `json:"assignment_id"`
	SubjectID    string     `json:"subject_id"`
	TermID       string     `json:"term_id" validate:"required"`
	Kind         string     `json:"kind"`
	Value        float64    `json:"value" validate:"min=0,max=20"`
	Absent       bool       `json:"absent"`
	RecordedOn   *time.Time `json:"recorded_on"`
	Comment      string     `json:"comment" validate:"omitempty,max=500"`
	AcademicYear string     `json:"academic_year"`
}

// BulkScoreRequest carries multiple entries written in one transaction.
type BulkScoreRequest struct {
	Items []ScoreEntryRequest `json:"items" validate:"required,min=1,dive"`
}

// ScoreService handles raw score entry. Writes are upserts keyed by
// (student, assignment, term, kind); absent records are stored but excluded
// from averaging downstream.
type ScoreService struct {
	scores      scoreStore
	students    studentReader
	terms       termReader
	assignments assignmentReader
	defaultKind string
	defaultYear string
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewScoreService constructs ScoreService.
func NewScoreService(scores scoreStore, students studentReader, terms termReader, assignments assignmentReader, defaultKind, defaultYear string, validate *validator.Validate, logger *zap.Logger) *ScoreService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultKind == "" {
		defaultKind = "Devoir"
	}
	return &ScoreService{
		scores:      scores,
		students:    students,
		terms:       terms,
		assignments: assignments,
		defaultKind: defaultKind,
		defaultYear: defaultYear,
		validator:   validate,
		logger:      logger,
	}
}

// List returns score records matching the filter.
func (s *ScoreService) List(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreRecord, error) {
	scores, err := s.scores.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scores")
	}
	return scores, nil
}

// Record validates and upserts a single score.
func (s *ScoreService) Record(ctx context.Context, req ScoreEntryRequest) (*models.ScoreRecord, error) {
	record, err := s.buildRecord(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.scores.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert score")
	}
	return record, nil
}

// RecordBulk validates every entry and writes all of them in a single
// transaction. Any invalid entry rejects the whole batch.
func (s *ScoreService) RecordBulk(ctx context.Context, req BulkScoreRequest) ([]models.ScoreRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk score payload")
	}
	records := make([]models.ScoreRecord, 0, len(req.Items))
	for _, item := range req.Items {
		record, err := s.buildRecord(ctx, item)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := s.scores.BulkUpsert(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk upsert scores")
	}
	return records, nil
}

func (s *ScoreService) buildRecord(ctx context.Context, req ScoreEntryRequest) (*models.ScoreRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}
	if req.Value < 0 || req.Value > 20 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score value must be between 0 and 20")
	}
	if req.AssignmentID == "" && req.SubjectID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignment or subject required")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.terms.FindByID(ctx, req.TermID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	record := &models.ScoreRecord{
		StudentID:    req.StudentID,
		SubjectID:    req.SubjectID,
		TermID:       req.TermID,
		Kind:         req.Kind,
		Value:        req.Value,
		Absent:       req.Absent,
		AcademicYear: req.AcademicYear,
	}
	if record.Kind == "" {
		record.Kind = s.defaultKind
	}
	if record.AcademicYear == "" {
		record.AcademicYear = s.defaultYear
	}
	if req.RecordedOn != nil {
		record.RecordedOn = *req.RecordedOn
	} else {
		record.RecordedOn = time.Now().UTC()
	}
	if req.Comment != "" {
		comment := req.Comment
		record.Comment = &comment
	}

	if req.AssignmentID != "" {
		assignment, err := s.assignments.FindByID(ctx, req.AssignmentID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
		}
		record.AssignmentID = &assignment.ID
		record.SubjectID = assignment.SubjectID
		return record, nil
	}

	// Subject-only entry: adopt the assignment taught for that subject in
	// the student's current class when one exists. Otherwise the record is
	// stored as a legacy row and skipped by averaging.
	if student.ClassID != nil {
		assignments, err := s.assignments.ListByClass(ctx, *student.ClassID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class subjects")
		}
		for _, assignment := range assignments {
			if assignment.SubjectID == req.SubjectID {
				id := assignment.ID
				record.AssignmentID = &id
				break
			}
		}
	}
	if record.AssignmentID == nil {
		s.logger.Warn("score recorded without assignment linkage",
			zap.String("student_id", req.StudentID),
			zap.String("subject_id", req.SubjectID),
		)
	}
	return record, nil
}
