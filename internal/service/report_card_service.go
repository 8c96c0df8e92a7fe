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

type reportCardStore interface {
	Find(ctx context.Context, studentID, termID string) (*models.ReportCard, error)
	Upsert(ctx context.Context, card *models.ReportCard) error
}

type averageComputer interface {
	ComputeStudentTerm(ctx context.Context, studentID, termID string) (*models.TermAverages, error)
}

type classRanker interface {
	RankClass(ctx context.Context, classID, termID string) ([]models.ClassRankRow, error)
}

type reportCardRenderer interface {
	Render(view models.ReportCardView) ([]byte, error)
}

// GenerateReportCardRequest carries the narrative fields of a report card.
type GenerateReportCardRequest struct {
	Appreciation string `json:"appreciation" validate:"omitempty,max=500"`
	Decision     string `json:"decision" validate:"omitempty,max=500"`
}

// ReportCardService orchestrates average computation and ranking into report
// cards. Fetch is pure compute; Generate is the single write path and always
// recomputes instead of trusting persisted numbers.
type ReportCardService struct {
	students  studentReader
	terms     termReader
	classes   classReader
	cards     reportCardStore
	averages  averageComputer
	ranker    classRanker
	renderer  reportCardRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportCardService constructs ReportCardService.
func NewReportCardService(students studentReader, terms termReader, classes classReader, cards reportCardStore, averages averageComputer, ranker classRanker, renderer reportCardRenderer, validate *validator.Validate, logger *zap.Logger) *ReportCardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportCardService{
		students:  students,
		terms:     terms,
		classes:   classes,
		cards:     cards,
		averages:  averages,
		ranker:    ranker,
		renderer:  renderer,
		validator: validate,
		logger:    logger,
	}
}

// Fetch computes fresh averages and overlays whatever card was last
// persisted. It never writes; calling it repeatedly yields the same numbers
// as Generate for the same inputs.
func (s *ReportCardService) Fetch(ctx context.Context, studentID, termID string) (*models.ReportCardView, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	averages, err := s.averages.ComputeStudentTerm(ctx, studentID, termID)
	if err != nil {
		return nil, err
	}

	view := &models.ReportCardView{
		StudentID:      student.ID,
		StudentName:    student.FullName(),
		RegistrationNo: student.RegistrationNo,
		TermID:         term.ID,
		TermName:       term.Name,
		AcademicYear:   term.AcademicYear,
		Subjects:       averages.Subjects,
		OverallAverage: averages.OverallAverage,
	}
	if student.ClassName != nil {
		view.ClassName = *student.ClassName
	}

	card, err := s.cards.Find(ctx, studentID, termID)
	if err != nil {
		if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report card")
		}
		return view, nil
	}
	rank := card.Rank
	classSize := card.ClassSize
	generated := card.GeneratedOn
	view.Rank = &rank
	view.ClassSize = &classSize
	view.Appreciation = card.Appreciation
	view.Decision = card.Decision
	view.GeneratedOn = &generated
	return view, nil
}

// Generate recomputes averages and rank, then upserts the card keyed by
// (student, term). Concurrent generates for the same key race last-write-wins
// at the storage layer. Missing scores are a valid zero state, not an error.
func (s *ReportCardService) Generate(ctx context.Context, studentID, termID string, req GenerateReportCardRequest) (*models.ReportCardView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report card payload")
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	averages, err := s.averages.ComputeStudentTerm(ctx, studentID, termID)
	if err != nil {
		return nil, err
	}

	rank := 0
	classSize := 0
	if student.ClassID != nil {
		rows, err := s.ranker.RankClass(ctx, *student.ClassID, termID)
		if err != nil {
			return nil, err
		}
		classSize = len(rows)
		for _, row := range rows {
			if row.StudentID == studentID {
				rank = row.Rank
				break
			}
		}
	}

	card := &models.ReportCard{
		StudentID:      studentID,
		TermID:         termID,
		OverallAverage: averages.OverallAverage,
		Rank:           rank,
		ClassSize:      classSize,
		Appreciation:   req.Appreciation,
		Decision:       req.Decision,
		AcademicYear:   term.AcademicYear,
		GeneratedOn:    time.Now().UTC(),
	}
	if err := s.cards.Upsert(ctx, card); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist report card")
	}

	s.logger.Info("report card generated",
		zap.String("student_id", studentID),
		zap.String("term_id", termID),
		zap.Float64("overall_average", averages.OverallAverage),
		zap.Int("rank", rank),
	)

	return s.Fetch(ctx, studentID, termID)
}

// ClassReportCards returns the computed card view of every enrolled student.
func (s *ReportCardService) ClassReportCards(ctx context.Context, classID, termID string) ([]models.ReportCardView, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	students, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class students")
	}
	views := make([]models.ReportCardView, 0, len(students))
	for _, student := range students {
		view, err := s.Fetch(ctx, student.ID, termID)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// RenderPDF renders the computed card view as a PDF document.
func (s *ReportCardService) RenderPDF(ctx context.Context, studentID, termID string) ([]byte, error) {
	view, err := s.Fetch(ctx, studentID, termID)
	if err != nil {
		return nil, err
	}
	payload, err := s.renderer.Render(*view)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report card")
	}
	return payload, nil
}
