package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/scolaria/scolaria-api/internal/models"
)

// ScoreRepository handles raw score persistence.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository creates a new score repository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

const scoreColumns = `id, student_id, assignment_id, subject_id, term_id, kind, value, absent, recorded_on, comment, academic_year, created_at, updated_at`

// List returns score records matching the filter.
func (r *ScoreRepository) List(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM scores WHERE 1=1", scoreColumns)
	var args []interface{}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.TermID != "" {
		query += fmt.Sprintf(" AND term_id = $%d", len(args)+1)
		args = append(args, filter.TermID)
	}
	if filter.AssignmentID != "" {
		query += fmt.Sprintf(" AND assignment_id = $%d", len(args)+1)
		args = append(args, filter.AssignmentID)
	}
	if filter.SubjectID != "" {
		query += fmt.Sprintf(" AND subject_id = $%d", len(args)+1)
		args = append(args, filter.SubjectID)
	}
	query += " ORDER BY recorded_on DESC"
	var scores []models.ScoreRecord
	if err := r.db.SelectContext(ctx, &scores, query, args...); err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return scores, nil
}

// ListByStudentAndTerm returns every score of one student for a term.
func (r *ScoreRepository) ListByStudentAndTerm(ctx context.Context, studentID, termID string) ([]models.ScoreRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM scores WHERE student_id = $1 AND term_id = $2", scoreColumns)
	var scores []models.ScoreRecord
	if err := r.db.SelectContext(ctx, &scores, query, studentID, termID); err != nil {
		return nil, fmt.Errorf("list scores by student: %w", err)
	}
	return scores, nil
}

// ListByClassAndTerm returns the scores of every student currently enrolled
// in the class for a term.
func (r *ScoreRepository) ListByClassAndTerm(ctx context.Context, classID, termID string) ([]models.ScoreRecord, error) {
	const query = `SELECT sc.id, sc.student_id, sc.assignment_id, sc.subject_id, sc.term_id, sc.kind, sc.value, sc.absent, sc.recorded_on, sc.comment, sc.academic_year, sc.created_at, sc.updated_at
        FROM scores sc
        JOIN students st ON st.id = sc.student_id
        WHERE st.class_id = $1 AND sc.term_id = $2`
	var scores []models.ScoreRecord
	if err := r.db.SelectContext(ctx, &scores, query, classID, termID); err != nil {
		return nil, fmt.Errorf("list scores by class: %w", err)
	}
	return scores, nil
}

// Upsert inserts a score or replaces the value of the record keyed by
// (student, assignment, term, kind).
func (r *ScoreRepository) Upsert(ctx context.Context, score *models.ScoreRecord) error {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if score.CreatedAt.IsZero() {
		score.CreatedAt = now
	}
	score.UpdatedAt = now
	const query = `INSERT INTO scores (id, student_id, assignment_id, subject_id, term_id, kind, value, absent, recorded_on, comment, academic_year, created_at, updated_at)
        VALUES (:id, :student_id, :assignment_id, :subject_id, :term_id, :kind, :value, :absent, :recorded_on, :comment, :academic_year, :created_at, :updated_at)
        ON CONFLICT (student_id, assignment_id, term_id, kind)
        DO UPDATE SET value = EXCLUDED.value, absent = EXCLUDED.absent, recorded_on = EXCLUDED.recorded_on, comment = EXCLUDED.comment, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, score); err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

// BulkUpsert writes multiple scores in a single transaction.
func (r *ScoreRepository) BulkUpsert(ctx context.Context, scores []models.ScoreRecord) error {
	if len(scores) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for i := range scores {
		if scores[i].ID == "" {
			scores[i].ID = uuid.NewString()
		}
		now := time.Now().UTC()
		if scores[i].CreatedAt.IsZero() {
			scores[i].CreatedAt = now
		}
		scores[i].UpdatedAt = now
		const query = `INSERT INTO scores (id, student_id, assignment_id, subject_id, term_id, kind, value, absent, recorded_on, comment, academic_year, created_at, updated_at)
            VALUES (:id, :student_id, :assignment_id, :subject_id, :term_id, :kind, :value, :absent, :recorded_on, :comment, :academic_year, :created_at, :updated_at)
            ON CONFLICT (student_id, assignment_id, term_id, kind)
            DO UPDATE SET value = EXCLUDED.value, absent = EXCLUDED.absent, recorded_on = EXCLUDED.recorded_on, comment = EXCLUDED.comment, updated_at = EXCLUDED.updated_at`
		if _, err := tx.NamedExecContext(ctx, query, scores[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk upsert score: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scores: %w", err)
	}
	return nil
}
