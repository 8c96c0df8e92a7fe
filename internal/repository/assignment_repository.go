package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/scolaria/scolaria-api/internal/models"
)

// AssignmentRepository reads class-subject assignments and their coefficients.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID returns an assignment with its subject name resolved.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.ClassSubjectAssignment, error) {
	const query = `SELECT a.id, a.class_id, a.subject_id, sub.name AS subject_name, a.level_id, a.coefficient, a.created_at
        FROM class_subject_assignments a
        JOIN subjects sub ON sub.id = a.subject_id
        WHERE a.id = $1`
	var assignment models.ClassSubjectAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListByClass returns every subject assignment taught in a class.
func (r *AssignmentRepository) ListByClass(ctx context.Context, classID string) ([]models.ClassSubjectAssignment, error) {
	const query = `SELECT a.id, a.class_id, a.subject_id, sub.name AS subject_name, a.level_id, a.coefficient, a.created_at
        FROM class_subject_assignments a
        JOIN subjects sub ON sub.id = a.subject_id
        WHERE a.class_id = $1
        ORDER BY sub.name`
	var assignments []models.ClassSubjectAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, classID); err != nil {
		return nil, fmt.Errorf("list assignments by class: %w", err)
	}
	return assignments, nil
}
