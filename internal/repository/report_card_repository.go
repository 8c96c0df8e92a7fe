package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/scolaria/scolaria-api/internal/models"
)

// ReportCardRepository persists generated report cards, one per
// (student, term) pair.
type ReportCardRepository struct {
	db *sqlx.DB
}

// NewReportCardRepository creates a new report card repository.
func NewReportCardRepository(db *sqlx.DB) *ReportCardRepository {
	return &ReportCardRepository{db: db}
}

// Find returns the persisted card for a student and term, or sql.ErrNoRows.
func (r *ReportCardRepository) Find(ctx context.Context, studentID, termID string) (*models.ReportCard, error) {
	const query = `SELECT id, student_id, term_id, overall_average, rank, class_size, appreciation, decision, academic_year, generated_on
        FROM report_cards WHERE student_id = $1 AND term_id = $2`
	var card models.ReportCard
	if err := r.db.GetContext(ctx, &card, query, studentID, termID); err != nil {
		return nil, err
	}
	return &card, nil
}

// Upsert inserts or replaces the card keyed by (student, term). Concurrent
// writers race last-write-wins; there is no version column.
func (r *ReportCardRepository) Upsert(ctx context.Context, card *models.ReportCard) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if card.GeneratedOn.IsZero() {
		card.GeneratedOn = time.Now().UTC()
	}
	const query = `INSERT INTO report_cards (id, student_id, term_id, overall_average, rank, class_size, appreciation, decision, academic_year, generated_on)
        VALUES (:id, :student_id, :term_id, :overall_average, :rank, :class_size, :appreciation, :decision, :academic_year, :generated_on)
        ON CONFLICT (student_id, term_id)
        DO UPDATE SET overall_average = EXCLUDED.overall_average, rank = EXCLUDED.rank, class_size = EXCLUDED.class_size,
            appreciation = EXCLUDED.appreciation, decision = EXCLUDED.decision, academic_year = EXCLUDED.academic_year,
            generated_on = EXCLUDED.generated_on`
	if _, err := r.db.NamedExecContext(ctx, query, card); err != nil {
		return fmt.Errorf("upsert report card: %w", err)
	}
	return nil
}
