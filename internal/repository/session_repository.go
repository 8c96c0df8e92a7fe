package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/scolaria/scolaria-api/internal/models"
)

// SessionRepository persists timetable sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, class_id, subject_id, teacher_id, room_id, weekday, start_time, end_time, status, academic_year, created_at, updated_at`

// FindByID returns one session regardless of status.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListActiveByRoom returns active sessions booked in a room.
func (r *SessionRepository) ListActiveByRoom(ctx context.Context, roomID string) ([]models.Session, error) {
	return r.listActive(ctx, "room_id", roomID)
}

// ListActiveByTeacher returns active sessions taught by a teacher.
func (r *SessionRepository) ListActiveByTeacher(ctx context.Context, teacherID string) ([]models.Session, error) {
	return r.listActive(ctx, "teacher_id", teacherID)
}

// ListActiveByClass returns active sessions of a class.
func (r *SessionRepository) ListActiveByClass(ctx context.Context, classID string) ([]models.Session, error) {
	return r.listActive(ctx, "class_id", classID)
}

func (r *SessionRepository) listActive(ctx context.Context, column, value string) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE %s = $1 AND status = $2 ORDER BY weekday, start_time", sessionColumns, column)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, value, models.SessionActive); err != nil {
		return nil, fmt.Errorf("list active sessions by %s: %w", column, err)
	}
	return sessions, nil
}

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	const query = `INSERT INTO sessions (id, class_id, subject_id, teacher_id, room_id, weekday, start_time, end_time, status, academic_year, created_at, updated_at)
        VALUES (:id, :class_id, :subject_id, :teacher_id, :room_id, :weekday, :start_time, :end_time, :status, :academic_year, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of a session.
func (r *SessionRepository) Update(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sessions SET class_id = :class_id, subject_id = :subject_id, teacher_id = :teacher_id, room_id = :room_id,
        weekday = :weekday, start_time = :start_time, end_time = :end_time, academic_year = :academic_year, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// SetStatus flips the soft-delete flag of a session.
func (r *SessionRepository) SetStatus(ctx context.Context, id string, status models.SessionStatus) error {
	const query = `UPDATE sessions SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set session status: %w", err)
	}
	return nil
}

// HardDelete removes a session row entirely. Maintenance path only; regular
// deletion is a status flip.
func (r *SessionRepository) HardDelete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("hard delete session: %w", err)
	}
	return nil
}
