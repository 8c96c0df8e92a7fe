package models

import "time"

// ScoreRecord is a single raw score for a student in a class-subject
// assignment and term. AssignmentID is nil on legacy rows that only carried a
// subject; those are resolved to an assignment at load time where possible.
// An absent record is kept for audit but excluded from averaging.
type ScoreRecord struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	AssignmentID *string   `db:"assignment_id" json:"assignment_id,omitempty"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	TermID       string    `db:"term_id" json:"term_id"`
	Kind         string    `db:"kind" json:"kind"`
	Value        float64   `db:"value" json:"value"`
	Absent       bool      `db:"absent" json:"absent"`
	RecordedOn   time.Time `db:"recorded_on" json:"recorded_on"`
	Comment      *string   `db:"comment" json:"comment,omitempty"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ScoreFilter narrows score listings.
type ScoreFilter struct {
	StudentID    string
	TermID       string
	AssignmentID string
	SubjectID    string
}
