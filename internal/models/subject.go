package models

import "time"

// Subject is a taught discipline.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ClassSubjectAssignment binds a subject to a class at a level and carries the
// grading coefficient. One row per subject taught in the class; immutable once
// scores reference it.
type ClassSubjectAssignment struct {
	ID          string    `db:"id" json:"id"`
	ClassID     string    `db:"class_id" json:"class_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	LevelID     string    `db:"level_id" json:"level_id"`
	Coefficient int       `db:"coefficient" json:"coefficient"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
