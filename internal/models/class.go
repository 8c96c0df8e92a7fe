package models

import "time"

// Class is a homeroom group. Enrolled students are derived from the students
// table on every call rather than from a denormalized headcount.
type Class struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	LevelID      string    `db:"level_id" json:"level_id"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
