package models

import "time"

// SubjectAverage is the derived per-subject line of a report card. Average is
// the mean of non-absent scores rounded to 2 decimals; ClassAverage is the
// unweighted class-wide mean for the same subject and term.
type SubjectAverage struct {
	SubjectID    string   `json:"subject_id"`
	SubjectName  string   `json:"subject_name"`
	Coefficient  int      `json:"coefficient"`
	Average      float64  `json:"average"`
	ClassAverage *float64 `json:"class_average,omitempty"`
}

// TermAverages is the pure computation result for one student and term.
type TermAverages struct {
	StudentID      string           `json:"student_id"`
	TermID         string           `json:"term_id"`
	Subjects       []SubjectAverage `json:"subjects"`
	OverallAverage float64          `json:"overall_average"`
}

// ReportCard is the persisted card, unique per (student, term).
type ReportCard struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	TermID         string    `db:"term_id" json:"term_id"`
	OverallAverage float64   `db:"overall_average" json:"overall_average"`
	Rank           int       `db:"rank" json:"rank"`
	ClassSize      int       `db:"class_size" json:"class_size"`
	Appreciation   string    `db:"appreciation" json:"appreciation"`
	Decision       string    `db:"decision" json:"decision"`
	AcademicYear   string    `db:"academic_year" json:"academic_year"`
	GeneratedOn    time.Time `db:"generated_on" json:"generated_on"`
}

// ReportCardView combines freshly computed numbers with whatever narrative
// fields were last persisted. Rank, ClassSize and GeneratedOn are nil when no
// card has been generated yet.
type ReportCardView struct {
	StudentID      string           `json:"student_id"`
	StudentName    string           `json:"student_name"`
	RegistrationNo string           `json:"registration_no"`
	ClassName      string           `json:"class_name,omitempty"`
	TermID         string           `json:"term_id"`
	TermName       string           `json:"term_name"`
	AcademicYear   string           `json:"academic_year"`
	Subjects       []SubjectAverage `json:"subjects"`
	OverallAverage float64          `json:"overall_average"`
	Rank           *int             `json:"rank,omitempty"`
	ClassSize      *int             `json:"class_size,omitempty"`
	Appreciation   string           `json:"appreciation,omitempty"`
	Decision       string           `json:"decision,omitempty"`
	GeneratedOn    *time.Time       `json:"generated_on,omitempty"`
}

// ClassRankRow is one entry of a class ranking for a term.
type ClassRankRow struct {
	StudentID      string  `json:"student_id"`
	StudentName    string  `json:"student_name"`
	OverallAverage float64 `json:"overall_average"`
	Rank           int     `json:"rank"`
}
