package models

import "time"

// SessionStatus tags a timetable slot as live or soft-deleted.
type SessionStatus string

const (
	SessionActive   SessionStatus = "ACTIVE"
	SessionInactive SessionStatus = "INACTIVE"
)

// Session is a timetable slot for a class. Weekday runs 1 (Monday) through 6
// (Saturday); StartTime and EndTime are zero-padded HH:MM strings so they
// compare correctly as text. Sessions are soft-deleted by flipping Status.
type Session struct {
	ID           string        `db:"id" json:"id"`
	ClassID      string        `db:"class_id" json:"class_id"`
	SubjectID    *string       `db:"subject_id" json:"subject_id,omitempty"`
	TeacherID    string        `db:"teacher_id" json:"teacher_id"`
	RoomID       string        `db:"room_id" json:"room_id"`
	Weekday      int           `db:"weekday" json:"weekday"`
	StartTime    string        `db:"start_time" json:"start_time"`
	EndTime      string        `db:"end_time" json:"end_time"`
	Status       SessionStatus `db:"status" json:"status"`
	AcademicYear string        `db:"academic_year" json:"academic_year"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// Active reports whether the session participates in conflict checks.
func (s Session) Active() bool {
	return s.Status == SessionActive
}

// SessionConflict describes one existing session that collides with a
// proposed slot on a given dimension.
type SessionConflict struct {
	Dimension   string `json:"dimension"`
	SessionID   string `json:"session_id"`
	ClassID     string `json:"class_id"`
	TeacherID   string `json:"teacher_id"`
	RoomID      string `json:"room_id"`
	Weekday     int    `json:"weekday"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Description string `json:"description"`
}

// Conflict dimensions.
const (
	ConflictRoom    = "ROOM"
	ConflictTeacher = "TEACHER"
	ConflictClass   = "CLASS"
)

// DaySchedule is one weekday of a class timetable, sessions ordered by start
// time.
type DaySchedule struct {
	Weekday  int       `json:"weekday"`
	Name     string    `json:"name"`
	Sessions []Session `json:"sessions"`
}

// WeekdayNames maps weekday numbers to their display names, index 0 unused.
var WeekdayNames = [8]string{"", "Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi", "Dimanche"}

// WeekdayName returns the display name for a weekday number, or an empty
// string when out of range.
func WeekdayName(day int) string {
	if day < 1 || day >= len(WeekdayNames) {
		return ""
	}
	return WeekdayNames[day]
}
