package models

import "time"

// Student represents an enrolled pupil. ClassID is nil until the student is
// placed into a class.
type Student struct {
	ID             string    `db:"id" json:"id"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	RegistrationNo string    `db:"registration_no" json:"registration_no"`
	ClassID        *string   `db:"class_id" json:"class_id,omitempty"`
	ClassName      *string   `db:"class_name" json:"class_name,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name for display.
func (s Student) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	return s.FirstName + " " + s.LastName
}
