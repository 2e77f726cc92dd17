package model

import (
	"errors"
	"time"
)

// Course represents a course known to the platform. Restores always land in
// a concrete course record, whether pre-existing or freshly created.
type Course struct {
	ID         int64     `json:"id"          db:"id"`
	CategoryID int64     `json:"category_id" db:"category_id"`
	Shortname  string    `json:"shortname"   db:"shortname"`
	Fullname   string    `json:"fullname"    db:"fullname"`
	IDNumber   string    `json:"idnumber"    db:"idnumber"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}

// CourseSelector identifies the target course of a restore. Exactly one of
// the course-identifying fields is consulted, in declaration order. When only
// CategoryID is set a new course is created inside that category.
type CourseSelector struct {
	CourseID   int64  `json:"course_id,omitempty"`
	Shortname  string `json:"shortname,omitempty"`
	IDNumber   string `json:"idnumber,omitempty"`
	CategoryID int64  `json:"category_id,omitempty"`
}

// HasCourse reports whether the selector names an existing course rather
// than a category to create one in.
func (s CourseSelector) HasCourse() bool {
	return s.CourseID > 0 || s.Shortname != "" || s.IDNumber != ""
}

// Empty reports whether no selection criteria were provided at all.
func (s CourseSelector) Empty() bool {
	return !s.HasCourse() && s.CategoryID <= 0
}

// CreateCourseRequest represents a request to create a placeholder course
// that a restore will subsequently populate.
type CreateCourseRequest struct {
	CategoryID int64  `json:"category_id"`
	Shortname  string `json:"shortname"`
	Fullname   string `json:"fullname"`
}

// Validate validates the CreateCourseRequest fields.
func (r *CreateCourseRequest) Validate() error {
	if r.CategoryID <= 0 {
		return errors.New("category id is required")
	}
	if r.Shortname == "" {
		return errors.New("shortname is required")
	}
	if r.Fullname == "" {
		return errors.New("fullname is required")
	}
	return nil
}
