package models

import "time"

// Assignment links a student to a section-course.
type Assignment struct {
	ID              string    `db:"id" json:"id"`
	SectionCourseID string    `db:"section_course_id" json:"sectionCourseId"`
	StudentID       string    `db:"student_id" json:"studentId"`
	StudentCode     string    `db:"student_code" json:"studentCode"`
	StudentName     string    `db:"student_name" json:"studentName"`
	CourseID        string    `db:"course_id" json:"courseId"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// ReassignmentAudit is the write-once record of a student moving between section-courses.
type ReassignmentAudit struct {
	ID                  string    `db:"id" json:"id"`
	StudentID           string    `db:"student_id" json:"studentId"`
	FromSectionCourseID string    `db:"from_section_course_id" json:"fromSectionCourseId"`
	ToSectionCourseID   string    `db:"to_section_course_id" json:"toSectionCourseId"`
	Reason              string    `db:"reason" json:"reason"`
	ChangedBy           string    `db:"changed_by" json:"changedBy"`
	ChangedAt           time.Time `db:"changed_at" json:"changedAt"`
	OverCapacity        bool      `db:"over_capacity" json:"overCapacity"`
}
