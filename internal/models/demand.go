package models

import "time"

// StudentCourseDemand states that a student must be enrolled in a course.
type StudentCourseDemand struct {
	ID              string     `db:"id" json:"id"`
	RunID           string     `db:"run_id" json:"runId"`
	StudentID       string     `db:"student_id" json:"studentId"`
	StudentCode     string     `db:"student_code" json:"studentCode"`
	StudentName     string     `db:"student_name" json:"studentName"`
	CourseID        string     `db:"course_id" json:"courseId"`
	CourseName      string     `db:"course_name" json:"courseName"`
	FacultyGroup    string     `db:"faculty_group" json:"facultyGroup"`
	CampusName      string     `db:"campus_name" json:"campusName"`
	IsRequired      bool       `db:"is_required" json:"isRequired"`
	SourceModality  *Modality  `db:"source_modality" json:"sourceModality,omitempty"`
	ExamDate        *time.Time `db:"exam_date" json:"examDate,omitempty"`
	SectionCourseID *string    `db:"section_course_id" json:"sectionCourseId,omitempty"`
	AssignedAt      *time.Time `db:"assigned_at" json:"assignedAt,omitempty"`
}

// DemandFilter scopes pending demand lookups.
type DemandFilter struct {
	RunID        string
	FacultyGroup string
	CampusName   string
}
