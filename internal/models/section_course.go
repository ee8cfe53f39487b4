package models

import "time"

// Modality describes how a section is delivered.
type Modality string

const (
	ModalityPresencial Modality = "PRESENCIAL"
	ModalityVirtual    Modality = "VIRTUAL"
	ModalityHibrido    Modality = "HIBRIDO"
)

// IsVirtual reports whether the modality has no seat ceiling.
func (m Modality) IsVirtual() bool {
	return m == ModalityVirtual
}

// ClassroomStatus reflects whether a classroom can host sessions.
type ClassroomStatus string

const (
	ClassroomStatusActive   ClassroomStatus = "ACTIVA"
	ClassroomStatusInactive ClassroomStatus = "INACTIVA"
)

// Classroom is a physical room with a seat capacity.
type Classroom struct {
	ID       string          `db:"id" json:"id"`
	Code     string          `db:"code" json:"code"`
	Capacity int             `db:"capacity" json:"capacity"`
	Status   ClassroomStatus `db:"status" json:"status"`
}

// SectionCourse is a section's offering of one course, flattened with its section,
// classroom and live student count.
type SectionCourse struct {
	ID                string           `db:"id" json:"id"`
	SectionID         string           `db:"section_id" json:"sectionId"`
	PeriodID          string           `db:"period_id" json:"periodId"`
	SectionCode       string           `db:"section_code" json:"sectionCode"`
	CourseID          string           `db:"course_id" json:"courseId"`
	CourseName        string           `db:"course_name" json:"courseName"`
	FacultyGroup      string           `db:"faculty_group" json:"facultyGroup"`
	CampusName        string           `db:"campus_name" json:"campusName"`
	Modality          Modality         `db:"modality" json:"modality"`
	IsMotherSection   bool             `db:"is_mother_section" json:"isMotherSection"`
	InitialCapacity   int              `db:"initial_capacity" json:"initialCapacity"`
	MaxExtraCapacity  int              `db:"max_extra_capacity" json:"maxExtraCapacity"`
	ClassroomID       *string          `db:"classroom_id" json:"classroomId,omitempty"`
	ClassroomCapacity *int             `db:"classroom_capacity" json:"classroomCapacity,omitempty"`
	ClassroomStatus   *ClassroomStatus `db:"classroom_status" json:"classroomStatus,omitempty"`
	TeacherID         *string          `db:"teacher_id" json:"teacherId,omitempty"`
	StudentCount      int              `db:"student_count" json:"studentCount"`
	CreatedAt         time.Time        `db:"created_at" json:"createdAt"`
	Blocks            []ScheduleBlock  `db:"-" json:"blocks,omitempty"`
}

// Ready reports whether the section-course has a schedule to place students into.
func (sc SectionCourse) Ready() bool {
	return len(sc.Blocks) > 0
}

// SectionCourseFilter narrows section-course lookups.
type SectionCourseFilter struct {
	PeriodID     string
	FacultyGroup string
	CampusName   string
	CourseID     string
	IDs          []string
}

// ScheduleBlock is one weekly meeting of a section-course.
type ScheduleBlock struct {
	ID                 string     `db:"id" json:"id"`
	SectionCourseID    string     `db:"section_course_id" json:"sectionCourseId"`
	DayOfWeek          int        `db:"day_of_week" json:"dayOfWeek"`
	StartTime          string     `db:"start_time" json:"startTime"`
	EndTime            string     `db:"end_time" json:"endTime"`
	StartDate          *time.Time `db:"start_date" json:"startDate,omitempty"`
	EndDate            *time.Time `db:"end_date" json:"endDate,omitempty"`
	ReferenceModality  *string    `db:"reference_modality" json:"referenceModality,omitempty"`
	ReferenceClassroom *string    `db:"reference_classroom" json:"referenceClassroom,omitempty"`
}
