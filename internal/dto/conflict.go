package dto

import "time"

// ConflictQuery filters the conflict report.
type ConflictQuery struct {
	PeriodID     string `form:"periodId"`
	FacultyGroup string `form:"facultyGroup"`
	CampusName   string `form:"campusName"`
	CourseName   string `form:"courseName"`
	StudentCode  string `form:"studentCode"`
}

// ConflictBlock describes one side of a conflict.
type ConflictBlock struct {
	BlockID         string     `json:"blockId"`
	SectionCourseID string     `json:"sectionCourseId"`
	SectionCode     string     `json:"sectionCode"`
	CourseName      string     `json:"courseName"`
	FacultyGroup    string     `json:"facultyGroup"`
	CampusName      string     `json:"campusName"`
	Modality        string     `json:"modality"`
	StartTime       string     `json:"startTime"`
	EndTime         string     `json:"endTime"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
}

// ConflictView is a conflict pair enriched for reporting.
type ConflictView struct {
	StudentID   string        `json:"studentId"`
	StudentCode string        `json:"studentCode"`
	StudentName string        `json:"studentName"`
	DayOfWeek   int           `json:"dayOfWeek"`
	BlockA      ConflictBlock `json:"blockA"`
	BlockB      ConflictBlock `json:"blockB"`
}
