package engine

import (
	"fmt"
	"time"

	"github.com/noah-isme/leveling-api/internal/models"
)

var baseTime = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func date(month time.Month, day int) *time.Time {
	t := time.Date(2025, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func modalityPtr(m models.Modality) *models.Modality { return &m }

type sectionOpt func(*models.SectionCourse)

func withCount(n int) sectionOpt {
	return func(sc *models.SectionCourse) { sc.StudentCount = n }
}

func withCapacity(initial, extra int) sectionOpt {
	return func(sc *models.SectionCourse) {
		sc.InitialCapacity = initial
		sc.MaxExtraCapacity = extra
	}
}

func withClassroom(capacity int, status models.ClassroomStatus) sectionOpt {
	return func(sc *models.SectionCourse) {
		sc.ClassroomID = strPtr("room-" + sc.ID)
		sc.ClassroomCapacity = intPtr(capacity)
		sc.ClassroomStatus = &status
	}
}

func withModality(m models.Modality) sectionOpt {
	return func(sc *models.SectionCourse) { sc.Modality = m }
}

func withCreatedOffset(minutes int) sectionOpt {
	return func(sc *models.SectionCourse) { sc.CreatedAt = baseTime.Add(time.Duration(minutes) * time.Minute) }
}

func withBlock(day int, start, end string) sectionOpt {
	return func(sc *models.SectionCourse) {
		sc.Blocks = append(sc.Blocks, models.ScheduleBlock{
			ID:              fmt.Sprintf("%s-b%d", sc.ID, len(sc.Blocks)+1),
			SectionCourseID: sc.ID,
			DayOfWeek:       day,
			StartTime:       start,
			EndTime:         end,
		})
	}
}

func withDatedBlock(day int, start, end string, from, to *time.Time) sectionOpt {
	return func(sc *models.SectionCourse) {
		sc.Blocks = append(sc.Blocks, models.ScheduleBlock{
			ID:              fmt.Sprintf("%s-b%d", sc.ID, len(sc.Blocks)+1),
			SectionCourseID: sc.ID,
			DayOfWeek:       day,
			StartTime:       start,
			EndTime:         end,
			StartDate:       from,
			EndDate:         to,
		})
	}
}

func newSection(id, courseID, courseName string, opts ...sectionOpt) models.SectionCourse {
	sc := models.SectionCourse{
		ID:               id,
		SectionID:        "sec-" + id,
		SectionCode:      "S-" + id,
		CourseID:         courseID,
		CourseName:       courseName,
		FacultyGroup:     "INGENIERIA",
		CampusName:       "LIMA",
		Modality:         models.ModalityPresencial,
		InitialCapacity:  30,
		MaxExtraCapacity: 0,
		CreatedAt:        baseTime,
	}
	for _, opt := range opts {
		opt(&sc)
	}
	return sc
}

func newDemand(id, studentID, courseID, courseName string) models.StudentCourseDemand {
	return models.StudentCourseDemand{
		ID:           id,
		RunID:        "run-1",
		StudentID:    studentID,
		StudentCode:  "C-" + studentID,
		StudentName:  "Student " + studentID,
		CourseID:     courseID,
		CourseName:   courseName,
		FacultyGroup: "INGENIERIA",
		CampusName:   "LIMA",
		IsRequired:   true,
	}
}

func assignment(studentID string, sc models.SectionCourse) models.Assignment {
	return models.Assignment{
		ID:              "as-" + studentID + "-" + sc.ID,
		SectionCourseID: sc.ID,
		StudentID:       studentID,
		CourseID:        sc.CourseID,
	}
}

func structuredRun() models.LevelingRun {
	return models.LevelingRun{ID: "run-1", PeriodID: "period-1", Status: models.RunStatusStructured}
}
