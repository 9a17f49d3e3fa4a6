package service

import (
	"context"

	"github.com/noah-isme/teaching-portal-api/internal/models"
)

type gradeCategoryStore interface {
	ListByClass(ctx context.Context, classID string) ([]models.GradeCategory, error)
	FindByID(ctx context.Context, id string) (*models.GradeCategory, error)
	Create(ctx context.Context, category *models.GradeCategory) error
	Update(ctx context.Context, category *models.GradeCategory) error
	Delete(ctx context.Context, id string) error
}

type gradeItemStore interface {
	FindByID(ctx context.Context, id string) (*models.GradeItem, error)
	List(ctx context.Context, filter models.GradeItemFilter) ([]models.GradeItem, error)
	Create(ctx context.Context, item *models.GradeItem) error
	Update(ctx context.Context, item *models.GradeItem) error
	Delete(ctx context.Context, id string) error
}

type gradeScoreStore interface {
	ListByItem(ctx context.Context, itemID string) ([]models.StudentGradeScore, error)
	ListByStudent(ctx context.Context, classID, studentID string) ([]models.StudentGradeScore, error)
	PercentagesByClass(ctx context.Context, classID string) ([]models.ItemPercentage, error)
	Upsert(ctx context.Context, score *models.StudentGradeScore) error
	BulkUpsert(ctx context.Context, scores []models.StudentGradeScore) error
}

type finalGradeStore interface {
	ReplaceForClass(ctx context.Context, classID string, finals []models.StudentFinalGrade) error
	ListByClass(ctx context.Context, classID string) ([]models.FinalGradeRow, error)
	FindByStudent(ctx context.Context, classID, studentID string) (*models.StudentFinalGrade, error)
	SetPublished(ctx context.Context, classID string, published bool) (int64, error)
}

type rosterReader interface {
	ListActiveStudents(ctx context.Context, classID string) ([]models.EnrolledStudent, error)
	IsActive(ctx context.Context, classID, studentID string) (bool, error)
}

type attendanceReader interface {
	CountSessions(ctx context.Context, classID string) (int, error)
	TallyByClass(ctx context.Context, classID string) (map[string]models.AttendanceTally, error)
}

// GradingStores bundles the repositories shared by the grading services.
type GradingStores struct {
	Categories gradeCategoryStore
	Items      gradeItemStore
	Scores     gradeScoreStore
	Finals     finalGradeStore
	Roster     rosterReader
	Attendance attendanceReader
}
