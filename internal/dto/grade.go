package dto

import (
	"time"

	"github.com/noah-isme/teaching-portal-api/internal/models"
)

// CreateCategoryRequest defines a new grade category.
type CreateCategoryRequest struct {
	Name         string  `json:"name" validate:"required,max=100"`
	Weight       float64 `json:"weight" validate:"gte=0,lte=100"`
	Description  *string `json:"description" validate:"omitempty,max=500"`
	DisplayOrder int     `json:"display_order" validate:"gte=0"`
}

// UpdateCategoryRequest partially updates a category.
type UpdateCategoryRequest struct {
	Name         *string  `json:"name" validate:"omitempty,max=100"`
	Weight       *float64 `json:"weight" validate:"omitempty,gte=0,lte=100"`
	Description  *string  `json:"description" validate:"omitempty,max=500"`
	DisplayOrder *int     `json:"display_order" validate:"omitempty,gte=0"`
}

// CreateItemRequest defines a new grade item inside a category.
type CreateItemRequest struct {
	Name                string               `json:"name" validate:"required,max=100"`
	ItemType            models.GradeItemType `json:"item_type" validate:"omitempty,oneof=manual assignment exam attendance participation project other"`
	Weight              *float64             `json:"weight" validate:"omitempty,gte=0"`
	MaxScore            *float64             `json:"max_score" validate:"omitempty,gt=0"`
	RelatedAssignmentID *string              `json:"related_assignment_id"`
	AutoCalculate       bool                 `json:"auto_calculate"`
	IsPublished         bool                 `json:"is_published"`
}

// UpdateItemRequest partially updates an item.
type UpdateItemRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=100"`
	Weight      *float64 `json:"weight" validate:"omitempty,gte=0"`
	MaxScore    *float64 `json:"max_score" validate:"omitempty,gt=0"`
	IsPublished *bool    `json:"is_published"`
}

// ScoreEntry is one student's score in a submission. A nil score is skipped by batch entry.
type ScoreEntry struct {
	StudentID string   `json:"student_id" validate:"required"`
	Score     *float64 `json:"score" validate:"omitempty,gte=0"`
	Remarks   *string  `json:"remarks" validate:"omitempty,max=500"`
}

// BatchScoresRequest submits scores for one item.
type BatchScoresRequest struct {
	Scores []ScoreEntry `json:"scores" validate:"required,dive"`
}

// BatchScoresResult summarises a batch submission.
type BatchScoresResult struct {
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
}

// RosterScore is a student's row in an item's score sheet.
type RosterScore struct {
	StudentID   string   `json:"student_id"`
	StudentNo   string   `json:"student_no"`
	StudentName string   `json:"student_name"`
	Score       *float64 `json:"score"`
	Percentage  *float64 `json:"percentage"`
	Remarks     *string  `json:"remarks,omitempty"`
}

// ItemScoresResponse is an item's score sheet over the active roster.
type ItemScoresResponse struct {
	Item   models.GradeItem `json:"item"`
	Scores []RosterScore    `json:"scores"`
}

// StudentItemScore is one item with a student's score, if any.
type StudentItemScore struct {
	Item       models.GradeItem `json:"item"`
	Score      *float64         `json:"score"`
	Percentage *float64         `json:"percentage"`
	Remarks    *string          `json:"remarks,omitempty"`
	GradedAt   *time.Time       `json:"graded_at,omitempty"`
}

// AttendanceScoresResult reports an attendance scoring run.
type AttendanceScoresResult struct {
	ItemID        string             `json:"item_id"`
	TotalSessions int                `json:"total_sessions"`
	Scores        map[string]float64 `json:"scores"`
}

// RecomputeResult is the ranked outcome of a class recompute.
type RecomputeResult struct {
	ClassID      string                     `json:"class_id"`
	StudentCount int                        `json:"student_count"`
	FinalGrades  []models.StudentFinalGrade `json:"final_grades"`
}

// PublishFinalGradesRequest toggles final grade visibility for students.
type PublishFinalGradesRequest struct {
	Published *bool `json:"published" validate:"required"`
}

// PublishFinalGradesResult reports how many rows changed visibility.
type PublishFinalGradesResult struct {
	ClassID   string `json:"class_id"`
	Published bool   `json:"published"`
	Updated   int64  `json:"updated"`
}

// FinalGradeEntry is a student's row in the class final grade list. Total and rank are
// nil when the class has not been recomputed yet.
type FinalGradeEntry struct {
	StudentID      string                 `json:"student_id"`
	StudentNo      string                 `json:"student_no"`
	StudentName    string                 `json:"student_name"`
	TotalScore     *float64               `json:"total_score"`
	Rank           *int                   `json:"rank"`
	RankPercentage *float64               `json:"rank_percentage"`
	GradeLevel     string                 `json:"grade_level,omitempty"`
	CategoryScores []models.CategoryScore `json:"category_scores"`
	IsPublished    bool                   `json:"is_published"`
	CalculatedAt   *time.Time             `json:"calculated_at,omitempty"`
}

// FinalGradesResponse lists a class's final grades.
type FinalGradesResponse struct {
	ClassID      string                 `json:"class_id"`
	Categories   []models.GradeCategory `json:"categories"`
	FinalGrades  []FinalGradeEntry      `json:"final_grades"`
	IsCalculated bool                   `json:"is_calculated"`
}

// RankingEntry is one line of the statistics ranking.
type RankingEntry struct {
	Rank        int     `json:"rank"`
	StudentID   string  `json:"student_id"`
	StudentNo   string  `json:"student_no"`
	StudentName string  `json:"student_name"`
	TotalScore  float64 `json:"total_score"`
}

// GradeStatistics summarises a class's final grades.
type GradeStatistics struct {
	ClassID       string         `json:"class_id"`
	TotalStudents int            `json:"total_students"`
	Average       float64        `json:"average_score"`
	Highest       float64        `json:"highest_score"`
	Lowest        float64        `json:"lowest_score"`
	PassRate      float64        `json:"pass_rate"`
	ExcellentRate float64        `json:"excellent_rate"`
	Distribution  map[string]int `json:"distribution"`
	Rankings      []RankingEntry `json:"rankings"`
	HasData       bool           `json:"has_data"`
	HasConfig     bool           `json:"has_config"`
	Message       string         `json:"message,omitempty"`
}

// MyGradesResponse is what a student sees: published items and, once published, the final grade.
type MyGradesResponse struct {
	ClassID    string                    `json:"class_id"`
	Items      []StudentItemScore        `json:"items"`
	FinalGrade *models.StudentFinalGrade `json:"final_grade"`
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
