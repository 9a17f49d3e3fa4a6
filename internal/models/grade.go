package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// GradeItemType classifies how a grade item is scored.
type GradeItemType string

const (
	GradeItemManual        GradeItemType = "manual"
	GradeItemAssignment    GradeItemType = "assignment"
	GradeItemExam          GradeItemType = "exam"
	GradeItemAttendance    GradeItemType = "attendance"
	GradeItemParticipation GradeItemType = "participation"
	GradeItemProject       GradeItemType = "project"
	GradeItemOther         GradeItemType = "other"
)

// DefaultListedItemTypes are the item types shown by the class item listing when no filter is given.
var DefaultListedItemTypes = []GradeItemType{GradeItemAttendance, GradeItemParticipation, GradeItemProject, GradeItemOther}

// GradeCategory is a weighted bucket of grade items for a class. Weight is a percentage of the total.
type GradeCategory struct {
	ID           string      `db:"id" json:"id"`
	ClassID      string      `db:"class_id" json:"class_id"`
	Name         string      `db:"name" json:"name"`
	Weight       float64     `db:"weight" json:"weight"`
	Description  *string     `db:"description" json:"description,omitempty"`
	DisplayOrder int         `db:"display_order" json:"display_order"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
	Items        []GradeItem `db:"-" json:"items"`
}

// GradeItem is an individually scored unit within a category.
type GradeItem struct {
	ID                  string        `db:"id" json:"id"`
	CategoryID          string        `db:"category_id" json:"category_id"`
	ClassID             string        `db:"class_id" json:"class_id"`
	Name                string        `db:"name" json:"name"`
	ItemType            GradeItemType `db:"item_type" json:"item_type"`
	Weight              *float64      `db:"weight" json:"weight,omitempty"`
	MaxScore            float64       `db:"max_score" json:"max_score"`
	RelatedAssignmentID *string       `db:"related_assignment_id" json:"related_assignment_id,omitempty"`
	AutoCalculate       bool          `db:"auto_calculate" json:"auto_calculate"`
	IsPublished         bool          `db:"is_published" json:"is_published"`
	CreatedBy           *string       `db:"created_by" json:"created_by,omitempty"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentGradeScore is the single score a student holds for a grade item.
type StudentGradeScore struct {
	ID          string    `db:"id" json:"id"`
	GradeItemID string    `db:"grade_item_id" json:"grade_item_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	Score       *float64  `db:"score" json:"score"`
	Percentage  *float64  `db:"percentage" json:"percentage"`
	Remarks     *string   `db:"remarks" json:"remarks,omitempty"`
	GradedBy    *string   `db:"graded_by" json:"graded_by,omitempty"`
	GradedAt    time.Time `db:"graded_at" json:"graded_at"`
}

// ItemPercentage is the scored percentage of one student on one item.
type ItemPercentage struct {
	GradeItemID string  `db:"grade_item_id"`
	StudentID   string  `db:"student_id"`
	Percentage  float64 `db:"percentage"`
}

// CategoryScore is one entry of a final grade's per-category breakdown.
type CategoryScore struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`
	Score      float64 `json:"score"`
}

// CategoryScores is stored as a JSON array on the final grade row.
type CategoryScores []CategoryScore

// Value encodes the breakdown as JSON.
func (c CategoryScores) Value() (driver.Value, error) {
	if c == nil {
		c = CategoryScores{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal category scores: %w", err)
	}
	return data, nil
}

// Scan decodes a JSON breakdown.
func (c *CategoryScores) Scan(value interface{}) error {
	if value == nil {
		*c = CategoryScores{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for CategoryScores", value)
	}
	if len(data) == 0 {
		*c = CategoryScores{}
		return nil
	}
	return json.Unmarshal(data, c)
}

// StudentFinalGrade is the persisted aggregate for one student in one class.
type StudentFinalGrade struct {
	ID             string         `db:"id" json:"id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	ClassID        string         `db:"class_id" json:"class_id"`
	TotalScore     float64        `db:"total_score" json:"total_score"`
	Rank           int            `db:"class_rank" json:"rank"`
	RankPercentage float64        `db:"rank_percentage" json:"rank_percentage"`
	CategoryScores CategoryScores `db:"category_scores" json:"category_scores"`
	IsPublished    bool           `db:"is_published" json:"is_published"`
	CalculatedAt   time.Time      `db:"calculated_at" json:"calculated_at"`
}

// FinalGradeRow joins a final grade with the student's identity for listings.
type FinalGradeRow struct {
	StudentFinalGrade
	StudentNo   string `db:"student_no" json:"student_no"`
	StudentName string `db:"student_name" json:"student_name"`
}

// GradeItemFilter narrows class item listings.
type GradeItemFilter struct {
	ClassID       string
	Types         []GradeItemType
	PublishedOnly bool
}
