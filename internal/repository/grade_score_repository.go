package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/teaching-portal-api/internal/models"
)

const upsertScoreQuery = `INSERT INTO student_grade_scores (id, grade_item_id, student_id, score, percentage, remarks, graded_by, graded_at)
        VALUES (:id, :grade_item_id, :student_id, :score, :percentage, :remarks, :graded_by, :graded_at)
        ON CONFLICT (grade_item_id, student_id)
        DO UPDATE SET score = EXCLUDED.score, percentage = EXCLUDED.percentage, remarks = EXCLUDED.remarks, graded_by = EXCLUDED.graded_by, graded_at = EXCLUDED.graded_at`

// GradeScoreRepository persists per-item student scores.
type GradeScoreRepository struct {
	idAllocator
	db *sqlx.DB
}

// NewGradeScoreRepository creates a new score repository.
func NewGradeScoreRepository(db *sqlx.DB) *GradeScoreRepository {
	return &GradeScoreRepository{db: db}
}

// ListByItem returns every recorded score for an item.
func (r *GradeScoreRepository) ListByItem(ctx context.Context, itemID string) ([]models.StudentGradeScore, error) {
	const query = `SELECT id, grade_item_id, student_id, score, percentage, remarks, graded_by, graded_at
        FROM student_grade_scores WHERE grade_item_id = $1`
	var scores []models.StudentGradeScore
	if err := r.db.SelectContext(ctx, &scores, query, itemID); err != nil {
		return nil, fmt.Errorf("list item scores: %w", err)
	}
	return scores, nil
}

// ListByStudent returns a student's scores across the items of a class.
func (r *GradeScoreRepository) ListByStudent(ctx context.Context, classID, studentID string) ([]models.StudentGradeScore, error) {
	const query = `SELECT s.id, s.grade_item_id, s.student_id, s.score, s.percentage, s.remarks, s.graded_by, s.graded_at
        FROM student_grade_scores s
        JOIN grade_items i ON i.id = s.grade_item_id
        WHERE i.class_id = $1 AND s.student_id = $2`
	var scores []models.StudentGradeScore
	if err := r.db.SelectContext(ctx, &scores, query, classID, studentID); err != nil {
		return nil, fmt.Errorf("list student scores: %w", err)
	}
	return scores, nil
}

// PercentagesByClass returns every scored percentage recorded for the class's items.
// Rows with a null percentage are ungraded and excluded.
func (r *GradeScoreRepository) PercentagesByClass(ctx context.Context, classID string) ([]models.ItemPercentage, error) {
	const query = `SELECT s.grade_item_id, s.student_id, s.percentage
        FROM student_grade_scores s
        JOIN grade_items i ON i.id = s.grade_item_id
        WHERE i.class_id = $1 AND s.percentage IS NOT NULL`
	var rows []models.ItemPercentage
	if err := r.db.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, fmt.Errorf("class percentages: %w", err)
	}
	return rows, nil
}

// Upsert inserts or replaces the student's score for the item.
func (r *GradeScoreRepository) Upsert(ctx context.Context, score *models.StudentGradeScore) error {
	r.prepare(score, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, upsertScoreQuery, score); err != nil {
		return fmt.Errorf("upsert grade score: %w", err)
	}
	return nil
}

// BulkUpsert writes all scores in one transaction.
func (r *GradeScoreRepository) BulkUpsert(ctx context.Context, scores []models.StudentGradeScore) error {
	if len(scores) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for i := range scores {
		r.prepare(&scores[i], now)
		if _, err := tx.NamedExecContext(ctx, upsertScoreQuery, scores[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk upsert grade score: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grade scores: %w", err)
	}
	return nil
}

func (r *GradeScoreRepository) prepare(score *models.StudentGradeScore, now time.Time) {
	if score.ID == "" {
		score.ID = r.nextID()
	}
	if score.GradedAt.IsZero() {
		score.GradedAt = now
	}
}
