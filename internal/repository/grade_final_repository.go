package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/teaching-portal-api/internal/models"
)

// GradeFinalRepository manages final grade persistence.
type GradeFinalRepository struct {
	idAllocator
	db *sqlx.DB
}

// NewGradeFinalRepository constructs repository.
func NewGradeFinalRepository(db *sqlx.DB) *GradeFinalRepository {
	return &GradeFinalRepository{db: db}
}

// ReplaceForClass makes finals the class's complete final-grade set in one transaction.
// Existing rows are updated in place, keeping their id and publication flag; both are
// written back into finals. Rows of students missing from finals are deleted.
func (r *GradeFinalRepository) ReplaceForClass(ctx context.Context, classID string, finals []models.StudentFinalGrade) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := r.upsertFinals(ctx, tx, classID, finals); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}

	studentIDs := make([]string, len(finals))
	for i := range finals {
		studentIDs[i] = finals[i].StudentID
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_final_grades WHERE class_id = $1 AND NOT (student_id = ANY($2))`, classID, pq.Array(studentIDs)); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("prune final grades: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit final grades: %w", err)
	}
	return nil
}

type storedFinal struct {
	ID          string `db:"id"`
	IsPublished bool   `db:"is_published"`
}

func (r *GradeFinalRepository) upsertFinals(ctx context.Context, tx *sqlx.Tx, classID string, finals []models.StudentFinalGrade) error {
	if len(finals) == 0 {
		return nil
	}
	const query = `INSERT INTO student_final_grades (id, student_id, class_id, total_score, class_rank, rank_percentage, category_scores, is_published, calculated_at)
        VALUES (:id, :student_id, :class_id, :total_score, :class_rank, :rank_percentage, :category_scores, :is_published, :calculated_at)
        ON CONFLICT (student_id, class_id)
        DO UPDATE SET total_score = EXCLUDED.total_score, class_rank = EXCLUDED.class_rank, rank_percentage = EXCLUDED.rank_percentage, category_scores = EXCLUDED.category_scores, calculated_at = EXCLUDED.calculated_at
        RETURNING id, is_published`
	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare final grade upsert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for i := range finals {
		if finals[i].ID == "" {
			finals[i].ID = r.nextID()
		}
		if finals[i].CalculatedAt.IsZero() {
			finals[i].CalculatedAt = now
		}
		finals[i].ClassID = classID

		var stored storedFinal
		if err := stmt.GetContext(ctx, &stored, finals[i]); err != nil {
			return fmt.Errorf("upsert final grade: %w", err)
		}
		finals[i].ID = stored.ID
		finals[i].IsPublished = stored.IsPublished
	}
	return nil
}

// ListByClass returns the class's final grades in rank order with student identity.
func (r *GradeFinalRepository) ListByClass(ctx context.Context, classID string) ([]models.FinalGradeRow, error) {
	const query = `SELECT f.id, f.student_id, f.class_id, f.total_score, f.class_rank, f.rank_percentage, f.category_scores, f.is_published, f.calculated_at,
        st.student_no, st.full_name AS student_name
        FROM student_final_grades f
        JOIN students st ON st.id = f.student_id
        WHERE f.class_id = $1
        ORDER BY f.class_rank, st.student_no`
	var rows []models.FinalGradeRow
	if err := r.db.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, fmt.Errorf("list final grades: %w", err)
	}
	return rows, nil
}

// FindByStudent returns one student's final grade for a class.
func (r *GradeFinalRepository) FindByStudent(ctx context.Context, classID, studentID string) (*models.StudentFinalGrade, error) {
	const query = `SELECT id, student_id, class_id, total_score, class_rank, rank_percentage, category_scores, is_published, calculated_at
        FROM student_final_grades WHERE class_id = $1 AND student_id = $2`
	var final models.StudentFinalGrade
	if err := r.db.GetContext(ctx, &final, query, classID, studentID); err != nil {
		return nil, err
	}
	return &final, nil
}

// SetPublished toggles visibility of every final grade in the class and reports the rows touched.
func (r *GradeFinalRepository) SetPublished(ctx context.Context, classID string, published bool) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE student_final_grades SET is_published = $1 WHERE class_id = $2`, published, classID)
	if err != nil {
		return 0, fmt.Errorf("set finals published: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("finals published rows: %w", err)
	}
	return affected, nil
}
