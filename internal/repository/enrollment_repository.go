package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/teaching-portal-api/internal/models"
)

// EnrollmentRepository reads class rosters. Enrollment rows are written elsewhere.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository returns a new repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListActiveStudents returns actively enrolled students in enrollment order.
func (r *EnrollmentRepository) ListActiveStudents(ctx context.Context, classID string) ([]models.EnrolledStudent, error) {
	const query = `SELECT e.student_id, st.student_no, st.full_name AS student_name, e.joined_at
        FROM enrollments e
        JOIN students st ON st.id = e.student_id
        WHERE e.class_id = $1 AND e.status = $2
        ORDER BY e.joined_at, e.student_id`
	var students []models.EnrolledStudent
	if err := r.db.SelectContext(ctx, &students, query, classID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return students, nil
}

// IsActive reports whether the student is actively enrolled in the class.
func (r *EnrollmentRepository) IsActive(ctx context.Context, classID, studentID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM enrollments WHERE class_id = $1 AND student_id = $2 AND status = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, classID, studentID, models.EnrollmentStatusActive); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}
