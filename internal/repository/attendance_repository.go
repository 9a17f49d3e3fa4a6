package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/teaching-portal-api/internal/models"
)

// AttendanceRepository reads class sessions and check-in records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// CountSessions returns how many attendance sessions the class has held.
func (r *AttendanceRepository) CountSessions(ctx context.Context, classID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM attendance_sessions WHERE class_id = $1`, classID); err != nil {
		return 0, fmt.Errorf("count attendance sessions: %w", err)
	}
	return count, nil
}

// TallyByClass counts present and late records per student across the class's sessions.
func (r *AttendanceRepository) TallyByClass(ctx context.Context, classID string) (map[string]models.AttendanceTally, error) {
	const query = `SELECT r.student_id,
        COUNT(*) FILTER (WHERE r.status = $2) AS present,
        COUNT(*) FILTER (WHERE r.status = $3) AS late
        FROM attendance_records r
        JOIN attendance_sessions s ON s.id = r.session_id
        WHERE s.class_id = $1
        GROUP BY r.student_id`
	var rows []models.AttendanceTally
	if err := r.db.SelectContext(ctx, &rows, query, classID, models.AttendancePresent, models.AttendanceLate); err != nil {
		return nil, fmt.Errorf("tally attendance: %w", err)
	}
	result := make(map[string]models.AttendanceTally, len(rows))
	for _, row := range rows {
		result[row.StudentID] = row
	}
	return result, nil
}
