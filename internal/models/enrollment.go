package models

import "time"

// EnrollmentStatus represents the lifecycle of a class enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive   EnrollmentStatus = "ACTIVE"
	EnrollmentStatusInactive EnrollmentStatus = "INACTIVE"
)

// Enrollment captures a student's membership of a class. Rows are owned by the class roster service.
type Enrollment struct {
	StudentID string           `db:"student_id" json:"student_id"`
	ClassID   string           `db:"class_id" json:"class_id"`
	Status    EnrollmentStatus `db:"status" json:"status"`
	JoinedAt  time.Time        `db:"joined_at" json:"joined_at"`
}

// EnrolledStudent is an active roster entry with the student's display fields.
type EnrolledStudent struct {
	StudentID   string    `db:"student_id" json:"student_id"`
	StudentNo   string    `db:"student_no" json:"student_no"`
	StudentName string    `db:"student_name" json:"student_name"`
	JoinedAt    time.Time `db:"joined_at" json:"joined_at"`
}
