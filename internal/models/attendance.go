package models

// AttendanceStatus is the check-in outcome of one student for one session.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLeave   AttendanceStatus = "leave"
)

// AttendanceTally counts a student's present and late records across a class's sessions.
type AttendanceTally struct {
	StudentID string `db:"student_id" json:"student_id"`
	Present   int    `db:"present" json:"present"`
	Late      int    `db:"late" json:"late"`
}
