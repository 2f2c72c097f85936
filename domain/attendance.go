package domain

import "time"

// Attendance is append-only. At most one row may exist per patient per
// calendar day; the unique index on (patient_id, attendance_date) backs
// the check performed under the patient row lock.
type Attendance struct {
	AttendanceID   int64     `db:"attendance_id" json:"attendance_id"`
	PatientID      int64     `db:"patient_id" json:"patient_id"`
	AttendanceDate time.Time `db:"attendance_date" json:"attendance_date"`
	Remarks        string    `db:"remarks" json:"remarks"`
	PaymentID      *int64    `db:"payment_id" json:"payment_id,omitempty"`
	MarkedBy       int64     `db:"marked_by_employee_id" json:"marked_by_employee_id"`
	CreatedAt      string    `db:"created_at" json:"created_at,omitempty"`
}
