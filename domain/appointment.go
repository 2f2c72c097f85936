package domain

import "time"

type Appointment struct {
	AppointmentID   int64      `db:"appointment_id" json:"appointment_id"`
	BranchID        int64      `db:"branch_id" json:"branch_id"`
	PatientName     string     `db:"patient_name" json:"patient_name"`
	PhoneNumber     string     `db:"phone_number" json:"phone_number"`
	Gender          string     `db:"gender" json:"gender"`
	Age             *int       `db:"age" json:"age,omitempty"`
	AppointmentDate time.Time  `db:"appointment_date" json:"appointment_date"`
	AppointmentTime string     `db:"appointment_time" json:"appointment_time"`
	PatientID       *int64     `db:"patient_id" json:"patient_id,omitempty"`
	CreatedAt       string     `db:"created_at" json:"created_at,omitempty"`
}
