package migrations

import (
	"log"

	"github.com/jmoiron/sqlx"
)

// Run creates the database schema required for the clinic backend.
func Run(db *sqlx.DB) {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS employees (
			employee_id SERIAL PRIMARY KEY,
			employee_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'reception',
			branch_id INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS patients (
			patient_id SERIAL PRIMARY KEY,
			branch_id INTEGER NOT NULL DEFAULT 1,
			patient_name TEXT NOT NULL,
			phone_number TEXT NOT NULL DEFAULT '',
			age INTEGER,
			gender TEXT NOT NULL DEFAULT '',
			treatment_type TEXT NOT NULL,
			treatment_cost_per_day NUMERIC(12,2) NOT NULL DEFAULT 0,
			package_cost NUMERIC(12,2) NOT NULL DEFAULT 0,
			treatment_days INTEGER NOT NULL DEFAULT 0,
			total_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			advance_payment NUMERIC(12,2) NOT NULL DEFAULT 0,
			due_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'active',
			start_date DATE NOT NULL DEFAULT CURRENT_DATE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS payments (
			payment_id SERIAL PRIMARY KEY,
			patient_id INTEGER NOT NULL REFERENCES patients(patient_id),
			payment_date DATE NOT NULL DEFAULT CURRENT_DATE,
			amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
			mode TEXT NOT NULL,
			remarks TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			processed_by_employee_id INTEGER NOT NULL REFERENCES employees(employee_id)
		);`,
		`CREATE TABLE IF NOT EXISTS attendance (
			attendance_id SERIAL PRIMARY KEY,
			patient_id INTEGER NOT NULL REFERENCES patients(patient_id),
			attendance_date DATE NOT NULL DEFAULT CURRENT_DATE,
			remarks TEXT NOT NULL DEFAULT '',
			payment_id INTEGER REFERENCES payments(payment_id),
			marked_by_employee_id INTEGER NOT NULL REFERENCES employees(employee_id),
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE (patient_id, attendance_date)
		);`,
		`CREATE TABLE IF NOT EXISTS appointments (
			appointment_id SERIAL PRIMARY KEY,
			branch_id INTEGER NOT NULL DEFAULT 1,
			patient_name TEXT NOT NULL,
			phone_number TEXT NOT NULL DEFAULT '',
			gender TEXT NOT NULL DEFAULT '',
			age INTEGER,
			appointment_date DATE NOT NULL,
			appointment_time TEXT NOT NULL DEFAULT '',
			patient_id INTEGER REFERENCES patients(patient_id),
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS expenses (
			expense_id SERIAL PRIMARY KEY,
			branch_id INTEGER NOT NULL DEFAULT 1,
			expense_date DATE NOT NULL DEFAULT CURRENT_DATE,
			category TEXT NOT NULL,
			amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
			remarks TEXT NOT NULL DEFAULT '',
			created_by_employee_id INTEGER NOT NULL REFERENCES employees(employee_id),
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS lab_tests (
			test_id SERIAL PRIMARY KEY,
			patient_id INTEGER NOT NULL REFERENCES patients(patient_id),
			test_date DATE NOT NULL DEFAULT CURRENT_DATE,
			total_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			advance_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			due_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			discount NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS lab_test_items (
			item_id SERIAL PRIMARY KEY,
			test_id INTEGER NOT NULL REFERENCES lab_tests(test_id),
			test_name TEXT NOT NULL,
			total_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			advance_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			due_amount NUMERIC(12,2) NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_payments_patient ON payments (patient_id, payment_date);`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_branch_date ON appointments (branch_id, appointment_date);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
	}
}
