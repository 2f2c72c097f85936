package seed

import (
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// EnsureAdmin creates the bootstrap admin employee if no employee exists yet,
// so a fresh deployment can log in. Does nothing once any employee row exists.
func EnsureAdmin(db *sqlx.DB, email, password string) {
	var count int64
	if err := db.Get(&count, `SELECT COUNT(*) FROM employees`); err != nil {
		log.Printf("unable to check employees for seeding: %v", err)
		return
	}
	if count > 0 {
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("unable to hash admin password: %v", err)
		return
	}

	_, err = db.Exec(`INSERT INTO employees (employee_name, email, password, role, branch_id)
		VALUES ($1, $2, $3, 'admin', 1)`,
		"Administrator", strings.ToLower(email), hashed)
	if err != nil {
		log.Printf("unable to seed admin employee: %v", err)
		return
	}
	log.Printf("seeded bootstrap admin employee %s", email)
}
