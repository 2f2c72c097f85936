package domain

type Employee struct {
	EmployeeID int64  `db:"employee_id" json:"employee_id"`
	Name       string `db:"employee_name" json:"employee_name"`
	Email      string `db:"email" json:"email"`
	Password   string `db:"password" json:"password,omitempty"`
	Role       string `db:"role" json:"role"`
	BranchID   int64  `db:"branch_id" json:"branch_id"`
	CreatedAt  string `db:"created_at" json:"created_at,omitempty"`
}
