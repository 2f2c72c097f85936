package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"prospine/server/domain"
	"prospine/server/internal/ledger"
)

type ctxKey string

const (
	ctxEmployeeID ctxKey = "employeeID"
	ctxRole       ctxKey = "role"
	ctxBranchID   ctxKey = "branchID"
)

const dateLayout = "2006-01-02"

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	db         *sqlx.DB
	secret     string
	logger     *logrus.Logger
	reconciler *ledger.Reconciler
	validate   *validator.Validate
}

// New constructs a Handler.
func New(db *sqlx.DB, secret string, logger *logrus.Logger, reconciler *ledger.Reconciler) *Handler {
	return &Handler{
		db:         db,
		secret:     secret,
		logger:     logger,
		reconciler: reconciler,
		validate:   validator.New(),
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Get("/app/info", h.appInfo)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/patients", func(r chi.Router) {
			r.Post("/", h.createPatient)
			r.Get("/", h.listPatients)
			r.Get("/{id}", h.getPatient)
			r.Get("/{id}/billing", h.billingDetails)
			r.Post("/{id}/payments", h.recordPayment)
		})

		pr.Route("/attendance", func(r chi.Router) {
			r.Post("/", h.markAttendance)
			r.Get("/", h.listAttendance)
		})

		pr.Route("/appointments", func(r chi.Router) {
			r.Post("/", h.createAppointment)
			r.Get("/", h.listAppointments)
		})

		pr.Route("/expenses", func(r chi.Router) {
			r.Post("/", h.createExpense)
			r.Get("/", h.listExpenses)
		})

		pr.Route("/tests", func(r chi.Router) {
			r.Post("/", h.createTest)
			r.Get("/{id}", h.testDetails)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication

type authClaims struct {
	EmployeeID int64  `json:"employee_id"`
	Role       string `json:"role"`
	BranchID   int64  `json:"branch_id"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(employeeID int64, role string, branchID int64) (string, error) {
	claims := authClaims{
		EmployeeID: employeeID,
		Role:       role,
		BranchID:   branchID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

// authMiddleware is the caller-identity supplier: handlers read the acting
// employee id from the request context and thread it into the ledger core
// explicitly.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxEmployeeID, claims.EmployeeID)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		ctx = context.WithValue(ctx, ctxBranchID, claims.BranchID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func employeeIDFromContext(r *http.Request) int64 {
	if val := r.Context().Value(ctxEmployeeID); val != nil {
		if id, ok := val.(int64); ok {
			return id
		}
	}
	return 0
}

func branchIDFromContext(r *http.Request) int64 {
	if val := r.Context().Value(ctxBranchID); val != nil {
		if id, ok := val.(int64); ok {
			return id
		}
	}
	return 1
}

type registerRequest struct {
	Name     string `json:"employee_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=admin reception doctor"`
	BranchID int64  `json:"branch_id"`
}

type authResponse struct {
	Token    string          `json:"token"`
	Employee domain.Employee `json:"employee"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.BranchID <= 0 {
		req.BranchID = 1
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}

	var employeeID int64
	err = h.db.QueryRowx(`INSERT INTO employees (employee_name, email, password, role, branch_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING employee_id`,
		req.Name, strings.ToLower(req.Email), hashed, req.Role, req.BranchID).Scan(&employeeID)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			respondError(w, http.StatusConflict, "email already exists")
		} else {
			h.logger.WithError(err).Error("register employee")
			respondError(w, http.StatusInternalServerError, "unable to register employee")
		}
		return
	}

	token, err := h.generateToken(employeeID, req.Role, req.BranchID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	respondJSON(w, http.StatusCreated, authResponse{Token: token, Employee: domain.Employee{
		EmployeeID: employeeID, Name: req.Name, Email: strings.ToLower(req.Email), Role: req.Role, BranchID: req.BranchID,
	}})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var emp domain.Employee
	err := h.db.Get(&emp, `SELECT employee_id, employee_name, email, password, role, branch_id
		FROM employees WHERE email = $1`, strings.ToLower(req.Email))
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(emp.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.generateToken(emp.EmployeeID, emp.Role, emp.BranchID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	emp.Password = ""
	respondJSON(w, http.StatusOK, authResponse{Token: token, Employee: emp})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NewPassword string `json:"new_password" validate:"required,min=6"`
	}
	if err := h.decodeValid(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	employeeID := employeeIDFromContext(r)
	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}
	if _, err := h.db.Exec(`UPDATE employees SET password = $1 WHERE employee_id = $2`, hashed, employeeID); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// Patients

type createPatientRequest struct {
	Name                string          `json:"patient_name" validate:"required"`
	Phone               string          `json:"phone_number"`
	Age                 *int            `json:"age" validate:"omitempty,gt=0"`
	Gender              string          `json:"gender" validate:"omitempty,oneof=male female other"`
	TreatmentType       string          `json:"treatment_type" validate:"required,oneof=package daily advance other"`
	TreatmentCostPerDay decimal.Decimal `json:"treatment_cost_per_day"`
	PackageCost         decimal.Decimal `json:"package_cost"`
	TreatmentDays       int             `json:"treatment_days" validate:"gte=0"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	StartDate           string          `json:"start_date"`
}

func (h *Handler) createPatient(w http.ResponseWriter, r *http.Request) {
	var req createPatientRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TreatmentCostPerDay.IsNegative() || req.PackageCost.IsNegative() || req.TotalAmount.IsNegative() {
		respondError(w, http.StatusBadRequest, "monetary fields must not be negative")
		return
	}

	startDate := time.Now().Format(dateLayout)
	if req.StartDate != "" {
		if _, err := time.Parse(dateLayout, req.StartDate); err != nil {
			respondError(w, http.StatusBadRequest, "start_date must be in YYYY-MM-DD format")
			return
		}
		startDate = req.StartDate
	}

	// The plan's total billable defaults from the plan shape when the
	// caller does not set it explicitly.
	total := req.TotalAmount
	if total.IsZero() {
		switch req.TreatmentType {
		case domain.TreatmentPackage:
			total = req.PackageCost
		case domain.TreatmentDaily, domain.TreatmentAdvance:
			total = req.TreatmentCostPerDay.Mul(decimal.NewFromInt(int64(req.TreatmentDays)))
		}
	}

	var patientID int64
	err := h.db.QueryRowx(`INSERT INTO patients
		(branch_id, patient_name, phone_number, age, gender, treatment_type,
		 treatment_cost_per_day, package_cost, treatment_days,
		 total_amount, advance_payment, due_amount, status, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $10, 'active', $11)
		RETURNING patient_id`,
		branchIDFromContext(r), req.Name, req.Phone, req.Age, req.Gender, req.TreatmentType,
		req.TreatmentCostPerDay, req.PackageCost, req.TreatmentDays, total, startDate).Scan(&patientID)
	if err != nil {
		h.logger.WithError(err).Error("create patient")
		respondError(w, http.StatusInternalServerError, "unable to register patient")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"status":       "success",
		"patient_id":   patientID,
		"total_amount": total,
	})
}

func (h *Handler) listPatients(w http.ResponseWriter, r *http.Request) {
	patients := []domain.Patient{}
	err := h.db.Select(&patients, `SELECT patient_id, branch_id, patient_name, phone_number, age, gender,
		treatment_type, treatment_cost_per_day, package_cost, treatment_days,
		total_amount, advance_payment, due_amount, status, start_date
		FROM patients WHERE branch_id = $1 ORDER BY patient_id DESC`, branchIDFromContext(r))
	if err != nil {
		h.logger.WithError(err).Error("list patients")
		respondError(w, http.StatusInternalServerError, "unable to list patients")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "success", "data": patients})
}

func (h *Handler) getPatient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	var patient domain.Patient
	err = h.db.Get(&patient, `SELECT patient_id, branch_id, patient_name, phone_number, age, gender,
		treatment_type, treatment_cost_per_day, package_cost, treatment_days,
		total_amount, advance_payment, due_amount, status, start_date
		FROM patients WHERE patient_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "patient not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("get patient")
		respondError(w, http.StatusInternalServerError, "unable to load patient")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "success", "data": patient})
}

// Billing

type billingResponse struct {
	Patient   domain.Patient   `json:"patient"`
	TotalPaid decimal.Decimal  `json:"total_paid"`
	TodayPaid decimal.Decimal  `json:"today_paid"`
	DueAmount decimal.Decimal  `json:"due_amount"`
	Ledger    ledger.Summary   `json:"ledger"`
	Payments  []domain.Payment `json:"payments"`
}

func (h *Handler) billingDetails(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid patient id")
		return
	}

	var patient domain.Patient
	err = h.db.Get(&patient, `SELECT patient_id, branch_id, patient_name, phone_number, age, gender,
		treatment_type, treatment_cost_per_day, package_cost, treatment_days,
		total_amount, advance_payment, due_amount, status, start_date
		FROM patients WHERE patient_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "patient not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("billing: load patient")
		respondError(w, http.StatusInternalServerError, "unable to load patient")
		return
	}

	var todayPaid decimal.Decimal
	if err := h.db.Get(&todayPaid,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE patient_id = $1 AND payment_date = CURRENT_DATE`, id); err != nil {
		h.logger.WithError(err).Error("billing: today paid")
		respondError(w, http.StatusInternalServerError, "unable to load billing details")
		return
	}

	summary, err := ledger.ReadSummary(r.Context(), h.db, id, patient.StartDate, ledger.CostPerDay(patient))
	if err != nil {
		h.logger.WithError(err).Error("billing: ledger summary")
		respondError(w, http.StatusInternalServerError, "unable to load billing details")
		return
	}

	payments := []domain.Payment{}
	if err := h.db.Select(&payments, `SELECT payment_id, patient_id, payment_date, amount, mode, remarks, processed_by_employee_id
		FROM payments WHERE patient_id = $1 ORDER BY payment_date DESC, created_at DESC`, id); err != nil {
		h.logger.WithError(err).Error("billing: payments")
		respondError(w, http.StatusInternalServerError, "unable to load billing details")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"status": "success", "data": billingResponse{
		Patient:   patient,
		TotalPaid: summary.PaidTotal,
		TodayPaid: todayPaid,
		// Recomputed from the ledger rather than trusting the cache.
		DueAmount: patient.TotalAmount.Sub(summary.PaidTotal),
		Ledger:    summary,
		Payments:  payments,
	}})
}

type recordPaymentRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Mode    string          `json:"mode" validate:"required,oneof=cash upi card other"`
	Remarks string          `json:"remarks"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	var req recordPaymentRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.reconciler.RecordPayment(r.Context(), ledger.RecordPaymentInput{
		PatientID:  id,
		EmployeeID: employeeIDFromContext(r),
		Amount:     req.Amount,
		Mode:       req.Mode,
		Remarks:    req.Remarks,
	})
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"status":      "success",
		"payment_id":  result.PaymentID,
		"new_balance": result.NewBalance,
	})
}

// Attendance

type markAttendanceRequest struct {
	PatientID     int64           `json:"patient_id" validate:"required,gt=0"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	Mode          string          `json:"mode" validate:"omitempty,oneof=cash upi card other"`
	Remarks       string          `json:"remarks"`
}

func (h *Handler) markAttendance(w http.ResponseWriter, r *http.Request) {
	var req markAttendanceRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.reconciler.MarkAttendance(r.Context(), ledger.MarkAttendanceInput{
		PatientID:     req.PatientID,
		EmployeeID:    employeeIDFromContext(r),
		PaymentAmount: req.PaymentAmount,
		PaymentMode:   req.Mode,
		Remarks:       req.Remarks,
	})
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"message":       "Attendance marked",
		"attendance_id": result.AttendanceID,
		"payment_id":    result.PaymentID,
		"new_balance":   result.NewBalance,
	})
}

type attendanceRow struct {
	domain.Attendance
	PatientName   string `db:"patient_name" json:"patient_name"`
	TreatmentType string `db:"treatment_type" json:"treatment_type"`
}

func (h *Handler) listAttendance(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = time.Now().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		respondError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
		return
	}

	rows := []attendanceRow{}
	err := h.db.Select(&rows, `SELECT a.attendance_id, a.patient_id, a.attendance_date, a.remarks,
		a.payment_id, a.marked_by_employee_id, p.patient_name, p.treatment_type
		FROM attendance a
		JOIN patients p ON p.patient_id = a.patient_id
		WHERE a.attendance_date = $1 AND p.branch_id = $2
		ORDER BY a.attendance_id DESC`, date, branchIDFromContext(r))
	if err != nil {
		h.logger.WithError(err).Error("list attendance")
		respondError(w, http.StatusInternalServerError, "unable to list attendance")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "success", "data": rows, "date": date})
}

// Appointments

type createAppointmentRequest struct {
	PatientName     string `json:"patient_name" validate:"required"`
	PhoneNumber     string `json:"phone_number"`
	Gender          string `json:"gender" validate:"omitempty,oneof=male female other"`
	Age             *int   `json:"age" validate:"omitempty,gt=0"`
	AppointmentDate string `json:"appointment_date" validate:"required"`
	AppointmentTime string `json:"appointment_time"`
	PatientID       *int64 `json:"patient_id"`
}

func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := time.Parse(dateLayout, req.AppointmentDate); err != nil {
		respondError(w, http.StatusBadRequest, "appointment_date must be in YYYY-MM-DD format")
		return
	}

	var id int64
	err := h.db.QueryRowx(`INSERT INTO appointments
		(branch_id, patient_name, phone_number, gender, age, appointment_date, appointment_time, patient_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING appointment_id`,
		branchIDFromContext(r), req.PatientName, req.PhoneNumber, req.Gender, req.Age,
		req.AppointmentDate, req.AppointmentTime, req.PatientID).Scan(&id)
	if err != nil {
		h.logger.WithError(err).Error("create appointment")
		respondError(w, http.StatusInternalServerError, "unable to create appointment")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"status": "success", "appointment_id": id})
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r, 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	appointments := []domain.Appointment{}
	err = h.db.Select(&appointments, `SELECT appointment_id, branch_id, patient_name, phone_number, gender, age,
		appointment_date, appointment_time, patient_id
		FROM appointments
		WHERE branch_id = $1 AND appointment_date BETWEEN $2 AND $3
		ORDER BY appointment_date DESC, appointment_time DESC`,
		branchIDFromContext(r), start, end)
	if err != nil {
		h.logger.WithError(err).Error("list appointments")
		respondError(w, http.StatusInternalServerError, "unable to list appointments")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   appointments,
		"period": start + " to " + end,
	})
}

// Expenses

type createExpenseRequest struct {
	Category    string          `json:"category" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	ExpenseDate string          `json:"expense_date"`
	Remarks     string          `json:"remarks"`
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Amount.IsPositive() {
		respondError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	date := time.Now().Format(dateLayout)
	if req.ExpenseDate != "" {
		if _, err := time.Parse(dateLayout, req.ExpenseDate); err != nil {
			respondError(w, http.StatusBadRequest, "expense_date must be in YYYY-MM-DD format")
			return
		}
		date = req.ExpenseDate
	}

	var id int64
	err := h.db.QueryRowx(`INSERT INTO expenses (branch_id, expense_date, category, amount, remarks, created_by_employee_id)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING expense_id`,
		branchIDFromContext(r), date, req.Category, req.Amount, req.Remarks, employeeIDFromContext(r)).Scan(&id)
	if err != nil {
		h.logger.WithError(err).Error("create expense")
		respondError(w, http.StatusInternalServerError, "unable to record expense")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"status": "success", "expense_id": id})
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r, -30)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	expenses := []domain.Expense{}
	err = h.db.Select(&expenses, `SELECT expense_id, branch_id, expense_date, category, amount, remarks, created_by_employee_id
		FROM expenses
		WHERE branch_id = $1 AND expense_date BETWEEN $2 AND $3
		ORDER BY expense_date DESC, expense_id DESC`,
		branchIDFromContext(r), start, end)
	if err != nil {
		h.logger.WithError(err).Error("list expenses")
		respondError(w, http.StatusInternalServerError, "unable to list expenses")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "success", "data": expenses})
}

// Lab tests

type createTestItemRequest struct {
	TestName      string          `json:"test_name" validate:"required"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AdvanceAmount decimal.Decimal `json:"advance_amount"`
}

type createTestRequest struct {
	PatientID int64                   `json:"patient_id" validate:"required,gt=0"`
	TestDate  string                  `json:"test_date"`
	Discount  decimal.Decimal         `json:"discount"`
	Items     []createTestItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) createTest(w http.ResponseWriter, r *http.Request) {
	var req createTestRequest
	if err := h.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	date := time.Now().Format(dateLayout)
	if req.TestDate != "" {
		if _, err := time.Parse(dateLayout, req.TestDate); err != nil {
			respondError(w, http.StatusBadRequest, "test_date must be in YYYY-MM-DD format")
			return
		}
		date = req.TestDate
	}

	total := decimal.Zero
	advance := decimal.Zero
	for _, item := range req.Items {
		if item.TotalAmount.IsNegative() || item.AdvanceAmount.IsNegative() {
			respondError(w, http.StatusBadRequest, "item amounts must not be negative")
			return
		}
		total = total.Add(item.TotalAmount)
		advance = advance.Add(item.AdvanceAmount)
	}
	due := total.Sub(req.Discount).Sub(advance)

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback()

	var testID int64
	err = tx.QueryRowx(`INSERT INTO lab_tests (patient_id, test_date, total_amount, advance_amount, due_amount, discount)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING test_id`,
		req.PatientID, date, total, advance, due, req.Discount).Scan(&testID)
	if err != nil {
		h.logger.WithError(err).Error("create lab test")
		respondError(w, http.StatusInternalServerError, "unable to create test")
		return
	}

	for _, item := range req.Items {
		if _, err := tx.Exec(`INSERT INTO lab_test_items (test_id, test_name, total_amount, advance_amount, due_amount)
			VALUES ($1, $2, $3, $4, $5)`,
			testID, item.TestName, item.TotalAmount, item.AdvanceAmount, item.TotalAmount.Sub(item.AdvanceAmount)); err != nil {
			h.logger.WithError(err).Error("create lab test item")
			respondError(w, http.StatusInternalServerError, "unable to create test items")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to finalize test")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"status": "success", "test_id": testID})
}

type testDetailsResponse struct {
	domain.LabTest
	Items []domain.LabTestItem `json:"items"`
}

func (h *Handler) testDetails(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid test id")
		return
	}

	var header domain.LabTest
	err = h.db.Get(&header, `SELECT test_id, patient_id, test_date, total_amount, advance_amount, due_amount, discount
		FROM lab_tests WHERE test_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "test not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("test details")
		respondError(w, http.StatusInternalServerError, "unable to load test")
		return
	}

	items := []domain.LabTestItem{}
	if err := h.db.Select(&items, `SELECT item_id, test_id, test_name, total_amount, advance_amount, due_amount
		FROM lab_test_items WHERE test_id = $1 ORDER BY item_id ASC`, id); err != nil {
		h.logger.WithError(err).Error("test items")
		respondError(w, http.StatusInternalServerError, "unable to load test items")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"status": "success", "data": testDetailsResponse{LabTest: header, Items: items}})
}

// App info

func (h *Handler) appInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data": map[string]any{
			"app_name":    "ProSpine Clinic",
			"version":     "1.0.0",
			"description": "A comprehensive clinic management solution designed for efficiency and ease of use.",
			"features": []map[string]string{
				{"title": "Registration", "desc": "New patient onboarding"},
				{"title": "Appointments", "desc": "Scheduling & visit tracking"},
				{"title": "Attendance", "desc": "Daily visit marking with ledger reconciliation"},
				{"title": "Billing", "desc": "Invoicing & payment processing"},
				{"title": "Tests", "desc": "Lab test records"},
				{"title": "Expenses", "desc": "Budget tracking & expense management"},
			},
		},
	})
}

// Helpers

// respondLedgerError maps the ledger error taxonomy onto HTTP statuses:
// client-fixable problems are 400, missing records 404, lock contention 409
// with a retryable hint, anything else is an opaque 500.
func (h *Handler) respondLedgerError(w http.ResponseWriter, err error) {
	var validationErr *ledger.ValidationError
	var balanceErr *ledger.InsufficientBalanceError

	switch {
	case errors.Is(err, ledger.ErrPatientNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrDuplicateAttendance):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, validationErr.Reason)
	case errors.As(err, &balanceErr):
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"status":    "error",
			"message":   balanceErr.Error(),
			"shortfall": balanceErr.Shortfall,
		})
	case errors.Is(err, ledger.ErrLockTimeout):
		respondJSON(w, http.StatusConflict, map[string]any{
			"status":    "error",
			"message":   err.Error(),
			"retryable": true,
		})
	default:
		h.logger.WithError(err).Error("ledger operation failed")
		respondError(w, http.StatusInternalServerError, "internal error, no changes were saved")
	}
}

func dateRange(r *http.Request, defaultStartOffsetDays int) (string, string, error) {
	now := time.Now()
	start := now.AddDate(0, 0, defaultStartOffsetDays).Format(dateLayout)
	end := now.Format(dateLayout)

	if raw := strings.TrimSpace(r.URL.Query().Get("start_date")); raw != "" {
		if _, err := time.Parse(dateLayout, raw); err != nil {
			return "", "", errors.New("start_date must be in YYYY-MM-DD format")
		}
		start = raw
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("end_date")); raw != "" {
		if _, err := time.Parse(dateLayout, raw); err != nil {
			return "", "", errors.New("end_date must be in YYYY-MM-DD format")
		}
		end = raw
	}
	return start, end, nil
}

func (h *Handler) decodeValid(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return h.validate.Struct(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"status": "error", "message": message})
}
