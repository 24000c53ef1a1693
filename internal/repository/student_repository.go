package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edusuite/school-api/internal/models"
)

// StudentRepository provides database access for student records. Multi-write
// operations (account + student + section membership) run in one transaction.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new instance of StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `s.id, s.user_id, s.admission_no, s.first_name, s.middle_name, s.last_name, s.gender,
	s.date_of_birth, s.blood_group, s.class_id, s.section_id, s.roll_number, s.academic_year,
	s.guardians, s.address, s.phone, s.active, s.admission_date, s.created_at, s.updated_at`

const studentDetailQuery = `SELECT ` + studentColumns + `,
	c.name AS class_name, sec.name AS section_name, u.username, u.email
	FROM students s
	JOIN classes c ON c.id = s.class_id
	JOIN sections sec ON sec.id = s.section_id
	JOIN users u ON u.id = s.user_id`

// List returns students matching the filter with total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := ` FROM students s
	JOIN classes c ON c.id = s.class_id
	JOIN sections sec ON sec.id = s.section_id
	JOIN users u ON u.id = s.user_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("s.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d OR s.admission_no LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"admission_no": "s.admission_no",
		"last_name":    "s.last_name",
		"created_at":   "s.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, c.name AS class_name, sec.name AS section_name, u.username, u.email %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		studentColumns, base+clause, orderBy, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := "SELECT COUNT(*)" + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student with class, section and account context.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := studentDetailQuery + ` WHERE s.id = $1 LIMIT 1`
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// LastAdmissionNumber returns the most recently assigned admission number, or
// empty when no students exist. Read outside the create transaction; the
// unique constraint on admission_no resolves concurrent duplicates at commit.
func (r *StudentRepository) LastAdmissionNumber(ctx context.Context) (string, error) {
	const query = `SELECT admission_no FROM students ORDER BY created_at DESC LIMIT 1`
	var last string
	if err := r.db.GetContext(ctx, &last, query); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("last admission number: %w", err)
	}
	return last, nil
}

const insertStudentQuery = `INSERT INTO students (id, user_id, admission_no, first_name, middle_name, last_name, gender,
	date_of_birth, blood_group, class_id, section_id, roll_number, academic_year, guardians, address, phone,
	active, admission_date, created_at, updated_at)
	VALUES (:id, :user_id, :admission_no, :first_name, :middle_name, :last_name, :gender,
	:date_of_birth, :blood_group, :class_id, :section_id, :roll_number, :academic_year, :guardians, :address, :phone,
	:active, :admission_date, :created_at, :updated_at)`

// CreateWithAccount atomically provisions the login account, the student row
// and the section membership. Any failure rolls back the whole unit.
func (r *StudentRepository) CreateWithAccount(ctx context.Context, student *models.Student, user *models.User) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertUserTx(ctx, tx, user); err != nil {
		return err
	}

	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.UserID = user.ID
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	if _, err = tx.NamedExecContext(ctx, insertStudentQuery, student); err != nil {
		err = translateUnique(fmt.Errorf("create student: %w", err), "admission number already assigned")
		return err
	}

	if err = insertMembershipTx(ctx, tx, student.SectionID, student.ID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student create: %w", err)
	}
	return nil
}

// UpdateWithSection updates the student row and, when the section reference
// changed, moves the membership row inside the same transaction.
func (r *StudentRepository) UpdateWithSection(ctx context.Context, student *models.Student, previousSectionID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, middle_name = :middle_name, last_name = :last_name,
	gender = :gender, date_of_birth = :date_of_birth, blood_group = :blood_group, class_id = :class_id,
	section_id = :section_id, roll_number = :roll_number, academic_year = :academic_year, guardians = :guardians,
	address = :address, phone = :phone, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, student); err != nil {
		err = fmt.Errorf("update student: %w", err)
		return err
	}

	if previousSectionID != student.SectionID {
		if err = deleteMembershipTx(ctx, tx, student.ID); err != nil {
			return err
		}
		if err = insertMembershipTx(ctx, tx, student.SectionID, student.ID); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student update: %w", err)
	}
	return nil
}

// DeleteWithAccount removes the student row, its login account and its
// section membership in one transaction.
func (r *StudentRepository) DeleteWithAccount(ctx context.Context, studentID, userID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = deleteMembershipTx(ctx, tx, studentID); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, studentID); err != nil {
		err = fmt.Errorf("delete student: %w", err)
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		err = fmt.Errorf("delete student account: %w", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student delete: %w", err)
	}
	return nil
}

// CountBySection returns the roster size for a section.
func (r *StudentRepository) CountBySection(ctx context.Context, sectionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM section_members WHERE section_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sectionID); err != nil {
		return 0, fmt.Errorf("count section members: %w", err)
	}
	return count, nil
}

func insertMembershipTx(ctx context.Context, tx *sqlx.Tx, sectionID, studentID string) error {
	const query = `INSERT INTO section_members (id, section_id, student_id, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, query, uuid.NewString(), sectionID, studentID, time.Now().UTC()); err != nil {
		return translateUnique(fmt.Errorf("insert section membership: %w", err), "student already belongs to a section")
	}
	return nil
}

func deleteMembershipTx(ctx context.Context, tx *sqlx.Tx, studentID string) error {
	const query = `DELETE FROM section_members WHERE student_id = $1`
	if _, err := tx.ExecContext(ctx, query, studentID); err != nil {
		return fmt.Errorf("delete section membership: %w", err)
	}
	return nil
}
