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

// FacultyRepository provides database access for staff records.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository creates a new instance of FacultyRepository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

const facultyColumns = `f.id, f.user_id, f.employee_id, f.first_name, f.middle_name, f.last_name, f.gender,
	f.date_of_birth, f.joining_date, f.qualification, f.experience_years, f.designation, f.department,
	f.contact_number, f.email, f.class_teacher_of, f.active, f.created_at, f.updated_at`

// List returns faculty matching the filter with total count.
func (r *FacultyRepository) List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error) {
	base := ` FROM faculty f WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("f.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("f.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(f.first_name) LIKE $%d OR LOWER(f.last_name) LIKE $%d OR f.employee_id LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"employee_id": "f.employee_id",
		"last_name":   "f.last_name",
		"created_at":  "f.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "f.created_at"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, facultyColumns, base+clause, orderBy, order, size, offset)

	var faculty []models.Faculty
	if err := r.db.SelectContext(ctx, &faculty, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list faculty: %w", err)
	}

	countQuery := "SELECT COUNT(*)" + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count faculty: %w", err)
	}
	return faculty, total, nil
}

// FindByID returns a faculty member with account context.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.FacultyDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.username FROM faculty f JOIN users u ON u.id = f.user_id WHERE f.id = $1 LIMIT 1`, facultyColumns)
	var member models.FacultyDetail
	if err := r.db.GetContext(ctx, &member, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find faculty by id: %w", err)
	}

	if err := r.db.SelectContext(ctx, &member.SubjectIDs, `SELECT subject_id FROM faculty_subjects WHERE faculty_id = $1`, id); err != nil {
		return nil, fmt.Errorf("faculty subjects: %w", err)
	}
	if err := r.db.SelectContext(ctx, &member.ClassIDs, `SELECT class_id FROM faculty_classes WHERE faculty_id = $1`, id); err != nil {
		return nil, fmt.Errorf("faculty classes: %w", err)
	}
	return &member, nil
}

// LastEmployeeID returns the most recently assigned employee id, or empty when
// no faculty exist.
func (r *FacultyRepository) LastEmployeeID(ctx context.Context) (string, error) {
	const query = `SELECT employee_id FROM faculty ORDER BY created_at DESC LIMIT 1`
	var last string
	if err := r.db.GetContext(ctx, &last, query); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("last employee id: %w", err)
	}
	return last, nil
}

const insertFacultyQuery = `INSERT INTO faculty (id, user_id, employee_id, first_name, middle_name, last_name, gender,
	date_of_birth, joining_date, qualification, experience_years, designation, department, contact_number, email,
	class_teacher_of, active, created_at, updated_at)
	VALUES (:id, :user_id, :employee_id, :first_name, :middle_name, :last_name, :gender,
	:date_of_birth, :joining_date, :qualification, :experience_years, :designation, :department, :contact_number, :email,
	:class_teacher_of, :active, :created_at, :updated_at)`

// CreateWithAccount atomically provisions the login account, the faculty row
// and the subject/class references.
func (r *FacultyRepository) CreateWithAccount(ctx context.Context, member *models.Faculty, user *models.User, subjectIDs, classIDs []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin faculty create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertUserTx(ctx, tx, user); err != nil {
		return err
	}

	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	member.UserID = user.ID
	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now

	if _, err = tx.NamedExecContext(ctx, insertFacultyQuery, member); err != nil {
		err = translateUnique(fmt.Errorf("create faculty: %w", err), "employee id already assigned")
		return err
	}

	if err = replaceFacultyRefsTx(ctx, tx, member.ID, subjectIDs, classIDs); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit faculty create: %w", err)
	}
	return nil
}

// Update persists mutable faculty fields and replaces subject/class references
// when provided (nil slices leave references untouched).
func (r *FacultyRepository) Update(ctx context.Context, member *models.Faculty, subjectIDs, classIDs []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin faculty update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	member.UpdatedAt = time.Now().UTC()
	const query = `UPDATE faculty SET first_name = :first_name, middle_name = :middle_name, last_name = :last_name,
	gender = :gender, date_of_birth = :date_of_birth, joining_date = :joining_date, qualification = :qualification,
	experience_years = :experience_years, designation = :designation, department = :department,
	contact_number = :contact_number, class_teacher_of = :class_teacher_of, active = :active,
	updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, member); err != nil {
		err = fmt.Errorf("update faculty: %w", err)
		return err
	}

	if subjectIDs != nil || classIDs != nil {
		if err = replaceFacultyRefsTx(ctx, tx, member.ID, subjectIDs, classIDs); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit faculty update: %w", err)
	}
	return nil
}

// DeleteWithAccount removes the faculty row and its login account in one
// transaction after clearing subject/class references.
func (r *FacultyRepository) DeleteWithAccount(ctx context.Context, facultyID, userID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin faculty delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM faculty_subjects WHERE faculty_id = $1`, facultyID); err != nil {
		err = fmt.Errorf("clear faculty subjects: %w", err)
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM faculty_classes WHERE faculty_id = $1`, facultyID); err != nil {
		err = fmt.Errorf("clear faculty classes: %w", err)
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM faculty WHERE id = $1`, facultyID); err != nil {
		err = fmt.Errorf("delete faculty: %w", err)
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		err = fmt.Errorf("delete faculty account: %w", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit faculty delete: %w", err)
	}
	return nil
}

// SubjectIDs returns the subject references for a faculty member.
func (r *FacultyRepository) SubjectIDs(ctx context.Context, facultyID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT subject_id FROM faculty_subjects WHERE faculty_id = $1`, facultyID); err != nil {
		return nil, fmt.Errorf("faculty subjects: %w", err)
	}
	return ids, nil
}

// ClassIDs returns the class references for a faculty member.
func (r *FacultyRepository) ClassIDs(ctx context.Context, facultyID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT class_id FROM faculty_classes WHERE faculty_id = $1`, facultyID); err != nil {
		return nil, fmt.Errorf("faculty classes: %w", err)
	}
	return ids, nil
}

func replaceFacultyRefsTx(ctx context.Context, tx *sqlx.Tx, facultyID string, subjectIDs, classIDs []string) error {
	if subjectIDs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM faculty_subjects WHERE faculty_id = $1`, facultyID); err != nil {
			return fmt.Errorf("clear faculty subjects: %w", err)
		}
		for _, subjectID := range subjectIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO faculty_subjects (faculty_id, subject_id) VALUES ($1, $2)`, facultyID, subjectID); err != nil {
				return fmt.Errorf("insert faculty subject: %w", err)
			}
		}
	}
	if classIDs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM faculty_classes WHERE faculty_id = $1`, facultyID); err != nil {
			return fmt.Errorf("clear faculty classes: %w", err)
		}
		for _, classID := range classIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO faculty_classes (faculty_id, class_id) VALUES ($1, $2)`, facultyID, classID); err != nil {
				return fmt.Errorf("insert faculty class: %w", err)
			}
		}
	}
	return nil
}
