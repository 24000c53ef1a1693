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

// ClassRepository provides database access for classes, sections and the
// class-subject assignment table.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new instance of ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns all classes ordered by name.
func (r *ClassRepository) List(ctx context.Context) ([]models.Class, error) {
	const query = `SELECT id, name, academic_year, created_at, updated_at FROM classes ORDER BY name ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID returns a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, academic_year, created_at, updated_at FROM classes WHERE id = $1 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	return &class, nil
}

// FindByName returns a class by its display name.
func (r *ClassRepository) FindByName(ctx context.Context, name string) (*models.Class, error) {
	const query = `SELECT id, name, academic_year, created_at, updated_at FROM classes WHERE LOWER(name) = LOWER($1) LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by name: %w", err)
	}
	return &class, nil
}

// FindByNames resolves class names to records, preserving lookup by
// case-insensitive name. Missing names are simply absent from the result.
func (r *ClassRepository) FindByNames(ctx context.Context, names []string) (map[string]models.Class, error) {
	result := make(map[string]models.Class, len(names))
	if len(names) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(names))
	args := make([]interface{}, len(names))
	for i, name := range names {
		placeholders[i] = fmt.Sprintf("LOWER($%d)", i+1)
		args[i] = name
	}
	query := fmt.Sprintf(`SELECT id, name, academic_year, created_at, updated_at FROM classes WHERE LOWER(name) IN (%s)`, strings.Join(placeholders, ","))
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("find classes by names: %w", err)
	}
	for _, class := range classes {
		result[strings.ToLower(class.Name)] = class
	}
	return result, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, name, academic_year, created_at, updated_at) VALUES (:id, :name, :academic_year, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return translateUnique(fmt.Errorf("create class: %w", err), "class name already exists")
	}
	return nil
}

// Update persists mutable class fields.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, academic_year = :academic_year, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return translateUnique(fmt.Errorf("update class: %w", err), "class name already exists")
	}
	return nil
}

// Delete removes a class. Fails on foreign key references from students.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

// Sections returns the sections of a class.
func (r *ClassRepository) Sections(ctx context.Context, classID string) ([]models.Section, error) {
	const query = `SELECT id, name, class_id, created_at FROM sections WHERE class_id = $1 ORDER BY name ASC`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, classID); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// FindSection returns a section by identifier.
func (r *ClassRepository) FindSection(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, name, class_id, created_at FROM sections WHERE id = $1 LIMIT 1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find section by id: %w", err)
	}
	return &section, nil
}

// FindSectionByName resolves a section by its name within a class.
func (r *ClassRepository) FindSectionByName(ctx context.Context, classID, name string) (*models.Section, error) {
	const query = `SELECT id, name, class_id, created_at FROM sections WHERE class_id = $1 AND LOWER(name) = LOWER($2) LIMIT 1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, classID, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find section by name: %w", err)
	}
	return &section, nil
}

// CreateSection inserts a new section for a class.
func (r *ClassRepository) CreateSection(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	section.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO sections (id, name, class_id, created_at) VALUES (:id, :name, :class_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return translateUnique(fmt.Errorf("create section: %w", err), "section name already exists in this class")
	}
	return nil
}

// Subjects returns subjects assigned to a class.
func (r *ClassRepository) Subjects(ctx context.Context, classID string) ([]models.Subject, error) {
	const query = `SELECT sub.id, sub.name, sub.code, sub.type, sub.department, sub.active, sub.created_at, sub.updated_at
	FROM class_subjects cs JOIN subjects sub ON sub.id = cs.subject_id WHERE cs.class_id = $1 ORDER BY sub.name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, classID); err != nil {
		return nil, fmt.Errorf("list class subjects: %w", err)
	}
	return subjects, nil
}

// AssignSubject attaches a subject to a class. Duplicate assignments conflict.
func (r *ClassRepository) AssignSubject(ctx context.Context, classID, subjectID string) error {
	const query = `INSERT INTO class_subjects (class_id, subject_id) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, classID, subjectID); err != nil {
		return translateUnique(fmt.Errorf("assign subject: %w", err), "subject already assigned to class")
	}
	return nil
}

// RemoveSubject detaches a subject from a class.
func (r *ClassRepository) RemoveSubject(ctx context.Context, classID, subjectID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM class_subjects WHERE class_id = $1 AND subject_id = $2`, classID, subjectID)
	if err != nil {
		return fmt.Errorf("remove subject: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
