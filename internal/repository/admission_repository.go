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

// AdmissionRepository provides database access for admission drafts and
// applications.
type AdmissionRepository struct {
	db *sqlx.DB
}

// NewAdmissionRepository creates a new instance of AdmissionRepository.
func NewAdmissionRepository(db *sqlx.DB) *AdmissionRepository {
	return &AdmissionRepository{db: db}
}

const draftColumns = `id, draft_id, email, form, last_completed_section, expires_at, created_at, updated_at`

// FindDraft returns a draft by its public draft id, ignoring expired drafts.
func (r *AdmissionRepository) FindDraft(ctx context.Context, draftID string) (*models.AdmissionDraft, error) {
	query := fmt.Sprintf(`SELECT %s FROM admission_drafts WHERE draft_id = $1 AND expires_at > $2 LIMIT 1`, draftColumns)
	var draft models.AdmissionDraft
	if err := r.db.GetContext(ctx, &draft, query, draftID, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find admission draft: %w", err)
	}
	return &draft, nil
}

// UpsertDraft inserts or refreshes a draft keyed by draft_id.
func (r *AdmissionRepository) UpsertDraft(ctx context.Context, draft *models.AdmissionDraft) error {
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now
	const query = `INSERT INTO admission_drafts (id, draft_id, email, form, last_completed_section, expires_at, created_at, updated_at)
	VALUES (:id, :draft_id, :email, :form, :last_completed_section, :expires_at, :created_at, :updated_at)
	ON CONFLICT (draft_id) DO UPDATE SET email = EXCLUDED.email, form = EXCLUDED.form,
	last_completed_section = EXCLUDED.last_completed_section, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, draft); err != nil {
		return fmt.Errorf("upsert admission draft: %w", err)
	}
	return nil
}

// DeleteDraft removes a draft, typically after submission.
func (r *AdmissionRepository) DeleteDraft(ctx context.Context, draftID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM admission_drafts WHERE draft_id = $1`, draftID); err != nil {
		return fmt.Errorf("delete admission draft: %w", err)
	}
	return nil
}

// DeleteExpiredDrafts purges drafts past their expiry.
func (r *AdmissionRepository) DeleteExpiredDrafts(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM admission_drafts WHERE expires_at <= $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge admission drafts: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

const applicationColumns = `id, admission_no, first_name, middle_name, last_name, email, applied_class,
	academic_session, status, form, active, admission_date, remarks, created_at, updated_at`

// ListApplications returns applications matching the filter with total count.
func (r *AdmissionRepository) ListApplications(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionApplication, int, error) {
	base := `FROM admission_applications WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.AppliedClass != "" {
		conditions = append(conditions, fmt.Sprintf("applied_class = $%d", len(args)+1))
		args = append(args, filter.AppliedClass)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR admission_no LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, applicationColumns, base, size, offset)
	var applications []models.AdmissionApplication
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list admission applications: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count admission applications: %w", err)
	}
	return applications, total, nil
}

// FindApplication returns an application by identifier.
func (r *AdmissionRepository) FindApplication(ctx context.Context, id string) (*models.AdmissionApplication, error) {
	query := fmt.Sprintf(`SELECT %s FROM admission_applications WHERE id = $1 LIMIT 1`, applicationColumns)
	var application models.AdmissionApplication
	if err := r.db.GetContext(ctx, &application, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find admission application: %w", err)
	}
	return &application, nil
}

// CreateApplication inserts a submitted application and removes the source
// draft within a single transaction.
func (r *AdmissionRepository) CreateApplication(ctx context.Context, application *models.AdmissionApplication, draftID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin admission submit: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if application.ID == "" {
		application.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	application.CreatedAt = now
	application.UpdatedAt = now

	const query = `INSERT INTO admission_applications (id, admission_no, first_name, middle_name, last_name, email,
	applied_class, academic_session, status, form, active, admission_date, remarks, created_at, updated_at)
	VALUES (:id, :admission_no, :first_name, :middle_name, :last_name, :email,
	:applied_class, :academic_session, :status, :form, :active, :admission_date, :remarks, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, application); err != nil {
		err = translateUnique(fmt.Errorf("create admission application: %w", err), "admission number already assigned")
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM admission_drafts WHERE draft_id = $1`, draftID); err != nil {
		err = fmt.Errorf("delete submitted draft: %w", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit admission submit: %w", err)
	}
	return nil
}

// UpdateStatus persists a status transition with its side effects.
func (r *AdmissionRepository) UpdateStatus(ctx context.Context, application *models.AdmissionApplication) error {
	application.UpdatedAt = time.Now().UTC()
	const query = `UPDATE admission_applications SET status = :status, active = :active,
	admission_date = :admission_date, remarks = :remarks, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, application); err != nil {
		return fmt.Errorf("update admission status: %w", err)
	}
	return nil
}
