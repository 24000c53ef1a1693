package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edusuite/school-api/internal/models"
	appErrors "github.com/edusuite/school-api/pkg/errors"
)

type attendanceRepository interface {
	MarkAll(ctx context.Context, records []models.AttendanceRecord) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
}

// AttendanceService records and queries daily attendance. Re-marking a
// student on the same date overwrites the earlier entry.
type AttendanceService struct {
	repo      attendanceRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(repo attendanceRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{repo: repo, validator: validate, logger: logger}
}

// Mark upserts one attendance record per entry for the given date.
func (s *AttendanceService) Mark(ctx context.Context, req models.MarkAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.FromValidator(err, "invalid attendance payload")
	}

	records := make([]models.AttendanceRecord, 0, len(req.Entries))
	for _, entry := range req.Entries {
		records = append(records, models.AttendanceRecord{
			StudentID: entry.StudentID,
			Date:      req.Date,
			Status:    entry.Status,
			Remarks:   entry.Remarks,
		})
	}

	if err := s.repo.MarkAll(ctx, records); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}

	s.logger.Info("attendance marked",
		zap.Time("date", req.Date),
		zap.Int("entries", len(records)))
	return nil
}

// List returns attendance records matching the filter.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, total, nil
}
