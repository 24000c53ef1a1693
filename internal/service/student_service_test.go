package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusuite/school-api/internal/models"
	"github.com/edusuite/school-api/pkg/config"
	appErrors "github.com/edusuite/school-api/pkg/errors"
)

type stubStudentRepo struct {
	students        map[string]*models.StudentDetail
	lastAdmissionNo string
	createdStudent  *models.Student
	createdUser     *models.User
	updatedStudent  *models.Student
	previousSection string
	deleted         bool
}

func (m *stubStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var out []models.StudentDetail
	for _, s := range m.students {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *stubStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (m *stubStudentRepo) LastAdmissionNumber(ctx context.Context) (string, error) {
	return m.lastAdmissionNo, nil
}

func (m *stubStudentRepo) CreateWithAccount(ctx context.Context, student *models.Student, user *models.User) error {
	student.ID = "s1"
	user.ID = "u1"
	student.UserID = user.ID
	m.createdStudent = student
	m.createdUser = user
	if m.students == nil {
		m.students = make(map[string]*models.StudentDetail)
	}
	m.students[student.ID] = &models.StudentDetail{Student: *student, Username: user.Username, Email: user.Email}
	return nil
}

func (m *stubStudentRepo) UpdateWithSection(ctx context.Context, student *models.Student, previousSectionID string) error {
	m.updatedStudent = student
	m.previousSection = previousSectionID
	if existing, ok := m.students[student.ID]; ok {
		existing.Student = *student
	}
	return nil
}

func (m *stubStudentRepo) DeleteWithAccount(ctx context.Context, studentID, userID string) error {
	m.deleted = true
	delete(m.students, studentID)
	return nil
}

type stubClassResolver struct {
	classes  map[string]*models.Class
	sections map[string]*models.Section
}

func (m *stubClassResolver) FindByName(ctx context.Context, name string) (*models.Class, error) {
	c, ok := m.classes[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (m *stubClassResolver) FindSectionByName(ctx context.Context, classID, name string) (*models.Section, error) {
	s, ok := m.sections[classID+"/"+name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

type stubAccountChecker struct {
	taken      bool
	emailTaken bool
	auditLogs  []*models.AuditLog
}

func (m *stubAccountChecker) UsernameExists(ctx context.Context, username string) (bool, error) {
	return m.taken, nil
}

func (m *stubAccountChecker) EmailExists(ctx context.Context, email string) (bool, error) {
	return m.emailTaken, nil
}

func (m *stubAccountChecker) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func testAccountsConfig() config.AccountsConfig {
	return config.AccountsConfig{
		StudentDefaultPassword: "student123",
		FacultyDefaultPassword: "faculty123",
		EmailDomain:            "school.com",
	}
}

func grade5Resolver() *stubClassResolver {
	return &stubClassResolver{
		classes: map[string]*models.Class{"Grade 5": {ID: "c5", Name: "Grade 5"}},
		sections: map[string]*models.Section{
			"c5/A": {ID: "sec-a", Name: "A", ClassID: "c5"},
			"c5/B": {ID: "sec-b", Name: "B", ClassID: "c5"},
		},
	}
}

func validCreateStudentRequest() models.CreateStudentRequest {
	return models.CreateStudentRequest{
		FirstName:    "Asha",
		LastName:     "Verma",
		Gender:       "female",
		DateOfBirth:  time.Date(2015, time.June, 2, 0, 0, 0, 0, time.UTC),
		ClassName:    "Grade 5",
		SectionName:  "A",
		AcademicYear: "2026-27",
		Guardians:    models.GuardianList{{Relation: "father", Name: "R Verma", Phone: "9999999999"}},
	}
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &stubStudentRepo{lastAdmissionNo: "20260041"}
	accounts := &stubAccountChecker{}
	svc := NewStudentService(repo, grade5Resolver(), accounts, validator.New(), zap.NewNop(), testAccountsConfig())

	detail, err := svc.Create(context.Background(), validCreateStudentRequest(), "admin-1")
	require.NoError(t, err)

	assert.Equal(t, "20260042", repo.createdStudent.AdmissionNo)
	assert.Equal(t, "c5", repo.createdStudent.ClassID)
	assert.Equal(t, "sec-a", repo.createdStudent.SectionID)
	assert.True(t, repo.createdStudent.Active)
	assert.NotNil(t, repo.createdStudent.AdmissionDate)

	assert.Equal(t, "asha.verma", repo.createdUser.Username)
	assert.Equal(t, "asha.verma@school.com", repo.createdUser.Email)
	assert.Equal(t, models.RoleStudent, repo.createdUser.Role)
	assert.NotEqual(t, "student123", repo.createdUser.PasswordHash)

	assert.Equal(t, "asha.verma", detail.Username)
	require.Len(t, accounts.auditLogs, 1)
	assert.Equal(t, models.AuditActionStudentCreate, accounts.auditLogs[0].Action)
}

func TestStudentServiceCreateUnknownClass(t *testing.T) {
	repo := &stubStudentRepo{}
	svc := NewStudentService(repo, grade5Resolver(), &stubAccountChecker{}, validator.New(), zap.NewNop(), testAccountsConfig())

	req := validCreateStudentRequest()
	req.ClassName = "Grade 13"
	_, err := svc.Create(context.Background(), req, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Grade 13")
}

func TestStudentServiceCreateUnknownSection(t *testing.T) {
	repo := &stubStudentRepo{}
	svc := NewStudentService(repo, grade5Resolver(), &stubAccountChecker{}, validator.New(), zap.NewNop(), testAccountsConfig())

	req := validCreateStudentRequest()
	req.SectionName = "Z"
	_, err := svc.Create(context.Background(), req, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateUsernameTaken(t *testing.T) {
	repo := &stubStudentRepo{}
	svc := NewStudentService(repo, grade5Resolver(), &stubAccountChecker{taken: true}, validator.New(), zap.NewNop(), testAccountsConfig())

	_, err := svc.Create(context.Background(), validCreateStudentRequest(), "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateEmailTaken(t *testing.T) {
	repo := &stubStudentRepo{}
	svc := NewStudentService(repo, grade5Resolver(), &stubAccountChecker{emailTaken: true}, validator.New(), zap.NewNop(), testAccountsConfig())

	_, err := svc.Create(context.Background(), validCreateStudentRequest(), "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "email")
	assert.Nil(t, repo.createdStudent)
}

func TestStudentServiceCreateValidationListsFields(t *testing.T) {
	svc := NewStudentService(&stubStudentRepo{}, grade5Resolver(), &stubAccountChecker{}, validator.New(), zap.NewNop(), testAccountsConfig())

	_, err := svc.Create(context.Background(), models.CreateStudentRequest{}, "admin-1")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.NotEmpty(t, appErr.Fields)

	names := make([]string, 0, len(appErr.Fields))
	for _, f := range appErr.Fields {
		names = append(names, f.Field)
	}
	assert.Contains(t, names, "FirstName")
	assert.Contains(t, names, "ClassName")
}

func TestStudentServiceUpdateMovesSection(t *testing.T) {
	existing := &models.StudentDetail{
		Student: models.Student{
			ID:           "s1",
			UserID:       "u1",
			AdmissionNo:  "20260042",
			FirstName:    "Asha",
			LastName:     "Verma",
			Gender:       "female",
			ClassID:      "c5",
			SectionID:    "sec-a",
			AcademicYear: "2026-27",
			Active:       true,
		},
		ClassName:   "Grade 5",
		SectionName: "A",
	}
	repo := &stubStudentRepo{students: map[string]*models.StudentDetail{"s1": existing}}
	svc := NewStudentService(repo, grade5Resolver(), &stubAccountChecker{}, validator.New(), zap.NewNop(), testAccountsConfig())

	newSection := "B"
	_, err := svc.Update(context.Background(), "s1", models.UpdateStudentRequest{SectionName: &newSection}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, "sec-b", repo.updatedStudent.SectionID)
	assert.Equal(t, "sec-a", repo.previousSection)
}

func TestStudentServiceUpdateKeepsFieldsOnNil(t *testing.T) {
	existing := &models.StudentDetail{
		Student: models.Student{
			ID:        "s1",
			FirstName: "Asha",
			LastName:  "Verma",
			Gender:    "female",
			ClassID:   "c5",
			SectionID: "sec-a",
			Phone:     "12345",
		},
		ClassName:   "Grade 5",
		SectionName: "A",
	}
	repo := &stubStudentRepo{students: map[string]*models.StudentDetail{"s1": existing}}
	svc := NewStudentService(repo, grade5Resolver(), &stubAccountChecker{}, validator.New(), zap.NewNop(), testAccountsConfig())

	first := "Aisha"
	_, err := svc.Update(context.Background(), "s1", models.UpdateStudentRequest{FirstName: &first}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, "Aisha", repo.updatedStudent.FirstName)
	assert.Equal(t, "Verma", repo.updatedStudent.LastName)
	assert.Equal(t, "12345", repo.updatedStudent.Phone)
	assert.Equal(t, "sec-a", repo.updatedStudent.SectionID)
}

func TestStudentServiceDelete(t *testing.T) {
	existing := &models.StudentDetail{Student: models.Student{ID: "s1", UserID: "u1"}}
	repo := &stubStudentRepo{students: map[string]*models.StudentDetail{"s1": existing}}
	accounts := &stubAccountChecker{}
	svc := NewStudentService(repo, grade5Resolver(), accounts, validator.New(), zap.NewNop(), testAccountsConfig())

	require.NoError(t, svc.Delete(context.Background(), "s1", "admin-1"))
	assert.True(t, repo.deleted)
	require.Len(t, accounts.auditLogs, 1)
	assert.Equal(t, models.AuditActionStudentDelete, accounts.auditLogs[0].Action)
}

func TestStudentServiceGetMissing(t *testing.T) {
	repo := &stubStudentRepo{}
	svc := NewStudentService(repo, grade5Resolver(), &stubAccountChecker{}, validator.New(), zap.NewNop(), testAccountsConfig())

	_, err := svc.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
