package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusuite/school-api/internal/models"
	appErrors "github.com/edusuite/school-api/pkg/errors"
)

type stubFacultyRepo struct {
	members        map[string]*models.FacultyDetail
	lastEmployeeID string
	createdMember  *models.Faculty
	createdUser    *models.User
	subjectIDs     []string
	classIDs       []string
	updatedMember  *models.Faculty
	deleted        bool
}

func (m *stubFacultyRepo) List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error) {
	var out []models.Faculty
	for _, f := range m.members {
		out = append(out, f.Faculty)
	}
	return out, len(out), nil
}

func (m *stubFacultyRepo) FindByID(ctx context.Context, id string) (*models.FacultyDetail, error) {
	f, ok := m.members[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return f, nil
}

func (m *stubFacultyRepo) LastEmployeeID(ctx context.Context) (string, error) {
	return m.lastEmployeeID, nil
}

func (m *stubFacultyRepo) CreateWithAccount(ctx context.Context, member *models.Faculty, user *models.User, subjectIDs, classIDs []string) error {
	member.ID = "f1"
	user.ID = "u1"
	member.UserID = user.ID
	m.createdMember = member
	m.createdUser = user
	m.subjectIDs = subjectIDs
	m.classIDs = classIDs
	if m.members == nil {
		m.members = make(map[string]*models.FacultyDetail)
	}
	m.members[member.ID] = &models.FacultyDetail{Faculty: *member, Username: user.Username, SubjectIDs: subjectIDs, ClassIDs: classIDs}
	return nil
}

func (m *stubFacultyRepo) Update(ctx context.Context, member *models.Faculty, subjectIDs, classIDs []string) error {
	m.updatedMember = member
	m.subjectIDs = subjectIDs
	m.classIDs = classIDs
	if existing, ok := m.members[member.ID]; ok {
		existing.Faculty = *member
	}
	return nil
}

func (m *stubFacultyRepo) DeleteWithAccount(ctx context.Context, facultyID, userID string) error {
	m.deleted = true
	delete(m.members, facultyID)
	return nil
}

type stubSubjectNames struct {
	subjects map[string]models.Subject
}

func (m *stubSubjectNames) FindByNames(ctx context.Context, names []string) (map[string]models.Subject, error) {
	out := make(map[string]models.Subject)
	for _, name := range names {
		if s, ok := m.subjects[strings.ToLower(name)]; ok {
			out[strings.ToLower(name)] = s
		}
	}
	return out, nil
}

type stubClassNames struct {
	classes map[string]models.Class
}

func (m *stubClassNames) FindByNames(ctx context.Context, names []string) (map[string]models.Class, error) {
	out := make(map[string]models.Class)
	for _, name := range names {
		if c, ok := m.classes[strings.ToLower(name)]; ok {
			out[strings.ToLower(name)] = c
		}
	}
	return out, nil
}

func newFacultyService(repo *stubFacultyRepo, accounts *stubAccountChecker) *FacultyService {
	subjects := &stubSubjectNames{subjects: map[string]models.Subject{
		"mathematics": {ID: "sub-math", Name: "Mathematics"},
		"physics":     {ID: "sub-phy", Name: "Physics"},
	}}
	classes := &stubClassNames{classes: map[string]models.Class{
		"grade 5": {ID: "c5", Name: "Grade 5"},
	}}
	return NewFacultyService(repo, subjects, classes, accounts, validator.New(), zap.NewNop(), testAccountsConfig())
}

func validCreateFacultyRequest() models.CreateFacultyRequest {
	return models.CreateFacultyRequest{
		FirstName:    "Ravi",
		LastName:     "Iyer",
		Gender:       "male",
		DateOfBirth:  time.Date(1988, time.January, 20, 0, 0, 0, 0, time.UTC),
		Designation:  "Senior Teacher",
		Department:   "Science",
		SubjectNames: []string{"Mathematics", "Physics"},
		ClassNames:   []string{"Grade 5"},
	}
}

func TestFacultyServiceCreate(t *testing.T) {
	repo := &stubFacultyRepo{lastEmployeeID: "EMP00041"}
	accounts := &stubAccountChecker{}
	svc := newFacultyService(repo, accounts)

	detail, err := svc.Create(context.Background(), validCreateFacultyRequest(), "admin-1")
	require.NoError(t, err)

	assert.Equal(t, "EMP00042", repo.createdMember.EmployeeID)
	assert.True(t, repo.createdMember.Active)
	assert.Equal(t, []string{"sub-math", "sub-phy"}, repo.subjectIDs)
	assert.Equal(t, []string{"c5"}, repo.classIDs)

	assert.Equal(t, "ravi.iyer", repo.createdUser.Username)
	assert.Equal(t, models.RoleFaculty, repo.createdUser.Role)
	assert.Equal(t, "ravi.iyer@school.com", detail.Email)

	require.Len(t, accounts.auditLogs, 1)
	assert.Equal(t, models.AuditActionFacultyCreate, accounts.auditLogs[0].Action)
}

func TestFacultyServiceCreateUnknownSubject(t *testing.T) {
	repo := &stubFacultyRepo{}
	svc := newFacultyService(repo, &stubAccountChecker{})

	req := validCreateFacultyRequest()
	req.SubjectNames = []string{"Mathematics", "Alchemy"}
	_, err := svc.Create(context.Background(), req, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Alchemy")
}

func TestFacultyServiceCreateUnknownClass(t *testing.T) {
	repo := &stubFacultyRepo{}
	svc := newFacultyService(repo, &stubAccountChecker{})

	req := validCreateFacultyRequest()
	req.ClassNames = []string{"Grade 99"}
	_, err := svc.Create(context.Background(), req, "admin-1")
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "Grade 99")
}

func TestFacultyServiceUpdateReplacesSubjects(t *testing.T) {
	existing := &models.FacultyDetail{
		Faculty: models.Faculty{
			ID:          "f1",
			UserID:      "u1",
			EmployeeID:  "EMP00042",
			FirstName:   "Ravi",
			LastName:    "Iyer",
			Gender:      "male",
			Designation: "Senior Teacher",
			Active:      true,
		},
		SubjectIDs: []string{"sub-math", "sub-phy"},
	}
	repo := &stubFacultyRepo{members: map[string]*models.FacultyDetail{"f1": existing}}
	svc := newFacultyService(repo, &stubAccountChecker{})

	_, err := svc.Update(context.Background(), "f1", models.UpdateFacultyRequest{SubjectNames: []string{"Physics"}}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"sub-phy"}, repo.subjectIDs)
	assert.Equal(t, "Ravi", repo.updatedMember.FirstName)
}

func TestFacultyServiceDelete(t *testing.T) {
	existing := &models.FacultyDetail{Faculty: models.Faculty{ID: "f1", UserID: "u1"}}
	repo := &stubFacultyRepo{members: map[string]*models.FacultyDetail{"f1": existing}}
	accounts := &stubAccountChecker{}
	svc := newFacultyService(repo, accounts)

	require.NoError(t, svc.Delete(context.Background(), "f1", "admin-1"))
	assert.True(t, repo.deleted)
	require.Len(t, accounts.auditLogs, 1)
	assert.Equal(t, models.AuditActionFacultyDelete, accounts.auditLogs[0].Action)
}

func TestFacultyServiceGetMissing(t *testing.T) {
	svc := newFacultyService(&stubFacultyRepo{}, &stubAccountChecker{})

	_, err := svc.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
