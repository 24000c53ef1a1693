package service

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/edusuite/school-api/internal/models"
	"github.com/edusuite/school-api/pkg/config"
)

// buildAccount provisions a login account for a newly registered person.
// The username is derived as firstname.lastname; a placeholder email on the
// configured domain and a role-specific default password are used when the
// request supplies neither.
func buildAccount(cfg config.AccountsConfig, firstName, lastName, email, password string, role models.UserRole) (*models.User, error) {
	username := deriveUsername(firstName, lastName)
	if email == "" {
		domain := cfg.EmailDomain
		if domain == "" {
			domain = "school.com"
		}
		email = fmt.Sprintf("%s@%s", username, domain)
	}
	if password == "" {
		switch role {
		case models.RoleStudent:
			password = cfg.StudentDefaultPassword
		case models.RoleFaculty:
			password = cfg.FacultyDefaultPassword
		}
		if password == "" {
			return nil, fmt.Errorf("no default password configured for role %s", role)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(firstName + " " + lastName),
		Role:         role,
		Active:       true,
	}, nil
}

func deriveUsername(firstName, lastName string) string {
	clean := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "")
	}
	return clean(firstName) + "." + clean(lastName)
}
