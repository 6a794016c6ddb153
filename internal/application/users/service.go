package users

import (
	"context"
	"errors"
	"strings"

	"harbor-backend/internal/constants"
	"harbor-backend/internal/models"
	"harbor-backend/internal/pkg/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service provisions operator accounts (managers, viewers).
type Service struct {
	DB *gorm.DB
}

var ErrEmailTaken = errors.New("Email already registered")

// CreateUserInput is the provisioning request body.
type CreateUserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
	Role     string `json:"role"`
}

// CreateUser creates an operator account. Only superadmins reach this via the
// route permission; role defaults to viewer.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if in.Email == "" || !validation.IsValidEmail(in.Email) {
		return nil, errors.New("Invalid email format")
	}
	if in.Password == "" || !validation.IsValidPassword(in.Password) {
		return nil, errors.New("Invalid password format")
	}
	trimmed := strings.TrimSpace(in.Fullname)
	if trimmed == "" || !validation.IsValidFullname(trimmed) {
		return nil, errors.New("Full name is required and must contain only letters, spaces, hyphens, and apostrophes")
	}
	role := in.Role
	if role == "" {
		role = constants.Viewer
	}
	if !constants.IsValidRole(role) {
		return nil, errors.New("Invalid role")
	}

	email := strings.TrimSpace(strings.ToLower(in.Email))
	var existing models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), 10)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Fullname:     trimmed,
		Role:         role,
	}
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}
