package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"agencycrm/internal/authz"
	"agencycrm/internal/models"
	"agencycrm/internal/repositories"
)

type UserService interface {
	CreateUserWithPassword(user *models.User, plainPassword string) error
	GetUserByID(id string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetByRefreshToken(token string) (*models.User, error)
	UpdateRefresh(userID, token string, expiresAt time.Time) error
	ListUsers(limit, offset int) ([]*models.User, error)
	DeleteUser(id string) error
}

type userService struct {
	repo *repositories.UserRepository
}

func NewUserService(repo *repositories.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) CreateUserWithPassword(user *models.User, plainPassword string) error {
	if strings.TrimSpace(plainPassword) == "" {
		return fmt.Errorf("password is required")
	}
	if strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("email is required")
	}
	switch user.Role {
	case authz.RoleAgent, authz.RoleManager, authz.RoleAdmin:
	case "":
		user.Role = authz.RoleAgent
	default:
		return fmt.Errorf("unknown role %q", user.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	return s.repo.Create(user)
}

func (s *userService) GetUserByID(id string) (*models.User, error) {
	return s.repo.GetByID(id)
}

func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	return s.repo.GetByEmail(email)
}

func (s *userService) GetByRefreshToken(token string) (*models.User, error) {
	return s.repo.GetByRefreshToken(token)
}

func (s *userService) UpdateRefresh(userID, token string, expiresAt time.Time) error {
	return s.repo.UpdateRefreshToken(userID, token, sql.NullTime{Time: expiresAt, Valid: true})
}

func (s *userService) ListUsers(limit, offset int) ([]*models.User, error) {
	return s.repo.List(limit, offset)
}

func (s *userService) DeleteUser(id string) error {
	return s.repo.Delete(id)
}
