package service

import (
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/retailradar/retailradar/internal/models"
	"github.com/retailradar/retailradar/internal/repository"
	"github.com/retailradar/retailradar/internal/utils"
)

// AdminAuthService handles operator authentication.
type AdminAuthService struct {
	repo *repository.AdminUserRepository
}

// NewAdminAuthService creates a new AdminAuthService.
func NewAdminAuthService(repo *repository.AdminUserRepository) *AdminAuthService {
	return &AdminAuthService{repo: repo}
}

// Login verifies the credentials and returns a signed token with the user.
// Unknown emails and wrong passwords produce the same error.
func (s *AdminAuthService) Login(email, password string) (string, *models.AdminUser, error) {
	user, err := s.repo.GetByEmail(email)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, utils.ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, utils.ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, utils.ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(user.ID, user.Email)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// EnsureAdmin creates the bootstrap operator account on first startup. It is
// a no-op when the account already exists or credentials are not configured.
func (s *AdminAuthService) EnsureAdmin(email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	existing, err := s.repo.GetByEmail(email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.AdminUser{
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Administrator",
		IsActive:     true,
	}
	if err := s.repo.Create(user); err != nil {
		return err
	}

	log.Info().Str("email", email).Msg("Bootstrap admin account created")
	return nil
}
