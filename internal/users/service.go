package users

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/models"
	appErrors "github.com/dugsihub/dugsihub/backend/go-services/pkg/errors"
)

const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleStudent    = "student"

	MinPasswordLength = 8
)

var ErrWeakPassword = errors.New("password must be at least 8 characters")

// dummyHash keeps the timing of unknown-email logins close to wrong-password ones.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dugsihub-dummy-password"), bcrypt.DefaultCost)

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
	cost int
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r, cost: bcrypt.DefaultCost}
}

// UpsertFromClaims creates or updates a user using OIDC claims map
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return nil, nil
	}
	u := &models.User{
		Sub:   sub,
		Email: email,
		Name:  name,
		Role:  role,
	}
	return s.repo.UpsertBySub(ctx, u)
}

func (s *Service) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return s.repo.GetBySub(ctx, sub)
}

// Authenticate checks email and password against the stored bcrypt hash.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || u.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, appErrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EnsureSuperadmin creates a superadmin account or promotes an existing one
// and resets its password. created reports whether a new account was made.
func (s *Service) EnsureSuperadmin(ctx context.Context, email, password string) (u *models.User, created bool, err error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, false, errors.New("email is required")
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, false, err
	}
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if err := s.repo.UpdateCredentials(ctx, existing.Sub, RoleSuperadmin, hash); err != nil {
			return nil, false, err
		}
		existing.Role = RoleSuperadmin
		existing.PasswordHash = hash
		return existing, false, nil
	}
	u, err = s.repo.Create(ctx, &models.User{Email: email, Name: "Super Admin", Role: RoleSuperadmin, PasswordHash: hash})
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}
