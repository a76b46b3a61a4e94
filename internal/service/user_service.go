package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kelabpetani/internal/auth"
	"kelabpetani/internal/model"
	"kelabpetani/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserResponse is the public view of a user.
type UserResponse struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	IsAdmin        bool      `json:"is_admin"`
	CreatedAt      string    `json:"created_at"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	UpsertFromIdentity(ctx context.Context, identity auth.Identity) (*model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*UserResponse, error)
}

type userService struct {
	repo       repository.UserRepository
	adminEmail string
	log        *zap.Logger
}

// NewUserService returns a new instance of UserService. A user signing in
// with adminEmail is made an admin.
func NewUserService(repo repository.UserRepository, adminEmail string, log *zap.Logger) UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &userService{repo: repo, adminEmail: strings.TrimSpace(adminEmail), log: log}
}

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		ProfilePicture: user.ProfilePicture,
		IsAdmin:        user.IsAdmin,
		CreatedAt:      user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *userService) isAdminEmail(email string) bool {
	return s.adminEmail != "" && strings.EqualFold(s.adminEmail, email)
}

// UpsertFromIdentity finds the user by email, creating it on first login, and
// refreshes the profile fields from the identity provider.
func (s *userService) UpsertFromIdentity(ctx context.Context, identity auth.Identity) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return nil, validationErr("email is required")
	}
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	user, err := s.repo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = &model.User{
			Email:          email,
			Name:           name,
			ProfilePicture: identity.Picture,
			IsActive:       true,
			IsAdmin:        s.isAdminEmail(email),
		}
		if identity.Subject != "" {
			sub := identity.Subject
			user.GoogleID = &sub
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, failWith(s.log, err, "create user")
		}
		s.log.Info("user registered", zap.String("user_id", user.ID.String()))
		return user, nil
	case err != nil:
		return nil, failWith(s.log, err, "load user")
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is disabled", ErrForbidden)
	}
	if identity.Subject != "" {
		sub := identity.Subject
		user.GoogleID = &sub
	}
	user.Name = name
	if identity.Picture != "" {
		user.ProfilePicture = identity.Picture
	}
	if s.isAdminEmail(email) {
		user.IsAdmin = true
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, failWith(s.log, err, "update user")
	}
	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("user", err)
	}
	return mapToResponse(user), nil
}
