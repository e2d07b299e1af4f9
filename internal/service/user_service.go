package service

import (
	"context"
	"strings"
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/cache"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/repository"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// RegisterInput is a signup request.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// Profile is the public view of a user. It is safe to cache: it carries no permissions.
type Profile struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Group       string    `json:"group"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserService handles accounts and credentials.
type UserService struct {
	store      *repository.Store
	bcryptCost int
}

// NewUserService returns a UserService hashing with bcrypt.DefaultCost.
func NewUserService(store *repository.Store) *UserService {
	return &UserService{store: store, bcryptCost: bcrypt.DefaultCost}
}

// Register creates an account in the default group.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, email, and password are required")
	}
	if err := validation.ValidateRegistration(username, email, in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	exists, err := s.store.Users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewConflictError("Username or email already taken")
	}

	group, err := s.store.Groups.GetDefault(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:    username,
		Email:       email,
		Password:    string(hash),
		DisplayName: strings.TrimSpace(in.DisplayName),
		GroupID:     group.ID,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	user.Group = group
	return user, nil
}

// Authenticate checks login (username or email) and password.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	user, err := s.store.Users.GetByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthenticatedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthenticatedError("Invalid credentials")
	}
	return user, nil
}

// GetProfile returns a user's public profile, through the cache.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*Profile, error) {
	var profile Profile
	err := cache.Aside(ctx, cache.UserKey(userID), &profile, cache.UserTTL, func() error {
		user, err := s.store.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		profile = Profile{
			ID:          user.ID,
			Username:    user.Username,
			DisplayName: user.DisplayName,
			Bio:         user.Bio,
			CreatedAt:   user.CreatedAt,
		}
		if user.Group != nil {
			profile.Group = user.Group.Name
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
