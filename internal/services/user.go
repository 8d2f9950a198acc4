package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"couples-backend/internal/models"
	"couples-backend/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 6

	dateLayout = "2006-01-02"
)

// RegisterInput holds the fields of a new account
type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
	DateOfBirth *time.Time
}

// ProfileUpdate holds the profile fields a user may change; nil means unchanged
type ProfileUpdate struct {
	DisplayName *string
	Password    *string
}

// AuthResponse is returned on register, login and refresh
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       int64  `json:"userId"`
	Username     string `json:"username"`
	DisplayName  string `json:"displayName"`
}

// Profile is the public view of the caller's account
type Profile struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	DateOfBirth *string   `json:"dateOfBirth"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserService handles registration, login and profile management
type UserService struct {
	store      repository.Store
	tokens     *TokenManager
	bcryptCost int
	now        func() time.Time
}

// NewUserService creates a new user service
func NewUserService(store repository.Store, tokens *TokenManager, bcryptCost int) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		store:      store,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// Register creates an account and signs the user in
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	username := strings.TrimSpace(in.Username)
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return nil, fmt.Errorf("%w: username must be %d to %d characters", ErrValidation, minUsernameLength, maxUsernameLength)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = username
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
		DateOfBirth:  in.DateOfBirth,
		CreatedAt:    s.now(),
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issue(user)
}

// Login checks the credentials and signs the user in
func (s *UserService) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	user, err := s.store.Users().GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Refresh exchanges a refresh token for a new token pair
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	userID, err := s.tokens.Verify(refreshToken, TokenRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrUnauthorized)
		}
		return nil, err
	}

	return s.issue(user)
}

// GetProfile returns the caller's profile
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	return toProfile(user), nil
}

// UpdateProfile changes the caller's display name and/or password
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*Profile, error) {
	var updated *models.User

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("user %d: %w", userID, ErrNotFound)
			}
			return err
		}

		if upd.DisplayName != nil {
			name := strings.TrimSpace(*upd.DisplayName)
			if name == "" {
				return fmt.Errorf("%w: display name must not be blank", ErrValidation)
			}
			user.DisplayName = name
		}
		if upd.Password != nil {
			if len(*upd.Password) < minPasswordLength {
				return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
			}
			hash, err := s.hashPassword(*upd.Password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}

		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toProfile(updated), nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *UserService) issue(user *models.User) (*AuthResponse, error) {
	access, err := s.tokens.Issue(user.ID, user.Username, TokenAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.Issue(user.ID, user.Username, TokenRefresh)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       user.ID,
		Username:     user.Username,
		DisplayName:  user.DisplayName,
	}, nil
}

func toProfile(user *models.User) *Profile {
	p := &Profile{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	}
	if user.DateOfBirth != nil {
		dob := user.DateOfBirth.Format(dateLayout)
		p.DateOfBirth = &dob
	}
	return p
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return t, nil
}
