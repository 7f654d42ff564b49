package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"golang.org/x/crypto/bcrypt"

	"github.com/bugsage/bugsage/app/session"
	"github.com/bugsage/bugsage/internal/types"
)

// SessionStore is the slice of the session store the auth service needs.
type SessionStore interface {
	Create(ctx context.Context, data session.Data) (string, error)
	Destroy(ctx context.Context, token string) error
}

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	// Login authenticates by username or email and establishes a session.
	// Lookup misses and bad passwords return the same error so callers
	// cannot enumerate accounts.
	Login(ctx context.Context, login, password string) (*types.User, string, error)

	// Register validates input, creates the user, and establishes a session
	// (registration implies login).
	Register(ctx context.Context, req ActionRequest) (*types.User, string, error)

	// Logout destroys the session; succeeds even if none existed.
	Logout(ctx context.Context, token string) error

	// CurrentUser reads the authenticated user fresh from the database.
	CurrentUser(ctx context.Context, userID int64) (*types.User, error)
}

type AuthServiceImpl struct {
	logger            *slog.Logger
	repo              AuthRepo
	sessions          SessionStore
	passwordMinLength int
}

func NewAuthService(repo AuthRepo, sessions SessionStore, passwordMinLength int, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:            logger,
		repo:              repo,
		sessions:          sessions,
		passwordMinLength: passwordMinLength,
	}
}

func (s *AuthServiceImpl) Login(ctx context.Context, login, password string) (*types.User, string, error) {
	l := s.logger.With(slog.String("method", "Login"))

	if login == "" || password == "" {
		return nil, "", fmt.Errorf("Username and password are required: %w", types.ErrValidation)
	}

	user, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			// Same message as a bad password.
			return nil, "", fmt.Errorf("Invalid credentials: %w", types.ErrUnauthenticated)
		}
		return nil, "", fmt.Errorf("error fetching user for login: %w", err)
	}

	if user.Status != types.UserStatusActive {
		return nil, "", fmt.Errorf("Account is not active: %w", types.ErrValidation)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", fmt.Errorf("Invalid credentials: %w", types.ErrUnauthenticated)
	}

	token, err := s.sessions.Create(ctx, session.Data{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Email:    user.Email,
	})
	if err != nil {
		return nil, "", fmt.Errorf("error establishing session: %w", err)
	}

	if err = s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, "", fmt.Errorf("error updating last login: %w", err)
	}

	l.InfoContext(ctx, "User logged in", slog.Int64("user_id", user.ID))
	return user, token, nil
}

func (s *AuthServiceImpl) Register(ctx context.Context, req ActionRequest) (*types.User, string, error) {
	l := s.logger.With(slog.String("method", "Register"))

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, "", fmt.Errorf("All fields are required: %w", types.ErrValidation)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, "", fmt.Errorf("Invalid email format: %w", types.ErrValidation)
	}
	if len(req.Password) < s.passwordMinLength {
		return nil, "", fmt.Errorf("Password must be at least %d characters: %w", s.passwordMinLength, types.ErrValidation)
	}
	if req.Password != req.ConfirmPassword {
		return nil, "", fmt.Errorf("Passwords do not match: %w", types.ErrValidation)
	}

	exists, err := s.repo.LoginExists(ctx, req.Username, req.Email)
	if err != nil {
		return nil, "", fmt.Errorf("error checking existing users: %w", err)
	}
	if exists {
		return nil, "", fmt.Errorf("Username or email already exists: %w", types.ErrConflict)
	}

	// One-way salted hash; the plaintext is never stored or logged.
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, req.Username, req.Email, string(hash))
	if err != nil {
		// The unique constraint can race the pre-check.
		if errors.Is(err, types.ErrConflict) {
			return nil, "", fmt.Errorf("Username or email already exists: %w", types.ErrConflict)
		}
		return nil, "", fmt.Errorf("error creating user: %w", err)
	}

	// Registration implies login.
	token, err := s.sessions.Create(ctx, session.Data{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Email:    user.Email,
	})
	if err != nil {
		return nil, "", fmt.Errorf("error establishing session: %w", err)
	}

	l.InfoContext(ctx, "User registered", slog.Int64("user_id", user.ID))
	return user, token, nil
}

func (s *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return fmt.Errorf("error destroying session: %w", err)
	}
	return nil
}

func (s *AuthServiceImpl) CurrentUser(ctx context.Context, userID int64) (*types.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error fetching current user: %w", err)
	}
	return user, nil
}
