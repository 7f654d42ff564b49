package auth

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/bugsage/bugsage/app/session"
	"github.com/bugsage/bugsage/internal/types"
)

// MockAuthRepo is a mock implementation of the AuthRepo interface
type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) GetUserByLogin(ctx context.Context, login string) (*types.User, error) {
	args := m.Called(ctx, login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, id int64) (*types.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) LoginExists(ctx context.Context, username, email string) (bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthRepo) CreateUser(ctx context.Context, username, email, passwordHash string) (*types.User, error) {
	args := m.Called(ctx, username, email, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) UpdateLastLogin(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSessionStore is a mock implementation of the SessionStore interface
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, data session.Data) (string, error) {
	args := m.Called(ctx, data)
	return args.String(0), args.Error(1)
}

func (m *MockSessionStore) Destroy(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func activeUser(password string) *types.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return &types.User{
		ID:           42,
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: string(hash),
		Role:         types.RoleUser,
		Status:       types.UserStatusActive,
	}
}

func TestLogin(t *testing.T) {
	logger := slog.Default()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		mockSessions := new(MockSessionStore)
		service := NewAuthService(mockRepo, mockSessions, 6, logger)
		ctx := context.Background()

		user := activeUser("password123")
		mockRepo.On("GetUserByLogin", ctx, "testuser").Return(user, nil).Once()
		mockSessions.On("Create", ctx, session.Data{
			UserID:   user.ID,
			Username: user.Username,
			Role:     user.Role,
			Email:    user.Email,
		}).Return("session-token", nil).Once()
		mockRepo.On("UpdateLastLogin", ctx, user.ID).Return(nil).Once()

		got, token, err := service.Login(ctx, "testuser", "password123")

		assert.NoError(t, err)
		assert.Equal(t, user, got)
		assert.Equal(t, "session-token", token)
		mockRepo.AssertExpectations(t)
		mockSessions.AssertExpectations(t)
	})

	t.Run("UserNotFound", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		mockSessions := new(MockSessionStore)
		service := NewAuthService(mockRepo, mockSessions, 6, logger)
		ctx := context.Background()

		mockRepo.On("GetUserByLogin", ctx, "who").Return(nil, types.ErrNotFound).Once()

		got, token, err := service.Login(ctx, "who", "password123")

		assert.Nil(t, got)
		assert.Empty(t, token)
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		mockRepo.AssertExpectations(t)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		mockSessions := new(MockSessionStore)
		service := NewAuthService(mockRepo, mockSessions, 6, logger)
		ctx := context.Background()

		user := activeUser("correctpassword")
		mockRepo.On("GetUserByLogin", ctx, "testuser").Return(user, nil).Once()

		_, _, err := service.Login(ctx, "testuser", "wrongpassword")

		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		mockSessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	// Lookup misses and bad passwords must be indistinguishable to callers.
	t.Run("ErrorsDoNotEnumerateAccounts", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		mockSessions := new(MockSessionStore)
		service := NewAuthService(mockRepo, mockSessions, 6, logger)
		ctx := context.Background()

		mockRepo.On("GetUserByLogin", ctx, "missing").Return(nil, types.ErrNotFound).Once()
		_, _, missErr := service.Login(ctx, "missing", "whatever")

		user := activeUser("correctpassword")
		mockRepo.On("GetUserByLogin", ctx, "testuser").Return(user, nil).Once()
		_, _, pwErr := service.Login(ctx, "testuser", "wrongpassword")

		assert.Equal(t, missErr.Error(), pwErr.Error())
	})

	t.Run("InactiveAccount", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		mockSessions := new(MockSessionStore)
		service := NewAuthService(mockRepo, mockSessions, 6, logger)
		ctx := context.Background()

		user := activeUser("password123")
		user.Status = "inactive"
		mockRepo.On("GetUserByLogin", ctx, "testuser").Return(user, nil).Once()

		_, _, err := service.Login(ctx, "testuser", "password123")

		assert.ErrorIs(t, err, types.ErrValidation)
		mockRepo.AssertExpectations(t)
	})

	t.Run("EmptyCredentials", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		mockSessions := new(MockSessionStore)
		service := NewAuthService(mockRepo, mockSessions, 6, logger)

		_, _, err := service.Login(context.Background(), "", "")

		assert.ErrorIs(t, err, types.ErrValidation)
		mockRepo.AssertNotCalled(t, "GetUserByLogin", mock.Anything, mock.Anything)
	})
}

func TestRegister(t *testing.T) {
	logger := slog.Default()

	validRequest := func() ActionRequest {
		return ActionRequest{
			Action:          ActionRegister,
			Username:        "newuser",
			Email:           "new@example.com",
			Password:        "password123",
			ConfirmPassword: "password123",
		}
	}

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		mockSessions := new(MockSessionStore)
		service := NewAuthService(mockRepo, mockSessions, 6, logger)
		ctx := context.Background()

		created := &types.User{
			ID:       7,
			Username: "newuser",
			Email:    "new@example.com",
			Role:     types.RoleUser,
			Status:   types.UserStatusActive,
		}

		mockRepo.On("LoginExists", ctx, "newuser", "new@example.com").Return(false, nil).Once()
		mockRepo.On("CreateUser", ctx, "newuser", "new@example.com", mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) {
				// The stored hash must verify against the plaintext.
				hash := args.String(3)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("password123")))
			}).
			Return(created, nil).Once()
		mockSessions.On("Create", ctx, mock.AnythingOfType("session.Data")).Return("session-token", nil).Once()

		user, token, err := service.Register(ctx, validRequest())

		assert.NoError(t, err)
		assert.Equal(t, created, user)
		assert.Equal(t, "session-token", token)
		mockRepo.AssertExpectations(t)
		mockSessions.AssertExpectations(t)
	})

	t.Run("ShortPassword", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, new(MockSessionStore), 6, logger)

		req := validRequest()
		req.Password = "short"
		req.ConfirmPassword = "short"

		_, _, err := service.Register(context.Background(), req)

		assert.ErrorIs(t, err, types.ErrValidation)
		mockRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("PasswordMismatch", func(t *testing.T) {
		service := NewAuthService(new(MockAuthRepo), new(MockSessionStore), 6, logger)

		req := validRequest()
		req.ConfirmPassword = "different123"

		_, _, err := service.Register(context.Background(), req)

		assert.ErrorIs(t, err, types.ErrValidation)
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		service := NewAuthService(new(MockAuthRepo), new(MockSessionStore), 6, logger)

		req := validRequest()
		req.Email = "not-an-email"

		_, _, err := service.Register(context.Background(), req)

		assert.ErrorIs(t, err, types.ErrValidation)
	})

	t.Run("MissingFields", func(t *testing.T) {
		service := NewAuthService(new(MockAuthRepo), new(MockSessionStore), 6, logger)

		req := validRequest()
		req.Username = ""

		_, _, err := service.Register(context.Background(), req)

		assert.ErrorIs(t, err, types.ErrValidation)
	})

	t.Run("DuplicateLogin", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, new(MockSessionStore), 6, logger)
		ctx := context.Background()

		mockRepo.On("LoginExists", ctx, "newuser", "new@example.com").Return(true, nil).Once()

		_, _, err := service.Register(ctx, validRequest())

		assert.ErrorIs(t, err, types.ErrConflict)
		mockRepo.AssertExpectations(t)
	})
}

func TestLogout(t *testing.T) {
	mockSessions := new(MockSessionStore)
	service := NewAuthService(new(MockAuthRepo), mockSessions, 6, slog.Default())
	ctx := context.Background()

	mockSessions.On("Destroy", ctx, "some-token").Return(nil).Once()

	assert.NoError(t, service.Logout(ctx, "some-token"))
	mockSessions.AssertExpectations(t)
}

func TestCurrentUser(t *testing.T) {
	logger := slog.Default()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, new(MockSessionStore), 6, logger)
		ctx := context.Background()

		user := activeUser("password123")
		mockRepo.On("GetUserByID", ctx, int64(42)).Return(user, nil).Once()

		got, err := service.CurrentUser(ctx, 42)

		assert.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, new(MockSessionStore), 6, logger)
		ctx := context.Background()

		mockRepo.On("GetUserByID", ctx, int64(99)).Return(nil, types.ErrNotFound).Once()

		_, err := service.CurrentUser(ctx, 99)

		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}
