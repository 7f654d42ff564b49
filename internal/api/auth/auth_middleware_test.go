package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bugsage/bugsage/app/session"
	"github.com/bugsage/bugsage/internal/types"
)

// MockSessionReader is a mock implementation of the SessionReader interface
type MockSessionReader struct {
	mock.Mock
}

func (m *MockSessionReader) Get(ctx context.Context, token string) (*session.Data, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Data), args.Error(1)
}

func TestAuthenticate(t *testing.T) {
	logger := slog.Default()

	t.Run("ValidCookiePopulatesIdentity", func(t *testing.T) {
		mockSessions := new(MockSessionReader)
		mockSessions.On("Get", mock.Anything, "valid-token").Return(&session.Data{
			UserID:   7,
			Username: "someone",
			Role:     types.RoleUser,
		}, nil).Once()

		var gotID int64
		var gotRole string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID, _ = GetUserIDFromContext(r.Context())
			gotRole, _ = GetUserRoleFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/bugs", nil)
		req.AddCookie(&http.Cookie{Name: "test_session", Value: "valid-token"})
		rec := httptest.NewRecorder()

		Authenticate(mockSessions, "test_session", logger)(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(7), gotID)
		assert.Equal(t, types.RoleUser, gotRole)
		mockSessions.AssertExpectations(t)
	})

	t.Run("MissingCookie", func(t *testing.T) {
		mockSessions := new(MockSessionReader)
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next handler should not run")
		})

		req := httptest.NewRequest(http.MethodGet, "/bugs", nil)
		rec := httptest.NewRecorder()

		Authenticate(mockSessions, "test_session", logger)(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		mockSessions.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		mockSessions := new(MockSessionReader)
		mockSessions.On("Get", mock.Anything, "stale-token").
			Return(nil, fmt.Errorf("session not found: %w", types.ErrUnauthenticated)).Once()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next handler should not run")
		})

		req := httptest.NewRequest(http.MethodGet, "/bugs", nil)
		req.AddCookie(&http.Cookie{Name: "test_session", Value: "stale-token"})
		rec := httptest.NewRecorder()

		Authenticate(mockSessions, "test_session", logger)(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	logger := slog.Default()

	run := func(role string, withRole bool) *httptest.ResponseRecorder {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodDelete, "/bugs", nil)
		if withRole {
			req = req.WithContext(context.WithValue(req.Context(), UserRoleKey, role))
		}
		rec := httptest.NewRecorder()
		RequireAdmin(logger)(next).ServeHTTP(rec, req)
		return rec
	}

	t.Run("AdminAllowed", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, run(types.RoleAdmin, true).Code)
	})

	t.Run("UserForbidden", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, run(types.RoleUser, true).Code)
	})

	t.Run("NoIdentityForbidden", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, run("", false).Code)
	})
}
