package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bugsage/bugsage/internal/api"
)

type AuthHandler struct {
	AuthService AuthService
	logger      *slog.Logger
	cookieName  string
	sessionTTL  time.Duration
}

func NewAuthHandler(authService AuthService, cookieName string, sessionTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		AuthService: authService,
		logger:      logger,
		cookieName:  cookieName,
		sessionTTL:  sessionTTL,
	}
}

// Dispatch routes POST /auth on the body's action field.
func (h *AuthHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Action {
	case ActionLogin:
		h.login(w, r, req)
	case ActionRegister:
		h.register(w, r, req)
	case ActionLogout:
		h.logout(w, r)
	default:
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid action")
	}
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, req ActionRequest) {
	user, token, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		api.DomainErrorResponse(w, r, err)
		return
	}

	h.setSessionCookie(w, token)
	api.SuccessResponse(w, r, "Login successful", map[string]interface{}{
		"user": user.Public(),
	})
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, req ActionRequest) {
	user, token, err := h.AuthService.Register(r.Context(), req)
	if err != nil {
		api.DomainErrorResponse(w, r, err)
		return
	}

	h.setSessionCookie(w, token)
	api.SuccessResponse(w, r, "Registration successful", map[string]interface{}{
		"user": user.Public(),
	})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	// Idempotent: a missing cookie is still a successful logout.
	token := ""
	if cookie, err := r.Cookie(h.cookieName); err == nil {
		token = cookie.Value
	}

	if err := h.AuthService.Logout(r.Context(), token); err != nil {
		api.DomainErrorResponse(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	api.SuccessResponse(w, r, "Logout successful", nil)
}

// CurrentUser handles GET /auth for an authenticated session.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.AuthService.CurrentUser(r.Context(), userID)
	if err != nil {
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.SuccessResponse(w, r, "Success", map[string]interface{}{
		"user": user.Public(),
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
