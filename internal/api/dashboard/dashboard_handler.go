package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/bugsage/bugsage/internal/api"
	"github.com/bugsage/bugsage/internal/api/auth"
)

type DashboardHandler struct {
	DashboardService DashboardService
	logger           *slog.Logger
}

func NewDashboardHandler(dashboardService DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		DashboardService: dashboardService,
		logger:           logger,
	}
}

// Get handles GET /dashboard.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	role, _ := auth.GetUserRoleFromContext(r.Context())

	data, err := h.DashboardService.GetDashboard(r.Context(), userID, role)
	if err != nil {
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.SuccessResponse(w, r, "Success", map[string]interface{}{
		"stats":       data.Stats,
		"recent_bugs": data.RecentBugs,
		"my_bugs":     data.MyBugs,
		"charts":      data.Charts,
	})
}
