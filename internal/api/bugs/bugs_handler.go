package bugs

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bugsage/bugsage/internal/api"
	"github.com/bugsage/bugsage/internal/api/auth"
	"github.com/bugsage/bugsage/internal/types"
)

type BugsHandler struct {
	BugsService BugsService
	logger      *slog.Logger
}

func NewBugsHandler(bugsService BugsService, logger *slog.Logger) *BugsHandler {
	return &BugsHandler{
		BugsService: bugsService,
		logger:      logger,
	}
}

type updateBugRequest struct {
	ID int64 `json:"id"`
	types.UpdateBugParams
}

type deleteBugRequest struct {
	ID int64 `json:"id"`
}

type updateStatusRequest struct {
	BugID  int64  `json:"bug_id"`
	Status string `json:"status"`
}

// parseFilter reads the optional list filters from the query string.
// Unparseable values are treated as unset.
func parseFilter(r *http.Request) types.BugFilter {
	var filter types.BugFilter
	q := r.URL.Query()

	if v := q.Get("project_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.ProjectID = &id
		}
	}
	if v := q.Get("status"); v != "" {
		filter.Status = &v
	}
	if v := q.Get("priority"); v != "" {
		filter.Priority = &v
	}
	if v := q.Get("assigned_to"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.AssignedTo = &id
		}
	}
	return filter
}

// parsePositiveInt coerces a query value to a positive integer, falling back
// to def when absent, non-numeric, or non-positive.
func parsePositiveInt(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// List handles GET /bugs.
func (h *BugsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parsePositiveInt(q.Get("page"), 1)
	limit := parsePositiveInt(q.Get("limit"), 0) // 0 lets the service apply the configured default

	pageData, err := h.BugsService.ListBugs(r.Context(), parseFilter(r), page, limit)
	if err != nil {
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.SuccessResponse(w, r, "Success", map[string]interface{}{
		"bugs":       pageData.Bugs,
		"pagination": pageData.Pagination,
	})
}

// Create handles POST /bugs.
func (h *BugsHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var params types.CreateBugParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	bug, err := h.BugsService.CreateBug(r.Context(), callerID, params)
	if err != nil {
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.SuccessResponse(w, r, "Bug created successfully", map[string]interface{}{
		"bug": bug,
	})
}

// Update handles PUT /bugs.
func (h *BugsHandler) Update(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	callerRole, _ := auth.GetUserRoleFromContext(r.Context())

	var req updateBugRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == 0 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Bug ID is required")
		return
	}

	if err := h.BugsService.UpdateBug(r.Context(), callerID, callerRole, req.ID, req.UpdateBugParams); err != nil {
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.SuccessResponse(w, r, "Bug updated successfully", nil)
}

// Delete handles DELETE /bugs (admin only, enforced by the router).
func (h *BugsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteBugRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == 0 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Bug ID is required")
		return
	}

	if err := h.BugsService.DeleteBug(r.Context(), req.ID); err != nil {
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.SuccessResponse(w, r, "Bug deleted successfully", nil)
}

// UpdateStatus handles POST /bugs/status, the kanban drag-drop mutation.
func (h *BugsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	callerRole, _ := auth.GetUserRoleFromContext(r.Context())

	var req updateStatusRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.BugID == 0 || req.Status == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Bug ID and status are required")
		return
	}

	if err := h.BugsService.UpdateBugStatus(r.Context(), callerID, callerRole, req.BugID, req.Status); err != nil {
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.SuccessResponse(w, r, "Bug status updated successfully", nil)
}
