package projects

import (
	"log/slog"
	"net/http"

	"github.com/bugsage/bugsage/internal/api"
	"github.com/bugsage/bugsage/internal/types"
)

type ProjectsHandler struct {
	ProjectsService ProjectsService
	logger          *slog.Logger
}

func NewProjectsHandler(projectsService ProjectsService, logger *slog.Logger) *ProjectsHandler {
	return &ProjectsHandler{
		ProjectsService: projectsService,
		logger:          logger,
	}
}

type updateProjectRequest struct {
	ID int64 `json:"id"`
	types.UpdateProjectParams
}

type deleteProjectRequest struct {
	ID int64 `json:"id"`
}

// List handles GET /projects.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.ProjectsService.ListProjects(r.Context())
	if err != nil {
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.SuccessResponse(w, r, "Success", map[string]interface{}{
		"projects": projects,
	})
}

// Create handles POST /projects (admin only, enforced by the router).
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var params types.CreateProjectParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.ProjectsService.CreateProject(r.Context(), params)
	if err != nil {
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.SuccessResponse(w, r, "Project created successfully", map[string]interface{}{
		"project_id": id,
	})
}

// Update handles PUT /projects (admin only).
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateProjectRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == 0 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Project ID is required")
		return
	}

	if err := h.ProjectsService.UpdateProject(r.Context(), req.ID, req.UpdateProjectParams); err != nil {
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.SuccessResponse(w, r, "Project updated successfully", nil)
}

// Delete handles DELETE /projects (admin only).
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteProjectRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == 0 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Project ID is required")
		return
	}

	if err := h.ProjectsService.DeleteProject(r.Context(), req.ID); err != nil {
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.SuccessResponse(w, r, "Project deleted successfully", nil)
}
